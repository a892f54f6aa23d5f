package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	contactdomain "crm-backend/internal/contact/domain"
	contactrepo "crm-backend/internal/contact/repository"
	"crm-backend/internal/mail/domain"
	"crm-backend/internal/mail/repository"
	"crm-backend/pkg/apperrors"
	"crm-backend/pkg/config"
	"crm-backend/pkg/gmail"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const snippetLength = 120

type mailUsecase struct {
	credRepo    repository.CredentialRepository
	messageRepo repository.MessageRepository
	contactRepo contactrepo.ContactRepository
	provider    domain.MailProvider
	observer    ReplyObserver
	config      *config.Config
	logger      *zap.Logger
	now         func() time.Time

	// push notifications, the ticker and HTTP requests all trigger syncs
	syncMu sync.Mutex
}

func NewMailUsecase(
	credRepo repository.CredentialRepository,
	messageRepo repository.MessageRepository,
	contactRepo contactrepo.ContactRepository,
	provider domain.MailProvider,
	cfg *config.Config,
	logger *zap.Logger,
) MailUsecase {
	return &mailUsecase{
		credRepo:    credRepo,
		messageRepo: messageRepo,
		contactRepo: contactRepo,
		provider:    provider,
		config:      cfg,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (u *mailUsecase) SetReplyObserver(observer ReplyObserver) {
	u.observer = observer
}

func (u *mailUsecase) Status() (*Status, error) {
	status := &Status{Configured: u.config.GmailConfigured()}

	cred, err := u.credRepo.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred != nil && cred.AccessToken != "" {
		status.Connected = true
		status.AccountEmail = cred.AccountEmail
	}
	return status, nil
}

func (u *mailUsecase) AuthURL() (string, string, error) {
	if !u.config.GmailConfigured() {
		return "", "", errNotConfigured()
	}

	state, err := signState(u.config.SecretKey, u.now())
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to sign OAuth state")
	}
	return u.provider.AuthCodeURL(state), state, nil
}

func (u *mailUsecase) Callback(ctx context.Context, state, issuedState, code string) (*domain.Credential, error) {
	if !u.config.GmailConfigured() {
		return nil, errNotConfigured()
	}
	if state == "" || issuedState == "" || state != issuedState {
		return nil, apperrors.NewBadRequest(apperrors.CodeOAuthState, "Invalid OAuth state")
	}
	if err := verifyState(u.config.SecretKey, state); err != nil {
		u.logger.Warn("Rejected OAuth state", zap.Error(err))
		return nil, apperrors.NewBadRequest(apperrors.CodeOAuthState, "Invalid OAuth state")
	}
	if code == "" {
		return nil, apperrors.NewBadRequest(apperrors.CodeValidation, "missing authorization code")
	}

	token, err := u.provider.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.NewUpstream("failed to exchange authorization code", err)
	}

	cred, err := u.credRepo.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil {
		cred = &domain.Credential{}
	}
	cred.ApplyToken(token)
	cred.Scopes = strings.Join(u.config.GoogleScopes, " ")

	account, err := u.provider.Profile(ctx, token, nil)
	if err != nil {
		// account address is optional
		u.logger.Warn("Failed to look up account address", zap.Error(err))
	} else {
		cred.AccountEmail = account
	}

	if err := u.credRepo.Save(cred); err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	u.logger.Info("Gmail account connected", zap.String("account", cred.AccountEmail))
	return cred, nil
}

func (u *mailUsecase) Disconnect() error {
	if err := u.credRepo.Delete(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	u.logger.Info("Gmail account disconnected")
	return nil
}

func (u *mailUsecase) Sync(ctx context.Context) (*SyncResult, error) {
	u.syncMu.Lock()
	defer u.syncMu.Unlock()

	cred, err := u.connectedCredential()
	if err != nil {
		return nil, err
	}
	token := cred.Token()

	ids, err := u.provider.ListInbox(ctx, token, u.config.MailSyncLimit, u.persistToken)
	if err != nil {
		u.logger.Error("Failed to list Gmail messages", zap.Error(err))
		return nil, apperrors.NewUpstream("Failed to list Gmail messages", err)
	}

	result := &SyncResult{}
	seen := make(map[string]bool, len(ids))
	replied := make(map[string]bool)
	var repliedOrder []string

	for _, id := range ids {
		if seen[id] {
			result.Skipped++
			continue
		}
		seen[id] = true

		exists, err := u.messageRepo.ExistsByMessageID(id)
		if err != nil {
			return nil, fmt.Errorf("failed to check message %s: %w", id, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		inbox, err := u.provider.GetMessage(ctx, token, id, u.persistToken)
		if err != nil {
			u.logger.Error("Failed to fetch Gmail message", zap.String("message_id", id), zap.Error(err))
			return nil, apperrors.NewUpstream("Failed to fetch Gmail message", err)
		}

		msg, err := u.toMessage(inbox)
		if err != nil {
			return nil, err
		}
		result.Stored = append(result.Stored, msg)

		if msg.Direction == domain.DirectionIncoming && msg.ContactID != nil && !replied[*msg.ContactID] {
			replied[*msg.ContactID] = true
			repliedOrder = append(repliedOrder, *msg.ContactID)
		}
	}

	if err := u.messageRepo.CreateBatch(result.Stored); err != nil {
		return nil, fmt.Errorf("failed to store synced messages: %w", err)
	}

	u.logger.Info("Mail sync finished",
		zap.Int("stored", len(result.Stored)),
		zap.Int("skipped", result.Skipped),
		zap.Int("contacts_replied", len(repliedOrder)),
	)

	if u.observer != nil {
		for _, contactID := range repliedOrder {
			if err := u.observer.ContactReplied(ctx, contactID); err != nil {
				u.logger.Error("Failed to handle contact reply", zap.String("contact_id", contactID), zap.Error(err))
			}
		}
	}

	return result, nil
}

func (u *mailUsecase) SendToContact(ctx context.Context, contact *contactdomain.Contact, subject, body string) (string, error) {
	if contact == nil || strings.TrimSpace(contact.Email) == "" {
		return "", apperrors.NewBadRequest(apperrors.CodeValidation, "contact has no email address")
	}

	cred, err := u.connectedCredential()
	if err != nil {
		return "", err
	}

	sent, err := u.provider.Send(ctx, cred.Token(), &domain.OutgoingMessage{
		FromName:  u.config.SenderName,
		FromEmail: cred.AccountEmail,
		To:        contact.Email,
		Subject:   subject,
		Body:      body,
	}, u.persistToken)
	if err != nil {
		return "", apperrors.NewUpstream("Failed to send Gmail message", err)
	}

	now := u.now()
	contactID := contact.ID
	logged := &domain.Message{
		ContactID:  &contactID,
		MessageID:  sent.ID,
		ThreadID:   sent.ThreadID,
		Subject:    subject,
		Snippet:    truncate(body, snippetLength),
		ReceivedAt: &now,
		Direction:  domain.DirectionOutgoing,
	}
	if err := u.messageRepo.Create(logged); err != nil {
		// already sent; logging failures are not returned
		u.logger.Error("Failed to log sent message", zap.String("message_id", sent.ID), zap.Error(err))
	}
	if err := u.contactRepo.TouchLastContacted(contact.ID, now); err != nil {
		u.logger.Error("Failed to stamp last contacted", zap.String("contact_id", contact.ID), zap.Error(err))
	}

	u.logger.Info("Mail sent", zap.String("contact_id", contact.ID), zap.String("message_id", sent.ID))
	return sent.ID, nil
}

func (u *mailUsecase) RecentForContact(contactID string, limit int) ([]*domain.Message, error) {
	return u.messageRepo.RecentForContact(contactID, limit)
}

func (u *mailUsecase) Watch(ctx context.Context, topicName string) (uint64, error) {
	cred, err := u.connectedCredential()
	if err != nil {
		return 0, err
	}

	historyID, err := u.provider.Watch(ctx, cred.Token(), topicName, u.persistToken)
	if err != nil {
		return 0, apperrors.NewUpstream("Failed to watch mailbox", err)
	}
	return historyID, nil
}

func (u *mailUsecase) PurgeContact(ctx context.Context, contactID string) error {
	return u.messageRepo.DeleteByContactID(contactID)
}

func (u *mailUsecase) connectedCredential() (*domain.Credential, error) {
	if !u.config.GmailConfigured() {
		return nil, errNotConfigured()
	}
	cred, err := u.credRepo.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred == nil || cred.AccessToken == "" {
		return nil, apperrors.NewUnavailable(apperrors.CodeGmailNotConnected, "No Gmail credentials available")
	}
	return cred, nil
}

// persistToken writes a refreshed token back to the stored credential
func (u *mailUsecase) persistToken(token *oauth2.Token) error {
	cred, err := u.credRepo.Get()
	if err != nil {
		return err
	}
	if cred == nil {
		return nil
	}
	cred.ApplyToken(token)
	if err := u.credRepo.Save(cred); err != nil {
		return err
	}
	u.logger.Debug("Stored refreshed Gmail token")
	return nil
}

func (u *mailUsecase) toMessage(inbox *domain.InboxMessage) (*domain.Message, error) {
	msg := &domain.Message{
		MessageID:  inbox.ID,
		ThreadID:   inbox.ThreadID,
		Subject:    inbox.Subject,
		Snippet:    inbox.Snippet,
		ReceivedAt: inbox.ReceivedAt,
		Direction:  domain.DirectionOutgoing,
	}
	if msg.Snippet == "" {
		msg.Snippet = truncate(inbox.Body, snippetLength)
	}

	contact, err := u.matchContact(inbox.From, inbox.To)
	if err != nil {
		return nil, err
	}
	if contact != nil {
		id := contact.ID
		msg.ContactID = &id
		if contact.Email != "" && strings.Contains(strings.ToLower(inbox.From), strings.ToLower(contact.Email)) {
			msg.Direction = domain.DirectionIncoming
		}
	}
	return msg, nil
}

// matchContact tries the From addresses, then To; the first known contact wins
func (u *mailUsecase) matchContact(from, to string) (*contactdomain.Contact, error) {
	for _, header := range []string{from, to} {
		for _, addr := range gmail.ExtractAddresses(header) {
			contact, err := u.contactRepo.FindByEmail(addr)
			if err != nil {
				return nil, fmt.Errorf("failed to match contact: %w", err)
			}
			if contact != nil {
				return contact, nil
			}
		}
	}
	return nil, nil
}

func errNotConfigured() error {
	return apperrors.NewUnavailable(apperrors.CodeGmailNotConfigured, "Google OAuth environment variables not configured")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
