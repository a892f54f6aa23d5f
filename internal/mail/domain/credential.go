package domain

import (
	"time"

	"golang.org/x/oauth2"
)

// CredentialKey is the slot of the single connected mailbox.
const CredentialKey = "default"

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc func(token *oauth2.Token) error

// Credential holds the OAuth tokens of the connected Gmail account.
// The application serves one mailbox, so there is at most one row.
type Credential struct {
	Slot         string     `json:"-" gorm:"primaryKey;size:32"`
	AccountEmail string     `json:"account_email"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenType    string     `json:"-"`
	Expiry       *time.Time `json:"expiry,omitempty"`
	Scopes       string     `json:"scopes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Credential) TableName() string {
	return "gmail_credentials"
}

// Token converts the stored values to an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
	}
	if c.Expiry != nil {
		token.Expiry = *c.Expiry
	}
	return token
}

// ApplyToken copies a (possibly refreshed) token onto the credential. An empty
// refresh token keeps the stored one; Google only returns it on first consent.
func (c *Credential) ApplyToken(token *oauth2.Token) {
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	c.TokenType = token.TokenType
	if token.Expiry.IsZero() {
		c.Expiry = nil
	} else {
		expiry := token.Expiry.UTC()
		c.Expiry = &expiry
	}
}

