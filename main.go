package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "crm-backend/cmd/api"
	contactDelivery "crm-backend/internal/contact/delivery"
	contactdomain "crm-backend/internal/contact/domain"
	contactRepo "crm-backend/internal/contact/repository"
	contactUsecase "crm-backend/internal/contact/usecase"
	deviceDelivery "crm-backend/internal/device/delivery"
	devicedomain "crm-backend/internal/device/domain"
	deviceRepo "crm-backend/internal/device/repository"
	mailDelivery "crm-backend/internal/mail/delivery"
	maildomain "crm-backend/internal/mail/domain"
	mailRepo "crm-backend/internal/mail/repository"
	mailScheduler "crm-backend/internal/mail/scheduler"
	mailUsecase "crm-backend/internal/mail/usecase"
	"crm-backend/internal/notification"
	suggestionDelivery "crm-backend/internal/suggestion/delivery"
	suggestiondomain "crm-backend/internal/suggestion/domain"
	suggestionRepo "crm-backend/internal/suggestion/repository"
	suggestionScheduler "crm-backend/internal/suggestion/scheduler"
	suggestionUsecase "crm-backend/internal/suggestion/usecase"
	"crm-backend/pkg/ai"
	"crm-backend/pkg/config"
	"crm-backend/pkg/database"
	"crm-backend/pkg/fcm"
	"crm-backend/pkg/gmail"
	"crm-backend/pkg/jobqueue"
	"crm-backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewConnection(cfg.DatabaseURL, log.Named("db"))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database schemas
	if err := database.Migrate(db,
		&contactdomain.Contact{},
		&contactdomain.Action{},
		&maildomain.Credential{},
		&maildomain.Message{},
		&suggestiondomain.Suggestion{},
		&suggestiondomain.ScheduledEmail{},
		&devicedomain.DeviceToken{},
	); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Initialize repositories (dependency injection)
	contactRepository := contactRepo.NewContactRepository(db)
	actionRepository := contactRepo.NewActionRepository(db)
	credentialRepository := mailRepo.NewCredentialRepository(db)
	messageRepository := mailRepo.NewMessageRepository(db)
	suggestionRepository := suggestionRepo.NewSuggestionRepository(db)
	scheduleRepository := suggestionRepo.NewScheduledEmailRepository(db)
	deviceRepository := deviceRepo.NewDeviceRepository(db)

	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, cfg.GoogleScopes, log.Named("gmail"))
	if !cfg.GmailConfigured() {
		log.Warn("Google OAuth client not configured, Gmail features disabled")
	}

	// Shared by the generator and the settings API
	ollamaSettings := ai.NewOllamaSettings(cfg.OllamaBaseURL, cfg.OllamaModel)
	if !cfg.TextGenerationConfigured() {
		log.Warn("No text generation provider configured, suggestions use the template")
	}
	generator := ai.NewTextGenerator(ctx, ai.Config{
		Provider:     ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		Ollama:       ollamaSettings,
	}, log.Named("ai"))

	queue, err := jobqueue.New(log.Named("jobqueue"))
	if err != nil {
		log.Fatal("Failed to create job queue", zap.Error(err))
	}

	// Initialize use cases (dependency injection)
	contactUsecaseInstance := contactUsecase.NewContactUsecase(contactRepository, actionRepository, log.Named("contact"))
	mailUsecaseInstance := mailUsecase.NewMailUsecase(credentialRepository, messageRepository, contactRepository, gmailService, cfg, log.Named("mail"))
	dispatcher := suggestionScheduler.NewDispatcher(scheduleRepository, mailUsecaseInstance, queue, log.Named("dispatcher"))
	suggestionUsecaseInstance := suggestionUsecase.NewSuggestionUsecase(
		suggestionRepository,
		scheduleRepository,
		contactRepository,
		mailUsecaseInstance,
		dispatcher,
		generator,
		cfg.SenderName,
		log.Named("suggestion"),
	)

	mailUsecaseInstance.SetReplyObserver(suggestionUsecaseInstance)
	contactUsecaseInstance.AddCleaner(suggestionUsecaseInstance)
	contactUsecaseInstance.AddCleaner(mailUsecaseInstance)

	// Push notifications are optional
	var deviceHandler *deviceDelivery.DeviceHandler
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials, log.Named("fcm"))
		if err != nil {
			log.Warn("Failed to initialize FCM client, push notifications disabled", zap.Error(err))
		} else {
			pusher := notification.NewPusher(fcmClient, deviceRepository, log.Named("push"))
			dispatcher.SetNotifier(pusher)
			suggestionUsecaseInstance.SetReviewNotifier(pusher)
			deviceHandler = deviceDelivery.NewDeviceHandler(deviceRepository)
		}
	}

	// Gmail push sync over Pub/Sub; only start if project ID is configured
	var notifService *notification.Service
	if cfg.GoogleProjectID != "" {
		notifService = startNotifications(ctx, cfg, mailUsecaseInstance, log)
	} else {
		log.Info("GoogleProjectID not configured, push sync disabled")
	}

	restored, err := dispatcher.Restore(ctx)
	if err != nil {
		log.Error("Failed to restore scheduled emails", zap.Error(err))
	} else if restored > 0 {
		log.Info("Restored scheduled emails", zap.Int("count", restored))
	}
	queue.Start()

	syncScheduler := mailScheduler.NewSyncScheduler(mailUsecaseInstance, cfg.MailSyncInterval, log.Named("sync"))
	syncScheduler.Start()

	// Initialize HTTP handlers
	contactHandler := contactDelivery.NewContactHandler(contactUsecaseInstance)
	contactHandler.SetMailStatus(func() (bool, string) {
		status, err := mailUsecaseInstance.Status()
		if err != nil {
			return false, ""
		}
		return status.Connected, status.AccountEmail
	})
	handler := api.NewHandler(
		contactHandler,
		mailDelivery.NewMailHandler(mailUsecaseInstance, cfg.IsProduction(), log.Named("mail")),
		suggestionDelivery.NewSuggestionHandler(suggestionUsecaseInstance),
		deviceHandler,
		ollamaSettings,
		cfg,
		log.Named("http"),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown failed", zap.Error(err))
	}

	syncScheduler.Stop()
	if err := queue.Shutdown(); err != nil {
		log.Error("Job queue shutdown failed", zap.Error(err))
	}
	if notifService != nil {
		if err := notifService.Close(); err != nil {
			log.Warn("Pub/Sub client close failed", zap.Error(err))
		}
	}
}

// startNotifications connects to Pub/Sub, asks Gmail to publish inbox changes
// to the topic and starts receiving them. Failures only disable push sync.
func startNotifications(ctx context.Context, cfg *config.Config, mail mailUsecase.MailUsecase, log *zap.Logger) *notification.Service {
	// Extract short topic name from full resource name if necessary
	topicName := cfg.GooglePubSubTopic
	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}
	if topicName == "" {
		topicName = "gmail-updates"
	}

	svc, err := notification.NewService(ctx, cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, mail, log.Named("pubsub"))
	if err != nil {
		log.Error("Failed to initialize notification service", zap.Error(err))
		return nil
	}

	if historyID, err := mail.Watch(ctx, svc.TopicPath()); err != nil {
		log.Warn("Gmail watch not registered", zap.Error(err))
	} else {
		log.Info("Gmail watch registered", zap.Uint64("history_id", historyID))
	}

	go svc.Start(ctx)
	return svc
}
