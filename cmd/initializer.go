package main

import (
	"database/sql"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"qyzmetBack/internal/config"
	"qyzmetBack/internal/handlers"
	"qyzmetBack/internal/payments"
	"qyzmetBack/internal/push"
	"qyzmetBack/internal/repositories"
	"qyzmetBack/internal/services"
	"qyzmetBack/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	db       *sql.DB

	userRepo *repositories.UserRepository

	jobHandler          *handlers.JobHandler
	visitHandler        *handlers.VisitHandler
	invoiceHandler      *handlers.InvoiceHandler
	payoutHandler       *handlers.PayoutHandler
	rescheduleHandler   *handlers.RescheduleHandler
	notificationHandler *handlers.NotificationHandler
	userHandler         *handlers.UserHandler
	webhookHandler      *handlers.PaymentWebhookHandler

	outboxService     *services.OutboxDispatcher
	payoutService     *services.PayoutService
	rescheduleService *services.RescheduleService

	notifier *services.Notifier

	jwtSigningKey string
	wsManager     *WebSocketManager
}

func initializeApp(db *sql.DB, cfg config.Config, pushSender *push.FCMSender, errorLog, infoLog *log.Logger) *application {
	structured := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Repositories
	jobRepo := &repositories.JobRepository{DB: db}
	invoiceRepo := &repositories.InvoiceRepository{DB: db}
	payoutRepo := &repositories.PayoutRepository{DB: db}
	billingRepo := &repositories.BillingRepository{DB: db, Redis: redisClient}
	rescheduleRepo := &repositories.RescheduleRepository{DB: db}
	outboxRepo := &repositories.OutboxRepository{DB: db}
	messageRepo := &repositories.MessageRepository{DB: db}
	notificationRepo := &repositories.NotificationRepository{DB: db}
	userRepo := &repositories.UserRepository{DB: db}

	rail, err := payments.NewStripeRail(payments.StripeConfig{
		SecretKey: cfg.Stripe.SecretKey,
		Currency:  cfg.Stripe.Currency,
		Logger:    structured,
	})
	if err != nil {
		errorLog.Fatalf("stripe rail: %v", err)
	}

	var receipts services.ReceiptArchiver
	if cfg.S3.Bucket != "" {
		storage, err := utils.NewReceiptStorage(utils.S3Config{
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
		})
		if err != nil {
			errorLog.Printf("receipt storage disabled: %v", err)
		} else {
			receipts = storage
		}
	}

	tokenManager, err := utils.NewManager(cfg.JWT.SigningKey)
	if err != nil {
		errorLog.Fatalf("token manager: %v", err)
	}

	// Services
	jobStateService := &services.JobStateService{Jobs: jobRepo}
	visitAuthService := &services.VisitAuthorizationService{
		Jobs:    jobRepo,
		Billing: billingRepo,
		Users:   userRepo,
		Rail:    rail,
		Logger:  structured,
	}
	settlementService := &services.VisitSettlementService{
		Jobs:   jobRepo,
		Rail:   rail,
		Outbox: outboxRepo,
		Logger: structured,
	}
	payoutService := &services.PayoutService{
		Jobs:     jobRepo,
		Invoices: invoiceRepo,
		Payouts:  payoutRepo,
		Billing:  billingRepo,
		Outbox:   outboxRepo,
		Rail:     rail,
		Receipts: receipts,
		Logger:   structured,
	}
	completionService := &services.CompletionService{
		Jobs:     jobRepo,
		Invoices: invoiceRepo,
		Payouts:  payoutService,
		Logger:   structured,
	}
	invoiceService := &services.InvoiceService{
		Jobs:           jobRepo,
		Invoices:       invoiceRepo,
		Billing:        billingRepo,
		Users:          userRepo,
		Outbox:         outboxRepo,
		Rail:           rail,
		Logger:         structured,
		CommissionRate: cfg.Payments.CommissionRate,
	}
	rescheduleService := &services.RescheduleService{
		Jobs:        jobRepo,
		Reschedules: rescheduleRepo,
		JobState:    jobStateService,
		Outbox:      outboxRepo,
		Logger:      structured,
	}
	userService := &services.UserService{Users: userRepo, Tokens: tokenManager}

	app := &application{
		errorLog: errorLog,
		infoLog:  infoLog,
		db:       db,
		userRepo: userRepo,

		jobHandler:          &handlers.JobHandler{JobState: jobStateService, Completion: completionService},
		visitHandler:        &handlers.VisitHandler{Authorization: visitAuthService, Settlement: settlementService},
		invoiceHandler:      &handlers.InvoiceHandler{Invoices: invoiceService},
		payoutHandler:       &handlers.PayoutHandler{Payouts: payoutService},
		rescheduleHandler:   &handlers.RescheduleHandler{Reschedules: rescheduleService},
		notificationHandler: &handlers.NotificationHandler{Notifications: notificationRepo, Messages: messageRepo},
		userHandler:         &handlers.UserHandler{Users: userService},
		webhookHandler: &handlers.PaymentWebhookHandler{
			Invoices:      invoiceService,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Logger:        structured,
		},

		payoutService:     payoutService,
		rescheduleService: rescheduleService,

		jwtSigningKey: cfg.JWT.SigningKey,
	}

	notifier := &services.Notifier{
		Messages:      messageRepo,
		Notifications: notificationRepo,
		Sockets:       nil, // set after the websocket manager is created
		Logger:        structured,
	}
	if pushSender != nil {
		notifier.Push = pushSender
	}
	app.outboxService = &services.OutboxDispatcher{
		Outbox:   outboxRepo,
		Notifier: notifier,
		Logger:   structured,
	}
	app.notifier = notifier

	return app
}
