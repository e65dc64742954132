package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"

	"github.com/xavierca1/followwise/internal/config"
	"github.com/xavierca1/followwise/internal/entity"
	"github.com/xavierca1/followwise/internal/infra/database"
	"github.com/xavierca1/followwise/internal/infra/http/handlers"
	"github.com/xavierca1/followwise/internal/infra/integration/openai"
	"github.com/xavierca1/followwise/internal/infra/integration/templates"
	"github.com/xavierca1/followwise/internal/infra/mail"
	"github.com/xavierca1/followwise/internal/infra/memory"
	"github.com/xavierca1/followwise/internal/infra/queue"
	"github.com/xavierca1/followwise/internal/infra/worker"
	"github.com/xavierca1/followwise/internal/logger"
	"github.com/xavierca1/followwise/internal/usecase"
)

func main() {
	log := logger.New()

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Stores
	var (
		db       *sql.DB
		leadRepo entity.LeadRepository
		ledger   entity.SentEmailRepository
	)
	if cfg.DatabaseURL != "" {
		db, err = database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			return err
		}
		leadRepo = database.NewLeadRepository(db)
		ledger = database.NewSentEmailRepository(db)
		log.Info("using postgres stores")
	} else {
		leadRepo = memory.NewLeadRepository()
		ledger = memory.NewSentEmailRepository()
		log.Warn("DATABASE_URL not set; using in-memory stores")
	}

	// 2. Capabilities
	var generator usecase.FollowupGenerator
	if cfg.AIProvider == config.AIProviderOpenAI {
		generator, err = openai.NewClient(openai.Settings{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return err
		}
	} else {
		generator = templates.NewGenerator("")
	}

	var delivery usecase.EmailDelivery
	if cfg.MailConfigured() {
		delivery = mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, "FollowWise")
	} else {
		delivery = mail.NewLogSender(log)
		log.Warn("MAIL_HOST not set; follow-ups are logged, not sent")
	}

	// 3. Use cases
	cache := usecase.NewSuggestionCache()
	contacts := usecase.NewRecordLeadContactUseCase(leadRepo)

	var (
		rabbitConn *amqp091.Connection
		publisher  usecase.EventPublisher
	)
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		rabbitConn = rabbit.Conn
		publisher = queue.NewProducer(rabbit.Ch)

		w := queue.NewWorker(rabbit.Ch, contacts, log)
		go func() {
			if err := w.Start(ctx, queue.QueueName); err != nil {
				log.Error("lead contact worker failed", "error", err)
			}
		}()
	}

	generateUC := usecase.NewGenerateFollowupsUseCase(leadRepo, generator, cache, log)
	sendUC := usecase.NewSendFollowupUseCase(leadRepo, ledger, delivery, cache, publisher, contacts, log)
	leadService := usecase.NewLeadService(leadRepo, cache, log, generateUC, cache)

	// 4. Background jobs
	limiter := handlers.NewRateLimiter(cfg.GenerateRateLimit, time.Minute)

	scheduler := cron.New()
	janitor := worker.NewSuggestionJanitor(cache, cfg.SuggestionTTL, log)
	if err := janitor.Schedule(scheduler, cfg.JanitorSchedule); err != nil {
		return err
	}
	if _, err := scheduler.AddFunc("@every 10m", limiter.Cleanup); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// 5. Router
	router := handlers.NewRouter(handlers.Routes{
		Leads: handlers.NewLeadHandler(leadService, log),
		Followups: handlers.NewFollowupHandler(
			generateUC,
			usecase.NewGetFollowupsUseCase(leadRepo, cache),
			sendUC,
			limiter,
			log,
		),
		SentEmails: handlers.NewSentEmailHandler(
			usecase.NewListSentEmailsUseCase(ledger, leadRepo),
			usecase.NewLogSentEmailUseCase(ledger, leadRepo, contacts, log),
			log,
		),
		Analytics:   handlers.NewAnalyticsHandler(usecase.NewGetAnalyticsUseCase(leadRepo, ledger), log),
		Health:      handlers.NewHealthHandler(db, rabbitConn, cfg.AIProvider, delivery.Provider()),
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("followwise api listening", "port", cfg.HTTPPort, "ai", cfg.AIProvider, "mail", delivery.Provider())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
