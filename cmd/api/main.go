package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lumina-estetica/citabot/cmd/mainconfig"
	"github.com/lumina-estetica/citabot/internal/api/router"
	"github.com/lumina-estetica/citabot/internal/appointments"
	"github.com/lumina-estetica/citabot/internal/calendar"
	"github.com/lumina-estetica/citabot/internal/channels/whatsapp"
	"github.com/lumina-estetica/citabot/internal/clinic"
	appconfig "github.com/lumina-estetica/citabot/internal/config"
	"github.com/lumina-estetica/citabot/internal/conversation"
	"github.com/lumina-estetica/citabot/internal/observability/metrics"
	"github.com/lumina-estetica/citabot/internal/webchat"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting citabot API server", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()

	// Redis backs the clinic config and the primary session store.
	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	clinicStore := clinic.NewStore(redisClient)

	// Postgres: pgx pool for booking records, database/sql for transcripts.
	var (
		transcriptDB *sql.DB
		bookingRepo  *appointments.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		bookingRepo = appointments.NewRepository(pool)

		transcriptDB, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open transcript db", "error", err)
			os.Exit(1)
		}
		defer func() { _ = transcriptDB.Close() }()
	} else {
		logger.Warn("DATABASE_URL not set, booking records and transcripts disabled")
	}

	registry := prometheus.NewRegistry()
	conversationMetrics := metrics.NewConversationMetrics(registry)

	calendarClient := calendar.NewClient(cfg.CalendarAPIURL, cfg.GatewayTimeout, conversationMetrics, logger)
	availability := calendar.NewGateway(calendarClient)

	appointmentsClient := appointments.NewClient(cfg.AppointmentsAPIURL, cfg.GatewayTimeout, conversationMetrics, logger)
	var recorder appointments.Recorder
	if bookingRepo != nil {
		recorder = bookingRepo
	}
	bookingService := appointments.NewService(appointmentsClient, availability, recorder, logger)

	var classifier conversation.Classifier
	if cfg.GeminiAPIKey != "" {
		llm, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = llm.Close() }()
		classifier = conversation.NewFallbackClassifier(llm, conversationMetrics, logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set, AI fallback classifier disabled")
	}

	sessionStore := conversation.NewTwoTierSessionStore(
		conversation.NewRedisSessionStore(redisClient, logger), logger)

	machine := conversation.NewMachine(availability, bookingService, classifier, logger)
	transcripts := conversation.NewTranscriptStore(transcriptDB, logger)
	engine := conversation.NewEngine(sessionStore, machine, clinicStore, transcripts, conversationMetrics, logger)

	// Queue-backed dispatcher: in-memory for development, FIFO SQS keyed by
	// phone in production.
	var queue conversation.Dispatcher
	if cfg.UseMemoryQueue {
		queue = conversation.NewOrchestrator(engine, conversation.NewMemoryQueue(256), logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sqsQueue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
		queue = conversation.NewOrchestrator(engine, sqsQueue, logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
	}

	// Push fallback-tier sessions back to Redis after outages.
	reconcileCtx, stopReconcile := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-reconcileCtx.Done():
				return
			case <-ticker.C:
				sessionStore.Reconcile(reconcileCtx)
			}
		}
	}()

	whatsappAdapter := whatsapp.NewAdapter(
		cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneID,
		cfg.WhatsAppAppSecret, cfg.WhatsAppVerifyToken,
		queue, logger,
	)
	webchatHandler := webchat.NewHandler(queue, logger)
	conversationHandler := conversation.NewHandler(queue, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversationHandler,
		WhatsAppAdapter:     whatsappAdapter,
		WebchatHandler:      webchatHandler,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		WebhookRateLimit:    20,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopReconcile()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
