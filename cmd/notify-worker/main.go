package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"smartexpense/internal/amqp"
	"smartexpense/internal/config"
	"smartexpense/internal/log"
	"smartexpense/internal/mail"
	"smartexpense/internal/storage"
	"smartexpense/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{
		Level:     log.LevelFromEnv(),
		Component: log.ComponentWorker,
	})
	log.SetDefault(logger)

	logger.Info("Starting notify-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notification worker")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Mail is optional; without SMTP settings events are consumed and dropped.
	var mailer worker.MailSender
	if cfg.MailEnabled() {
		port, err := strconv.Atoi(cfg.SMTPPort)
		if err != nil {
			logger.Error("Invalid SMTP_PORT", "error", err, "value", cfg.SMTPPort)
			os.Exit(1)
		}
		mailer = mail.New(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
		logger.Info("Mailer initialized", "host", cfg.SMTPHost, "from", cfg.SMTPFrom)
	} else {
		logger.Info("Mail disabled - missing SMTP settings")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := worker.NewNotifier(repo, mailer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifier.Run(gctx, amqpClient)
	})

	logger.Info("Consuming budget events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
