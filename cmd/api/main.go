package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/jobflick/backend/internal/admin"
	"github.com/jobflick/backend/internal/auth"
	"github.com/jobflick/backend/internal/config"
	"github.com/jobflick/backend/internal/db"
	"github.com/jobflick/backend/internal/metrics"
	"github.com/jobflick/backend/internal/notifications"
	"github.com/jobflick/backend/internal/payouts"
	"github.com/jobflick/backend/internal/router"
	"github.com/jobflick/backend/internal/subscriptions"
	"github.com/jobflick/backend/internal/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := subscriptions.ValidatePlans(); err != nil {
		slog.Error("Invalid plan table", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database")

	if err := db.RunMigrations(ctx, pool); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Schema migrations applied")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	metrics.Init()

	// Notification delivery worker
	notifRepo := notifications.NewRepository(pool)
	workers := river.NewWorkers()
	river.AddWorker(workers, notifications.NewNotifyWorker(notifRepo, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.NotifyWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	notifSvc := notifications.NewService(func(ctx context.Context, tx pgx.Tx, args notifications.NotifyArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}, logger)

	// Wallet engine
	walletRepo := wallet.NewRepository(pool)
	walletSvc := wallet.NewService(walletRepo, cfg.SignupBonus)

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, walletRepo, cfg.JWTSecret, cfg.SignupBonus)

	// Subscriptions, payouts, admin settlement
	subsRepo := subscriptions.NewRepository(pool)
	subsSvc := subscriptions.NewService(subsRepo, walletSvc, notifSvc)
	payoutSvc := payouts.NewService(walletRepo, walletSvc, notifSvc)
	adminSvc := admin.NewService(walletRepo, walletSvc, notifSvc, walletRepo, subsRepo)

	handler := router.New(router.Handlers{
		Auth:          auth.NewHandler(authSvc, logger),
		Wallet:        wallet.NewHandler(walletSvc, logger),
		Payouts:       payouts.NewHandler(payoutSvc, logger),
		Subscriptions: subscriptions.NewHandler(subsSvc, subsRepo, logger),
		Notifications: notifications.NewHandler(notifRepo, logger),
		Admin:         admin.NewHandler(adminSvc, logger),
	}, authSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(handler)

	// Start River client (delivers notifications)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr, "env", cfg.Env)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
