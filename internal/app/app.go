package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foodrescue/foodrescue/internal/config"
	"github.com/foodrescue/foodrescue/internal/db"
	"github.com/foodrescue/foodrescue/internal/relay"
	"github.com/foodrescue/foodrescue/internal/repository"
	"github.com/foodrescue/foodrescue/internal/scheduler"
	"github.com/foodrescue/foodrescue/internal/service"
	"github.com/foodrescue/foodrescue/internal/storage"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg              *config.Config
	DB               *sqlx.DB
	Relay            relay.Relay
	Notifier         *service.Notifier
	AuthService      *service.AuthService
	PostService      *service.PostService
	ClaimService     *service.ClaimService
	ExpiryService    *service.ExpiryService
	StatsService     *service.StatsService
	DigestService    *service.DigestService
	AnalyticsService *service.AnalyticsService
	Scheduler        *scheduler.Scheduler
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	postRepository := repository.NewPostRepository(database)
	fileRepository := repository.NewFileRepository(database)

	// Notification relay
	notificationRelay, err := relay.New(ctx, cfg)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize relay: %w", err)
	}

	// Storage is optional: without a bucket, photo uploads answer 503
	var fileService *service.FileService
	if cfg.StorageEnabled() {
		fileStorage, err := storage.New(ctx, cfg)
		if err != nil {
			_ = notificationRelay.Close()
			_ = db.Close(database)
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		fileService = service.NewFileService(fileRepository, fileStorage)
	} else {
		slog.Info("S3 storage not configured, photo uploads disabled")
	}

	loc := cfg.Location()

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
		loc,
	)
	notifier := service.NewNotifier(notificationRelay, emailService, userRepository, cfg.NotificationTimeout)
	authService := service.NewAuthService(
		userRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
	)
	postService := service.NewPostService(postRepository, fileService, nil)
	claimService := service.NewClaimService(postRepository, notifier, nil)
	expiryService := service.NewExpiryService(postRepository, nil)
	statsService := service.NewStatsService(postRepository, loc, nil)
	digestService := service.NewDigestService(userRepository, statsService, emailService)
	analyticsService := service.NewAnalyticsService(
		userRepository,
		postRepository,
		cfg.AnalyticsCacheSize,
		cfg.AnalyticsCacheTTL,
		loc,
		nil,
	)

	sched, err := scheduler.New(scheduler.Config{
		DigestSchedule: cfg.DigestSchedule,
		SweepSchedule:  cfg.SweepSchedule,
		Location:       loc,
	}, digestService, expiryService)
	if err != nil {
		_ = notificationRelay.Close()
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	return &App{
		Cfg:              cfg,
		DB:               database,
		Relay:            notificationRelay,
		Notifier:         notifier,
		AuthService:      authService,
		PostService:      postService,
		ClaimService:     claimService,
		ExpiryService:    expiryService,
		StatsService:     statsService,
		DigestService:    digestService,
		AnalyticsService: analyticsService,
		Scheduler:        sched,
	}, nil
}

// Close stops the scheduler, drains in-flight notifications, then releases the relay and database.
// ctx bounds the whole teardown.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.Scheduler != nil {
		errs = append(errs, a.Scheduler.Stop(ctx))
	}
	if a.Notifier != nil {
		err := a.Notifier.Wait(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("pending notifications: %w", err))
		}
	}
	if a.Relay != nil {
		errs = append(errs, a.Relay.Close())
	}
	if a.DB != nil {
		errs = append(errs, db.Close(a.DB))
	}

	return errors.Join(errs...)
}
