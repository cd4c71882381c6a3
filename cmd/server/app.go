package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskd/internal/api"
	"github.com/phrazzld/taskd/internal/config"
	"github.com/phrazzld/taskd/internal/notify"
	"github.com/phrazzld/taskd/internal/platform/avatar"
	"github.com/phrazzld/taskd/internal/platform/mail"
	"github.com/phrazzld/taskd/internal/platform/metrics"
	"github.com/phrazzld/taskd/internal/platform/postgres"
	"github.com/phrazzld/taskd/internal/service"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds the wired dependencies of a running server.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	db         *sql.DB
	dispatcher *notify.Dispatcher
	metrics    *metrics.Metrics
	router     http.Handler
}

// newApplication wires stores, services and the router on top of db. The
// mail dispatcher is created but not started.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "taskd"),
	)
	appMetrics := metrics.New(reg)

	userStore := postgres.NewPostgresUserStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)
	transactor := postgres.NewTransactor(db, userStore, taskStore)

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwt service: %w", err)
	}

	dispatcher := notify.NewDispatcher(
		notify.Config{QueueSize: cfg.Mail.QueueSize, WorkerCount: cfg.Mail.WorkerCount},
		mail.NewSender(cfg.Mail, logger),
		appMetrics,
		logger,
	)

	avatars := avatar.NewProcessor()
	userService, err := service.NewUserService(service.UserServiceDeps{
		Users:      userStore,
		Transactor: transactor,
		Hasher:     auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Tokens:     jwtService,
		Avatars:    avatars,
		Notifier:   dispatcher,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	taskService, err := service.NewTaskService(taskStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	router := api.NewRouter(api.RouterDeps{
		UserService:       userService,
		TaskService:       taskService,
		UserStore:         userStore,
		JWTService:        jwtService,
		Metrics:           appMetrics,
		AuthRatePerMinute: cfg.RateLimit.AuthRequestsPerMinute,
		MaxAvatarBytes:    avatars.MaxBytes(),
		Logger:            logger,
	})

	return &application{
		config:     cfg,
		logger:     logger,
		db:         db,
		dispatcher: dispatcher,
		metrics:    appMetrics,
		router:     router,
	}, nil
}

// cleanup drains pending mail and closes the database.
func (app *application) cleanup(ctx context.Context) {
	if err := app.dispatcher.Stop(ctx); err != nil {
		app.logger.Warn("mail queue not fully drained", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}
