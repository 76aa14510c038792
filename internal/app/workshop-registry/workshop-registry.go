package workshopregistry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/maka255-beep/workshop-registry/internal/cache"
	"github.com/maka255-beep/workshop-registry/internal/config"
	"github.com/maka255-beep/workshop-registry/internal/migrations"
	"github.com/maka255-beep/workshop-registry/internal/rabbitmq"
	"github.com/maka255-beep/workshop-registry/internal/services/enrollment"
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
	"github.com/maka255-beep/workshop-registry/internal/storage/repository"
)

// App собирает зависимости сервиса регистрации: хранилище, кэш сессий,
// издатель событий, доменные сервисы и HTTP-сервер.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New инициализирует все зависимости и возвращает готовое приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}
	batchStore := cache.NewBatchStore(cacheRedis)

	conn, err := rabbitmq.Connect(cfg.RabbitMQConnection, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	identityService := identity.New(db, logger)
	enrollmentService := enrollment.New(db, publisher, logger)
	reconcileEngine := reconcile.New(identityService, enrollmentService, db,
		batchStore, publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, identityService, enrollmentService, reconcileEngine)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.db.DB.Close()
		return err
	}
}
