// Package workshopregistry предоставляет сборку и маршруты сервиса регистрации.
package workshopregistry

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	enrollapprove "github.com/maka255-beep/workshop-registry/internal/http/handlers/enrollment/approve"
	enrollcreate "github.com/maka255-beep/workshop-registry/internal/http/handlers/enrollment/create"
	enrolllist "github.com/maka255-beep/workshop-registry/internal/http/handlers/enrollment/list"
	enrollrefund "github.com/maka255-beep/workshop-registry/internal/http/handlers/enrollment/refund"
	enrolltransfer "github.com/maka255-beep/workshop-registry/internal/http/handlers/enrollment/transfer"
	"github.com/maka255-beep/workshop-registry/internal/http/handlers/health"
	personlist "github.com/maka255-beep/workshop-registry/internal/http/handlers/person/list"
	personread "github.com/maka255-beep/workshop-registry/internal/http/handlers/person/read"
	personregister "github.com/maka255-beep/workshop-registry/internal/http/handlers/person/register"
	personremove "github.com/maka255-beep/workshop-registry/internal/http/handlers/person/remove"
	personresolve "github.com/maka255-beep/workshop-registry/internal/http/handlers/person/resolve"
	reconcilecommit "github.com/maka255-beep/workshop-registry/internal/http/handlers/reconcile/commit"
	reconcilediscard "github.com/maka255-beep/workshop-registry/internal/http/handlers/reconcile/discard"
	reconcileread "github.com/maka255-beep/workshop-registry/internal/http/handlers/reconcile/read"
	reconcileselectall "github.com/maka255-beep/workshop-registry/internal/http/handlers/reconcile/selectall"
	reconcilestage "github.com/maka255-beep/workshop-registry/internal/http/handlers/reconcile/stage"
	reconciletoggle "github.com/maka255-beep/workshop-registry/internal/http/handlers/reconcile/toggle"
	"github.com/maka255-beep/workshop-registry/internal/http/middlewarectx"
	"github.com/maka255-beep/workshop-registry/internal/services/enrollment"
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	identityService *identity.Service,
	enrollmentService *enrollment.Service,
	reconcileEngine *reconcile.Engine) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, 20, 40))

		r.Post("/persons", personregister.New(logger, identityService).ServeHTTP)
		r.Get("/persons", personlist.New(logger, identityService).ServeHTTP)
		r.Post("/persons/resolve", personresolve.New(logger, identityService).ServeHTTP)
		r.Get("/persons/{id}", personread.New(logger, identityService).ServeHTTP)
		r.Delete("/persons/{id}", personremove.New(logger, identityService).ServeHTTP)
		r.Get("/persons/{id}/enrollments", enrolllist.New(logger, enrollmentService).ServeHTTP)

		r.Post("/enrollments", enrollcreate.New(logger, enrollmentService).ServeHTTP)
		r.Post("/enrollments/transfer", enrolltransfer.New(logger, enrollmentService).ServeHTTP)
		r.Post("/enrollments/{id}/approve", enrollapprove.New(logger, enrollmentService).ServeHTTP)
		r.Post("/enrollments/{id}/refund", enrollrefund.New(logger, enrollmentService).ServeHTTP)

		r.Post("/reconcile/batches", reconcilestage.New(logger, reconcileEngine).ServeHTTP)
		r.Get("/reconcile/batches/{id}", reconcileread.New(logger, reconcileEngine).ServeHTTP)
		r.Delete("/reconcile/batches/{id}", reconcilediscard.New(logger, reconcileEngine).ServeHTTP)
		r.Patch("/reconcile/batches/{id}/rows", reconciletoggle.New(logger, reconcileEngine).ServeHTTP)
		r.Post("/reconcile/batches/{id}/rows/select-all", reconcileselectall.New(logger, reconcileEngine).ServeHTTP)
		r.Post("/reconcile/batches/{id}/commit", reconcilecommit.New(logger, reconcileEngine).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
