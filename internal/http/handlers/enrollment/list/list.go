// Package list реализует HTTP-обработчик списка записей участника.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/maka255-beep/workshop-registry/internal/http/response"
	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс списка записей.
type Service interface {
	ListByPerson(ctx context.Context, personID string) ([]*models.Subscription, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Записи участника
// @Description Возвращает все записи участника во всех статусах, включая возвращённые.
// @Tags Enrollments
// @Produce  json
// @Param id path string true "ID участника (UUID)"
// @Success 200 {object} map[string]any "Список записей"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /persons/{id}/enrollments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		log.Error("invalid id format", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	res, err := h.service.ListByPerson(r.Context(), id)
	if err != nil {
		log.Error("failed to list enrollments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list"))
		return
	}

	log.Info("list enrollments", "count", len(res))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count":    len(res),
		"subscriptions": res,
	}))
}
