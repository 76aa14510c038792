// Package refund реализует HTTP-обработчик возврата записи.
// Возврат терминален и идемпотентен; возвращённая запись освобождает
// участнику место для повторной записи на тот же воркшоп.
package refund

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/maka255-beep/workshop-registry/internal/http/response"
	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/services/enrollment"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс возврата записи.
type Service interface {
	Refund(ctx context.Context, id string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Вернуть запись
// @Description Переводит запись в терминальный статус refunded. Повторный возврат — no-op.
// @Tags Enrollments
// @Produce  json
// @Param id path string true "ID записи (UUID)"
// @Success 200 {object} map[string]any "Возврат выполнен"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /enrollments/{id}/refund [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.refund"

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

	if err := h.service.Refund(r.Context(), id); err != nil {
		if errors.Is(err, enrollment.ErrSubscriptionNotFound) {
			log.Error("subscription not found", slog.String("subscription_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
			return
		}
		log.Error("failed to refund enrollment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to refund enrollment"))
		return
	}

	log.Info("success to refund enrollment", slog.String("subscription_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": id,
	}))
}
