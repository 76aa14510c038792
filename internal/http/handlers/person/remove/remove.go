// Package remove реализует HTTP-обработчик мягкого удаления участника.
// Удаление освобождает нормализованные email и телефон для повторного
// использования, сами данные остаются в хранилище.
package remove

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
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс мягкого удаления участника.
type Service interface {
	Remove(ctx context.Context, id string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить участника
// @Description Помечает участника удалённым и освобождает его контакты.
// @Tags Persons
// @Produce  json
// @Param id path string true "ID участника (UUID)"
// @Success 200 {object} map[string]any "Участник помечен удалённым"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Участник не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /persons/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.person.remove"

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

	if err := h.service.Remove(r.Context(), id); err != nil {
		if errors.Is(err, identity.ErrPersonNotFound) {
			log.Error("person not found", slog.String("person_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("person not found"))
			return
		}
		log.Error("failed to delete person", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to delete person"))
		return
	}

	log.Info("success to delete person", slog.String("person_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"person_id": id,
	}))
}
