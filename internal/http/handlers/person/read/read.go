// Package read реализует HTTP-обработчик получения участника по идентификатору.
package read

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
	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения участника.
type Service interface {
	Get(ctx context.Context, id string) (*models.Person, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить участника
// @Description Возвращает участника по идентификатору, включая помеченных удалёнными.
// @Tags Persons
// @Produce  json
// @Param id path string true "ID участника (UUID)"
// @Success 200 {object} map[string]any "Данные участника"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Участник не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /persons/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.person.read"

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

	person, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, identity.ErrPersonNotFound) {
			log.Error("person not found", slog.String("person_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("person not found"))
			return
		}
		log.Error("failed to read person", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read person"))
		return
	}

	log.Info("success to read person", slog.String("person_id", person.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"person": person,
	}))
}
