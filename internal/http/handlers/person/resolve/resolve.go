// Package resolve реализует HTTP-обработчик разрешения личности без побочных
// эффектов: по паре email+телефон возвращает отношение к базе участников.
package resolve

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/maka255-beep/workshop-registry/internal/http/response"
	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
)

// Request — пара контактов для разрешения.
type Request struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс разрешения личности.
type Service interface {
	Resolve(ctx context.Context, email, phone string) (identity.Match, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Разрешить личность
// @Description Классифицирует пару email+телефон: свободна, известный участник, конфликт или занятый ключ. Состояние не меняется.
// @Tags Persons
// @Accept  json
// @Produce  json
// @Param request body Request true "Контакты для разрешения"
// @Success 200 {object} map[string]any "Отношение и совпадения"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /persons/resolve [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.person.resolve"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	match, err := h.service.Resolve(r.Context(), req.Email, req.Phone)
	if err != nil {
		log.Error("failed to resolve identity", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to resolve identity"))
		return
	}

	log.Info("identity resolved", slog.String("relation", match.Relation().String()))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"relation":    match.Relation().String(),
		"email_match": match.EmailMatch,
		"phone_match": match.PhoneMatch,
	}))
}
