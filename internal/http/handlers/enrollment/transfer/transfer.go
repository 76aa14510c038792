// Package transfer реализует HTTP-обработчик переноса записи.
//
// Исходная запись помечается перенесённой, взамен атомарно создаётся новая
// действующая запись на указанного участника и воркшоп с сохранением
// платёжных атрибутов.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/maka255-beep/workshop-registry/internal/http/response"
	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/services/enrollment"
)

// Handler управляет HTTP-запросами на перенос записей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики переноса записи.
type Service interface {
	Transfer(ctx context.Context, req models.TransferEnrollmentRequest) (*models.Subscription, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Перенести запись
// @Description Помечает исходную запись перенесённой и создаёт новую действующую на целевого участника и воркшоп.
// @Tags Enrollments
// @Accept  json
// @Produce  json
// @Param request body models.TransferEnrollmentRequest true "Параметры переноса"
// @Success 200 {object} map[string]any "Новая запись"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Запись или участник не найдены"
// @Failure 409 {object} response.ErrorResponse "Целевой участник уже записан"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /enrollments/transfer [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.transfer"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.TransferEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	sub, err := h.service.Transfer(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, enrollment.ErrSubscriptionNotFound):
			log.Error("subscription not found", slog.String("subscription_id", req.SubscriptionID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("subscription not found"))
		case errors.Is(err, enrollment.ErrPersonNotFound):
			log.Error("person not found", slog.String("person_id", req.PersonID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("person not found"))
		case errors.Is(err, enrollment.ErrAlreadyEnrolled):
			log.Error("target person already enrolled", slog.String("person_id", req.PersonID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("person already enrolled in workshop"))
		default:
			log.Error("failed to transfer enrollment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not transfer enrollment"))
		}
		return
	}

	log.Info("success to transfer enrollment",
		slog.String("source_id", req.SubscriptionID),
		slog.String("target_id", sub.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
	}))
}
