// Package create реализует HTTP-обработчик создания записи на воркшоп.
//
// Handler принимает JSON-запрос с данными записи, валидирует их, проверяет
// даты и способ оплаты, вызывает бизнес-логику и возвращает созданную запись.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/maka255-beep/workshop-registry/internal/http/response"
	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/services/enrollment"
)

// Handler управляет HTTP-запросами на создание записей.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис жизненного цикла записей
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания записи.
type Service interface {
	Enroll(ctx context.Context, personID string, spec models.EnrollmentSpec) (*models.Subscription, error)
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
// @Summary Записать участника на воркшоп
// @Description Создает действующую запись. Любая невозвращённая запись на тот же воркшоп, включая неподтверждённую, блокирует повторную.
// @Tags Enrollments
// @Accept  json
// @Produce  json
// @Param request body models.CreateEnrollmentRequest true "Данные записи"
// @Success 200 {object} map[string]any "Созданная запись"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или даты"
// @Failure 404 {object} response.ErrorResponse "Участник не найден"
// @Failure 409 {object} response.ErrorResponse "Уже записан на воркшоп"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /enrollments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CreateEnrollmentRequest
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

	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		log.Error("invalid payment method", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payment method"))
		return
	}
	activation, err := time.Parse("02-01-2006", req.ActivationDate)
	if err != nil {
		log.Error("invalid activation date", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid activation date, expected 02-01-2006"))
		return
	}
	expiry, err := time.Parse("02-01-2006", req.ExpiryDate)
	if err != nil {
		log.Error("invalid expiry date", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid expiry date, expected 02-01-2006"))
		return
	}

	sub, err := h.service.Enroll(r.Context(), req.PersonID, models.EnrollmentSpec{
		WorkshopID:     req.WorkshopID,
		PackageID:      req.PackageID,
		IsApproved:     req.IsApproved,
		PricePaid:      req.PricePaid,
		PaymentMethod:  method,
		ActivationDate: activation,
		ExpiryDate:     expiry,
	})
	if err != nil {
		switch {
		case errors.Is(err, enrollment.ErrPersonNotFound):
			log.Error("person not found", slog.String("person_id", req.PersonID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("person not found"))
		case errors.Is(err, enrollment.ErrAlreadyEnrolled):
			log.Error("person already enrolled", slog.String("person_id", req.PersonID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("person already enrolled in workshop"))
		default:
			log.Error("failed to create enrollment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create enrollment"))
		}
		return
	}

	log.Info("success to create enrollment", slog.String("subscription_id", sub.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
	}))
}
