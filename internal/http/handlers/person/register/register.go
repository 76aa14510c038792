// Package register реализует HTTP-обработчик регистрации участника.
//
// Handler принимает JSON-запрос с именем, email и телефоном, валидирует их,
// разрешает личность через сервис и возвращает участника. Если контакты уже
// принадлежат существующему участнику, возвращается он же без создания дубля.
package register

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
	"github.com/maka255-beep/workshop-registry/internal/services/identity"
)

// Handler управляет HTTP-запросами на регистрацию участников.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис разрешения личности
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики регистрации участника.
type Service interface {
	Register(ctx context.Context, req models.RegisterPersonRequest) (*models.Person, bool, error)
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
// @Summary Зарегистрировать участника
// @Description Регистрирует участника по имени, email и телефону. Если контакты принадлежат существующему участнику, возвращает его без создания дубля.
// @Tags Persons
// @Accept  json
// @Produce  json
// @Param request body models.RegisterPersonRequest true "Данные участника"
// @Success 200 {object} map[string]any "Участник создан или найден"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Контакты заняты другим участником"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /persons [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.person.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.RegisterPersonRequest
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

	person, created, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken),
			errors.Is(err, identity.ErrPhoneTaken),
			errors.Is(err, identity.ErrIdentityConflict):
			log.Error("identity conflict", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(err.Error()))
		default:
			log.Error("failed to register person", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not register person"))
		}
		return
	}

	log.Info("success to register person", slog.String("person_id", person.ID), slog.Bool("created", created))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"person":  person,
		"created": created,
	}))
}
