// Package toggle реализует HTTP-обработчик переключения выбора строки.
// Валидные строки можно выбирать и снимать; ошибочные строки выбрать нельзя.
package toggle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/maka255-beep/workshop-registry/internal/http/response"
	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
)

// Request — номер строки и желаемое состояние выбора.
type Request struct {
	RowNumber int  `json:"row_number" validate:"required,gt=0"`
	Selected  bool `json:"selected"`
}

type Handler struct {
	log      *slog.Logger
	engine   Engine
	validate *validator.Validate
}

// Engine описывает интерфейс переключения выбора строки.
type Engine interface {
	Toggle(ctx context.Context, batchID string, rowNumber int, selected bool) (*reconcile.Session, error)
}

func New(log *slog.Logger, engine Engine) *Handler {
	return &Handler{
		log:      log,
		engine:   engine,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Переключить выбор строки
// @Description Включает или исключает строку из будущей фиксации. Строку с ошибочной меткой включить нельзя.
// @Tags Reconcile
// @Accept  json
// @Produce  json
// @Param id path string true "ID партии (UUID)"
// @Param request body Request true "Номер строки и состояние выбора"
// @Success 200 {object} map[string]any "Обновлённая сессия"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Партия или строка не найдены"
// @Failure 409 {object} response.ErrorResponse "Строка не подлежит выбору"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /reconcile/batches/{id}/rows [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconcile.toggle"

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

	session, err := h.engine.Toggle(r.Context(), id, req.RowNumber, req.Selected)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrBatchNotFound):
			log.Error("batch not found", slog.String("batch_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("batch not found"))
		case errors.Is(err, reconcile.ErrRowNotFound):
			log.Error("row not found", slog.Int("row_number", req.RowNumber))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("row not found"))
		case errors.Is(err, reconcile.ErrRowNotSelectable):
			log.Error("row not selectable", slog.Int("row_number", req.RowNumber))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("row with error label cannot be selected"))
		default:
			log.Error("failed to toggle row", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to toggle row"))
		}
		return
	}

	log.Info("success to toggle row",
		slog.String("batch_id", id),
		slog.Int("row_number", req.RowNumber),
		slog.Bool("selected", req.Selected))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}
