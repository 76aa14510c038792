// Package selectall реализует HTTP-обработчик массового выбора строк.
// Действие затрагивает только валидные строки, ошибочные остаются невыбранными.
package selectall

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/maka255-beep/workshop-registry/internal/http/response"
	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
)

// Request — желаемое состояние выбора для всех валидных строк.
type Request struct {
	Selected bool `json:"selected"`
}

type Handler struct {
	log    *slog.Logger
	engine Engine
}

// Engine описывает интерфейс массового выбора строк.
type Engine interface {
	SelectAll(ctx context.Context, batchID string, selected bool) (*reconcile.Session, error)
}

func New(log *slog.Logger, engine Engine) *Handler {
	return &Handler{
		log:    log,
		engine: engine,
	}
}

// ServeHTTP godoc
// @Summary Выбрать или снять все строки
// @Description Устанавливает состояние выбора всем валидным строкам партии разом.
// @Tags Reconcile
// @Accept  json
// @Produce  json
// @Param id path string true "ID партии (UUID)"
// @Param request body Request true "Состояние выбора"
// @Success 200 {object} map[string]any "Обновлённая сессия"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 404 {object} response.ErrorResponse "Партия не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /reconcile/batches/{id}/rows/select-all [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconcile.selectall"

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

	session, err := h.engine.SelectAll(r.Context(), id, req.Selected)
	if err != nil {
		if errors.Is(err, reconcile.ErrBatchNotFound) {
			log.Error("batch not found", slog.String("batch_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("batch not found"))
			return
		}
		log.Error("failed to select all rows", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to select all rows"))
		return
	}

	log.Info("success to select all rows",
		slog.String("batch_id", id),
		slog.Bool("selected", req.Selected))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}
