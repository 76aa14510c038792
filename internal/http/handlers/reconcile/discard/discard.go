// Package discard реализует HTTP-обработчик закрытия сессии сверки
// без фиксации. База участников при этом не меняется.
package discard

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
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
)

type Handler struct {
	log    *slog.Logger
	engine Engine
}

// Engine описывает интерфейс закрытия сессии.
type Engine interface {
	Discard(ctx context.Context, batchID string) error
}

func New(log *slog.Logger, engine Engine) *Handler {
	return &Handler{
		log:    log,
		engine: engine,
	}
}

// ServeHTTP godoc
// @Summary Закрыть сессию без фиксации
// @Description Удаляет поставленную партию. Никакие данные участников не меняются.
// @Tags Reconcile
// @Produce  json
// @Param id path string true "ID партии (UUID)"
// @Success 200 {object} map[string]any "Сессия закрыта"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Партия не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /reconcile/batches/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconcile.discard"

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

	if err := h.engine.Discard(r.Context(), id); err != nil {
		if errors.Is(err, reconcile.ErrBatchNotFound) {
			log.Error("batch not found", slog.String("batch_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("batch not found"))
			return
		}
		log.Error("failed to discard batch", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to discard batch"))
		return
	}

	log.Info("success to discard batch", slog.String("batch_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"batch_id": id,
	}))
}
