// Package read реализует HTTP-обработчик получения поставленной сессии сверки.
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
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
)

type Handler struct {
	log    *slog.Logger
	engine Engine
}

// Engine описывает интерфейс чтения сессии сверки.
type Engine interface {
	Get(ctx context.Context, batchID string) (*reconcile.Session, error)
}

func New(log *slog.Logger, engine Engine) *Handler {
	return &Handler{
		log:    log,
		engine: engine,
	}
}

// ServeHTTP godoc
// @Summary Получить сессию сверки
// @Description Возвращает поставленную партию с размеченными строками.
// @Tags Reconcile
// @Produce  json
// @Param id path string true "ID партии (UUID)"
// @Success 200 {object} map[string]any "Сессия сверки"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Партия не найдена или истекла"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /reconcile/batches/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconcile.read"

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

	session, err := h.engine.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, reconcile.ErrBatchNotFound) {
			log.Error("batch not found", slog.String("batch_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("batch not found"))
			return
		}
		log.Error("failed to read batch", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read batch"))
		return
	}

	log.Info("success to read batch", slog.String("batch_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}
