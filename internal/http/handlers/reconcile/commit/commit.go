// Package commit реализует HTTP-обработчик фиксации партии сверки.
//
// Каждая выбранная строка перепроверяется против живой базы в момент
// фиксации; неудача одной строки не прерывает остальные. Ответ — построчный
// отчёт с количеством зафиксированных, отклонённых и пропущенных строк.
package commit

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
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
)

// Handler управляет HTTP-запросами на фиксацию партий.
type Handler struct {
	log    *slog.Logger
	engine Engine
}

// Engine описывает интерфейс фиксации партии.
type Engine interface {
	Commit(ctx context.Context, batchID string) (*models.CommitReport, error)
}

// New создает новый Handler с переданными логгером и движком.
func New(log *slog.Logger, engine Engine) *Handler {
	return &Handler{
		log:    log,
		engine: engine,
	}
}

// ServeHTTP godoc
// @Summary Зафиксировать партию
// @Description Фиксирует выбранные строки с повторной проверкой каждой против живой базы. Частичный успех допустим, сессия после фиксации закрывается.
// @Tags Reconcile
// @Produce  json
// @Param id path string true "ID партии (UUID)"
// @Success 200 {object} map[string]any "Построчный отчёт фиксации"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Партия не найдена или истекла"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /reconcile/batches/{id}/commit [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconcile.commit"

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

	report, err := h.engine.Commit(r.Context(), id)
	if err != nil {
		if errors.Is(err, reconcile.ErrBatchNotFound) {
			log.Error("batch not found", slog.String("batch_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("batch not found"))
			return
		}
		log.Error("failed to commit batch", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to commit batch"))
		return
	}

	log.Info("success to commit batch",
		slog.String("batch_id", id),
		slog.Int("committed", report.Committed),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"report": report,
	}))
}
