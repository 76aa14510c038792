// Package stage реализует HTTP-обработчик постановки партии импорта.
//
// Handler принимает multipart-форму с CSV-файлом и контекстом партии
// (воркшоп, пакет, платёжные атрибуты), классифицирует строки против живой
// базы участников и возвращает сессию с размеченными строками.
package stage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/maka255-beep/workshop-registry/internal/http/response"
	"github.com/maka255-beep/workshop-registry/internal/lib/sl"
	"github.com/maka255-beep/workshop-registry/internal/lib/spreadsheet"
	"github.com/maka255-beep/workshop-registry/internal/models"
	"github.com/maka255-beep/workshop-registry/internal/services/reconcile"
)

// Handler управляет HTTP-запросами на постановку партий сверки.
type Handler struct {
	log    *slog.Logger
	engine Engine
}

// Engine описывает интерфейс движка сверки для постановки партии.
type Engine interface {
	StageBatch(ctx context.Context, grid reconcile.Grid, bctx models.BatchContext) (*reconcile.Session, error)
}

// New создает новый Handler с переданными логгером и движком.
func New(log *slog.Logger, engine Engine) *Handler {
	return &Handler{
		log:    log,
		engine: engine,
	}
}

// ServeHTTP godoc
// @Summary Поставить партию импорта
// @Description Принимает CSV-файл и контекст партии, классифицирует строки и возвращает сессию сверки. Строки valid_* выбраны по умолчанию.
// @Tags Reconcile
// @Accept  multipart/form-data
// @Produce  json
// @Param file formData file true "CSV-файл со строками name/email/phone"
// @Param workshop_id formData int true "ID воркшопа"
// @Param package_id formData int false "ID пакета"
// @Param price_paid formData number true "Уплаченная сумма"
// @Param payment_method formData string true "Способ оплаты (bank|link|gift|credit|cash)"
// @Param activation_date formData string true "Дата начала доступа, 02-01-2006"
// @Param expiry_date formData string true "Дата конца доступа, 02-01-2006"
// @Success 200 {object} map[string]any "Поставленная сессия"
// @Failure 400 {object} response.ErrorResponse "Некорректная форма или файл"
// @Failure 422 {object} response.ErrorResponse "Обязательные колонки не найдены"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /reconcile/batches [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reconcile.stage"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := r.ParseMultipartForm(spreadsheet.MaxFileSize); err != nil {
		log.Error("failed to parse multipart form", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid multipart form"))
		return
	}

	bctx, err := parseBatchContext(r)
	if err != nil {
		log.Error("invalid batch context", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		log.Error("failed to read uploaded file", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("file is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(file, spreadsheet.MaxFileSize))
	if err != nil {
		log.Error("failed to read file body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read file"))
		return
	}
	log.Info("file uploaded", slog.String("filename", header.Filename), slog.Int("size", len(data)))

	grid, err := spreadsheet.ReadGrid(data)
	if err != nil {
		log.Error("failed to parse csv", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to parse csv file"))
		return
	}

	session, err := h.engine.StageBatch(r.Context(), grid, bctx)
	if err != nil {
		var colErr *reconcile.ColumnDetectionError
		if errors.As(err, &colErr) {
			log.Error("column detection failed", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(colErr.Error()))
			return
		}
		log.Error("failed to stage batch", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not stage batch"))
		return
	}

	log.Info("success to stage batch",
		slog.String("batch_id", session.ID),
		slog.Int("rows", len(session.Rows)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": session,
	}))
}

// parseBatchContext собирает контекст партии из полей multipart-формы.
func parseBatchContext(r *http.Request) (models.BatchContext, error) {
	workshopID, err := strconv.Atoi(r.FormValue("workshop_id"))
	if err != nil || workshopID <= 0 {
		return models.BatchContext{}, errors.New("invalid workshop_id")
	}

	var packageID *int
	if raw := r.FormValue("package_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return models.BatchContext{}, errors.New("invalid package_id")
		}
		packageID = &id
	}

	pricePaid, err := strconv.ParseFloat(r.FormValue("price_paid"), 64)
	if err != nil || pricePaid < 0 {
		return models.BatchContext{}, errors.New("invalid price_paid")
	}

	method, err := models.ParsePaymentMethod(r.FormValue("payment_method"))
	if err != nil {
		return models.BatchContext{}, errors.New("invalid payment_method")
	}

	activation, err := time.Parse("02-01-2006", r.FormValue("activation_date"))
	if err != nil {
		return models.BatchContext{}, errors.New("invalid activation_date, expected 02-01-2006")
	}
	expiry, err := time.Parse("02-01-2006", r.FormValue("expiry_date"))
	if err != nil {
		return models.BatchContext{}, errors.New("invalid expiry_date, expected 02-01-2006")
	}

	return models.BatchContext{
		WorkshopID:     workshopID,
		PackageID:      packageID,
		PricePaid:      pricePaid,
		PaymentMethod:  method,
		ActivationDate: activation,
		ExpiryDate:     expiry,
	}, nil
}
