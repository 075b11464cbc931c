package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/database"
	"github.com/frederikoberm/german-regional-energy-prices-sub001/internal/models"
)

const defaultListLimit = 100

// nowFunc is swapped in tests to pin the default period.
var nowFunc = time.Now

// RecordStore is the record query surface the handlers need.
type RecordStore interface {
	ListByPeriod(ctx context.Context, period string, limit int) ([]*models.PriceRecord, error)
	GetByPostalCode(ctx context.Context, postalCode string) (*models.PriceRecord, error)
	StatsByPeriod(ctx context.Context, period string) (*database.PeriodStats, error)
}

// SessionStore is the session query surface the handlers need.
type SessionStore interface {
	List(ctx context.Context, limit int) ([]*models.RunSession, error)
}

// Handlers serves read-only access to scraped price data.
type Handlers struct {
	records  RecordStore
	sessions SessionStore
	logger   *slog.Logger
}

func NewHandlers(db *database.DB, logger *slog.Logger) *Handlers {
	return newHandlers(database.NewRecordRepository(db), database.NewSessionRepository(db), logger)
}

func newHandlers(records RecordStore, sessions SessionStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		records:  records,
		sessions: sessions,
		logger:   logger.With("component", "api"),
	}
}

// Routes mounts all handlers under the given router.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/prices", h.ListPrices)
	r.Get("/prices/{postalCode}", h.GetPrice)
	r.Get("/sessions", h.ListSessions)
	r.Get("/stats", h.GetStats)
}

// PricesResponse wraps a list of price records with its query context.
type PricesResponse struct {
	Period  string                `json:"period"`
	Count   int                   `json:"count"`
	Records []*models.PriceRecord `json:"records"`
}

// ListPrices returns price records for a period, newest period by default.
func (h *Handlers) ListPrices(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = models.Period(nowFunc())
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.records.ListByPeriod(r.Context(), period, limit)
	if err != nil {
		h.logger.Error("failed to list prices", "period", period, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list prices")
		return
	}

	h.respondJSON(w, http.StatusOK, PricesResponse{
		Period:  period,
		Count:   len(records),
		Records: records,
	})
}

// GetPrice returns the most recent record for one postal code.
func (h *Handlers) GetPrice(w http.ResponseWriter, r *http.Request) {
	postalCode := chi.URLParam(r, "postalCode")
	if postalCode == "" {
		h.respondError(w, http.StatusBadRequest, "postal code is required")
		return
	}

	record, err := h.records.GetByPostalCode(r.Context(), postalCode)
	if err != nil {
		h.logger.Error("failed to get price", "postal_code", postalCode, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get price")
		return
	}
	if record == nil {
		h.respondError(w, http.StatusNotFound, "no record for postal code")
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// ListSessions returns recent scrape sessions, newest first.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context(), defaultListLimit)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	h.respondJSON(w, http.StatusOK, sessions)
}

// GetStats returns aggregate statistics for a period.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = models.Period(nowFunc())
	}

	stats, err := h.records.StatsByPeriod(r.Context(), period)
	if err != nil {
		h.logger.Error("failed to get stats", "period", period, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
