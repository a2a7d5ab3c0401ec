package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/kestrel/internal/analyzer"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/drift"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/store"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	ring     *store.Ring
	repo     domain.Repository
	profiles domain.ProfileStore
	analyzer *analyzer.Analyzer
	drift    *drift.Aggregator
	bus      domain.EventBus
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(ring *store.Ring, repo domain.Repository, profiles domain.ProfileStore, a *analyzer.Analyzer, d *drift.Aggregator, bus domain.EventBus, version string) *Handler {
	return &Handler{
		ring:     ring,
		repo:     repo,
		profiles: profiles,
		analyzer: a,
		drift:    d,
		bus:      bus,
		version:  version,
	}
}

// AnalyzeResponse is the response for POST /analyze. The sub-score key
// names are part of the published wire contract consumed by existing
// dashboards; they name the reference models, not the oracle slots.
type AnalyzeResponse struct {
	EvaluationID string `json:"evaluation_id"`
	Status       string `json:"status"`

	IsolationForestScore float64 `json:"isolation_forest_score"`
	XGBoostProbability   float64 `json:"xgboost_probability"`
	GNNProbability       float64 `json:"gnn_probability"`
	CompositeScore       float64 `json:"composite_score"`
	CustomerRiskScore    float64 `json:"customer_risk_score"`

	Explanation     []domain.ExplanationItem `json:"explanation"`
	DriftDetected   bool                     `json:"drift_detected"`
	DegradedOracles []string                 `json:"degraded_oracles,omitempty"`
}

// Analyze handles POST /analyze requests.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON body",
		})
		return
	}

	res, err := h.analyzer.Analyze(r.Context(), &req)
	if err != nil {
		if verr, ok := domain.AsValidationError(err); ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": verr.Error(),
				"field": verr.Field,
			})
			return
		}
		slog.Error("analyze failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
		return
	}

	resp := AnalyzeResponse{
		EvaluationID:         res.ID,
		Status:               res.Status,
		IsolationForestScore: res.Anomaly.Value,
		XGBoostProbability:   res.Supervised.Value,
		GNNProbability:       res.Graph.Value,
		CompositeScore:       res.Composite,
		CustomerRiskScore:    res.CustomerRisk,
		Explanation:          res.Explanation,
		DriftDetected:        res.DriftDetected,
	}
	if res.Explanation == nil {
		resp.Explanation = []domain.ExplanationItem{}
	}
	for _, sub := range []struct {
		name string
		s    domain.SubScore
	}{
		{"anomaly", res.Anomaly},
		{"supervised", res.Supervised},
		{"graph", res.Graph},
	} {
		if sub.s.Degraded {
			resp.DegradedOracles = append(resp.DegradedOracles, sub.name)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// txResponse is the wire shape of a recent transaction.
type txResponse struct {
	domain.Transaction
	TransactionDate string `json:"TransactionDate"`
}

// Transactions handles GET /transactions?days=N. days defaults to 1;
// days=0 returns the full window.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	days := 1
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "days must be a non-negative integer",
			})
			return
		}
		days = n
	}

	txs := h.ring.Query(time.Duration(days) * 24 * time.Hour)

	out := make([]txResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, txResponse{
			Transaction:     *tx,
			TransactionDate: tx.WireDate(),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// DriftStatus handles GET /drift/status.
func (h *Handler) DriftStatus(w http.ResponseWriter, r *http.Request) {
	detected, count := h.drift.Status()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"drift_detected": detected,
		"drift_count":    count,
	})
}

// DriftReset handles POST /drift/reset. It clears the sticky drift flag
// and rebaselines the detector on traffic that follows.
func (h *Handler) DriftReset(w http.ResponseWriter, r *http.Request) {
	h.drift.Reset()
	slog.Info("drift detector reset", "request_id", r.Context().Value(RequestIDKey))
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "reset",
	})
}

// CustomerProfile handles GET /customer/{id}/profile.
func (h *Handler) CustomerProfile(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customer id is required",
		})
		return
	}

	profile, err := h.profiles.GetProfile(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "Customer not found",
			})
			return
		}
		slog.Error("profile read failed", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "profile lookup failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// GetEvaluation handles GET /evaluations/{id}.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	evalID := chi.URLParam(r, "id")
	if evalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "evaluation id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	res, err := h.repo.GetEvaluation(r.Context(), evalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "evaluation not found",
			})
			return
		}
		slog.Error("evaluation read failed", "evaluation_id", evalID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "evaluation lookup failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// StatsResponse is the response for GET /stats.
type StatsResponse struct {
	TotalTransactions int     `json:"total_transactions"`
	HighRisk          int     `json:"high_risk"`
	MediumRisk        int     `json:"medium_risk"`
	LowRisk           int     `json:"low_risk"`
	AvgAmount         float64 `json:"avg_amount"`
}

// Stats handles GET /stats. Risk bands over the recent window:
// high above 0.7, medium in (0.4, 0.7], low the rest.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	txs := h.ring.Query(0)

	resp := StatsResponse{TotalTransactions: len(txs)}
	if len(txs) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var sum float64
	for _, tx := range txs {
		sum += tx.Amount
		switch {
		case tx.RiskScore > 0.7:
			resp.HighRisk++
		case tx.RiskScore > 0.4:
			resp.MediumRisk++
		default:
			resp.LowRisk++
		}
	}
	resp.AvgAmount = sum / float64(len(txs))

	writeJSON(w, http.StatusOK, resp)
}

// Health returns overall service health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.profiles != nil {
		if err := h.profiles.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
