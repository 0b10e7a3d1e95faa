// Package api exposes the chart-compilation engine over HTTP, decoding and
// shape-validating requests at the wire boundary before they reach the
// already-typed internal/validate checks deeper in the pipeline.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/engine"
)

// ChartRequest is the wire envelope for a chart execution request. Its
// validator tags catch malformed envelopes (missing organisation, missing
// spec) before the request reaches the engine; internal/validate still owns
// every ChartSpec-semantic check.
type ChartRequest struct {
	Organisation string              `json:"organisation" validate:"required"`
	Spec         chartspec.ChartSpec `json:"spec" validate:"required"`
	BypassCache  bool                `json:"bypassCache"`
	CacheTTLSec  int                 `json:"cacheTtlSeconds" validate:"gte=0"`
}

// Handler serves the chart-compilation HTTP surface.
type Handler struct {
	engine   *engine.Engine
	validate *validator.Validate
	log      zerolog.Logger
}

// New builds a Handler over eng.
func New(eng *engine.Engine, log zerolog.Logger) *Handler {
	return &Handler{engine: eng, validate: validator.New(validator.WithRequiredStructEnabled()), log: log}
}

// Charts handles POST /v1/charts: decode, shape-validate, execute, respond.
func (h *Handler) Charts(w http.ResponseWriter, r *http.Request) {
	var req ChartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := engine.Options{BypassCache: req.BypassCache}
	if req.CacheTTLSec > 0 {
		opts.CacheTTL = time.Duration(req.CacheTTLSec) * time.Second
	}

	result, err := h.engine.Execute(r.Context(), req.Spec, req.Organisation, opts)
	if err != nil {
		h.log.Error().Err(err).Str("organisation", req.Organisation).Msg("chart execution failed")
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.log.Error().Err(err).Msg("failed to encode chart result")
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Ready reports readiness.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ready","service":"chartengine"}`))
}

func statusFor(err error) int {
	var validationErr *chartspec.ValidationError
	var unsupportedChart *chartspec.UnsupportedChartError
	var unsupportedMeasure *chartspec.UnsupportedMeasureError
	var unknownOrg *chartspec.UnknownOrganisationError
	var malformedTable *chartspec.MalformedTableNameError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &unsupportedChart), errors.As(err, &unsupportedMeasure):
		return http.StatusBadRequest
	case errors.As(err, &unknownOrg), errors.As(err, &malformedTable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
