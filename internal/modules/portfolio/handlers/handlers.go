// Package handlers provides HTTP handlers for portfolio optimization and
// simulation operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/internal/modules/optimization"
	"github.com/invexis/invexis/internal/modules/portfolio"
	"github.com/invexis/invexis/internal/modules/simulation"
)

// Handler handles portfolio engine HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleInitialize handles POST /api/portfolio/initialize
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	var req portfolio.InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Initialize(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, "Initialization failed")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleSimulate handles POST /api/portfolio/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req portfolio.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Simulate(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, "Simulation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// respondServiceError maps engine errors onto HTTP statuses: malformed
// requests are 400, well-formed requests the engine cannot satisfy are 422,
// anything else is 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, logMsg string) {
	var (
		invalidPrice *optimization.InvalidPriceError
		insufficient *optimization.InsufficientDataError
		optFailed    *optimization.OptimizationFailedError
		badWeights   *simulation.InvalidWeightsError
		badSimParams *simulation.InvalidSimulationParametersError
	)
	switch {
	case errors.As(err, &badWeights), errors.As(err, &badSimParams), errors.As(err, &invalidPrice):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficient), errors.As(err, &optFailed):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg(logMsg)
		h.writeError(w, http.StatusInternalServerError, logMsg)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
