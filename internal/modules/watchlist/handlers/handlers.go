// Package handlers provides HTTP handlers for watchlist operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/internal/clients/yahoo"
	"github.com/invexis/invexis/internal/modules/watchlist"
)

// Handler handles watchlist HTTP requests
type Handler struct {
	repo   *watchlist.Repository
	client *yahoo.Client
	log    zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(repo *watchlist.Repository, client *yahoo.Client, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		client: client,
		log:    log.With().Str("handler", "watchlist").Logger(),
	}
}

type mutateRequest struct {
	UserID string `json:"userId"`
	Symbol string `json:"symbol"`
}

// HandleList handles GET /api/watchlist?userId=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	entries, err := h.repo.List(userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list watchlist")
		h.writeError(w, http.StatusInternalServerError, "failed to list watchlist")
		return
	}

	// Quotes are attached best-effort: a provider outage degrades the list
	// to symbols-only instead of failing it.
	items := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		item := map[string]interface{}{
			"id":     e.ID,
			"symbol": e.Symbol,
		}
		if quote, err := h.client.GetQuote(r.Context(), e.Symbol); err == nil {
			item["quote"] = quote
		} else {
			h.log.Warn().Err(err).Str("symbol", e.Symbol).Msg("Quote unavailable for watchlist entry")
		}
		items = append(items, item)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"watchlist": items})
}

// HandleAdd handles POST /api/watchlist/add
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}

	entry, err := h.repo.Add(req.UserID, req.Symbol)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to add watchlist entry")
		h.writeError(w, http.StatusInternalServerError, "failed to add symbol")
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// HandleRemove handles POST /api/watchlist/remove
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeMutation(w, r)
	if !ok {
		return
	}

	if err := h.repo.Remove(req.UserID, req.Symbol); err != nil {
		h.log.Error().Err(err).Msg("Failed to remove watchlist entry")
		h.writeError(w, http.StatusInternalServerError, "failed to remove symbol")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"removed": req.Symbol})
}

func (h *Handler) decodeMutation(w http.ResponseWriter, r *http.Request) (mutateRequest, bool) {
	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.UserID == "" || req.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "userId and symbol are required")
		return req, false
	}
	return req, true
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
