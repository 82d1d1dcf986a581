package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tgeclaim/engine/internal/dashboard"
	"github.com/tgeclaim/engine/internal/engine"
	"github.com/tgeclaim/engine/internal/rewards"
	"github.com/tgeclaim/engine/internal/selection"
	"github.com/tgeclaim/engine/internal/settlement"
	"github.com/tgeclaim/engine/internal/store"
	"github.com/tgeclaim/engine/internal/summary"
	"github.com/tgeclaim/engine/internal/wallet"
)

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Started string `json:"started"`
	Wallet  string `json:"wallet"`
}

// CatalogResponse is the response for GET /api/catalog.
type CatalogResponse struct {
	Offers []store.Offer `json:"offers"`
}

// SelectionResponse describes the selection after a change.
type SelectionResponse struct {
	OfferID    string                           `json:"offerId,omitempty"`
	Selected   bool                             `json:"selected"`
	Selection  []string                         `json:"selection"`
	Decisions  map[string]store.StakingDecision `json:"decisions"`
	Processing bool                             `json:"processing"`
}

// DecisionRequest is the body of PUT /api/decisions/{id}.
type DecisionRequest struct {
	WillStake bool           `json:"willStake"`
	Duration  store.Duration `json:"duration,omitempty"`
}

// LegacyResponse is the response for GET /api/legacy.
type LegacyResponse struct {
	Chains  []store.Offer         `json:"chains"`
	Summary summary.LegacySummary `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.engine.Wallet()
	status := "disconnected"
	if state.Connected {
		status = "connected"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Started: humanize.Time(s.started),
		Wallet:  status,
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{Offers: s.engine.Offers()})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Summary())
}

func (s *Server) selectionResponse(id string, selected bool) SelectionResponse {
	snap := s.engine.Selection()
	resp := SelectionResponse{
		OfferID:    id,
		Selected:   selected,
		Selection:  snap.Selected,
		Decisions:  snap.Decisions,
		Processing: snap.Processing,
	}
	if resp.Selection == nil {
		resp.Selection = []string{}
	}
	return resp
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.selectionResponse("", false))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	selected, err := s.engine.Toggle(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(id, selected))
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	decision, err := s.engine.Decide(r.PathValue("id"), req.WillStake, req.Duration)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	strategy := r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = s.engine.DefaultStrategy()
	}

	batch, err := s.engine.Submit(r.Context(), strategy)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.engine.LastBatch()
	if !ok {
		writeError(w, http.StatusNotFound, "no batch has been settled")
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reset(); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLegacy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LegacyResponse{
		Chains:  s.engine.LegacyOffers(),
		Summary: s.engine.LegacySummary(),
	})
}

func (s *Server) handleLegacyToggle(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.ToggleLegacy(r.PathValue("id")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.LegacySummary())
}

func (s *Server) handleLegacySettle(w http.ResponseWriter, r *http.Request) {
	batch, err := s.engine.SubmitLegacy(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Wallet())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Connect(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Wallet())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.engine.Disconnect()
	writeJSON(w, http.StatusOK, s.engine.Wallet())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Dashboard())
}

func (s *Server) handleClaimPosition(w http.ResponseWriter, r *http.Request) {
	record, err := s.engine.ClaimPosition(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Notifications())
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.engine.DismissNotification(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, selection.ErrUnknownOffer),
		errors.Is(err, dashboard.ErrUnknownPosition):
		return http.StatusNotFound
	case errors.Is(err, selection.ErrMissingStakingField),
		errors.Is(err, rewards.ErrInvalidDuration),
		errors.Is(err, rewards.ErrNegativeInput),
		errors.Is(err, engine.ErrUnknownStrategy),
		errors.Is(err, settlement.ErrEmptySelection):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrWalletDisconnected),
		errors.Is(err, selection.ErrBusy),
		errors.Is(err, dashboard.ErrPositionLocked),
		errors.Is(err, wallet.ErrConnectionAborted):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrConnectionRejected):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
