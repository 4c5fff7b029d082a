package handler

import (
	"log/slog"
	"net/http"

	"github.com/curvelabs/bondengine/internal/engine"
)

// AdminHandler serves the administrative operations: stopping the engine and
// adjusting the network fee. Authorization happens inside the engine, so an
// unauthorized caller gets 403 regardless of how the request reached us.
type AdminHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(eng *engine.Engine, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{engine: eng, logger: logHandler(logger, "admin")}
}

// Stop latches the engine into the stopped state.
// POST /api/admin/stop
func (h *AdminHandler) Stop(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.engine.Stop(r.Context(), acct); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stopped": true})
}

// GetNetworkFee returns the current network fee rate.
// GET /api/admin/network-fee
func (h *AdminHandler) GetNetworkFee(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"basis_points": h.engine.NetworkFeeBasisPoints(),
	})
}

type setNetworkFeeRequest struct {
	ExpectedCurrent uint32 `json:"expected_current"`
	NewValue        uint32 `json:"new_value"`
}

// SetNetworkFee updates the network fee rate via compare-and-swap.
// PUT /api/admin/network-fee
func (h *AdminHandler) SetNetworkFee(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req setNetworkFeeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.engine.SetNetworkFeeBasisPoints(r.Context(), acct, req.ExpectedCurrent, req.NewValue); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"basis_points": req.NewValue,
	})
}
