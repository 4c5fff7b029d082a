package handler

import (
	"log/slog"
	"net/http"

	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/engine"
)

// BondHandler serves bond creation, lookup, and price management.
type BondHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewBondHandler creates a BondHandler.
func NewBondHandler(eng *engine.Engine, logger *slog.Logger) *BondHandler {
	return &BondHandler{engine: eng, logger: logHandler(logger, "bond")}
}

type createBondRequest struct {
	ID            string `json:"id"`
	Beneficiary   string `json:"beneficiary"`
	BasisPoints   uint32 `json:"basis_points"`
	PurchasePrice uint64 `json:"purchase_price"`
}

// CreateBond registers a new bond.
// POST /api/bonds
func (h *BondHandler) CreateBond(w http.ResponseWriter, r *http.Request) {
	var req createBondRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := domain.ParseBondID(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bond id")
		return
	}

	if err := h.engine.CreateBond(r.Context(), id, domain.Account(req.Beneficiary), req.BasisPoints, req.PurchasePrice); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bondView(domain.Bond{
		ID:                     id,
		Beneficiary:            domain.Account(req.Beneficiary),
		BeneficiaryBasisPoints: req.BasisPoints,
		PurchasePrice:          req.PurchasePrice,
	}))
}

// ListBonds returns every registered bond.
// GET /api/bonds
func (h *BondHandler) ListBonds(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	out := make([]map[string]any, 0, len(snap.Bonds))
	for _, b := range snap.Bonds {
		out = append(out, bondView(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bonds": out})
}

// GetBond returns one bond with its holder balances.
// GET /api/bonds/{id}
func (h *BondHandler) GetBond(w http.ResponseWriter, r *http.Request) {
	id, ok := bondIDParam(w, r)
	if !ok {
		return
	}
	bond, err := h.engine.Bond(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	view := bondView(bond)
	balances := make(map[string]uint64, len(bond.Balances))
	for holder, amount := range bond.Balances {
		balances[string(holder)] = amount
	}
	view["balances"] = balances
	writeJSON(w, http.StatusOK, view)
}

type setPriceRequest struct {
	ExpectedCurrent uint64 `json:"expected_current"`
	NewPrice        uint64 `json:"new_price"`
}

// SetPurchasePrice updates a bond's informational purchase price via
// compare-and-swap. Only the beneficiary may call it.
// PUT /api/bonds/{id}/price
func (h *BondHandler) SetPurchasePrice(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := bondIDParam(w, r)
	if !ok {
		return
	}
	var req setPriceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.engine.SetPurchasePrice(r.Context(), acct, id, req.ExpectedCurrent, req.NewPrice); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bond":           id,
		"purchase_price": req.NewPrice,
	})
}

// bondView renders the public fields of a bond (balances are only included
// by GetBond).
func bondView(b domain.Bond) map[string]any {
	return map[string]any{
		"id":             b.ID,
		"beneficiary":    b.Beneficiary,
		"basis_points":   b.BeneficiaryBasisPoints,
		"purchase_price": b.PurchasePrice,
		"supply":         b.Supply,
	}
}
