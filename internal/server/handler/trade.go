package handler

import (
	"log/slog"
	"net/http"

	"github.com/curvelabs/bondengine/internal/engine"
	"github.com/curvelabs/bondengine/internal/service"
)

// TradeHandler serves quotes, buys, and sells.
type TradeHandler struct {
	engine *engine.Engine
	quotes *service.QuoteService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(eng *engine.Engine, quotes *service.QuoteService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{engine: eng, quotes: quotes, logger: logHandler(logger, "trade")}
}

// Quote previews a buy or sell at current supply.
// GET /api/bonds/{id}/quote?side=buy|sell&units=N
func (h *TradeHandler) Quote(w http.ResponseWriter, r *http.Request) {
	id, ok := bondIDParam(w, r)
	if !ok {
		return
	}
	units, err := queryUint(r, "units", 1)
	if err != nil || units == 0 {
		writeError(w, http.StatusBadRequest, "units must be a positive integer")
		return
	}

	side := r.URL.Query().Get("side")
	switch side {
	case "", "buy":
		q, err := h.quotes.QuoteBuy(r.Context(), id, units)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	case "sell":
		q, err := h.quotes.QuoteSell(r.Context(), id, units)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	default:
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
	}
}

type buyRequest struct {
	Units    uint64 `json:"units"`
	MaxPrice uint64 `json:"max_price"`
}

// Buy mints units to the caller at the curve price, bounded by max_price.
// POST /api/bonds/{id}/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := bondIDParam(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Units == 0 {
		writeError(w, http.StatusBadRequest, "units must be a positive integer")
		return
	}

	paid, err := h.engine.Buy(r.Context(), acct, id, req.Units, req.MaxPrice)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bond":  id,
		"units": req.Units,
		"paid":  paid,
	})
}

type sellRequest struct {
	Units    uint64 `json:"units"`
	MinValue uint64 `json:"min_value"`
}

// Sell burns units from the caller and pays out the net redemption value,
// bounded below by min_value.
// POST /api/bonds/{id}/sell
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := bondIDParam(w, r)
	if !ok {
		return
	}
	var req sellRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Units == 0 {
		writeError(w, http.StatusBadRequest, "units must be a positive integer")
		return
	}

	net, err := h.engine.Sell(r.Context(), acct, id, req.Units, req.MinValue)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bond":  id,
		"units": req.Units,
		"value": net,
	})
}
