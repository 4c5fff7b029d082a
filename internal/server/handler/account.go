package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/engine"
)

// AccountHandler serves withdrawable balances and withdrawals.
type AccountHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(eng *engine.Engine, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{engine: eng, logger: logHandler(logger, "account")}
}

// Withdrawable returns an account's accumulated fee credits.
// GET /api/accounts/{account}/withdrawable
func (h *AccountHandler) Withdrawable(w http.ResponseWriter, r *http.Request) {
	acct := domain.Account(strings.TrimSpace(r.PathValue("account")))
	if acct == domain.ZeroAccount {
		writeError(w, http.StatusBadRequest, "invalid account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":      acct,
		"withdrawable": h.engine.Withdrawable(acct),
	})
}

// Withdraw drains the caller's fee credits, paying out the net amount after
// the network fee.
// POST /api/withdraw
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	acct, ok := requireCaller(w, r)
	if !ok {
		return
	}

	net, networkFee, err := h.engine.Withdraw(r.Context(), acct)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":     acct,
		"value":       net,
		"network_fee": networkFee,
	})
}
