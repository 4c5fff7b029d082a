package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curvelabs/bondengine/internal/domain"
	"github.com/curvelabs/bondengine/internal/engine"
	"github.com/curvelabs/bondengine/internal/service"
	"github.com/curvelabs/bondengine/internal/transfer"
)

func newTradeTestServer(t *testing.T) (*httptest.Server, *transfer.MemoryBank, domain.BondID) {
	t.Helper()
	bank := transfer.NewMemoryBank()
	eng, err := engine.New(engine.Config{Treasury: "treasury"}, bank, nil, nil, slog.Default())
	require.NoError(t, err)

	id := domain.BondID{0xab}
	require.NoError(t, eng.CreateBond(context.Background(), id, "ben", 500, 0))

	quotes := service.NewQuoteService(eng, nil, 0, slog.Default())
	h := NewTradeHandler(eng, quotes, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/bonds/{id}/quote", h.Quote)
	mux.HandleFunc("POST /api/bonds/{id}/buy", h.Buy)
	mux.HandleFunc("POST /api/bonds/{id}/sell", h.Sell)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, bank, id
}

func TestTradeQuoteEndpoint(t *testing.T) {
	srv, _, id := newTradeTestServer(t)

	resp, err := http.Get(srv.URL + "/api/bonds/" + id.String() + "/quote?side=buy&units=100")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var q domain.Quote
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))
	assert.Equal(t, id, q.Bond)
	assert.Equal(t, uint64(5050), q.Total)
	assert.Equal(t, uint64(252), q.Fee)
}

func TestTradeQuoteRejectsBadInput(t *testing.T) {
	srv, _, id := newTradeTestServer(t)

	for _, path := range []string{
		"/api/bonds/not-hex/quote",
		"/api/bonds/" + id.String() + "/quote?units=0",
		"/api/bonds/" + id.String() + "/quote?side=hold",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestTradeBuyEndpoint(t *testing.T) {
	srv, bank, id := newTradeTestServer(t)
	bank.Deposit("alice", 100)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/bonds/"+id.String()+"/buy",
		strings.NewReader(`{"units":3,"max_price":10}`))
	req.Header.Set(accountHeader, "alice")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Paid uint64 `json:"paid"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	// price(0, 3) = 1+2+3.
	assert.Equal(t, uint64(6), out.Paid)
	assert.Equal(t, uint64(94), bank.BalanceOf("alice"))
}

func TestTradeBuyRequiresIdentity(t *testing.T) {
	srv, _, id := newTradeTestServer(t)

	resp, err := http.Post(srv.URL+"/api/bonds/"+id.String()+"/buy",
		"application/json", strings.NewReader(`{"units":1,"max_price":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTradeBuySlippageMapsToConflict(t *testing.T) {
	srv, bank, id := newTradeTestServer(t)
	bank.Deposit("alice", 100)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/bonds/"+id.String()+"/buy",
		strings.NewReader(`{"units":3,"max_price":5}`))
	req.Header.Set(accountHeader, "alice")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	// A rejected buy must not move funds.
	assert.Equal(t, uint64(100), bank.BalanceOf("alice"))
}
