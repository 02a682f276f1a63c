package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/olyamironova/trade-execution/internal/adapter/in_memory"
	"github.com/olyamironova/trade-execution/internal/api/dto"
	"github.com/olyamironova/trade-execution/internal/core"
	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/olyamironova/trade-execution/internal/middleware"
)

type stubLatest struct{ p *domain.TradePayload }

func (s stubLatest) LatestTrade(ctx context.Context, market string) (*domain.TradePayload, error) {
	return s.p, nil
}

func newServer(t *testing.T, latest LatestReader) (http.Handler, *in_memory.MemoryRepo) {
	t.Helper()
	ten, five := decimal.NewFromInt(10), decimal.NewFromInt(5)
	repo := in_memory.NewMemoryRepo()
	repo.PutMarket(domain.Market{ID: "btcusd", BaseUnit: "btc", QuoteUnit: "usd", AmountPrecision: 4, PricePrecision: 4})
	repo.PutOrder(domain.Order{
		ID: "a1", MemberID: "alice", MarketID: "btcusd", Side: domain.Ask, Type: domain.LimitOrder,
		Price: decimal.NewNullDecimal(ten), OriginVolume: five, Volume: five, OriginLocked: five, Locked: five, State: domain.Wait,
	})
	repo.PutOrder(domain.Order{
		ID: "b1", MemberID: "bob", MarketID: "btcusd", Side: domain.Bid, Type: domain.LimitOrder,
		Price: decimal.NewNullDecimal(ten), OriginVolume: five, Volume: five,
		OriginLocked: ten.Mul(five), Locked: ten.Mul(five), State: domain.Wait,
	})
	repo.PutAccount(domain.Account{MemberID: "alice", Currency: "btc", Locked: five})
	repo.PutAccount(domain.Account{MemberID: "bob", Currency: "usd", Locked: ten.Mul(five)})

	logger := zaptest.NewLogger(t)
	disp := core.NewDispatcher(core.NewExecutor(repo, in_memory.NewPublisher(), logger), 4)
	t.Cleanup(disp.Close)
	return NewHTTPServer(disp, repo, latest, logger).Handler(), repo
}

func post(t *testing.T, h http.Handler, body string, matcher bool) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/v1/executions", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	if matcher {
		r.Header.Set(middleware.MatcherHeader, "matcher-1")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestExecute_Created(t *testing.T) {
	h, _ := newServer(t, nil)

	w := post(t, h, `{"market":"btcusd","ask_id":"a1","bid_id":"b1","strike_price":"10","volume":"5","funds":"50"}`, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.ExecuteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "btcusd", resp.Trade.MarketID)
	assert.Equal(t, "ask", resp.Trade.MakerSide)
	assert.True(t, resp.Trade.Funds.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "done", resp.Ask.State)
	assert.Equal(t, "done", resp.Bid.State)

	w = get(h, "/v1/trades/"+resp.Trade.ID)
	require.Equal(t, http.StatusOK, w.Code)
	var tr dto.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	assert.Equal(t, resp.Trade.ID, tr.ID)

	w = get(h, "/v1/orders/b1")
	require.Equal(t, http.StatusOK, w.Code)
	var o dto.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, "done", o.State)
	assert.EqualValues(t, 1, o.TradesCount)
}

func TestExecute_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		matcher bool
		setup   func(repo *in_memory.MemoryRepo)
		code    int
		kind    string
	}{
		{
			name: "missing matcher header",
			body: `{"market":"btcusd","ask_id":"a1","bid_id":"b1","strike_price":"10","volume":"5","funds":"50"}`,
			code: http.StatusBadRequest,
		},
		{
			name:    "malformed json",
			body:    `{"market":`,
			matcher: true,
			code:    http.StatusBadRequest,
			kind:    "bad_request",
		},
		{
			name:    "bad maker side",
			body:    `{"market":"btcusd","ask_id":"a1","bid_id":"b1","strike_price":"10","volume":"5","funds":"50","maker_side":"both"}`,
			matcher: true,
			code:    http.StatusBadRequest,
			kind:    "bad_request",
		},
		{
			name:    "non-numeric price",
			body:    `{"market":"btcusd","ask_id":"a1","bid_id":"b1","strike_price":"ten","volume":"5","funds":"50"}`,
			matcher: true,
			code:    http.StatusBadRequest,
			kind:    "bad_request",
		},
		{
			name:    "missing funds",
			body:    `{"market":"btcusd","ask_id":"a1","bid_id":"b1","strike_price":"10","volume":"5"}`,
			matcher: true,
			code:    http.StatusBadRequest,
			kind:    "bad_request",
		},
		{
			name:    "invalid volume",
			body:    `{"market":"btcusd","ask_id":"a1","bid_id":"b1","strike_price":"10","volume":"0","funds":"0"}`,
			matcher: true,
			code:    http.StatusUnprocessableEntity,
			kind:    "trade_execution",
		},
		{
			name:    "short locked balance",
			body:    `{"market":"btcusd","ask_id":"a1","bid_id":"b1","strike_price":"10","volume":"5","funds":"50"}`,
			matcher: true,
			setup: func(repo *in_memory.MemoryRepo) {
				repo.PutAccount(domain.Account{MemberID: "alice", Currency: "btc"})
			},
			code: http.StatusConflict,
			kind: "account",
		},
		{
			name:    "unknown order",
			body:    `{"market":"btcusd","ask_id":"a9","bid_id":"b1","strike_price":"10","volume":"5","funds":"50"}`,
			matcher: true,
			code:    http.StatusNotFound,
			kind:    "not_found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, repo := newServer(t, nil)
			if tt.setup != nil {
				tt.setup(repo)
			}
			w := post(t, h, tt.body, tt.matcher)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.kind != "" {
				var e dto.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
				assert.Equal(t, tt.kind, e.Kind)
			}
		})
	}
}

func TestReads(t *testing.T) {
	h, _ := newServer(t, nil)

	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/v1/trades/nope").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/v1/orders/nope").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/v1/markets/btcusd/latest").Code)
}

func TestLatest(t *testing.T) {
	h, _ := newServer(t, stubLatest{p: &domain.TradePayload{TradeID: "t1", MarketID: "btcusd"}})
	w := get(h, "/v1/markets/btcusd/latest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"t1"`)

	h, _ = newServer(t, stubLatest{})
	assert.Equal(t, http.StatusNotFound, get(h, "/v1/markets/btcusd/latest").Code)
}
