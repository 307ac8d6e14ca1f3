package deserialize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/quote"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteSwap_AlternateKeyNames(t *testing.T) {
	tests := []struct {
		name string
		body string
		out  uint64
		hops int
	}{
		{"top level outAmount", `{"inputMint":"A","outAmount":"900","inAmount":"1000","routePlan":[{"swapInfo":{"label":"Orca","ammKey":"P"}}]}`, 900, 1},
		{"nested data outputAmount", `{"data":{"outputAmount":123456789012345678,"route":[{"dex":"Invariant"},{"dex":"Lifinity"}]}}`, 123456789012345678, 2},
		{"amountOut no route", `{"quote":{"amountOut":"5"}}`, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/quote", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			q, err := NewClient(srv.URL, nil).QuoteSwap(context.Background(), quote.Request{InputToken: "A", OutputToken: "B", Amount: "1000", SlippageBps: 50})
			require.NoError(t, err)
			assert.Equal(t, tt.out, q.OutputAmount)
			assert.Equal(t, uint64(1000), q.InputAmount)
			assert.Len(t, q.RoutePlan, tt.hops)
			assert.NotEmpty(t, q.BackendPayload)
		})
	}
}

func TestQuoteSwap_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want swaperr.Kind
	}{
		{"error field", `{"error":"No route found for pair"}`, swaperr.KindNoRoute},
		{"rejected", `{"error":"token not supported"}`, swaperr.KindQuoteBackendRejected},
		{"success false", `{"success":false}`, swaperr.KindQuoteBackendRejected},
		{"missing output", `{"inAmount":"1"}`, swaperr.KindNoRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, nil).QuoteSwap(context.Background(), quote.Request{InputToken: "A", OutputToken: "B", Amount: "1"})
			assert.Equal(t, tt.want, swaperr.KindOf(err))
		})
	}
}

func TestSwapTransactions_SpreadsQuoteAndWallet(t *testing.T) {
	var body map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/swap", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"transaction":"AQID"}`))
	}))
	defer srv.Close()

	txs, err := NewClient(srv.URL, nil).SwapTransactions(context.Background(), txbuild.Request{
		Quote:  models.Quote{BackendPayload: json.RawMessage(`{"outAmount":123456789012345678,"inputMint":"A"}`)},
		Wallet: "Wallet111",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AQID"}, txs)
	assert.Equal(t, `"Wallet111"`, string(body["wallet"]))
	assert.Equal(t, `123456789012345678`, string(body["outAmount"]), "numbers keep full precision")
}

func TestSwapTransactions_NoTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"slippage exceeded"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).SwapTransactions(context.Background(), txbuild.Request{Wallet: "W"})
	e, ok := swaperr.As(err)
	require.True(t, ok)
	assert.Equal(t, swaperr.KindBuildBackendRejected, e.Kind)
	assert.Equal(t, "slippage exceeded", e.Message)
}

func TestNormalizeTokenList(t *testing.T) {
	tokens, err := NormalizeTokenList([]byte(`{"data":[{"address":"A","decimals":6,"metadata":{"symbol":"USDC","name":"USD Coin"}},{"address":"B","decimals":9}]}`))
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "USDC", tokens[0].Symbol)
	assert.Equal(t, "N/A", tokens[1].Symbol)
	assert.Equal(t, models.ProvenanceAggregatorOnly, tokens[1].Provenance)
}
