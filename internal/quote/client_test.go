package quote

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/httpx"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	quote models.Quote
	err   error
	calls int
	last  Request
}

func (f *fakeSource) QuoteSwap(_ context.Context, req Request) (models.Quote, error) {
	f.calls++
	f.last = req
	return f.quote, f.err
}

func fixedNow() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }

func TestGetQuote_StampsChainBackendAndExpiry(t *testing.T) {
	src := &fakeSource{quote: models.Quote{InputAmount: 1_000_000_000, OutputAmount: 42, RoutePlan: []models.Hop{{Venue: "Solar"}}}}
	c := NewClient(Config{Chain: models.ChainEclipse, TTL: time.Minute, Now: fixedNow}, map[models.Backend]Source{
		models.BackendDedicatedAmm: src,
	})

	q, err := c.GetQuote(context.Background(), models.BackendDedicatedAmm, Request{InputToken: "A", OutputToken: "B", Amount: "1"})
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, uint16(50), src.last.SlippageBps, "default slippage applied")
	assert.Equal(t, models.ChainEclipse, q.Chain)
	assert.Equal(t, models.BackendDedicatedAmm, q.Backend)
	assert.Equal(t, "A", q.InputToken)
	assert.Equal(t, fixedNow(), q.IssuedAt)
	assert.Equal(t, fixedNow().Add(time.Minute), q.ExpiresAt)
}

func TestGetQuote_Validation(t *testing.T) {
	src := &fakeSource{}
	c := NewClient(Config{Chain: models.ChainSolana}, map[models.Backend]Source{models.BackendAggregator: src})

	cases := []Request{
		{OutputToken: "B", Amount: "1"},
		{InputToken: "A", Amount: "1"},
		{InputToken: "A", OutputToken: "A", Amount: "1"},
		{InputToken: "A", OutputToken: "B"},
		{InputToken: "A", OutputToken: "B", Amount: "1", SlippageBps: 10001},
	}
	for _, req := range cases {
		_, err := c.GetQuote(context.Background(), models.BackendAggregator, req)
		assert.Equal(t, swaperr.KindInvalidRequest, swaperr.KindOf(err))
	}
	assert.Equal(t, 0, src.calls)

	_, err := c.GetQuote(context.Background(), models.BackendDedicatedAmm, Request{InputToken: "A", OutputToken: "B", Amount: "1"})
	assert.Equal(t, swaperr.KindInvalidRequest, swaperr.KindOf(err))
	assert.False(t, c.Supports(models.BackendDedicatedAmm))
}

func TestGetQuote_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want swaperr.Kind
	}{
		{"network", &httpx.NetworkError{Err: errors.New("dial")}, swaperr.KindQuoteNetwork},
		{"status", &httpx.StatusError{StatusCode: 500, Body: []byte(`{"error":"boom"}`)}, swaperr.KindQuoteBackendRejected},
		{"no route status", &httpx.StatusError{StatusCode: 400, Body: []byte(`{"error":"Could not find any route"}`)}, swaperr.KindNoRoute},
		{"decode", &httpx.DecodeError{Err: errors.New("bad json")}, swaperr.KindQuoteBackendRejected},
		{"typed passthrough", swaperr.New(swaperr.KindNoRoute, "none"), swaperr.KindNoRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(Config{Chain: models.ChainSolana}, map[models.Backend]Source{
				models.BackendAggregator: &fakeSource{err: tt.err},
			})
			_, err := c.GetQuote(context.Background(), models.BackendAggregator, Request{InputToken: "A", OutputToken: "B", Amount: "1"})
			assert.Equal(t, tt.want, swaperr.KindOf(err))
		})
	}
}

func TestHumanToBaseUnits(t *testing.T) {
	v, err := HumanToBaseUnits("1.5", 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), v)

	v, err = HumanToBaseUnits("0.0000000019", 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v, "sub-unit remainder is floored")

	_, err = HumanToBaseUnits("0", 9)
	assert.Error(t, err)
	_, err = HumanToBaseUnits("-1", 9)
	assert.Error(t, err)
	_, err = HumanToBaseUnits("abc", 9)
	assert.Error(t, err)
	_, err = HumanToBaseUnits("100000000000000", 9)
	assert.Error(t, err)
}

func TestImpactPctToBps(t *testing.T) {
	assert.Equal(t, int64(12), ImpactPctToBps("0.12"))
	assert.Equal(t, int64(150), ImpactPctToBps(json.Number("1.5")))
	assert.Equal(t, int64(0), ImpactPctToBps(""))
	assert.Equal(t, int64(0), ImpactPctToBps(nil))
}

func TestParseBaseUnits(t *testing.T) {
	v, err := ParseBaseUnits("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), v)

	v, err = ParseBaseUnits(json.Number("250"))
	require.NoError(t, err)
	assert.Equal(t, uint64(250), v)

	_, err = ParseBaseUnits(nil)
	assert.Error(t, err)
	_, err = ParseBaseUnits(1.5)
	assert.Error(t, err)
}

func TestNormalizeMint(t *testing.T) {
	assert.Equal(t, "So11111111111111111111111111111111111111112", NormalizeMint("11111111111111111111111111111111"))
	assert.Equal(t, "X", NormalizeMint("X"))
}

func TestFirstOfAndDecodeObject(t *testing.T) {
	m, err := DecodeObject([]byte(`{"outputAmount":"5","amountOut":null}`))
	require.NoError(t, err)
	assert.Equal(t, "5", String(FirstOf(m, "outAmount", "amountOut", "outputAmount")))

	_, err = DecodeObject([]byte(`null`))
	assert.Error(t, err)
}
