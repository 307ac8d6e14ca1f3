package swapengine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/broadcast"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/quote"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/rpc"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txbuild"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txcodec"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txcodec/txtest"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls   atomic.Int32
	started chan struct{}
	block   bool
}

func (f *fakeSource) QuoteSwap(ctx context.Context, req quote.Request) (models.Quote, error) {
	f.calls.Add(1)
	if f.block {
		close(f.started)
		<-ctx.Done()
		return models.Quote{}, ctx.Err()
	}
	return models.Quote{
		InputAmount:  1_000_000_000,
		OutputAmount: 150_000_000,
		RoutePlan:    []models.Hop{{Venue: "Whirlpool"}},
	}, nil
}

type fakeBuilder struct {
	calls    atomic.Int32
	payloads []string
}

func (f *fakeBuilder) SwapTransactions(context.Context, txbuild.Request) ([]string, error) {
	f.calls.Add(1)
	return f.payloads, nil
}

type fakeNode struct {
	mu      sync.Mutex
	sent    []string
	errs    map[int]error
	confirm bool
}

func (f *fakeNode) SendTransaction(_ context.Context, payload []byte, _ rpc.SendOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.sent)
	d := txcodec.Decode(payload)
	sig := ""
	if d.Tx != nil {
		sig = txcodec.FirstSignature(d.Tx)
	}
	f.sent = append(f.sent, sig)
	if err := f.errs[idx]; err != nil {
		return "", err
	}
	return sig, nil
}

func (f *fakeNode) GetSignatureStatuses(_ context.Context, sigs ...string) ([]*rpc.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*rpc.SignatureStatus, len(sigs))
	if f.confirm {
		for i := range sigs {
			out[i] = &rpc.SignatureStatus{ConfirmationStatus: "confirmed", Err: json.RawMessage("null")}
		}
	}
	return out, nil
}

func (f *fakeNode) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type harness struct {
	engine     *Engine
	key        solana.PrivateKey
	handle     *wallet.Handle
	aggregator *fakeSource
	amm        *fakeSource
	aggBuild   *fakeBuilder
	ammBuild   *fakeBuilder
	node       *fakeNode
	buildClock func() time.Time
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	h := &harness{
		key:        key,
		handle:     wallet.NewLocalKeypairFromKey(key),
		aggregator: &fakeSource{started: make(chan struct{})},
		amm:        &fakeSource{started: make(chan struct{})},
		aggBuild:   &fakeBuilder{payloads: []string{txtest.UnsignedBase64(t, key.PublicKey(), true)}},
		ammBuild: &fakeBuilder{payloads: []string{
			txtest.UnsignedBase64(t, key.PublicKey(), false),
			txtest.UnsignedBase64(t, key.PublicKey(), false),
		}},
		node:       &fakeNode{confirm: true},
		buildClock: time.Now,
	}
	log := quietLogger()

	p := &Pipeline{
		Chain:           models.ChainSolana,
		DesignatedToken: constants.SolarTokenMint,
		Quotes: quote.NewClient(quote.Config{Chain: models.ChainSolana, Logger: log}, map[models.Backend]quote.Source{
			models.BackendAggregator:   h.aggregator,
			models.BackendDedicatedAmm: h.amm,
		}),
		Builder: txbuild.NewRequester(txbuild.Config{
			Now:    func() time.Time { return h.buildClock() },
			Logger: log,
		}, map[models.Backend]txbuild.Builder{
			models.BackendAggregator:   h.aggBuild,
			models.BackendDedicatedAmm: h.ammBuild,
		}),
		Signer: wallet.NewSigner(wallet.SignerConfig{Logger: log}),
		Broadcaster: broadcast.New(broadcast.Config{
			Node:           h.node,
			Logger:         log,
			RetryBackoff:   time.Millisecond,
			ConfirmTimeout: 150 * time.Millisecond,
			PollInitial:    5 * time.Millisecond,
			PollMax:        20 * time.Millisecond,
		}),
	}

	e, err := NewEngine(Config{Pipelines: []*Pipeline{p}, Logger: log})
	require.NoError(t, err)
	h.engine = e
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Close(ctx)
	})
	return h
}

func swapReq(in, out string) SwapRequest {
	return SwapRequest{QuoteRequest: QuoteRequest{
		InputToken:  in,
		OutputToken: out,
		Amount:      "1000000000",
		SlippageBps: 100,
	}}
}

func collect(ch <-chan models.SwapEvent, n int, timeout time.Duration) []models.SwapEvent {
	var out []models.SwapEvent
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			return out
		}
	}
	return out
}

func TestNewEngineRequiresDedicatedSourceForDesignatedToken(t *testing.T) {
	log := quietLogger()
	p := &Pipeline{
		Chain:           models.ChainEclipse,
		DesignatedToken: constants.SolarTokenMint,
		Quotes: quote.NewClient(quote.Config{Chain: models.ChainEclipse, Logger: log}, map[models.Backend]quote.Source{
			models.BackendAggregator: &fakeSource{started: make(chan struct{})},
		}),
		Builder:     txbuild.NewRequester(txbuild.Config{Logger: log}, map[models.Backend]txbuild.Builder{}),
		Signer:      wallet.NewSigner(wallet.SignerConfig{Logger: log}),
		Broadcaster: broadcast.New(broadcast.Config{Node: &fakeNode{}, Logger: log}),
	}
	_, err := NewEngine(Config{Pipelines: []*Pipeline{p}, Logger: log})
	assert.ErrorContains(t, err, "no dedicated AMM source")

	p.DesignatedToken = ""
	_, err = NewEngine(Config{Pipelines: []*Pipeline{p}, Logger: log})
	assert.NoError(t, err)
}

func TestCanTransition(t *testing.T) {
	all := []AttemptStatus{StatusCreated, StatusQuoted, StatusBuilt, StatusSigned, StatusSubmitted, StatusConfirmed, StatusFailed}

	for _, to := range all {
		assert.False(t, CanTransition(StatusConfirmed, to), "confirmed -> %s", to)
		assert.False(t, CanTransition(StatusFailed, to), "failed -> %s", to)
	}
	for _, from := range all {
		if from == StatusSigned || from == StatusSubmitted {
			continue
		}
		assert.False(t, CanTransition(from, StatusSubmitted), "%s -> submitted", from)
	}
	for _, from := range all[:5] {
		assert.True(t, CanTransition(from, StatusFailed), "%s -> failed", from)
	}
	assert.True(t, CanTransition(StatusSubmitted, StatusConfirmed))
	assert.False(t, CanTransition(StatusSigned, StatusConfirmed))
	assert.False(t, CanTransition(StatusBuilt, StatusQuoted))
}

func TestQuoteRoutesByDesignatedToken(t *testing.T) {
	h := newHarness(t)

	q, err := h.engine.Quote(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint).QuoteRequest)
	require.NoError(t, err)
	assert.Equal(t, models.BackendAggregator, q.Backend)

	q, err = h.engine.Quote(context.Background(), QuoteRequest{
		InputToken:  constants.NativeSentinelMint,
		OutputToken: constants.SolarTokenMint,
		Amount:      "1.5",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BackendDedicatedAmm, q.Backend)
	assert.Equal(t, int32(1), h.amm.calls.Load())

	// Padding around the designated mint must not push the pair to the aggregator.
	q, err = h.engine.Quote(context.Background(), QuoteRequest{
		InputToken:  constants.NativeSentinelMint,
		OutputToken: " " + constants.SolarTokenMint + "\t",
		Amount:      " 1.5 ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.BackendDedicatedAmm, q.Backend)
	assert.Equal(t, constants.SolarTokenMint, q.OutputToken)
	assert.Equal(t, int32(2), h.amm.calls.Load())
	assert.Equal(t, int32(1), h.aggregator.calls.Load())

	backend, err := h.engine.Route("", " "+constants.SolarTokenMint, constants.USDCMint)
	require.NoError(t, err)
	assert.Equal(t, models.BackendDedicatedAmm, backend)
}

func TestExecuteSwapStoresTrimmedRequest(t *testing.T) {
	h := newHarness(t)
	view, err := h.engine.ExecuteSwap(context.Background(),
		swapReq(" "+constants.WrappedSOLMint, constants.SolarTokenMint+" "), h.handle)
	require.NoError(t, err)
	assert.Equal(t, models.BackendDedicatedAmm, view.Backend)
	assert.Equal(t, constants.WrappedSOLMint, view.Request.InputToken)
	assert.Equal(t, constants.SolarTokenMint, view.Request.OutputToken)
	assert.Zero(t, h.aggregator.calls.Load())
}

func TestQuoteValidation(t *testing.T) {
	h := newHarness(t)
	cases := []QuoteRequest{
		{InputToken: "", OutputToken: constants.USDCMint, Amount: "1"},
		{InputToken: constants.USDCMint, OutputToken: constants.USDCMint, Amount: "1"},
		{InputToken: constants.WrappedSOLMint, OutputToken: constants.USDCMint, Amount: "0"},
		{InputToken: constants.WrappedSOLMint, OutputToken: constants.USDCMint, Amount: "abc"},
		{InputToken: constants.WrappedSOLMint, OutputToken: constants.USDCMint, Amount: "1", SlippageBps: 5000},
		{Chain: "bitcoin", InputToken: constants.WrappedSOLMint, OutputToken: constants.USDCMint, Amount: "1"},
	}
	for _, req := range cases {
		_, err := h.engine.Quote(context.Background(), req)
		assert.True(t, swaperr.Is(err, swaperr.KindInvalidRequest), "%+v", req)
	}
	assert.Zero(t, h.aggregator.calls.Load())
}

func TestExecuteSwapHappyPath(t *testing.T) {
	h := newHarness(t)
	events, unsubscribe := h.engine.Subscribe()
	defer unsubscribe()

	view, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, view.Status)
	assert.Equal(t, models.BackendAggregator, view.Backend)
	require.Len(t, view.Signatures, 1)
	assert.NotEmpty(t, view.Signatures[0])
	assert.Nil(t, view.Error)

	got := collect(events, 5, time.Second)
	var types []models.SwapEventType
	for _, ev := range got {
		types = append(types, ev.Type)
		assert.Equal(t, view.ID, ev.AttemptID)
	}
	assert.Equal(t, []models.SwapEventType{
		models.EventQuoted, models.EventBuilt, models.EventSigned, models.EventSubmitted, models.EventConfirmed,
	}, types)
	assert.Equal(t, view.Signatures[0], got[3].Signature)
	assert.Equal(t, view.Signatures[0], got[4].Signature)
}

func TestExecuteSwapDedicatedAmmSubmitsInOrder(t *testing.T) {
	h := newHarness(t)

	view, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.NativeSentinelMint, constants.SolarTokenMint), h.handle)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, view.Status)
	assert.Equal(t, models.BackendDedicatedAmm, view.Backend)
	require.Len(t, view.Signatures, 2)
	assert.Equal(t, h.node.sent, view.Signatures)
}

func TestExecuteSwapStopsAfterFirstFailure(t *testing.T) {
	h := newHarness(t)
	h.node.errs = map[int]error{0: &rpc.RPCError{Code: -32002, Message: "Transaction simulation failed"}}

	view, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.NativeSentinelMint, constants.SolarTokenMint), h.handle)
	assert.True(t, swaperr.Is(err, swaperr.KindSimulationFailed))
	assert.Equal(t, StatusFailed, view.Status)
	assert.Equal(t, 1, h.node.sendCount())
	assert.Empty(t, view.Signatures)
	require.NotNil(t, view.Error)
	assert.False(t, view.Error.Sent)
	assert.Equal(t, "submit", view.Error.Stage)
}

func TestExecuteSwapStaleQuote(t *testing.T) {
	h := newHarness(t)
	h.buildClock = func() time.Time { return time.Now().Add(10 * time.Minute) }

	view, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	assert.True(t, swaperr.Is(err, swaperr.KindQuoteExpired))
	assert.Equal(t, StatusFailed, view.Status)
	assert.Zero(t, h.aggBuild.calls.Load())
	assert.Zero(t, h.node.sendCount())
}

func TestExecuteSwapUserRejects(t *testing.T) {
	h := newHarness(t)
	ext, err := wallet.NewExternalSigner(h.key.PublicKey().String(), func(context.Context, []byte) ([]byte, error) {
		return nil, wallet.ErrUserRejected
	})
	require.NoError(t, err)

	view, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), ext)
	assert.True(t, swaperr.Is(err, swaperr.KindUserRejected))
	assert.Equal(t, StatusFailed, view.Status)
	assert.Empty(t, view.Signatures)
	assert.Zero(t, h.node.sendCount())
}

func TestExecuteSwapRequiresWallet(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), nil)
	assert.True(t, swaperr.Is(err, swaperr.KindInvalidRequest))
}

func TestCancelBeforeSubmission(t *testing.T) {
	h := newHarness(t)
	h.aggregator.block = true

	id, err := h.engine.Start(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	require.NoError(t, err)
	<-h.aggregator.started

	require.NoError(t, h.engine.Cancel(id))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	view, err := h.engine.Wait(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, view.Status)
	require.NotNil(t, view.Error)
	assert.Equal(t, string(swaperr.KindCancelled), view.Error.Kind)
	assert.Zero(t, h.node.sendCount())

	assert.ErrorIs(t, h.engine.Cancel(id), ErrAttemptFinished)
}

func TestCallerContextCancelsBeforeSubmission(t *testing.T) {
	h := newHarness(t)
	h.aggregator.block = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-h.aggregator.started
		cancel()
	}()

	view, err := h.engine.ExecuteSwap(ctx, swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	assert.True(t, swaperr.Is(err, swaperr.KindCancelled))
	assert.Equal(t, StatusFailed, view.Status)
}

func TestCancelRefusedAfterSubmission(t *testing.T) {
	h := newHarness(t)
	h.node.confirm = false
	events, unsubscribe := h.engine.Subscribe()
	defer unsubscribe()

	id, err := h.engine.Start(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	require.NoError(t, err)

	for ev := range events {
		if ev.Type == models.EventSubmitted {
			break
		}
	}
	assert.ErrorIs(t, h.engine.Cancel(id), ErrAlreadySubmitted)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	view, err := h.engine.Wait(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, view.Status)
	require.NotNil(t, view.Error)
	assert.Equal(t, string(swaperr.KindConfirmExpired), view.Error.Kind)
	assert.True(t, view.Error.Sent)
	require.Len(t, view.Signatures, 1)
	assert.Equal(t, view.Signatures[0], view.Error.Signature)
}

func TestAttemptLookup(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Attempt("missing")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	assert.ErrorIs(t, h.engine.Cancel("missing"), ErrAttemptNotFound)

	view, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	require.NoError(t, err)

	got, err := h.engine.Attempt(view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Status, got.Status)
	assert.Equal(t, h.key.PublicKey().String(), got.Wallet)
	assert.Len(t, h.engine.Attempts(), 1)
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.SwapEvent
}

func (r *recordingSink) PublishEvent(_ context.Context, ev models.SwapEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func TestEventsForwardedToSink(t *testing.T) {
	h := newHarness(t)
	sink := &recordingSink{}
	h.engine.sink = sink

	_, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	require.NoError(t, err)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 5)
	assert.Equal(t, models.EventConfirmed, sink.events[4].Type)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := newHarness(t)
	ch, unsubscribe := h.engine.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)
}

type haltGate struct {
	halted bool
	err    error
}

func (g haltGate) SwapsHalted(context.Context, models.Chain) (bool, string, error) {
	return g.halted, "maintenance", g.err
}

func TestHaltedChainRefusesSwaps(t *testing.T) {
	h := newHarness(t)
	h.engine.gate = haltGate{halted: true}

	_, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	e, ok := swaperr.As(err)
	require.True(t, ok)
	assert.Equal(t, swaperr.KindInvalidRequest, e.Kind)
	assert.Contains(t, e.Message, "maintenance")
	assert.Zero(t, h.aggregator.calls.Load())
	assert.Empty(t, h.engine.Attempts())
}

func TestHaltSwitchOutageFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.engine.gate = haltGate{err: assert.AnError}

	view, err := h.engine.ExecuteSwap(context.Background(), swapReq(constants.WrappedSOLMint, constants.USDCMint), h.handle)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, view.Status)
}
