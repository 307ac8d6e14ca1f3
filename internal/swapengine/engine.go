package swapengine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/broadcast"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/metrics"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/quote"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/route"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/txbuild"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/wallet"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Pipeline is the set of stage components serving one chain.
type Pipeline struct {
	Chain models.Chain
	// DesignatedToken routes any pair containing it to the dedicated AMM.
	DesignatedToken string
	Quotes          *quote.Client
	Builder         *txbuild.Requester
	Signer          *wallet.Signer
	Broadcaster     *broadcast.Broadcaster
	PriorityFee     uint64
}

// Gate lets an operator pause new attempts. *flags.Store satisfies it.
type Gate interface {
	SwapsHalted(ctx context.Context, chain models.Chain) (bool, string, error)
}

type Config struct {
	Pipelines    []*Pipeline
	DefaultChain models.Chain
	// Sink and Gate are optional.
	Sink           EventSink
	Gate           Gate
	MaxSlippageBps uint16
	Logger         *logrus.Logger
	Now            func() time.Time
}

// Engine is the only entry point callers use to quote and swap.
type Engine struct {
	pipelines    map[models.Chain]*Pipeline
	defaultChain models.Chain
	sink         EventSink
	gate         Gate
	maxSlippage  uint16
	logger       *logrus.Logger
	now          func() time.Time
	bus          *eventBus

	mu       sync.RWMutex
	attempts map[string]*Attempt
	wg       sync.WaitGroup
}

func NewEngine(cfg Config) (*Engine, error) {
	if len(cfg.Pipelines) == 0 {
		return nil, fmt.Errorf("at least one chain pipeline is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxSlippageBps == 0 {
		cfg.MaxSlippageBps = 1000
	}

	pipelines := make(map[models.Chain]*Pipeline, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		if p == nil || p.Quotes == nil || p.Builder == nil || p.Signer == nil || p.Broadcaster == nil {
			return nil, fmt.Errorf("pipeline for %q is incomplete", chainOf(p))
		}
		if p.DesignatedToken != "" && !p.Quotes.Supports(models.BackendDedicatedAmm) {
			return nil, fmt.Errorf("pipeline for %s has a designated token but no dedicated AMM source", p.Chain)
		}
		if _, dup := pipelines[p.Chain]; dup {
			return nil, fmt.Errorf("duplicate pipeline for %s", p.Chain)
		}
		pipelines[p.Chain] = p
	}
	if cfg.DefaultChain == "" {
		cfg.DefaultChain = cfg.Pipelines[0].Chain
	}
	if _, ok := pipelines[cfg.DefaultChain]; !ok {
		return nil, fmt.Errorf("default chain %s has no pipeline", cfg.DefaultChain)
	}

	return &Engine{
		pipelines:    pipelines,
		defaultChain: cfg.DefaultChain,
		sink:         cfg.Sink,
		gate:         cfg.Gate,
		maxSlippage:  cfg.MaxSlippageBps,
		logger:       cfg.Logger,
		now:          cfg.Now,
		bus:          newEventBus(cfg.Logger),
		attempts:     make(map[string]*Attempt),
	}, nil
}

func chainOf(p *Pipeline) models.Chain {
	if p == nil {
		return ""
	}
	return p.Chain
}

func (e *Engine) Chains() []models.Chain {
	out := make([]models.Chain, 0, len(e.pipelines))
	for c := range e.pipelines {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultChain serves requests that name no chain.
func (e *Engine) DefaultChain() models.Chain {
	return e.defaultChain
}

func (e *Engine) pipeline(chain models.Chain) (*Pipeline, error) {
	if chain == "" {
		chain = e.defaultChain
	}
	p, ok := e.pipelines[chain]
	if !ok {
		return nil, swaperr.New(swaperr.KindInvalidRequest, fmt.Sprintf("unsupported chain %q", chain))
	}
	return p, nil
}

// Route returns the backend a pair is served by on chain.
func (e *Engine) Route(chain models.Chain, input, output string) (models.Backend, error) {
	p, err := e.pipeline(chain)
	if err != nil {
		return "", err
	}
	return route.SelectBackend(strings.TrimSpace(input), strings.TrimSpace(output), p.DesignatedToken), nil
}

// Quote selects the backend for the pair and fetches one quote.
func (e *Engine) Quote(ctx context.Context, req QuoteRequest) (models.Quote, error) {
	p, err := e.pipeline(req.Chain)
	if err != nil {
		return models.Quote{}, err
	}
	req = req.normalized()
	if err := e.validate(req); err != nil {
		return models.Quote{}, err
	}
	return e.quote(ctx, p, req)
}

// quote expects req already normalized.
func (e *Engine) quote(ctx context.Context, p *Pipeline, req QuoteRequest) (models.Quote, error) {
	backend := route.SelectBackend(req.InputToken, req.OutputToken, p.DesignatedToken)
	return p.Quotes.GetQuote(ctx, backend, quote.Request{
		InputToken:  req.InputToken,
		OutputToken: req.OutputToken,
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
}

// Start creates an attempt and runs it in the background. Only Cancel can
// stop it; ctx supplies values, not cancellation.
func (e *Engine) Start(ctx context.Context, req SwapRequest, h *wallet.Handle) (string, error) {
	a, p, err := e.newAttempt(context.WithoutCancel(ctx), req, h)
	if err != nil {
		return "", err
	}
	e.launch(a, p, h)
	return a.id, nil
}

// ExecuteSwap runs a full attempt and blocks until it is Confirmed or
// Failed. Cancelling ctx before submission fails the attempt as cancelled;
// after submission the attempt is left to resolve.
func (e *Engine) ExecuteSwap(ctx context.Context, req SwapRequest, h *wallet.Handle) (AttemptView, error) {
	a, p, err := e.newAttempt(ctx, req, h)
	if err != nil {
		return AttemptView{}, err
	}
	e.launch(a, p, h)
	<-a.done

	v := a.View()
	if v.Status == StatusFailed {
		a.mu.Lock()
		err := a.err
		a.mu.Unlock()
		return v, err
	}
	return v, nil
}

func (e *Engine) newAttempt(ctx context.Context, req SwapRequest, h *wallet.Handle) (*Attempt, *Pipeline, error) {
	if h == nil {
		return nil, nil, swaperr.New(swaperr.KindInvalidRequest, "wallet handle is required")
	}
	p, err := e.pipeline(req.Chain)
	if err != nil {
		return nil, nil, err
	}
	req.QuoteRequest = req.QuoteRequest.normalized()
	if err := e.validate(req.QuoteRequest); err != nil {
		return nil, nil, err
	}
	req.Chain = p.Chain
	if err := e.checkGate(ctx, p.Chain); err != nil {
		return nil, nil, err
	}
	if req.PriorityFeeMicroLamports == 0 {
		req.PriorityFeeMicroLamports = p.PriorityFee
	}

	a := newAttempt(ctx, uuid.NewString(), req, h.Address(), e.now())
	e.mu.Lock()
	e.attempts[a.id] = a
	e.mu.Unlock()

	metrics.AttemptTransitions.WithLabelValues(string(p.Chain), string(StatusCreated)).Inc()
	e.logger.WithFields(logrus.Fields{
		"attempt": a.id,
		"chain":   p.Chain,
		"wallet":  h,
		"input":   req.InputToken,
		"output":  req.OutputToken,
	}).Info("swap attempt created")
	return a, p, nil
}

func (e *Engine) checkGate(ctx context.Context, chain models.Chain) error {
	if e.gate == nil {
		return nil
	}
	halted, reason, err := e.gate.SwapsHalted(ctx, chain)
	if err != nil {
		e.logger.WithError(err).WithField("chain", chain).Warn("halt switch unavailable, allowing swap")
		return nil
	}
	if halted {
		msg := fmt.Sprintf("swaps are halted on %s", chain)
		if reason != "" {
			msg += ": " + reason
		}
		return swaperr.New(swaperr.KindInvalidRequest, msg)
	}
	return nil
}

func (e *Engine) launch(a *Attempt, p *Pipeline, h *wallet.Handle) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer a.finish()
		e.run(a, p, h)
	}()
}

// run drives one attempt through quote, build, sign and broadcast.
func (e *Engine) run(a *Attempt, p *Pipeline, h *wallet.Handle) {
	ctx := a.ctx
	req := a.req

	q, err := e.quote(ctx, p, req.QuoteRequest)
	if err != nil {
		e.fail(a, err)
		return
	}
	a.setQuote(q)
	e.advance(a, StatusQuoted, models.EventQuoted, "")

	unsigned, err := p.Builder.BuildTransactions(ctx, q, h.Address(), req.PriorityFeeMicroLamports)
	if err != nil {
		e.fail(a, err)
		return
	}
	e.advance(a, StatusBuilt, models.EventBuilt, fmt.Sprintf("%d transaction(s)", len(unsigned.Transactions)))

	signed, err := p.Signer.Sign(ctx, unsigned, h)
	if err != nil {
		e.fail(a, err)
		return
	}
	e.advance(a, StatusSigned, models.EventSigned, "")

	if err := a.beginSubmit(); err != nil {
		e.fail(a, err)
		return
	}
	// From here on the caller can no longer strand an in-flight transaction.
	sctx := context.WithoutCancel(ctx)

	var last string
	_, err = p.Broadcaster.Broadcast(sctx, signed, a.sigs, broadcast.Hooks{
		OnSubmitted: func(i int, sig string) {
			last = sig
			e.advanceSig(a, StatusSubmitted, models.EventSubmitted, sig,
				fmt.Sprintf("transaction %d of %d", i+1, len(signed.Transactions)))
		},
	})
	if err != nil {
		e.fail(a, err)
		return
	}
	e.advanceSig(a, StatusConfirmed, models.EventConfirmed, last, "")
}

func (e *Engine) advance(a *Attempt, to AttemptStatus, typ models.SwapEventType, msg string) {
	e.advanceSig(a, to, typ, "", msg)
}

func (e *Engine) advanceSig(a *Attempt, to AttemptStatus, typ models.SwapEventType, sig, msg string) {
	if err := a.transition(to, e.now()); err != nil {
		e.logger.WithError(err).WithField("attempt", a.id).Error("dropping transition")
		return
	}
	metrics.AttemptTransitions.WithLabelValues(string(a.chain), string(to)).Inc()
	e.logger.WithFields(logrus.Fields{
		"attempt":   a.id,
		"status":    to,
		"signature": sig,
	}).Info("swap attempt advanced")
	e.emit(a, typ, to, sig, "", msg)
	if to.Terminal() {
		a.finish()
	}
}

func (e *Engine) fail(a *Attempt, err error) {
	serr, ok := swaperr.As(err)
	switch {
	case a.cancelledBeforeSubmit() || (!ok && errors.Is(err, context.Canceled)):
		serr = swaperr.Wrap(swaperr.KindCancelled, "swap cancelled before submission", err)
	case !ok:
		serr = swaperr.Wrap(swaperr.KindInvalidRequest, err.Error(), err)
	}
	if serr.Signature == "" {
		if sigs := a.sigs.List(); len(sigs) > 0 {
			serr = serr.WithSignature(sigs[len(sigs)-1])
		}
	}

	if !a.fail(serr, e.now()) {
		return
	}
	metrics.AttemptTransitions.WithLabelValues(string(a.chain), string(StatusFailed)).Inc()
	metrics.AttemptFailures.WithLabelValues(string(a.chain), string(serr.Kind)).Inc()
	e.logger.WithFields(logrus.Fields{
		"attempt":   a.id,
		"kind":      serr.Kind,
		"signature": serr.Signature,
		"sent":      serr.Sent(),
	}).WithError(serr).Warn("swap attempt failed")
	e.emit(a, models.EventFailed, StatusFailed, serr.Signature, serr.Kind, serr.Message)
	a.finish()
}

func (e *Engine) emit(a *Attempt, typ models.SwapEventType, status AttemptStatus, sig string, kind swaperr.Kind, msg string) {
	a.mu.Lock()
	ev := models.SwapEvent{
		AttemptID: a.id,
		Type:      typ,
		Status:    string(status),
		Chain:     a.chain,
		Backend:   a.backend,
		TokenIn:   a.req.InputToken,
		TokenOut:  a.req.OutputToken,
		Signature: sig,
		ErrorKind: string(kind),
		Message:   msg,
		Timestamp: e.now(),
	}
	a.mu.Unlock()

	e.bus.publish(ev)
	if e.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := e.sink.PublishEvent(ctx, ev); err != nil {
			e.logger.WithError(err).WithField("attempt", a.id).Warn("failed to forward swap event")
		}
		cancel()
	}
}

// Subscribe returns a channel of every attempt's events and a func that
// ends the subscription.
func (e *Engine) Subscribe() (<-chan models.SwapEvent, func()) {
	return e.bus.subscribe()
}

// Cancel stops an attempt that has not reached submission.
func (e *Engine) Cancel(id string) error {
	a, ok := e.lookup(id)
	if !ok {
		return ErrAttemptNotFound
	}
	if err := a.requestCancel(); err != nil {
		return err
	}
	e.logger.WithField("attempt", id).Info("swap attempt cancel requested")
	return nil
}

func (e *Engine) Attempt(id string) (AttemptView, error) {
	a, ok := e.lookup(id)
	if !ok {
		return AttemptView{}, ErrAttemptNotFound
	}
	return a.View(), nil
}

// Wait blocks until attempt id is terminal or ctx ends.
func (e *Engine) Wait(ctx context.Context, id string) (AttemptView, error) {
	a, ok := e.lookup(id)
	if !ok {
		return AttemptView{}, ErrAttemptNotFound
	}
	select {
	case <-a.done:
		return a.View(), nil
	case <-ctx.Done():
		return a.View(), ctx.Err()
	}
}

// Attempts lists the session's attempts, newest first.
func (e *Engine) Attempts() []AttemptView {
	e.mu.RLock()
	out := make([]AttemptView, 0, len(e.attempts))
	for _, a := range e.attempts {
		out = append(out, a.View())
	}
	e.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (e *Engine) lookup(id string) (*Attempt, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.attempts[id]
	return a, ok
}

// Close waits for running attempts and ends all subscriptions.
func (e *Engine) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("attempts still running: %w", ctx.Err())
	}
	e.bus.close()
	return err
}
