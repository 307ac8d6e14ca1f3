package swapengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
)

var (
	ErrAttemptNotFound  = errors.New("swap attempt not found")
	ErrAlreadySubmitted = errors.New("swap attempt already submitted, it cannot be cancelled")
	ErrAttemptFinished  = errors.New("swap attempt already finished")
)

// next lists the states reachable from each state. Failed is reachable from
// every non-terminal state; Submitted repeats once per transaction in a set.
var next = map[AttemptStatus][]AttemptStatus{
	StatusCreated:   {StatusQuoted, StatusFailed},
	StatusQuoted:    {StatusBuilt, StatusFailed},
	StatusBuilt:     {StatusSigned, StatusFailed},
	StatusSigned:    {StatusSubmitted, StatusFailed},
	StatusSubmitted: {StatusSubmitted, StatusConfirmed, StatusFailed},
}

func CanTransition(from, to AttemptStatus) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Attempt owns one swap's quote, transactions and signatures. Nothing in it
// is shared with other attempts.
type Attempt struct {
	mu sync.Mutex

	id      string
	chain   models.Chain
	wallet  string
	req     SwapRequest
	status  AttemptStatus
	backend models.Backend
	quote   *models.Quote
	sigs    *models.SignatureLog
	err     *swaperr.Error

	createdAt time.Time
	updatedAt time.Time

	ctx        context.Context
	cancel     context.CancelFunc
	submitting bool
	cancelled  bool
	done       chan struct{}
	finishOnce sync.Once
}

func newAttempt(ctx context.Context, id string, req SwapRequest, wallet string, now time.Time) *Attempt {
	actx, cancel := context.WithCancel(ctx)
	return &Attempt{
		id:        id,
		chain:     req.Chain,
		wallet:    wallet,
		req:       req,
		status:    StatusCreated,
		sigs:      models.NewSignatureLog(),
		createdAt: now,
		updatedAt: now,
		ctx:       actx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (a *Attempt) ID() string { return a.id }

func (a *Attempt) Status() AttemptStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Done is closed once the attempt is Confirmed or Failed.
func (a *Attempt) Done() <-chan struct{} { return a.done }

func (a *Attempt) transition(to AttemptStatus, now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transitionLocked(to, now)
}

func (a *Attempt) transitionLocked(to AttemptStatus, now time.Time) error {
	if !CanTransition(a.status, to) {
		return fmt.Errorf("invalid attempt transition %s -> %s", a.status, to)
	}
	a.status = to
	a.updatedAt = now
	return nil
}

// finish releases the attempt's context and wakes waiters. It runs after
// the terminal event has been emitted.
func (a *Attempt) finish() {
	a.finishOnce.Do(func() {
		a.cancel()
		close(a.done)
	})
}

func (a *Attempt) setQuote(q models.Quote) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quote = &q
	a.backend = q.Backend
}

func (a *Attempt) fail(err *swaperr.Error, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status.Terminal() {
		return false
	}
	a.err = err
	return a.transitionLocked(StatusFailed, now) == nil
}

// beginSubmit marks the point after which cancellation is refused.
func (a *Attempt) beginSubmit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelled {
		return context.Canceled
	}
	if err := a.ctx.Err(); err != nil {
		return err
	}
	a.submitting = true
	return nil
}

func (a *Attempt) requestCancel() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.status.Terminal():
		return ErrAttemptFinished
	case a.submitting:
		return ErrAlreadySubmitted
	}
	a.cancelled = true
	a.cancel()
	return nil
}

// cancelledBeforeSubmit reports whether Cancel or the caller's context
// stopped the attempt ahead of submission.
func (a *Attempt) cancelledBeforeSubmit() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled || (!a.submitting && a.ctx.Err() != nil)
}

func (a *Attempt) View() AttemptView {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := AttemptView{
		ID:         a.id,
		Chain:      a.chain,
		Backend:    a.backend,
		Status:     a.status,
		Wallet:     a.wallet,
		Request:    a.req,
		Signatures: a.sigs.List(),
		CreatedAt:  a.createdAt,
		UpdatedAt:  a.updatedAt,
	}
	if a.quote != nil {
		q := *a.quote
		v.Quote = &q
	}
	if a.err != nil {
		v.Error = &AttemptError{
			Kind:      string(a.err.Kind),
			Stage:     string(a.err.Kind.Stage()),
			Message:   a.err.Message,
			Signature: a.err.Signature,
			Sent:      a.err.Sent(),
		}
	}
	return v
}
