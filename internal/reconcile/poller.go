package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/roamsim/esim-platform/reconcile-service/internal/config"
	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
)

// OrderFetcher is the read side of the backend order API.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// PollOptions controls one polling loop invocation.
type PollOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// OnStatusUpdate fires after every successful fetch. It is invoked
	// fire-and-forget: it never blocks the loop and a panic inside it is
	// recovered, so caller-side UI bugs cannot abort reconciliation.
	OnStatusUpdate func(order *models.Order)
}

// PollOptionsFromPolicy builds options from a configured budget.
func PollOptionsFromPolicy(p config.PollPolicy) PollOptions {
	return PollOptions{
		MaxAttempts:  p.MaxAttempts,
		InitialDelay: p.InitialDelay,
		MaxDelay:     p.MaxDelay,
	}
}

// PollResult is the structured outcome of a polling loop. Poll never returns
// a Go error: callers are UI layers that must always be able to render some
// outcome. TimedOut and Cancelled are both inconclusive, not evidence of
// failure: TimedOut means the budget ran out while the order was still in
// flight, Cancelled means the caller's context ended the loop early. Only a
// result with neither flag set and Success false reflects a bad order status.
type PollResult struct {
	Success   bool          `json:"success"`
	Order     *models.Order `json:"order,omitempty"`
	Err       string        `json:"error,omitempty"`
	Attempts  int           `json:"attempts"`
	TimedOut  bool          `json:"timed_out"`
	Cancelled bool          `json:"cancelled,omitempty"`
}

// Inconclusive reports whether the loop ended without learning the order's
// fate. Callers keep the pending marker on an inconclusive result so a later
// signal can still finish the job.
func (r PollResult) Inconclusive() bool {
	return r.TimedOut || r.Cancelled
}

// Poller repeatedly fetches one order's status with exponential backoff until
// a terminal or ready state is reached or the retry budget runs out.
type Poller struct {
	orders OrderFetcher
}

func NewPoller(orders OrderFetcher) *Poller {
	return &Poller{orders: orders}
}

// Poll runs the loop for one order. Attempts are strictly sequential and
// 1-indexed; the first attempt has no pre-delay. Fetch failures, including
// "order not found", spend the same budget as a still-pending order: from
// the caller's perspective a flaky network is indistinguishable from a slow
// backend.
func (p *Poller) Poll(ctx context.Context, orderID string, opts PollOptions) PollResult {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}
	if opts.MaxDelay < opts.InitialDelay {
		opts.MaxDelay = opts.InitialDelay
	}

	var last *models.Order

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return PollResult{Order: last, Err: "polling cancelled", Attempts: attempt - 1, Cancelled: true}
			case <-time.After(backoffDelay(opts.InitialDelay, opts.MaxDelay, attempt-1)):
			}
		}

		order, err := p.orders.GetOrder(ctx, orderID)
		if err != nil {
			log.Printf("[Poller] order %s attempt %d/%d: %v", orderID, attempt, opts.MaxAttempts, err)
			continue
		}

		last = order
		notifyStatus(opts.OnStatusUpdate, order)

		switch Classify(order) {
		case Ready:
			return PollResult{Success: true, Order: order, Attempts: attempt}
		case Failed, Stopped:
			return PollResult{Order: order, Err: models.FailureMessage(order.Status), Attempts: attempt}
		}
	}

	return PollResult{Order: last, Attempts: opts.MaxAttempts, TimedOut: true, Err: "timed out waiting for order"}
}

// backoffDelay returns the wait inserted after the given 1-indexed attempt:
// initialDelay doubled per completed attempt, capped at maxDelay.
func backoffDelay(initial, max time.Duration, attempt int) time.Duration {
	d := initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func notifyStatus(fn func(*models.Order), order *models.Order) {
	if fn == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Poller] status callback panicked: %v", r)
			}
		}()
		fn(order)
	}()
}
