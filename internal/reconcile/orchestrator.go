package reconcile

import (
	"context"
	"log"
	"sync"

	"github.com/roamsim/esim-platform/reconcile-service/internal/config"
	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
)

// PaymentAuthorizer is the external payment step. It renders the payment
// sheet on the gateway side, creates the backend order, and reports the
// authorization outcome with the order id attached.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, intent models.PurchaseIntent) (*models.AuthorizationResult, error)
}

// PendingStore is the single-slot pending-purchase marker. Implementations
// swallow storage failures: every method degrades to "treat as absent"
// rather than erroring, so storage unavailability can never crash a purchase.
type PendingStore interface {
	Store(ctx context.Context, userID string, rec *models.PendingPurchase)
	Get(ctx context.Context, userID string) *models.PendingPurchase
	Clear(ctx context.Context, userID string)
}

// ReferralStore holds the one-time referral discount marker for a user.
type ReferralStore interface {
	SaveReferral(ctx context.Context, userID, code string)
	Referral(ctx context.Context, userID string) string
	ClearReferral(ctx context.Context, userID string)
}

// EventRecorder appends to the reconciliation audit trail, best-effort.
type EventRecorder interface {
	Record(ctx context.Context, userID, orderID, action, status, message string)
}

// Notifier publishes terminal reconciliation outcomes for downstream
// consumers such as the push-notification service.
type Notifier interface {
	PublishOutcome(userID, orderID, outcome, planName string)
}

// Orchestrator sequences a foreground purchase: payment authorization,
// pending-marker creation, and a short interactive poll, falling back to
// background resolution when provisioning outlives the interactive budget.
type Orchestrator struct {
	payments  PaymentAuthorizer
	pending   PendingStore
	referrals ReferralStore
	poller    *Poller
	events    EventRecorder
	notifier  Notifier
	quick     config.PollPolicy

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewOrchestrator(
	payments PaymentAuthorizer,
	pending PendingStore,
	referrals ReferralStore,
	poller *Poller,
	events EventRecorder,
	notifier Notifier,
	quick config.PollPolicy,
) *Orchestrator {
	return &Orchestrator{
		payments:  payments,
		pending:   pending,
		referrals: referrals,
		poller:    poller,
		events:    events,
		notifier:  notifier,
		quick:     quick,
		inFlight:  make(map[string]bool),
	}
}

// Purchase runs the Buy Now flow for one user. It always returns a terminal
// UI outcome; there is no error path the shell has to handle separately.
func (o *Orchestrator) Purchase(ctx context.Context, intent models.PurchaseIntent) models.PurchaseResponse {
	userID := intent.UserID

	// A purchase already in flight is a no-op, not a queued second attempt.
	if !o.begin(userID) {
		return models.PurchaseResponse{
			Outcome: models.OutcomeInFlight,
			Message: "A purchase is already in progress",
		}
	}
	defer o.end(userID)

	if code := o.referrals.Referral(ctx, userID); code != "" {
		intent.ReferralCode = code
	}

	o.events.Record(ctx, userID, "", models.ActionPurchaseStarted, models.StatusPending,
		"purchase started for plan "+intent.PlanID)

	auth, err := o.payments.Authorize(ctx, intent)
	if err != nil {
		log.Printf("[Orchestrator] payment authorization for user %s: %v", userID, err)
		return models.PurchaseResponse{
			Outcome: models.OutcomeFailed,
			Message: "Payment could not be completed. You have not been charged.",
			Support: true,
		}
	}

	if !auth.Success {
		if auth.Cancelled {
			o.events.Record(ctx, userID, auth.OrderID, models.ActionPurchaseCancelled, "", "user cancelled payment")
			return models.PurchaseResponse{Outcome: models.OutcomeCancelled}
		}
		return models.PurchaseResponse{
			Outcome: models.OutcomeFailed,
			Message: auth.Error,
			Support: true,
		}
	}

	// The marker goes in before the first poll so a resumption signal
	// arriving mid-poll can still recover the purchase intent.
	o.pending.Store(ctx, userID, &models.PendingPurchase{
		OrderID:  auth.OrderID,
		PlanID:   intent.PlanID,
		PlanName: intent.PlanName,
		IsTopUp:  intent.IsTopUp,
	})
	o.events.Record(ctx, userID, auth.OrderID, models.ActionPurchaseAuthorized, models.StatusPending,
		"payment authorized, polling for provisioning")

	res := o.poller.Poll(ctx, auth.OrderID, PollOptionsFromPolicy(o.quick))

	switch {
	case res.Success:
		o.pending.Clear(ctx, userID)
		o.referrals.ClearReferral(ctx, userID)
		o.events.Record(ctx, userID, auth.OrderID, models.ActionPollReady, res.Order.Status, "provisioning complete")
		o.notifier.PublishOutcome(userID, auth.OrderID, models.OutcomeReady, intent.PlanName)
		return models.PurchaseResponse{
			Outcome: models.OutcomeReady,
			OrderID: auth.OrderID,
			Order:   res.Order,
			Message: "Your eSIM is ready to install",
		}

	case res.Inconclusive():
		// Not an error: a timed-out poll means provisioning exceeded the
		// interactive wait, a cancelled one means the app went away mid-wait.
		// Either way the order may still succeed, so the pending marker stays
		// for a deep link or the background sweep to finish the job.
		o.events.Record(ctx, userID, auth.OrderID, models.ActionPollTimeout, lastStatus(res.Order),
			"interactive poll ended before a terminal status")
		return models.PurchaseResponse{
			Outcome: models.OutcomePreparing,
			OrderID: auth.OrderID,
			Message: "Your eSIM is still being prepared. It will appear on your dashboard shortly.",
		}

	default:
		o.pending.Clear(ctx, userID)
		o.events.Record(ctx, userID, auth.OrderID, models.ActionPollFailed, lastStatus(res.Order), res.Err)
		o.notifier.PublishOutcome(userID, auth.OrderID, models.OutcomeFailed, intent.PlanName)
		return models.PurchaseResponse{
			Outcome: models.OutcomeFailed,
			OrderID: auth.OrderID,
			Message: res.Err,
			Support: true,
		}
	}
}

func (o *Orchestrator) begin(userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[userID] {
		return false
	}
	o.inFlight[userID] = true
	return true
}

func (o *Orchestrator) end(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, userID)
}

func lastStatus(order *models.Order) string {
	if order == nil {
		return ""
	}
	return order.Status
}
