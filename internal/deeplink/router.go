package deeplink

import (
	"context"
	"fmt"
	"log"

	"github.com/roamsim/esim-platform/reconcile-service/internal/config"
	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
	"github.com/roamsim/esim-platform/reconcile-service/internal/reconcile"
)

// Navigation targets the mobile shell knows how to execute.
const (
	NavDashboard = "dashboard"
	NavInstall   = "install"
)

// Navigator and Alerter are implemented by the delivery layer; the router
// only decides what the user sees next. Every processed link ends in a
// terminal UI action; the user is never left on an indeterminate screen.
type Navigator interface {
	NavigateTo(target string)
}

type Alerter interface {
	Info(title, message string)
	Error(title, message string)
}

// Router interprets external re-entry signals (the payment provider's 3DS
// return link, referral links, top-up success links) and decides which
// recovery action to take, consulting the pending-purchase slot and
// re-invoking the poller as needed.
type Router struct {
	orders    reconcile.OrderFetcher
	pending   reconcile.PendingStore
	referrals reconcile.ReferralStore
	poller    *reconcile.Poller
	events    reconcile.EventRecorder
	notifier  reconcile.Notifier
	quick     config.PollPolicy
}

func NewRouter(
	orders reconcile.OrderFetcher,
	pending reconcile.PendingStore,
	referrals reconcile.ReferralStore,
	poller *reconcile.Poller,
	events reconcile.EventRecorder,
	notifier reconcile.Notifier,
	quick config.PollPolicy,
) *Router {
	return &Router{
		orders:    orders,
		pending:   pending,
		referrals: referrals,
		poller:    poller,
		events:    events,
		notifier:  notifier,
		quick:     quick,
	}
}

// Handle dispatches one delivered URL for a user. Cold-start and warm-open
// deliveries are treated identically.
func (r *Router) Handle(ctx context.Context, userID, rawURL string, nav Navigator, alerts Alerter) {
	cmd := Parse(rawURL)

	switch cmd.Kind {
	case KindPaymentReturn:
		r.Recover(ctx, userID, r.quick, nav, alerts)

	case KindReferral:
		// Independent branch: never touches the pending slot, never fetches
		// an order.
		r.referrals.SaveReferral(ctx, userID, cmd.ReferralCode)
		nav.NavigateTo(NavDashboard)

	case KindTopUpSuccess:
		alerts.Info("Top-up complete", "Your top-up was successful and your data has been added.")
		nav.NavigateTo(NavDashboard)

	default:
		log.Printf("[DeepLink] unrecognized link for user %s: %q", userID, rawURL)
	}
}

// Recover runs the payment-return transition table against the current
// pending-purchase state. It is shared by the deep-link path (quick budget)
// and the internal background sweep (long budget).
func (r *Router) Recover(ctx context.Context, userID string, policy config.PollPolicy, nav Navigator, alerts Alerter) {
	pending := r.pending.Get(ctx, userID)
	if pending == nil {
		// Nothing to recover.
		nav.NavigateTo(NavDashboard)
		return
	}

	order, err := r.orders.GetOrder(ctx, pending.OrderID)
	if err != nil || order == nil {
		// Terminal on this path, unlike the generic poller: a 3DS return for
		// an order the backend does not know about will not become findable
		// by waiting, and leaving the marker would re-prompt on every link.
		log.Printf("[DeepLink] order %s not found for user %s: %v", pending.OrderID, userID, err)
		r.pending.Clear(ctx, userID)
		r.events.Record(ctx, userID, pending.OrderID, models.ActionDeepLinkNotFound, "",
			"pending order not found on payment return")
		alerts.Error("Order not found",
			"We could not find your recent order. If you were charged, please contact support.")
		nav.NavigateTo(NavDashboard)
		return
	}

	switch {
	case reconcile.PaidOrLater(order.Status):
		// The only point at which the marker is retired on a success path.
		r.pending.Clear(ctx, userID)
		r.events.Record(ctx, userID, order.ID, models.ActionDeepLinkRecovered, order.Status,
			"payment confirmed on return")
		r.finishPaid(userID, pending, order, nav, alerts)

	case order.Status == models.StatusPending:
		// Absorb the last few seconds of backend processing with one bounded
		// quick poll, then clear the marker: it must not become a recurring
		// prompt on every future link open. A cancelled poll spent no budget
		// and learned nothing, so the marker survives for the next signal.
		res := r.poller.Poll(ctx, pending.OrderID, reconcile.PollOptionsFromPolicy(policy))
		if !res.Cancelled {
			r.pending.Clear(ctx, userID)
		}

		switch {
		case res.Success, res.Order != nil && reconcile.PaidOrLater(res.Order.Status):
			r.events.Record(ctx, userID, order.ID, models.ActionDeepLinkRecovered, res.Order.Status,
				"payment confirmed after quick poll")
			r.finishPaid(userID, pending, res.Order, nav, alerts)
		case res.Inconclusive():
			alerts.Info("Payment processing",
				"Your order is still being processed. Check your dashboard in a few minutes.")
			nav.NavigateTo(NavDashboard)
		default:
			r.failTerminal(ctx, userID, pending, res.Order, res.Err, nav, alerts)
		}

	default:
		// failed / cancelled / revoked / refunded / depleted / expired
		r.pending.Clear(ctx, userID)
		r.failTerminal(ctx, userID, pending, order, models.FailureMessage(order.Status), nav, alerts)
	}
}

func (r *Router) finishPaid(userID string, pending *models.PendingPurchase, order *models.Order, nav Navigator, alerts Alerter) {
	if pending.IsTopUp {
		alerts.Info("Top-up complete", fmt.Sprintf("%s has been added to your plan.", pending.PlanName))
		nav.NavigateTo(NavDashboard)
		return
	}

	if reconcile.Classify(order) == reconcile.Ready {
		r.notifier.PublishOutcome(userID, order.ID, models.OutcomeReady, pending.PlanName)
		nav.NavigateTo(NavInstall)
		return
	}

	alerts.Info("Payment received",
		"Your eSIM is still being prepared. It will appear on your dashboard shortly.")
	nav.NavigateTo(NavDashboard)
}

func (r *Router) failTerminal(ctx context.Context, userID string, pending *models.PendingPurchase, order *models.Order, msg string, nav Navigator, alerts Alerter) {
	orderID := pending.OrderID
	status := ""
	if order != nil {
		orderID = order.ID
		status = order.Status
	}
	r.events.Record(ctx, userID, orderID, models.ActionPollFailed, status, msg)
	r.notifier.PublishOutcome(userID, orderID, models.OutcomeFailed, pending.PlanName)

	// Depleted/expired plans ended their lifecycle; that is information, not
	// an error tone.
	if reconcile.Classify(order) == reconcile.Stopped {
		alerts.Info("Plan update", msg)
	} else {
		alerts.Error("Purchase problem", msg)
	}
	nav.NavigateTo(NavDashboard)
}
