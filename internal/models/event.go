package models

import "time"

// Reconciliation event actions.
const (
	ActionPurchaseStarted    = "purchase_started"
	ActionPurchaseAuthorized = "purchase_authorized"
	ActionPurchaseCancelled  = "purchase_cancelled"
	ActionPollReady          = "poll_ready"
	ActionPollFailed         = "poll_failed"
	ActionPollTimeout        = "poll_timeout"
	ActionDeepLinkRecovered  = "deeplink_recovered"
	ActionDeepLinkNotFound   = "deeplink_order_not_found"
	ActionSweepStarted       = "sweep_started"
)

// ReconcileEvent is one audit entry in the reconciliation trail for an order.
// Support staff read this trail when a user reports that an eSIM never showed
// up after payment.
type ReconcileEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	OrderID   string    `json:"order_id"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
