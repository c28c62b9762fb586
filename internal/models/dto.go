package models

// PurchaseRequest is the mobile shell's "Buy Now" call.
type PurchaseRequest struct {
	PlanID        string `json:"plan_id" binding:"required"`
	PlanName      string `json:"plan_name"`
	IsTopUp       bool   `json:"is_top_up"`
	PaymentMethod string `json:"payment_method"`
}

// Purchase outcome vocabulary returned to the shell. Preparing is deliberately
// not an error: provisioning sometimes outlives the interactive wait even
// though it will still succeed.
const (
	OutcomeReady     = "ready"
	OutcomePreparing = "preparing"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeInFlight  = "in_flight"
)

// PurchaseResponse is the terminal UI action for a purchase attempt. Exactly
// one of the outcomes above is always reached; the shell never sees an
// unhandled error from this flow.
type PurchaseResponse struct {
	Outcome string `json:"outcome"`
	OrderID string `json:"order_id,omitempty"`
	Order   *Order `json:"order,omitempty"`
	Message string `json:"message,omitempty"`
	Support bool   `json:"support,omitempty"`
}

// DeepLinkRequest carries an externally delivered URL. Cold-start and warm
// opens are forwarded identically.
type DeepLinkRequest struct {
	URL string `json:"url" binding:"required"`
}

// Alert is a user-facing message the shell should present.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Tone    string `json:"tone"` // "info" or "error"
}

// DeepLinkResponse materializes the router's side effects for the shell to
// execute: navigate to the target, then show the alerts in order.
type DeepLinkResponse struct {
	Navigation string  `json:"navigation,omitempty"`
	Alerts     []Alert `json:"alerts,omitempty"`
}

// OrderStatusResponse pairs an order snapshot with the poll pre-check so a
// screen can decide whether to start its own polling effect.
type OrderStatusResponse struct {
	Order      *Order `json:"order"`
	ShouldPoll bool   `json:"should_poll"`
}

// PendingResponse wraps the single-slot pending purchase, nil when absent.
type PendingResponse struct {
	Pending *PendingPurchase `json:"pending"`
}
