package models

import "time"

// PendingPurchaseTTL bounds how long a pending-purchase marker is trusted.
// A marker older than this is stale: either the backend finished long ago or
// the purchase never completed, and prompting the user about it again would
// only confuse them.
const PendingPurchaseTTL = 10 * time.Minute

// PendingPurchase is the durable marker written immediately after the payment
// gateway reports authorization success, before any polling starts. It lets a
// deep-link return or a background sweep recover the purchase intent after the
// app was suspended or killed mid-flow.
//
// At most one record exists per user (single slot, not a queue). Records are
// never mutated, only replaced or deleted.
type PendingPurchase struct {
	OrderID   string    `json:"order_id"`
	PlanID    string    `json:"plan_id"`
	PlanName  string    `json:"plan_name"`
	IsTopUp   bool      `json:"is_top_up"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the marker is past its TTL at the given time.
func (p *PendingPurchase) Expired(now time.Time) bool {
	return now.Sub(p.CreatedAt) > PendingPurchaseTTL
}
