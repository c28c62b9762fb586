package models

import (
	"fmt"
	"time"
)

// Order status vocabulary reported by the provisioning backend.
const (
	StatusPending      = "pending"
	StatusPaid         = "paid"
	StatusProvisioning = "provisioning"
	StatusCompleted    = "completed"
	StatusActive       = "active"
	StatusFailed       = "failed"
	StatusCancelled    = "cancelled"
	StatusRevoked      = "revoked"
	StatusRefunded     = "refunded"
	StatusDepleted     = "depleted"
	StatusExpired      = "expired"
)

// Order is the read-only view of a backend order record. The backend owns the
// lifecycle; this service only observes it.
type Order struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	PlanID         string    `json:"plan_id,omitempty"`
	PlanName       string    `json:"plan_name,omitempty"`
	Status         string    `json:"status"`
	ActivationCode string    `json:"activation_code,omitempty"`
	SMDPAddress    string    `json:"smdp_address,omitempty"`
	IsTopUp        bool      `json:"is_top_up,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Provisioned reports whether the order carries usable activation credentials.
// The activation code is only usable together with the SM-DP+ address, so a
// "completed" order missing either field is not actually installable yet.
func (o *Order) Provisioned() bool {
	return o != nil && o.ActivationCode != "" && o.SMDPAddress != ""
}

// FailureMessage maps a terminal order status to the message shown to the user.
func FailureMessage(status string) string {
	switch status {
	case StatusFailed:
		return "Order failed"
	case StatusCancelled:
		return "Order was cancelled"
	case StatusRevoked:
		return "Order was revoked"
	case StatusRefunded:
		return "Order was refunded"
	case StatusDepleted:
		return "Plan data has been used up"
	case StatusExpired:
		return "Plan has expired"
	default:
		return fmt.Sprintf("Order is in an unexpected state: %s", status)
	}
}
