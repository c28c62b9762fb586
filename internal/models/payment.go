package models

// PurchaseIntent is the snapshot of what the user asked to buy, passed to the
// payment gateway at authorization time.
type PurchaseIntent struct {
	UserID        string `json:"user_id"`
	PlanID        string `json:"plan_id"`
	PlanName      string `json:"plan_name"`
	IsTopUp       bool   `json:"is_top_up"`
	PaymentMethod string `json:"payment_method"`
	ReferralCode  string `json:"referral_code,omitempty"`
}

// AuthorizationResult is the payment gateway's answer to an authorization
// attempt. The gateway creates the backend order as part of authorization, so
// a successful result always carries the order id.
type AuthorizationResult struct {
	Success   bool   `json:"success"`
	Cancelled bool   `json:"cancelled"`
	OrderID   string `json:"order_id"`
	Error     string `json:"error,omitempty"`
}
