package client

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
)

// PaymentClient talks to the payment gateway. Authorization is the app-leaving
// step: the gateway drives the card/wallet sheet and any 3DS redirect, creates
// the backend order, and reports the final outcome here.
type PaymentClient struct {
	rc *resty.Client
}

func NewPaymentClient(baseURL, internalKey string) *PaymentClient {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(90 * time.Second).
		SetHeader("X-Internal-Secret", internalKey)

	return &PaymentClient{rc: rc}
}

// Authorize runs one payment authorization for the given intent.
func (c *PaymentClient) Authorize(ctx context.Context, intent models.PurchaseIntent) (*models.AuthorizationResult, error) {
	log.Printf("[PaymentClient] authorizing payment for user %s, plan %s", intent.UserID, intent.PlanID)

	var result models.AuthorizationResult

	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(intent).
		SetResult(&result).
		Post("/api/internal/payments/authorize")
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("payment-gateway returned status %d", resp.StatusCode())
	}

	return &result, nil
}
