package store

import (
	"context"
	"log"
)

const referralKeyPrefix = "reconcile:referral:"

// ReferralStore holds the one-time referral discount code captured from a
// referral deep link. Same degradation rule as the pending store: failures
// are logged and swallowed, a lost referral code is never worth a crash.
type ReferralStore struct {
	kv KV
}

func NewReferralStore(kv KV) *ReferralStore {
	return &ReferralStore{kv: kv}
}

func referralKey(userID string) string {
	return referralKeyPrefix + userID
}

// SaveReferral stores the normalized code, overwriting any prior one.
func (s *ReferralStore) SaveReferral(ctx context.Context, userID, code string) {
	if err := s.kv.Set(ctx, referralKey(userID), code); err != nil {
		log.Printf("[ReferralStore] save referral for user %s: %v", userID, err)
	}
}

// Referral returns the stored code, or empty when absent.
func (s *ReferralStore) Referral(ctx context.Context, userID string) string {
	code, err := s.kv.Get(ctx, referralKey(userID))
	if err != nil {
		log.Printf("[ReferralStore] read referral for user %s: %v", userID, err)
		return ""
	}
	return code
}

// ClearReferral removes the code after it has been consumed by a purchase.
func (s *ReferralStore) ClearReferral(ctx context.Context, userID string) {
	if err := s.kv.Del(ctx, referralKey(userID)); err != nil {
		log.Printf("[ReferralStore] clear referral for user %s: %v", userID, err)
	}
}
