package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
)

const pendingKeyPrefix = "reconcile:pending:"

// PendingStore persists the single-slot pending-purchase marker per user.
//
// Every method swallows storage failures and logs them: the marker is a
// recovery aid, not a correctness-critical ledger, so storage unavailability
// degrades to "treat as absent" rather than breaking the purchase flow.
type PendingStore struct {
	kv KV

	now func() time.Time
}

func NewPendingStore(kv KV) *PendingStore {
	return &PendingStore{kv: kv, now: time.Now}
}

func pendingKey(userID string) string {
	return pendingKeyPrefix + userID
}

// Store writes the marker with a freshly assigned creation timestamp,
// overwriting any prior record. Last write wins; there is no merge.
func (s *PendingStore) Store(ctx context.Context, userID string, rec *models.PendingPurchase) {
	stamped := *rec
	stamped.CreatedAt = s.now()

	data, err := json.Marshal(stamped)
	if err != nil {
		log.Printf("[PendingStore] marshal pending purchase for user %s: %v", userID, err)
		return
	}

	if err := s.kv.Set(ctx, pendingKey(userID), string(data)); err != nil {
		log.Printf("[PendingStore] store pending purchase for user %s: %v", userID, err)
	}
}

// Get returns the marker, or nil when absent, unreadable, or expired. An
// expired marker is deleted as a side effect; expiry is lazy, there is no
// background timer.
func (s *PendingStore) Get(ctx context.Context, userID string) *models.PendingPurchase {
	raw, err := s.kv.Get(ctx, pendingKey(userID))
	if err != nil {
		log.Printf("[PendingStore] read pending purchase for user %s: %v", userID, err)
		return nil
	}
	if raw == "" {
		return nil
	}

	var rec models.PendingPurchase
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Printf("[PendingStore] corrupt pending purchase for user %s: %v", userID, err)
		s.Clear(ctx, userID)
		return nil
	}

	if rec.Expired(s.now()) {
		s.Clear(ctx, userID)
		return nil
	}

	return &rec
}

// Clear removes the marker. Idempotent; clearing an empty slot is fine.
func (s *PendingStore) Clear(ctx context.Context, userID string) {
	if err := s.kv.Del(ctx, pendingKey(userID)); err != nil {
		log.Printf("[PendingStore] clear pending purchase for user %s: %v", userID, err)
	}
}
