package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
)

// EventRepository persists the reconciliation audit trail.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Create appends one reconciliation event.
func (r *EventRepository) Create(ctx context.Context, ev *models.ReconcileEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	query := `
		INSERT INTO reconcile.reconcile_events (id, user_id, order_id, action, status, message)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		ev.ID, ev.UserID, ev.OrderID, ev.Action, ev.Status, ev.Message,
	)
	if err != nil {
		return fmt.Errorf("insert reconcile event: %w", err)
	}

	return nil
}

// GetByOrderID retrieves the trail for one order, newest first.
func (r *EventRepository) GetByOrderID(ctx context.Context, orderID string, limit int) ([]*models.ReconcileEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, order_id, action, status, message, created_at
		FROM reconcile.reconcile_events
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("query reconcile events: %w", err)
	}
	defer rows.Close()

	var events []*models.ReconcileEvent
	for rows.Next() {
		ev := &models.ReconcileEvent{}
		err := rows.Scan(&ev.ID, &ev.UserID, &ev.OrderID, &ev.Action, &ev.Status, &ev.Message, &ev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan reconcile event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// Record appends best-effort. The trail exists for support staff; losing an
// entry must never break reconciliation itself.
func (r *EventRepository) Record(ctx context.Context, userID, orderID, action, status, message string) {
	ev := &models.ReconcileEvent{
		UserID:  userID,
		OrderID: orderID,
		Action:  action,
		Status:  status,
		Message: message,
	}
	if err := r.Create(ctx, ev); err != nil {
		log.Printf("[EventRepo] record %s for order %s: %v", action, orderID, err)
	}
}
