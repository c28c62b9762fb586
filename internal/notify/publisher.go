package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// OutcomeEvent announces a terminal reconciliation outcome. The notification
// service consumes these to push "your eSIM is ready" when provisioning
// finishes after the user has left the app.
type OutcomeEvent struct {
	UserID     string    `json:"user_id"`
	OrderID    string    `json:"order_id"`
	Outcome    string    `json:"outcome"`
	PlanName   string    `json:"plan_name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OutcomePublisher publishes outcome events over NATS. When no NATS URL is
// configured the publisher is a no-op, so local development does not need a
// broker.
type OutcomePublisher struct {
	conn    *nats.Conn
	subject string
	enabled bool
}

func NewOutcomePublisher(natsURL, subject string) (*OutcomePublisher, error) {
	if natsURL == "" {
		log.Println("[Notify] NATS URL not configured, outcome publisher disabled")
		return &OutcomePublisher{enabled: false}, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[Notify] NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[Notify] NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("[Notify] Connected to NATS, publishing outcomes on %s", subject)

	return &OutcomePublisher{
		conn:    conn,
		subject: subject,
		enabled: true,
	}, nil
}

// PublishOutcome sends one event, best-effort. Outcome delivery is a
// convenience for downstream consumers, never a reason to fail reconciliation.
func (p *OutcomePublisher) PublishOutcome(userID, orderID, outcome, planName string) {
	if !p.enabled {
		return
	}

	ev := OutcomeEvent{
		UserID:     userID,
		OrderID:    orderID,
		Outcome:    outcome,
		PlanName:   planName,
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Notify] marshal outcome event: %v", err)
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		log.Printf("[Notify] publish outcome for order %s: %v", orderID, err)
	}
}

func (p *OutcomePublisher) Close() {
	if p.enabled && p.conn != nil {
		p.conn.Close()
	}
}
