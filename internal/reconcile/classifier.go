package reconcile

import "github.com/roamsim/esim-platform/reconcile-service/internal/models"

// Classification is the decision for one observed order snapshot.
type Classification int

const (
	// Continue means the order is still in flight and worth polling again.
	Continue Classification = iota
	// Ready means provisioning finished and the activation credentials are usable.
	Ready
	// Failed means the order reached a terminal state the user must be told about.
	Failed
	// Stopped means the plan lifecycle ended; terminal but not an error.
	Stopped
)

func (c Classification) String() string {
	switch c {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	default:
		return "continue"
	}
}

// Classify maps a raw order record to a polling decision. This table is the
// single authority shared by the poller and the ShouldPoll pre-check.
//
// A "completed" or "active" order missing either activation field is treated
// as not actually ready: the backend writes the status before the activation
// fields, and acting on the partial record would hand the user an
// uninstallable eSIM.
//
// Unknown statuses classify as Continue so that backend vocabulary additions
// degrade to a timeout instead of a hard failure.
func Classify(order *models.Order) Classification {
	if order == nil {
		return Continue
	}

	switch order.Status {
	case models.StatusCompleted, models.StatusActive:
		if order.Provisioned() {
			return Ready
		}
		return Continue
	case models.StatusFailed, models.StatusCancelled, models.StatusRevoked, models.StatusRefunded:
		return Failed
	case models.StatusDepleted, models.StatusExpired:
		return Stopped
	case models.StatusPending, models.StatusPaid, models.StatusProvisioning:
		return Continue
	default:
		return Continue
	}
}

// ShouldPoll reports whether an order can still change into a state worth
// waiting for. Terminal orders must never be re-entered into a fresh poll.
func ShouldPoll(order *models.Order) bool {
	return Classify(order) == Continue
}

// PaidOrLater reports whether the status confirms that payment reached the
// backend, i.e. the point at which a pending-purchase marker may be retired
// on a success path.
func PaidOrLater(status string) bool {
	switch status {
	case models.StatusPaid, models.StatusProvisioning, models.StatusCompleted, models.StatusActive:
		return true
	}
	return false
}
