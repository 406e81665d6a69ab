package domain

// PlacementStatus tracks an order placement attempt through its workflow.
type PlacementStatus string

const (
	PlacementStatusValidating PlacementStatus = "VALIDATING"
	PlacementStatusCreating   PlacementStatus = "CREATING"
	PlacementStatusFinalizing PlacementStatus = "FINALIZING"
	PlacementStatusCompleted  PlacementStatus = "COMPLETED"
	PlacementStatusFailed     PlacementStatus = "FAILED"
)

func (s PlacementStatus) IsTerminal() bool {
	return s == PlacementStatusCompleted || s == PlacementStatusFailed
}

// String representation (for logging)
func (s PlacementStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the placement workflow may move from one
// status to another. FAILED is reachable from every non-terminal status.
func CanTransitionTo(from, to PlacementStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == PlacementStatusFailed {
		return true
	}
	switch from {
	case PlacementStatusValidating:
		return to == PlacementStatusCreating
	case PlacementStatusCreating:
		return to == PlacementStatusFinalizing
	case PlacementStatusFinalizing:
		return to == PlacementStatusCompleted
	}
	return false
}
