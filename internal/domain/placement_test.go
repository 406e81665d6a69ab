package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo_HappyPath(t *testing.T) {
	assert.True(t, CanTransitionTo(PlacementStatusValidating, PlacementStatusCreating))
	assert.True(t, CanTransitionTo(PlacementStatusCreating, PlacementStatusFinalizing))
	assert.True(t, CanTransitionTo(PlacementStatusFinalizing, PlacementStatusCompleted))
}

func TestCanTransitionTo_FailedFromAnyNonTerminal(t *testing.T) {
	assert.True(t, CanTransitionTo(PlacementStatusValidating, PlacementStatusFailed))
	assert.True(t, CanTransitionTo(PlacementStatusCreating, PlacementStatusFailed))
	assert.True(t, CanTransitionTo(PlacementStatusFinalizing, PlacementStatusFailed))
}

func TestCanTransitionTo_NoSkippingStates(t *testing.T) {
	assert.False(t, CanTransitionTo(PlacementStatusValidating, PlacementStatusFinalizing))
	assert.False(t, CanTransitionTo(PlacementStatusValidating, PlacementStatusCompleted))
	assert.False(t, CanTransitionTo(PlacementStatusCreating, PlacementStatusCompleted))
}

func TestCanTransitionTo_TerminalStatesAreFinal(t *testing.T) {
	assert.False(t, CanTransitionTo(PlacementStatusCompleted, PlacementStatusFailed))
	assert.False(t, CanTransitionTo(PlacementStatusFailed, PlacementStatusValidating))
	assert.True(t, PlacementStatusCompleted.IsTerminal())
	assert.True(t, PlacementStatusFailed.IsTerminal())
	assert.False(t, PlacementStatusCreating.IsTerminal())
}
