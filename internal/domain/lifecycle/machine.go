// Package lifecycle encodes the check status state machine.
//
// pending is the only non-terminal state: it can move to used (redemption),
// expired (lazy finalize or sweeper) or cancelled (operator action). The
// printed flag is tracked independently on the check and never participates
// in these transitions.
package lifecycle

import (
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
)

var transitions = map[entity.CheckStatus]map[Trigger]entity.CheckStatus{
	entity.CheckStatusPending: {
		TriggerRedeem: entity.CheckStatusUsed,
		TriggerExpire: entity.CheckStatusExpired,
		TriggerCancel: entity.CheckStatusCancelled,
	},
}

var terminalStatuses = map[entity.CheckStatus]bool{
	entity.CheckStatusUsed:      true,
	entity.CheckStatusExpired:   true,
	entity.CheckStatusCancelled: true,
}

// IsTerminal returns true if no transition leaves the given status
func IsTerminal(status entity.CheckStatus) bool {
	return terminalStatuses[status]
}

// Machine tracks the current status of a single check and validates
// transitions against the lifecycle table.
type Machine struct {
	current entity.CheckStatus
}

// NewMachine creates a machine positioned at the given status
func NewMachine(status entity.CheckStatus) *Machine {
	return &Machine{current: status}
}

// Status returns the current status
func (m *Machine) Status() entity.CheckStatus {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current status
func (m *Machine) CanFire(trigger Trigger) bool {
	targets, ok := transitions[m.current]
	if !ok {
		return false
	}
	_, ok = targets[trigger]
	return ok
}

// Fire attempts the trigger, advancing to the new status if the transition
// is legal. An illegal attempt returns InvalidStateError carrying the
// blocking status, and the machine stays put.
func (m *Machine) Fire(trigger Trigger) (entity.CheckStatus, error) {
	targets, ok := transitions[m.current]
	if !ok {
		return m.current, &entity.InvalidStateError{Status: m.current}
	}

	next, ok := targets[trigger]
	if !ok {
		return m.current, &entity.InvalidStateError{Status: m.current}
	}

	m.current = next
	return next, nil
}

// PermittedTriggers returns all triggers that can be fired in the current status
func (m *Machine) PermittedTriggers() []Trigger {
	targets, ok := transitions[m.current]
	if !ok {
		return nil
	}

	triggers := make([]Trigger, 0, len(targets))
	for trigger := range targets {
		triggers = append(triggers, trigger)
	}
	return triggers
}
