package training

import (
	"fmt"
	"time"
)

// Phase is the step of the epoch loop the driver is executing
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSyncingTarget
	PhaseSelfPlaying
	PhaseBuildingMemories
	PhaseTraining
	PhasePersisting
	PhaseReporting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSyncingTarget:
		return "syncing-target"
	case PhaseSelfPlaying:
		return "self-playing"
	case PhaseBuildingMemories:
		return "building-memories"
	case PhaseTraining:
		return "training"
	case PhasePersisting:
		return "persisting"
	case PhaseReporting:
		return "reporting"
	default:
		return "unknown"
	}
}

// AllowedTransitions returns the phases that may follow p. Every phase may
// drop back to idle when the run ends or fails.
func (p Phase) AllowedTransitions() []Phase {
	switch p {
	case PhaseIdle:
		return []Phase{PhaseSyncingTarget}
	case PhaseSyncingTarget:
		return []Phase{PhaseSelfPlaying, PhaseIdle}
	case PhaseSelfPlaying:
		return []Phase{PhaseBuildingMemories, PhaseIdle}
	case PhaseBuildingMemories:
		return []Phase{PhaseTraining, PhaseIdle}
	case PhaseTraining:
		return []Phase{PhasePersisting, PhaseIdle}
	case PhasePersisting:
		return []Phase{PhaseReporting, PhaseIdle}
	case PhaseReporting:
		return []Phase{PhaseSyncingTarget, PhaseIdle}
	default:
		return []Phase{}
	}
}

// CanTransitionTo checks if the driver may move from p to target
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}

// Transition is one entry of the driver's phase history
type Transition struct {
	Epoch     int
	From      Phase
	To        Phase
	Timestamp time.Time
}

// maxTransitions bounds the kept phase history
const maxTransitions = 1000

type transitionLog struct {
	entries []Transition
}

func (l *transitionLog) add(t Transition) {
	l.entries = append(l.entries, t)

	// Keep the most recent entries
	if len(l.entries) > maxTransitions {
		l.entries = l.entries[len(l.entries)-maxTransitions:]
	}
}

func (l *transitionLog) snapshot() []Transition {
	out := make([]Transition, len(l.entries))
	copy(out, l.entries)
	return out
}

func invalidTransition(from, to Phase) error {
	return fmt.Errorf("invalid transition from %s to %s", from, to)
}
