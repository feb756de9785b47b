package experience

import "github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"

// State is the mover together with the board it faced
type State struct {
	Player int
	Board  []float64
}

// Equal reports whether two states have the same mover and board
func (s State) Equal(o State) bool {
	if s.Player != o.Player || len(s.Board) != len(o.Board) {
		return false
	}
	for i := range s.Board {
		if s.Board[i] != o.Board[i] {
			return false
		}
	}
	return true
}

// Memory is one learning example. NextState is nil for terminal examples.
type Memory struct {
	State     State
	Action    int
	Reward    float64
	NextState *State
}

// Terminal reports whether the example has no successor state
func (m Memory) Terminal() bool {
	return m.NextState == nil
}

func stateOf(turn trajectory.Turn) State {
	return State{Player: turn.Player, Board: turn.Board}
}

// BuildMemories converts one match into learning examples and classifies
// its outcome.
//
// Valid turns come first in their original order, each linked to the next
// valid turn. Invalid turns follow, always terminal with the invalid-move
// penalty. Turns without a recorded choice are skipped.
func BuildMemories(m *trajectory.Match) ([]Memory, Outcome) {
	valid, invalid := m.Partition()
	memories := make([]Memory, 0, len(valid)+len(invalid))

	maxTurns := len(valid)
	for i, turn := range valid {
		if !turn.HasChoice() {
			continue
		}

		turnsLeft := maxTurns - i
		mem := Memory{
			State:  stateOf(turn),
			Action: *turn.Choice,
			Reward: Reward(turn, m.Winner, turnsLeft),
		}
		if turnsLeft > 1 {
			next := stateOf(valid[i+1])
			mem.NextState = &next
		}
		memories = append(memories, mem)
	}

	for _, turn := range invalid {
		if !turn.HasChoice() {
			continue
		}
		memories = append(memories, Memory{
			State:  stateOf(turn),
			Action: *turn.Choice,
			Reward: RewardInvalidMove,
		})
	}

	return memories, ClassifyOutcome(m)
}
