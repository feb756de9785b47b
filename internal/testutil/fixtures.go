package testutil

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
	"github.com/stretchr/testify/require"
)

// BoardSize is the number of cells of the tic-tac-toe board used in tests
const BoardSize = 9

// Board builds a board from the given cells, padding with empty cells up to BoardSize
func Board(cells ...float64) []float64 {
	board := make([]float64, BoardSize)
	copy(board, cells)
	return board
}

// Move creates a turn with a recorded choice
func Move(player int, board []float64, choice int, valid bool) trajectory.Turn {
	c := choice
	return trajectory.Turn{
		Player:  player,
		Board:   board,
		Choice:  &c,
		IsValid: valid,
	}
}

// Observation creates a valid turn without a recorded choice
func Observation(player int, board []float64) trajectory.Turn {
	return trajectory.Turn{
		Player:  player,
		Board:   board,
		IsValid: true,
	}
}

// NewMatch creates a match from its outcome fields and history
func NewMatch(winner int, status string, history ...trajectory.Turn) *trajectory.Match {
	return &trajectory.Match{
		Winner:  winner,
		Status:  status,
		History: history,
	}
}

// ScenarioWin is a three-move match won by player 1 with its last move
func ScenarioWin() *trajectory.Match {
	return NewMatch(1, "Player1 wins!",
		Move(1, Board(), 0, true),
		Move(2, Board(1), 4, true),
		Move(1, Board(1, 0, 0, 0, 2), 8, true),
	)
}

// ScenarioDisqualified is a match ending with an illegal move by player 1
func ScenarioDisqualified() *trajectory.Match {
	return NewMatch(trajectory.NoPlayer, "Player1 disqualified!",
		Move(1, Board(0, 0, 0, 0, 2), 4, false),
	)
}

// EncodeMatch renders a match in the engine's session log format
func EncodeMatch(t testing.TB, m *trajectory.Match) []byte {
	t.Helper()

	history := make([]map[string]interface{}, 0, len(m.History))
	for _, turn := range m.History {
		entry := map[string]interface{}{
			"player":  turn.Player,
			"board":   turn.Board,
			"isValid": turn.IsValid,
		}
		if turn.Choice != nil {
			entry["choice"] = *turn.Choice
		}
		history = append(history, entry)
	}

	doc := map[string]interface{}{
		"status":  m.Status,
		"history": history,
	}
	if m.HasWinner() {
		doc["winner"] = m.Winner
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

// WriteSessionLog writes m where the engine would have written the session's result
func WriteSessionLog(t testing.TB, dir string, epoch, session int, m *trajectory.Match) string {
	t.Helper()

	path := trajectory.SessionPath(dir, epoch, session)
	require.NoError(t, os.WriteFile(path, EncodeMatch(t, m), 0644))
	return path
}
