package trajectory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// NoPlayer marks the absence of a winner (draw, disqualification or a
// missing winner field).
const NoPlayer = 0

var (
	// ErrMalformedLog is returned when a session log misses a required field
	ErrMalformedLog = errors.New("malformed session log")
)

// Turn is one recorded ply of a match
type Turn struct {
	Player  int
	Board   []float64
	Choice  *int
	IsValid bool
}

// HasChoice reports whether the mover recorded an action for this turn
func (t Turn) HasChoice() bool {
	return t.Choice != nil
}

// Match is one completed self-play game as written by the engine
type Match struct {
	Winner  int
	Status  string
	History []Turn
}

// HasWinner reports whether the match ended with a winning player
func (m *Match) HasWinner() bool {
	return m.Winner != NoPlayer
}

// Partition splits the history into valid and invalid turns, keeping the
// original order within each.
func (m *Match) Partition() (valid, invalid []Turn) {
	for _, turn := range m.History {
		if turn.IsValid {
			valid = append(valid, turn)
		} else {
			invalid = append(invalid, turn)
		}
	}
	return valid, invalid
}

// rawTurn and rawMatch mirror the engine's JSON so missing fields can be
// told apart from zero values.
type rawTurn struct {
	Player  *int      `json:"player"`
	Board   []float64 `json:"board"`
	Choice  *int      `json:"choice"`
	IsValid *bool     `json:"isValid"`
}

type rawMatch struct {
	Winner  *int      `json:"winner"`
	Status  *string   `json:"status"`
	History []rawTurn `json:"history"`
}

// Decode reads a single session log
func Decode(r io.Reader) (*Match, error) {
	var raw rawMatch
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLog, err)
	}

	if raw.Status == nil {
		return nil, fmt.Errorf("%w: missing status", ErrMalformedLog)
	}
	if raw.History == nil {
		return nil, fmt.Errorf("%w: missing history", ErrMalformedLog)
	}

	m := &Match{
		Winner:  NoPlayer,
		Status:  *raw.Status,
		History: make([]Turn, 0, len(raw.History)),
	}
	if raw.Winner != nil {
		m.Winner = *raw.Winner
	}

	for i, rt := range raw.History {
		switch {
		case rt.Player == nil:
			return nil, fmt.Errorf("%w: turn %d missing player", ErrMalformedLog, i)
		case rt.Board == nil:
			return nil, fmt.Errorf("%w: turn %d missing board", ErrMalformedLog, i)
		case rt.IsValid == nil:
			return nil, fmt.Errorf("%w: turn %d missing isValid", ErrMalformedLog, i)
		}
		m.History = append(m.History, Turn{
			Player:  *rt.Player,
			Board:   rt.Board,
			Choice:  rt.Choice,
			IsValid: *rt.IsValid,
		})
	}

	return m, nil
}

// LoadMatch opens and decodes the session log at path
func LoadMatch(path string) (*Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}
