package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/common"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/experience"
)

// EpochRecord summarizes one training epoch
type EpochRecord struct {
	Epoch           int           `json:"epoch"`
	P1Wins          int           `json:"p1_wins"`
	P2Wins          int           `json:"p2_wins"`
	Draws           int           `json:"game_draws"`
	P1Disqualified  int           `json:"p1_dq"`
	P2Disqualified  int           `json:"p2_dq"`
	ExplorationRate float64       `json:"exploration_rate"`
	AvgLoss         float64       `json:"avg_loss"`
	Memories        int           `json:"memories"`
	Duration        time.Duration `json:"duration_ns"`
}

// NewEpochRecord builds a record from the epoch's outcome counts and losses
func NewEpochRecord(epoch int, counts experience.OutcomeCounts, explorationRate float64, losses []float64) EpochRecord {
	return EpochRecord{
		Epoch:           epoch,
		P1Wins:          counts.P1Wins,
		P2Wins:          counts.P2Wins,
		Draws:           counts.Draws,
		P1Disqualified:  counts.P1Disqualified,
		P2Disqualified:  counts.P2Disqualified,
		ExplorationRate: explorationRate,
		AvgLoss:         common.Mean(losses),
		Memories:        len(losses),
	}
}

// History is the ordered record of every epoch of a run
type History struct {
	RunID       string        `json:"run_id"`
	MaxEpochs   int           `json:"max_epochs"`
	MaxSessions int           `json:"max_sessions"`
	StartedAt   time.Time     `json:"started_at"`
	Epochs      []EpochRecord `json:"epochs"`
}

// NewHistory creates an empty history for a run
func NewHistory(runID string, maxEpochs, maxSessions int) *History {
	return &History{
		RunID:       runID,
		MaxEpochs:   maxEpochs,
		MaxSessions: maxSessions,
		StartedAt:   time.Now().UTC(),
		Epochs:      make([]EpochRecord, 0, maxEpochs),
	}
}

// Append adds the record of a finished epoch
func (h *History) Append(rec EpochRecord) {
	h.Epochs = append(h.Epochs, rec)
}

// Len returns the number of recorded epochs
func (h *History) Len() int {
	return len(h.Epochs)
}

// Save writes the complete history to path, replacing the previous file
func (h *History) Save(path string) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}
	return common.WriteFileAtomic(path, data)
}

// Load reads a history written by Save
func Load(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to decode statistics %s: %w", path, err)
	}
	return &h, nil
}
