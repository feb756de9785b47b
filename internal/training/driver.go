package training

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/common"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/experience"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/qlearning"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/stats"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
	"github.com/rs/zerolog"
)

// SelfPlayer generates the session logs of an epoch
type SelfPlayer interface {
	Play(ctx context.Context, epoch, sessions int, explorationRate float64) error
}

// MemoryBuilder converts an epoch's session logs into training data
type MemoryBuilder interface {
	Build(epoch, sessions int) (*experience.Batch, error)
}

// ModelServer is notified whenever a new checkpoint is available
type ModelServer interface {
	Reload(ctx context.Context) (map[string]interface{}, error)
}

// Config holds the epoch loop settings
type Config struct {
	MaxEpochs          int
	MaxSessions        int
	InitialExploration float64
	ExplorationDecay   float64
	OutputDir          string
	Cleanup            bool
	CheckpointPath     string
	StatsPath          string
}

// Driver runs the self-play training loop. It owns the learner and the
// statistics history for the lifetime of the run and is not safe for
// concurrent use.
type Driver struct {
	config  Config
	learner *qlearning.Learner
	player  SelfPlayer
	builder MemoryBuilder
	server  ModelServer
	history *stats.History
	logger  zerolog.Logger

	phase           Phase
	transitions     transitionLog
	explorationRate float64
	totals          experience.OutcomeCounts
}

// NewDriver wires the epoch loop together
func NewDriver(config Config, learner *qlearning.Learner, player SelfPlayer, builder MemoryBuilder,
	server ModelServer, history *stats.History, logger zerolog.Logger) *Driver {
	return &Driver{
		config:          config,
		learner:         learner,
		player:          player,
		builder:         builder,
		server:          server,
		history:         history,
		logger:          logger.With().Str("component", "epoch_driver").Logger(),
		phase:           PhaseIdle,
		explorationRate: config.InitialExploration,
	}
}

// Phase returns the step the driver is executing
func (d *Driver) Phase() Phase {
	return d.phase
}

// ExplorationRate returns the rate the next epoch will play with
func (d *Driver) ExplorationRate() float64 {
	return d.explorationRate
}

// Totals returns the outcome counts summed over all completed epochs
func (d *Driver) Totals() experience.OutcomeCounts {
	return d.totals
}

// History returns the statistics recorded so far
func (d *Driver) History() *stats.History {
	return d.history
}

// Transitions returns a copy of the recorded phase changes
func (d *Driver) Transitions() []Transition {
	return d.transitions.snapshot()
}

func (d *Driver) enter(epoch int, p Phase) error {
	if !d.phase.CanTransitionTo(p) {
		return invalidTransition(d.phase, p)
	}
	d.transitions.add(Transition{Epoch: epoch, From: d.phase, To: p, Timestamp: time.Now()})
	d.logger.Debug().
		Int("epoch", epoch).
		Str("from", d.phase.String()).
		Str("phase", p.String()).
		Msg("Entering phase")
	d.phase = p
	return nil
}

// Run executes MaxEpochs epochs. Any failure stops the run and is returned.
func (d *Driver) Run(ctx context.Context) error {
	current := 0
	defer func() {
		if d.phase != PhaseIdle {
			d.enter(current, PhaseIdle)
		}
	}()

	d.logger.Info().
		Int("max_epochs", d.config.MaxEpochs).
		Int("max_sessions", d.config.MaxSessions).
		Float64("exploration_rate", d.explorationRate).
		Msg("Starting training run")

	for epoch := 0; epoch < d.config.MaxEpochs; epoch++ {
		current = epoch
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.RunEpoch(ctx, epoch); err != nil {
			return fmt.Errorf("epoch %d (%s): %w", epoch, d.phase, err)
		}
	}

	d.logger.Info().
		Int("epochs", d.history.Len()).
		Int("p1_wins", d.totals.P1Wins).
		Int("p2_wins", d.totals.P2Wins).
		Int("draws", d.totals.Draws).
		Int("p1_dq", d.totals.P1Disqualified).
		Int("p2_dq", d.totals.P2Disqualified).
		Msg("Training run complete")
	return nil
}

// RunEpoch performs one full cycle: sync the target network, play, build
// memories, train, persist, report and decay exploration.
func (d *Driver) RunEpoch(ctx context.Context, epoch int) (stats.EpochRecord, error) {
	start := time.Now()
	rate := d.explorationRate

	if err := d.enter(epoch, PhaseSyncingTarget); err != nil {
		return stats.EpochRecord{}, err
	}
	if err := d.learner.SyncTarget(); err != nil {
		return stats.EpochRecord{}, err
	}

	if err := d.enter(epoch, PhaseSelfPlaying); err != nil {
		return stats.EpochRecord{}, err
	}
	if err := d.player.Play(ctx, epoch, d.config.MaxSessions, rate); err != nil {
		return stats.EpochRecord{}, err
	}

	if err := d.enter(epoch, PhaseBuildingMemories); err != nil {
		return stats.EpochRecord{}, err
	}
	batch, err := d.builder.Build(epoch, d.config.MaxSessions)
	if err != nil {
		return stats.EpochRecord{}, err
	}

	if err := d.enter(epoch, PhaseTraining); err != nil {
		return stats.EpochRecord{}, err
	}
	losses, err := d.learner.Train(batch.Memories)
	if err != nil {
		return stats.EpochRecord{}, err
	}
	if len(losses) == 0 {
		d.logger.Warn().Int("epoch", epoch).Msg("Epoch produced no memories")
	}

	if err := d.enter(epoch, PhasePersisting); err != nil {
		return stats.EpochRecord{}, err
	}
	if err := d.learner.Policy().Save(d.config.CheckpointPath); err != nil {
		return stats.EpochRecord{}, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if d.config.Cleanup {
		removed, err := common.RemoveGlob(trajectory.EpochPattern(d.config.OutputDir, epoch))
		if err != nil {
			return stats.EpochRecord{}, fmt.Errorf("failed to clean up session logs: %w", err)
		}
		d.logger.Debug().Int("epoch", epoch).Int("removed", removed).Msg("Removed session logs")
	}

	if err := d.enter(epoch, PhaseReporting); err != nil {
		return stats.EpochRecord{}, err
	}
	rec := stats.NewEpochRecord(epoch, batch.Counts, rate, losses)
	rec.Duration = time.Since(start)
	d.history.Append(rec)
	if err := d.history.Save(d.config.StatsPath); err != nil {
		return rec, fmt.Errorf("failed to save statistics: %w", err)
	}
	if _, err := d.server.Reload(ctx); err != nil {
		return rec, fmt.Errorf("failed to reload model: %w", err)
	}

	d.explorationRate = rate * d.config.ExplorationDecay
	d.totals.Add(batch.Counts)

	d.logger.Info().
		Int("epoch", epoch).
		Int("memories", rec.Memories).
		Float64("avg_loss", rec.AvgLoss).
		Float64("exploration_rate", rate).
		Int("p1_wins", rec.P1Wins).
		Int("p2_wins", rec.P2Wins).
		Int("draws", rec.Draws).
		Int("p1_dq", rec.P1Disqualified).
		Int("p2_dq", rec.P2Disqualified).
		Dur("duration", rec.Duration).
		Msg("Epoch complete")

	return rec, nil
}
