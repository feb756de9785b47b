package qlearning

import (
	"fmt"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/common"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/experience"
	"github.com/patrikeh/go-deep/training"
	"github.com/rs/zerolog"
)

// LearnerConfig holds the Q-learning hyperparameters
type LearnerConfig struct {
	LearningRate float64
	DiscountRate float64
}

// DefaultLearnerConfig returns the default hyperparameters
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		LearningRate: 0.01,
		DiscountRate: 0.9,
	}
}

// Learner trains a policy network against a frozen target network with
// single-step Q-learning, one memory at a time.
type Learner struct {
	policy *Network
	target *Network
	config LearnerConfig
	logger zerolog.Logger
}

// NewLearner creates a learner for policy. The target starts as a snapshot
// of the policy.
func NewLearner(policy *Network, config LearnerConfig, logger zerolog.Logger) *Learner {
	return &Learner{
		policy: policy,
		target: policy.Snapshot(),
		config: config,
		logger: logger.With().Str("component", "q_learner").Logger(),
	}
}

// Policy returns the network being trained
func (l *Learner) Policy() *Network {
	return l.policy
}

// Target returns the frozen network used for bootstrap labels
func (l *Learner) Target() *Network {
	return l.target
}

// SyncTarget hard-copies the policy weights into the target network
func (l *Learner) SyncTarget() error {
	return l.target.CopyFrom(l.policy)
}

// TargetValue returns the bootstrapped value of the memory's action.
//
// The next state is the same mover's following turn, reached after the
// opponent replied, so its best value counts against the mover and is
// subtracted.
func (l *Learner) TargetValue(mem experience.Memory) (float64, error) {
	if mem.Terminal() {
		return mem.Reward, nil
	}

	next, err := l.target.Predict(Encode(*mem.NextState))
	if err != nil {
		return 0, fmt.Errorf("next state: %w", err)
	}
	return mem.Reward - l.config.DiscountRate*common.Max(next), nil
}

// Label builds the regression target for a memory: the target network's
// output for the state with the taken action replaced by its bootstrapped
// value. The remaining actions keep the target network's predictions.
func (l *Learner) Label(mem experience.Memory) ([]float64, error) {
	q, err := l.TargetValue(mem)
	if err != nil {
		return nil, err
	}

	label, err := l.target.Predict(Encode(mem.State))
	if err != nil {
		return nil, err
	}
	if !common.IsValidIndex(mem.Action, len(label)) {
		return nil, fmt.Errorf("%w: action %d outside of %d outputs", ErrShapeMismatch, mem.Action, len(label))
	}

	label[mem.Action] = q
	return label, nil
}

// Step applies one gradient update for mem and returns the mean squared
// error between the policy output and the label before the update.
func (l *Learner) Step(mem experience.Memory) (float64, error) {
	input := Encode(mem.State)

	y, err := l.policy.Predict(input)
	if err != nil {
		return 0, err
	}
	label, err := l.Label(mem)
	if err != nil {
		return 0, err
	}
	loss := common.MeanSquaredError(y, label)

	trainer := training.NewTrainer(training.NewSGD(l.config.LearningRate, 0, 0, false), 0)
	trainer.Train(l.policy.neural, training.Examples{{Input: input, Response: label}}, nil, 1)

	return loss, nil
}

// Train runs Step over memories in order and returns one loss per memory
func (l *Learner) Train(memories []experience.Memory) ([]float64, error) {
	losses := make([]float64, 0, len(memories))
	for i, mem := range memories {
		loss, err := l.Step(mem)
		if err != nil {
			return losses, fmt.Errorf("memory %d: %w", i, err)
		}
		losses = append(losses, loss)

		l.logger.Debug().
			Int("memory", i).
			Int("action", mem.Action).
			Float64("reward", mem.Reward).
			Float64("loss", loss).
			Msg("Training step")
	}
	return losses, nil
}
