package experience

import (
	"fmt"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
	"github.com/rs/zerolog"
)

// MatchSource yields the recorded match of one self-play session
type MatchSource interface {
	Match(epoch, session int) (*trajectory.Match, error)
}

// Batch is the training data of a single epoch. A new Batch is built for
// every epoch and must not be reused.
type Batch struct {
	Memories []Memory
	Counts   OutcomeCounts
}

// Builder turns an epoch's session logs into a Batch
type Builder struct {
	source MatchSource
	logger zerolog.Logger
}

// NewBuilder creates a memory builder reading matches from source
func NewBuilder(source MatchSource, logger zerolog.Logger) *Builder {
	return &Builder{
		source: source,
		logger: logger.With().Str("component", "memory_builder").Logger(),
	}
}

// Build processes sessions 0..sessions-1 of the epoch in order. Memories
// are appended in session order, which is also the training order.
func (b *Builder) Build(epoch, sessions int) (*Batch, error) {
	batch := &Batch{}

	for session := 0; session < sessions; session++ {
		m, err := b.source.Match(epoch, session)
		if err != nil {
			return nil, fmt.Errorf("epoch %d session %d: %w", epoch, session, err)
		}

		memories, outcome := BuildMemories(m)
		batch.Counts.Record(outcome)
		batch.Memories = append(batch.Memories, memories...)

		b.logger.Debug().
			Int("epoch", epoch).
			Int("session", session).
			Int("turns", len(m.History)).
			Int("memories", len(memories)).
			Str("outcome", outcome.String()).
			Msg("Built memories from session")
	}

	b.logger.Info().
		Int("epoch", epoch).
		Int("sessions", sessions).
		Int("memories", len(batch.Memories)).
		Int("p1_wins", batch.Counts.P1Wins).
		Int("p2_wins", batch.Counts.P2Wins).
		Int("draws", batch.Counts.Draws).
		Int("p1_dq", batch.Counts.P1Disqualified).
		Int("p2_dq", batch.Counts.P2Disqualified).
		Msg("Built epoch memories")

	return batch, nil
}
