package experience

import (
	"testing"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/testutil"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
	"github.com/stretchr/testify/assert"
)

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		winner int
		status string
		want   Outcome
	}{
		{1, "Player1 wins!", OutcomePlayer1Win},
		{2, "Player2 wins!", OutcomePlayer2Win},
		{2, "Player1 disqualified!", OutcomePlayer2Win},
		{trajectory.NoPlayer, "It's a draw!", OutcomeDraw},
		{trajectory.NoPlayer, "Draw", OutcomeDraw},
		{trajectory.NoPlayer, "Player1 disqualified!", OutcomePlayer1Disqualified},
		{trajectory.NoPlayer, "Player2 disqualified!", OutcomePlayer2Disqualified},
		{trajectory.NoPlayer, "game aborted", OutcomeNone},
		{trajectory.NoPlayer, "", OutcomeNone},
		{3, "Player3 wins!", OutcomeNone},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyOutcome(testutil.NewMatch(tt.winner, tt.status)))
		})
	}
}

func TestOutcomeCounts_RecordsAtMostOne(t *testing.T) {
	outcomes := []Outcome{
		OutcomeNone,
		OutcomePlayer1Win,
		OutcomePlayer2Win,
		OutcomeDraw,
		OutcomePlayer1Disqualified,
		OutcomePlayer2Disqualified,
	}

	for _, o := range outcomes {
		var c OutcomeCounts
		c.Record(o)
		if o == OutcomeNone {
			assert.Equal(t, 0, c.Total(), o.String())
		} else {
			assert.Equal(t, 1, c.Total(), o.String())
		}
	}
}

func TestOutcomeCounts_Record(t *testing.T) {
	var c OutcomeCounts
	c.Record(OutcomePlayer1Win)
	c.Record(OutcomePlayer1Win)
	c.Record(OutcomePlayer2Win)
	c.Record(OutcomeDraw)
	c.Record(OutcomePlayer2Disqualified)

	assert.Equal(t, OutcomeCounts{P1Wins: 2, P2Wins: 1, Draws: 1, P2Disqualified: 1}, c)
	assert.Equal(t, 5, c.Total())
}

func TestOutcomeCounts_Add(t *testing.T) {
	c := OutcomeCounts{P1Wins: 1, Draws: 2}
	c.Add(OutcomeCounts{P1Wins: 3, P2Wins: 1, P1Disqualified: 4})

	assert.Equal(t, OutcomeCounts{P1Wins: 4, P2Wins: 1, Draws: 2, P1Disqualified: 4}, c)
	assert.Equal(t, 11, c.Total())
}
