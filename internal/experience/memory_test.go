package experience

import (
	"testing"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/testutil"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rewardsOf(memories []Memory) []float64 {
	rewards := make([]float64, len(memories))
	for i, m := range memories {
		rewards[i] = m.Reward
	}
	return rewards
}

func TestBuildMemories_Win(t *testing.T) {
	match := testutil.ScenarioWin()

	memories, outcome := BuildMemories(match)
	require.Len(t, memories, 3)

	assert.Equal(t, OutcomePlayer1Win, outcome)
	assert.Equal(t, []float64{0, -1, 1}, rewardsOf(memories))
	assert.Equal(t, []int{0, 4, 8}, []int{memories[0].Action, memories[1].Action, memories[2].Action})

	// Each non-final memory links to the next valid turn
	for i := 0; i < 2; i++ {
		require.NotNil(t, memories[i].NextState)
		next := match.History[i+1]
		assert.True(t, memories[i].NextState.Equal(State{Player: next.Player, Board: next.Board}))
	}
	assert.True(t, memories[2].Terminal())
}

func TestBuildMemories_Disqualified(t *testing.T) {
	memories, outcome := BuildMemories(testutil.ScenarioDisqualified())

	assert.Equal(t, OutcomePlayer1Disqualified, outcome)
	require.Len(t, memories, 1)
	assert.Equal(t, RewardInvalidMove, memories[0].Reward)
	assert.True(t, memories[0].Terminal())
	assert.Equal(t, 4, memories[0].Action)
	assert.Equal(t, 1, memories[0].State.Player)
}

func TestBuildMemories_InvalidTurnsAppendedLast(t *testing.T) {
	b := testutil.Board
	match := testutil.NewMatch(2, "Player2 wins!",
		testutil.Move(1, b(), 4, true),
		testutil.Move(2, b(0, 0, 0, 0, 1), 4, false),
		testutil.Move(2, b(0, 0, 0, 0, 1), 0, true),
		testutil.Move(1, b(2, 0, 0, 0, 1), 0, false),
		testutil.Move(1, b(2, 0, 0, 0, 1), 8, true),
		testutil.Move(2, b(2, 0, 0, 0, 1, 0, 0, 0, 1), 1, true),
	)

	memories, outcome := BuildMemories(match)
	assert.Equal(t, OutcomePlayer2Win, outcome)
	require.Len(t, memories, 6)

	// Four valid turns then the two invalid ones in their original order
	assert.Equal(t, []float64{0, 0, -1, 1, -10, -10}, rewardsOf(memories))
	assert.Equal(t, []int{4, 0, 8, 1, 4, 0}, []int{
		memories[0].Action, memories[1].Action, memories[2].Action,
		memories[3].Action, memories[4].Action, memories[5].Action,
	})

	// Linkage skips invalid turns
	require.NotNil(t, memories[0].NextState)
	assert.Equal(t, 2, memories[0].NextState.Player)
	assert.Equal(t, b(0, 0, 0, 0, 1), memories[0].NextState.Board)

	assert.True(t, memories[3].Terminal())
	assert.True(t, memories[4].Terminal())
	assert.True(t, memories[5].Terminal())
}

func TestBuildMemories_SkipsTurnsWithoutChoice(t *testing.T) {
	b := testutil.Board
	match := testutil.NewMatch(1, "Player1 wins!",
		testutil.Move(1, b(), 0, true),
		testutil.Move(2, b(1), 3, true),
		testutil.Observation(1, b(1, 0, 0, 2)),
		trajectory.Turn{Player: 2, Board: b(1, 0, 0, 2), IsValid: false},
	)

	memories, _ := BuildMemories(match)
	require.Len(t, memories, 2)

	// The observation still counts as the last valid turn
	assert.Equal(t, []float64{0, -1}, rewardsOf(memories))
	require.NotNil(t, memories[1].NextState)
	assert.Equal(t, b(1, 0, 0, 2), memories[1].NextState.Board)
}

func TestBuildMemories_NoValidTurns(t *testing.T) {
	match := testutil.NewMatch(trajectory.NoPlayer, "Player2 disqualified!",
		testutil.Move(2, testutil.Board(), 9, false),
		testutil.Move(2, testutil.Board(), 10, false),
	)

	memories, outcome := BuildMemories(match)
	assert.Equal(t, OutcomePlayer2Disqualified, outcome)
	assert.Equal(t, []float64{-10, -10}, rewardsOf(memories))
}

func TestBuildMemories_Empty(t *testing.T) {
	memories, outcome := BuildMemories(testutil.NewMatch(trajectory.NoPlayer, "aborted"))
	assert.Empty(t, memories)
	assert.Equal(t, OutcomeNone, outcome)
}
