package experience

import (
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
)

// Reward values assigned to recorded turns
const (
	RewardInvalidMove float64 = -10
	RewardWin         float64 = 1
	RewardLoss        float64 = -1
	RewardNeutral     float64 = 0
)

// Reward computes the shaped reward of a turn.
//
// turnsLeft counts the valid turns from this one to the end of the match,
// this one included, so the final valid turn has turnsLeft == 1. Only the
// winner's final move and the loser's move right before it receive a
// nonzero signal; illegal moves are always penalized.
func Reward(turn trajectory.Turn, winner int, turnsLeft int) float64 {
	if !turn.IsValid {
		return RewardInvalidMove
	}

	if turn.Player == winner && turnsLeft == 1 {
		return RewardWin
	} else if winner != trajectory.NoPlayer && turn.Player != winner && turnsLeft == 2 {
		return RewardLoss
	}

	return RewardNeutral
}
