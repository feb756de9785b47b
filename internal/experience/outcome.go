package experience

import (
	"strings"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
)

// Outcome classifies how a match ended
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomePlayer1Win
	OutcomePlayer2Win
	OutcomeDraw
	OutcomePlayer1Disqualified
	OutcomePlayer2Disqualified
)

const (
	statusDraw           = "draw"
	statusP1Disqualified = "player1 disqualified"
	statusP2Disqualified = "player2 disqualified"
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlayer1Win:
		return "p1_win"
	case OutcomePlayer2Win:
		return "p2_win"
	case OutcomeDraw:
		return "draw"
	case OutcomePlayer1Disqualified:
		return "p1_dq"
	case OutcomePlayer2Disqualified:
		return "p2_dq"
	default:
		return "none"
	}
}

// ClassifyOutcome maps a match to exactly one outcome. The winner field
// decides when present; otherwise the status text is inspected.
func ClassifyOutcome(m *trajectory.Match) Outcome {
	switch m.Winner {
	case 1:
		return OutcomePlayer1Win
	case 2:
		return OutcomePlayer2Win
	case trajectory.NoPlayer:
	default:
		return OutcomeNone
	}

	status := strings.ToLower(m.Status)
	switch {
	case strings.Contains(status, statusP1Disqualified):
		return OutcomePlayer1Disqualified
	case strings.Contains(status, statusP2Disqualified):
		return OutcomePlayer2Disqualified
	case strings.Contains(status, statusDraw):
		return OutcomeDraw
	}
	return OutcomeNone
}

// OutcomeCounts aggregates outcomes over a set of matches
type OutcomeCounts struct {
	P1Wins         int
	P2Wins         int
	Draws          int
	P1Disqualified int
	P2Disqualified int
}

// Record increments the counter for o. OutcomeNone is ignored.
func (c *OutcomeCounts) Record(o Outcome) {
	switch o {
	case OutcomePlayer1Win:
		c.P1Wins++
	case OutcomePlayer2Win:
		c.P2Wins++
	case OutcomeDraw:
		c.Draws++
	case OutcomePlayer1Disqualified:
		c.P1Disqualified++
	case OutcomePlayer2Disqualified:
		c.P2Disqualified++
	}
}

// Total returns the number of classified matches
func (c OutcomeCounts) Total() int {
	return c.P1Wins + c.P2Wins + c.Draws + c.P1Disqualified + c.P2Disqualified
}

// Add merges the counts of o into c
func (c *OutcomeCounts) Add(o OutcomeCounts) {
	c.P1Wins += o.P1Wins
	c.P2Wins += o.P2Wins
	c.Draws += o.Draws
	c.P1Disqualified += o.P1Disqualified
	c.P2Disqualified += o.P2Disqualified
}
