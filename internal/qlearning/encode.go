package qlearning

import "github.com/mitchelldurbincs/T3ReinforcementLearning/internal/experience"

// Encode flattens a state into the network input: board cells followed by
// the mover id.
func Encode(s experience.State) []float64 {
	input := make([]float64, 0, len(s.Board)+1)
	input = append(input, s.Board...)
	return append(input, float64(s.Player))
}
