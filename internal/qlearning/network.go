package qlearning

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/common"
	"github.com/patrikeh/go-deep"
)

var (
	// ErrShapeMismatch is returned when an input or checkpoint does not fit the network
	ErrShapeMismatch = errors.New("shape mismatch")
)

// NetworkConfig defines the approximator architecture. The network takes the
// board cells followed by the mover id and outputs one value per cell.
type NetworkConfig struct {
	BoardSize    int     `json:"board_size"`
	HiddenLayers []int   `json:"hidden_layers"`
	InitStdDev   float64 `json:"init_std_dev"`
}

// DefaultNetworkConfig returns the tic-tac-toe network configuration
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		BoardSize:    9,
		HiddenLayers: []int{64, 64},
		InitStdDev:   0.1,
	}
}

// Inputs returns the size of the encoded state
func (c NetworkConfig) Inputs() int {
	return c.BoardSize + 1
}

// Outputs returns the number of action values
func (c NetworkConfig) Outputs() int {
	return c.BoardSize
}

func (c NetworkConfig) validate() error {
	if c.BoardSize <= 0 {
		return fmt.Errorf("board size must be positive, got %d", c.BoardSize)
	}
	for i, n := range c.HiddenLayers {
		if n <= 0 {
			return fmt.Errorf("hidden layer %d must have a positive width, got %d", i, n)
		}
	}
	return nil
}

// Network is a state-action value approximator
type Network struct {
	config NetworkConfig
	neural *deep.Neural
}

// NewNetwork creates a randomly initialized network
func NewNetwork(config NetworkConfig) (*Network, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	layout := make([]int, 0, len(config.HiddenLayers)+1)
	layout = append(layout, config.HiddenLayers...)
	layout = append(layout, config.Outputs())

	neural := deep.NewNeural(&deep.Config{
		Inputs:     config.Inputs(),
		Layout:     layout,
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewNormal(config.InitStdDev, 0.0),
		Bias:       true,
	})

	return &Network{config: config, neural: neural}, nil
}

// Config returns the architecture of the network
func (n *Network) Config() NetworkConfig {
	return n.config
}

// Predict evaluates the network and returns a fresh output vector
func (n *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != n.config.Inputs() {
		return nil, fmt.Errorf("%w: input has %d values, network expects %d",
			ErrShapeMismatch, len(input), n.config.Inputs())
	}

	out := n.neural.Predict(input)
	values := make([]float64, len(out))
	copy(values, out)
	return values, nil
}

// Weights returns a copy of all weights, biases included
func (n *Network) Weights() [][][]float64 {
	return n.neural.Dump().Weights
}

func (n *Network) sameShape(o *Network) bool {
	if n.config.BoardSize != o.config.BoardSize || len(n.config.HiddenLayers) != len(o.config.HiddenLayers) {
		return false
	}
	for i := range n.config.HiddenLayers {
		if n.config.HiddenLayers[i] != o.config.HiddenLayers[i] {
			return false
		}
	}
	return true
}

// CopyFrom overwrites this network's weights with a value copy of src
func (n *Network) CopyFrom(src *Network) error {
	if !n.sameShape(src) {
		return fmt.Errorf("%w: cannot copy weights between different architectures", ErrShapeMismatch)
	}
	n.neural.ApplyWeights(src.Weights())
	return nil
}

// Snapshot returns an independent copy of the network
func (n *Network) Snapshot() *Network {
	snap, err := NewNetwork(n.config)
	if err != nil {
		// n was built from the same config
		panic(err)
	}
	snap.neural.ApplyWeights(n.Weights())
	return snap
}

// checkpoint is the on-disk form of a network
type checkpoint struct {
	Config  NetworkConfig `json:"config"`
	Weights [][][]float64 `json:"weights"`
}

// Save writes the network to path, replacing any previous checkpoint
func (n *Network) Save(path string) error {
	data, err := json.Marshal(checkpoint{Config: n.config, Weights: n.Weights()})
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return common.WriteFileAtomic(path, data)
}

// LoadNetwork restores a network saved with Save
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", path, err)
	}

	n, err := NewNetwork(cp.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint %s: %w", path, err)
	}
	if !sameWeightShape(n.Weights(), cp.Weights) {
		return nil, fmt.Errorf("%w: checkpoint %s weights do not match its config", ErrShapeMismatch, path)
	}
	n.neural.ApplyWeights(cp.Weights)
	return n, nil
}

// LoadOrNew resumes from the checkpoint at path when one exists, and creates
// a fresh network otherwise. A checkpoint with a different architecture is
// an error.
func LoadOrNew(path string, config NetworkConfig) (*Network, bool, error) {
	n, err := LoadNetwork(path)
	if errors.Is(err, os.ErrNotExist) {
		n, err = NewNetwork(config)
		return n, false, err
	}
	if err != nil {
		return nil, false, err
	}

	fresh := &Network{config: config}
	if !n.sameShape(fresh) {
		return nil, false, fmt.Errorf("%w: checkpoint %s has board_size=%d hidden=%v, configured board_size=%d hidden=%v",
			ErrShapeMismatch, path, n.config.BoardSize, n.config.HiddenLayers, config.BoardSize, config.HiddenLayers)
	}
	return n, true, nil
}

func sameWeightShape(a, b [][][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if len(a[i][j]) != len(b[i][j]) {
				return false
			}
		}
	}
	return true
}
