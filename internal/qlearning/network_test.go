package qlearning

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNetworkConfig() NetworkConfig {
	return NetworkConfig{
		BoardSize:    9,
		HiddenLayers: []int{16},
		InitStdDev:   0.1,
	}
}

func newTestNetwork(t *testing.T) *Network {
	t.Helper()
	n, err := NewNetwork(testNetworkConfig())
	require.NoError(t, err)
	return n
}

func testInput(player float64) []float64 {
	return []float64{1, 0, 2, 0, 1, 0, 0, 2, 0, player}
}

func TestNewNetwork_InvalidConfig(t *testing.T) {
	_, err := NewNetwork(NetworkConfig{BoardSize: 0})
	assert.Error(t, err)

	_, err = NewNetwork(NetworkConfig{BoardSize: 9, HiddenLayers: []int{8, 0}})
	assert.Error(t, err)
}

func TestNetwork_Predict(t *testing.T) {
	n := newTestNetwork(t)

	out, err := n.Predict(testInput(1))
	require.NoError(t, err)
	assert.Len(t, out, 9)

	// Mutating the result does not affect later predictions
	out[0] = 1e9
	again, err := n.Predict(testInput(1))
	require.NoError(t, err)
	assert.NotEqual(t, 1e9, again[0])
}

func TestNetwork_PredictShapeMismatch(t *testing.T) {
	n := newTestNetwork(t)

	_, err := n.Predict(make([]float64, 9))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestNetwork_SnapshotIsIndependent(t *testing.T) {
	n := newTestNetwork(t)
	snap := n.Snapshot()

	before, err := snap.Predict(testInput(2))
	require.NoError(t, err)

	// Perturb the original
	other := newTestNetwork(t)
	require.NoError(t, n.CopyFrom(other))

	after, err := snap.Predict(testInput(2))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestNetwork_CopyFrom(t *testing.T) {
	a := newTestNetwork(t)
	b := newTestNetwork(t)
	require.NoError(t, b.CopyFrom(a))

	for _, player := range []float64{1, 2} {
		outA, err := a.Predict(testInput(player))
		require.NoError(t, err)
		outB, err := b.Predict(testInput(player))
		require.NoError(t, err)
		assert.Equal(t, outA, outB)
	}
}

func TestNetwork_CopyFromDifferentArchitecture(t *testing.T) {
	a := newTestNetwork(t)
	b, err := NewNetwork(NetworkConfig{BoardSize: 9, HiddenLayers: []int{8}})
	require.NoError(t, err)

	err = b.CopyFrom(a)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestNetwork_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model", "t3.json")
	n := newTestNetwork(t)
	require.NoError(t, n.Save(path))

	loaded, err := LoadNetwork(path)
	require.NoError(t, err)
	assert.Equal(t, n.Config(), loaded.Config())

	want, err := n.Predict(testInput(1))
	require.NoError(t, err)
	got, err := loaded.Predict(testInput(1))
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)

	// Saving again overwrites in place
	require.NoError(t, newTestNetwork(t).Save(path))
	_, err = LoadNetwork(path)
	require.NoError(t, err)
}

func TestLoadOrNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t3.json")

	n, resumed, err := LoadOrNew(path, testNetworkConfig())
	require.NoError(t, err)
	assert.False(t, resumed)
	require.NoError(t, n.Save(path))

	again, resumed, err := LoadOrNew(path, testNetworkConfig())
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, n.Weights(), again.Weights())

	_, _, err = LoadOrNew(path, NetworkConfig{BoardSize: 9, HiddenLayers: []int{32}})
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}
