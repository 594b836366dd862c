package analyst_test

import (
	"testing"

	"git.fiblab.net/sim/accessibility/analyst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecayAccumulator(t *testing.T) {
	acc, err := analyst.NewAccumulator(analyst.AccDecay, analyst.Params{HalfLifeMinutes: 10})
	require.NoError(t, err)

	pop := line(0, 1, 2)
	surface := analyst.NewSurface(pop)
	require.NoError(t, acc.Accumulate(100, resultSetOf(pop, 600, 0, -1), surface))
	assert.InDelta(t, 50, surface.Value(0), 1e-9)
	assert.InDelta(t, 100, surface.Value(1), 1e-9)
	assert.Equal(t, 0.0, surface.Value(2))

	// 继续累加
	require.NoError(t, acc.Accumulate(100, resultSetOf(pop, 1200, -1, -1), surface))
	assert.InDelta(t, 75, surface.Value(0), 1e-9)
	assert.Same(t, pop, surface.Population())
}

func TestThresholdAccumulator(t *testing.T) {
	acc, err := analyst.NewAccumulator(analyst.AccThreshold, analyst.Params{ThresholdSeconds: 300})
	require.NoError(t, err)

	pop := line(0, 1, 2, 3)
	surface := analyst.NewSurface(pop)
	require.NoError(t, acc.Accumulate(5, resultSetOf(pop, 0, 299, 300, -1), surface))
	require.NoError(t, acc.Accumulate(2, resultSetOf(pop, 100, 400, 10, -1), surface))
	assert.Equal(t, []float64{7, 5, 2, 0}, surface.Values())
}

func TestAccumulatorErrors(t *testing.T) {
	_, err := analyst.NewAccumulator(analyst.AccThreshold, analyst.Params{})
	assert.ErrorIs(t, err, analyst.ErrMissingParameter)
	_, err = analyst.NewAccumulator(analyst.AccDecay, analyst.Params{HalfLifeMinutes: -1})
	assert.ErrorIs(t, err, analyst.ErrInvalidParameter)

	acc, err := analyst.NewDecayAccumulator(analyst.HalfLifeParams{HalfLifeMinutes: 5})
	require.NoError(t, err)
	surface := analyst.NewSurface(line(0, 1))
	err = acc.Accumulate(1, resultSetOf(line(0, 1), 1, 1), surface)
	assert.ErrorIs(t, err, analyst.ErrPopulationMismatch)
	assert.Equal(t, []float64{0, 0}, surface.Values())

	// 空的source不做任何事
	assert.NoError(t, acc.Accumulate(1, resultSetOf(line()), surface))
}
