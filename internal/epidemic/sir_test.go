package epidemic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignment() map[string]float64 {
	return map[string]float64{
		ParamTransmissionRate: 0.5,
		ParamRecoveryRate:     0.2,
		ParamPopulation:       1000,
		ParamInitialInfected:  10,
	}
}

func TestRunConservesPopulation(t *testing.T) {
	sim := NewSIR()
	horizon := 50

	out, err := sim.Run(context.Background(), assignment(), horizon)
	require.NoError(t, err)

	sus, inf, rec := out[OutcomeSusceptible], out[OutcomeInfected], out[OutcomeRecovered]
	require.Len(t, sus, horizon+1)
	require.Len(t, inf, horizon+1)
	require.Len(t, rec, horizon+1)

	for i := range sus {
		assert.Equal(t, 1000.0, sus[i]+inf[i]+rec[i], "compartments must sum to N at step %d", i)
		assert.GreaterOrEqual(t, sus[i], 0.0)
		assert.GreaterOrEqual(t, inf[i], 0.0)
		assert.GreaterOrEqual(t, rec[i], 0.0)
	}

	// Susceptible counts only move one way.
	for i := 1; i < len(sus); i++ {
		assert.LessOrEqual(t, sus[i], sus[i-1])
		assert.GreaterOrEqual(t, rec[i], rec[i-1])
	}
}

func TestRunSummaryOutcomes(t *testing.T) {
	sim := NewSIR()

	out, err := sim.Run(context.Background(), assignment(), 100)
	require.NoError(t, err)

	attack := out[OutcomeAttackRate]
	require.Len(t, attack, 1)
	assert.GreaterOrEqual(t, attack[0], 0.01, "the initial seed alone gives attack rate N_i/N")
	assert.LessOrEqual(t, attack[0], 1.0)

	peak := out[OutcomePeakInfected]
	require.Len(t, peak, 1)
	assert.GreaterOrEqual(t, peak[0], 10.0, "peak is at least the initial seed")
	assert.LessOrEqual(t, peak[0], 1000.0)

	inf := out[OutcomeInfected]
	maxStep := inf[0]
	for _, v := range inf {
		if v > maxStep {
			maxStep = v
		}
	}
	assert.Equal(t, maxStep, peak[0])
}

func TestRunReplicationsDiffer(t *testing.T) {
	sim := NewSIR()

	first, err := sim.Run(context.Background(), assignment(), 60)
	require.NoError(t, err)
	second, err := sim.Run(context.Background(), assignment(), 60)
	require.NoError(t, err)

	assert.NotEqual(t, first[OutcomeInfected], second[OutcomeInfected],
		"stochastic replications should not coincide over 60 steps")
}

func TestRunRejectsBadInputs(t *testing.T) {
	sim := NewSIR()
	ctx := context.Background()

	_, err := sim.Run(ctx, assignment(), 0)
	assert.Error(t, err)

	missing := assignment()
	delete(missing, ParamRecoveryRate)
	_, err = sim.Run(ctx, missing, 10)
	assert.ErrorContains(t, err, "recovery_rate")

	overSeeded := assignment()
	overSeeded[ParamInitialInfected] = 2000
	_, err = sim.Run(ctx, overSeeded, 10)
	assert.Error(t, err)
}

func TestRunHonorsCancellation(t *testing.T) {
	sim := NewSIR()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Run(ctx, assignment(), 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpaceIsValid(t *testing.T) {
	space := Space(1000, 10, 5)
	require.NoError(t, space.Validate())
	assert.Equal(t, []string{ParamTransmissionRate, ParamRecoveryRate}, space.ParameterNames())
	assert.Equal(t, 1000.0, space.ConstantAssignment()[ParamPopulation])
}
