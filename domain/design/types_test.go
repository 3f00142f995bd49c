package design

import (
	"testing"

	"episens/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpace() Space {
	return Space{
		Sampled: []ParameterSpec{
			{Name: "beta", Kind: KindReal, Low: 0.1, High: 0.9},
			{Name: "contacts", Kind: KindInteger, Low: 1, High: 20},
			{Name: "lockdown", Kind: KindBoolean},
		},
		Constants: []ParameterSpec{
			{Name: "population", Kind: KindConstant, Value: 1000},
		},
		Outcomes: []OutcomeSpec{
			{Name: "infected", TimeSeries: true},
			{Name: "attack_rate"},
		},
		Replications: 4,
	}
}

func TestSpaceValidate(t *testing.T) {
	s := validSpace()
	require.NoError(t, s.Validate())

	tests := []struct {
		name   string
		mutate func(*Space)
	}{
		{"no sampled parameters", func(s *Space) { s.Sampled = nil }},
		{"no outcomes", func(s *Space) { s.Outcomes = nil }},
		{"zero replications", func(s *Space) { s.Replications = 0 }},
		{"inverted bounds", func(s *Space) { s.Sampled[0].Low = 2; s.Sampled[0].High = 1 }},
		{"duplicate parameter", func(s *Space) { s.Sampled[1].Name = "beta" }},
		{"duplicate across constants", func(s *Space) { s.Constants[0].Name = "beta" }},
		{"duplicate outcome", func(s *Space) { s.Outcomes[1].Name = "infected" }},
		{"constant listed as sampled", func(s *Space) { s.Sampled[0].Kind = KindConstant }},
		{"empty parameter name", func(s *Space) { s.Sampled[0].Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSpace()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidDesignSpace)
		})
	}
}

func TestParameterScale(t *testing.T) {
	real := ParameterSpec{Name: "x", Kind: KindReal, Low: 2, High: 10}
	assert.InDelta(t, 2.0, real.Scale(0), 1e-12)
	assert.InDelta(t, 10.0, real.Scale(1), 1e-12)
	assert.InDelta(t, 6.0, real.Scale(0.5), 1e-12)

	integer := ParameterSpec{Name: "n", Kind: KindInteger, Low: 1, High: 5}
	assert.Equal(t, 1.0, integer.Scale(0))
	assert.Equal(t, 5.0, integer.Scale(1))
	assert.Equal(t, 3.0, integer.Scale(0.5))
	// Bounds stay inclusive after rounding.
	assert.Equal(t, 5.0, integer.Scale(0.999999))

	boolean := ParameterSpec{Name: "b", Kind: KindBoolean}
	assert.Equal(t, 0.0, boolean.Scale(0.49))
	assert.Equal(t, 1.0, boolean.Scale(0.5))
}

func TestSpaceAccessors(t *testing.T) {
	s := validSpace()
	assert.Equal(t, []string{"beta", "contacts", "lockdown"}, s.ParameterNames())
	assert.Equal(t, map[string]float64{"population": 1000}, s.ConstantAssignment())

	o, ok := s.Outcome("infected")
	require.True(t, ok)
	assert.True(t, o.TimeSeries)
	_, ok = s.Outcome("missing")
	assert.False(t, ok)
}

func TestReductionValid(t *testing.T) {
	assert.True(t, ReduceMean.Valid())
	assert.True(t, ReduceMedian.Valid())
	assert.True(t, ReduceLast.Valid())
	assert.False(t, Reduction("max").Valid())
}
