package epidemic

import "episens/domain/design"

// Space returns the canonical SIR sensitivity design: transmission and
// recovery rates sampled, population and seeding held constant, with the
// epidemic's summary outcomes declared for analysis.
func Space(population, initialInfected, replications int) *design.Space {
	return &design.Space{
		Sampled: []design.ParameterSpec{
			{Name: ParamTransmissionRate, Kind: design.KindReal, Low: 0.1, High: 0.9},
			{Name: ParamRecoveryRate, Kind: design.KindReal, Low: 0.05, High: 0.5},
		},
		Constants: []design.ParameterSpec{
			{Name: ParamPopulation, Kind: design.KindConstant, Value: float64(population)},
			{Name: ParamInitialInfected, Kind: design.KindConstant, Value: float64(initialInfected)},
		},
		Outcomes: []design.OutcomeSpec{
			{Name: OutcomeSusceptible, TimeSeries: true},
			{Name: OutcomeInfected, TimeSeries: true},
			{Name: OutcomeRecovered, TimeSeries: true},
			{Name: OutcomeAttackRate},
			{Name: OutcomePeakInfected},
		},
		Replications: replications,
	}
}
