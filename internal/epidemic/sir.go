// Package epidemic provides a stochastic SIR simulator, the reference
// workload for the sensitivity pipeline. Transmission follows a discrete
// chain-binomial process, so repeated runs at one parameter assignment
// genuinely differ and exercise the replication machinery.
package epidemic

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Parameter and outcome names of the SIR design space.
const (
	ParamTransmissionRate = "transmission_rate"
	ParamRecoveryRate     = "recovery_rate"
	ParamPopulation       = "population"
	ParamInitialInfected  = "initial_infected"

	OutcomeSusceptible  = "susceptible"
	OutcomeInfected     = "infected"
	OutcomeRecovered    = "recovered"
	OutcomeAttackRate   = "attack_rate"
	OutcomePeakInfected = "peak_infected"
)

// SIR is a chain-binomial susceptible-infected-recovered simulator.
// Randomness is deliberately unseeded: each invocation is an independent
// stochastic replication, which is exactly what the runner's replication
// dimension measures.
type SIR struct{}

// NewSIR creates the simulator
func NewSIR() *SIR {
	return &SIR{}
}

// Run simulates one epidemic for horizon steps.
//
// Per step, each susceptible escapes infection with probability
// exp(-beta*I/N), and each infected recovers with probability
// 1-exp(-gamma); draws are binomial over the compartment counts.
func (s *SIR) Run(ctx context.Context, assignment map[string]float64, horizon int) (map[string][]float64, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be >= 1, got %d", horizon)
	}
	beta, err := requireParam(assignment, ParamTransmissionRate)
	if err != nil {
		return nil, err
	}
	gamma, err := requireParam(assignment, ParamRecoveryRate)
	if err != nil {
		return nil, err
	}
	popF, err := requireParam(assignment, ParamPopulation)
	if err != nil {
		return nil, err
	}
	seedF, err := requireParam(assignment, ParamInitialInfected)
	if err != nil {
		return nil, err
	}

	pop := int(math.Round(popF))
	infected := int(math.Round(seedF))
	if pop < 1 {
		return nil, fmt.Errorf("population must be >= 1, got %d", pop)
	}
	if infected < 1 || infected > pop {
		return nil, fmt.Errorf("initial infected must be in [1, %d], got %d", pop, infected)
	}

	susceptible := pop - infected
	recovered := 0
	peak := infected

	sus := make([]float64, 0, horizon+1)
	inf := make([]float64, 0, horizon+1)
	rec := make([]float64, 0, horizon+1)
	record := func() {
		sus = append(sus, float64(susceptible))
		inf = append(inf, float64(infected))
		rec = append(rec, float64(recovered))
	}
	record()

	recoveryP := 1 - math.Exp(-gamma)
	for t := 0; t < horizon; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		infectionP := 1 - math.Exp(-beta*float64(infected)/float64(pop))
		newInfections := binomial(susceptible, infectionP)
		newRecoveries := binomial(infected, recoveryP)

		susceptible -= newInfections
		infected += newInfections - newRecoveries
		recovered += newRecoveries
		if infected > peak {
			peak = infected
		}
		record()
	}

	attackRate := float64(pop-susceptible) / float64(pop)
	return map[string][]float64{
		OutcomeSusceptible:  sus,
		OutcomeInfected:     inf,
		OutcomeRecovered:    rec,
		OutcomeAttackRate:   {attackRate},
		OutcomePeakInfected: {float64(peak)},
	}, nil
}

func requireParam(assignment map[string]float64, name string) (float64, error) {
	v, ok := assignment[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	return v, nil
}

// binomial draws from Binomial(n, p) on the process-global source
func binomial(n int, p float64) int {
	if n <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	return int(distuv.Binomial{N: float64(n), P: p}.Rand())
}
