// Package design declares the input/output surface of a sensitivity study:
// which simulator parameters vary (and over what ranges), which are held
// constant, which outcomes are observed, and how replications are handled.
package design

import (
	"fmt"
	"math"

	"episens/domain/core"
)

// ParameterKind defines how a parameter is sampled
type ParameterKind string

const (
	KindReal     ParameterKind = "real"     // linear interpolation over [Low, High]
	KindInteger  ParameterKind = "integer"  // interpolation then round, bounds inclusive
	KindBoolean  ParameterKind = "boolean"  // threshold at 0.5
	KindConstant ParameterKind = "constant" // held fixed at Value
)

// ParameterSpec declares one simulator input
type ParameterSpec struct {
	Name  string        `json:"name"`
	Kind  ParameterKind `json:"kind"`
	Low   float64       `json:"low,omitempty"`
	High  float64       `json:"high,omitempty"`
	Value float64       `json:"value,omitempty"` // constants only
}

// Sampled reports whether the parameter varies across the sample matrix
func (p ParameterSpec) Sampled() bool {
	return p.Kind != KindConstant
}

// Scale maps a unit-interval draw to the parameter's declared range
// according to its kind.
func (p ParameterSpec) Scale(u float64) float64 {
	switch p.Kind {
	case KindInteger:
		v := math.Round(p.Low + u*(p.High-p.Low))
		// Rounding can escape the range only by floating error at the edges.
		return math.Min(math.Max(v, math.Ceil(p.Low)), math.Floor(p.High))
	case KindBoolean:
		if u >= 0.5 {
			return 1
		}
		return 0
	default:
		return p.Low + u*(p.High-p.Low)
	}
}

func (p ParameterSpec) validate() error {
	if p.Name == "" {
		return core.NewInvalidDesignSpaceError("parameter with empty name")
	}
	switch p.Kind {
	case KindConstant:
		return nil
	case KindReal, KindInteger:
		if p.Low > p.High {
			return core.NewInvalidDesignSpaceError(
				fmt.Sprintf("parameter %q has low %g > high %g", p.Name, p.Low, p.High))
		}
		return nil
	case KindBoolean:
		return nil
	default:
		return core.NewInvalidDesignSpaceError(fmt.Sprintf("parameter %q has unknown kind %q", p.Name, p.Kind))
	}
}

// OutcomeSpec declares one output the simulator promises to return
type OutcomeSpec struct {
	Name       string `json:"name"`
	TimeSeries bool   `json:"time_series"`
}

// Reduction selects how replications collapse to one value per sample row
type Reduction string

const (
	ReduceMean   Reduction = "mean"
	ReduceMedian Reduction = "median"
	ReduceLast   Reduction = "last" // final replication's trajectory
)

// Valid reports whether the reduction is one of the declared strategies
func (r Reduction) Valid() bool {
	switch r {
	case ReduceMean, ReduceMedian, ReduceLast:
		return true
	}
	return false
}

// Space is the full design space of a study. The order of Sampled defines
// the column order of the sample matrix; the analyzer maps indices back to
// parameter names positionally, so that order must stay stable end to end.
type Space struct {
	Sampled      []ParameterSpec `json:"sampled"`
	Constants    []ParameterSpec `json:"constants,omitempty"`
	Outcomes     []OutcomeSpec   `json:"outcomes"`
	Replications int             `json:"replications"`
}

// Validate checks the structural invariants of the design space
func (s *Space) Validate() error {
	if len(s.Sampled) == 0 {
		return core.NewInvalidDesignSpaceError("no sampled parameters: nothing to attribute variance to")
	}
	if len(s.Outcomes) == 0 {
		return core.NewInvalidDesignSpaceError("no outcomes declared")
	}
	if s.Replications < 1 {
		return core.NewInvalidDesignSpaceError(fmt.Sprintf("replications must be >= 1, got %d", s.Replications))
	}

	seen := make(map[string]bool, len(s.Sampled)+len(s.Constants))
	for _, p := range s.Sampled {
		if !p.Sampled() {
			return core.NewInvalidDesignSpaceError(fmt.Sprintf("constant parameter %q listed as sampled", p.Name))
		}
		if err := p.validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return core.NewInvalidDesignSpaceError(fmt.Sprintf("duplicate parameter name %q", p.Name))
		}
		seen[p.Name] = true
	}
	for _, p := range s.Constants {
		if p.Kind != KindConstant {
			return core.NewInvalidDesignSpaceError(fmt.Sprintf("sampled parameter %q listed as constant", p.Name))
		}
		if err := p.validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return core.NewInvalidDesignSpaceError(fmt.Sprintf("duplicate parameter name %q", p.Name))
		}
		seen[p.Name] = true
	}

	outcomes := make(map[string]bool, len(s.Outcomes))
	for _, o := range s.Outcomes {
		if o.Name == "" {
			return core.NewInvalidDesignSpaceError("outcome with empty name")
		}
		if outcomes[o.Name] {
			return core.NewInvalidDesignSpaceError(fmt.Sprintf("duplicate outcome name %q", o.Name))
		}
		outcomes[o.Name] = true
	}
	return nil
}

// ParameterNames returns sampled parameter names in column order
func (s *Space) ParameterNames() []string {
	names := make([]string, len(s.Sampled))
	for i, p := range s.Sampled {
		names[i] = p.Name
	}
	return names
}

// ConstantAssignment returns the fixed part of every parameter assignment
func (s *Space) ConstantAssignment() map[string]float64 {
	out := make(map[string]float64, len(s.Constants))
	for _, p := range s.Constants {
		out[p.Name] = p.Value
	}
	return out
}

// Outcome looks up an outcome spec by name
func (s *Space) Outcome(name string) (OutcomeSpec, bool) {
	for _, o := range s.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return OutcomeSpec{}, false
}
