package tfactory

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inference-sim/qresim/estimator/modeling"
)

// Build errors. The search treats them as signals about whether a larger
// code distance can help, not as failures.
var (
	ErrLowFailureProbability                   = errors.New("failure probability is not positive")
	ErrHighFailureProbability                  = errors.New("failure probability is at least 1")
	ErrOutputErrorRateHigherThanInputErrorRate = errors.New("output error rate is higher than input error rate")
	ErrUnreasonableHighNumberOfUnitsRequired   = errors.New("unreasonably high number of units required")
)

const maxUnitsPerRound = 1_000_000_000_000_000

// Factory is a buildable T-factory as seen by the search.
type Factory interface {
	PhysicalQubits() uint64
	Duration() uint64
	NumOutputStates() uint64
	NormalizedQubits() float64
	OutputErrorRate() float64
	CodeParameterPerRound() []uint64
}

// BuildFunc builds a factory from an ordered unit list. RoundBasedBuilder is
// the default.
type BuildFunc func(units []*Unit, inputErrorRate, failureProbabilityRequirement float64) (Factory, error)

// RoundBasedBuilder adapts BuildRoundBasedFactory to BuildFunc.
func RoundBasedBuilder(units []*Unit, inputErrorRate, failureProbabilityRequirement float64) (Factory, error) {
	f, err := BuildRoundBasedFactory(units, inputErrorRate, failureProbabilityRequirement)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// DistillationRound is one round of a factory: several copies of the same
// unit.
type DistillationRound struct {
	numUnits                      uint64
	failureProbabilityRequirement float64
	numOutputStates               uint64
	numInputStates                uint64
	duration                      uint64
	physicalQubits                uint64
	name                          string
	codeParameter                 uint64
}

func newDistillationRound(u *Unit, failureProbabilityRequirement float64, position int) DistillationRound {
	return DistillationRound{
		numUnits:                      1,
		failureProbabilityRequirement: failureProbabilityRequirement,
		numOutputStates:               u.NumOutputStates(),
		numInputStates:                u.NumInputStates(),
		duration:                      u.Duration(position),
		physicalQubits:                u.PhysicalQubits(position),
		name:                          u.Name,
		codeParameter:                 u.CodeDistance,
	}
}

// computeNumOutputStates returns the number of output states produced with
// probability at least 1 - requirement when each unit fails with
// probability q.
func (r *DistillationRound) computeNumOutputStates(q float64) uint64 {
	if q == 0 && r.failureProbabilityRequirement == 0 {
		return r.numUnits * r.numOutputStates
	}
	return binomialQuantile(r.numUnits, 1-q, r.failureProbabilityRequirement) * r.numOutputStates
}

// binomialQuantile is the smallest k with P(X <= k) >= alpha for
// X ~ Binomial(n, p).
func binomialQuantile(n uint64, p, alpha float64) uint64 {
	dist := distuv.Binomial{N: float64(n), P: p}
	lo, hi := uint64(0), n
	for lo < hi {
		mid := lo + (hi-lo)/2
		if dist.CDF(float64(mid)) >= alpha {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// adjustNumUnitsTo finds the smallest unit count that yields needed output
// states: doubling from the failure-free estimate, then bisecting.
func (r *DistillationRound) adjustNumUnitsTo(needed uint64, q float64) error {
	r.numUnits = (needed + r.numOutputStates - 1) / r.numOutputStates
	for r.computeNumOutputStates(q) < needed {
		r.numUnits *= 2
		if r.numUnits >= maxUnitsPerRound {
			return ErrUnreasonableHighNumberOfUnitsRequired
		}
	}

	upper := r.numUnits
	lower := r.numUnits / 2
	for lower < upper {
		r.numUnits = (lower + upper) / 2
		if r.computeNumOutputStates(q) >= needed {
			upper = r.numUnits
		} else {
			lower = r.numUnits + 1
		}
	}
	r.numUnits = upper
	return nil
}

func (r *DistillationRound) PhysicalQubits() uint64 { return r.numUnits * r.physicalQubits }
func (r *DistillationRound) Duration() uint64       { return r.duration }
func (r *DistillationRound) NumUnits() uint64       { return r.numUnits }
func (r *DistillationRound) Name() string           { return r.name }

// PhysicalQubitCalculation selects how round footprints combine.
type PhysicalQubitCalculation int

const (
	// PhysicalQubitsMax shares qubits among rounds.
	PhysicalQubitsMax PhysicalQubitCalculation = iota
	// PhysicalQubitsSum gives each round its own qubits.
	PhysicalQubitsSum
)

// ParsePhysicalQubitCalculation reads "max" or "sum". Empty means "max".
func ParsePhysicalQubitCalculation(s string) (PhysicalQubitCalculation, error) {
	switch s {
	case "", "max":
		return PhysicalQubitsMax, nil
	case "sum":
		return PhysicalQubitsSum, nil
	}
	return PhysicalQubitsMax, fmt.Errorf("unknown physical qubit calculation %q (want max or sum)", s)
}

// RoundBasedBuilderWith is RoundBasedBuilder with calc applied to every
// factory it builds.
func RoundBasedBuilderWith(calc PhysicalQubitCalculation) BuildFunc {
	return func(units []*Unit, inputErrorRate, failureProbabilityRequirement float64) (Factory, error) {
		f, err := BuildRoundBasedFactory(units, inputErrorRate, failureProbabilityRequirement)
		if err != nil {
			return nil, err
		}
		f.SetPhysicalQubitCalculation(calc)
		return f, nil
	}
}

// RoundBasedFactory is a pipeline of distillation rounds.
type RoundBasedFactory struct {
	failureProbabilityRequirement    float64
	rounds                           []DistillationRound
	inputErrorRateBeforeEachRound    []float64
	failureProbabilityAfterEachRound []float64
	qubitCalculation                 PhysicalQubitCalculation
}

// BuildRoundBasedFactory adds one round per unit, splitting the failure
// probability budget evenly, then sizes the rounds from last to first so
// that each produces the inputs the next one consumes.
func BuildRoundBasedFactory(units []*Unit, inputErrorRate, failureProbabilityRequirement float64) (*RoundBasedFactory, error) {
	n := len(units)
	f := &RoundBasedFactory{
		failureProbabilityRequirement:    failureProbabilityRequirement,
		rounds:                           make([]DistillationRound, 0, n),
		inputErrorRateBeforeEachRound:    append(make([]float64, 0, n+1), inputErrorRate),
		failureProbabilityAfterEachRound: make([]float64, n+1),
	}
	for i := range f.failureProbabilityAfterEachRound {
		f.failureProbabilityAfterEachRound[i] = 1
	}

	perRound := failureProbabilityRequirement / float64(n)
	for position, u := range units {
		in := f.inputErrorRateBeforeEachRound[len(f.inputErrorRateBeforeEachRound)-1]
		out := u.OutputErrorRate(in)
		if math.IsNaN(out) || out > in {
			return nil, ErrOutputErrorRateHigherThanInputErrorRate
		}
		f.rounds = append(f.rounds, newDistillationRound(u, perRound, position))
		f.inputErrorRateBeforeEachRound = append(f.inputErrorRateBeforeEachRound, out)
	}

	if n == 0 {
		return f, nil
	}
	needed := f.rounds[n-1].numOutputStates
	for idx := n - 1; idx >= 0; idx-- {
		q := units[idx].FailureProbability(f.inputErrorRateBeforeEachRound[idx])
		switch {
		case q <= 0:
			return nil, ErrLowFailureProbability
		case math.IsNaN(q) || q >= 1:
			return nil, ErrHighFailureProbability
		}
		f.failureProbabilityAfterEachRound[idx] = q
		if err := f.rounds[idx].adjustNumUnitsTo(needed, q); err != nil {
			return nil, err
		}
		needed = f.rounds[idx].numInputStates * f.rounds[idx].numUnits
	}
	return f, nil
}

// DefaultFactory is the single-round pass-through factory on patch, used when
// the physical T gate already meets the target error rate.
func DefaultFactory(patch *modeling.LogicalPatch) *RoundBasedFactory {
	u := NewUnit(TrivialTemplate(), LogicalFactoryQubit(patch))
	t := patch.LogicalErrorRate
	return &RoundBasedFactory{
		rounds:                           []DistillationRound{newDistillationRound(u, 0, 0)},
		inputErrorRateBeforeEachRound:    []float64{t, t},
		failureProbabilityAfterEachRound: []float64{0, 0},
	}
}

// SetPhysicalQubitCalculation changes how PhysicalQubits combines rounds.
func (f *RoundBasedFactory) SetPhysicalQubitCalculation(c PhysicalQubitCalculation) {
	f.qubitCalculation = c
}

func (f *RoundBasedFactory) Rounds() []DistillationRound { return f.rounds }

func (f *RoundBasedFactory) NumRounds() int { return len(f.rounds) }

func (f *RoundBasedFactory) PhysicalQubits() uint64 {
	var out uint64
	for i := range f.rounds {
		q := f.rounds[i].PhysicalQubits()
		if f.qubitCalculation == PhysicalQubitsSum {
			out += q
		} else {
			out = max(out, q)
		}
	}
	return out
}

// Duration is the runtime in nanoseconds, the sum over rounds.
func (f *RoundBasedFactory) Duration() uint64 {
	var out uint64
	for i := range f.rounds {
		out += f.rounds[i].duration
	}
	return out
}

// NumOutputStates is the number of T states the last round delivers.
func (f *RoundBasedFactory) NumOutputStates() uint64 {
	n := len(f.rounds)
	if n == 0 {
		return 0
	}
	return f.rounds[n-1].computeNumOutputStates(f.failureProbabilityAfterEachRound[n-1])
}

// NumInputStates is the number of T states the first round consumes.
func (f *RoundBasedFactory) NumInputStates() uint64 {
	if len(f.rounds) == 0 {
		return 0
	}
	return f.rounds[0].numInputStates * f.rounds[0].numUnits
}

// NormalizedQubits is the physical qubit count per output T state.
func (f *RoundBasedFactory) NormalizedQubits() float64 {
	return float64(f.PhysicalQubits()) / float64(f.NumOutputStates())
}

func (f *RoundBasedFactory) InputErrorRate() float64 { return f.inputErrorRateBeforeEachRound[0] }

func (f *RoundBasedFactory) OutputErrorRate() float64 {
	return f.inputErrorRateBeforeEachRound[len(f.rounds)]
}

func (f *RoundBasedFactory) NumUnitsPerRound() []uint64 {
	out := make([]uint64, len(f.rounds))
	for i := range f.rounds {
		out[i] = f.rounds[i].numUnits
	}
	return out
}

func (f *RoundBasedFactory) UnitNames() []string {
	out := make([]string, len(f.rounds))
	for i := range f.rounds {
		out[i] = f.rounds[i].name
	}
	return out
}

func (f *RoundBasedFactory) CodeParameterPerRound() []uint64 {
	out := make([]uint64, len(f.rounds))
	for i := range f.rounds {
		out[i] = f.rounds[i].codeParameter
	}
	return out
}

func (f *RoundBasedFactory) PhysicalQubitsPerRound() []uint64 {
	out := make([]uint64, len(f.rounds))
	for i := range f.rounds {
		out[i] = f.rounds[i].PhysicalQubits()
	}
	return out
}

func (f *RoundBasedFactory) DurationPerRound() []uint64 {
	out := make([]uint64, len(f.rounds))
	for i := range f.rounds {
		out[i] = f.rounds[i].duration
	}
	return out
}

type factoryJSON struct {
	PhysicalQubits         uint64   `json:"physicalQubits"`
	Runtime                uint64   `json:"runtime"`
	NumTstates             uint64   `json:"numTstates"`
	NumInputTstates        uint64   `json:"numInputTstates"`
	NumRounds              int      `json:"numRounds"`
	NumUnitsPerRound       []uint64 `json:"numUnitsPerRound"`
	UnitNamePerRound       []string `json:"unitNamePerRound"`
	CodeDistancePerRound   []uint64 `json:"codeDistancePerRound"`
	PhysicalQubitsPerRound []uint64 `json:"physicalQubitsPerRound"`
	RuntimePerRound        []uint64 `json:"runtimePerRound"`
	LogicalErrorRate       float64  `json:"logicalErrorRate"`
}

// MarshalJSON writes the factory report.
func (f *RoundBasedFactory) MarshalJSON() ([]byte, error) {
	return json.Marshal(factoryJSON{
		PhysicalQubits:         f.PhysicalQubits(),
		Runtime:                f.Duration(),
		NumTstates:             f.NumOutputStates(),
		NumInputTstates:        f.NumInputStates(),
		NumRounds:              f.NumRounds(),
		NumUnitsPerRound:       f.NumUnitsPerRound(),
		UnitNamePerRound:       f.UnitNames(),
		CodeDistancePerRound:   f.CodeParameterPerRound(),
		PhysicalQubitsPerRound: f.PhysicalQubitsPerRound(),
		RuntimePerRound:        f.DurationPerRound(),
		LogicalErrorRate:       f.OutputErrorRate(),
	})
}
