package modeling

import (
	"errors"
	"fmt"
	"math"

	"github.com/inference-sim/qresim/estimator"
)

var (
	ErrAboveThreshold              = errors.New("physical error rate is not below the error correction threshold")
	ErrNonPositivePhysicalQubits   = errors.New("physical qubits per logical qubit must be positive")
	ErrNonPositiveLogicalCycleTime = errors.New("logical cycle time must be positive")
	ErrInvalidProtocolForQubit     = errors.New("protocol is not supported for this qubit instruction set")
)

var cycleTimeVariables = []string{
	VarOneQubitMeasurementTime, VarOneQubitGateTime, VarTwoQubitGateTime,
	VarTwoQubitJointMeasurementTime, VarCodeDistance,
}

// Protocol is a QEC code described by a threshold, a crossing prefactor and
// cost formulas over the code distance.
type Protocol struct {
	Name                          string
	ErrorCorrectionThreshold      float64
	CrossingPrefactor             float64
	LogicalCycleTime              *Formula
	PhysicalQubitsPerLogicalQubit *Formula
	MaxCodeDistance               uint64
}

// SurfaceCodeGateBased is the surface code on gate-based qubits.
func SurfaceCodeGateBased() *Protocol {
	return &Protocol{
		Name:                          "surface_code",
		ErrorCorrectionThreshold:      0.01,
		CrossingPrefactor:             0.03,
		LogicalCycleTime:              MustCompileFormula("(4 * twoQubitGateTime + 2 * oneQubitMeasurementTime) * codeDistance", cycleTimeVariables...),
		PhysicalQubitsPerLogicalQubit: MustCompileFormula("2 * codeDistance * codeDistance", VarCodeDistance),
		MaxCodeDistance:               estimator.MaxCodeDistance,
	}
}

// SurfaceCodeMeasurementBased is the surface code on Majorana qubits.
func SurfaceCodeMeasurementBased() *Protocol {
	return &Protocol{
		Name:                          "surface_code",
		ErrorCorrectionThreshold:      0.0015,
		CrossingPrefactor:             0.08,
		LogicalCycleTime:              MustCompileFormula("20 * oneQubitMeasurementTime * codeDistance", cycleTimeVariables...),
		PhysicalQubitsPerLogicalQubit: MustCompileFormula("2 * codeDistance * codeDistance", VarCodeDistance),
		MaxCodeDistance:               estimator.MaxCodeDistance,
	}
}

// FloquetCode is the Floquet code, available on Majorana qubits only.
func FloquetCode() *Protocol {
	return &Protocol{
		Name:                          "floquet_code",
		ErrorCorrectionThreshold:      0.01,
		CrossingPrefactor:             0.07,
		LogicalCycleTime:              MustCompileFormula("3 * oneQubitMeasurementTime * codeDistance", cycleTimeVariables...),
		PhysicalQubitsPerLogicalQubit: MustCompileFormula("4 * codeDistance * codeDistance + 8 * (codeDistance - 1)", VarCodeDistance),
		MaxCodeDistance:               estimator.MaxCodeDistance,
	}
}

// ProtocolSpec is the user-facing protocol description. A preset name
// supplies every field that is not set; other names need all fields.
type ProtocolSpec struct {
	Name                          string   `yaml:"name"`
	ErrorCorrectionThreshold      *float64 `yaml:"error_correction_threshold,omitempty"`
	CrossingPrefactor             *float64 `yaml:"crossing_prefactor,omitempty"`
	LogicalCycleTime              *string  `yaml:"logical_cycle_time,omitempty"`
	PhysicalQubitsPerLogicalQubit *string  `yaml:"physical_qubits_per_logical_qubit,omitempty"`
	MaxCodeDistance               *uint64  `yaml:"max_code_distance,omitempty"`
}

func presetProtocol(name string, q *PhysicalQubit) (*Protocol, bool, error) {
	switch name {
	case "surface_code", "surfaceCode", "surface-code":
		if q.InstructionSet == Majorana {
			return SurfaceCodeMeasurementBased(), true, nil
		}
		return SurfaceCodeGateBased(), true, nil
	case "floquet_code", "floquetCode", "floquet-code":
		if q.InstructionSet != Majorana {
			return nil, true, fmt.Errorf("%s on %s qubit: %w", name, q.InstructionSet, ErrInvalidProtocolForQubit)
		}
		return FloquetCode(), true, nil
	}
	return nil, false, nil
}

// LoadProtocol resolves spec against the qubit it will run on and checks that
// the qubit is below threshold and that both formulas yield positive values
// for every code distance from 3 to the maximum.
func LoadProtocol(spec ProtocolSpec, q *PhysicalQubit) (*Protocol, error) {
	p, predefined, err := presetProtocol(spec.Name, q)
	if err != nil {
		return nil, err
	}
	if !predefined {
		var missing []string
		if spec.ErrorCorrectionThreshold == nil {
			missing = append(missing, "error_correction_threshold")
		}
		if spec.CrossingPrefactor == nil {
			missing = append(missing, "crossing_prefactor")
		}
		if spec.LogicalCycleTime == nil {
			missing = append(missing, "logical_cycle_time")
		}
		if spec.PhysicalQubitsPerLogicalQubit == nil {
			missing = append(missing, "physical_qubits_per_logical_qubit")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("protocol %q: missing fields %v", spec.Name, missing)
		}
		p = &Protocol{Name: spec.Name, MaxCodeDistance: estimator.MaxCodeDistance}
	}

	if spec.ErrorCorrectionThreshold != nil {
		p.ErrorCorrectionThreshold = *spec.ErrorCorrectionThreshold
	}
	if spec.CrossingPrefactor != nil {
		p.CrossingPrefactor = *spec.CrossingPrefactor
	}
	if spec.MaxCodeDistance != nil {
		p.MaxCodeDistance = *spec.MaxCodeDistance
	}
	if spec.LogicalCycleTime != nil {
		if p.LogicalCycleTime, err = CompileFormula(*spec.LogicalCycleTime, cycleTimeVariables...); err != nil {
			return nil, fmt.Errorf("protocol %q logical_cycle_time: %w", spec.Name, err)
		}
	}
	if spec.PhysicalQubitsPerLogicalQubit != nil {
		if p.PhysicalQubitsPerLogicalQubit, err = CompileFormula(*spec.PhysicalQubitsPerLogicalQubit, VarCodeDistance); err != nil {
			return nil, fmt.Errorf("protocol %q physical_qubits_per_logical_qubit: %w", spec.Name, err)
		}
	}

	if p.CrossingPrefactor <= 0 || p.CrossingPrefactor > 0.5 {
		return nil, fmt.Errorf("protocol %q: crossing_prefactor must be in (0, 0.5], got %v", p.Name, p.CrossingPrefactor)
	}
	if p.ErrorCorrectionThreshold <= 0 || p.ErrorCorrectionThreshold >= 1 {
		return nil, fmt.Errorf("protocol %q: error_correction_threshold must be in (0, 1), got %v", p.Name, p.ErrorCorrectionThreshold)
	}
	if c := q.CliffordErrorRate(); c >= p.ErrorCorrectionThreshold {
		return nil, fmt.Errorf("protocol %q: clifford error rate %v of qubit %q (threshold %v): %w",
			p.Name, c, q.Name, p.ErrorCorrectionThreshold, ErrAboveThreshold)
	}
	for d := uint64(3); d <= p.MaxCodeDistance; d++ {
		if _, err := p.LogicalCycleTimeAt(q, d); err != nil {
			return nil, fmt.Errorf("protocol %q: %w", p.Name, err)
		}
		if _, err := p.PhysicalQubits(d); err != nil {
			return nil, fmt.Errorf("protocol %q: %w", p.Name, err)
		}
	}
	return p, nil
}

// PhysicalErrorRate is the error rate the protocol suppresses.
func (p *Protocol) PhysicalErrorRate(q *PhysicalQubit) float64 {
	return max(q.CliffordErrorRate(), q.ReadoutErrorRate())
}

// PhysicalQubits returns the physical qubits of one logical qubit at distance d.
func (p *Protocol) PhysicalQubits(d uint64) (uint64, error) {
	v, err := p.PhysicalQubitsPerLogicalQubit.Evaluate(map[string]float64{VarCodeDistance: float64(d)})
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("code distance %d gives %v: %w", d, v, ErrNonPositivePhysicalQubits)
	}
	return uint64(v), nil
}

// LogicalCycleTimeAt returns the rounded logical cycle time at distance d in
// nanoseconds.
func (p *Protocol) LogicalCycleTimeAt(q *PhysicalQubit, d uint64) (uint64, error) {
	vars := q.timeVariables()
	vars[VarCodeDistance] = float64(d)
	v, err := p.LogicalCycleTime.Evaluate(vars)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("code distance %d gives %v: %w", d, v, ErrNonPositiveLogicalCycleTime)
	}
	return uint64(math.Round(v)), nil
}

// LogicalErrorRate is prefactor * (p / threshold)^((d+1)/2).
func (p *Protocol) LogicalErrorRate(q *PhysicalQubit, d uint64) float64 {
	ratio := p.PhysicalErrorRate(q) / p.ErrorCorrectionThreshold
	return p.CrossingPrefactor * math.Pow(ratio, float64((d+1)/2))
}
