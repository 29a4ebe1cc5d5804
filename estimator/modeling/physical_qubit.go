// Package modeling describes physical qubits, quantum error correction
// protocols and the logical patches they form at a given code distance.
package modeling

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// InstructionSet classifies a physical qubit.
type InstructionSet string

const (
	GateBased InstructionSet = "gate_based"
	Majorana  InstructionSet = "majorana"
)

// Formula variable names for physical qubit times.
const (
	VarOneQubitMeasurementTime      = "oneQubitMeasurementTime"
	VarOneQubitGateTime             = "oneQubitGateTime"
	VarTwoQubitGateTime             = "twoQubitGateTime"
	VarTwoQubitJointMeasurementTime = "twoQubitJointMeasurementTime"
	VarCodeDistance                 = "codeDistance"
)

// MeasurementErrorRate separates the process error of a measurement from its
// readout error.
type MeasurementErrorRate struct {
	Process float64
	Readout float64
}

// PhysicalQubit is a resolved physical qubit model. Times are in nanoseconds.
// Gate fields apply to gate-based qubits, joint-measurement fields to Majorana
// qubits.
type PhysicalQubit struct {
	Name           string
	InstructionSet InstructionSet

	OneQubitMeasurementTime      uint64
	OneQubitGateTime             uint64
	TwoQubitGateTime             uint64
	TwoQubitJointMeasurementTime uint64
	TGateTime                    uint64

	OneQubitMeasurementErrorRate      MeasurementErrorRate
	OneQubitGateErrorRate             float64
	TwoQubitGateErrorRate             float64
	TwoQubitJointMeasurementErrorRate MeasurementErrorRate
	TGateErrorRate                    float64
	IdleErrorRate                     float64
}

// CliffordErrorRate is the worst error rate among Clifford operations.
func (q *PhysicalQubit) CliffordErrorRate() float64 {
	if q.InstructionSet == Majorana {
		return max(q.IdleErrorRate,
			q.OneQubitMeasurementErrorRate.Process,
			q.TwoQubitJointMeasurementErrorRate.Process)
	}
	return max(q.OneQubitGateErrorRate, q.TwoQubitGateErrorRate, q.IdleErrorRate)
}

func (q *PhysicalQubit) ReadoutErrorRate() float64 {
	if q.InstructionSet == Majorana {
		return max(q.OneQubitMeasurementErrorRate.Readout, q.TwoQubitJointMeasurementErrorRate.Readout)
	}
	return q.OneQubitMeasurementErrorRate.Readout
}

// SupportsPhysicalDistillation reports whether distillation can run directly
// on physical qubits, which requires Clifford operations an order of
// magnitude better than T gates.
func (q *PhysicalQubit) SupportsPhysicalDistillation() bool {
	return q.CliffordErrorRate() <= 0.1*q.TGateErrorRate
}

// timeVariables returns the formula variables the qubit defines.
func (q *PhysicalQubit) timeVariables() map[string]float64 {
	vars := map[string]float64{
		VarOneQubitMeasurementTime: float64(q.OneQubitMeasurementTime),
	}
	if q.InstructionSet == Majorana {
		vars[VarTwoQubitJointMeasurementTime] = float64(q.TwoQubitJointMeasurementTime)
	} else {
		vars[VarOneQubitGateTime] = float64(q.OneQubitGateTime)
		vars[VarTwoQubitGateTime] = float64(q.TwoQubitGateTime)
	}
	return vars
}

// === Presets ===

func gateBasedPreset(name string, measurementTime, gateTime uint64, errorRate, tErrorRate float64) PhysicalQubit {
	return PhysicalQubit{
		Name:                         name,
		InstructionSet:               GateBased,
		OneQubitMeasurementTime:      measurementTime,
		OneQubitGateTime:             gateTime,
		TwoQubitGateTime:             gateTime,
		TGateTime:                    gateTime,
		OneQubitMeasurementErrorRate: MeasurementErrorRate{errorRate, errorRate},
		OneQubitGateErrorRate:        errorRate,
		TwoQubitGateErrorRate:        errorRate,
		TGateErrorRate:               tErrorRate,
		IdleErrorRate:                errorRate,
	}
}

func majoranaPreset(name string, errorRate, tErrorRate float64) PhysicalQubit {
	return PhysicalQubit{
		Name:                              name,
		InstructionSet:                    Majorana,
		OneQubitMeasurementTime:           100,
		TwoQubitJointMeasurementTime:      100,
		TGateTime:                         100,
		OneQubitMeasurementErrorRate:      MeasurementErrorRate{errorRate, errorRate},
		TwoQubitJointMeasurementErrorRate: MeasurementErrorRate{errorRate, errorRate},
		TGateErrorRate:                    tErrorRate,
		IdleErrorRate:                     errorRate,
	}
}

var qubitPresets = map[string]PhysicalQubit{
	"qubit_gate_ns_e3": gateBasedPreset("qubit_gate_ns_e3", 100, 50, 1e-3, 1e-3),
	"qubit_gate_ns_e4": gateBasedPreset("qubit_gate_ns_e4", 100, 50, 1e-4, 1e-4),
	"qubit_gate_us_e3": gateBasedPreset("qubit_gate_us_e3", 100_000, 100_000, 1e-3, 1e-6),
	"qubit_gate_us_e4": gateBasedPreset("qubit_gate_us_e4", 100_000, 100_000, 1e-4, 1e-6),
	"qubit_maj_ns_e4":  majoranaPreset("qubit_maj_ns_e4", 1e-4, 0.05),
	"qubit_maj_ns_e6":  majoranaPreset("qubit_maj_ns_e6", 1e-6, 0.01),
}

// DefaultQubitName is the preset used when no qubit is configured.
const DefaultQubitName = "qubit_gate_ns_e3"

// QubitPreset returns a copy of the named preset.
func QubitPreset(name string) (PhysicalQubit, bool) {
	q, ok := qubitPresets[name]
	return q, ok
}

// QubitPresetNames lists the preset names.
func QubitPresetNames() []string {
	return []string{
		"qubit_gate_ns_e3", "qubit_gate_ns_e4", "qubit_gate_us_e3", "qubit_gate_us_e4",
		"qubit_maj_ns_e4", "qubit_maj_ns_e6",
	}
}

// === YAML specification ===

// ErrorRateSpec is either a single rate or separate process and readout rates.
type ErrorRateSpec struct {
	Process float64 `yaml:"process"`
	Readout float64 `yaml:"readout"`
}

// UnmarshalYAML accepts a scalar or a {process, readout} mapping with both
// keys present.
func (e *ErrorRateSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		e.Process, e.Readout = v, v
		return nil
	}
	var m struct {
		Process *float64 `yaml:"process"`
		Readout *float64 `yaml:"readout"`
	}
	if err := node.Decode(&m); err != nil {
		return err
	}
	if m.Process == nil || m.Readout == nil {
		return fmt.Errorf("line %d: error rate mapping needs both process and readout", node.Line)
	}
	e.Process, e.Readout = *m.Process, *m.Readout
	return nil
}

// QubitSpec is the user-facing qubit description. A preset name supplies
// every field that is not set explicitly.
type QubitSpec struct {
	Name           string `yaml:"name"`
	InstructionSet string `yaml:"instruction_set,omitempty"`

	OneQubitMeasurementTime      *uint64 `yaml:"one_qubit_measurement_time,omitempty"`
	OneQubitGateTime             *uint64 `yaml:"one_qubit_gate_time,omitempty"`
	TwoQubitGateTime             *uint64 `yaml:"two_qubit_gate_time,omitempty"`
	TwoQubitJointMeasurementTime *uint64 `yaml:"two_qubit_joint_measurement_time,omitempty"`
	TGateTime                    *uint64 `yaml:"t_gate_time,omitempty"`

	OneQubitMeasurementErrorRate      *ErrorRateSpec `yaml:"one_qubit_measurement_error_rate,omitempty"`
	OneQubitGateErrorRate             *float64       `yaml:"one_qubit_gate_error_rate,omitempty"`
	TwoQubitGateErrorRate             *float64       `yaml:"two_qubit_gate_error_rate,omitempty"`
	TwoQubitJointMeasurementErrorRate *ErrorRateSpec `yaml:"two_qubit_joint_measurement_error_rate,omitempty"`
	TGateErrorRate                    *float64       `yaml:"t_gate_error_rate,omitempty"`
	IdleErrorRate                     *float64       `yaml:"idle_error_rate,omitempty"`
}

func parseInstructionSet(s string) (InstructionSet, error) {
	switch s {
	case "gate_based", "gateBased", "gate-based", "GateBased":
		return GateBased, nil
	case "Majorana", "majorana":
		return Majorana, nil
	}
	return "", fmt.Errorf("unknown instruction set %q (expected gate_based or majorana)", s)
}

func fill[T any](dst **T, v T) {
	if *dst == nil {
		*dst = &v
	}
}

func fillFrom[T any](dst **T, src *T) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

func specOf(q PhysicalQubit) QubitSpec {
	s := QubitSpec{Name: q.Name, InstructionSet: string(q.InstructionSet)}
	fill(&s.OneQubitMeasurementTime, q.OneQubitMeasurementTime)
	fill(&s.TGateTime, q.TGateTime)
	fill(&s.OneQubitMeasurementErrorRate, ErrorRateSpec(q.OneQubitMeasurementErrorRate))
	fill(&s.TGateErrorRate, q.TGateErrorRate)
	fill(&s.IdleErrorRate, q.IdleErrorRate)
	if q.InstructionSet == Majorana {
		fill(&s.TwoQubitJointMeasurementTime, q.TwoQubitJointMeasurementTime)
		fill(&s.TwoQubitJointMeasurementErrorRate, ErrorRateSpec(q.TwoQubitJointMeasurementErrorRate))
	} else {
		fill(&s.OneQubitGateTime, q.OneQubitGateTime)
		fill(&s.TwoQubitGateTime, q.TwoQubitGateTime)
		fill(&s.OneQubitGateErrorRate, q.OneQubitGateErrorRate)
		fill(&s.TwoQubitGateErrorRate, q.TwoQubitGateErrorRate)
	}
	return s
}

func (s *QubitSpec) overwriteFrom(base QubitSpec) {
	fillFrom(&s.OneQubitMeasurementTime, base.OneQubitMeasurementTime)
	fillFrom(&s.OneQubitGateTime, base.OneQubitGateTime)
	fillFrom(&s.TwoQubitGateTime, base.TwoQubitGateTime)
	fillFrom(&s.TwoQubitJointMeasurementTime, base.TwoQubitJointMeasurementTime)
	fillFrom(&s.TGateTime, base.TGateTime)
	fillFrom(&s.OneQubitMeasurementErrorRate, base.OneQubitMeasurementErrorRate)
	fillFrom(&s.OneQubitGateErrorRate, base.OneQubitGateErrorRate)
	fillFrom(&s.TwoQubitGateErrorRate, base.TwoQubitGateErrorRate)
	fillFrom(&s.TwoQubitJointMeasurementErrorRate, base.TwoQubitJointMeasurementErrorRate)
	fillFrom(&s.TGateErrorRate, base.TGateErrorRate)
	fillFrom(&s.IdleErrorRate, base.IdleErrorRate)
}

// Resolve builds the qubit model. Unset fields come first from the preset
// named by Name and then from the instruction set's derivation rules.
func (s QubitSpec) Resolve() (PhysicalQubit, error) {
	preset, hasPreset := qubitPresets[s.Name]

	set := GateBased
	switch {
	case s.InstructionSet != "":
		parsed, err := parseInstructionSet(s.InstructionSet)
		if err != nil {
			return PhysicalQubit{}, err
		}
		set = parsed
	case hasPreset:
		set = preset.InstructionSet
	}
	if hasPreset && preset.InstructionSet == set {
		s.overwriteFrom(specOf(preset))
	}

	var missing []string
	require := func(unset bool, field string) {
		if unset {
			missing = append(missing, field)
		}
	}
	require(s.OneQubitMeasurementTime == nil, "one_qubit_measurement_time")
	require(s.OneQubitMeasurementErrorRate == nil, "one_qubit_measurement_error_rate")
	require(s.TGateErrorRate == nil, "t_gate_error_rate")
	if set == GateBased {
		require(s.OneQubitGateTime == nil, "one_qubit_gate_time")
		require(s.OneQubitGateErrorRate == nil, "one_qubit_gate_error_rate")
	}
	if len(missing) > 0 {
		return PhysicalQubit{}, fmt.Errorf("qubit %q: missing fields %s", s.Name, strings.Join(missing, ", "))
	}

	measurement := MeasurementErrorRate(*s.OneQubitMeasurementErrorRate)
	if set == GateBased {
		fillFrom(&s.TwoQubitGateTime, s.OneQubitGateTime)
		fillFrom(&s.TGateTime, s.OneQubitGateTime)
		fillFrom(&s.TwoQubitGateErrorRate, s.OneQubitGateErrorRate)
		fill(&s.IdleErrorRate, measurement.Readout)
	} else {
		fillFrom(&s.TwoQubitJointMeasurementTime, s.OneQubitMeasurementTime)
		fillFrom(&s.TGateTime, s.OneQubitMeasurementTime)
		fill(&s.TwoQubitJointMeasurementErrorRate, ErrorRateSpec{measurement.Readout, measurement.Readout})
		fill(&s.IdleErrorRate, measurement.Readout)
	}

	q := PhysicalQubit{
		Name:                         s.Name,
		InstructionSet:               set,
		OneQubitMeasurementTime:      *s.OneQubitMeasurementTime,
		TGateTime:                    *s.TGateTime,
		OneQubitMeasurementErrorRate: measurement,
		TGateErrorRate:               *s.TGateErrorRate,
		IdleErrorRate:                *s.IdleErrorRate,
	}
	if set == GateBased {
		q.OneQubitGateTime = *s.OneQubitGateTime
		q.TwoQubitGateTime = *s.TwoQubitGateTime
		q.OneQubitGateErrorRate = *s.OneQubitGateErrorRate
		q.TwoQubitGateErrorRate = *s.TwoQubitGateErrorRate
	} else {
		q.TwoQubitJointMeasurementTime = *s.TwoQubitJointMeasurementTime
		q.TwoQubitJointMeasurementErrorRate = MeasurementErrorRate(*s.TwoQubitJointMeasurementErrorRate)
	}
	if err := q.Validate(); err != nil {
		return PhysicalQubit{}, err
	}
	return q, nil
}

// Validate checks that all error rates lie strictly between 0 and 1 and that
// the measurement time is positive.
func (q *PhysicalQubit) Validate() error {
	if q.OneQubitMeasurementTime == 0 {
		return fmt.Errorf("qubit %q: one_qubit_measurement_time must be positive", q.Name)
	}
	type rate struct {
		name  string
		value float64
	}
	rates := []rate{
		{"one_qubit_measurement_error_rate.process", q.OneQubitMeasurementErrorRate.Process},
		{"one_qubit_measurement_error_rate.readout", q.OneQubitMeasurementErrorRate.Readout},
		{"t_gate_error_rate", q.TGateErrorRate},
		{"idle_error_rate", q.IdleErrorRate},
	}
	if q.InstructionSet == GateBased {
		rates = append(rates,
			rate{"one_qubit_gate_error_rate", q.OneQubitGateErrorRate},
			rate{"two_qubit_gate_error_rate", q.TwoQubitGateErrorRate})
	} else {
		rates = append(rates,
			rate{"two_qubit_joint_measurement_error_rate.process", q.TwoQubitJointMeasurementErrorRate.Process},
			rate{"two_qubit_joint_measurement_error_rate.readout", q.TwoQubitJointMeasurementErrorRate.Readout})
	}
	for _, r := range rates {
		if math.IsNaN(r.value) || r.value <= 0 || r.value >= 1 {
			return fmt.Errorf("qubit %q: %s must be in (0, 1), got %v", q.Name, r.name, r.value)
		}
	}
	return nil
}
