// Package tfactory searches for Pareto-optimal T-factories: chains of
// distillation units, each run at a code distance, that turn noisy T states
// into states below a target error rate.
package tfactory

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/qresim/estimator/modeling"
)

// ErrInvalidTemplate reports a distillation unit description that cannot be
// used.
var ErrInvalidTemplate = errors.New("invalid distillation unit template")

// UnitType says on which level a template can run.
type UnitType int

const (
	UnitLogical UnitType = iota
	UnitPhysical
	UnitCombined
)

func (t UnitType) String() string {
	switch t {
	case UnitLogical:
		return "Logical"
	case UnitPhysical:
		return "Physical"
	case UnitCombined:
		return "Combined"
	}
	return fmt.Sprintf("UnitType(%d)", int(t))
}

// FormulaFunc evaluates a failure probability or output error rate from the
// input T error rate z, the Clifford error rate c and the readout error rate r.
type FormulaFunc func(z, c, r float64) float64

// UnitResources is the cost of one unit in multiples of the underlying qubit:
// qubits per unit and duration in qubit cycles.
type UnitResources struct {
	NumUnitQubits            uint64 `yaml:"num_unit_qubits"`
	DurationInQubitCycleTime uint64 `yaml:"duration_in_qubit_cycle_time"`
}

// Template is a distillation unit independent of the code distance it will
// run at.
type Template struct {
	Name                      string
	NumInputTs                uint64
	NumOutputTs               uint64
	FailureProbability        FormulaFunc
	OutputErrorRate           FormulaFunc
	Type                      UnitType
	Physical                  *UnitResources
	Logical                   *UnitResources
	LogicalFirstRoundOverride *UnitResources
}

func rmFailureProbability(z, c, _ float64) float64 { return 15*z + 356*c }

func rmOutputErrorRate(z, c, _ float64) float64 { return 35*z*z*z + 7.1*c }

// RMPrepTemplate is the 15-to-1 Reed-Muller distillation unit with state
// preparation.
func RMPrepTemplate() *Template {
	return &Template{
		Name:               "15-to-1 RM prep",
		NumInputTs:         15,
		NumOutputTs:        1,
		FailureProbability: rmFailureProbability,
		OutputErrorRate:    rmOutputErrorRate,
		Type:               UnitCombined,
		Physical:           &UnitResources{NumUnitQubits: 31, DurationInQubitCycleTime: 24},
		Logical:            &UnitResources{NumUnitQubits: 31, DurationInQubitCycleTime: 11},
	}
}

// SpaceEfficientTemplate is the 15-to-1 unit with fewer qubits and longer
// runtime.
func SpaceEfficientTemplate() *Template {
	return &Template{
		Name:               "15-to-1 space efficient",
		NumInputTs:         15,
		NumOutputTs:        1,
		FailureProbability: rmFailureProbability,
		OutputErrorRate:    rmOutputErrorRate,
		Type:               UnitCombined,
		Physical:           &UnitResources{NumUnitQubits: 12, DurationInQubitCycleTime: 45},
		Logical:            &UnitResources{NumUnitQubits: 20, DurationInQubitCycleTime: 13},
	}
}

// TrivialTemplate passes a T state through unchanged. It backs the factory
// used when no distillation is needed.
func TrivialTemplate() *Template {
	return &Template{
		Name:               "trivial 1-to-1",
		NumInputTs:         1,
		NumOutputTs:        1,
		FailureProbability: func(_, _, _ float64) float64 { return 0 },
		OutputErrorRate:    func(z, _, _ float64) float64 { return z },
		Type:               UnitLogical,
		Logical:            &UnitResources{NumUnitQubits: 1, DurationInQubitCycleTime: 1},
	}
}

// DefaultTemplates returns the templates searched when none are configured.
func DefaultTemplates() []*Template {
	return []*Template{RMPrepTemplate(), SpaceEfficientTemplate()}
}

// TemplateByName resolves a preset name, accepting the usual spellings.
func TemplateByName(name string) (*Template, error) {
	switch name {
	case "15-1 RM", "15-1 RM prep", "15-to-1 RM", "15-to-1 RM prep":
		return RMPrepTemplate(), nil
	case "15-1 space-efficient", "15-1 space efficient", "15-to-1 space-efficient", "15-to-1 space efficient":
		return SpaceEfficientTemplate(), nil
	}
	return nil, fmt.Errorf("%w: unknown preset %q", ErrInvalidTemplate, name)
}

var templateFormulaVariables = []string{
	"inputErrorRate", "cliffordErrorRate", "readoutErrorRate", "z", "c", "r",
}

// TemplateSpec is a distillation unit in an estimator configuration: either
// a preset name alone or a custom unit with formulas.
type TemplateSpec struct {
	Name                      string         `yaml:"name,omitempty"`
	DisplayName               string         `yaml:"display_name,omitempty"`
	NumInputTs                uint64         `yaml:"num_input_ts,omitempty"`
	NumOutputTs               uint64         `yaml:"num_output_ts,omitempty"`
	FailureProbabilityFormula string         `yaml:"failure_probability_formula,omitempty"`
	OutputErrorRateFormula    string         `yaml:"output_error_rate_formula,omitempty"`
	Physical                  *UnitResources `yaml:"physical_qubit_specification,omitempty"`
	Logical                   *UnitResources `yaml:"logical_qubit_specification,omitempty"`
	LogicalFirstRoundOverride *UnitResources `yaml:"logical_qubit_specification_first_round_override,omitempty"`
}

func (s TemplateSpec) isCustom() bool {
	return s.DisplayName != "" || s.NumInputTs != 0 || s.NumOutputTs != 0 ||
		s.FailureProbabilityFormula != "" || s.OutputErrorRateFormula != "" ||
		s.Physical != nil || s.Logical != nil || s.LogicalFirstRoundOverride != nil
}

// Build turns the specification into a template.
func (s TemplateSpec) Build() (*Template, error) {
	if !s.isCustom() {
		return TemplateByName(s.Name)
	}
	if s.Name != "" {
		return nil, fmt.Errorf("%w: %q combines a preset name with custom fields; use display_name", ErrInvalidTemplate, s.Name)
	}
	if s.DisplayName == "" {
		return nil, fmt.Errorf("%w: custom unit needs display_name", ErrInvalidTemplate)
	}
	if s.NumInputTs == 0 || s.NumOutputTs == 0 {
		return nil, fmt.Errorf("%w: %q needs positive num_input_ts and num_output_ts", ErrInvalidTemplate, s.DisplayName)
	}

	t := &Template{
		Name:                      s.DisplayName,
		NumInputTs:                s.NumInputTs,
		NumOutputTs:               s.NumOutputTs,
		Physical:                  s.Physical,
		Logical:                   s.Logical,
		LogicalFirstRoundOverride: s.LogicalFirstRoundOverride,
	}
	switch {
	case s.Physical != nil && s.Logical != nil:
		t.Type = UnitCombined
	case s.Physical != nil:
		t.Type = UnitPhysical
	case s.Logical != nil:
		t.Type = UnitLogical
	default:
		return nil, fmt.Errorf("%w: %q needs a physical or logical qubit specification", ErrInvalidTemplate, s.DisplayName)
	}
	if s.LogicalFirstRoundOverride != nil && s.Logical == nil {
		return nil, fmt.Errorf("%w: %q has a first round override without a logical specification", ErrInvalidTemplate, s.DisplayName)
	}

	var err error
	if t.FailureProbability, err = compileTemplateFormula(s.DisplayName, "failure_probability_formula", s.FailureProbabilityFormula); err != nil {
		return nil, err
	}
	if t.OutputErrorRate, err = compileTemplateFormula(s.DisplayName, "output_error_rate_formula", s.OutputErrorRateFormula); err != nil {
		return nil, err
	}
	return t, nil
}

// compileTemplateFormula returns a FormulaFunc that yields NaN when the
// expression fails at runtime; the factory builder rejects NaN values.
func compileTemplateFormula(unit, field, source string) (FormulaFunc, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: %q needs %s", ErrInvalidTemplate, unit, field)
	}
	f, err := modeling.CompileFormula(source, templateFormulaVariables...)
	if err != nil {
		return nil, fmt.Errorf("%w: %q %s: %v", ErrInvalidTemplate, unit, field, err)
	}
	return func(z, c, r float64) float64 {
		v, err := f.Evaluate(map[string]float64{
			"inputErrorRate": z, "cliffordErrorRate": c, "readoutErrorRate": r,
			"z": z, "c": c, "r": r,
		})
		if err != nil {
			logrus.Warnf("distillation unit %q: %v", unit, err)
			return math.NaN()
		}
		return v
	}, nil
}
