package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/qresim/estimator"
	"github.com/inference-sim/qresim/estimator/modeling"
	"github.com/inference-sim/qresim/estimator/tfactory"
)

// DefaultErrorRate is the T-state error rate searched for when neither the
// config nor the flags set one.
const DefaultErrorRate = 1e-9

// EstimatorConfig is the estimator configuration file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type EstimatorConfig struct {
	Qubit                    modeling.QubitSpec      `yaml:"qubit"`
	Protocol                 modeling.ProtocolSpec   `yaml:"protocol"`
	DistillationUnits        []tfactory.TemplateSpec `yaml:"distillation_units"`
	MaxCodeDistance          uint64                  `yaml:"max_code_distance"`
	MaxDistillationRounds    int                     `yaml:"max_distillation_rounds"`
	ErrorRate                float64                 `yaml:"error_rate"`
	PhysicalQubitCalculation string                  `yaml:"physical_qubit_calculation"` // "max" (rounds share qubits) or "sum"
}

// DefaultEstimatorConfig is used when no config file is given.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Qubit:                 modeling.QubitSpec{Name: modeling.DefaultQubitName},
		Protocol:              modeling.ProtocolSpec{Name: "surface_code"},
		MaxDistillationRounds: estimator.MaxDistillationRounds,
		ErrorRate:             DefaultErrorRate,
	}
}

// LoadEstimatorConfig reads path over the defaults with strict field checking.
func LoadEstimatorConfig(path string) (EstimatorConfig, error) {
	cfg := DefaultEstimatorConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading estimator config: %w", err)
	}
	// Parse YAML with strict field checking: typos must cause errors
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing estimator config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("estimator config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the search bounds. Qubit, protocol and unit fields are
// checked when the config is resolved.
func (c *EstimatorConfig) Validate() error {
	if c.ErrorRate <= 0 || c.ErrorRate >= 1 {
		return fmt.Errorf("error_rate must be in (0, 1), got %v", c.ErrorRate)
	}
	if c.MaxDistillationRounds < 1 || c.MaxDistillationRounds > estimator.MaxExtraDistillationRounds {
		return fmt.Errorf("max_distillation_rounds must be in [1, %d], got %d",
			estimator.MaxExtraDistillationRounds, c.MaxDistillationRounds)
	}
	if c.MaxCodeDistance != 0 && c.MaxCodeDistance < 3 {
		return fmt.Errorf("max_code_distance must be at least 3, got %d", c.MaxCodeDistance)
	}
	if c.Qubit.Name == "" && c.Qubit.InstructionSet == "" {
		return fmt.Errorf("qubit needs a name or an instruction_set")
	}
	if c.Protocol.Name == "" {
		return fmt.Errorf("protocol needs a name")
	}
	if _, err := tfactory.ParsePhysicalQubitCalculation(c.PhysicalQubitCalculation); err != nil {
		return fmt.Errorf("physical_qubit_calculation: %w", err)
	}
	return nil
}

// Resolve builds the qubit, protocol and distillation templates and returns
// the search configuration. An empty distillation_units list searches the
// default templates.
func (c *EstimatorConfig) Resolve() (tfactory.SearchConfig, error) {
	qubit, err := c.Qubit.Resolve()
	if err != nil {
		return tfactory.SearchConfig{}, err
	}
	protocol, err := modeling.LoadProtocol(c.Protocol, &qubit)
	if err != nil {
		return tfactory.SearchConfig{}, err
	}
	calc, err := tfactory.ParsePhysicalQubitCalculation(c.PhysicalQubitCalculation)
	if err != nil {
		return tfactory.SearchConfig{}, fmt.Errorf("physical_qubit_calculation: %w", err)
	}
	var templates []*tfactory.Template
	for i, spec := range c.DistillationUnits {
		t, err := spec.Build()
		if err != nil {
			return tfactory.SearchConfig{}, fmt.Errorf("distillation_units[%d]: %w", i, err)
		}
		templates = append(templates, t)
	}
	return tfactory.SearchConfig{
		Protocol:              protocol,
		Qubit:                 &qubit,
		Templates:             templates,
		OutputErrorRate:       c.ErrorRate,
		MaxCodeDistance:       c.MaxCodeDistance,
		MaxDistillationRounds: c.MaxDistillationRounds,
		Build:                 tfactory.RoundBasedBuilderWith(calc),
	}, nil
}
