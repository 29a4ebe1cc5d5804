package tfactory

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTemplateByName_Aliases(t *testing.T) {
	for _, name := range []string{"15-1 RM", "15-to-1 RM prep", "15-1 RM prep"} {
		tmpl, err := TemplateByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, "15-to-1 RM prep", tmpl.Name)
	}
	for _, name := range []string{"15-1 space-efficient", "15-to-1 space efficient"} {
		tmpl, err := TemplateByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, "15-to-1 space efficient", tmpl.Name)
	}

	_, err := TemplateByName("7-to-1")
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestDefaultTemplates_AreCombined15To1(t *testing.T) {
	for _, tmpl := range DefaultTemplates() {
		assert.Equal(t, UnitCombined, tmpl.Type, tmpl.Name)
		assert.Equal(t, uint64(15), tmpl.NumInputTs)
		assert.Equal(t, uint64(1), tmpl.NumOutputTs)
		assert.InDelta(t, 15*1e-3+356*1e-5, tmpl.FailureProbability(1e-3, 1e-5, 0), 1e-15)
		assert.InDelta(t, 35e-9+7.1e-5, tmpl.OutputErrorRate(1e-3, 1e-5, 0), 1e-15)
	}
}

func TestTemplateSpec_BuildCustomFromYAML(t *testing.T) {
	// GIVEN a custom unit with formulas using both variable spellings
	doc := `
display_name: custom 3-to-1
num_input_ts: 3
num_output_ts: 1
failure_probability_formula: "3 * inputErrorRate + 10 * c"
output_error_rate_formula: "z * z + readoutErrorRate"
logical_qubit_specification:
  num_unit_qubits: 8
  duration_in_qubit_cycle_time: 5
`
	var spec TemplateSpec
	dec := yaml.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.KnownFields(true)
	require.NoError(t, dec.Decode(&spec))

	// WHEN building
	tmpl, err := spec.Build()

	// THEN the type follows the specs present and formulas evaluate
	require.NoError(t, err)
	assert.Equal(t, "custom 3-to-1", tmpl.Name)
	assert.Equal(t, UnitLogical, tmpl.Type)
	assert.Equal(t, uint64(8), tmpl.Logical.NumUnitQubits)
	assert.InDelta(t, 0.031, tmpl.FailureProbability(0.01, 0.0001, 0), 1e-12)
	assert.InDelta(t, 0.0101, tmpl.OutputErrorRate(0.1, 0, 0.0001), 1e-12)
}

func TestTemplateSpec_TypeFromSpecs(t *testing.T) {
	tests := []struct {
		physical, logical bool
		want              UnitType
	}{
		{true, true, UnitCombined},
		{true, false, UnitPhysical},
		{false, true, UnitLogical},
	}
	for _, tc := range tests {
		tmpl, err := halvingSpec("unit", tc.physical, tc.logical).Build()
		require.NoError(t, err)
		assert.Equal(t, tc.want, tmpl.Type)
	}
}

func TestTemplateSpec_BuildErrors(t *testing.T) {
	valid := halvingSpec("unit", false, true)
	tests := []struct {
		name   string
		mutate func(*TemplateSpec)
		errMsg string
	}{
		{"preset name with custom fields", func(s *TemplateSpec) { s.Name = "15-1 RM" }, "combines a preset name"},
		{"missing display name", func(s *TemplateSpec) { s.DisplayName = "" }, "needs display_name"},
		{"zero inputs", func(s *TemplateSpec) { s.NumInputTs = 0 }, "num_input_ts"},
		{"no qubit specification", func(s *TemplateSpec) { s.Logical = nil }, "physical or logical"},
		{"override without logical", func(s *TemplateSpec) {
			s.Logical = nil
			s.Physical = &UnitResources{NumUnitQubits: 1, DurationInQubitCycleTime: 1}
			s.LogicalFirstRoundOverride = &UnitResources{NumUnitQubits: 1, DurationInQubitCycleTime: 1}
		}, "first round override"},
		{"missing formula", func(s *TemplateSpec) { s.OutputErrorRateFormula = "" }, "needs output_error_rate_formula"},
		{"unknown variable", func(s *TemplateSpec) { s.FailureProbabilityFormula = "3 * x" }, "failure_probability_formula"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := valid
			tc.mutate(&spec)
			_, err := spec.Build()
			require.ErrorIs(t, err, ErrInvalidTemplate)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestTemplateSpec_UnknownPresetName(t *testing.T) {
	_, err := TemplateSpec{Name: "no such unit"}.Build()
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}
