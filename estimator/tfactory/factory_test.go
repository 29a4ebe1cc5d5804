package tfactory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qresim/estimator"
	"github.com/inference-sim/qresim/estimator/modeling"
)

func TestBinomialQuantile(t *testing.T) {
	assert.Equal(t, uint64(5), binomialQuantile(10, 0.5, 0.5))
	assert.Equal(t, uint64(0), binomialQuantile(1, 0.975, 0.01))
	assert.Equal(t, uint64(1), binomialQuantile(2, 0.975, 0.01))

	// the quantile grows with the success probability
	prev := uint64(0)
	for _, p := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		k := binomialQuantile(50, p, 0.01)
		assert.GreaterOrEqual(t, k, prev)
		prev = k
	}
}

func physicalHalvingUnit(t *testing.T, spec TemplateSpec) *Unit {
	t.Helper()
	tmpl := mustTemplates(t, spec)[0]
	return NewUnit(tmpl, PhysicalFactoryQubit(mustQubit(t, "qubit_maj_ns_e4")))
}

func TestBuildRoundBasedFactory_SingleRound(t *testing.T) {
	// GIVEN a physical unit that halves the error rate and fails with
	// probability equal to its output error rate
	u := physicalHalvingUnit(t, halvingSpec("halving", true, false))

	// WHEN building from the qubit's T error rate
	f, err := BuildRoundBasedFactory([]*Unit{u}, u.QubitTErrorRate(), estimator.FactoryFailureProbabilityRequirement)

	// THEN two units are needed to deliver one state with 99% confidence
	require.NoError(t, err)
	assert.Equal(t, 1, f.NumRounds())
	assert.Equal(t, []uint64{2}, f.NumUnitsPerRound())
	assert.Equal(t, uint64(2), f.PhysicalQubits())
	assert.Equal(t, uint64(100), f.Duration())
	assert.Equal(t, uint64(1), f.NumOutputStates())
	assert.Equal(t, uint64(2), f.NumInputStates())
	assert.Equal(t, 2.0, f.NormalizedQubits())
	assert.InDelta(t, 0.05, f.InputErrorRate(), 1e-15)
	assert.InDelta(t, 0.025, f.OutputErrorRate(), 1e-15)
	assert.Equal(t, []uint64{1}, f.CodeParameterPerRound())
}

func TestBuildRoundBasedFactory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		failure string
		output  string
		wantErr error
	}{
		{"output above input", "0.5 * z", "2 * z", ErrOutputErrorRateHigherThanInputErrorRate},
		{"zero failure probability", "0 * z", "0.5 * z", ErrLowFailureProbability},
		{"certain failure", "1 + z", "0.5 * z", ErrHighFailureProbability},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := halvingSpec("unit", true, false)
			spec.FailureProbabilityFormula = tc.failure
			spec.OutputErrorRateFormula = tc.output
			u := physicalHalvingUnit(t, spec)

			_, err := BuildRoundBasedFactory([]*Unit{u}, u.QubitTErrorRate(), 0.01)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestBuildRoundBasedFactory_SumOfRoundFootprints(t *testing.T) {
	u := physicalHalvingUnit(t, halvingSpec("halving", true, false))
	q := mustQubit(t, "qubit_maj_ns_e4")
	p := mustProtocol(t, "floquet_code", q)
	patch, err := modeling.NewLogicalPatch(p, q, 3)
	require.NoError(t, err)
	second := NewUnit(mustTemplates(t, halvingSpec("logical", false, true))[0], LogicalFactoryQubit(patch))

	f, err := BuildRoundBasedFactory([]*Unit{u, second}, u.QubitTErrorRate(), 0.01)
	require.NoError(t, err)

	perRound := f.PhysicalQubitsPerRound()
	require.Len(t, perRound, 2)
	assert.Equal(t, max(perRound[0], perRound[1]), f.PhysicalQubits())
	f.SetPhysicalQubitCalculation(PhysicalQubitsSum)
	assert.Equal(t, perRound[0]+perRound[1], f.PhysicalQubits())
	assert.Equal(t, []string{"halving", "logical"}, f.UnitNames())
	assert.Equal(t, []uint64{1, 3}, f.CodeParameterPerRound())
	assert.Equal(t, uint64(100+900), f.Duration())
}

func TestRoundBasedBuilderWith_AppliesCalculation(t *testing.T) {
	// GIVEN a two-round unit list
	u := physicalHalvingUnit(t, halvingSpec("halving", true, false))
	q := mustQubit(t, "qubit_maj_ns_e4")
	p := mustProtocol(t, "floquet_code", q)
	patch, err := modeling.NewLogicalPatch(p, q, 3)
	require.NoError(t, err)
	second := NewUnit(mustTemplates(t, halvingSpec("logical", false, true))[0], LogicalFactoryQubit(patch))
	units := []*Unit{u, second}

	// WHEN building with the summing calculation
	calc, err := ParsePhysicalQubitCalculation("sum")
	require.NoError(t, err)
	f, err := RoundBasedBuilderWith(calc)(units, u.QubitTErrorRate(), 0.01)
	require.NoError(t, err)

	// THEN the footprint is the sum of the rounds
	perRound := f.(*RoundBasedFactory).PhysicalQubitsPerRound()
	assert.Equal(t, perRound[0]+perRound[1], f.PhysicalQubits())
}

func TestParsePhysicalQubitCalculation(t *testing.T) {
	for in, want := range map[string]PhysicalQubitCalculation{"": PhysicalQubitsMax, "max": PhysicalQubitsMax, "sum": PhysicalQubitsSum} {
		got, err := ParsePhysicalQubitCalculation(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePhysicalQubitCalculation("mean")
	assert.ErrorContains(t, err, `"mean"`)
}

func TestDefaultFactory(t *testing.T) {
	// GIVEN a distance-5 surface code patch on the default qubit
	q := mustQubit(t, modeling.DefaultQubitName)
	p := mustProtocol(t, "surface_code", q)
	patch, err := modeling.NewLogicalPatch(p, q, 5)
	require.NoError(t, err)

	// WHEN building the pass-through factory
	f := DefaultFactory(patch)

	// THEN it costs one patch for one logical cycle and keeps the patch error rate
	assert.Equal(t, uint64(50), f.PhysicalQubits())
	assert.Equal(t, uint64(2000), f.Duration())
	assert.Equal(t, uint64(1), f.NumOutputStates())
	assert.Equal(t, []string{"trivial 1-to-1"}, f.UnitNames())
	assert.Equal(t, []uint64{5}, f.CodeParameterPerRound())
	assert.Equal(t, patch.LogicalErrorRate, f.OutputErrorRate())

	raw, err := json.Marshal(f)
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, 50.0, report["physicalQubits"])
	assert.Equal(t, 2000.0, report["runtime"])
	assert.Equal(t, 1.0, report["numRounds"])
	assert.Equal(t, []any{"trivial 1-to-1"}, report["unitNamePerRound"])
}
