package tfactory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qresim/estimator/modeling"
)

var testDistances = []uint64{1, 3, 5, 7, 9, 11}

func mustQubit(t *testing.T, name string) *modeling.PhysicalQubit {
	t.Helper()
	q, err := modeling.QubitSpec{Name: name}.Resolve()
	require.NoError(t, err)
	return &q
}

func mustProtocol(t *testing.T, name string, q *modeling.PhysicalQubit) *modeling.Protocol {
	t.Helper()
	p, err := modeling.LoadProtocol(modeling.ProtocolSpec{Name: name}, q)
	require.NoError(t, err)
	return p
}

func patchesFor(p *modeling.Protocol, q *modeling.PhysicalQubit, distances []uint64) []*modeling.LogicalPatch {
	patches := make([]*modeling.LogicalPatch, len(distances))
	for i, d := range distances {
		if patch, err := modeling.NewLogicalPatch(p, q, d); err == nil {
			patches[i] = patch
		}
	}
	return patches
}

func halvingSpec(name string, physical, logical bool) TemplateSpec {
	s := TemplateSpec{
		DisplayName:               name,
		NumInputTs:                1,
		NumOutputTs:               1,
		FailureProbabilityFormula: "0.5 * inputErrorRate",
		OutputErrorRateFormula:    "0.5 * inputErrorRate",
	}
	if physical {
		s.Physical = &UnitResources{NumUnitQubits: 1, DurationInQubitCycleTime: 1}
	}
	if logical {
		s.Logical = &UnitResources{NumUnitQubits: 1, DurationInQubitCycleTime: 1}
	}
	return s
}

func mustTemplates(t *testing.T, specs ...TemplateSpec) []*Template {
	t.Helper()
	out := make([]*Template, len(specs))
	for i, s := range specs {
		tmpl, err := s.Build()
		require.NoError(t, err)
		out[i] = tmpl
	}
	return out
}

// templates222 has two units in each tier, interleaved.
func templates222(t *testing.T) []*Template {
	return mustTemplates(t,
		halvingSpec("combined1", true, true),
		halvingSpec("logical1", false, true),
		halvingSpec("physical1", true, false),
		halvingSpec("combined2", true, true),
		halvingSpec("logical2", false, true),
		halvingSpec("physical2", true, false),
	)
}

func templates021(t *testing.T) []*Template {
	return mustTemplates(t,
		halvingSpec("logical1", false, true),
		halvingSpec("physical1", true, false),
		halvingSpec("logical2", false, true),
	)
}

func majoranaUnitsMap(t *testing.T, templates []*Template) *UnitsMap {
	t.Helper()
	q := mustQubit(t, "qubit_maj_ns_e4")
	p := mustProtocol(t, "floquet_code", q)
	return NewUnitsMap(q, patchesFor(p, q, testDistances), testDistances, templates)
}

func nameOf(u *Unit) string {
	if u == nil {
		return "<nil>"
	}
	return u.Name
}

func TestUnitsMap_GateBasedQubitDropsPhysicalUnits(t *testing.T) {
	// GIVEN a gate-based qubit whose Clifford error rate equals its T error rate
	q := mustQubit(t, modeling.DefaultQubitName)
	p := mustProtocol(t, "surface_code", q)

	// WHEN building the map
	m := NewUnitsMap(q, patchesFor(p, q, testDistances), testDistances, templates222(t))

	// THEN physical templates are unusable and indexes resolve tier by tier
	assert.Equal(t, 0, m.NumPhysical())
	assert.Equal(t, 2, m.NumLogical())
	assert.Equal(t, 2, m.NumCombined())
	assert.Equal(t, "combined1", nameOf(m.Get(0, 1, 0)))
	assert.Equal(t, "combined2", nameOf(m.Get(0, 1, 1)))
	assert.Nil(t, m.Get(0, 1, 2), "logical units are absent from the physical round")
	assert.Equal(t, "logical1", nameOf(m.Get(0, 3, 2)))
	assert.Equal(t, "logical2", nameOf(m.Get(0, 3, 3)))
	assert.Nil(t, m.Get(0, 3, 4))
}

func TestUnitsMap_MajoranaQubitKeepsPhysicalUnits(t *testing.T) {
	m := majoranaUnitsMap(t, templates222(t))

	assert.Equal(t, 2, m.NumPhysical())
	assert.Equal(t, "physical1", nameOf(m.Get(0, 1, 4)))
	assert.Equal(t, "physical2", nameOf(m.Get(0, 1, 5)))
	assert.Nil(t, m.Get(1, 1, 4), "physical units only run in the first round")
	assert.Nil(t, m.Get(0, 3, 4))
	assert.Equal(t, "combined1", nameOf(m.Get(1, 1, 0)))
}

func TestUnitsMap_EmptyCombinedTier(t *testing.T) {
	m := majoranaUnitsMap(t, templates021(t))

	assert.Equal(t, 0, m.NumCombined())
	assert.Equal(t, 2, m.NumLogical())
	assert.Equal(t, 1, m.NumPhysical())
	assert.Equal(t, "physical1", nameOf(m.Get(0, 1, 2)))
	assert.Equal(t, "logical1", nameOf(m.Get(0, 3, 0)))
	assert.Equal(t, "logical2", nameOf(m.Get(1, 5, 1)))
}

func TestUnitsMap_FirstRoundOverride(t *testing.T) {
	// GIVEN two combined units that differ only in a first-round override
	withOverride := TemplateSpec{
		DisplayName:               "combined with override",
		NumInputTs:                1,
		NumOutputTs:               1,
		FailureProbabilityFormula: "0.5 * inputErrorRate",
		OutputErrorRateFormula:    "0.5 * inputErrorRate",
		Physical:                  &UnitResources{NumUnitQubits: 1, DurationInQubitCycleTime: 2},
		Logical:                   &UnitResources{NumUnitQubits: 3, DurationInQubitCycleTime: 4},
		LogicalFirstRoundOverride: &UnitResources{NumUnitQubits: 5, DurationInQubitCycleTime: 6},
	}
	withoutOverride := withOverride
	withoutOverride.DisplayName = "combined without override"
	withoutOverride.LogicalFirstRoundOverride = nil
	templates := append(templates222(t), mustTemplates(t, withOverride, withoutOverride)...)

	// WHEN building the map on a Majorana qubit with Floquet patches
	m := majoranaUnitsMap(t, templates)
	require.Equal(t, 4, m.NumCombined())

	// THEN the override only changes the first round on logical patches
	for _, idx := range []int{2, 3} {
		u := m.Get(0, 1, idx)
		assert.Equal(t, uint64(1), u.PhysicalQubits(0))
		assert.Equal(t, uint64(200), u.Duration(0))

		u = m.Get(1, 1, idx)
		assert.Equal(t, uint64(12), u.PhysicalQubits(1))
		assert.Equal(t, uint64(1200), u.Duration(1))

		u = m.Get(1, 3, idx)
		assert.Equal(t, uint64(156), u.PhysicalQubits(1))
		assert.Equal(t, uint64(3600), u.Duration(1))
	}
	over := m.Get(0, 3, 2)
	assert.Equal(t, uint64(260), over.PhysicalQubits(0))
	assert.Equal(t, uint64(5400), over.Duration(0))
	plain := m.Get(0, 3, 3)
	assert.Equal(t, uint64(156), plain.PhysicalQubits(0))
	assert.Equal(t, uint64(3600), plain.Duration(0))
}

func TestUnitsMap_IterationCounts(t *testing.T) {
	count := func(m *UnitsMap, rounds int) int {
		n := 0
		m.IterateForAllDistillationUnits(rounds, func([]int) { n++ })
		return n
	}

	full := majoranaUnitsMap(t, templates222(t))
	assert.Equal(t, 6, count(full, 1))
	assert.Equal(t, 24, count(full, 2))
	assert.Equal(t, 96, count(full, 3))

	sparse := majoranaUnitsMap(t, templates021(t))
	assert.Equal(t, 3, count(sparse, 1))
	assert.Equal(t, 6, count(sparse, 2))
	assert.Equal(t, 0, count(sparse, 0))
}

func TestUnitsMap_DistanceBounds(t *testing.T) {
	m := majoranaUnitsMap(t, templates021(t))

	// physical1 first, then logical1, which may run on a distance-1 patch
	assert.Equal(t, []int{0, 0}, m.MinDistanceIndexes([]int{2, 0}))
	assert.Equal(t, []int{0, 5}, m.MaxDistanceIndexes([]int{2, 0}))

	// logical1 cannot run in the physical round
	assert.Equal(t, []int{1}, m.MinDistanceIndexes([]int{0}))

	units := m.GetMany([]int{0, 2}, []int{2, 1})
	assert.Equal(t, "physical1", nameOf(units[0]))
	assert.Equal(t, "logical2", nameOf(units[1]))
	assert.Equal(t, uint64(5), units[1].CodeDistance)
}
