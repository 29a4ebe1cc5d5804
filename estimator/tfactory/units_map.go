package tfactory

import "github.com/inference-sim/qresim/estimator/modeling"

// UnitsMap indexes every unit that may occupy a factory round. Templates
// fall in three tiers: combined, logical and physical. A flat unit index
// enumerates the combined tier first, then logical, then physical.
//
// Round 0 at code distance 1 is the physical round: combined templates
// resolve to their physical version there, logical templates are absent and
// physical templates are available. Everywhere else combined and logical
// templates resolve to their logical version on the patch at that distance
// and physical templates are absent.
type UnitsMap struct {
	distances []uint64

	numCombined int
	numLogical  int
	numPhysical int

	combinedPhysical []*Unit   // [combined]
	physical         []*Unit   // [physical]
	combined         [][]*Unit // [distance index][combined], nil row without patch
	logical          [][]*Unit // [distance index][logical], nil row without patch
}

// NewUnitsMap instantiates templates on the physical qubit and on each patch.
// patches is aligned with distances; a nil entry marks a distance that is not
// constructible. Physical templates are dropped when the qubit does not
// support physical distillation.
func NewUnitsMap(q *modeling.PhysicalQubit, patches []*modeling.LogicalPatch, distances []uint64, templates []*Template) *UnitsMap {
	m := &UnitsMap{
		distances: distances,
		combined:  make([][]*Unit, len(distances)),
		logical:   make([][]*Unit, len(distances)),
	}
	physicalQubit := PhysicalFactoryQubit(q)

	var combinedTemplates, logicalTemplates []*Template
	for _, t := range templates {
		switch t.Type {
		case UnitCombined:
			combinedTemplates = append(combinedTemplates, t)
			m.combinedPhysical = append(m.combinedPhysical, NewUnit(t, physicalQubit))
		case UnitLogical:
			logicalTemplates = append(logicalTemplates, t)
		case UnitPhysical:
			if u := NewUnit(t, physicalQubit); u.IsValid() {
				m.physical = append(m.physical, u)
			}
		}
	}
	m.numCombined = len(combinedTemplates)
	m.numLogical = len(logicalTemplates)
	m.numPhysical = len(m.physical)

	for di, patch := range patches {
		if di >= len(distances) || patch == nil {
			continue
		}
		fq := LogicalFactoryQubit(patch)
		for _, t := range combinedTemplates {
			m.combined[di] = append(m.combined[di], NewUnit(t, fq))
		}
		for _, t := range logicalTemplates {
			m.logical[di] = append(m.logical[di], NewUnit(t, fq))
		}
	}
	return m
}

func (m *UnitsMap) NumCombined() int { return m.numCombined }
func (m *UnitsMap) NumLogical() int  { return m.numLogical }
func (m *UnitsMap) NumPhysical() int { return m.numPhysical }

// Distances returns the code distances, in distance-index order.
func (m *UnitsMap) Distances() []uint64 { return m.distances }

func (m *UnitsMap) distanceIndex(distance uint64) int {
	for i, d := range m.distances {
		if d == distance {
			return i
		}
	}
	return -1
}

// Get returns the unit at a flat index for a round position and code
// distance, or nil when that slot is empty.
func (m *UnitsMap) Get(position int, distance uint64, index int) *Unit {
	di := m.distanceIndex(distance)
	if di < 0 {
		return nil
	}
	return m.at(position, di, index)
}

func (m *UnitsMap) at(position, di, index int) *Unit {
	physicalRound := position == 0 && m.distances[di] == 1
	switch {
	case index < 0:
		return nil
	case index < m.numCombined:
		if physicalRound {
			return m.combinedPhysical[index]
		}
		if m.combined[di] == nil {
			return nil
		}
		return m.combined[di][index]
	case index < m.numCombined+m.numLogical:
		if physicalRound || m.logical[di] == nil {
			return nil
		}
		return m.logical[di][index-m.numCombined]
	case index < m.numCombined+m.numLogical+m.numPhysical:
		if !physicalRound {
			return nil
		}
		return m.physical[index-m.numCombined-m.numLogical]
	}
	return nil
}

func (m *UnitsMap) numChoices(position int) int {
	if position == 0 {
		return m.numCombined + m.numLogical + m.numPhysical
	}
	return m.numCombined + m.numLogical
}

// IterateForAllDistillationUnits calls fn with every unit-index tuple of
// length numRounds. Round 0 may use any tier; later rounds use combined and
// logical units only. fn must not retain the slice.
func (m *UnitsMap) IterateForAllDistillationUnits(numRounds int, fn func(unitIndexes []int)) {
	if numRounds <= 0 {
		return
	}
	for p := 0; p < numRounds; p++ {
		if m.numChoices(p) == 0 {
			return
		}
	}
	indexes := make([]int, numRounds)
	for {
		fn(indexes)
		p := numRounds - 1
		for ; p >= 0; p-- {
			indexes[p]++
			if indexes[p] < m.numChoices(p) {
				break
			}
			indexes[p] = 0
		}
		if p < 0 {
			return
		}
	}
}

// MinDistanceIndexes returns, per round, the smallest distance index at which
// the unit exists. A round whose unit exists nowhere gets len(distances).
func (m *UnitsMap) MinDistanceIndexes(unitIndexes []int) []int {
	out := make([]int, len(unitIndexes))
	for p, idx := range unitIndexes {
		out[p] = len(m.distances)
		for di := range m.distances {
			if m.at(p, di, idx) != nil {
				out[p] = di
				break
			}
		}
	}
	return out
}

// MaxDistanceIndexes returns, per round, the largest distance index at which
// the unit exists, or -1.
func (m *UnitsMap) MaxDistanceIndexes(unitIndexes []int) []int {
	out := make([]int, len(unitIndexes))
	for p, idx := range unitIndexes {
		out[p] = -1
		for di := len(m.distances) - 1; di >= 0; di-- {
			if m.at(p, di, idx) != nil {
				out[p] = di
				break
			}
		}
	}
	return out
}

// GetMany resolves one candidate factory. Entries are nil where a slot is
// empty.
func (m *UnitsMap) GetMany(distanceIndexes, unitIndexes []int) []*Unit {
	units := make([]*Unit, len(unitIndexes))
	for p, idx := range unitIndexes {
		units[p] = m.at(p, distanceIndexes[p], idx)
	}
	return units
}
