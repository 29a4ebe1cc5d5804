package tfactory

import "github.com/inference-sim/qresim/estimator/modeling"

// FactoryQubit is what a distillation unit runs on: either the bare physical
// qubit or a logical patch at some code distance.
type FactoryQubit struct {
	physical *modeling.PhysicalQubit
	patch    *modeling.LogicalPatch
}

func PhysicalFactoryQubit(q *modeling.PhysicalQubit) FactoryQubit {
	return FactoryQubit{physical: q}
}

func LogicalFactoryQubit(p *modeling.LogicalPatch) FactoryQubit {
	return FactoryQubit{physical: p.PhysicalQubit(), patch: p}
}

func (q FactoryQubit) PhysicalQubits() uint64 {
	if q.patch != nil {
		return q.patch.PhysicalQubits
	}
	return 1
}

func (q FactoryQubit) CycleTime() uint64 {
	if q.patch != nil {
		return q.patch.LogicalCycleTime
	}
	return q.physical.OneQubitMeasurementTime
}

func (q FactoryQubit) CliffordErrorRate() float64 {
	if q.patch != nil {
		return q.patch.LogicalErrorRate
	}
	return q.physical.CliffordErrorRate()
}

// ReadoutErrorRate is 0 for logical patches: destructive logical measurement
// is treated as exact.
func (q FactoryQubit) ReadoutErrorRate() float64 {
	if q.patch != nil {
		return 0
	}
	return q.physical.ReadoutErrorRate()
}

func (q FactoryQubit) TErrorRate() float64 { return q.physical.TGateErrorRate }

func (q FactoryQubit) CodeDistance() uint64 {
	if q.patch != nil {
		return q.patch.CodeDistance
	}
	return 1
}

// Unit is a template instantiated on a concrete qubit. Costs differ between
// the first round of a factory and later rounds.
type Unit struct {
	Name         string
	Type         UnitType
	CodeDistance uint64

	numInputTs, numOutputTs  uint64
	qubitsFirst, qubitsLater uint64
	durationFirst            uint64
	durationLater            uint64

	failureProbability FormulaFunc
	outputErrorRate    FormulaFunc
	cliffordErrorRate  float64
	readoutErrorRate   float64
	qubitTErrorRate    float64
}

func scaled(spec *UnitResources, q FactoryQubit) (qubits, duration uint64) {
	if spec == nil {
		return 0, 0
	}
	return spec.NumUnitQubits * q.PhysicalQubits(), spec.DurationInQubitCycleTime * q.CycleTime()
}

// NewUnit instantiates t on q. At code distance 1 the first round uses the
// physical specification; otherwise it uses the first-round override when
// present and the logical specification when not. Later rounds always use the
// logical specification. Physical-only templates have no later-round cost.
func NewUnit(t *Template, q FactoryQubit) *Unit {
	d := q.CodeDistance()

	var first *UnitResources
	switch {
	case d == 1 && (t.Type == UnitCombined || t.Type == UnitPhysical):
		first = t.Physical
	case d == 1 || t.Type == UnitPhysical:
		first = nil
	case t.LogicalFirstRoundOverride != nil:
		first = t.LogicalFirstRoundOverride
	default:
		first = t.Logical
	}
	var later *UnitResources
	if t.Type != UnitPhysical {
		later = t.Logical
	}

	u := &Unit{
		Name:               t.Name,
		Type:               t.Type,
		CodeDistance:       d,
		numInputTs:         t.NumInputTs,
		numOutputTs:        t.NumOutputTs,
		failureProbability: t.FailureProbability,
		outputErrorRate:    t.OutputErrorRate,
		cliffordErrorRate:  q.CliffordErrorRate(),
		readoutErrorRate:   q.ReadoutErrorRate(),
		qubitTErrorRate:    q.TErrorRate(),
	}
	u.qubitsFirst, u.durationFirst = scaled(first, q)
	u.qubitsLater, u.durationLater = scaled(later, q)
	return u
}

func (u *Unit) NumOutputStates() uint64 { return u.numOutputTs }

func (u *Unit) NumInputStates() uint64 { return u.numInputTs }

// Duration is the runtime in nanoseconds when the unit is used at the given
// round position.
func (u *Unit) Duration(position int) uint64 {
	if position == 0 {
		return u.durationFirst
	}
	return u.durationLater
}

// PhysicalQubits is the qubit cost when used at the given round position.
func (u *Unit) PhysicalQubits(position int) uint64 {
	if position == 0 {
		return u.qubitsFirst
	}
	return u.qubitsLater
}

func (u *Unit) OutputErrorRate(inputErrorRate float64) float64 {
	return u.outputErrorRate(inputErrorRate, u.cliffordErrorRate, u.readoutErrorRate)
}

func (u *Unit) FailureProbability(inputErrorRate float64) float64 {
	return u.failureProbability(inputErrorRate, u.cliffordErrorRate, u.readoutErrorRate)
}

func (u *Unit) CliffordErrorRate() float64 { return u.cliffordErrorRate }

// QubitTErrorRate is the T gate error rate of the physical qubit, the input
// error rate of a factory's first round.
func (u *Unit) QubitTErrorRate() float64 { return u.qubitTErrorRate }

// IsValid reports whether Clifford operations are an order of magnitude
// better than T gates, the precondition for distilling on this qubit.
func (u *Unit) IsValid() bool {
	return u.cliffordErrorRate <= 0.1*u.qubitTErrorRate
}
