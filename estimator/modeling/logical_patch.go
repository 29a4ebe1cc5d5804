package modeling

import "fmt"

// LogicalPatch is one logical qubit encoded with a protocol at a code
// distance.
type LogicalPatch struct {
	CodeDistance     uint64
	PhysicalQubits   uint64
	LogicalCycleTime uint64
	LogicalErrorRate float64
	qubit            *PhysicalQubit
}

// NewLogicalPatch fails when the qubit is not below threshold or a formula
// does not yield a positive value at distance d.
func NewLogicalPatch(p *Protocol, q *PhysicalQubit, d uint64) (*LogicalPatch, error) {
	if e := p.PhysicalErrorRate(q); e >= p.ErrorCorrectionThreshold {
		return nil, fmt.Errorf("distance %d: physical error rate %v: %w", d, e, ErrAboveThreshold)
	}
	qubits, err := p.PhysicalQubits(d)
	if err != nil {
		return nil, err
	}
	cycle, err := p.LogicalCycleTimeAt(q, d)
	if err != nil {
		return nil, err
	}
	return &LogicalPatch{
		CodeDistance:     d,
		PhysicalQubits:   qubits,
		LogicalCycleTime: cycle,
		LogicalErrorRate: p.LogicalErrorRate(q, d),
		qubit:            q,
	}, nil
}

// PhysicalQubit is the qubit the patch is built from.
func (l *LogicalPatch) PhysicalQubit() *PhysicalQubit { return l.qubit }
