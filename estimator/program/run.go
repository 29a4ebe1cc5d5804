package program

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/qresim/estimator"
	"github.com/inference-sim/qresim/estimator/counts"
)

// Count runs p on a fresh counter whose measurement outcomes derive from seed.
func Count(p *Program, seed int64) (counts.ResourceCounts, error) {
	c := counts.NewCounter(estimator.MeasurementRand(seed))
	if err := Run(p, c); err != nil {
		return counts.ResourceCounts{}, err
	}
	return c.LogicalResources(), nil
}

// executor maps register indexes to backend qubit ids while walking the
// instruction tree.
type executor struct {
	backend  counts.Backend
	register []int
}

// Run executes p against b. The program must have been validated.
func Run(p *Program, b counts.Backend) error {
	e := &executor{backend: b}
	for i := 0; i < p.Qubits; i++ {
		e.register = append(e.register, b.QubitAllocate())
	}
	if err := e.block(p.Instructions, "instructions"); err != nil {
		return err
	}
	e.releaseTo(0)
	return nil
}

func (e *executor) qubit(index int) int { return e.register[index] }

func (e *executor) releaseTo(size int) {
	for len(e.register) > size {
		last := len(e.register) - 1
		e.backend.QubitRelease(e.register[last])
		e.register = e.register[:last]
	}
}

// block runs instructions in a new scope.
func (e *executor) block(block []Instruction, path string) error {
	base := len(e.register)
	for i := range block {
		if err := e.instruction(&block[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	e.releaseTo(base)
	return nil
}

func (e *executor) instruction(in *Instruction, path string) error {
	switch {
	case in.Gate != "":
		e.gate(in)
	case in.Allocate > 0:
		for range in.Allocate {
			e.register = append(e.register, e.backend.QubitAllocate())
		}
	case in.Release > 0:
		e.releaseTo(len(e.register) - in.Release)
	case in.Repeat != nil:
		return e.repeat(in.Repeat, path)
	case in.Cache != nil:
		return e.cache(in.Cache, path)
	case in.Estimate != nil:
		return e.intrinsic(path, counts.IntrinsicAccountForEstimates, e.estimateArgs(in.Estimate))
	case in.Intrinsic != nil:
		return e.intrinsic(path, in.Intrinsic.Name, in.Intrinsic.Args)
	}
	return nil
}

func (e *executor) intrinsic(path, name string, args []any) error {
	if _, err := e.backend.CustomIntrinsic(name, args); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (e *executor) repeat(r *RepeatBlock, path string) error {
	if err := e.intrinsic(path, counts.IntrinsicBeginRepeatEstimates, []any{r.Count}); err != nil {
		return err
	}
	// A zero-count repeat contributes nothing, so its body is not run.
	if r.Count > 0 {
		if err := e.block(r.Body, path+".repeat.body"); err != nil {
			return err
		}
	}
	return e.intrinsic(path, counts.IntrinsicEndRepeatEstimates, nil)
}

func (e *executor) cache(c *CacheBlock, path string) error {
	proceed, err := e.backend.CustomIntrinsic(counts.IntrinsicBeginEstimateCaching, []any{c.Name, c.Variant})
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !proceed {
		logrus.Debugf("program: %s: cache %q variant %d replayed", path, c.Name, c.Variant)
		return nil
	}
	if err := e.block(c.Body, path+".cache.body"); err != nil {
		return err
	}
	return e.intrinsic(path, counts.IntrinsicEndEstimateCaching, nil)
}

func (e *executor) estimateArgs(est *EstimateBlock) []any {
	var pairs []any
	for _, p := range []struct {
		kind  counts.EstimateKind
		count int64
	}{
		{counts.EstimateAuxQubits, est.AuxQubits},
		{counts.EstimateT, est.T},
		{counts.EstimateRotations, est.Rotations},
		{counts.EstimateRotationDepth, est.RotationDepth},
		{counts.EstimateCCZ, est.CCZ},
		{counts.EstimateMeasurements, est.Measurements},
	} {
		if p.count != 0 {
			pairs = append(pairs, []any{int64(p.kind), p.count})
		}
	}
	qubits := make([]any, len(est.Qubits))
	for i, q := range est.Qubits {
		qubits[i] = e.qubit(q)
	}
	return []any{pairs, est.Layout, qubits}
}

func (e *executor) gate(in *Instruction) {
	b := e.backend
	q := make([]int, len(in.Qubits))
	for i, idx := range in.Qubits {
		q[i] = e.qubit(idx)
	}
	switch in.Gate {
	case "ccx":
		b.CCX(q[0], q[1], q[2])
	case "cx":
		b.CX(q[0], q[1])
	case "cy":
		b.CY(q[0], q[1])
	case "cz":
		b.CZ(q[0], q[1])
	case "h":
		b.H(q[0])
	case "m":
		b.M(q[0])
	case "mresetz":
		b.MResetZ(q[0])
	case "reset":
		b.Reset(q[0])
	case "rx":
		b.Rx(in.Angle, q[0])
	case "rxx":
		b.Rxx(in.Angle, q[0], q[1])
	case "ry":
		b.Ry(in.Angle, q[0])
	case "ryy":
		b.Ryy(in.Angle, q[0], q[1])
	case "rz":
		b.Rz(in.Angle, q[0])
	case "rzz":
		b.Rzz(in.Angle, q[0], q[1])
	case "s":
		b.S(q[0])
	case "sadj":
		b.SAdj(q[0])
	case "sx":
		b.SX(q[0])
	case "swap":
		b.Swap(q[0], q[1])
	case "swap_id":
		b.QubitSwapID(q[0], q[1])
	case "t":
		b.T(q[0])
	case "tadj":
		b.TAdj(q[0])
	case "x":
		b.X(q[0])
	case "y":
		b.Y(q[0])
	case "z":
		b.Z(q[0])
	}
}
