package counts

import "math"

// Backend receives the gate stream of a program. Qubits are integer ids handed
// out by QubitAllocate.
type Backend interface {
	CCX(ctl0, ctl1, q int)
	CX(ctl, q int)
	CY(ctl, q int)
	CZ(ctl, q int)
	H(q int)
	M(q int) bool
	MResetZ(q int) bool
	Reset(q int)
	Rx(theta float64, q int)
	Rxx(theta float64, q0, q1 int)
	Ry(theta float64, q int)
	Ryy(theta float64, q0, q1 int)
	Rz(theta float64, q int)
	Rzz(theta float64, q0, q1 int)
	S(q int)
	SAdj(q int)
	SX(q int)
	Swap(q0, q1 int)
	T(q int)
	TAdj(q int)
	X(q int)
	Y(q int)
	Z(q int)
	QubitAllocate() int
	QubitRelease(q int) bool
	QubitSwapID(q0, q1 int)
	QubitIsZero(q int) bool

	// CustomIntrinsic runs a named intrinsic. proceed is false only when a
	// cached region was replayed and its body must be skipped.
	CustomIntrinsic(name string, args []any) (proceed bool, err error)
}

var _ Backend = (*Counter)(nil)

// Rotations within this distance of a multiple of pi/4 count as Clifford+T.
const angleEpsilon = 0x1p-52

func (c *Counter) CCX(ctl0, ctl1, q int) {
	c.assertComputeQubits(ctl0, ctl1, q)
	c.cczCount++
	c.scheduleCCZ(ctl0, ctl1, q)
}

func (c *Counter) CX(ctl, q int) {
	c.assertComputeQubits(ctl, q)
	c.scheduleTwoQubitClifford(ctl, q)
}

func (c *Counter) CY(ctl, q int) {
	c.assertComputeQubits(ctl, q)
	c.scheduleTwoQubitClifford(ctl, q)
}

func (c *Counter) CZ(ctl, q int) {
	c.assertComputeQubits(ctl, q)
	c.scheduleTwoQubitClifford(ctl, q)
}

func (c *Counter) H(q int) { c.assertComputeQubits(q) }

// M counts a measurement and returns a pseudo-random outcome.
func (c *Counter) M(q int) bool {
	c.assertComputeQubits(q)
	c.mCount++
	return c.rng.Float64() < 0.5
}

func (c *Counter) MResetZ(q int) bool { return c.M(q) }

func (c *Counter) Reset(int) {}

func (c *Counter) Rx(theta float64, q int) { c.Rz(theta, q) }

func (c *Counter) Ry(theta float64, q int) { c.Rz(theta, q) }

func (c *Counter) Rxx(theta float64, q0, q1 int) { c.Rzz(theta, q0, q1) }

func (c *Counter) Ryy(theta float64, q0, q1 int) { c.Rzz(theta, q0, q1) }

// Rz costs a T gate for odd multiples of pi/4, nothing for even multiples and
// an arbitrary rotation otherwise.
func (c *Counter) Rz(theta float64, q int) {
	c.assertComputeQubits(q)

	multiple := math.Round(theta / (math.Pi / 4))
	if math.Abs(multiple*(math.Pi/4)-theta) <= angleEpsilon {
		m := int64(multiple) % 8
		if m < 0 {
			m += 8
		}
		if m&1 == 1 {
			c.T(q)
		}
		return
	}
	c.rCount++
	c.scheduleSingle(q, layerWithR())
}

func (c *Counter) Rzz(theta float64, q0, q1 int) {
	c.CX(q1, q0)
	c.Rz(theta, q0)
	c.CX(q1, q0)
}

func (c *Counter) S(q int) { c.assertComputeQubits(q) }

func (c *Counter) SAdj(q int) { c.assertComputeQubits(q) }

func (c *Counter) SX(q int) { c.assertComputeQubits(q) }

func (c *Counter) Swap(q0, q1 int) {
	c.assertComputeQubits(q0, q1)
	c.scheduleTwoQubitClifford(q0, q1)
}

func (c *Counter) T(q int) {
	c.assertComputeQubits(q)
	c.tCount++
	c.scheduleSingle(q, layerWithT())
}

func (c *Counter) TAdj(q int) { c.T(q) }

func (c *Counter) X(int) {}

func (c *Counter) Y(int) {}

func (c *Counter) Z(int) {}

// QubitAllocate reuses the most recently released id, or creates a new one
// starting at the allocation barrier.
func (c *Counter) QubitAllocate() int {
	if n := len(c.freeList); n > 0 {
		q := c.freeList[n-1]
		c.freeList = c.freeList[:n-1]
		return q
	}
	q := c.nextFree
	c.ensureQubit(q)
	return q
}

func (c *Counter) QubitRelease(q int) bool {
	c.freeList = append(c.freeList, q)
	return true
}

// QubitSwapID is a relabeling and has no cost.
func (c *Counter) QubitSwapID(int, int) {}

func (c *Counter) QubitIsZero(int) bool { return true }
