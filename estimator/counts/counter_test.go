package counts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/qresim/estimator"
)

func newTestCounter(seed int64) *Counter {
	return NewCounter(estimator.MeasurementRand(seed))
}

func allocate(c *Counter, n int) []int {
	qs := make([]int, n)
	for i := range qs {
		qs[i] = c.QubitAllocate()
	}
	return qs
}

func TestRz_MultiplesOfPiOverFour(t *testing.T) {
	tests := []struct {
		name      string
		theta     float64
		wantT     uint64
		wantR     uint64
		wantDepth uint64
	}{
		{"zero is free", 0, 0, 0, 0},
		{"pi/4 is a T gate", math.Pi / 4, 1, 0, 0},
		{"-pi/4 is a T gate", -math.Pi / 4, 1, 0, 0},
		{"pi/2 is Clifford", math.Pi / 2, 0, 0, 0},
		{"pi is Clifford", math.Pi, 0, 0, 0},
		{"arbitrary angle is a rotation", 0.3, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCounter(0)
			q := c.QubitAllocate()

			c.Rz(tt.theta, q)

			got := c.LogicalResources()
			assert.Equal(t, tt.wantT, got.TCount)
			assert.Equal(t, tt.wantR, got.RotationCount)
			assert.Equal(t, tt.wantDepth, got.RotationDepth)
		})
	}
}

func TestRotationMappings_CountAsRz(t *testing.T) {
	// GIVEN two qubits
	c := newTestCounter(0)
	qs := allocate(c, 2)

	// WHEN applying Rx, Ry and the two-qubit rotations with arbitrary angles
	c.Rx(0.1, qs[0])
	c.Ry(0.2, qs[1])
	c.Rxx(0.3, qs[0], qs[1])
	c.Ryy(0.4, qs[0], qs[1])
	c.Rzz(0.5, qs[0], qs[1])

	// THEN each counts one rotation
	assert.Equal(t, uint64(5), c.LogicalResources().RotationCount)
}

func TestCliffordsAreFree(t *testing.T) {
	c := newTestCounter(0)
	qs := allocate(c, 2)

	c.H(qs[0])
	c.S(qs[0])
	c.SAdj(qs[0])
	c.SX(qs[0])
	c.X(qs[0])
	c.Y(qs[0])
	c.Z(qs[0])
	c.Reset(qs[0])
	c.CZ(qs[0], qs[1])
	c.QubitSwapID(qs[0], qs[1])

	assert.Empty(t, c.Layers())
	assert.True(t, c.QubitIsZero(qs[0]))
	assert.Equal(t, ResourceCounts{NumQubits: 2}, c.LogicalResources())
}

func TestSchedule_SingleQubitGatesStack(t *testing.T) {
	// GIVEN two qubits
	c := newTestCounter(0)
	qs := allocate(c, 2)

	// WHEN applying T twice on q0 and once on q1
	c.T(qs[0])
	c.T(qs[0])
	c.TAdj(qs[1])

	// THEN q1's T shares the first layer and q0's second T opens a new one
	assert.Equal(t, []Layer{{T: 2}, {T: 1}}, c.Layers())
}

func TestSchedule_CCZAtMaxDepth(t *testing.T) {
	// GIVEN q0 one layer ahead of q1 and q2
	c := newTestCounter(0)
	qs := allocate(c, 3)
	c.T(qs[0])

	// WHEN applying CCX on all three
	c.CCX(qs[0], qs[1], qs[2])

	// THEN the CCZ lands at depth 1 and all qubits move to depth 2
	assert.Equal(t, []Layer{{T: 1}, {CCZ: 1}}, c.Layers())
	c.T(qs[2])
	assert.Equal(t, []Layer{{T: 1}, {CCZ: 1}, {T: 1}}, c.Layers())
	assert.Equal(t, uint64(1), c.LogicalResources().CCZCount)
}

func TestSchedule_TwoQubitCliffordSynchronizes(t *testing.T) {
	tests := []struct {
		name string
		sync func(c *Counter, a, b int)
		want []Layer
	}{
		{"no sync", func(*Counter, int, int) {}, []Layer{{T: 2}}},
		{"CX", func(c *Counter, a, b int) { c.CX(a, b) }, []Layer{{T: 1}, {T: 1}}},
		{"CY", func(c *Counter, a, b int) { c.CY(a, b) }, []Layer{{T: 1}, {T: 1}}},
		{"SWAP", func(c *Counter, a, b int) { c.Swap(a, b) }, []Layer{{T: 1}, {T: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCounter(0)
			qs := allocate(c, 2)
			c.T(qs[0])

			tt.sync(c, qs[0], qs[1])
			c.T(qs[1])

			assert.Equal(t, tt.want, c.Layers())
		})
	}
}

func TestQubitAllocate_ReusesReleasedIDs(t *testing.T) {
	c := newTestCounter(0)
	qs := allocate(c, 3)
	require.Equal(t, []int{0, 1, 2}, qs)

	c.QubitRelease(qs[1])

	assert.Equal(t, 1, c.QubitAllocate())
	assert.Equal(t, 3, c.QubitAllocate())
	assert.Equal(t, uint64(4), c.LogicalResources().NumQubits)
}

func TestQubitAllocate_StartsAtAllocationBarrier(t *testing.T) {
	// GIVEN two layers followed by a barrier
	c := newTestCounter(0)
	q := c.QubitAllocate()
	c.T(q)
	c.T(q)
	c.GlobalBarrier()

	// WHEN a new qubit is allocated and receives a T
	fresh := c.QubitAllocate()
	c.T(fresh)

	// THEN its cost is scheduled after the barrier, not at depth 0
	assert.Equal(t, []Layer{{T: 1}, {T: 1}, {T: 1}}, c.Layers())
}

func TestUnallocatedQubitReference_GrowsQubitCount(t *testing.T) {
	c := newTestCounter(0)

	c.T(4)

	assert.Equal(t, uint64(5), c.LogicalResources().NumQubits)
	assert.Equal(t, 5, c.QubitAllocate())
}

func TestM_CountsAndIsDeterministicPerSeed(t *testing.T) {
	// GIVEN two counters with the same seed
	a, b := newTestCounter(99), newTestCounter(99)
	qa, qb := a.QubitAllocate(), b.QubitAllocate()

	// WHEN measuring repeatedly
	for i := 0; i < 32; i++ {
		// THEN outcomes match
		require.Equal(t, a.M(qa), b.MResetZ(qb), "measurement %d", i)
	}
	assert.Equal(t, uint64(32), a.LogicalResources().MeasurementCount)
}

func TestLogicalResources_SameStreamSameCounts(t *testing.T) {
	run := func() ResourceCounts {
		c := newTestCounter(5)
		qs := allocate(c, 3)
		for i := 0; i < 4; i++ {
			c.H(qs[0])
			c.T(qs[i%3])
			c.CCX(qs[0], qs[1], qs[2])
			c.Rz(0.25*float64(i+1), qs[1])
			if c.M(qs[2]) {
				c.X(qs[2])
			}
		}
		return c.LogicalResources()
	}

	assert.Equal(t, run(), run())
}
