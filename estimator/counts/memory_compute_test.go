package counts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCompute_LRU(t *testing.T) {
	// GIVEN an LRU compute set of capacity 2
	mc, err := NewMemoryCompute(2, LeastRecentlyUsed)
	require.NoError(t, err)

	// WHEN touching 0,1 then 2 (evicts 0), then 1 (hit), then 0 (evicts 2)
	mc.AssertComputeQubits(0, 1)
	mc.AssertComputeQubits(2)
	mc.AssertComputeQubits(1)
	mc.AssertComputeQubits(0)

	// THEN four reads and two writes were needed
	assert.Equal(t, uint64(4), mc.ReadFromMemoryCount())
	assert.Equal(t, uint64(2), mc.WriteToMemoryCount())
	assert.Equal(t, uint64(2), mc.ComputeSize())
}

func TestMemoryCompute_LFU(t *testing.T) {
	// GIVEN an LFU compute set of capacity 2 where qubit 0 is used twice
	mc, err := NewMemoryCompute(2, LeastFrequentlyUsed)
	require.NoError(t, err)
	mc.AssertComputeQubits(0, 1)
	mc.AssertComputeQubits(0)

	// WHEN qubit 2 comes in
	mc.AssertComputeQubits(2)

	// THEN qubit 1 is evicted and qubit 0 stays resident
	assert.Equal(t, uint64(3), mc.ReadFromMemoryCount())
	assert.Equal(t, uint64(1), mc.WriteToMemoryCount())
	mc.AssertComputeQubits(0)
	assert.Equal(t, uint64(3), mc.ReadFromMemoryCount())
	mc.AssertComputeQubits(1)
	assert.Equal(t, uint64(4), mc.ReadFromMemoryCount())
	assert.Equal(t, uint64(2), mc.ComputeSize())
}

func TestMemoryCompute_LFUDoesNotEvictIncomingQubits(t *testing.T) {
	// GIVEN an LFU set holding 0 and 1
	mc, err := NewMemoryCompute(2, LeastFrequentlyUsed)
	require.NoError(t, err)
	mc.AssertComputeQubits(0, 1)

	// WHEN 1 and a new qubit 2 arrive together
	mc.AssertComputeQubits(1, 2)

	// THEN only 0 is written back
	assert.Equal(t, uint64(1), mc.WriteToMemoryCount())
	mc.AssertComputeQubits(1, 2)
	assert.Equal(t, uint64(3), mc.ReadFromMemoryCount())
}

func TestMemoryCompute_ZeroCapacityIgnoresTraffic(t *testing.T) {
	for _, strategy := range []CachingStrategy{LeastRecentlyUsed, LeastFrequentlyUsed} {
		mc, err := NewMemoryCompute(0, strategy)
		require.NoError(t, err)

		mc.AssertComputeQubits(0, 1, 2)

		assert.Zero(t, mc.ReadFromMemoryCount(), strategy.String())
		assert.Zero(t, mc.ComputeSize(), strategy.String())
	}
}

func TestMemoryCompute_NegativeCapacity(t *testing.T) {
	_, err := NewMemoryCompute(-1, LeastRecentlyUsed)
	assert.ErrorIs(t, err, ErrNegativeCount)
}

func TestCounter_MemoryComputeCounts(t *testing.T) {
	// GIVEN a counter with an LRU compute region of 2 qubits
	c := newTestCounter(0)
	require.NoError(t, c.EnableMemoryCompute(2, LeastRecentlyUsed))
	// AND a second configuration that must be ignored
	require.NoError(t, c.EnableMemoryCompute(10, LeastFrequentlyUsed))
	qs := allocate(c, 3)

	// WHEN a CX touches two qubits and an H a third
	c.CX(qs[0], qs[1])
	c.H(qs[2])

	// THEN the third qubit forces one write-back
	got := c.LogicalResources()
	require.NotNil(t, got.NumComputeQubits)
	assert.Equal(t, uint64(2), *got.NumComputeQubits)
	assert.Equal(t, uint64(3), *got.ReadFromMemoryCount)
	assert.Equal(t, uint64(1), *got.WriteToMemoryCount)
}

func TestCounter_MemoryComputeScalesWithRepeatAndCache(t *testing.T) {
	// GIVEN a compute region of one qubit
	c := newTestCounter(0)
	require.NoError(t, c.EnableMemoryCompute(1, LeastRecentlyUsed))
	qs := allocate(c, 2)

	// WHEN a body alternating two qubits is repeated 3 times
	require.NoError(t, c.BeginRepeat(3))
	c.H(qs[0])
	c.H(qs[1])
	require.NoError(t, c.EndRepeat())

	// THEN the single iteration's 2 reads and 1 write are scaled
	got := c.LogicalResources()
	assert.Equal(t, uint64(6), *got.ReadFromMemoryCount)
	assert.Equal(t, uint64(3), *got.WriteToMemoryCount)

	// WHEN a cached region is replayed
	_, err := c.BeginCaching("swap", 0)
	require.NoError(t, err)
	c.H(qs[0])
	require.NoError(t, c.EndCaching())
	proceed, err := c.BeginCaching("swap", 0)
	require.NoError(t, err)
	require.False(t, proceed)

	// THEN the recorded traffic is added again
	got = c.LogicalResources()
	assert.Equal(t, uint64(8), *got.ReadFromMemoryCount)
	assert.Equal(t, uint64(5), *got.WriteToMemoryCount)
}

func TestCounter_NoMemoryComputeFieldsByDefault(t *testing.T) {
	c := newTestCounter(0)
	c.H(c.QubitAllocate())

	got := c.LogicalResources()
	assert.Nil(t, got.NumComputeQubits)
	assert.Nil(t, got.ReadFromMemoryCount)
	assert.Nil(t, got.WriteToMemoryCount)
}
