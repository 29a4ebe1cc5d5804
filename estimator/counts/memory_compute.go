package counts

import (
	"fmt"
	"slices"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// CachingStrategy selects how qubits are evicted from the compute set.
type CachingStrategy int64

const (
	// LeastRecentlyUsed evicts the qubit that was touched longest ago.
	LeastRecentlyUsed CachingStrategy = 0
	// LeastFrequentlyUsed evicts the qubit touched the fewest times, oldest first.
	LeastFrequentlyUsed CachingStrategy = 1
)

func (s CachingStrategy) String() string {
	if s == LeastRecentlyUsed {
		return "lru"
	}
	return "lfu"
}

// computeSet holds the qubits currently in compute mode.
type computeSet interface {
	insertAll(qubits []int)
	insertedNew() uint64
	removed() uint64
	maxSize() int
}

// MemoryCompute tracks traffic between a bounded compute region and memory.
// Reads from memory are qubits newly brought into the compute set, writes are
// evicted qubits. The extra counters absorb traffic that was extrapolated
// rather than replayed through the set.
type MemoryCompute struct {
	set        computeSet
	readExtra  uint64
	writeExtra uint64
}

// NewMemoryCompute creates the compute set for the given capacity. Any
// strategy other than LeastRecentlyUsed selects least-frequently-used.
func NewMemoryCompute(capacity int64, strategy CachingStrategy) (*MemoryCompute, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("compute capacity %d: %w", capacity, ErrNegativeCount)
	}
	var set computeSet
	if strategy == LeastRecentlyUsed {
		lru, err := newLRUSet(int(capacity))
		if err != nil {
			return nil, err
		}
		set = lru
	} else {
		set = newLFUSet(int(capacity))
	}
	return &MemoryCompute{set: set}, nil
}

// AssertComputeQubits makes sure all qubits are in the compute set.
func (m *MemoryCompute) AssertComputeQubits(qubits ...int) {
	m.set.insertAll(qubits)
}

// ComputeSize returns the largest size the compute set ever reached.
func (m *MemoryCompute) ComputeSize() uint64 { return uint64(m.set.maxSize()) }

func (m *MemoryCompute) ReadFromMemoryCount() uint64 { return m.set.insertedNew() + m.readExtra }

func (m *MemoryCompute) WriteToMemoryCount() uint64 { return m.set.removed() + m.writeExtra }

func (m *MemoryCompute) increaseReadFromMemoryCount(n uint64) { m.readExtra += n }

func (m *MemoryCompute) increaseWriteToMemoryCount(n uint64) { m.writeExtra += n }

// uniqueInOrder drops repeated qubits, keeping first occurrences.
func uniqueInOrder(qubits []int) []int {
	out := make([]int, 0, len(qubits))
	for _, q := range qubits {
		if !slices.Contains(out, q) {
			out = append(out, q)
		}
	}
	return out
}

// === LRU ===

type lruSet struct {
	cache    *simplelru.LRU[int, struct{}]
	inserted uint64
	evicted  uint64
	max      int
}

func newLRUSet(capacity int) (*lruSet, error) {
	s := &lruSet{}
	if capacity == 0 {
		return s, nil
	}
	cache, err := simplelru.NewLRU[int, struct{}](capacity, func(int, struct{}) {
		s.evicted++
	})
	if err != nil {
		return nil, fmt.Errorf("creating LRU compute set: %w", err)
	}
	s.cache = cache
	return s, nil
}

func (s *lruSet) insertAll(qubits []int) {
	if s.cache == nil {
		return
	}
	for _, q := range uniqueInOrder(qubits) {
		if s.cache.Contains(q) {
			s.cache.Get(q)
			continue
		}
		s.cache.Add(q, struct{}{})
		s.inserted++
	}
	if n := s.cache.Len(); n > s.max {
		s.max = n
	}
}

func (s *lruSet) insertedNew() uint64 { return s.inserted }
func (s *lruSet) removed() uint64     { return s.evicted }
func (s *lruSet) maxSize() int        { return s.max }

// === LFU ===

// lfuSet keeps a frequency per qubit and per-frequency buckets ordered by
// insertion (oldest first).
type lfuSet struct {
	capacity int
	freq     map[int]uint64
	buckets  map[uint64][]int
	minFreq  uint64
	maxFreq  uint64
	inserted uint64
	evicted  uint64
	max      int
}

func newLFUSet(capacity int) *lfuSet {
	return &lfuSet{
		capacity: capacity,
		freq:     make(map[int]uint64, capacity),
		buckets:  make(map[uint64][]int),
	}
}

func (s *lfuSet) insertAll(qubits []int) {
	if s.capacity == 0 {
		return
	}
	ordered := uniqueInOrder(qubits)

	// Evict before inserting: new qubits start at frequency 1 and would
	// otherwise be the first victims.
	missing := 0
	for _, q := range ordered {
		if _, ok := s.freq[q]; !ok {
			missing++
		}
	}
	for needed := len(s.freq) + missing; needed > s.capacity; needed-- {
		victim, ok := s.victim(ordered)
		if !ok {
			break
		}
		s.remove(victim)
	}

	for _, q := range ordered {
		if f, ok := s.freq[q]; ok {
			s.freq[q] = f + 1
			s.bump(q, f, f+1)
			continue
		}
		s.freq[q] = 1
		s.buckets[1] = append(s.buckets[1], q)
		s.minFreq = 1
		s.maxFreq = max(s.maxFreq, 1)
		s.inserted++
	}
	if len(s.freq) > s.max {
		s.max = len(s.freq)
	}
}

// victim picks the lowest-frequency, oldest qubit not in incoming.
func (s *lfuSet) victim(incoming []int) (int, bool) {
	for f := s.minFreq; f <= s.maxFreq; f++ {
		for _, q := range s.buckets[f] {
			if !slices.Contains(incoming, q) {
				return q, true
			}
		}
	}
	return 0, false
}

func (s *lfuSet) bump(q int, from, to uint64) {
	bucket := s.buckets[from]
	if i := slices.Index(bucket, q); i >= 0 {
		bucket = slices.Delete(bucket, i, i+1)
	}
	if len(bucket) == 0 {
		delete(s.buckets, from)
		if s.minFreq == from {
			s.minFreq = to
		}
	} else {
		s.buckets[from] = bucket
	}
	s.buckets[to] = append(s.buckets[to], q)
	if to > s.maxFreq {
		s.maxFreq = to
	}
}

func (s *lfuSet) remove(q int) {
	f, ok := s.freq[q]
	if !ok {
		return
	}
	delete(s.freq, q)
	bucket := s.buckets[f]
	if i := slices.Index(bucket, q); i >= 0 {
		bucket = slices.Delete(bucket, i, i+1)
	}
	if len(bucket) == 0 {
		delete(s.buckets, f)
		if s.minFreq == f {
			s.minFreq = 0
			for bf := range s.buckets {
				if s.minFreq == 0 || bf < s.minFreq {
					s.minFreq = bf
				}
			}
		}
	} else {
		s.buckets[f] = bucket
	}
	s.evicted++
}

func (s *lfuSet) insertedNew() uint64 { return s.inserted }
func (s *lfuSet) removed() uint64     { return s.evicted }
func (s *lfuSet) maxSize() int        { return s.max }
