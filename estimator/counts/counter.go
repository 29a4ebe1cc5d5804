// Package counts implements the logical resource counter: a gate-stream
// backend that tracks qubit usage and non-Clifford cost per depth layer
// without simulating any quantum state.
package counts

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/qresim/estimator"
)

var (
	ErrNoActiveCache      = errors.New("cannot end caching before beginning caching")
	ErrNoActiveRepeat     = errors.New("cannot end repeat before beginning repeat")
	ErrCacheAlreadyActive = errors.New("cache region is already active")
	ErrUnsupportedLayout  = errors.New("parameter layout in AccountForEstimates must be 1 for PSSPCLayout")
	ErrUnknownIntrinsic   = errors.New("unknown intrinsic")
	ErrNegativeCount      = errors.New("negative count")
	ErrCountOverflow      = errors.New("count overflow")
)

// layerCache is a caching region. It is pending between BeginCaching and
// EndCaching and resolved afterwards.
type layerCache struct {
	resolved   bool
	startDepth int
	endDepth   int
	combined   Layer
	mCount     uint64
	wtmCount   uint64
	rfmCount   uint64
}

type repeatEntry struct {
	count      uint64
	startDepth int
	mCount     uint64
	wtmCount   uint64
	rfmCount   uint64
}

// Counter tracks logical resources while a program is driven through it.
// A Counter is owned by one estimation run and is not safe for concurrent use.
type Counter struct {
	freeList []int
	nextFree int
	// maxLayer[q] is the depth at which the next cost on qubit q is scheduled.
	maxLayer []int
	layers   []Layer

	tCount   uint64
	rCount   uint64
	cczCount uint64
	mCount   uint64

	// allocationBarrier is the start depth of qubits allocated from now on.
	allocationBarrier int

	cachingStack  []string
	cachingLayers map[string]*layerCache
	repeats       []repeatEntry

	memoryCompute *MemoryCompute
	rng           *rand.Rand
}

// NewCounter creates a counter drawing measurement outcomes from rng. A nil
// rng falls back to the measurement stream of seed 0.
func NewCounter(rng *rand.Rand) *Counter {
	if rng == nil {
		rng = estimator.MeasurementRand(0)
	}
	return &Counter{
		cachingLayers: make(map[string]*layerCache),
		rng:           rng,
	}
}

// LogicalResources returns a snapshot of the counts accumulated so far.
func (c *Counter) LogicalResources() ResourceCounts {
	counts := ResourceCounts{
		NumQubits:        uint64(c.nextFree),
		TCount:           c.tCount,
		RotationCount:    c.rCount,
		RotationDepth:    uint64(RotationDepth(c.layers)),
		CCZCount:         c.cczCount,
		MeasurementCount: c.mCount,
	}
	if mc := c.memoryCompute; mc != nil {
		size, reads, writes := mc.ComputeSize(), mc.ReadFromMemoryCount(), mc.WriteToMemoryCount()
		counts.NumComputeQubits = &size
		counts.ReadFromMemoryCount = &reads
		counts.WriteToMemoryCount = &writes
	}
	return counts
}

// Layers returns a copy of the layer sequence.
func (c *Counter) Layers() []Layer {
	return append([]Layer(nil), c.layers...)
}

// === Scheduling ===

// ensureQubit grows depth tracking to cover q. Qubits referenced without an
// allocation start at the allocation barrier.
func (c *Counter) ensureQubit(q int) {
	for len(c.maxLayer) <= q {
		c.maxLayer = append(c.maxLayer, c.allocationBarrier)
	}
	if c.nextFree < len(c.maxLayer) {
		c.nextFree = len(c.maxLayer)
	}
}

func (c *Counter) levelAt(q int) int {
	c.ensureQubit(q)
	return c.maxLayer[q]
}

// addAt adds cost to the layer at depth, appending a layer when depth is one
// past the end.
func (c *Counter) addAt(depth int, cost Layer) {
	if depth == len(c.layers) {
		c.layers = append(c.layers, cost)
		return
	}
	c.layers[depth] = c.layers[depth].Add(cost)
}

func (c *Counter) scheduleSingle(q int, cost Layer) {
	c.addAt(c.levelAt(q), cost)
	c.maxLayer[q]++
}

func (c *Counter) scheduleCCZ(q1, q2, q3 int) {
	depth := max(c.levelAt(q1), c.levelAt(q2), c.levelAt(q3))
	c.addAt(depth, layerWithCCZ())
	c.maxLayer[q1] = depth + 1
	c.maxLayer[q2] = depth + 1
	c.maxLayer[q3] = depth + 1
}

func (c *Counter) scheduleTwoQubitClifford(q1, q2 int) {
	depth := max(c.levelAt(q1), c.levelAt(q2))
	c.maxLayer[q1] = depth
	c.maxLayer[q2] = depth
}

// GlobalBarrier aligns every qubit to the current number of layers and
// returns that depth.
func (c *Counter) GlobalBarrier() int {
	depth := len(c.layers)
	for q := range c.maxLayer {
		c.maxLayer[q] = depth
	}
	c.allocationBarrier = depth
	return depth
}

func (c *Counter) assertComputeQubits(qubits ...int) {
	if c.memoryCompute != nil {
		c.memoryCompute.AssertComputeQubits(qubits...)
	}
}

func (c *Counter) wtmCount() uint64 {
	if c.memoryCompute == nil {
		return 0
	}
	return c.memoryCompute.WriteToMemoryCount()
}

func (c *Counter) rfmCount() uint64 {
	if c.memoryCompute == nil {
		return 0
	}
	return c.memoryCompute.ReadFromMemoryCount()
}

// === Caching ===

func cacheLabel(name string, variant int64) string {
	return fmt.Sprintf("%s-%d", name, variant)
}

// BeginCaching starts or replays the region named by name and variant. It
// returns true when the caller must execute the region body, and false when a
// resolved region was replayed and the body must be skipped.
func (c *Counter) BeginCaching(name string, variant int64) (bool, error) {
	label := cacheLabel(name, variant)

	if entry, ok := c.cachingLayers[label]; ok {
		if !entry.resolved {
			return false, fmt.Errorf("%q: %w", label, ErrCacheAlreadyActive)
		}
		if err := c.addTotals(entry.combined, entry.mCount); err != nil {
			return false, fmt.Errorf("replaying %q: %w", label, err)
		}
		c.layers = append(c.layers, c.layers[entry.startDepth:entry.endDepth]...)
		if c.memoryCompute != nil {
			c.memoryCompute.increaseWriteToMemoryCount(entry.wtmCount)
			c.memoryCompute.increaseReadFromMemoryCount(entry.rfmCount)
		}
		logrus.Debugf("counts: replayed cached region %q (%d layers)", label, entry.endDepth-entry.startDepth)
		return false, nil
	}

	depth := c.GlobalBarrier()
	c.cachingLayers[label] = &layerCache{
		startDepth: depth,
		mCount:     c.mCount,
		wtmCount:   c.wtmCount(),
		rfmCount:   c.rfmCount(),
	}
	c.cachingStack = append(c.cachingStack, label)
	return true, nil
}

// EndCaching resolves the innermost active caching region.
func (c *Counter) EndCaching() error {
	if len(c.cachingStack) == 0 {
		return ErrNoActiveCache
	}
	label := c.cachingStack[len(c.cachingStack)-1]
	c.cachingStack = c.cachingStack[:len(c.cachingStack)-1]

	entry := c.cachingLayers[label]
	endDepth := len(c.layers)
	*entry = layerCache{
		resolved:   true,
		startDepth: entry.startDepth,
		endDepth:   endDepth,
		combined:   SumLayers(c.layers[entry.startDepth:endDepth]),
		mCount:     c.mCount - entry.mCount,
		wtmCount:   c.wtmCount() - entry.wtmCount,
		rfmCount:   c.rfmCount() - entry.rfmCount,
	}

	c.GlobalBarrier()
	return nil
}

// MaxEstimateSpan bounds estimate counts that allocate qubits or layers one
// by one.
const MaxEstimateSpan = math.MaxInt32

func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("count %d + %d: %w", a, b, ErrCountOverflow)
	}
	return sum, nil
}

// addTotals adds l and m to the running totals. Nothing changes on overflow.
func (c *Counter) addTotals(l Layer, m uint64) error {
	t, err := addChecked(c.tCount, l.T)
	if err != nil {
		return err
	}
	r, err := addChecked(c.rCount, l.R)
	if err != nil {
		return err
	}
	ccz, err := addChecked(c.cczCount, l.CCZ)
	if err != nil {
		return err
	}
	mc, err := addChecked(c.mCount, m)
	if err != nil {
		return err
	}
	c.tCount, c.rCount, c.cczCount, c.mCount = t, r, ccz, mc
	return nil
}

// === Repeat ===

// BeginRepeat starts a region whose single executed iteration stands for
// count iterations.
func (c *Counter) BeginRepeat(count int64) error {
	if count < 0 {
		return fmt.Errorf("repeat count %d: %w", count, ErrNegativeCount)
	}
	start := c.GlobalBarrier()
	c.repeats = append(c.repeats, repeatEntry{
		count:      uint64(count),
		startDepth: start,
		mCount:     c.mCount,
		wtmCount:   c.wtmCount(),
		rfmCount:   c.rfmCount(),
	})
	return nil
}

// EndRepeat extrapolates the innermost repeat region from the one iteration
// executed since BeginRepeat. Later iterations are assumed to have the same
// layer structure as the first.
func (c *Counter) EndRepeat() error {
	if len(c.repeats) == 0 {
		return ErrNoActiveRepeat
	}
	entry := c.repeats[len(c.repeats)-1]
	c.repeats = c.repeats[:len(c.repeats)-1]

	if entry.count == 0 {
		return nil
	}

	endDepth := c.GlobalBarrier()
	body := c.layers[entry.startDepth:endDepth]
	sum := SumLayers(body)
	rDepth := uint64(RotationDepth(body))

	// One iteration was already executed.
	extra := entry.count - 1
	var combined Layer
	var combinedRDepth, combinedM, combinedWTM, combinedRFM uint64
	for _, m := range []struct {
		dst *uint64
		v   uint64
	}{
		{&combined.T, sum.T},
		{&combined.R, sum.R},
		{&combined.CCZ, sum.CCZ},
		{&combinedRDepth, rDepth},
		{&combinedM, c.mCount - entry.mCount},
		{&combinedWTM, c.wtmCount() - entry.wtmCount},
		{&combinedRFM, c.rfmCount() - entry.rfmCount},
	} {
		hi, lo := bits.Mul64(m.v, extra)
		if hi != 0 {
			return fmt.Errorf("repeating %d times: %w", entry.count, ErrCountOverflow)
		}
		*m.dst = lo
	}
	if combinedRDepth > MaxEstimateSpan {
		return fmt.Errorf("repeating rotation depth %d: %w", combinedRDepth, ErrCountOverflow)
	}
	if err := c.addTotals(combined, combinedM); err != nil {
		return fmt.Errorf("repeating %d times: %w", entry.count, err)
	}

	if combinedRDepth > 0 {
		first := combined
		first.R = combined.R - (combinedRDepth - 1)
		c.layers = append(c.layers, first)
		for i := uint64(1); i < combinedRDepth; i++ {
			c.layers = append(c.layers, layerWithR())
		}
	} else {
		c.layers = append(c.layers, combined)
	}

	if c.memoryCompute != nil {
		c.memoryCompute.increaseWriteToMemoryCount(combinedWTM)
		c.memoryCompute.increaseReadFromMemoryCount(combinedRFM)
	}
	logrus.Debugf("counts: extrapolated repeat x%d (%d body layers, rotation depth %d)",
		entry.count, len(body), rDepth)

	c.GlobalBarrier()
	return nil
}

// === Estimates ===

// EstimateKind identifies one entry of a pre-costed block.
type EstimateKind int64

const (
	EstimateAuxQubits EstimateKind = iota
	EstimateT
	EstimateRotations
	EstimateRotationDepth
	EstimateCCZ
	EstimateMeasurements
)

// Estimate is one (kind, count) pair of a pre-costed block.
type Estimate struct {
	Kind  EstimateKind
	Count int64
}

// AccountForEstimates injects the cost of a block computed elsewhere, acting
// on qubits plus any auxiliary qubits the estimates declare.
func (c *Counter) AccountForEstimates(estimates []Estimate, layout int64, qubits []int) error {
	if layout != estimator.PSSPCLayout {
		return fmt.Errorf("layout %d: %w", layout, ErrUnsupportedLayout)
	}

	var aux, t, r, rDepth, ccz, m uint64
	for _, e := range estimates {
		if e.Count < 0 {
			return fmt.Errorf("estimate count %d: %w", e.Count, ErrNegativeCount)
		}
		var dst *uint64
		switch e.Kind {
		case EstimateAuxQubits:
			dst = &aux
		case EstimateT:
			dst = &t
		case EstimateRotations:
			dst = &r
		case EstimateRotationDepth:
			dst = &rDepth
		case EstimateCCZ:
			dst = &ccz
		case EstimateMeasurements:
			dst = &m
		default:
			return fmt.Errorf("unknown estimate kind: %d", e.Kind)
		}
		sum, err := addChecked(*dst, uint64(e.Count))
		if err != nil {
			return err
		}
		*dst = sum
	}
	// Both allocate per unit, so they are bounded before anything changes.
	if aux > MaxEstimateSpan {
		return fmt.Errorf("aux qubits %d: %w", aux, ErrCountOverflow)
	}
	if rDepth > MaxEstimateSpan {
		return fmt.Errorf("rotation depth %d: %w", rDepth, ErrCountOverflow)
	}

	if rDepth == 0 && r != 0 {
		return errors.New("rotation depth of zero must use rotation count zero")
	}
	if rDepth != 0 && r != 0 {
		if len(qubits) == 0 {
			return fmt.Errorf("rotation count %d requires at least one qubit", r)
		}
		if float64(rDepth) < math.Ceil(float64(r)/float64(len(qubits))) {
			return fmt.Errorf("rotation depth %d is too small for rotation count %d and %d qubits",
				rDepth, r, len(qubits))
		}
	}
	if err := c.addTotals(Layer{T: t, R: r, CCZ: ccz}, m); err != nil {
		return err
	}

	helpers := make([]int, 0, aux)
	for i := uint64(0); i < aux; i++ {
		helpers = append(helpers, c.QubitAllocate())
	}

	all := append(append([]int(nil), qubits...), helpers...)
	depth := 0
	for _, q := range all {
		depth = max(depth, c.levelAt(q))
	}
	for _, q := range all {
		c.maxLayer[q] = depth
	}

	numLayers := 1
	if rDepth == 0 {
		c.layers = append(c.layers, Layer{T: t, CCZ: ccz})
	} else {
		perLayer := r / rDepth
		c.layers = append(c.layers, Layer{T: t, R: perLayer + r%rDepth, CCZ: ccz})
		for i := uint64(1); i < rDepth; i++ {
			c.layers = append(c.layers, Layer{R: perLayer})
		}
		numLayers = int(rDepth)
	}

	for _, q := range qubits {
		c.maxLayer[q] += numLayers
	}
	for _, q := range helpers {
		c.QubitRelease(q)
	}
	return nil
}

// EnableMemoryCompute turns on compute/memory traffic tracking. Only the
// first call takes effect.
func (c *Counter) EnableMemoryCompute(capacity int64, strategy CachingStrategy) error {
	if c.memoryCompute != nil {
		return nil
	}
	mc, err := NewMemoryCompute(capacity, strategy)
	if err != nil {
		return err
	}
	c.memoryCompute = mc
	return nil
}
