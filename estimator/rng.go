package estimator

import (
	"hash/fnv"
	"math/rand"
)

// Seed makes an estimation run reproducible: the same seed and the same
// program yield the same resource counts.
type Seed int64

// Stream names an independent random sequence derived from a Seed.
type Stream string

// StreamMeasurement drives measurement outcomes in the counter. It is seeded
// with the run seed unchanged, so --seed N gives the outcomes of a plain
// source seeded with N.
const StreamMeasurement Stream = "measurement"

// Streams hands out one deterministic *rand.Rand per stream. Draws on one
// stream never shift another. Not safe for concurrent use.
type Streams struct {
	seed  Seed
	cache map[Stream]*rand.Rand
}

// NewStreams returns the stream set of one run.
func NewStreams(seed Seed) *Streams {
	return &Streams{seed: seed, cache: make(map[Stream]*rand.Rand)}
}

// Seed returns the run seed.
func (s *Streams) Seed() Seed { return s.seed }

// Rand returns the generator of stream, creating it on first use. Repeated
// calls return the same instance.
func (s *Streams) Rand(stream Stream) *rand.Rand {
	r, ok := s.cache[stream]
	if !ok {
		r = rand.New(rand.NewSource(s.derive(stream)))
		s.cache[stream] = r
	}
	return r
}

// derive mixes the stream name into the seed with FNV-1a.
func (s *Streams) derive(stream Stream) int64 {
	if stream == StreamMeasurement {
		return int64(s.seed)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(stream))
	return int64(s.seed) ^ int64(h.Sum64())
}

// MeasurementRand returns the measurement stream of a run seeded with seed.
func MeasurementRand(seed int64) *rand.Rand {
	return NewStreams(Seed(seed)).Rand(StreamMeasurement)
}
