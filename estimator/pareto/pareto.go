// Package pareto holds multi-objective candidate sets where every coordinate
// is minimized.
package pareto

import (
	"cmp"
	"slices"
)

// Point is a candidate with comparable coordinates. Dominates reports strict
// Pareto dominance; Compare orders points lexicographically by coordinates.
type Point[P any] interface {
	Dominates(other P) bool
	Compare(other P) int
}

// dominates reports whether a is no worse than b in every coordinate and
// strictly better in at least one.
func dominates(a, b []float64) bool {
	strictly := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			strictly = true
		}
	}
	return strictly
}

func compareCoords(a, b []float64) int {
	for i := range a {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Point2D wraps an item with two objectives.
type Point2D[T any] struct {
	Item   T
	Value1 float64
	Value2 float64
}

func NewPoint2D[T any](item T, value1, value2 float64) Point2D[T] {
	return Point2D[T]{Item: item, Value1: value1, Value2: value2}
}

func (p Point2D[T]) coords() [2]float64 { return [2]float64{p.Value1, p.Value2} }

func (p Point2D[T]) Dominates(other Point2D[T]) bool {
	a, b := p.coords(), other.coords()
	return dominates(a[:], b[:])
}

func (p Point2D[T]) Compare(other Point2D[T]) int {
	a, b := p.coords(), other.coords()
	return compareCoords(a[:], b[:])
}

// Point4D wraps an item with four objectives.
type Point4D[T any] struct {
	Item   T
	Value1 float64
	Value2 float64
	Value3 float64
	Value4 float64
}

func NewPoint4D[T any](item T, value1, value2, value3, value4 float64) Point4D[T] {
	return Point4D[T]{Item: item, Value1: value1, Value2: value2, Value3: value3, Value4: value4}
}

func (p Point4D[T]) coords() [4]float64 {
	return [4]float64{p.Value1, p.Value2, p.Value3, p.Value4}
}

func (p Point4D[T]) Dominates(other Point4D[T]) bool {
	a, b := p.coords(), other.coords()
	return dominates(a[:], b[:])
}

func (p Point4D[T]) Compare(other Point4D[T]) int {
	a, b := p.coords(), other.coords()
	return compareCoords(a[:], b[:])
}

const initialFilterThreshold = 64

// Population is a set of points. After FilterOutDominated no retained point
// dominates another.
type Population[P Point[P]] struct {
	points          []P
	filterThreshold int
}

func NewPopulation[P Point[P]]() *Population[P] {
	return &Population[P]{filterThreshold: initialFilterThreshold}
}

// Push inserts p without checking dominance.
func (pop *Population[P]) Push(p P) {
	pop.points = append(pop.points, p)
}

// Dominates reports whether any retained point dominates p.
func (pop *Population[P]) Dominates(p P) bool {
	for _, q := range pop.points {
		if q.Dominates(p) {
			return true
		}
	}
	return false
}

// AttemptFilterOutDominated filters only once the population has grown past a
// threshold, which then doubles relative to the surviving size.
func (pop *Population[P]) AttemptFilterOutDominated() {
	if len(pop.points) < pop.filterThreshold {
		return
	}
	pop.FilterOutDominated()
	pop.filterThreshold = max(initialFilterThreshold, 2*len(pop.points))
}

// FilterOutDominated removes every point dominated by another retained point.
func (pop *Population[P]) FilterOutDominated() {
	kept := make([]P, 0, len(pop.points))
	for i, p := range pop.points {
		dominated := false
		for j, q := range pop.points {
			if i != j && q.Dominates(p) {
				dominated = true
				break
			}
		}
		if !dominated {
			kept = append(kept, p)
		}
	}
	pop.points = kept
}

// SortItems orders points by coordinates, keeping insertion order for ties.
func (pop *Population[P]) SortItems() {
	slices.SortStableFunc(pop.points, func(a, b P) int { return a.Compare(b) })
}

func (pop *Population[P]) Items() []P { return pop.points }

func (pop *Population[P]) Len() int { return len(pop.points) }
