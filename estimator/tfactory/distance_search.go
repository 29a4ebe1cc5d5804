package tfactory

import (
	"fmt"
	"strings"
)

// distanceCheck evaluates one distance-index vector and reports whether
// larger distances are still worth trying ("go right").
type distanceCheck func(distanceIndexes []int) bool

// distanceSearch explores code-distance vectors between left and right for
// one unit sequence. Larger distances lower error rates and raise costs, so
// once a vector says stop, larger vectors along that direction are skipped.
type distanceSearch struct {
	left, right []int
	memo        map[string]bool

	// alwaysGoRight makes iterate visit the whole box.
	alwaysGoRight bool
}

func newDistanceSearch(left, right []int, alwaysGoRight bool) *distanceSearch {
	return &distanceSearch{left: left, right: right, memo: make(map[string]bool), alwaysGoRight: alwaysGoRight}
}

func vectorKey(v []int) string {
	var b strings.Builder
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprint(&b, x)
	}
	return b.String()
}

// empty reports whether some round has no usable distance.
func (s *distanceSearch) empty() bool {
	for i := range s.left {
		if s.left[i] > s.right[i] {
			return true
		}
	}
	return false
}

// diagonal returns the k-th vector on the walk that raises every round by
// one distance step, each capped at its maximum.
func (s *distanceSearch) diagonal(k int) []int {
	v := make([]int, len(s.left))
	for i := range v {
		v[i] = min(s.left[i]+k, s.right[i])
	}
	return v
}

func (s *distanceSearch) span() int {
	k := 0
	for i := range s.left {
		k = max(k, s.right[i]-s.left[i])
	}
	return k
}

func (s *distanceSearch) memoized(check distanceCheck, v []int) bool {
	key := vectorKey(v)
	if goRight, ok := s.memo[key]; ok {
		return goRight
	}
	goRight := check(v)
	s.memo[key] = goRight
	return goRight
}

// bisect finds the first diagonal vector that says stop. It returns nil when
// even the largest vector still says go right: no distance assignment helps.
func (s *distanceSearch) bisect(check distanceCheck) []int {
	hi := s.span()
	if s.memoized(check, s.diagonal(hi)) {
		return nil
	}
	lo := 0
	for lo < hi {
		mid := lo + (hi-lo)/2
		if s.memoized(check, s.diagonal(mid)) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return s.diagonal(hi)
}

// iterate walks the box from left to right. The last round advances until a
// vector says stop; an outer round advances only while the first vector of
// its inner walk said go right. Vectors seen by bisect are not re-evaluated.
func (s *distanceSearch) iterate(check distanceCheck) {
	v := make([]int, len(s.left))
	copy(v, s.left)
	s.iterateFrom(check, v, 0)
}

func (s *distanceSearch) iterateFrom(check distanceCheck, v []int, pos int) bool {
	firstGoRight := false
	for d := s.left[pos]; d <= s.right[pos]; d++ {
		v[pos] = d
		var goRight bool
		if pos == len(v)-1 {
			if known, ok := s.memo[vectorKey(v)]; ok {
				goRight = known
			} else {
				goRight = check(v)
			}
			goRight = goRight || s.alwaysGoRight
		} else {
			goRight = s.iterateFrom(check, v, pos+1)
		}
		if d == s.left[pos] {
			firstGoRight = goRight
		}
		if !goRight {
			break
		}
	}
	v[pos] = s.left[pos]
	return firstGoRight
}
