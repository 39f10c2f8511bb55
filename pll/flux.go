package pll

import "sort"

// FluxIterator provides transitions from a sorted list of absolute times.
// It implements the TransitionSource interface.
type FluxIterator struct {
	transitions []uint64 // Absolute transition times in ticks
	index       int      // Hint for monotonic queries
}

// NewFluxIterator creates a new FluxIterator from sorted transition times.
func NewFluxIterator(transitions []uint64) *FluxIterator {
	return &FluxIterator{
		transitions: transitions,
		index:       0,
	}
}

// NextTransition returns the first transition strictly after the given tick.
// Implements the TransitionSource interface.
func (fi *FluxIterator) NextTransition(after uint64) uint64 {
	n := len(fi.transitions)
	if fi.index > n || (fi.index > 0 && fi.transitions[fi.index-1] > after) {
		fi.index = sort.Search(n, func(i int) bool { return fi.transitions[i] > after })
	}
	for fi.index < n && fi.transitions[fi.index] <= after {
		fi.index++
	}
	if fi.index >= n {
		return Never
	}
	return fi.transitions[fi.index]
}

// IsDone returns true if the last query ran past all transitions.
func (fi *FluxIterator) IsDone() bool {
	return fi.index >= len(fi.transitions)
}
