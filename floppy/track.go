package floppy

import "sort"

// Track holds the flux transitions of one side of one cylinder as
// offsets from the index, in ticks. The pattern repeats every revolution.
type Track struct {
	transitions []uint64
}

// Transitions returns the sorted offsets.
func (t *Track) Transitions() []uint64 {
	return t.transitions
}

// Set replaces the whole track. Offsets at or past the revolution are wrapped.
func (t *Track) Set(transitions []uint64, revolution uint64) {
	t.transitions = t.transitions[:0]
	for _, tr := range transitions {
		t.transitions = append(t.transitions, tr%revolution)
	}
	sort.Slice(t.transitions, func(i, j int) bool { return t.transitions[i] < t.transitions[j] })
}

// next returns the first offset strictly after pos within the same
// revolution, or false.
func (t *Track) next(pos uint64) (uint64, bool) {
	i := sort.Search(len(t.transitions), func(i int) bool { return t.transitions[i] > pos })
	if i < len(t.transitions) {
		return t.transitions[i], true
	}
	return 0, false
}

// replace drops offsets in [start, end) and merges the new ones in.
func (t *Track) replace(start, end uint64, transitions []uint64) {
	kept := t.transitions[:0]
	for _, tr := range t.transitions {
		if tr < start || tr >= end {
			kept = append(kept, tr)
		}
	}
	kept = append(kept, transitions...)
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })
	t.transitions = kept
}
