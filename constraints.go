package gpopt

import "fmt"

// Bounded is a group of parameter positions constrained to lie in
// [Lower, Upper].
type Bounded struct {
	Indices []int
	Lower   float64
	Upper   float64
}

// Constraints is a model's constraint bookkeeping: positions into the
// current parameter vector that are bounded or must stay positive.
type Constraints struct {
	Bounded  []Bounded
	Positive []int
}

// Clone returns a deep copy of c.
func (c Constraints) Clone() Constraints {
	var dup Constraints
	if c.Bounded != nil {
		dup.Bounded = make([]Bounded, len(c.Bounded))
		for i, b := range c.Bounded {
			dup.Bounded[i] = Bounded{Indices: cloneInts(b.Indices), Lower: b.Lower, Upper: b.Upper}
		}
	}
	dup.Positive = cloneInts(c.Positive)
	return dup
}

// Remap rewrites c for a parameter vector reduced to the positions in
// subset (as returned by SubsetIndices).  Bounded indices that survive are
// moved to their new position and dropped ones are removed from their group.
// If every index of a bounded group is dropped, ErrNotImplemented is
// returned.  Every positive index must survive; ErrIndex is returned
// otherwise.  c itself is not modified.
func (c Constraints) Remap(subset []int) (Constraints, error) {
	newpos := make(map[int]int, len(subset))
	for k, i := range subset {
		newpos[i] = k
	}

	out := c.Clone()
	for g, b := range c.Bounded {
		kept := make([]int, 0, len(b.Indices))
		for _, i := range b.Indices {
			if k, ok := newpos[i]; ok {
				kept = append(kept, k)
			}
		}
		if len(kept) == 0 && len(b.Indices) > 0 {
			return Constraints{}, fmt.Errorf("gpopt: bounded group %v emptied by row subset: %w", g, ErrNotImplemented)
		}
		out.Bounded[g].Indices = kept
	}

	for p, i := range c.Positive {
		k, ok := newpos[i]
		if !ok {
			return Constraints{}, fmt.Errorf("gpopt: positive index %v dropped by row subset: %w", i, ErrIndex)
		}
		out.Positive[p] = k
	}
	return out, nil
}

func cloneInts(s []int) []int {
	if s == nil {
		return nil
	}
	return append(make([]int, 0, len(s)), s...)
}
