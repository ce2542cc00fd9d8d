package gpopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemap(t *testing.T) {
	c := Constraints{
		Bounded: []Bounded{
			{Indices: []int{0, 2, 5}, Lower: -1, Upper: 1},
			{Indices: []int{4}, Lower: 0, Upper: 3},
			{},
		},
		Positive: []int{6, 7},
	}
	before := c.Clone()

	// row 1 of a 3x2 latent block is dropped
	got, err := c.Remap([]int{0, 1, 4, 5, 6, 7})
	require.NoError(t, err)

	want := Constraints{
		Bounded: []Bounded{
			{Indices: []int{0, 3}, Lower: -1, Upper: 1},
			{Indices: []int{2}, Lower: 0, Upper: 3},
			{Indices: []int{}},
		},
		Positive: []int{4, 5},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, before, c, "Remap modified its receiver")
}

func TestRemapIdentity(t *testing.T) {
	c := Constraints{
		Bounded:  []Bounded{{Indices: []int{1, 3}, Lower: 0, Upper: 1}},
		Positive: []int{0, 2},
	}
	got, err := c.Remap([]int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestRemapErrors(t *testing.T) {
	subset := []int{0, 1, 4, 5, 6, 7}

	c := Constraints{Bounded: []Bounded{{Indices: []int{2, 3}, Lower: 0, Upper: 1}}}
	_, err := c.Remap(subset)
	assert.ErrorIs(t, err, ErrNotImplemented)

	c = Constraints{Positive: []int{6, 3}}
	_, err = c.Remap(subset)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestClone(t *testing.T) {
	c := Constraints{
		Bounded:  []Bounded{{Indices: []int{1, 2}, Lower: 0, Upper: 1}},
		Positive: []int{3},
	}
	dup := c.Clone()
	require.Equal(t, c, dup)

	dup.Bounded[0].Indices[0] = 9
	dup.Positive[0] = 9
	assert.Equal(t, 1, c.Bounded[0].Indices[0])
	assert.Equal(t, 3, c.Positive[0])

	assert.Equal(t, Constraints{}, Constraints{}.Clone())
}
