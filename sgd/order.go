package sgd

import (
	"math"

	"github.com/petar/GoLLRB/llrb"
)

// Partition splits features into b groups by striding: group i holds
// features[i], features[i+b], features[i+2b], ...  Group sizes differ by at
// most one.
func Partition(features []int, b int) [][]int {
	if b < 1 {
		panic("sgd: partition into fewer than one group")
	}
	groups := make([][]int, b)
	for i := range groups {
		groups[i] = make([]int, 0, len(features)/b+1)
	}
	for k, f := range features {
		groups[k%b] = append(groups[k%b], f)
	}
	return groups
}

type featureLL struct {
	feature int
	ll      float64
}

// Less orders by log likelihood with NaN below every number; equal
// likelihoods put the higher feature index first so that descending
// traversal yields ascending indices.  No two features compare equal.
func (a featureLL) Less(than llrb.Item) bool {
	b := than.(featureLL)
	anan, bnan := math.IsNaN(a.ll), math.IsNaN(b.ll)
	switch {
	case anan != bnan:
		return anan
	case !anan && a.ll != b.ll:
		return a.ll < b.ll
	}
	return a.feature > b.feature
}

// orderByLL returns feature indices sorted by descending ll[feature].  NaN
// likelihoods go last.
func orderByLL(ll []float64) []int {
	tree := llrb.New()
	for f, v := range ll {
		tree.ReplaceOrInsert(featureLL{feature: f, ll: v})
	}

	order := make([]int, 0, len(ll))
	if tree.Len() == 0 {
		return order
	}
	tree.DescendLessOrEqual(tree.Max(), func(i llrb.Item) bool {
		order = append(order, i.(featureLL).feature)
		return true
	})
	return order
}
