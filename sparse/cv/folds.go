// Package cv runs k-fold cross-validation over a regularization path. The
// full-data path is solved first; its realized grid is then solved on every
// training fold so held-out losses line up point by point.
package cv

import (
	"math/rand/v2"
	"slices"

	"github.com/YuminosukeSato/l0learn/pkg/errors"
)

// FoldAssignment is a deterministic partition of 0..n-1 into k disjoint,
// sorted groups.
type FoldAssignment struct {
	n     int
	folds [][]int
}

// NewFoldAssignment shuffles the sample indices with a PCG source seeded by
// seed and cuts them into nfolds contiguous groups whose sizes differ by at
// most one.
func NewFoldAssignment(n, nfolds int, seed uint64) (*FoldAssignment, error) {
	if nfolds < 2 {
		return nil, errors.NewConfigError("nfolds", "must be at least 2", nfolds)
	}
	if nfolds > n {
		return nil, errors.NewConfigError("nfolds", "must not exceed the number of samples", nfolds)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	fa := &FoldAssignment{n: n, folds: make([][]int, nfolds)}
	size, remainder := n/nfolds, n%nfolds
	start := 0
	for k := 0; k < nfolds; k++ {
		m := size
		if k < remainder {
			m++
		}
		fold := slices.Clone(indices[start : start+m])
		slices.Sort(fold)
		fa.folds[k] = fold
		start += m
	}
	return fa, nil
}

func (fa *FoldAssignment) N() int      { return fa.n }
func (fa *FoldAssignment) NFolds() int { return len(fa.folds) }

// Test returns the held-out indices of fold k.
func (fa *FoldAssignment) Test(k int) []int {
	return slices.Clone(fa.folds[k])
}

// Train returns every index outside fold k, sorted.
func (fa *FoldAssignment) Train(k int) []int {
	held := make([]bool, fa.n)
	for _, i := range fa.folds[k] {
		held[i] = true
	}
	train := make([]int, 0, fa.n-len(fa.folds[k]))
	for i := 0; i < fa.n; i++ {
		if !held[i] {
			train = append(train, i)
		}
	}
	return train
}
