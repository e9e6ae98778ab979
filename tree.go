package facemark

import (
	"math/rand"

	"github.com/pkg/errors"
)

// SplitTest is the binary decision stored at an interior tree node:
// route a sample left when the intensity difference of the two pool
// coordinates exceeds the threshold.
type SplitTest struct {
	Idx1      int
	Idx2      int
	Threshold float64
}

// treeNode is one slot of the flat tree arena. A non-nil mean marks a
// leaf carrying the shape-space displacement assigned to every sample
// routed there.
type treeNode struct {
	split SplitTest
	mean  []float64
}

// Tree is a fixed-depth binary regression tree stored as a flat array
// of nodes in breadth-first order: the children of node i live at
// 2i+1 and 2i+2. The arena layout avoids per-node allocations and maps
// directly onto the serialized model format.
type Tree struct {
	depth int
	nodes []treeNode
}

// treeTraining is the per-stage scratch shared by all trees of one
// cascade stage: the residual targets and the extracted intensity rows
// of every in-scope sample. Rows are index-aligned; the order slice is
// partitioned in place while a tree is grown, the tables themselves
// are never mutated.
type treeTraining struct {
	residuals   [][]float64
	intensities [][]float64
	pool        *FeaturePool
	params      AlgorithmParameters
	rnd         *rand.Rand
	order       []int
}

// fitTree greedily grows one regression tree over the samples listed in
// the training context. An empty sample scope is a caller error.
func fitTree(tt *treeTraining) (*Tree, error) {
	if len(tt.order) == 0 {
		return nil, errors.New("cannot fit a regression tree on an empty sample set")
	}

	t := &Tree{
		depth: tt.params.MaxTreeDepth,
		nodes: make([]treeNode, (1<<uint(tt.params.MaxTreeDepth+1))-1),
	}
	t.fitNode(tt, 0, 0, 0, len(tt.order))

	return t, nil
}

// fitNode grows the node at arena position idx from the samples
// tt.order[lo:hi], recursing until the depth bound or a degenerate
// population forces a leaf.
func (t *Tree) fitNode(tt *treeTraining, idx, depth, lo, hi int) {
	n := hi - lo
	dim := len(tt.residuals[tt.order[lo]])

	total := make([]float64, dim)
	for _, s := range tt.order[lo:hi] {
		addVec(total, tt.residuals[s])
	}

	if depth == tt.params.MaxTreeDepth || n < tt.params.MinSplitSamples {
		t.nodes[idx].mean = meanVec(total, n)
		return
	}

	// The unsplit score; a candidate has to strictly beat it,
	// otherwise the residual variance would not decrease.
	bestScore := dotVec(total, total) / float64(n)
	var bestSplit SplitTest
	found := false

	sumLeft := make([]float64, dim)
	for c := 0; c < tt.params.NumRandomSplitTestsPerNode; c++ {
		i1, i2 := tt.pool.SamplePair(tt.rnd)

		// Draw the threshold from the observed difference
		// distribution at this node.
		probe := tt.order[lo+tt.rnd.Intn(n)]
		threshold := tt.intensities[probe][i1] - tt.intensities[probe][i2]

		countLeft := 0
		zeroVec(sumLeft)
		for _, s := range tt.order[lo:hi] {
			if tt.intensities[s][i1]-tt.intensities[s][i2] > threshold {
				addVec(sumLeft, tt.residuals[s])
				countLeft++
			}
		}
		if countLeft == 0 || countLeft == n {
			continue
		}

		countRight := n - countLeft
		score := dotVec(sumLeft, sumLeft)/float64(countLeft) +
			sumRightScore(total, sumLeft, countRight)

		if score > bestScore {
			bestScore = score
			bestSplit = SplitTest{Idx1: i1, Idx2: i2, Threshold: threshold}
			found = true
		}
	}

	// No candidate reduces the variance (e.g. all residuals are
	// identical): terminate here instead of recursing further.
	if !found {
		t.nodes[idx].mean = meanVec(total, n)
		return
	}

	mid := t.partition(tt, bestSplit, lo, hi)
	t.nodes[idx].split = bestSplit

	t.fitNode(tt, 2*idx+1, depth+1, lo, mid)
	t.fitNode(tt, 2*idx+2, depth+1, mid, hi)
}

// partition reorders tt.order[lo:hi] so samples passing the split test
// come first and returns the boundary index.
func (t *Tree) partition(tt *treeTraining, split SplitTest, lo, hi int) int {
	mid := lo
	for i := lo; i < hi; i++ {
		s := tt.order[i]
		if tt.intensities[s][split.Idx1]-tt.intensities[s][split.Idx2] > split.Threshold {
			tt.order[i], tt.order[mid] = tt.order[mid], tt.order[i]
			mid++
		}
	}
	return mid
}

// Predict routes one intensity row from the root to a leaf and returns
// the leaf displacement. The returned slice is owned by the tree and
// must not be mutated.
func (t *Tree) Predict(intensities []float64) []float64 {
	i := 0
	for t.nodes[i].mean == nil {
		s := t.nodes[i].split
		if intensities[s.Idx1]-intensities[s.Idx2] > s.Threshold {
			i = 2*i + 1
		} else {
			i = 2*i + 2
		}
	}
	return t.nodes[i].mean
}

// MaxDepth returns the configured depth bound of the tree.
func (t *Tree) MaxDepth() int {
	return t.depth
}

// scaleLeaves applies the shrinkage factor to every leaf displacement.
// Scaling happens at assembly time so the induction objective itself
// stays unscaled.
func (t *Tree) scaleLeaves(factor float64) {
	for i := range t.nodes {
		for j := range t.nodes[i].mean {
			t.nodes[i].mean[j] *= factor
		}
	}
}

// sumRightScore computes |R|*||meanR||^2 given the node total and the
// left side sum, without materializing the right side vector.
func sumRightScore(total, sumLeft []float64, countRight int) float64 {
	var dot float64
	for i := range total {
		d := total[i] - sumLeft[i]
		dot += d * d
	}
	return dot / float64(countRight)
}

func addVec(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func zeroVec(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

func dotVec(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func meanVec(total []float64, n int) []float64 {
	mean := make([]float64, len(total))
	if n == 0 {
		return mean
	}
	for i := range total {
		mean[i] = total[i] / float64(n)
	}
	return mean
}
