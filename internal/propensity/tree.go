package propensity

import (
	"math/rand/v2"
	"slices"
)

// treeConfig bounds the growth of a regression tree.
type treeConfig struct {
	maxDepth    int
	minLeaf     int
	maxFeatures int // 0 considers every feature at each split
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      int
	right     int
}

// regressionTree is a CART tree grown on squared error.
type regressionTree struct {
	nodes []treeNode
}

// leafFunc computes the value stored in a leaf from its sample indices.
type leafFunc func(idx []int) float64

type treeBuilder struct {
	x      [][]float64
	target []float64
	cfg    treeConfig
	rng    *rand.Rand
	leaf   leafFunc
	tree   *regressionTree
}

// growTree fits a tree on the rows named by idx. rng is only used for feature
// subsampling and may be nil when cfg.maxFeatures is 0.
func growTree(x [][]float64, target []float64, idx []int, cfg treeConfig, rng *rand.Rand, leaf leafFunc) *regressionTree {
	b := &treeBuilder{x: x, target: target, cfg: cfg, rng: rng, leaf: leaf, tree: &regressionTree{}}
	b.grow(slices.Clone(idx), 0)
	return b.tree
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	pos := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, treeNode{})

	feature, threshold, ok := b.bestSplit(idx, depth)
	if !ok {
		b.tree.nodes[pos] = treeNode{leaf: true, value: b.leaf(idx)}
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.nodes[pos] = treeNode{feature: feature, threshold: threshold, left: l, right: r}
	return pos
}

func (b *treeBuilder) bestSplit(idx []int, depth int) (int, float64, bool) {
	if depth >= b.cfg.maxDepth || len(idx) < 2*b.cfg.minLeaf {
		return 0, 0, false
	}

	var total, totalSq float64
	for _, i := range idx {
		total += b.target[i]
		totalSq += b.target[i] * b.target[i]
	}
	n := float64(len(idx))
	parent := totalSq - total*total/n
	if parent <= 1e-12 {
		return 0, 0, false
	}

	bestGain, bestFeature, bestThreshold := 1e-12, -1, 0.0
	sorted := slices.Clone(idx)

	for _, f := range b.candidateFeatures() {
		slices.SortStableFunc(sorted, func(a, c int) int {
			switch {
			case b.x[a][f] < b.x[c][f]:
				return -1
			case b.x[a][f] > b.x[c][f]:
				return 1
			default:
				return 0
			}
		})

		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			t := b.target[sorted[k]]
			leftSum += t
			leftSq += t * t

			nl := float64(k + 1)
			nr := n - nl
			if k+1 < b.cfg.minLeaf || len(sorted)-k-1 < b.cfg.minLeaf {
				continue
			}
			lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}

			rightSum, rightSq := total-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if gain := parent - sse; gain > bestGain {
				bestGain, bestFeature, bestThreshold = gain, f, (lo+hi)/2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *treeBuilder) candidateFeatures() []int {
	d := len(b.x[0])
	if b.cfg.maxFeatures <= 0 || b.cfg.maxFeatures >= d || b.rng == nil {
		all := make([]int, d)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := b.rng.Perm(d)[:b.cfg.maxFeatures]
	slices.Sort(picked)
	return picked
}

func (t *regressionTree) predict(row []float64) float64 {
	pos := 0
	for {
		node := t.nodes[pos]
		if node.leaf {
			return node.value
		}
		if row[node.feature] <= node.threshold {
			pos = node.left
		} else {
			pos = node.right
		}
	}
}

func meanLeaf(target []float64) leafFunc {
	return func(idx []int) float64 {
		if len(idx) == 0 {
			return 0
		}
		var s float64
		for _, i := range idx {
			s += target[i]
		}
		return s / float64(len(idx))
	}
}
