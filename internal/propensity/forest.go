package propensity

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// forest averages bootstrapped regression trees fit on the 0/1 label, so every
// prediction is the mean of leaf frequencies.
type forest struct {
	seed  uint64
	trees int
	cfg   treeConfig
}

func newForest(seed uint64) *forest {
	return &forest{
		seed:  seed,
		trees: 40,
		cfg:   treeConfig{maxDepth: 6, minLeaf: 5},
	}
}

func (m *forest) Name() string { return ModelRandomForest }

func (m *forest) FitPredict(x *mat.Dense, y []float64) ([]float64, error) {
	n, d := x.Dims()
	rows := rowViews(x)
	rng := rand.New(rand.NewPCG(m.seed, m.seed^0x9e3779b97f4a7c15))

	cfg := m.cfg
	cfg.maxFeatures = max(1, int(math.Round(math.Sqrt(float64(d)))))

	probs := make([]float64, n)
	bootstrap := make([]int, n)
	for range m.trees {
		for i := range bootstrap {
			bootstrap[i] = rng.IntN(n)
		}
		tree := growTree(rows, y, bootstrap, cfg, rng, meanLeaf(y))
		for i, row := range rows {
			probs[i] += tree.predict(row)
		}
	}

	floats.Scale(1/float64(m.trees), probs)
	return probs, nil
}
