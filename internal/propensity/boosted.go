package propensity

import "gonum.org/v1/gonum/mat"

// boosted is gradient-boosted trees on logistic loss with Newton leaf values.
type boosted struct {
	rounds       int
	learningRate float64
	cfg          treeConfig
}

func newBoosted() *boosted {
	return &boosted{
		rounds:       60,
		learningRate: 0.1,
		cfg:          treeConfig{maxDepth: 3, minLeaf: 5},
	}
}

func (m *boosted) Name() string { return ModelBoosted }

func (m *boosted) FitPredict(x *mat.Dense, y []float64) ([]float64, error) {
	n, _ := x.Dims()
	rows := rowViews(x)
	margin := constant(n, logit(prior(y)))
	probs := make([]float64, n)
	residual := make([]float64, n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	for range m.rounds {
		for i := range margin {
			probs[i] = sigmoid(margin[i])
			residual[i] = y[i] - probs[i]
		}

		hessian := make([]float64, n)
		for i, p := range probs {
			hessian[i] = p * (1 - p)
		}
		leaf := func(rows []int) float64 {
			var g, h float64
			for _, i := range rows {
				g += residual[i]
				h += hessian[i]
			}
			return g / (h + 1e-6)
		}

		tree := growTree(rows, residual, idx, m.cfg, nil, leaf)
		for i, row := range rows {
			margin[i] += m.learningRate * tree.predict(row)
		}
	}

	for i := range margin {
		probs[i] = sigmoid(margin[i])
	}
	return probs, nil
}
