package propensity

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// logistic is an L2-regularised logistic regression fit by full-batch gradient descent.
type logistic struct {
	epochs       int
	learningRate float64
	l2           float64
}

func newLogistic() *logistic {
	return &logistic{epochs: 300, learningRate: 0.5, l2: 1e-3}
}

func (m *logistic) Name() string { return ModelLogistic }

func (m *logistic) FitPredict(x *mat.Dense, y []float64) ([]float64, error) {
	n, d := x.Dims()
	weights := mat.NewVecDense(d, nil)
	bias := logit(prior(y))

	probs := make([]float64, n)
	residual := mat.NewVecDense(n, nil)
	var grad mat.VecDense

	predict := func() {
		var z mat.VecDense
		z.MulVec(x, weights)
		for i := range probs {
			probs[i] = sigmoid(z.AtVec(i) + bias)
		}
	}

	for range m.epochs {
		predict()
		for i, p := range probs {
			residual.SetVec(i, p-y[i])
		}
		grad.MulVec(x.T(), residual)

		weights.ScaleVec(1-m.learningRate*m.l2, weights)
		weights.AddScaledVec(weights, -m.learningRate/float64(n), &grad)
		bias -= m.learningRate * floats.Sum(residual.RawVector().Data) / float64(n)
	}

	predict()
	return probs, nil
}
