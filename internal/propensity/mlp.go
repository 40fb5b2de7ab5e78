package propensity

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// mlp is a single hidden layer tanh network with a sigmoid output, trained by
// full-batch gradient descent on cross-entropy.
type mlp struct {
	seed         uint64
	hidden       int
	epochs       int
	learningRate float64
}

func newMLP(seed uint64) *mlp {
	return &mlp{seed: seed, hidden: 8, epochs: 300, learningRate: 0.3}
}

func (m *mlp) Name() string { return ModelMLP }

func (m *mlp) FitPredict(x *mat.Dense, y []float64) ([]float64, error) {
	n, d := x.Dims()
	rng := rand.New(rand.NewPCG(m.seed, m.seed+1))

	scale := math.Sqrt(1 / float64(d))
	w1 := mat.NewDense(m.hidden, d, nil)
	for h := range m.hidden {
		for j := range d {
			w1.Set(h, j, rng.NormFloat64()*scale)
		}
	}
	b1 := make([]float64, m.hidden)
	w2 := mat.NewVecDense(m.hidden, nil)
	for h := range m.hidden {
		w2.SetVec(h, rng.NormFloat64()*math.Sqrt(1/float64(m.hidden)))
	}
	b2 := logit(prior(y))

	act := mat.NewDense(n, m.hidden, nil)
	back := mat.NewDense(n, m.hidden, nil)
	delta := mat.NewVecDense(n, nil)
	hiddenCol := make([]float64, n)
	probs := make([]float64, n)
	var out, gw2 mat.VecDense
	var gw1 mat.Dense

	forward := func() {
		act.Mul(x, w1.T())
		act.Apply(func(_, h int, v float64) float64 { return math.Tanh(v + b1[h]) }, act)
		out.MulVec(act, w2)
		for i := range probs {
			probs[i] = sigmoid(out.AtVec(i) + b2)
		}
	}

	for range m.epochs {
		forward()
		for i, p := range probs {
			delta.SetVec(i, p-y[i])
		}

		gw2.MulVec(act.T(), delta)
		back.Apply(func(i, h int, a float64) float64 {
			return delta.AtVec(i) * w2.AtVec(h) * (1 - a*a)
		}, act)
		gw1.Mul(back.T(), x)

		step := m.learningRate / float64(n)
		for h := range m.hidden {
			b1[h] -= step * floats.Sum(mat.Col(hiddenCol, h, back))
		}
		w2.AddScaledVec(w2, -step, &gw2)
		gw1.Scale(step, &gw1)
		w1.Sub(w1, &gw1)
		b2 -= step * floats.Sum(delta.RawVector().Data)
	}

	forward()
	return probs, nil
}
