// Package propensity estimates a base probability of interest for every customer twin.
//
// Backends are interchangeable: the scoring pipeline depends only on the returned
// probabilities. Every backend fits in-sample on a constructed label and is
// deterministic for a fixed seed.
package propensity

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
)

// Canonical backend names.
const (
	ModelLogistic     = "logistic"
	ModelRandomForest = "random_forest"
	ModelBoosted      = "boosted"
	ModelMLP          = "mlp"
)

// DefaultModel is used when no backend is chosen.
const DefaultModel = ModelRandomForest

// FeatureNames lists the model inputs in column order.
var FeatureNames = []string{
	"financial_performance",
	"digital_openness",
	"promotion_sensitivity",
	"innovation_openness",
	"avg_amount",
	"tx_count",
	"max_amount",
	"std_amount",
	"weekday_ratio",
	"is_individual",
	"is_sme",
}

// Model fits on a standardised feature matrix and binary labels and returns one
// probability in [0,1] per row.
type Model interface {
	Name() string
	FitPredict(x *mat.Dense, y []float64) ([]float64, error)
}

// Options selects the backend and label policy.
type Options struct {
	Model string
	Label string
	Seed  uint64
}

var aliases = map[string]string{
	"logistic":           ModelLogistic,
	"logisticregression": ModelLogistic,
	"lr":                 ModelLogistic,
	"randomforest":       ModelRandomForest,
	"rf":                 ModelRandomForest,
	"forest":             ModelRandomForest,
	"boosted":            ModelBoosted,
	"xgboost":            ModelBoosted,
	"gbt":                ModelBoosted,
	"gradientboosting":   ModelBoosted,
	"mlp":                ModelMLP,
	"deeplearningmlp":    ModelMLP,
	"deeplearningtabnet": ModelMLP,
	"neuralnetwork":      ModelMLP,
}

// Models lists the canonical backend names.
func Models() []string {
	return []string{ModelLogistic, ModelRandomForest, ModelBoosted, ModelMLP}
}

// Resolve maps a user-supplied backend choice to its canonical name.
func Resolve(choice string) (string, error) {
	if strings.TrimSpace(choice) == "" {
		return DefaultModel, nil
	}
	name, ok := aliases[squash(choice)]
	if !ok {
		return "", fmt.Errorf("%w: %q (choose one of %s)", common.ErrUnknownModel, choice, strings.Join(Models(), ", "))
	}
	return name, nil
}

// New creates the backend named by choice.
func New(choice string, seed uint64) (Model, error) {
	name, err := Resolve(choice)
	if err != nil {
		return nil, err
	}

	switch name {
	case ModelLogistic:
		return newLogistic(), nil
	case ModelRandomForest:
		return newForest(seed), nil
	case ModelBoosted:
		return newBoosted(), nil
	default:
		return newMLP(seed), nil
	}
}

// FitPredict returns one base probability per record.
func FitPredict(records []model.AggregatedRecord, opts Options) ([]float64, error) {
	m, err := New(opts.Model, opts.Seed)
	if err != nil {
		return nil, err
	}
	policy, err := NewLabelPolicy(opts.Label)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []float64{}, nil
	}

	y := policy.Labels(records)
	if prior, degenerate := singleClass(y); degenerate {
		return constant(len(records), prior), nil
	}

	x := Standardize(Matrix(records))
	probs, err := m.FitPredict(x, y)
	if err != nil {
		return nil, fmt.Errorf("%s model failed: %w", m.Name(), err)
	}

	for i, p := range probs {
		probs[i] = clamp01(p)
	}
	return probs, nil
}

// Matrix extracts the FeatureNames columns from records, one row per record.
func Matrix(records []model.AggregatedRecord) *mat.Dense {
	if len(records) == 0 {
		return &mat.Dense{}
	}
	x := mat.NewDense(len(records), len(FeatureNames), nil)
	for i, r := range records {
		x.SetRow(i, []float64{
			float64(r.FinancialPerformance),
			r.DigitalOpenness,
			r.PromotionSensitivity,
			r.InnovationOpenness,
			r.AvgAmount,
			float64(r.TxCount),
			r.MaxAmount,
			r.StdAmount,
			r.WeekdayRatio,
			indicator(r.Segment == model.SegmentIndividual),
			indicator(r.Segment == model.SegmentSME),
		})
	}
	return x
}

// Standardize z-scores every column of x in place using the population
// standard deviation. Constant columns become zero.
func Standardize(x *mat.Dense) *mat.Dense {
	if x.IsEmpty() {
		return x
	}
	rows, cols := x.Dims()
	col := make([]float64, rows)
	for j := range cols {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			clear(col)
		} else {
			floats.AddConst(-mean, col)
			floats.Scale(1/std, col)
		}
		x.SetCol(j, col)
	}
	return x
}

// rowViews returns slices backed by the rows of x.
func rowViews(x *mat.Dense) [][]float64 {
	rows, _ := x.Dims()
	views := make([][]float64, rows)
	for i := range views {
		views[i] = x.RawRowView(i)
	}
	return views
}

func singleClass(y []float64) (float64, bool) {
	positives := floats.Sum(y)
	prior := positives / float64(len(y))
	return prior, positives == 0 || positives == float64(len(y))
}

func prior(y []float64) float64 {
	p, _ := singleClass(y)
	return p
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func logit(p float64) float64 {
	const eps = 1e-6
	p = math.Min(math.Max(p, eps), 1-eps)
	return math.Log(p / (1 - p))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// squash lowercases s and drops everything but letters and digits.
func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
