// Package population generates the synthetic customer twins and their transactions.
//
// All draws for customers and transactions come from one seeded stream consumed in a
// fixed order, so a seed and a set of counts always produce the same tables.
package population

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
)

const (
	// DefaultSampleSeed seeds the customer downsampling stream.
	DefaultSampleSeed uint64 = 42

	// MaxMonths bounds the transaction history window.
	MaxMonths = 120

	minMonthlyTransactions = 12
	maxMonthlyTransactions = 36 // exclusive

	minAmount = 100.0
	maxAmount = 20000.0

	declaredCategoryWeight = 0.25
)

var (
	channelWeights = []float64{0.7, 0.18, 0.12}
	weekdayWeights = []float64{0.22, 0.78}
)

// SamplingWarning reports that transactions were generated for a sample of the population.
type SamplingWarning struct {
	Total int
	Kept  int
}

func (w *SamplingWarning) String() string {
	return fmt.Sprintf("transactions generated for %d of %d customers (sampled)", w.Kept, w.Total)
}

// TransactionSet is the output of transaction generation.
type TransactionSet struct {
	Transactions []model.Transaction
	// Warning is set when the population was downsampled. Callers must surface it.
	Warning *SamplingWarning
}

// Option configures a Generator.
type Option func(*Generator)

// WithSampleSeed sets the seed of the downsampling stream.
func WithSampleSeed(seed uint64) Option {
	return func(g *Generator) {
		g.sampleSeed = seed
	}
}

// WithProgress registers a callback invoked after each customer's transactions are drawn.
func WithProgress(fn func(done, total int)) Option {
	return func(g *Generator) {
		g.progress = fn
	}
}

// Generator draws customers and transactions from a single seeded stream.
type Generator struct {
	rng        *rand.Rand
	progress   func(done, total int)
	sampleSeed uint64
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint64, opts ...Option) *Generator {
	g := &Generator{
		rng:        rand.New(rand.NewPCG(seed, seed)),
		sampleSeed: DefaultSampleSeed,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Customers generates the Individual, SME and Corporate blocks in that order.
func (g *Generator) Customers(nIndividual, nSME, nCorporate int) ([]model.Customer, error) {
	if nIndividual < 0 || nSME < 0 || nCorporate < 0 {
		return nil, fmt.Errorf("%w: customer counts must be non-negative (individual=%d, sme=%d, corporate=%d)",
			common.ErrInvalidInput, nIndividual, nSME, nCorporate)
	}
	if nSME > math.MaxInt-nIndividual || nCorporate > math.MaxInt-nIndividual-nSME {
		return nil, fmt.Errorf("%w: customer counts overflow (individual=%d, sme=%d, corporate=%d)",
			common.ErrInvalidInput, nIndividual, nSME, nCorporate)
	}

	customers := make([]model.Customer, 0, nIndividual+nSME+nCorporate)
	customers = append(customers, g.block(model.SegmentIndividual, nIndividual)...)
	customers = append(customers, g.block(model.SegmentSME, nSME)...)
	customers = append(customers, g.block(model.SegmentCorporate, nCorporate)...)
	return customers, nil
}

// block draws one segment column by column: category or sector, financial
// performance, then the three openness traits.
func (g *Generator) block(segment model.Segment, n int) []model.Customer {
	block := make([]model.Customer, n)
	prefix := idPrefix(segment)

	for i := range block {
		block[i] = model.Customer{
			ID:       fmt.Sprintf("%s_%d", prefix, i+1),
			Segment:  segment,
			Sector:   model.None,
			Category: model.CorporateCategory,
		}
	}

	if segment == model.SegmentIndividual {
		for i := range block {
			block[i].Category = model.IndividualCategories[g.rng.IntN(len(model.IndividualCategories))]
		}
	} else {
		for i := range block {
			block[i].Sector = model.Sectors[g.rng.IntN(len(model.Sectors))]
		}
	}
	for i := range block {
		block[i].FinancialPerformance = 1 + g.rng.IntN(10)
	}
	for i := range block {
		block[i].DigitalOpenness = g.rng.Float64()
	}
	for i := range block {
		block[i].PromotionSensitivity = g.rng.Float64()
	}
	for i := range block {
		block[i].InnovationOpenness = g.rng.Float64()
	}

	return block
}

func idPrefix(segment model.Segment) string {
	switch segment {
	case model.SegmentIndividual:
		return "INDIVIDUAL"
	case model.SegmentCorporate:
		return "CORPORATE"
	default:
		return string(segment)
	}
}

// Transactions draws months of transactions for each customer. When there are more
// customers than maxSample, a seeded sample of maxSample customers is used instead and
// the returned set carries a SamplingWarning. maxSample <= 0 disables sampling.
func (g *Generator) Transactions(customers []model.Customer, months, maxSample int) (TransactionSet, error) {
	if months < 0 || months > MaxMonths {
		return TransactionSet{}, fmt.Errorf("%w: months must be between 0 and %d, got %d",
			common.ErrInvalidInput, MaxMonths, months)
	}

	var set TransactionSet
	if maxSample > 0 && len(customers) > maxSample {
		set.Warning = &SamplingWarning{Total: len(customers), Kept: maxSample}
		customers = g.sample(customers, maxSample)
	}

	uniform := uniformWeights(len(model.TransactionCategories))
	set.Transactions = make([]model.Transaction, 0, len(customers)*months*(minMonthlyTransactions+maxMonthlyTransactions)/2)

	for done, c := range customers {
		weights := uniform
		if c.Segment == model.SegmentIndividual {
			weights = biasedWeights(c.Category)
		}

		for month := 1; month <= months; month++ {
			n := minMonthlyTransactions + g.rng.IntN(maxMonthlyTransactions-minMonthlyTransactions)
			for range n {
				category := model.TransactionCategories[g.choose(weights)]
				amount := round2(minAmount + g.rng.Float64()*(maxAmount-minAmount))
				channel := model.TransactionChannels[g.choose(channelWeights)]
				weekday := g.choose(weekdayWeights)

				set.Transactions = append(set.Transactions, model.Transaction{
					CustomerID: c.ID,
					Month:      month,
					Amount:     amount,
					Category:   category,
					Channel:    channel,
					Weekday:    weekday,
				})
			}
		}

		if g.progress != nil {
			g.progress(done+1, len(customers))
		}
	}

	return set, nil
}

// sample picks n customers with an independent stream and keeps them in population order.
func (g *Generator) sample(customers []model.Customer, n int) []model.Customer {
	picker := rand.New(rand.NewPCG(g.sampleSeed, g.sampleSeed))
	indices := picker.Perm(len(customers))[:n]
	slices.Sort(indices)

	kept := make([]model.Customer, n)
	for i, idx := range indices {
		kept[i] = customers[idx]
	}
	return kept
}

// choose draws an index from weights using a single uniform draw.
func (g *Generator) choose(weights []float64) int {
	u := g.rng.Float64()
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if u < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

func uniformWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return weights
}

// biasedWeights puts a quarter of the mass on the declared category and splits the
// rest evenly. An undeclared or unknown category falls back to uniform weights.
func biasedWeights(declared string) []float64 {
	idx := slices.Index(model.TransactionCategories, declared)
	n := len(model.TransactionCategories)
	weights := make([]float64, n)
	for i := range weights {
		if i == idx {
			weights[i] = declaredCategoryWeight
		} else {
			weights[i] = (1 - declaredCategoryWeight) / float64(n-1)
		}
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
