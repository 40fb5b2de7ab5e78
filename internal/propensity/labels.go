package propensity

import (
	"fmt"
	"slices"

	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
)

// Label policy names.
const (
	LabelAffinity     = "affinity"
	LabelPastInterest = "past_interest"
)

// LabelPolicy constructs the supervised target the models fit on.
type LabelPolicy interface {
	Name() string
	Labels(records []model.AggregatedRecord) []float64
}

// NewLabelPolicy returns the policy named name; empty selects affinity.
func NewLabelPolicy(name string) (LabelPolicy, error) {
	switch squash(name) {
	case "", "affinity":
		return affinityLabel{}, nil
	case "pastinterest", "pastproductinterest":
		return pastInterestLabel{}, nil
	default:
		return nil, fmt.Errorf("%w: label policy %q", common.ErrInvalidInput, name)
	}
}

// affinityLabel marks customers whose latent trait affinity is above the population median.
type affinityLabel struct{}

func (affinityLabel) Name() string { return LabelAffinity }

func (affinityLabel) Labels(records []model.AggregatedRecord) []float64 {
	scores := make([]float64, len(records))
	for i, r := range records {
		scores[i] = Affinity(r)
	}

	median := median(scores)
	labels := make([]float64, len(records))
	for i, s := range scores {
		if s > median {
			labels[i] = 1
		}
	}
	return labels
}

// Affinity combines the customer traits into a single score in [0,1].
func Affinity(r model.AggregatedRecord) float64 {
	return 0.35*r.DigitalOpenness +
		0.25*r.PromotionSensitivity +
		0.2*r.InnovationOpenness +
		0.2*float64(r.FinancialPerformance-1)/9
}

// pastInterestLabel uses the past product interest indicator.
type pastInterestLabel struct{}

func (pastInterestLabel) Name() string { return LabelPastInterest }

func (pastInterestLabel) Labels(records []model.AggregatedRecord) []float64 {
	labels := make([]float64, len(records))
	for i, r := range records {
		labels[i] = float64(r.PastProductInterest)
	}
	return labels
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
