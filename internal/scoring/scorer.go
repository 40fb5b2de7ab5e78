// Package scoring adjusts base probabilities by how well a campaign fits each
// customer and maps the result to a twin response.
package scoring

import (
	"slices"

	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/model"
)

// Rule multipliers.
const (
	SegmentMismatch        = 0.8
	SectorMismatch         = 0.85
	CategoryMismatch       = 0.85
	ChannelMismatch        = 0.7
	CashbackBoost          = 1.12
	DigitalConvenienceLift = 1.10
	InnovationBoost        = 1.08
	HighRiskPenalty        = 0.85
	LongTermPenalty        = 0.92
	NewLaunchBoost         = 1.06
	BroadSpenderBoost      = 1.04
)

// Rule thresholds.
const (
	promotionSensitivityMin = 0.5
	digitalOpennessMin      = 0.7
	innovationOpennessMin   = 0.7
	longTermMonths          = 36
	newLaunchYear           = 2024
	broadSpenderCategories  = 8
)

// Scorer computes product effect scores for one campaign.
type Scorer struct {
	filter   campaign.Filter
	channels []string
}

// NewScorer prepares a scorer for f. The filter is copied.
func NewScorer(f campaign.Filter) *Scorer {
	f = f.Clone()
	return &Scorer{filter: f, channels: f.Channels()}
}

// Filter returns a copy of the campaign the scorer was built for.
func (s *Scorer) Filter() campaign.Filter {
	return s.filter.Clone()
}

// Score returns the product effect multiplier for rec. Every rule reads the
// record and the filter only, never the running score, so the result is always
// a product of positive factors.
func (s *Scorer) Score(rec model.AggregatedRecord) float64 {
	f := s.filter
	score := 1.0

	if !f.HasSegment(rec.Segment) {
		score *= SegmentMismatch
	}
	if rec.IsBusiness() && !f.HasSector(rec.Sector) {
		score *= SectorMismatch
	}
	if rec.Segment == model.SegmentIndividual && !f.HasCategory(rec.Category) {
		score *= CategoryMismatch
	}
	if !overlaps(rec.Channels(), s.channels) {
		score *= ChannelMismatch
	}
	if f.HasPromotion(model.PromotionCashback) && rec.PromotionSensitivity > promotionSensitivityMin {
		score *= CashbackBoost
	}
	if f.HasPromotion(model.PromotionDigitalConvenience) && rec.DigitalOpenness > digitalOpennessMin {
		score *= DigitalConvenienceLift
	}
	if f.InnovationLevel == model.LevelHigh && rec.InnovationOpenness > innovationOpennessMin {
		score *= InnovationBoost
	}
	if f.RiskLevel == model.LevelHigh {
		score *= HighRiskPenalty
	}
	if f.Term > longTermMonths {
		score *= LongTermPenalty
	}
	if f.LaunchYear == newLaunchYear {
		score *= NewLaunchBoost
	}
	if rec.TxCategoryCount > broadSpenderCategories {
		score *= BroadSpenderBoost
	}

	return score
}

// Apply scores rec, multiplies base by the score and classifies the result.
// The adjusted probability is not clamped and may exceed 1.
func (s *Scorer) Apply(rec model.AggregatedRecord, base float64) model.ScoredRecord {
	score := s.Score(rec)
	p := base * score
	return model.ScoredRecord{
		AggregatedRecord:           rec,
		ProductScore:               score,
		BaseProbability:            base,
		ProductInterestProbability: p,
		TwinResponse:               Classify(p),
	}
}

// Score is a convenience for scoring a single record against f.
func Score(rec model.AggregatedRecord, f campaign.Filter) float64 {
	return NewScorer(f).Score(rec)
}

func overlaps(a, b []string) bool {
	for _, v := range a {
		if slices.Contains(b, v) {
			return true
		}
	}
	return false
}
