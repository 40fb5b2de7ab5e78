package scoring

import "github.com/Veraticus/digital-twin/internal/model"

// Response thresholds. A probability must be strictly above a threshold to reach it.
const (
	ApplyThreshold   = 0.78
	HighThreshold    = 0.55
	MediumThreshold  = 0.35
	NeutralThreshold = 0.18
)

// Classify maps an adjusted probability to a twin response.
func Classify(p float64) model.Response {
	switch {
	case p > ApplyThreshold:
		return model.ResponseApply
	case p > HighThreshold:
		return model.ResponseHigh
	case p > MediumThreshold:
		return model.ResponseMedium
	case p > NeutralThreshold:
		return model.ResponseNeutral
	default:
		return model.ResponseNegative
	}
}
