package simulation

import (
	"fmt"

	"github.com/Veraticus/digital-twin/internal/population"
	"github.com/Veraticus/digital-twin/internal/propensity"
)

// Default generation parameters.
const (
	DefaultIndividuals = 650
	DefaultSMEs        = 220
	DefaultCorporates  = 130
	DefaultSeed        = 42
	DefaultMonths      = 6
	DefaultMaxSample   = 15000

	// MaxSegmentCustomers caps each segment count accepted by Normalize.
	MaxSegmentCustomers = 100_000
)

// Params controls population generation and the propensity model.
type Params struct {
	Individuals int    `json:"individuals" mapstructure:"individuals"`
	SMEs        int    `json:"smes" mapstructure:"smes"`
	Corporates  int    `json:"corporates" mapstructure:"corporates"`
	Seed        uint64 `json:"seed" mapstructure:"seed"`
	SampleSeed  uint64 `json:"sample_seed" mapstructure:"sample_seed"`
	Months      int    `json:"months" mapstructure:"months"`
	MaxSample   int    `json:"max_sample" mapstructure:"max_sample"`
	Model       string `json:"model" mapstructure:"model"`
	Label       string `json:"label" mapstructure:"label"`
}

// DefaultParams returns the parameters of the reference demo population.
func DefaultParams() Params {
	return Params{
		Individuals: DefaultIndividuals,
		SMEs:        DefaultSMEs,
		Corporates:  DefaultCorporates,
		Seed:        DefaultSeed,
		SampleSeed:  population.DefaultSampleSeed,
		Months:      DefaultMonths,
		MaxSample:   DefaultMaxSample,
		Model:       propensity.DefaultModel,
		Label:       propensity.LabelAffinity,
	}
}

// Normalize replaces invalid values with safe defaults and reports each change.
// Unknown model and label names are left for the propensity package to reject.
func (p Params) Normalize() (Params, []string) {
	var notes []string

	clampCount := func(name string, v *int) {
		switch {
		case *v < 0:
			notes = append(notes, fmt.Sprintf("%s count %d is negative, using 0", name, *v))
			*v = 0
		case *v > MaxSegmentCustomers:
			notes = append(notes, fmt.Sprintf("%s count %d exceeds %d, using %d",
				name, *v, MaxSegmentCustomers, MaxSegmentCustomers))
			*v = MaxSegmentCustomers
		}
	}
	clampCount("individual", &p.Individuals)
	clampCount("SME", &p.SMEs)
	clampCount("corporate", &p.Corporates)

	if p.Months < 0 {
		notes = append(notes, fmt.Sprintf("months %d is negative, using %d", p.Months, DefaultMonths))
		p.Months = DefaultMonths
	}
	if p.Months > population.MaxMonths {
		notes = append(notes, fmt.Sprintf("months %d exceeds %d, using %d", p.Months, population.MaxMonths, population.MaxMonths))
		p.Months = population.MaxMonths
	}
	if p.MaxSample < 0 {
		notes = append(notes, fmt.Sprintf("max sample %d is negative, sampling disabled", p.MaxSample))
		p.MaxSample = 0
	}
	if p.Model == "" {
		p.Model = propensity.DefaultModel
	} else if name, err := propensity.Resolve(p.Model); err == nil {
		p.Model = name
	}
	if p.Label == "" {
		p.Label = propensity.LabelAffinity
	}

	return p, notes
}

// Customers returns the total number of customers requested.
func (p Params) Customers() int {
	return p.Individuals + p.SMEs + p.Corporates
}

// cacheKey covers the parameters that shape the aggregated population.
func (p Params) cacheKey() []any {
	return []any{p.Individuals, p.SMEs, p.Corporates, p.Seed, p.SampleSeed, p.Months, p.MaxSample}
}
