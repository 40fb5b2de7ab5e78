// Package campaign defines the campaign filter that the scorer matches customers against.
package campaign

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
)

// Filter field names, matching the JSON keys.
const (
	FieldSegment         = "segment"
	FieldSector          = "sector"
	FieldCategory        = "category"
	FieldProductType     = "product_type"
	FieldProductCategory = "product_category"
	FieldPromotion       = "promotion"
	FieldChannel         = "channel"
	FieldTerm            = "term"
	FieldInterestType    = "interest_type"
	FieldRiskLevel       = "risk_level"
	FieldInnovationLevel = "innovation_level"
	FieldLaunchYear      = "launch_year"
)

// Defaults applied when a field is missing or invalid.
const (
	DefaultTerm       = 12
	DefaultLaunchYear = 2024
	MinTerm           = 1
	MaxTerm           = 60
)

// Filter describes a campaign. It is a plain value: callers own it and pass it by
// value into every scoring call.
type Filter struct {
	Segment         []string `json:"segment"`
	Sector          []string `json:"sector"`
	Category        []string `json:"category"`
	ProductType     string   `json:"product_type"`
	ProductCategory string   `json:"product_category"`
	Promotion       []string `json:"promotion"`
	Channel         []string `json:"channel"`
	Term            int      `json:"term"`
	InterestType    string   `json:"interest_type"`
	RiskLevel       string   `json:"risk_level"`
	InnovationLevel string   `json:"innovation_level"`
	LaunchYear      int      `json:"launch_year"`
}

// Fields returns the filter field names in display order.
func Fields() []string {
	return []string{
		FieldSegment, FieldSector, FieldCategory, FieldProductType, FieldProductCategory, FieldPromotion,
		FieldChannel, FieldTerm, FieldInterestType, FieldRiskLevel, FieldInnovationLevel, FieldLaunchYear,
	}
}

// Domain returns the allowed values of an enumerated field, or nil for numeric fields.
func Domain(field string) []string {
	switch field {
	case FieldSegment:
		return model.SegmentNames()
	case FieldSector:
		return slices.Clone(model.Sectors)
	case FieldCategory:
		return slices.Clone(model.IndividualCategories)
	case FieldProductType:
		return slices.Clone(model.ProductTypes)
	case FieldProductCategory:
		return slices.Clone(model.ProductCategories)
	case FieldPromotion:
		return slices.Clone(model.Promotions)
	case FieldChannel:
		return append(slices.Clone(model.CampaignChannels), model.ChannelBoth)
	case FieldInterestType:
		return slices.Clone(model.InterestTypes)
	case FieldRiskLevel, FieldInnovationLevel:
		return slices.Clone(model.Levels)
	case FieldLaunchYear:
		years := make([]string, len(model.LaunchYears))
		for i, y := range model.LaunchYears {
			years[i] = strconv.Itoa(y)
		}
		return years
	default:
		return nil
	}
}

// IsList reports whether field holds a list of values.
func IsList(field string) bool {
	switch field {
	case FieldSegment, FieldSector, FieldCategory, FieldPromotion, FieldChannel:
		return true
	}
	return false
}

// Empty returns the all-default filter used when nothing is known about the campaign.
func Empty() Filter {
	return Filter{
		Segment:      []string{},
		Sector:       []string{},
		Category:     []string{},
		Promotion:    []string{},
		Channel:      []string{model.ChannelDigital},
		Term:         DefaultTerm,
		InterestType: model.InterestNone,
		LaunchYear:   DefaultLaunchYear,
	}
}

// Default returns the initial state of an interactively edited filter.
func Default() Filter {
	return Filter{
		Segment:         model.SegmentNames(),
		Sector:          slices.Clone(model.Sectors),
		Category:        slices.Clone(model.IndividualCategories),
		ProductType:     model.ProductTypes[0],
		ProductCategory: model.ProductCategories[0],
		Promotion:       []string{model.PromotionCashback},
		Channel:         []string{model.ChannelDigital},
		Term:            DefaultTerm,
		InterestType:    model.InterestFixed,
		RiskLevel:       model.LevelMedium,
		InnovationLevel: model.LevelMedium,
		LaunchYear:      model.LaunchYears[0],
	}
}

// Clone returns a deep copy of f.
func (f Filter) Clone() Filter {
	f.Segment = slices.Clone(f.Segment)
	f.Sector = slices.Clone(f.Sector)
	f.Category = slices.Clone(f.Category)
	f.Promotion = slices.Clone(f.Promotion)
	f.Channel = slices.Clone(f.Channel)
	return f
}

// HasSegment reports whether the campaign targets segment s.
func (f Filter) HasSegment(s model.Segment) bool {
	return slices.Contains(f.Segment, string(s))
}

// HasSector reports whether the campaign targets sector s.
func (f Filter) HasSector(s string) bool {
	return slices.Contains(f.Sector, s)
}

// HasCategory reports whether the campaign targets individual category c.
func (f Filter) HasCategory(c string) bool {
	return slices.Contains(f.Category, c)
}

// HasPromotion reports whether the campaign carries promotion p.
func (f Filter) HasPromotion(p string) bool {
	return slices.Contains(f.Promotion, p)
}

// Channels returns the targeted channels with Both expanded. An empty channel
// list means Digital.
func (f Filter) Channels() []string {
	var out []string
	for _, c := range f.Channel {
		if c == model.ChannelBoth {
			out = appendUnique(out, model.CampaignChannels...)
			continue
		}
		out = appendUnique(out, c)
	}
	if len(out) == 0 {
		return []string{model.ChannelDigital}
	}
	return out
}

// Set assigns a field from its textual form. List fields take comma-separated
// values. Unknown fields and values outside the field's domain are rejected.
func (f *Filter) Set(field, value string) error {
	value = strings.TrimSpace(value)

	switch field {
	case FieldSegment, FieldSector, FieldCategory, FieldPromotion, FieldChannel:
		values, err := strictList(field, value)
		if err != nil {
			return err
		}
		f.setList(field, values)
	case FieldProductType, FieldProductCategory, FieldInterestType, FieldRiskLevel, FieldInnovationLevel:
		canonical := ""
		if value != "" {
			var ok bool
			if canonical, ok = matchEnum(value, Domain(field)); !ok {
				return invalidValue(field, value)
			}
		}
		if field == FieldInterestType && canonical == "" {
			canonical = model.InterestNone
		}
		f.setString(field, canonical)
	case FieldTerm:
		term, err := strconv.Atoi(value)
		if err != nil || term < MinTerm || term > MaxTerm {
			return fmt.Errorf("%w: term must be between %d and %d months, got %q", common.ErrInvalidInput, MinTerm, MaxTerm, value)
		}
		f.Term = term
	case FieldLaunchYear:
		year, err := strconv.Atoi(value)
		if err != nil || !slices.Contains(model.LaunchYears, year) {
			return invalidValue(field, value)
		}
		f.LaunchYear = year
	default:
		return fmt.Errorf("%w: unknown filter field %q", common.ErrInvalidInput, field)
	}

	return nil
}

// Get returns a copy of a field's value.
func (f Filter) Get(field string) (any, error) {
	switch field {
	case FieldSegment:
		return slices.Clone(f.Segment), nil
	case FieldSector:
		return slices.Clone(f.Sector), nil
	case FieldCategory:
		return slices.Clone(f.Category), nil
	case FieldPromotion:
		return slices.Clone(f.Promotion), nil
	case FieldChannel:
		return slices.Clone(f.Channel), nil
	case FieldProductType:
		return f.ProductType, nil
	case FieldProductCategory:
		return f.ProductCategory, nil
	case FieldInterestType:
		return f.InterestType, nil
	case FieldRiskLevel:
		return f.RiskLevel, nil
	case FieldInnovationLevel:
		return f.InnovationLevel, nil
	case FieldTerm:
		return f.Term, nil
	case FieldLaunchYear:
		return f.LaunchYear, nil
	default:
		return nil, fmt.Errorf("%w: unknown filter field %q", common.ErrInvalidInput, field)
	}
}

func (f *Filter) setList(field string, values []string) {
	switch field {
	case FieldSegment:
		f.Segment = values
	case FieldSector:
		f.Sector = values
	case FieldCategory:
		f.Category = values
	case FieldPromotion:
		f.Promotion = values
	case FieldChannel:
		f.Channel = normalizeChannels(values)
	}
}

func (f *Filter) setString(field, value string) {
	switch field {
	case FieldProductType:
		f.ProductType = value
	case FieldProductCategory:
		f.ProductCategory = value
	case FieldInterestType:
		f.InterestType = value
	case FieldRiskLevel:
		f.RiskLevel = value
	case FieldInnovationLevel:
		f.InnovationLevel = value
	}
}

func strictList(field, value string) ([]string, error) {
	out := []string{}
	if value == "" {
		return out, nil
	}
	domain := Domain(field)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		canonical, ok := matchEnum(part, domain)
		if !ok {
			return nil, invalidValue(field, part)
		}
		out = appendUnique(out, canonical)
	}
	return out, nil
}

// normalizeChannels expands Both and falls back to Digital.
func normalizeChannels(values []string) []string {
	return Filter{Channel: values}.Channels()
}

func invalidValue(field, value string) error {
	return fmt.Errorf("%w: %s %q is not one of %s", common.ErrInvalidInput, field, value, strings.Join(Domain(field), ", "))
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}
