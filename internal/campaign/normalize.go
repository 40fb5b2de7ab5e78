package campaign

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/Veraticus/digital-twin/internal/model"
)

// Issue records a value the normalizer had to drop or replace.
type Issue struct {
	Field  string `json:"field"`
	Value  any    `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	if i.Value == nil {
		return fmt.Sprintf("%s: %s", i.Field, i.Reason)
	}
	return fmt.Sprintf("%s: %s (%v)", i.Field, i.Reason, i.Value)
}

// Normalize turns a loosely typed mapping, typically decoded from a language
// model's answer, into a Filter. It never fails: missing keys keep their Empty
// value, wrong types are coerced where possible, enum values are matched
// ignoring case and punctuation, and everything that cannot be used is reported
// as an Issue.
func Normalize(raw map[string]any) (Filter, []Issue) {
	f := Empty()
	var issues []Issue

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		field, ok := matchField(key)
		if !ok {
			issues = append(issues, Issue{Field: key, Reason: "unknown field ignored"})
			continue
		}
		value := raw[key]

		switch field {
		case FieldSegment, FieldSector, FieldCategory, FieldPromotion, FieldChannel:
			values, listIssues := tolerantList(field, value)
			issues = append(issues, listIssues...)
			f.setList(field, values)
		case FieldProductType, FieldProductCategory, FieldInterestType, FieldRiskLevel, FieldInnovationLevel:
			s, issue := tolerantEnum(field, value)
			if issue != nil {
				issues = append(issues, *issue)
			}
			if field == FieldInterestType && s == "" {
				s = model.InterestNone
			}
			f.setString(field, s)
		case FieldTerm:
			term, ok := toInt(value)
			if !ok || term < MinTerm || term > MaxTerm {
				if value != nil {
					issues = append(issues, Issue{Field: field, Value: value, Reason: fmt.Sprintf("outside %d-%d months, using %d", MinTerm, MaxTerm, DefaultTerm)})
				}
				term = DefaultTerm
			}
			f.Term = term
		case FieldLaunchYear:
			year, ok := toInt(value)
			if !ok || !slices.Contains(model.LaunchYears, year) {
				if value != nil {
					issues = append(issues, Issue{Field: field, Value: value, Reason: fmt.Sprintf("unsupported launch year, using %d", DefaultLaunchYear)})
				}
				year = DefaultLaunchYear
			}
			f.LaunchYear = year
		}
	}

	return f, issues
}

func matchField(key string) (string, bool) {
	k := squash(key)
	for _, field := range Fields() {
		if squash(field) == k {
			return field, true
		}
	}
	return "", false
}

func tolerantList(field string, value any) ([]string, []Issue) {
	var items []any
	switch v := value.(type) {
	case nil:
	case string:
		for _, part := range strings.Split(v, ",") {
			items = append(items, part)
		}
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []any:
		items = v
	default:
		return []string{}, []Issue{{Field: field, Value: value, Reason: "expected a list"}}
	}

	out := []string{}
	var issues []Issue
	domain := Domain(field)
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			issues = append(issues, Issue{Field: field, Value: item, Reason: "non-text value dropped"})
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || isNullWord(s) {
			continue
		}
		canonical, ok := matchEnum(s, domain)
		if !ok {
			issues = append(issues, Issue{Field: field, Value: s, Reason: "unknown value dropped"})
			continue
		}
		out = appendUnique(out, canonical)
	}
	return out, issues
}

func tolerantEnum(field string, value any) (string, *Issue) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" || isNullWord(v) {
			return "", nil
		}
		canonical, ok := matchEnum(v, Domain(field))
		if !ok {
			return "", &Issue{Field: field, Value: v, Reason: "unknown value dropped"}
		}
		return canonical, nil
	case []any:
		// A single-element list is treated as the element itself.
		if len(v) == 1 {
			return tolerantEnum(field, v[0])
		}
	}
	return "", &Issue{Field: field, Value: value, Reason: "expected a single value"}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return toInt(f)
		}
		return int(n), true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		// Accept leading numbers such as "24 months".
		fields := strings.Fields(s)
		if len(fields) > 0 {
			if n, err := strconv.Atoi(fields[0]); err == nil {
				return n, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// matchEnum finds the canonical spelling of value in domain, ignoring case,
// punctuation and a trailing plural s.
func matchEnum(value string, domain []string) (string, bool) {
	v := squash(value)
	if v == "" {
		return "", false
	}
	for _, candidate := range domain {
		c := squash(candidate)
		if v == c || v == c+"s" {
			return candidate, true
		}
	}
	return "", false
}

func isNullWord(s string) bool {
	switch strings.ToLower(s) {
	case "none", "null", "n/a", "nil":
		return true
	}
	return false
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
