package college

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var ErrInvalidPercentile = errors.New("percentile is required and must be a number between 0 and 100")

// Filter is a normalised eligibility query. Empty string fields match any value.
type Filter struct {
	Percentile float64
	Category   string
	Region     string
	Branch     string
}

// NewFilter validates the percentile and trims the optional narrowing fields.
func NewFilter(p Profile) (Filter, error) {
	if math.IsNaN(p.Percentile) || p.Percentile < 0 || p.Percentile > 100 {
		return Filter{}, ErrInvalidPercentile
	}
	return Filter{
		Percentile: p.Percentile,
		Category:   strings.TrimSpace(p.Category),
		Region:     strings.TrimSpace(p.Region),
		Branch:     strings.TrimSpace(p.Branch),
	}, nil
}

// Matches reports whether c is eligible under f: its cutoff is at or below
// the percentile and every non-empty field matches case-insensitively.
func (f Filter) Matches(c College) bool {
	if c.CutoffPercentile > f.Percentile {
		return false
	}
	return wildEqual(f.Category, c.Category) &&
		wildEqual(f.Region, c.Region) &&
		wildEqual(f.Branch, c.Branch)
}

func wildEqual(want, got string) bool {
	return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
}

// where renders the filter as a SQL condition with $N placeholders.
func (f Filter) where() (string, []any) {
	var b strings.Builder
	args := []any{f.Percentile}
	b.WriteString("cutoff_percentile <= $1")
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		fmt.Fprintf(&b, " AND LOWER(TRIM(%s)) = LOWER($%d)", col, len(args))
	}
	add("category", f.Category)
	add("region", f.Region)
	add("branch", f.Branch)
	return b.String(), args
}

const eligibleOrder = " ORDER BY cutoff_percentile DESC, LOWER(college_name) ASC, id ASC"

// SortEligible orders colleges by descending cutoff, then case-folded name,
// then id.
func SortEligible(cs []College) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.CutoffPercentile != b.CutoffPercentile {
			return a.CutoffPercentile > b.CutoffPercentile
		}
		if an, bn := strings.ToLower(a.CollegeName), strings.ToLower(b.CollegeName); an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
}

// Eligible returns the colleges in all that match f, in eligibility order.
func Eligible(all []College, f Filter) []College {
	out := make([]College, 0, len(all))
	for _, c := range all {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	SortEligible(out)
	return out
}
