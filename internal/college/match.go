package college

import (
	"math"
	"sort"
	"strings"
)

// Component weights of the match score.
const (
	cutoffWeight   = 40.0
	categoryWeight = 30.0
	regionWeight   = 20.0
	branchWeight   = 10.0

	// points lost per 10 percentile points below the cutoff
	deficitPenalty = 5.0
)

// Match scores how well c fits p on a 0..100 scale. It is a display
// heuristic only and never changes which colleges are eligible.
func Match(c College, p Profile) int {
	score := 0.0

	if p.Percentile >= c.CutoffPercentile {
		score += cutoffWeight
	} else {
		deficit := c.CutoffPercentile - p.Percentile
		score += math.Max(0, cutoffWeight-(deficit/10)*deficitPenalty)
	}
	if wildEqual(strings.TrimSpace(p.Category), c.Category) {
		score += categoryWeight
	}
	if wildEqual(strings.TrimSpace(p.Region), c.Region) {
		score += regionWeight
	}
	if wildEqual(strings.TrimSpace(p.Branch), c.Branch) {
		score += branchWeight
	}

	if math.IsNaN(score) {
		return 0
	}
	return int(math.Max(0, math.Min(100, math.Round(score))))
}

// Badge buckets a match score the way the finder colours it.
func Badge(score int) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 60:
		return "medium"
	default:
		return "low"
	}
}

// RankByMatch scores every college and orders them by descending score.
// Equal scores keep their input order.
func RankByMatch(cs []College, p Profile) []Scored {
	out := make([]Scored, len(cs))
	for i, c := range cs {
		s := Match(c, p)
		out[i] = Scored{College: c, MatchScore: s, Badge: Badge(s)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	return out
}
