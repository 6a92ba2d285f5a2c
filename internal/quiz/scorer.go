package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidAnswer = errors.New("invalid quiz answer")

// Answers maps a zero-based question index to the chosen option text.
type Answers map[int]string

// Validate rejects answers keyed outside the question bank and options that
// belong to a different question.
func (a Answers) Validate() error {
	for i, opt := range a {
		if i < 0 || i >= QuestionCount {
			return fmt.Errorf("%w: no question %d", ErrInvalidAnswer, i)
		}
		if _, ok := OptionAt(i, opt); !ok {
			return fmt.Errorf("%w: %q is not an option of question %d", ErrInvalidAnswer, opt, i)
		}
	}
	return nil
}

// Complete reports whether every question in the bank has an answer.
func (a Answers) Complete() bool {
	for i := range Questions {
		if a[i] == "" {
			return false
		}
	}
	return true
}

type BranchScore struct {
	Branch Branch `json:"branch"`
	Score  int    `json:"score"`
}

type Result struct {
	Ranked   []BranchScore `json:"suggested_branches"`
	Top      []BranchScore `json:"top"`
	TopScore int           `json:"score"`
}

// TopN is how many branches are shown to the learner.
const TopN = 3

// Score tallies each answer's branch and turns the counts into percentages of
// the full question count. Branches nobody picked are left out. Higher scores
// come first; equal scores keep the order in which the branch was first seen
// while walking the answers by question index. Answers that Validate would
// reject are ignored, so no branch scores above 100.
func Score(a Answers) Result {
	idx := make([]int, 0, len(a))
	for i := range a {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	counts := map[Branch]int{}
	var order []Branch
	for _, i := range idx {
		b, ok := OptionAt(i, a[i])
		if !ok {
			continue
		}
		if counts[b] == 0 {
			order = append(order, b)
		}
		counts[b]++
	}

	ranked := make([]BranchScore, len(order))
	for i, b := range order {
		ranked[i] = BranchScore{Branch: b, Score: percent(counts[b], QuestionCount)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	res := Result{Ranked: ranked, Top: ranked}
	if len(ranked) > TopN {
		res.Top = ranked[:TopN]
	}
	if len(ranked) > 0 {
		res.TopScore = ranked[0].Score
	}
	return res
}

func percent(k, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(k) / float64(n) * 100))
}

// SuggestedJSON is the ranked branch labels as a JSON array, the format
// stored in quiz_results.suggested_branches.
func (r Result) SuggestedJSON() string {
	labels := make([]string, len(r.Ranked))
	for i, bs := range r.Ranked {
		labels[i] = bs.Branch.Label()
	}
	b, _ := json.Marshal(labels)
	return string(b)
}

// Submission converts a result into what the result store persists.
func (r Result) Submission(a Answers) Submission {
	return Submission{Answers: a, SuggestedBranches: r.SuggestedJSON(), Score: r.TopScore}
}
