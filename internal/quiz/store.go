package quiz

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Submission is what a learner hands in: the raw answers, the ranked branch
// labels as a JSON array string, and the top branch score.
type Submission struct {
	Answers           Answers `json:"answers"`
	SuggestedBranches string  `json:"suggested_branches"`
	Score             int     `json:"score"`
}

type Record struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Answers           Answers   `json:"answers"`
	SuggestedBranches string    `json:"suggested_branches"`
	Score             int       `json:"score"`
	TakenAt           time.Time `json:"taken_at"`
}

type ResultStore interface {
	Save(ctx context.Context, userID int64, s Submission) (Record, error)
	List(ctx context.Context, userID int64) ([]Record, error) // newest first
}

type memoryResults struct {
	mu   sync.Mutex
	seq  int64
	recs []Record
	now  func() time.Time
}

func NewInMemoryResultStore(now func() time.Time) ResultStore {
	if now == nil {
		now = time.Now
	}
	return &memoryResults{now: now}
}

func (m *memoryResults) Save(_ context.Context, userID int64, s Submission) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r := Record{
		ID:                m.seq,
		UserID:            userID,
		Answers:           s.Answers,
		SuggestedBranches: s.SuggestedBranches,
		Score:             s.Score,
		TakenAt:           m.now().UTC().Truncate(time.Second),
	}
	m.recs = append(m.recs, r)
	return r, nil
}

func (m *memoryResults) List(_ context.Context, userID int64) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Record{}
	for _, r := range m.recs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(rs []Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].TakenAt.Equal(rs[j].TakenAt) {
			return rs[i].TakenAt.After(rs[j].TakenAt)
		}
		return rs[i].ID > rs[j].ID
	})
}
