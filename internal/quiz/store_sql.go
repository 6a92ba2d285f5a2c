package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/collegify/collegify/internal/db"
)

type SQLResultStore struct {
	db     *sql.DB
	driver db.Driver
	now    func() time.Time
}

func NewSQLResultStore(h *sql.DB, driver db.Driver, now func() time.Time) *SQLResultStore {
	if now == nil {
		now = time.Now
	}
	return &SQLResultStore{db: h, driver: driver, now: now}
}

func (s *SQLResultStore) Save(ctx context.Context, userID int64, sub Submission) (Record, error) {
	answers := sub.Answers
	if answers == nil {
		answers = Answers{}
	}
	aj, err := json.Marshal(answers)
	if err != nil {
		return Record{}, err
	}
	takenAt := s.now().UTC().Truncate(time.Second)
	id, err := db.InsertID(ctx, s.db, s.driver,
		`INSERT INTO quiz_results (user_id,answers,suggested_branches,score,taken_at) VALUES ($1,$2,$3,$4,$5)`,
		userID, string(aj), sub.SuggestedBranches, sub.Score, takenAt.Unix())
	if err != nil {
		return Record{}, fmt.Errorf("insert quiz result: %w", err)
	}
	return Record{
		ID:                id,
		UserID:            userID,
		Answers:           answers,
		SuggestedBranches: sub.SuggestedBranches,
		Score:             sub.Score,
		TakenAt:           takenAt,
	}, nil
}

func (s *SQLResultStore) List(ctx context.Context, userID int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, db.Rebind(s.driver,
		`SELECT id,user_id,answers,suggested_branches,score,taken_at FROM quiz_results
		WHERE user_id=$1 ORDER BY taken_at DESC, id DESC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var (
			r     Record
			aj    string
			taken int64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &aj, &r.SuggestedBranches, &r.Score, &taken); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(aj), &r.Answers); err != nil {
			r.Answers = Answers{}
		}
		r.TakenAt = time.Unix(taken, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
