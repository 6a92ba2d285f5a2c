package college

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/collegify/collegify/internal/db"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
}

func NewSQLStore(h *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: h, driver: driver}
}

const collegeColumns = `id,college_name,branch,cutoff_percentile,category,region,fees,median_package,image_urls`

func (s *SQLStore) q(query string) string { return db.Rebind(s.driver, query) }

func (s *SQLStore) List(ctx context.Context) ([]College, error) {
	return s.query(ctx, `SELECT `+collegeColumns+` FROM colleges ORDER BY college_name, branch, id`)
}

func (s *SQLStore) Get(ctx context.Context, id int64) (College, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+collegeColumns+` FROM colleges WHERE id=$1`), id)
	c, err := scanCollege(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return College{}, ErrNotFound
		}
		return College{}, err
	}
	return c, nil
}

// Search runs the eligibility query: cutoff at or below the percentile,
// optional case-insensitive narrowing, strongest colleges first.
func (s *SQLStore) Search(ctx context.Context, f Filter) ([]College, error) {
	cond, args := f.where()
	return s.query(ctx, `SELECT `+collegeColumns+` FROM colleges WHERE `+cond+eligibleOrder, args...)
}

func (s *SQLStore) Create(ctx context.Context, c College) (int64, error) {
	if c.ImageURLs == "" {
		c.ImageURLs = "[]"
	}
	id, err := db.InsertID(ctx, s.db, s.driver,
		`INSERT INTO colleges (college_name,branch,cutoff_percentile,category,region,fees,median_package,image_urls)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.CollegeName, c.Branch, c.CutoffPercentile, c.Category, c.Region, c.Fees, c.MedianPackage, c.ImageURLs)
	if err != nil {
		return 0, fmt.Errorf("insert college: %w", err)
	}
	return id, nil
}

func (s *SQLStore) Update(ctx context.Context, c College) error {
	if c.ImageURLs == "" {
		c.ImageURLs = "[]"
	}
	// mysql reports zero affected rows when nothing changed, so existence is
	// checked separately
	if _, err := s.Get(ctx, c.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE colleges SET
		college_name=$1, branch=$2, cutoff_percentile=$3, category=$4,
		region=$5, fees=$6, median_package=$7, image_urls=$8
		WHERE id=$9`),
		c.CollegeName, c.Branch, c.CutoffPercentile, c.Category, c.Region, c.Fees, c.MedianPackage, c.ImageURLs, c.ID)
	if err != nil {
		return fmt.Errorf("update college %d: %w", c.ID, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM colleges WHERE id=$1`), id)
	if err != nil {
		return fmt.Errorf("delete college %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) AppendImage(ctx context.Context, id int64, url string) (College, error) {
	var out College
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, s.q(`SELECT `+collegeColumns+` FROM colleges WHERE id=$1`), id)
		c, err := scanCollege(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		c.ImageURLs = appendImage(c.ImageURLs, url)
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE colleges SET image_urls=$1 WHERE id=$2`), c.ImageURLs, id); err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM colleges`).Scan(&n)
	return n, err
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) ([]College, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []College{}
	for rows.Next() {
		c, err := scanCollege(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanCollege(r scanner) (College, error) {
	var c College
	err := r.Scan(&c.ID, &c.CollegeName, &c.Branch, &c.CutoffPercentile, &c.Category,
		&c.Region, &c.Fees, &c.MedianPackage, &c.ImageURLs)
	return c, err
}
