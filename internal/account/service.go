package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/collegify/collegify/internal/college"
	"github.com/collegify/collegify/internal/db"
	"github.com/collegify/collegify/internal/rbac"
)

var (
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("user not found")
)

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Student is the students row. The preference fields live in the other_info
// JSON column.
type Student struct {
	ID              int64    `json:"id"`
	UserID          int64    `json:"user_id"`
	MHTCETCutoff    *float64 `json:"mht_cet_cutoff"`
	Category        string   `json:"category,omitempty"`
	PreferredRegion string   `json:"preferred_region,omitempty"`
	PreferredBranch string   `json:"preferred_branch,omitempty"`
	AdditionalInfo  string   `json:"additional_info,omitempty"`
}

type otherInfo struct {
	Category        string `json:"category,omitempty"`
	PreferredRegion string `json:"preferred_region,omitempty"`
	PreferredBranch string `json:"preferred_branch,omitempty"`
	AdditionalInfo  string `json:"additional_info,omitempty"`
}

// SearchProfile prefills a college search from the stored preferences.
// ok is false when no cutoff has been recorded yet.
func (s Student) SearchProfile() (p college.Profile, ok bool) {
	if s.MHTCETCutoff == nil {
		return college.Profile{}, false
	}
	return college.Profile{
		Percentile: *s.MHTCETCutoff,
		Category:   s.Category,
		Region:     s.PreferredRegion,
		Branch:     s.PreferredBranch,
	}, true
}

type Profile struct {
	User
	Student *Student `json:"student,omitempty"`
}

type ProfileUpdate struct {
	Name    string
	Student *Student
}

// DefaultCost matches the hashing cost used for existing accounts.
const DefaultCost = 10

type Service struct {
	db     *sql.DB
	driver db.Driver
	cost   int
}

func NewService(h *sql.DB, driver db.Driver, cost int) *Service {
	if cost == 0 {
		cost = DefaultCost
	}
	return &Service{db: h, driver: driver, cost: cost}
}

func (s *Service) q(query string) string { return db.Rebind(s.driver, query) }

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Register creates a student account. The users row and its students row are
// written in one transaction: either both exist afterwards or neither does.
func (s *Service) Register(ctx context.Context, name, email, password string) (User, error) {
	return s.create(ctx, name, email, password, rbac.RoleStudent)
}

func (s *Service) create(ctx context.Context, name, email, password, role string) (User, error) {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{Name: strings.TrimSpace(name), Email: email, Role: role}
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// the UNIQUE index on email decides races between concurrent sign-ups
		id, err := db.InsertID(ctx, tx, s.driver,
			`INSERT INTO users (name,email,password_hash,role) VALUES ($1,$2,$3,$4)`,
			u.Name, email, string(hash), role)
		if db.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		u.ID = id

		if role == rbac.RoleStudent {
			if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO students (user_id) VALUES ($1)`), id); err != nil {
				return fmt.Errorf("insert student: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Login checks the password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	var (
		u    User
		hash string
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id,name,email,role,password_hash FROM users WHERE email=$1`),
		normalizeEmail(email)).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id,name,email,role FROM users WHERE id=$1`), id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Profile returns the user and, for students, their students row.
func (s *Service) Profile(ctx context.Context, id int64) (Profile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{User: u}
	if u.Role != rbac.RoleStudent {
		return p, nil
	}

	var (
		st     Student
		cutoff sql.NullFloat64
		info   sql.NullString
	)
	err = s.db.QueryRowContext(ctx, s.q(`SELECT id,user_id,mht_cet_cutoff,other_info FROM students WHERE user_id=$1`), id).
		Scan(&st.ID, &st.UserID, &cutoff, &info)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return p, nil
	case err != nil:
		return Profile{}, err
	}
	if cutoff.Valid {
		v := cutoff.Float64
		st.MHTCETCutoff = &v
	}
	if info.Valid && info.String != "" {
		var oi otherInfo
		if json.Unmarshal([]byte(info.String), &oi) == nil {
			st.Category = oi.Category
			st.PreferredRegion = oi.PreferredRegion
			st.PreferredBranch = oi.PreferredBranch
			st.AdditionalInfo = oi.AdditionalInfo
		}
	}
	p.Student = &st
	return p, nil
}

// UpdateProfile renames the user and, for students, upserts the students row.
func (s *Service) UpdateProfile(ctx context.Context, id int64, role string, upd ProfileUpdate) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if name := strings.TrimSpace(upd.Name); name != "" {
			res, err := tx.ExecContext(ctx, s.q(`UPDATE users SET name=$1 WHERE id=$2`), name, id)
			if err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return ErrNotFound
			}
		}
		if role != rbac.RoleStudent || upd.Student == nil {
			return nil
		}

		st := upd.Student
		info, err := json.Marshal(otherInfo{
			Category:        st.Category,
			PreferredRegion: st.PreferredRegion,
			PreferredBranch: st.PreferredBranch,
			AdditionalInfo:  st.AdditionalInfo,
		})
		if err != nil {
			return err
		}
		var cutoff sql.NullFloat64
		if st.MHTCETCutoff != nil {
			cutoff = sql.NullFloat64{Float64: *st.MHTCETCutoff, Valid: true}
		}

		var existing int64
		err = tx.QueryRowContext(ctx, s.q(`SELECT id FROM students WHERE user_id=$1`), id).Scan(&existing)
		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx, s.q(`UPDATE students SET mht_cet_cutoff=$1, other_info=$2 WHERE user_id=$3`),
				cutoff, string(info), id)
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, s.q(`INSERT INTO students (user_id,mht_cet_cutoff,other_info) VALUES ($1,$2,$3)`),
				id, cutoff, string(info))
		}
		if err != nil {
			return fmt.Errorf("upsert student: %w", err)
		}
		return nil
	})
}

// EnsureAdmin creates an admin account unless the email is already taken.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (User, bool, error) {
	u, err := s.create(ctx, name, email, password, rbac.RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return u, true, nil
}
