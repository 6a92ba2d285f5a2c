package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/collegify/collegify/internal/account"
	"github.com/collegify/collegify/internal/db"
	"github.com/collegify/collegify/internal/db/dbtest"
	"github.com/collegify/collegify/internal/rbac"
)

func newService(t *testing.T) (*account.Service, func(q string) int) {
	t.Helper()
	h := dbtest.Open(t)
	count := func(q string) int {
		var n int
		require.NoError(t, h.QueryRow(q).Scan(&n))
		return n
	}
	return account.NewService(h, db.DriverSQLite, bcrypt.MinCost), count
}

func TestRegister_CreatesUserAndStudentRow(t *testing.T) {
	ctx := context.Background()
	svc, count := newService(t)

	u, err := svc.Register(ctx, " Asha ", " Asha@Example.com ", "s3cret!")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, rbac.RoleStudent, u.Role)

	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM users`))
	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM students`))

	_, err = svc.Register(ctx, "Other", "asha@example.com", "x")
	assert.ErrorIs(t, err, account.ErrEmailTaken)
	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM users`))
}

func TestRegister_LosingConcurrentSignupGetsEmailTaken(t *testing.T) {
	ctx := context.Background()
	h := dbtest.Open(t)
	svc := account.NewService(h, db.DriverSQLite, bcrypt.MinCost)

	// a competing sign-up committed the same email first
	_, err := h.Exec(`INSERT INTO users (name,email,password_hash) VALUES ('first','race@example.com','h')`)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "second", "Race@Example.com", "pw")
	assert.ErrorIs(t, err, account.ErrEmailTaken)

	var n int
	require.NoError(t, h.QueryRow(`SELECT COUNT(*) FROM students`).Scan(&n))
	assert.Zero(t, n)
}

func TestRegister_IsAtomic(t *testing.T) {
	ctx := context.Background()
	h := dbtest.Open(t)
	svc := account.NewService(h, db.DriverSQLite, bcrypt.MinCost)

	_, err := h.Exec(`DROP TABLE students`)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Ravi", "ravi@example.com", "pw")
	require.Error(t, err)

	var n int
	require.NoError(t, h.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Zero(t, n, "user row must roll back with the failed student row")
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	reg, err := svc.Register(ctx, "Asha", "asha@example.com", "s3cret!")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "ASHA@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, reg, u)

	_, err = svc.Login(ctx, "asha@example.com", "wrong")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestProfile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, count := newService(t)
	u, err := svc.Register(ctx, "Asha", "asha@example.com", "pw")
	require.NoError(t, err)

	p, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Student)
	assert.Nil(t, p.Student.MHTCETCutoff)
	_, ok := p.Student.SearchProfile()
	assert.False(t, ok)

	cutoff := 91.5
	require.NoError(t, svc.UpdateProfile(ctx, u.ID, u.Role, account.ProfileUpdate{
		Name: "Asha K",
		Student: &account.Student{
			MHTCETCutoff:    &cutoff,
			Category:        "OBC",
			PreferredRegion: "Pune",
			PreferredBranch: "Computer Engineering",
			AdditionalInfo:  "hostel",
		},
	}))

	p, err = svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", p.Name)
	require.NotNil(t, p.Student.MHTCETCutoff)
	assert.Equal(t, 91.5, *p.Student.MHTCETCutoff)
	assert.Equal(t, "Pune", p.Student.PreferredRegion)
	assert.Equal(t, "hostel", p.Student.AdditionalInfo)

	sp, ok := p.Student.SearchProfile()
	require.True(t, ok)
	assert.Equal(t, 91.5, sp.Percentile)
	assert.Equal(t, "OBC", sp.Category)
	assert.Equal(t, "Computer Engineering", sp.Branch)

	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM students`), "update must not duplicate the row")
}

func TestUpdateProfile_InsertsMissingStudentRow(t *testing.T) {
	ctx := context.Background()
	h := dbtest.Open(t)
	svc := account.NewService(h, db.DriverSQLite, bcrypt.MinCost)
	u, err := svc.Register(ctx, "Asha", "asha@example.com", "pw")
	require.NoError(t, err)
	_, err = h.Exec(`DELETE FROM students`)
	require.NoError(t, err)

	p, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Student)

	cutoff := 80.0
	require.NoError(t, svc.UpdateProfile(ctx, u.ID, u.Role, account.ProfileUpdate{
		Student: &account.Student{MHTCETCutoff: &cutoff},
	}))
	p, err = svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Student)
	assert.Equal(t, 80.0, *p.Student.MHTCETCutoff)
	assert.Equal(t, "Asha", p.Name, "empty name leaves the name alone")
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	svc, _ := newService(t)
	err := svc.UpdateProfile(context.Background(), 404, rbac.RoleStudent, account.ProfileUpdate{Name: "x"})
	assert.ErrorIs(t, err, account.ErrNotFound)

	_, err = svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, count := newService(t)

	u, created, err := svc.EnsureAdmin(ctx, "Admin", "admin@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, rbac.RoleAdmin, u.Role)

	_, created, err = svc.EnsureAdmin(ctx, "Admin", "admin@example.com", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM users`))
	assert.Zero(t, count(`SELECT COUNT(*) FROM students`), "admins have no student row")

	p, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Student)
}
