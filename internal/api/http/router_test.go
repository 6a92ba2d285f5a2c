package http_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/collegify/collegify/internal/account"
	api "github.com/collegify/collegify/internal/api/http"
	auth "github.com/collegify/collegify/internal/auth/middleware"
	"github.com/collegify/collegify/internal/college"
	"github.com/collegify/collegify/internal/db"
	"github.com/collegify/collegify/internal/db/dbtest"
	"github.com/collegify/collegify/internal/quiz"
	"github.com/collegify/collegify/internal/rbac"
	"github.com/collegify/collegify/internal/storage"
)

type fixture struct {
	h        http.Handler
	auth     *auth.AuthService
	accounts *account.Service
	colleges college.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := dbtest.Open(t)
	blobs, err := storage.NewFSStore(t.TempDir(), "/api/assets")
	require.NoError(t, err)

	f := &fixture{
		auth:     auth.NewAuthService("test-secret", time.Hour),
		accounts: account.NewService(h, db.DriverSQLite, bcrypt.MinCost),
		colleges: college.NewSQLStore(h, db.DriverSQLite),
	}
	results := quiz.NewSQLResultStore(h, db.DriverSQLite, nil)
	f.h = api.NewRouter(api.Deps{
		DB:          h,
		Driver:      db.DriverSQLite,
		Auth:        f.auth,
		Accounts:    f.accounts,
		Colleges:    f.colleges,
		Results:     results,
		Sessions:    quiz.NewSessionManager(results),
		Blobs:       blobs,
		CORSOrigins: []string{"http://localhost:5173"},
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) student(t *testing.T, email string) (account.User, string) {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), "Student", email, "password1")
	require.NoError(t, err)
	return u, f.token(t, u)
}

func (f *fixture) admin(t *testing.T) string {
	t.Helper()
	u, _, err := f.accounts.EnsureAdmin(context.Background(), "Admin", "admin@example.com", "password1")
	require.NoError(t, err)
	return f.token(t, u)
}

func (f *fixture) token(t *testing.T, u account.User) string {
	t.Helper()
	tok, err := f.auth.IssueJWT(auth.Identity{ID: u.ID, Email: u.Email, Role: u.Role})
	require.NoError(t, err)
	return tok
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct{ Message string }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Message
}

func TestHealthAndUnknownRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","message":"Collegify API is running"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", message(t, rec))
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg struct {
		Message string
		Token   string
		User    account.User
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, "User registered successfully", reg.Message)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, rbac.RoleStudent, reg.User.Role)

	rec = f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Again", "email": "asha@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists", message(t, rec))

	rec = f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Bad", "email": "not-an-email", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "email")

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct{ Token string }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong-one",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid credentials", message(t, rec))

	rec = f.do(t, http.MethodGet, "/api/auth/verify", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"asha@example.com"`)

	rec = f.do(t, http.MethodGet, "/api/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token required", message(t, rec))

	rec = f.do(t, http.MethodGet, "/api/auth/verify", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", message(t, rec))
}

func seedColleges(t *testing.T, s college.Store) {
	t.Helper()
	for _, c := range []college.College{
		{CollegeName: "Alpha Institute", Branch: "Computer Engineering", CutoffPercentile: 85, Category: "Open", Region: "Pune"},
		{CollegeName: "Beta College", Branch: "Civil Engineering", CutoffPercentile: 85, Category: "Open", Region: "Mumbai"},
		{CollegeName: "Gamma Tech", Branch: "Computer Engineering", CutoffPercentile: 95, Category: "Open", Region: "Pune"},
		{CollegeName: "Delta Polytechnic", Branch: "Mechanical Engineering", CutoffPercentile: 60, Category: "OBC", Region: "Nagpur"},
	} {
		_, err := s.Create(context.Background(), c)
		require.NoError(t, err)
	}
}

func TestSearchColleges(t *testing.T) {
	f := newFixture(t)
	seedColleges(t, f.colleges)

	rec := f.do(t, http.MethodPost, "/api/colleges/search", "", `{"percentile":"90","category":" open "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []college.College
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha Institute", got[0].CollegeName)
	assert.Equal(t, "Beta College", got[1].CollegeName)

	rec = f.do(t, http.MethodPost, "/api/colleges/search", "", map[string]any{"percentile": 99, "region": "PUNE"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Gamma Tech", got[0].CollegeName)

	rec = f.do(t, http.MethodPost, "/api/colleges/search", "", map[string]any{"percentile": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, body := range []string{`{}`, `{"percentile":null}`, `{"percentile":"abc"}`, `{"percentile":150}`, `{"percentile":-1}`} {
		rec = f.do(t, http.MethodPost, "/api/colleges/search", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, message(t, rec), "Percentile", body)
	}
}

func TestMatchColleges(t *testing.T) {
	f := newFixture(t)
	seedColleges(t, f.colleges)

	rec := f.do(t, http.MethodPost, "/api/colleges/match", "", map[string]any{
		"percentile": 90, "category": "Open", "branch": "Civil Engineering",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got []college.Scored
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Beta College", got[0].College.CollegeName)
	assert.Equal(t, 100, got[0].MatchScore)
	assert.Equal(t, "high", got[0].Badge)
}

func TestCollegeAdminCRUD(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	_, student := f.student(t, "s@example.com")

	body := map[string]any{
		"college_name": "Epsilon", "branch": "Electrical Engineering", "cutoff_percentile": 77.5,
		"category": "SC", "region": "Nashik", "fees": 90000, "median_package": 4.5,
		"image_urls": []string{"https://img.example.com/e.jpg"},
	}

	rec := f.do(t, http.MethodPost, "/api/colleges", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/colleges", student, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions", message(t, rec))

	rec = f.do(t, http.MethodPost, "/api/colleges", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct{ ID int64 }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := "/api/colleges/" + strconv.FormatInt(created.ID, 10)

	rec = f.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var c college.College
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "Epsilon", c.CollegeName)
	assert.Equal(t, []string{"https://img.example.com/e.jpg"}, c.Images())

	body["category"] = "General"
	rec = f.do(t, http.MethodPut, path, admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, message(t, rec), "category")

	body["category"] = "ST"
	body["image_urls"] = "https://img.example.com/only.jpg"
	rec = f.do(t, http.MethodPut, path, admin, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "College updated successfully", message(t, rec))

	rec = f.do(t, http.MethodGet, path, "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "ST", c.Category)
	assert.Equal(t, []string{"https://img.example.com/only.jpg"}, c.Images())

	rec = f.do(t, http.MethodPut, "/api/colleges/9999", admin, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "College not found", message(t, rec))

	rec = f.do(t, http.MethodGet, "/api/colleges", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRoleComesFromDatabase(t *testing.T) {
	f := newFixture(t)
	u, _ := f.student(t, "sneaky@example.com")
	forged, err := f.auth.IssueJWT(auth.Identity{ID: u.ID, Email: u.Email, Role: rbac.RoleAdmin})
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/api/colleges/1", forged, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	gone, err := f.auth.IssueJWT(auth.Identity{ID: 424242, Email: "ghost@example.com", Role: rbac.RoleAdmin})
	require.NoError(t, err)
	rec = f.do(t, http.MethodDelete, "/api/colleges/1", gone, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// 1x1 transparent PNG
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

func upload(t *testing.T, f *fixture, path, token string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "upload.bin")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func TestCollegeImageUpload(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	id, err := f.colleges.Create(context.Background(), college.College{
		CollegeName: "Zeta", Branch: "Civil Engineering", CutoffPercentile: 70, Category: "Open",
	})
	require.NoError(t, err)
	path := "/api/colleges/" + strconv.FormatInt(id, 10) + "/images"

	rec := upload(t, f, path, admin, tinyPNG)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		URL     string
		College college.College
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, strings.HasPrefix(out.URL, "/api/assets/colleges/"), out.URL)
	assert.Equal(t, []string{out.URL}, out.College.Images())

	rec = f.do(t, http.MethodGet, out.URL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, tinyPNG, rec.Body.Bytes())

	rec = upload(t, f, path, admin, []byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, f, "/api/colleges/9999/images", admin, tinyPNG)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/assets/colleges/none.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	_, tok := f.student(t, "p@example.com")

	rec := f.do(t, http.MethodPut, "/api/users/profile", tok, `{
		"name": "Priya",
		"student": {"mht_cet_cutoff": "88.2", "category": "OBC", "preferred_region": "Pune",
		            "preferred_branch": "Civil Engineering", "additional_info": "day scholar"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Profile updated successfully", message(t, rec))

	rec = f.do(t, http.MethodGet, "/api/users/profile", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p account.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Priya", p.Name)
	require.NotNil(t, p.Student)
	require.NotNil(t, p.Student.MHTCETCutoff)
	assert.Equal(t, 88.2, *p.Student.MHTCETCutoff)
	assert.Equal(t, "OBC", p.Student.Category)

	rec = f.do(t, http.MethodPut, "/api/users/profile", tok, `{"student":{"mht_cet_cutoff":120}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPut, "/api/users/profile", tok, `{"student":{"category":"VIP"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQuizStateless(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/quiz/questions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var qs struct {
		Questions []quiz.Question
		Branches  []struct{ Branch, Description string }
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qs))
	assert.Len(t, qs.Questions, 8)
	assert.Len(t, qs.Branches, 5)
	assert.NotContains(t, rec.Body.String(), `"Branch"`, "option branch tags stay server-side")

	answers := map[string]string{}
	for i, q := range quiz.Questions {
		answers[strconv.Itoa(i)] = q.Options[2].Text // Civil everywhere
	}
	rec = f.do(t, http.MethodPost, "/api/quiz/score", "", map[string]any{"answers": answers})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"suggested_branches":[{"branch":"Civil Engineering","score":100}],
		"top":[{"branch":"Civil Engineering","score":100}],
		"score":100}`, rec.Body.String())

	padded := map[string]string{}
	for i := 0; i < 16; i++ {
		padded[strconv.Itoa(i)] = quiz.Questions[0].Options[0].Text
	}
	rec = f.do(t, http.MethodPost, "/api/quiz/score", "", map[string]any{"answers": padded})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/quiz/score", "", map[string]any{
		"answers": map[string]string{"1": quiz.Questions[0].Options[0].Text},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "option from another question")
}

func TestQuizSubmitAndResults(t *testing.T) {
	f := newFixture(t)
	_, tok := f.student(t, "q@example.com")
	_, other := f.student(t, "r@example.com")

	rec := f.do(t, http.MethodPost, "/api/quiz/submit", tok, map[string]any{
		"answers":            map[string]string{"0": quiz.Questions[0].Options[0].Text},
		"suggested_branches": []string{"Computer Engineering and Information Technology"},
		"score":              13,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Quiz results saved successfully", message(t, rec))

	rec = f.do(t, http.MethodPost, "/api/quiz/submit", tok, map[string]any{"answers": map[string]string{}, "score": 101})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	inflated := map[string]string{}
	for i := 0; i < 16; i++ {
		inflated[strconv.Itoa(i)] = quiz.Questions[0].Options[0].Text
	}
	rec = f.do(t, http.MethodPost, "/api/quiz/submit", tok, map[string]any{"answers": inflated})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/quiz/results", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []quiz.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, 13, recs[0].Score)
	assert.Equal(t, `["Computer Engineering and Information Technology"]`, recs[0].SuggestedBranches)

	rec = f.do(t, http.MethodGet, "/api/quiz/results", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestQuizSessionFlow(t *testing.T) {
	f := newFixture(t)
	_, tok := f.student(t, "s@example.com")
	_, intruder := f.student(t, "i@example.com")

	rec := f.do(t, http.MethodPost, "/api/quiz/sessions", tok, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v quiz.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	base := "/api/quiz/sessions/" + v.ID
	assert.Equal(t, 8, v.Total)

	rec = f.do(t, http.MethodGet, base, intruder, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/next", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "cannot skip an unanswered question")

	rec = f.do(t, http.MethodPost, base+"/submit", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i, q := range quiz.Questions {
		rec = f.do(t, http.MethodPut, base+"/answer", tok, map[string]string{"option": q.Options[3].Text})
		require.Equal(t, http.StatusOK, rec.Code, "question %d: %s", i, rec.Body.String())
		rec = f.do(t, http.MethodPost, base+"/next", tok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = f.do(t, http.MethodPost, base+"/prev", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, 6, v.Current)
	assert.True(t, v.CanSubmit)

	rec = f.do(t, http.MethodPost, base+"/submit", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Score int
		Saved bool
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 100, out.Score)
	assert.True(t, out.Saved)

	rec = f.do(t, http.MethodGet, base, tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "submitted sessions are closed")

	rec = f.do(t, http.MethodGet, "/api/quiz/results", tok, nil)
	var recs []quiz.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, `["Mechanical Engineering"]`, recs[0].SuggestedBranches)
}
