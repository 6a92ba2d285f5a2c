package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/collegify/collegify/internal/college"
	"github.com/collegify/collegify/internal/httpx"
)

const msgBadPercentile = "Percentile is required and must be a number between 0 and 100"

type searchRequest struct {
	Percentile *number `json:"percentile"`
	Category   string  `json:"category" validate:"max=64"`
	Region     string  `json:"region" validate:"max=255"`
	Branch     string  `json:"branch" validate:"max=255"`
}

// collegeRequest is the admin create/update body. image_urls may be a JSON
// array of URLs or a pre-encoded string.
type collegeRequest struct {
	CollegeName      string          `json:"college_name" validate:"required,max=255"`
	Branch           string          `json:"branch" validate:"required,max=255"`
	CutoffPercentile float64         `json:"cutoff_percentile" validate:"gte=0,lte=100"`
	Category         string          `json:"category" validate:"required,oneof=Open SC ST OBC"`
	Region           string          `json:"region" validate:"max=255"`
	Fees             int64           `json:"fees" validate:"gte=0"`
	MedianPackage    float64         `json:"median_package" validate:"gte=0"`
	ImageURLs        json.RawMessage `json:"image_urls"`
}

func (req collegeRequest) college() (college.College, bool) {
	c := college.College{
		CollegeName:      strings.TrimSpace(req.CollegeName),
		Branch:           strings.TrimSpace(req.Branch),
		CutoffPercentile: req.CutoffPercentile,
		Category:         req.Category,
		Region:           strings.TrimSpace(req.Region),
		Fees:             req.Fees,
		MedianPackage:    req.MedianPackage,
		ImageURLs:        "[]",
	}
	raw := strings.TrimSpace(string(req.ImageURLs))
	if raw == "" || raw == "null" {
		return c, true
	}
	var list []string
	if json.Unmarshal(req.ImageURLs, &list) == nil {
		c.ImageURLs = college.EncodeImages(list)
		return c, true
	}
	var s string
	if json.Unmarshal(req.ImageURLs, &s) == nil {
		c.ImageURLs = s
		return c, true
	}
	return c, false
}

// readProfile decodes a search body into a validated filter.
func readProfile(w http.ResponseWriter, r *http.Request) (college.Profile, college.Filter, bool) {
	var req searchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, errNotNumber) {
			httpx.Error(w, http.StatusBadRequest, msgBadPercentile)
		} else {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		}
		return college.Profile{}, college.Filter{}, false
	}
	if req.Percentile == nil {
		httpx.Error(w, http.StatusBadRequest, msgBadPercentile)
		return college.Profile{}, college.Filter{}, false
	}
	if err := validate.Struct(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return college.Profile{}, college.Filter{}, false
	}
	p := college.Profile{
		Percentile: float64(*req.Percentile),
		Category:   req.Category,
		Region:     req.Region,
		Branch:     req.Branch,
	}
	f, err := college.NewFilter(p)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, msgBadPercentile)
		return college.Profile{}, college.Filter{}, false
	}
	return p, f, true
}

func collegeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusNotFound, "College not found")
		return 0, false
	}
	return id, true
}

func ListCollegesHandler(store college.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := store.List(r.Context())
		if err != nil {
			serverError(w, log, "list colleges", err)
			return
		}
		httpx.JSON(w, http.StatusOK, cs)
	}
}

func GetCollegeHandler(store college.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := collegeID(w, r)
		if !ok {
			return
		}
		c, err := store.Get(r.Context(), id)
		if errors.Is(err, college.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "College not found")
			return
		}
		if err != nil {
			serverError(w, log, "get college", err)
			return
		}
		httpx.JSON(w, http.StatusOK, c)
	}
}

// SearchCollegesHandler returns every college the profile is eligible for,
// highest cutoff first.
func SearchCollegesHandler(store college.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, f, ok := readProfile(w, r)
		if !ok {
			return
		}
		cs, err := store.Search(r.Context(), f)
		if err != nil {
			serverError(w, log, "search colleges", err)
			return
		}
		log.Debug("college search", zap.Float64("percentile", f.Percentile), zap.Int("results", len(cs)))
		httpx.JSON(w, http.StatusOK, cs)
	}
}

// MatchCollegesHandler runs the eligibility search and ranks the result by
// match score.
func MatchCollegesHandler(store college.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, f, ok := readProfile(w, r)
		if !ok {
			return
		}
		cs, err := store.Search(r.Context(), f)
		if err != nil {
			serverError(w, log, "match colleges", err)
			return
		}
		httpx.JSON(w, http.StatusOK, college.RankByMatch(cs, p))
	}
}

func CreateCollegeHandler(store college.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req collegeRequest
		if !decode(w, r, &req) {
			return
		}
		c, ok := req.college()
		if !ok {
			httpx.Error(w, http.StatusBadRequest, "image_urls must be a list of URLs")
			return
		}
		id, err := store.Create(r.Context(), c)
		if err != nil {
			serverError(w, log, "create college", err)
			return
		}
		httpx.JSON(w, http.StatusCreated, map[string]any{"message": "College added successfully", "id": id})
	}
}

func UpdateCollegeHandler(store college.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := collegeID(w, r)
		if !ok {
			return
		}
		var req collegeRequest
		if !decode(w, r, &req) {
			return
		}
		c, ok := req.college()
		if !ok {
			httpx.Error(w, http.StatusBadRequest, "image_urls must be a list of URLs")
			return
		}
		c.ID = id
		err := store.Update(r.Context(), c)
		if errors.Is(err, college.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "College not found")
			return
		}
		if err != nil {
			serverError(w, log, "update college", err)
			return
		}
		httpx.Message(w, http.StatusOK, "College updated successfully")
	}
}

func DeleteCollegeHandler(store college.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := collegeID(w, r)
		if !ok {
			return
		}
		err := store.Delete(r.Context(), id)
		if errors.Is(err, college.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "College not found")
			return
		}
		if err != nil {
			serverError(w, log, "delete college", err)
			return
		}
		httpx.Message(w, http.StatusOK, "College deleted successfully")
	}
}
