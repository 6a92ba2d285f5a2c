package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auth "github.com/collegify/collegify/internal/auth/middleware"
	"github.com/collegify/collegify/internal/httpx"
	"github.com/collegify/collegify/internal/quiz"
)

type branchInfo struct {
	Branch      quiz.Branch `json:"branch"`
	Description string      `json:"description"`
}

func QuestionsHandler() http.HandlerFunc {
	branches := make([]branchInfo, len(quiz.AllBranches))
	for i, b := range quiz.AllBranches {
		branches[i] = branchInfo{Branch: b, Description: b.Description()}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"questions": quiz.Questions,
			"branches":  branches,
		})
	}
}

type scoreRequest struct {
	Answers quiz.Answers `json:"answers" validate:"required"`
}

// validAnswers writes a 400 when an answer is keyed outside the question bank
// or picks another question's option.
func validAnswers(w http.ResponseWriter, a quiz.Answers) bool {
	if err := a.Validate(); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// ScoreHandler ranks branches for a set of answers without storing anything.
func ScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if !decode(w, r, &req) || !validAnswers(w, req.Answers) {
			return
		}
		httpx.JSON(w, http.StatusOK, quiz.Score(req.Answers))
	}
}

// submitRequest carries a client-scored quiz. suggested_branches may be a
// JSON array of labels or an already encoded string.
type submitRequest struct {
	Answers           quiz.Answers    `json:"answers" validate:"required"`
	SuggestedBranches json.RawMessage `json:"suggested_branches"`
	Score             int             `json:"score" validate:"gte=0,lte=100"`
}

func (req submitRequest) submission() (quiz.Submission, bool) {
	sub := quiz.Submission{Answers: req.Answers, Score: req.Score}
	raw := strings.TrimSpace(string(req.SuggestedBranches))
	switch {
	case raw == "" || raw == "null":
		// not supplied: rank the answers here
		res := quiz.Score(req.Answers)
		sub.SuggestedBranches = res.SuggestedJSON()
		if req.Score == 0 {
			sub.Score = res.TopScore
		}
		return sub, true
	case strings.HasPrefix(raw, "["):
		var labels []string
		if json.Unmarshal(req.SuggestedBranches, &labels) != nil {
			return sub, false
		}
		sub.SuggestedBranches = raw
		return sub, true
	default:
		var s string
		if json.Unmarshal(req.SuggestedBranches, &s) != nil {
			return sub, false
		}
		sub.SuggestedBranches = s
		return sub, true
	}
}

func SubmitQuizHandler(results quiz.ResultStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if !decode(w, r, &req) || !validAnswers(w, req.Answers) {
			return
		}
		sub, ok := req.submission()
		if !ok {
			httpx.Error(w, http.StatusBadRequest, "suggested_branches must be a list of branch names")
			return
		}
		rec, err := results.Save(r.Context(), auth.SubjectFromContext(r.Context()), sub)
		if err != nil {
			serverError(w, log, "save quiz result", err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"message": "Quiz results saved successfully", "id": rec.ID})
	}
}

func QuizResultsHandler(results quiz.ResultStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := results.List(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			serverError(w, log, "list quiz results", err)
			return
		}
		httpx.JSON(w, http.StatusOK, recs)
	}
}

func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrSessionNotFound):
		httpx.Error(w, http.StatusNotFound, "Quiz session not found")
	case errors.Is(err, quiz.ErrUnknownOption),
		errors.Is(err, quiz.ErrUnanswered),
		errors.Is(err, quiz.ErrIncomplete):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	default:
		httpx.Error(w, http.StatusInternalServerError, "Server error")
	}
}

func StartSessionHandler(m *quiz.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := m.Start(auth.SubjectFromContext(r.Context()))
		httpx.JSON(w, http.StatusCreated, s.View())
	}
}

func GetSessionHandler(m *quiz.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Get(chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			sessionError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, s.View())
	}
}

type answerRequest struct {
	Option string `json:"option" validate:"required"`
}

func AnswerSessionHandler(m *quiz.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if !decode(w, r, &req) {
			return
		}
		s, err := m.Answer(chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()), req.Option)
		if err != nil {
			sessionError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, s.View())
	}
}

type moveFunc func(id string, userID int64) (quiz.Session, error)

// MoveSessionHandler serves next and prev.
func MoveSessionHandler(move moveFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := move(chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			sessionError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, s.View())
	}
}

func SubmitSessionHandler(m *quiz.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := m.Submit(r.Context(), chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			sessionError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}
