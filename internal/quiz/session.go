package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("quiz session not found")
	ErrUnknownOption   = errors.New("option does not belong to the current question")
	ErrUnanswered      = errors.New("answer the current question first")
	ErrIncomplete      = errors.New("all questions must be answered before submitting")
)

// Session is one learner's walk through the question bank. The position
// lives here rather than in the client so navigation rules are enforced
// server-side.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"-"`
	Current   int       `json:"current"`
	Answers   Answers   `json:"answers"`
	UpdatedAt time.Time `json:"updated_at"`
}

// View is what clients render for a session.
type View struct {
	ID        string   `json:"id"`
	Current   int      `json:"current"`
	Total     int      `json:"total"`
	Question  Question `json:"question"`
	Selected  string   `json:"selected,omitempty"`
	Answered  int      `json:"answered"`
	CanPrev   bool     `json:"can_prev"`
	CanNext   bool     `json:"can_next"`
	CanSubmit bool     `json:"can_submit"`
}

func (s Session) View() View {
	sel := s.Answers[s.Current]
	last := s.Current == len(Questions)-1
	return View{
		ID:        s.ID,
		Current:   s.Current,
		Total:     len(Questions),
		Question:  Questions[s.Current],
		Selected:  sel,
		Answered:  len(s.Answers),
		CanPrev:   s.Current > 0,
		CanNext:   sel != "" && !last,
		CanSubmit: s.Answers.Complete(),
	}
}

// Outcome is the scored result of a submitted session. Saved is false when
// the result could not be persisted; the result is still valid.
type Outcome struct {
	Result
	Saved bool `json:"saved"`
}

type SessionOption func(*SessionManager)

func WithTTL(d time.Duration) SessionOption         { return func(m *SessionManager) { m.ttl = d } }
func WithClock(now func() time.Time) SessionOption  { return func(m *SessionManager) { m.now = now } }
func WithLogger(l *zap.Logger) SessionOption        { return func(m *SessionManager) { m.log = l } }
func WithIDGenerator(f func() string) SessionOption { return func(m *SessionManager) { m.newID = f } }

type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	results  ResultStore
	ttl      time.Duration
	now      func() time.Time
	newID    func() string
	log      *zap.Logger
}

func NewSessionManager(results ResultStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		sessions: map[string]*Session{},
		results:  results,
		ttl:      2 * time.Hour,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *SessionManager) Start(userID int64) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	s := &Session{ID: m.newID(), UserID: userID, Answers: Answers{}, UpdatedAt: m.now()}
	m.sessions[s.ID] = s
	return s.clone()
}

func (m *SessionManager) Get(id string, userID int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookupLocked(id, userID)
	if err != nil {
		return Session{}, err
	}
	return s.clone(), nil
}

// Answer records option for the current question.
func (m *SessionManager) Answer(id string, userID int64, option string) (Session, error) {
	return m.update(id, userID, func(s *Session) error {
		if _, ok := OptionAt(s.Current, option); !ok {
			return ErrUnknownOption
		}
		s.Answers[s.Current] = option
		return nil
	})
}

// Next moves forward once the current question is answered. It stays put on
// the last question.
func (m *SessionManager) Next(id string, userID int64) (Session, error) {
	return m.update(id, userID, func(s *Session) error {
		if s.Answers[s.Current] == "" {
			return ErrUnanswered
		}
		if s.Current < len(Questions)-1 {
			s.Current++
		}
		return nil
	})
}

func (m *SessionManager) Prev(id string, userID int64) (Session, error) {
	return m.update(id, userID, func(s *Session) error {
		if s.Current > 0 {
			s.Current--
		}
		return nil
	})
}

// Submit scores a complete session and closes it. Persisting the result is
// best effort: a failed save is logged and reported through Outcome.Saved.
func (m *SessionManager) Submit(ctx context.Context, id string, userID int64) (Outcome, error) {
	m.mu.Lock()
	s, err := m.lookupLocked(id, userID)
	if err != nil {
		m.mu.Unlock()
		return Outcome{}, err
	}
	if !s.Answers.Complete() {
		m.mu.Unlock()
		return Outcome{}, ErrIncomplete
	}
	answers := s.clone().Answers
	delete(m.sessions, id)
	m.mu.Unlock()

	res := Score(answers)
	out := Outcome{Result: res}
	if m.results == nil {
		return out, nil
	}
	if _, err := m.results.Save(ctx, userID, res.Submission(answers)); err != nil {
		m.log.Warn("could not save quiz result", zap.Int64("user_id", userID), zap.Error(err))
		return out, nil
	}
	out.Saved = true
	return out, nil
}

func (m *SessionManager) update(id string, userID int64, fn func(*Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookupLocked(id, userID)
	if err != nil {
		return Session{}, err
	}
	if err := fn(s); err != nil {
		return s.clone(), err
	}
	s.UpdatedAt = m.now()
	return s.clone(), nil
}

// lookupLocked hides other users' sessions behind ErrSessionNotFound.
func (m *SessionManager) lookupLocked(id string, userID int64) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID || m.expired(s) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

func (m *SessionManager) sweepLocked() {
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
}

func (s *Session) clone() Session {
	c := *s
	c.Answers = make(Answers, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return c
}
