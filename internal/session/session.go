// Package session implements the quiz session state machine: the mutable
// aggregate of questions, teams, answers, mode, and progress for one run.
// Every mutating action is atomic at the call boundary and reports failures
// through a single error field rather than returned errors.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/validate"
)

// Session is the in-memory aggregate. Construct it with New and inject it
// where needed; there is no hidden package-level instance.
type Session struct {
	mu    sync.RWMutex
	now   func() time.Time
	newID func() string

	questions   []domain.Question
	teams       []domain.Team
	teamAnswers []domain.TeamAnswer
	participant []int

	current   int
	mode      domain.Mode
	completed bool
	startedAt time.Time
	endedAt   time.Time

	// buckets maps answerIndex to team ids for the active question only.
	// Cleared on advance and on every mode transition.
	buckets map[int][]string

	lastErr string

	scores      map[string]int
	scoresValid bool

	subscribers map[chan []domain.TeamRanking]struct{}
}

// New returns an empty session in participant mode.
func New() *Session {
	return NewWithClock(time.Now)
}

// NewWithClock allows deterministic timestamps in tests.
func NewWithClock(now func() time.Time) *Session {
	return &Session{
		now:         now,
		newID:       uuid.NewString,
		mode:        domain.ModeParticipant,
		buckets:     make(map[int][]string),
		subscribers: make(map[chan []domain.TeamRanking]struct{}),
	}
}

// LoadQuestions replaces the catalog wholesale after structural validation.
// The batch is all-or-nothing; a bad record leaves the previous catalog in
// place. Loading re-seeds index, completion, and the participant answers.
func (s *Session) LoadQuestions(questions []domain.Question) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res := validate.Catalog(questions); !res.Valid {
		s.lastErr = res.Errors[0]
		return false
	}

	s.questions = make([]domain.Question, len(questions))
	copy(s.questions, questions)
	s.participant = newParticipantAnswers(len(questions))
	s.current = 0
	s.completed = false
	s.startedAt = time.Time{}
	s.endedAt = time.Time{}
	s.buckets = make(map[int][]string)
	s.lastErr = ""
	return true
}

// StartQuiz stamps the run start. It fails when no catalog is loaded.
func (s *Session) StartQuiz() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		s.lastErr = "no questions loaded"
		return false
	}
	s.startedAt = s.now()
	s.endedAt = time.Time{}
	s.lastErr = ""
	return true
}

// ResetQuiz re-seeds index, completion, and timers for a new run. Participant
// answers always clear; team answers clear unless the session is currently in
// host mode with teams present, and the roster itself survives only then.
func (s *Session) ResetQuiz() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = 0
	s.completed = false
	s.startedAt = time.Time{}
	s.endedAt = time.Time{}
	s.participant = newParticipantAnswers(len(s.questions))
	s.buckets = make(map[int][]string)

	if !(s.mode == domain.ModeHost && len(s.teams) > 0) {
		s.teams = nil
		s.teamAnswers = nil
	}
	s.scoresValid = false
	s.broadcastLocked()
}

// Questions returns a copy of the loaded catalog.
func (s *Session) Questions() []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// CurrentQuestion returns the active question, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current < 0 || s.current >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.current], true
}

// CurrentIndex returns the active question index.
func (s *Session) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Completed reports whether the run has exhausted its questions.
func (s *Session) Completed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed
}

// StartedAt returns the run start time, zero until StartQuiz.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// EndedAt returns the completion time, zero until the run completes.
func (s *Session) EndedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endedAt
}

// Mode returns the active mode.
func (s *Session) Mode() domain.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// RouteState exposes the fields the routing collaborator reads before
// entering a quiz or results view.
func (s *Session) RouteState() domain.RouteState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.RouteState{
		TeamCount:     len(s.teams),
		QuestionCount: len(s.questions),
		Completed:     s.completed,
		Mode:          s.mode,
	}
}

// Err returns the last recorded failure message, or "".
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError resets the error field. Nothing else clears it on success paths
// of read-only accessors.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

// Snapshot captures the persistable part of the session.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make([]domain.Team, len(s.teams))
	copy(teams, s.teams)
	answers := make([]domain.TeamAnswer, len(s.teamAnswers))
	copy(answers, s.teamAnswers)
	return domain.Snapshot{
		Mode:                 s.mode,
		Teams:                teams,
		TeamAnswers:          answers,
		CurrentQuestionIndex: s.current,
		Timestamp:            s.now(),
		Version:              domain.SnapshotVersion,
	}
}

// RestoreSnapshot validates the snapshot, attempts repair when validation
// fails, and atomically overwrites teams, answers, index, and mode. When even
// the repaired form is invalid the in-memory state is left untouched and the
// corruption is reported through the error field.
func (s *Session) RestoreSnapshot(snap *domain.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := func() (out domain.Snapshot, ok bool) {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		if snap != nil {
			if res := validate.Snapshot(*snap); res.Valid {
				return *snap, true
			}
		}
		repaired := validate.Repair(snap, s.now)
		if res := validate.Snapshot(repaired); !res.Valid {
			return domain.Snapshot{}, false
		}
		return repaired, true
	}

	snapshot, ok := restored()
	if !ok {
		s.lastErr = domain.ErrSessionCorruption.Error()
		return false
	}

	s.teams = append([]domain.Team(nil), snapshot.Teams...)
	s.teamAnswers = append([]domain.TeamAnswer(nil), snapshot.TeamAnswers...)
	s.mode = snapshot.Mode
	s.current = snapshot.CurrentQuestionIndex
	if len(s.questions) > 0 && s.current >= len(s.questions) {
		s.current = len(s.questions) - 1
	}
	s.buckets = make(map[int][]string)
	s.scoresValid = false
	s.lastErr = ""
	s.broadcastLocked()
	return true
}

// Subscribe returns a channel receiving ranking updates on every structural
// change. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan []domain.TeamRanking, func()) {
	ch := make(chan []domain.TeamRanking, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.rankingsLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	rankings := s.rankingsLocked()
	for ch := range s.subscribers {
		select {
		case ch <- rankings:
		default:
			// Drop the stale update so a slow consumer never blocks mutation.
			select {
			case <-ch:
			default:
			}
			ch <- rankings
		}
	}
}

func newParticipantAnswers(n int) []int {
	answers := make([]int, n)
	for i := range answers {
		answers[i] = domain.Unanswered
	}
	return answers
}
