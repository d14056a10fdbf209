package session

import (
	"fmt"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/validate"
)

// AssignAnswer records a team's answer to the active question (host mode).
// Preconditions are checked and reported independently: the question must be
// the active one, the index must be in range, and the team must exist.
// Reassignment is an upsert: the team's prior record for the question is
// replaced, never duplicated, and the team moves between assignment buckets.
func (s *Session) AssignAnswer(questionID string, answerIndex int, teamID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < 0 || s.current >= len(s.questions) {
		s.lastErr = "no active question"
		return false
	}
	question := s.questions[s.current]
	if question.ID != questionID {
		s.lastErr = fmt.Sprintf("question %s is not the active question", questionID)
		return false
	}
	if res := validate.Assignment(question, answerIndex, teamID, s.teams, s.teamAnswers); !res.Valid {
		s.lastErr = res.Errors[0]
		return false
	}

	record := domain.TeamAnswer{
		QuestionID:  questionID,
		TeamID:      teamID,
		AnswerIndex: answerIndex,
		Correct:     answerIndex == question.CorrectIndex,
	}

	replaced := false
	for i, ans := range s.teamAnswers {
		if ans.QuestionID == questionID && ans.TeamID == teamID {
			s.teamAnswers[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		s.teamAnswers = append(s.teamAnswers, record)
	}

	for idx, ids := range s.buckets {
		if idx == answerIndex {
			continue
		}
		s.buckets[idx] = removeID(ids, teamID)
		if len(s.buckets[idx]) == 0 {
			delete(s.buckets, idx)
		}
	}
	if !containsID(s.buckets[answerIndex], teamID) {
		s.buckets[answerIndex] = append(s.buckets[answerIndex], teamID)
	}

	s.scoresValid = false
	s.lastErr = ""
	s.broadcastLocked()
	return true
}

// AssignmentBuckets returns a copy of the transient answerIndex to team-id
// map for the active question.
func (s *Session) AssignmentBuckets() map[int][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int][]string, len(s.buckets))
	for idx, ids := range s.buckets {
		out[idx] = append([]string(nil), ids...)
	}
	return out
}

// TeamAnswers returns a copy of all recorded team answers.
func (s *Session) TeamAnswers() []domain.TeamAnswer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TeamAnswer, len(s.teamAnswers))
	copy(out, s.teamAnswers)
	return out
}

// CanProceed reports whether every team has an answer for the active
// question. An empty roster never satisfies the gate.
func (s *Session) CanProceed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return validate.AllTeamsAssigned(s.buckets, len(s.teams)).Valid
}

// Proceed advances to the next question once all teams are assigned, clearing
// the assignment buckets. On the last question it instead sets the completion
// flag and returns false; callers distinguish "blocked" from "finished" by
// checking Completed after a false return.
func (s *Session) Proceed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res := validate.AllTeamsAssigned(s.buckets, len(s.teams)); !res.Valid {
		s.lastErr = res.Errors[0]
		return false
	}

	if s.current >= len(s.questions)-1 {
		s.completed = true
		s.endedAt = s.now()
		s.lastErr = ""
		s.broadcastLocked()
		return false
	}

	s.current++
	s.buckets = make(map[int][]string)
	s.lastErr = ""
	return true
}

// RecordParticipantAnswer is intentionally a no-op: participant mode records
// nothing and accrues no score. The call is accepted so navigation flows do
// not branch on it.
func (s *Session) RecordParticipantAnswer(int) bool {
	return true
}

// ParticipantScore always reports zero; participant mode is non-scoring.
func (s *Session) ParticipantScore() int {
	return 0
}

// ParticipantAnswers returns the participant answer array. Slots stay at the
// unanswered sentinel for the whole run.
func (s *Session) ParticipantAnswers() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.participant))
	copy(out, s.participant)
	return out
}

// NextQuestion moves forward one question, bounds permitting. Navigation
// never depends on whether the question was answered.
func (s *Session) NextQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current+1 >= len(s.questions) {
		return false
	}
	s.current++
	return true
}

// PreviousQuestion moves back one question, bounds permitting.
func (s *Session) PreviousQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current <= 0 {
		return false
	}
	s.current--
	return true
}

// GoToQuestion jumps to an arbitrary question index, bounds permitting.
func (s *Session) GoToQuestion(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.questions) {
		return false
	}
	s.current = i
	return true
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
