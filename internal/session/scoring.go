package session

import (
	"sort"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
)

// unknownTeamName substitutes for answers whose team was deleted after the
// answer record was written.
const unknownTeamName = "Unknown team"

// TeamScores returns each roster team's correct-answer count, in roster
// order. Scores are cached and only recomputed after a structural change.
func (s *Session) TeamScores() []domain.TeamScore {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := s.scoresLocked()
	out := make([]domain.TeamScore, len(s.teams))
	for i, team := range s.teams {
		out[i] = domain.TeamScore{TeamID: team.ID, Name: team.Name, Score: scores[team.ID]}
	}
	return out
}

// TeamRankings sorts teams by score descending, ties broken by name
// ascending, and assigns strict sequential 1..N ranks. Tied scores still get
// distinct ranks.
func (s *Session) TeamRankings() []domain.TeamRanking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rankingsLocked()
}

// QuestionResults lists, for every loaded question in load order, the correct
// index and the submitted team answers resolved to team names.
func (s *Session) QuestionResults() []domain.QuestionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[string]string, len(s.teams))
	for _, team := range s.teams {
		names[team.ID] = team.Name
	}

	byQuestion := make(map[string][]domain.SubmittedAnswer, len(s.questions))
	for _, ans := range s.teamAnswers {
		name, ok := names[ans.TeamID]
		if !ok {
			name = unknownTeamName
		}
		byQuestion[ans.QuestionID] = append(byQuestion[ans.QuestionID], domain.SubmittedAnswer{
			TeamName:    name,
			AnswerIndex: ans.AnswerIndex,
			Correct:     ans.Correct,
		})
	}

	out := make([]domain.QuestionResult, len(s.questions))
	for i, q := range s.questions {
		out[i] = domain.QuestionResult{
			QuestionID:   q.ID,
			CorrectIndex: q.CorrectIndex,
			Answers:      byQuestion[q.ID],
		}
	}
	return out
}

// scoresLocked returns the cached teamID to score map, recomputing it once
// after an invalidation. Repeated reads stay O(teams) rather than
// O(teams x answers).
func (s *Session) scoresLocked() map[string]int {
	if s.scoresValid {
		return s.scores
	}
	scores := make(map[string]int, len(s.teams))
	for _, team := range s.teams {
		scores[team.ID] = 0
	}
	for _, ans := range s.teamAnswers {
		if !ans.Correct {
			continue
		}
		if _, ok := scores[ans.TeamID]; ok {
			scores[ans.TeamID]++
		}
	}
	s.scores = scores
	s.scoresValid = true
	return scores
}

func (s *Session) rankingsLocked() []domain.TeamRanking {
	scores := s.scoresLocked()
	out := make([]domain.TeamRanking, len(s.teams))
	for i, team := range s.teams {
		out[i] = domain.TeamRanking{
			TeamID: team.ID,
			Name:   team.Name,
			Score:  scores[team.ID],
			Color:  team.Color,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
