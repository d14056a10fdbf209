package session

import (
	"strings"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/validate"
)

// CreateTeam adds a team and returns its id, or "" when validation fails.
// Names must be non-empty after trimming, at most 50 characters, free of
// forbidden characters, and unique case-insensitively within the roster.
func (s *Session) CreateTeam(name, color string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.createTeamLocked(name, color)
	if id != "" {
		s.broadcastLocked()
	}
	return id
}

func (s *Session) createTeamLocked(name, color string) string {
	if res := validate.TeamName(name, s.teams, ""); !res.Valid {
		s.lastErr = res.Errors[0]
		return ""
	}
	if res := validate.TeamList(append(s.teams, domain.Team{})); !res.Valid {
		s.lastErr = res.Errors[0]
		return ""
	}

	team := domain.Team{
		ID:    s.newID(),
		Name:  strings.TrimSpace(name),
		Color: color,
	}
	if res := validate.Team(team); !res.Valid {
		s.lastErr = res.Errors[0]
		return ""
	}

	s.teams = append(s.teams, team)
	s.scoresValid = false
	s.lastErr = ""
	return team.ID
}

// EditTeam renames or recolors a team. The team's own current name is
// excluded from the duplicate check.
func (s *Session) EditTeam(id, name, color string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.teamIndexLocked(id)
	if idx < 0 {
		s.lastErr = "team not found"
		return false
	}
	if res := validate.TeamName(name, s.teams, id); !res.Valid {
		s.lastErr = res.Errors[0]
		return false
	}

	updated := s.teams[idx]
	updated.Name = strings.TrimSpace(name)
	updated.Color = color
	if res := validate.Team(updated); !res.Valid {
		s.lastErr = res.Errors[0]
		return false
	}

	s.teams[idx] = updated
	s.lastErr = ""
	s.broadcastLocked()
	return true
}

// DeleteTeam removes a team and cascades: every TeamAnswer for the team is
// removed and the team is purged from every assignment bucket.
func (s *Session) DeleteTeam(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.teamIndexLocked(id)
	if idx < 0 {
		s.lastErr = "team not found"
		return false
	}

	s.teams = append(s.teams[:idx], s.teams[idx+1:]...)

	kept := s.teamAnswers[:0]
	for _, ans := range s.teamAnswers {
		if ans.TeamID != id {
			kept = append(kept, ans)
		}
	}
	s.teamAnswers = kept

	for answerIndex, ids := range s.buckets {
		s.buckets[answerIndex] = removeID(ids, id)
		if len(s.buckets[answerIndex]) == 0 {
			delete(s.buckets, answerIndex)
		}
	}

	s.scoresValid = false
	s.lastErr = ""
	s.broadcastLocked()
	return true
}

// Teams returns a copy of the roster with derived scores filled in.
func (s *Session) Teams() []domain.Team {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := s.scoresLocked()
	out := make([]domain.Team, len(s.teams))
	for i, team := range s.teams {
		team.Score = scores[team.ID]
		out[i] = team
	}
	return out
}

func (s *Session) teamIndexLocked(id string) int {
	for i, team := range s.teams {
		if team.ID == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	kept := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			kept = append(kept, candidate)
		}
	}
	return kept
}
