package session

import (
	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
	"github.com/kevinbarfleur/cinequiz-sub000/internal/validate"
)

// defaultTeamName seeds the roster when host mode is entered without teams.
const defaultTeamName = "Team 1"

// SetMode switches between host and participant mode. Unknown values are
// rejected with state unchanged. Entering host with an empty roster
// synthesizes one default team; if that creation fails the whole transition
// rolls back. Entering participant discards all team answers but keeps the
// roster. Every transition clears the transient assignment buckets.
func (s *Session) SetMode(raw string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res := validate.Mode(raw); !res.Valid {
		s.lastErr = res.Errors[0]
		return false
	}
	mode := domain.Mode(raw)
	prev := s.mode

	if mode == domain.ModeHost && len(s.teams) == 0 {
		s.mode = mode
		if id := s.createTeamLocked(defaultTeamName, ""); id == "" {
			s.mode = prev
			s.lastErr = domain.ErrModeCompatibility.Error() + ": could not create a default team"
			return false
		}
	} else {
		s.mode = mode
	}

	if mode == domain.ModeParticipant && len(s.teamAnswers) > 0 {
		s.teamAnswers = nil
		s.scoresValid = false
	}

	s.buckets = make(map[int][]string)
	s.lastErr = ""
	s.broadcastLocked()
	return true
}
