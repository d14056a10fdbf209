// Package validate holds the pure validation functions for the quiz session:
// team names and objects, answer assignments, modes, mode/data compatibility,
// and persisted snapshots. Nothing here mutates state or touches I/O.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
)

const (
	// MaxTeamNameLength bounds a team name after trimming.
	MaxTeamNameLength = 50
	// MaxTeams bounds the roster size.
	MaxTeams = 20

	// similarityWarnFloor is the exclusive lower bound of the near-duplicate
	// warning band; names with similarity in (floor, 1.0) warn but pass.
	similarityWarnFloor = 0.8
)

var (
	forbiddenNameChars = regexp.MustCompile(`[<>{}\[\]/\\]`)
	hexColorPattern    = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// Result is the outcome of one validation. Warnings never fail a check.
type Result struct {
	Valid    bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
}

func ok() Result {
	return Result{Valid: true, Errors: []string{}}
}

func fail(msgs ...string) Result {
	return Result{Valid: false, Errors: msgs}
}

// TeamName checks a candidate name against the current roster. excludeID
// leaves one team (the one being renamed) out of the duplicate check.
func TeamName(name string, roster []domain.Team, excludeID string) Result {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fail("team name must not be empty")
	}
	if len([]rune(trimmed)) > MaxTeamNameLength {
		return fail(fmt.Sprintf("team name must be at most %d characters", MaxTeamNameLength))
	}
	if forbiddenNameChars.MatchString(trimmed) {
		return fail("team name contains forbidden characters")
	}

	res := ok()
	lowered := strings.ToLower(trimmed)
	for _, team := range roster {
		if team.ID == excludeID {
			continue
		}
		other := strings.ToLower(strings.TrimSpace(team.Name))
		if other == lowered {
			return fail(fmt.Sprintf("a team named %q already exists", team.Name))
		}
		if sim := similarity(lowered, other); sim > similarityWarnFloor && sim < 1.0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("name is very similar to existing team %q", team.Name))
		}
	}
	return res
}

// Team checks a full team object: required fields, id format, color format.
func Team(t domain.Team) Result {
	var errs []string
	if strings.TrimSpace(t.ID) == "" {
		errs = append(errs, "team id is required")
	} else if strings.ContainsAny(t.ID, " \t\n") {
		errs = append(errs, "team id must not contain whitespace")
	}

	name := strings.TrimSpace(t.Name)
	if name == "" {
		errs = append(errs, "team name is required")
	} else if len([]rune(name)) > MaxTeamNameLength {
		errs = append(errs, fmt.Sprintf("team name must be at most %d characters", MaxTeamNameLength))
	} else if forbiddenNameChars.MatchString(name) {
		errs = append(errs, "team name contains forbidden characters")
	}

	if t.Color != "" && !hexColorPattern.MatchString(t.Color) {
		errs = append(errs, "team color must be a #RGB or #RRGGBB hex value")
	}
	if len(errs) > 0 {
		return fail(errs...)
	}
	return ok()
}

// TeamList checks roster size bounds.
func TeamList(teams []domain.Team) Result {
	if len(teams) > MaxTeams {
		return fail(fmt.Sprintf("at most %d teams are allowed", MaxTeams))
	}
	return ok()
}

// Assignment checks an answer-assignment request against the active question
// and the roster. A repeated assignment for the same (question, team) pair is
// legal (it upserts) but reported as a warning.
func Assignment(question domain.Question, answerIndex int, teamID string, roster []domain.Team, answers []domain.TeamAnswer) Result {
	var errs []string
	if answerIndex < 0 || answerIndex >= len(question.Answers) {
		errs = append(errs, fmt.Sprintf("answer index %d is out of range for question %s", answerIndex, question.ID))
	}
	found := false
	for _, team := range roster {
		if team.ID == teamID {
			found = true
			break
		}
	}
	if !found {
		errs = append(errs, fmt.Sprintf("team %s not found", teamID))
	}
	if len(errs) > 0 {
		return fail(errs...)
	}

	res := ok()
	for _, ans := range answers {
		if ans.QuestionID == question.ID && ans.TeamID == teamID {
			res.Warnings = append(res.Warnings, fmt.Sprintf("team %s already answered question %s; assignment will replace it", teamID, question.ID))
			break
		}
	}
	return res
}

// AllTeamsAssigned reports whether every roster team appears in the current
// question's assignment buckets. An empty roster never counts as covered.
func AllTeamsAssigned(buckets map[int][]string, teamCount int) Result {
	if teamCount == 0 {
		return fail("no teams to assign")
	}
	assigned := make(map[string]struct{})
	for _, ids := range buckets {
		for _, id := range ids {
			assigned[id] = struct{}{}
		}
	}
	if len(assigned) != teamCount {
		return fail("not all teams have been assigned an answer")
	}
	return ok()
}

// Mode checks a raw mode value.
func Mode(raw string) Result {
	switch domain.Mode(raw) {
	case domain.ModeHost, domain.ModeParticipant:
		return ok()
	}
	return fail(fmt.Sprintf("unknown mode %q", raw))
}

// ModeCompatibility checks whether the given mode can host the given data.
// Host mode requires at least one team. Participant mode with leftover team
// answers is valid but warns, since those answers will be discarded.
func ModeCompatibility(mode domain.Mode, teams []domain.Team, answers []domain.TeamAnswer) Result {
	if res := Mode(string(mode)); !res.Valid {
		return res
	}
	switch mode {
	case domain.ModeHost:
		if len(teams) == 0 {
			return fail("host mode requires at least one team")
		}
	case domain.ModeParticipant:
		if len(answers) > 0 {
			res := ok()
			res.Warnings = append(res.Warnings, "switching to participant mode discards existing team answers")
			return res
		}
	}
	return ok()
}

// Snapshot checks a persisted session snapshot structurally.
func Snapshot(s domain.Snapshot) Result {
	var errs []string
	if res := Mode(string(s.Mode)); !res.Valid {
		errs = append(errs, res.Errors...)
	}
	if res := TeamList(s.Teams); !res.Valid {
		errs = append(errs, res.Errors...)
	}
	for i, team := range s.Teams {
		if res := Team(team); !res.Valid {
			errs = append(errs, fmt.Sprintf("team %d: %s", i, strings.Join(res.Errors, "; ")))
		}
	}
	for i, ans := range s.TeamAnswers {
		if ans.QuestionID == "" || ans.TeamID == "" || ans.AnswerIndex < 0 {
			errs = append(errs, fmt.Sprintf("team answer %d is malformed", i))
		}
	}
	if s.CurrentQuestionIndex < 0 {
		errs = append(errs, "current question index must not be negative")
	}
	if s.Timestamp.IsZero() {
		errs = append(errs, "timestamp is missing")
	}
	if s.Version < 1 {
		errs = append(errs, "version is missing")
	}
	if len(errs) > 0 {
		return fail(errs...)
	}
	return ok()
}

// Repair turns an arbitrary (possibly nil) snapshot into a structurally valid
// one: unknown modes default to participant, invalid teams and malformed
// answers are dropped, a negative index clamps to 0, and a missing timestamp
// is regenerated. Repairing an already-valid snapshot changes nothing, so the
// function is idempotent.
func Repair(s *domain.Snapshot, now func() time.Time) domain.Snapshot {
	if now == nil {
		now = time.Now
	}
	repaired := domain.Snapshot{
		Mode:        domain.ModeParticipant,
		Teams:       []domain.Team{},
		TeamAnswers: []domain.TeamAnswer{},
		Version:     domain.SnapshotVersion,
	}
	if s == nil {
		repaired.Timestamp = now()
		return repaired
	}

	if res := Mode(string(s.Mode)); res.Valid {
		repaired.Mode = s.Mode
	}
	for _, team := range s.Teams {
		if res := Team(team); res.Valid {
			repaired.Teams = append(repaired.Teams, team)
		}
	}
	if len(repaired.Teams) > MaxTeams {
		repaired.Teams = repaired.Teams[:MaxTeams]
	}
	kept := make(map[string]struct{}, len(repaired.Teams))
	for _, team := range repaired.Teams {
		kept[team.ID] = struct{}{}
	}
	for _, ans := range s.TeamAnswers {
		if ans.QuestionID == "" || ans.TeamID == "" || ans.AnswerIndex < 0 {
			continue
		}
		if _, ok := kept[ans.TeamID]; !ok {
			continue
		}
		repaired.TeamAnswers = append(repaired.TeamAnswers, ans)
	}
	if s.CurrentQuestionIndex > 0 {
		repaired.CurrentQuestionIndex = s.CurrentQuestionIndex
	}
	if s.Timestamp.IsZero() {
		repaired.Timestamp = now()
	} else {
		repaired.Timestamp = s.Timestamp
	}
	if s.Version >= 1 {
		repaired.Version = s.Version
	}
	return repaired
}

// similarity is a normalized Levenshtein ratio in [0,1]; 1 means equal.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
