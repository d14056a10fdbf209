package domain

import "time"

// Mode selects how answers are recorded for the running quiz.
type Mode string

const (
	// ModeHost is the facilitator mode: answers are assigned to teams.
	ModeHost Mode = "host"
	// ModeParticipant is the free-navigation individual mode.
	ModeParticipant Mode = "participant"
)

// Unanswered marks a slot in the participant answer array that has no answer.
const Unanswered = -1

// SnapshotVersion is the current persisted-session format version.
const SnapshotVersion = 1

// Question is one catalog entry. Immutable once loaded.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Answers      []string `json:"answers"`
	CorrectIndex int      `json:"correctIndex"`
	Category     string   `json:"category,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Team is a scoring unit in host mode. Score is derived, never authoritative.
type Team struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Color string `json:"color,omitempty"`
}

// TeamAnswer records one team's answer to one question. There is at most one
// record per (question, team) pair; assignment is an upsert.
type TeamAnswer struct {
	QuestionID  string `json:"questionId"`
	TeamID      string `json:"teamId"`
	AnswerIndex int    `json:"answerIndex"`
	Correct     bool   `json:"isCorrect"`
}

// Snapshot is the persisted form of a session. It is structurally looser than
// the live aggregate and must pass (or be repaired by) validation before use.
type Snapshot struct {
	Mode                 Mode         `json:"userMode"`
	Teams                []Team       `json:"teams"`
	TeamAnswers          []TeamAnswer `json:"teamAnswers"`
	CurrentQuestionIndex int          `json:"currentQuestionIndex"`
	Timestamp            time.Time    `json:"timestamp"`
	Version              int          `json:"version"`
}

// TeamScore is one team's derived score.
type TeamScore struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}

// TeamRanking is a scored team with its 1-based sequential rank. Tied scores
// still receive distinct ranks.
type TeamRanking struct {
	Rank   int    `json:"rank"`
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Color  string `json:"color,omitempty"`
}

// SubmittedAnswer is a team answer resolved to a team name for result views.
type SubmittedAnswer struct {
	TeamName    string `json:"teamName"`
	AnswerIndex int    `json:"answerIndex"`
	Correct     bool   `json:"isCorrect"`
}

// QuestionResult summarizes one question after (or during) a run.
type QuestionResult struct {
	QuestionID   string            `json:"questionId"`
	CorrectIndex int               `json:"correctIndex"`
	Answers      []SubmittedAnswer `json:"answers"`
}

// RouteState is the read-only surface the routing collaborator consults
// before entering a quiz or results view. The core never navigates itself.
type RouteState struct {
	TeamCount     int  `json:"teamCount"`
	QuestionCount int  `json:"questionCount"`
	Completed     bool `json:"isCompleted"`
	Mode          Mode `json:"userMode"`
}

// RunStats is one completed run recorded into the statistics bucket.
type RunStats struct {
	Winner        string    `json:"winner,omitempty"`
	TeamCount     int       `json:"teamCount"`
	QuestionCount int       `json:"questionCount"`
	FinishedAt    time.Time `json:"finishedAt"`
}
