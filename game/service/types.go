package service

import (
	"time"

	"github.com/wricardo/blockbingo/game/command"
	"github.com/wricardo/blockbingo/game/planner"
)

// Course is a named round layout stored as a course file
type Course struct {
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	planner.Round `yaml:",inline"`
}

// SessionInfo provides information about a planning session
type SessionInfo struct {
	ID             string        `json:"id"`
	CourseName     string        `json:"course_name"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	Round          planner.Round `json:"round"`
	Board          string        `json:"board"`
	PlanCount      int           `json:"plan_count"`
}

// PlanRecord is the summary of one plan kept in the session history and the
// history store
type PlanRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Kind      string    `json:"kind"` // "plan" or "bingo"
	Commands  string    `json:"commands"`
	Cost      int       `json:"cost"`
	Legs      int       `json:"legs"`
	Achieved  bool      `json:"achieved"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanResult contains a quota plan and its record
type PlanResult struct {
	Record *PlanRecord   `json:"record"`
	Plan   *planner.Plan `json:"plan"`
	Board  string        `json:"board"`
}

// BingoResult contains a cross circle plan and its record
type BingoResult struct {
	Record *PlanRecord        `json:"record"`
	Plan   *planner.BingoPlan `json:"plan"`
}

// PlanEvent is broadcast to session subscribers after each plan
type PlanEvent struct {
	Type      string      `json:"type"` // "plan", "bingo", "round", "deleted"
	SessionID string      `json:"session_id"`
	Record    *PlanRecord `json:"record,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// HistoryOptions configures plan history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated plan history
type HistoryResponse struct {
	Plans       []*PlanRecord `json:"plans"`
	TotalPlans  int           `json:"total_plans"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	TotalPages  int           `json:"total_pages"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
}

// CourseInfo provides information about a course file
type CourseInfo struct {
	Filename    string `json:"filename"`
	CourseID    string `json:"course_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Course      string `json:"course"`
	Tier        string `json:"tier"`
	Blocks      int    `json:"blocks"`
}

// TranslateResult pairs an instruction string with its descriptions
type TranslateResult struct {
	Commands     string                `json:"commands"`
	Translations []command.Translation `json:"translations"`
}
