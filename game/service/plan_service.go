package service

import (
	"context"
	"time"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
	"github.com/wricardo/blockbingo/game/planner"
)

// PlanService defines all planning operations shared by the transports
type PlanService interface {
	// Session Management
	CreateSession(ctx context.Context, courseName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	UpdateRound(ctx context.Context, sessionID string, round planner.Round) (*SessionInfo, error)

	// Planning
	PlanSession(ctx context.Context, sessionID string) (*PlanResult, error)
	PlanBingo(ctx context.Context, sessionID string, first board.CircleID) (*BingoResult, error)
	Plan(ctx context.Context, round planner.Round) (*PlanResult, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	RecentPlans(ctx context.Context, limit int) ([]*PlanRecord, error)

	// Commands
	Opcodes(ctx context.Context) []command.Translation
	Translate(ctx context.Context, commands string) ([]command.Translation, error)

	// Courses
	ListCourses(ctx context.Context) ([]*CourseInfo, error)
	LoadCourse(ctx context.Context, courseName string) (*Course, error)
	SaveCourse(ctx context.Context, courseName string, course *Course) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, courseName string, course *Course) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// CourseManager handles course file loading
type CourseManager interface {
	LoadCourse(name string) (*Course, error)
	ListCourses() ([]*CourseInfo, error)
	GetDefault() *Course
	SaveCourse(name string, course *Course) error
}

// HistoryStore keeps plan records across sessions
type HistoryStore interface {
	Record(ctx context.Context, rec *PlanRecord) error
	Recent(ctx context.Context, limit int) ([]*PlanRecord, error)
}

// Journal appends full plan results to an archive
type Journal interface {
	Write(v any) error
}

// Session is one round being planned: the course it came from, the round as
// currently recognized and the plans made for it.
type Session struct {
	ID             string
	CourseName     string
	Round          planner.Round
	Plans          []*PlanRecord
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
