package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/logging"
)

var log = logging.MustGetLogger("service")

// planServiceImpl implements the PlanService interface
type planServiceImpl struct {
	sessions SessionManager
	courses  CourseManager
	planner  *planner.Planner
	history  HistoryStore
	journal  Journal
	mu       sync.RWMutex
}

// Option configures the plan service
type Option func(*planServiceImpl)

// WithHistoryStore records every plan in a cross-session store
func WithHistoryStore(h HistoryStore) Option {
	return func(s *planServiceImpl) { s.history = h }
}

// WithJournal appends every full plan to a journal
func WithJournal(j Journal) Option {
	return func(s *planServiceImpl) { s.journal = j }
}

// NewPlanService creates a new plan service instance
func NewPlanService(sessions SessionManager, courses CourseManager, opts ...Option) PlanService {
	s := &planServiceImpl{
		sessions: sessions,
		courses:  courses,
		planner:  planner.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a session from a course file, or from the default
// course when courseName is empty
func (s *planServiceImpl) CreateSession(ctx context.Context, courseName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var course *Course
	if courseName != "" {
		var err error
		if course, err = s.courses.LoadCourse(courseName); err != nil {
			return nil, fmt.Errorf("failed to load course %s: %w", courseName, err)
		}
	} else {
		course = s.courses.GetDefault()
		courseName = course.Name
	}

	sess, err := s.sessions.Create("", courseName, course)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.Infof("session %s created from course %s", sess.ID, courseName)
	return sessionInfo(sess), nil
}

// GetSession retrieves session information. It marks the session used, so it
// takes the write lock.
func (s *planServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *planServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *planServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Delete(sessionID)
}

// UpdateRound replaces the recognized round of a session
func (s *planServiceImpl) UpdateRound(ctx context.Context, sessionID string, round planner.Round) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := round.Board(); err != nil {
		return nil, err
	}

	sess.Round = round
	s.touch(sessionID)
	if err := s.sessions.Save(sessionID); err != nil {
		log.Warningf("failed to persist session %s: %v", sessionID, err)
	}
	return sessionInfo(sess), nil
}

// PlanSession plans the session's round and appends the plan to its history
func (s *planServiceImpl) PlanSession(ctx context.Context, sessionID string) (*PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)

	result, err := s.plan(ctx, sess.ID, sess.Round)
	if err != nil {
		return nil, err
	}
	s.appendRecord(sess, result.Record)
	return result, nil
}

// PlanBingo runs the cross circle solver on the session's round
func (s *planServiceImpl) PlanBingo(ctx context.Context, sessionID string, first board.CircleID) (*BingoResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)

	plan, err := s.planner.PlanBingo(ctx, sess.Round, first)
	if err != nil {
		return nil, err
	}
	rec := &PlanRecord{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		Kind:      "bingo",
		Commands:  plan.Commands,
		Cost:      plan.Bingo.Cost,
		Legs:      len(plan.Bingo.Legs),
		Achieved:  true,
		CreatedAt: time.Now(),
	}
	s.archive(ctx, rec, plan)
	s.appendRecord(sess, rec)
	return &BingoResult{Record: rec, Plan: plan}, nil
}

// Plan plans a round without a session
func (s *planServiceImpl) Plan(ctx context.Context, round planner.Round) (*PlanResult, error) {
	return s.plan(ctx, "", round)
}

func (s *planServiceImpl) plan(ctx context.Context, sessionID string, round planner.Round) (*PlanResult, error) {
	plan, err := s.planner.Plan(ctx, round)
	if err != nil {
		return nil, err
	}
	rec := &PlanRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      "plan",
		Commands:  plan.Commands,
		Cost:      plan.Cost,
		Legs:      len(plan.Legs),
		Achieved:  plan.Achieved,
		CreatedAt: time.Now(),
	}
	s.archive(ctx, rec, plan)

	b, err := round.Board()
	if err != nil {
		return nil, err
	}
	return &PlanResult{Record: rec, Plan: plan, Board: b.String()}, nil
}

// archive writes the record to the history store and the full plan to the
// journal. Failures are logged, the plan itself stands.
func (s *planServiceImpl) archive(ctx context.Context, rec *PlanRecord, plan any) {
	if s.history != nil {
		if err := s.history.Record(ctx, rec); err != nil {
			log.Warningf("failed to record plan %s: %v", rec.ID, err)
		}
	}
	if s.journal != nil {
		entry := struct {
			Record *PlanRecord `json:"record"`
			Plan   any         `json:"plan"`
		}{rec, plan}
		if err := s.journal.Write(entry); err != nil {
			log.Warningf("failed to journal plan %s: %v", rec.ID, err)
		}
	}
}

func (s *planServiceImpl) appendRecord(sess *Session, rec *PlanRecord) {
	sess.Plans = append(sess.Plans, rec)
	if err := s.sessions.Save(sess.ID); err != nil {
		log.Warningf("failed to persist session %s: %v", sess.ID, err)
	}
	log.Infof("session %s: %s %s cost %d", sess.ID, rec.Kind, rec.ID, rec.Cost)
}

func (s *planServiceImpl) touch(sessionID string) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		log.Warningf("failed to update session %s: %v", sessionID, err)
	}
}

// GetHistory returns the session's plans, paginated
func (s *planServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	return paginate(sess.Plans, opts), nil
}

// maxPageSize caps HistoryOptions.Limit
const maxPageSize = 100

// paginate slices records into one page. Records are stored oldest first;
// the "desc" order (the default) pages from the newest.
func paginate(records []*PlanRecord, opts HistoryOptions) *HistoryResponse {
	size := opts.Limit
	if size <= 0 {
		size = 20
	}
	size = min(size, maxPageSize)
	page := max(opts.Page, 1)

	total := len(records)
	pages := max((total+size-1)/size, 1)

	from := min((page-1)*size, total)
	to := min(from+size, total)

	out := make([]*PlanRecord, 0, to-from)
	if opts.Order == "asc" {
		out = append(out, records[from:to]...)
	} else {
		for i := from; i < to; i++ {
			out = append(out, records[total-1-i])
		}
	}

	return &HistoryResponse{
		Plans:       out,
		TotalPlans:  total,
		Page:        page,
		PageSize:    size,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}
}

// RecentPlans lists the latest plans of every session from the history store
func (s *planServiceImpl) RecentPlans(ctx context.Context, limit int) ([]*PlanRecord, error) {
	if s.history == nil {
		return []*PlanRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.history.Recent(ctx, limit)
}

// Opcodes returns the instruction translation table
func (s *planServiceImpl) Opcodes(ctx context.Context) []command.Translation {
	return command.Table()
}

// Translate describes each opcode of an instruction string
func (s *planServiceImpl) Translate(ctx context.Context, commands string) ([]command.Translation, error) {
	steps, err := command.Parse(commands)
	if err != nil {
		return nil, err
	}
	return command.TranslateAll(steps)
}

// ListCourses returns available course files
func (s *planServiceImpl) ListCourses(ctx context.Context) ([]*CourseInfo, error) {
	return s.courses.ListCourses()
}

// LoadCourse loads a specific course file
func (s *planServiceImpl) LoadCourse(ctx context.Context, courseName string) (*Course, error) {
	return s.courses.LoadCourse(courseName)
}

// SaveCourse validates and saves a course file
func (s *planServiceImpl) SaveCourse(ctx context.Context, courseName string, course *Course) error {
	if course.Name == "" {
		course.Name = courseName
	}
	return s.courses.SaveCourse(courseName, course)
}

func sessionInfo(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		CourseName:     sess.CourseName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Round:          sess.Round,
		PlanCount:      len(sess.Plans),
	}
	if b, err := sess.Round.Board(); err == nil {
		info.Board = b.String()
	}
	return info
}
