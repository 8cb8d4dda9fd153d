package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/game/service"
	"github.com/wricardo/blockbingo/logging"
	"github.com/wricardo/blockbingo/transport/websocket"
)

var log = logging.MustGetLogger("api")

var errBadBody = errors.New("invalid request body")

// Server routes the planner REST API, /ws and /health
type Server struct {
	service service.PlanService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, in which case plan
// events are not broadcast and /ws is not served.
func NewServer(planService service.PlanService, hub *websocket.Hub) *Server {
	s := &Server{service: planService, hub: hub, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	for _, r := range []struct {
		method, path string
		handler      http.HandlerFunc
	}{
		{http.MethodPost, "/api/sessions", s.handleCreateSession},
		{http.MethodGet, "/api/sessions", s.handleListSessions},
		{http.MethodGet, "/api/sessions/{id}", s.handleGetSession},
		{http.MethodDelete, "/api/sessions/{id}", s.handleDeleteSession},
		{http.MethodPut, "/api/sessions/{id}/round", s.handleUpdateRound},
		{http.MethodPost, "/api/sessions/{id}/plan", s.handlePlanSession},
		{http.MethodPost, "/api/sessions/{id}/bingo", s.handlePlanBingo},
		{http.MethodGet, "/api/sessions/{id}/history", s.handleGetHistory},
		{http.MethodPost, "/api/plan", s.handlePlan},
		{http.MethodGet, "/api/history", s.handleRecentPlans},
		{http.MethodGet, "/api/opcodes", s.handleOpcodes},
		{http.MethodPost, "/api/translate", s.handleTranslate},
		{http.MethodGet, "/api/courses", s.handleListCourses},
		{http.MethodPost, "/api/courses", s.handleCreateCourse},
		{http.MethodGet, "/api/courses/{name}", s.handleGetCourse},
	} {
		s.router.HandleFunc(r.path, r.handler).Methods(r.method)
	}

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warningf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respond writes data, or the error mapped to its status code
func respond(w http.ResponseWriter, status int, data interface{}, err error) {
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, status, data)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrInvalidIdentifier), errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidConfig),
		errors.Is(err, board.ErrInvalidGeometry),
		errors.Is(err, board.ErrInvalidState),
		errors.Is(err, board.ErrSearchExhausted),
		errors.Is(err, board.ErrSynthesis):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. With optional set an empty body leaves v
// untouched.
func decode(r *http.Request, v interface{}, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return errBadBody
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return nil
	}
	return errBadBody
}

// queryInt reads a positive integer query parameter
func queryInt(r *http.Request, key string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func sessionID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func (s *Server) broadcast(eventType, sessionID string, rec *service.PlanRecord) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastPlan(&service.PlanEvent{
		Type:      eventType,
		SessionID: sessionID,
		Record:    rec,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseID string `json:"course_id,omitempty"`
	}
	// a missing or unreadable body selects the default course
	decode(r, &req, true)

	info, err := s.service.CreateSession(r.Context(), req.CourseID)
	respond(w, http.StatusCreated, info, err)
}

// handleListSessions orders by last access (or ?sort=created), newest first
// unless ?order=asc, and truncates to ?limit
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respond(w, 0, nil, err)
		return
	}

	sortBy, order := "accessed", "desc"
	if r.URL.Query().Get("sort") == "created" {
		sortBy = "created"
	}
	if r.URL.Query().Get("order") == "asc" {
		order = "asc"
	}

	stamp := func(info *service.SessionInfo) time.Time {
		if sortBy == "created" {
			return info.CreatedAt
		}
		return info.LastAccessedAt
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if order == "asc" {
			return stamp(sessions[i]).Before(stamp(sessions[j]))
		}
		return stamp(sessions[i]).After(stamp(sessions[j]))
	})

	total := len(sessions)
	if limit := queryInt(r, "limit", total); limit < total {
		sessions = sessions[:limit]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), sessionID(r))
	respond(w, http.StatusOK, info, err)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := s.service.DeleteSession(r.Context(), id); err != nil {
		respond(w, 0, nil, err)
		return
	}
	s.broadcast("deleted", id, nil)
	respondJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Session %s deleted", id)})
}

func (s *Server) handleUpdateRound(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var round planner.Round
	if err := decode(r, &round, false); err != nil {
		respond(w, 0, nil, err)
		return
	}

	info, err := s.service.UpdateRound(r.Context(), id, round)
	if err == nil {
		s.broadcast("round", id, nil)
	}
	respond(w, http.StatusOK, info, err)
}

func (s *Server) handlePlanSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	result, err := s.service.PlanSession(r.Context(), id)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	s.broadcast("plan", id, result.Record)

	log.Infof("[PLAN] session=%s cost=%d legs=%d achieved=%v", id, result.Record.Cost, result.Record.Legs, result.Record.Achieved)
	respondJSON(w, http.StatusOK, result)
}

// handlePlanBingo takes {"first": n}; without it the bingo starts at the
// color circle
func (s *Server) handlePlanBingo(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	var req struct {
		First board.CircleID `json:"first"`
	}
	if err := decode(r, &req, true); err != nil {
		respond(w, 0, nil, err)
		return
	}

	result, err := s.service.PlanBingo(r.Context(), id, req.First)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	s.broadcast("bingo", id, result.Record)

	log.Infof("[BINGO] session=%s first=%d cost=%d legs=%d", id, req.First, result.Record.Cost, result.Record.Legs)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var round planner.Round
	if err := decode(r, &round, false); err != nil {
		respond(w, 0, nil, err)
		return
	}
	result, err := s.service.Plan(r.Context(), round)
	respond(w, http.StatusOK, result, err)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 20),
		Order: "desc",
	}
	if r.URL.Query().Get("order") == "asc" {
		opts.Order = "asc"
	}

	history, err := s.service.GetHistory(r.Context(), sessionID(r), opts)
	respond(w, http.StatusOK, history, err)
}

func (s *Server) handleRecentPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.service.RecentPlans(r.Context(), queryInt(r, "limit", 20))
	respond(w, http.StatusOK, map[string]interface{}{"count": len(plans), "plans": plans}, err)
}

func (s *Server) handleOpcodes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Opcodes(r.Context()))
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Commands string `json:"commands"`
	}
	if err := decode(r, &req, false); err != nil {
		respond(w, 0, nil, err)
		return
	}

	translations, err := s.service.Translate(r.Context(), req.Commands)
	respond(w, http.StatusOK, service.TranslateResult{Commands: req.Commands, Translations: translations}, err)
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.service.ListCourses(r.Context())
	respond(w, http.StatusOK, courses, err)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := s.service.LoadCourse(r.Context(), mux.Vars(r)["name"])
	respond(w, http.StatusOK, course, err)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var course service.Course
	if err := decode(r, &course, false); err != nil {
		respond(w, 0, nil, err)
		return
	}
	if course.Name = strings.TrimSpace(course.Name); course.Name == "" {
		respondError(w, http.StatusBadRequest, "Course name is required")
		return
	}

	err := s.service.SaveCourse(r.Context(), course.Name, &course)
	respond(w, http.StatusCreated, map[string]interface{}{
		"message":   "Course saved successfully",
		"course_id": course.Name,
	}, err)
}

// handleWebSocket subscribes to ?session=<id>, which must exist
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}

	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if _, err := s.service.GetSession(r.Context(), id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	s.hub.ServeWS(w, r, id)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
