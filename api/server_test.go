package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
	"github.com/wricardo/blockbingo/game/config"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/game/service"
	"github.com/wricardo/blockbingo/game/session"
	"github.com/wricardo/blockbingo/transport/websocket"
)

// MockPlanService implements service.PlanService for testing
type MockPlanService struct {
	CreateSessionFunc func(ctx context.Context, courseName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error
	UpdateRoundFunc   func(ctx context.Context, sessionID string, round planner.Round) (*service.SessionInfo, error)

	PlanSessionFunc func(ctx context.Context, sessionID string) (*service.PlanResult, error)
	PlanBingoFunc   func(ctx context.Context, sessionID string, first board.CircleID) (*service.BingoResult, error)
	PlanFunc        func(ctx context.Context, round planner.Round) (*service.PlanResult, error)
	GetHistoryFunc  func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	RecentPlansFunc func(ctx context.Context, limit int) ([]*service.PlanRecord, error)

	TranslateFunc func(ctx context.Context, commands string) ([]command.Translation, error)

	ListCoursesFunc func(ctx context.Context) ([]*service.CourseInfo, error)
	LoadCourseFunc  func(ctx context.Context, courseName string) (*service.Course, error)
	SaveCourseFunc  func(ctx context.Context, courseName string, course *service.Course) error
}

func (m *MockPlanService) CreateSession(ctx context.Context, courseName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, courseName)
	}
	return &service.SessionInfo{ID: "test-session", CourseName: courseName, CreatedAt: time.Now()}, nil
}

func (m *MockPlanService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, CourseName: "test-course", CreatedAt: time.Now()}, nil
}

func (m *MockPlanService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockPlanService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockPlanService) UpdateRound(ctx context.Context, sessionID string, round planner.Round) (*service.SessionInfo, error) {
	if m.UpdateRoundFunc != nil {
		return m.UpdateRoundFunc(ctx, sessionID, round)
	}
	return &service.SessionInfo{ID: sessionID, Round: round}, nil
}

func (m *MockPlanService) PlanSession(ctx context.Context, sessionID string) (*service.PlanResult, error) {
	if m.PlanSessionFunc != nil {
		return m.PlanSessionFunc(ctx, sessionID)
	}
	return &service.PlanResult{Record: &service.PlanRecord{ID: "p1", SessionID: sessionID, Kind: "plan"}}, nil
}

func (m *MockPlanService) PlanBingo(ctx context.Context, sessionID string, first board.CircleID) (*service.BingoResult, error) {
	if m.PlanBingoFunc != nil {
		return m.PlanBingoFunc(ctx, sessionID, first)
	}
	return &service.BingoResult{Record: &service.PlanRecord{ID: "b1", SessionID: sessionID, Kind: "bingo"}}, nil
}

func (m *MockPlanService) Plan(ctx context.Context, round planner.Round) (*service.PlanResult, error) {
	if m.PlanFunc != nil {
		return m.PlanFunc(ctx, round)
	}
	return &service.PlanResult{Record: &service.PlanRecord{ID: "p1", Kind: "plan"}}, nil
}

func (m *MockPlanService) GetHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Plans: []*service.PlanRecord{}, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
}

func (m *MockPlanService) RecentPlans(ctx context.Context, limit int) ([]*service.PlanRecord, error) {
	if m.RecentPlansFunc != nil {
		return m.RecentPlansFunc(ctx, limit)
	}
	return []*service.PlanRecord{}, nil
}

func (m *MockPlanService) Opcodes(ctx context.Context) []command.Translation {
	return command.Table()
}

func (m *MockPlanService) Translate(ctx context.Context, commands string) ([]command.Translation, error) {
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, commands)
	}
	steps, err := command.Parse(commands)
	if err != nil {
		return nil, err
	}
	return command.TranslateAll(steps)
}

func (m *MockPlanService) ListCourses(ctx context.Context) ([]*service.CourseInfo, error) {
	if m.ListCoursesFunc != nil {
		return m.ListCoursesFunc(ctx)
	}
	return []*service.CourseInfo{}, nil
}

func (m *MockPlanService) LoadCourse(ctx context.Context, courseName string) (*service.Course, error) {
	if m.LoadCourseFunc != nil {
		return m.LoadCourseFunc(ctx, courseName)
	}
	return &service.Course{Name: courseName, Description: "Test course"}, nil
}

func (m *MockPlanService) SaveCourse(ctx context.Context, courseName string, course *service.Course) error {
	if m.SaveCourseFunc != nil {
		return m.SaveCourseFunc(ctx, courseName, course)
	}
	return nil
}

// Test helpers
func setupTestServer(t *testing.T, svc service.PlanService) (*Server, *websocket.Hub) {
	t.Helper()
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return NewServer(svc, hub), hub
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	parseResponse(t, w, &resp)
	return resp["error"]
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("failed to load course x: %w", service.ErrConfigNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: unknown key", board.ErrInvalidIdentifier), http.StatusBadRequest},
		{errBadBody, http.StatusBadRequest},
		{service.ErrInvalidConfig, http.StatusUnprocessableEntity},
		{board.ErrInvalidGeometry, http.StatusUnprocessableEntity},
		{board.ErrInvalidState, http.StatusUnprocessableEntity},
		{board.ErrSearchExhausted, http.StatusUnprocessableEntity},
		{board.ErrSynthesis, http.StatusUnprocessableEntity},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, got)
			}
		})
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    map[string]string
		setupMock      func(*MockPlanService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Create session with default course",
			setupMock: func(m *MockPlanService) {
				m.CreateSessionFunc = func(ctx context.Context, courseName string) (*service.SessionInfo, error) {
					if courseName != "" {
						t.Errorf("Expected empty course name, got %s", courseName)
					}
					return &service.SessionInfo{ID: "ab12", CourseName: "default"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with specific course",
			requestBody: map[string]string{"course_id": "bingo"},
			setupMock: func(m *MockPlanService) {
				m.CreateSessionFunc = func(ctx context.Context, courseName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "cd34", CourseName: courseName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.CourseName != "bingo" {
					t.Errorf("Expected course name 'bingo', got %s", resp.CourseName)
				}
			},
		},
		{
			name:        "Unknown course",
			requestBody: map[string]string{"course_id": "missing"},
			setupMock: func(m *MockPlanService) {
				m.CreateSessionFunc = func(ctx context.Context, courseName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("failed to load course %s: %w", courseName, service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockPlanService) {
				m.CreateSessionFunc = func(ctx context.Context, courseName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != "service error" {
					t.Errorf("Expected error message 'service error', got %s", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPlanService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server, _ := setupTestServer(t, mockService)
			w := serve(server, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	mockService := &MockPlanService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{
				{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now},
				{ID: "new", CreatedAt: now, LastAccessedAt: now.Add(-time.Hour)},
				{ID: "mid", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-30 * time.Minute)},
			}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	tests := []struct {
		name      string
		query     string
		wantIDs   []string
		wantTotal int
	}{
		{"default sorts by last access", "", []string{"old", "mid", "new"}, 3},
		{"created ascending", "?sort=created&order=asc", []string{"old", "mid", "new"}, 3},
		{"created descending", "?sort=created", []string{"new", "mid", "old"}, 3},
		{"limit", "?sort=created&limit=1", []string{"new"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.wantTotal {
				t.Errorf("Expected total %d, got %d", tt.wantTotal, resp.Total)
			}
			if resp.Count != len(tt.wantIDs) {
				t.Fatalf("Expected count %d, got %d", len(tt.wantIDs), resp.Count)
			}
			for i, id := range tt.wantIDs {
				if resp.Sessions[i].ID != id {
					t.Errorf("Expected session %d to be %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockPlanService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, service.ErrSessionNotFound
			}
			return &service.SessionInfo{ID: sessionID, CourseName: "default"}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "ab12" {
				return service.ErrSessionNotFound
			}
			return nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"get existing", "GET", "/api/sessions/ab12", http.StatusOK},
		{"get missing", "GET", "/api/sessions/zz99", http.StatusNotFound},
		{"delete existing", "DELETE", "/api/sessions/ab12", http.StatusOK},
		{"delete missing", "DELETE", "/api/sessions/zz99", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}

	w := serve(server, makeRequest("GET", "/api/sessions/zz99", nil))
	if msg := errorMessage(t, w); msg != "session not found" {
		t.Errorf("Expected error 'session not found', got %s", msg)
	}
}

func TestUpdateRound(t *testing.T) {
	mockService := &MockPlanService{
		UpdateRoundFunc: func(ctx context.Context, sessionID string, round planner.Round) (*service.SessionInfo, error) {
			if round.Bonus == round.Black {
				return nil, fmt.Errorf("%w: bonus and black circles coincide", board.ErrInvalidState)
			}
			return &service.SessionInfo{ID: sessionID, Round: round}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	t.Run("valid round", func(t *testing.T) {
		body := map[string]interface{}{
			"course": "right", "bonus": 2, "black": 7, "color": 4,
			"blocks": map[string]string{"c11": "red"},
		}
		w := serve(server, makeRequest("PUT", "/api/sessions/ab12/round", body))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp service.SessionInfo
		parseResponse(t, w, &resp)
		if resp.Round.Course != board.Right || resp.Round.Blocks["c11"] != board.Red {
			t.Errorf("Round not decoded: %+v", resp.Round)
		}
	})

	t.Run("rejected round", func(t *testing.T) {
		body := map[string]interface{}{"course": "left", "bonus": 3, "black": 3, "color": 5}
		w := serve(server, makeRequest("PUT", "/api/sessions/ab12/round", body))
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected status 422, got %d", w.Code)
		}
	})

	t.Run("unknown color", func(t *testing.T) {
		body := map[string]interface{}{"course": "left", "bonus": 6, "black": 3, "color": 5, "blocks": map[string]string{"c11": "purple"}}
		w := serve(server, makeRequest("PUT", "/api/sessions/ab12/round", body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

// Planning Tests

func TestPlanSession(t *testing.T) {
	tests := []struct {
		name           string
		planErr        error
		expectedStatus int
	}{
		{"planned", nil, http.StatusOK},
		{"missing session", service.ErrSessionNotFound, http.StatusNotFound},
		{"unreachable block", fmt.Errorf("leg to circle 3: %w", board.ErrSearchExhausted), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPlanService{
				PlanSessionFunc: func(ctx context.Context, sessionID string) (*service.PlanResult, error) {
					if tt.planErr != nil {
						return nil, tt.planErr
					}
					return &service.PlanResult{
						Record: &service.PlanRecord{ID: "p1", SessionID: sessionID, Kind: "plan", Commands: "a c g", Cost: 3, Achieved: true},
					}, nil
				},
			}
			server, _ := setupTestServer(t, mockService)

			w := serve(server, makeRequest("POST", "/api/sessions/ab12/plan", nil))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.planErr != nil {
				return
			}

			var resp service.PlanResult
			parseResponse(t, w, &resp)
			if resp.Record.Commands != "a c g" || !resp.Record.Achieved {
				t.Errorf("Unexpected record %+v", resp.Record)
			}
		})
	}
}

func TestPlanBingo(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		rawBody        string
		expectedFirst  board.CircleID
		expectedStatus int
	}{
		{name: "empty body uses the color circle", expectedFirst: 0, expectedStatus: http.StatusOK},
		{name: "explicit first circle", body: map[string]int{"first": 3}, expectedFirst: 3, expectedStatus: http.StatusOK},
		{name: "malformed body", rawBody: "{first", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFirst board.CircleID
			mockService := &MockPlanService{
				PlanBingoFunc: func(ctx context.Context, sessionID string, first board.CircleID) (*service.BingoResult, error) {
					gotFirst = first
					return &service.BingoResult{Record: &service.PlanRecord{ID: "b1", Kind: "bingo", Legs: 8}}, nil
				},
			}
			server, _ := setupTestServer(t, mockService)

			req := makeRequest("POST", "/api/sessions/ab12/bingo", tt.body)
			if tt.rawBody != "" {
				req = httptest.NewRequest("POST", "/api/sessions/ab12/bingo", strings.NewReader(tt.rawBody))
			}
			w := serve(server, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK && gotFirst != tt.expectedFirst {
				t.Errorf("Expected first circle %d, got %d", tt.expectedFirst, gotFirst)
			}
		})
	}
}

func TestPlanStateless(t *testing.T) {
	var got planner.Round
	mockService := &MockPlanService{
		PlanFunc: func(ctx context.Context, round planner.Round) (*service.PlanResult, error) {
			got = round
			return &service.PlanResult{Record: &service.PlanRecord{ID: "p1", Kind: "plan"}}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	body := `{"course":"left","bonus":6,"black":3,"color":5,"tier":"double","blocks":{"c30":"red"},"start":{"coord":{"row":6,"col":1},"heading":"north"}}`
	w := serve(server, httptest.NewRequest("POST", "/api/plan", strings.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got.Bonus != 6 || got.Blocks["c30"] != board.Red || got.Tier.String() != "double" {
		t.Errorf("Round not decoded: %+v", got)
	}
	if got.Start == nil || got.Start.Heading != board.North || got.Start.Coord != (board.Coord{Row: 6, Col: 1}) {
		t.Errorf("Start pose not decoded: %+v", got.Start)
	}

	w = serve(server, httptest.NewRequest("POST", "/api/plan", strings.NewReader("not json")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantOpts service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"custom", "?page=2&limit=5&order=asc", service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}},
		{"invalid values fall back", "?page=-1&limit=abc&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockPlanService{
				GetHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{Plans: []*service.PlanRecord{}}, nil
				},
			}
			server, _ := setupTestServer(t, mockService)

			w := serve(server, makeRequest("GET", "/api/sessions/ab12/history"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			if got != tt.wantOpts {
				t.Errorf("Expected options %+v, got %+v", tt.wantOpts, got)
			}
		})
	}
}

func TestRecentPlans(t *testing.T) {
	var gotLimit int
	mockService := &MockPlanService{
		RecentPlansFunc: func(ctx context.Context, limit int) ([]*service.PlanRecord, error) {
			gotLimit = limit
			return []*service.PlanRecord{{ID: "p2"}, {ID: "p1"}}, nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	w := serve(server, makeRequest("GET", "/api/history?limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotLimit != 2 {
		t.Errorf("Expected limit 2, got %d", gotLimit)
	}

	var resp struct {
		Count int                   `json:"count"`
		Plans []*service.PlanRecord `json:"plans"`
	}
	parseResponse(t, w, &resp)
	if resp.Count != 2 || resp.Plans[0].ID != "p2" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

// Command Tests

func TestOpcodes(t *testing.T) {
	server, _ := setupTestServer(t, &MockPlanService{})

	w := serve(server, makeRequest("GET", "/api/opcodes", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var table []command.Translation
	parseResponse(t, w, &table)
	if len(table) != len(command.Table()) {
		t.Errorf("Expected %d opcodes, got %d", len(command.Table()), len(table))
	}
	if table[0].Opcode != "a" {
		t.Errorf("Expected table to start with 'a', got %s", table[0].Opcode)
	}
}

func TestTranslate(t *testing.T) {
	server, _ := setupTestServer(t, &MockPlanService{})

	tests := []struct {
		name           string
		commands       string
		expectedStatus int
		expectedCount  int
	}{
		{"spaced", "a c g", http.StatusOK, 3},
		{"packed", "aeg", http.StatusOK, 3},
		{"unknown opcode", "a X", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest("POST", "/api/translate", map[string]string{"commands": tt.commands}))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp service.TranslateResult
			parseResponse(t, w, &resp)
			if len(resp.Translations) != tt.expectedCount {
				t.Errorf("Expected %d translations, got %d", tt.expectedCount, len(resp.Translations))
			}
			if resp.Commands != tt.commands {
				t.Errorf("Expected commands %q echoed, got %q", tt.commands, resp.Commands)
			}
		})
	}
}

// Course Tests

func TestCourses(t *testing.T) {
	var saved *service.Course
	mockService := &MockPlanService{
		ListCoursesFunc: func(ctx context.Context) ([]*service.CourseInfo, error) {
			return []*service.CourseInfo{{CourseID: "default", Name: "default", Tier: "single", Blocks: 2}}, nil
		},
		LoadCourseFunc: func(ctx context.Context, courseName string) (*service.Course, error) {
			if courseName != "default" {
				return nil, fmt.Errorf("%w: %s", service.ErrConfigNotFound, courseName)
			}
			return &service.Course{Name: "default", Round: planner.Round{Course: board.Left, Bonus: 6, Black: 3, Color: 5}}, nil
		},
		SaveCourseFunc: func(ctx context.Context, courseName string, course *service.Course) error {
			if course.Bonus == course.Black {
				return fmt.Errorf("%w: bonus equals black", service.ErrInvalidConfig)
			}
			saved = course
			return nil
		},
	}
	server, _ := setupTestServer(t, mockService)

	t.Run("list", func(t *testing.T) {
		w := serve(server, makeRequest("GET", "/api/courses", nil))
		var courses []*service.CourseInfo
		parseResponse(t, w, &courses)
		if len(courses) != 1 || courses[0].CourseID != "default" {
			t.Errorf("Unexpected courses %+v", courses)
		}
	})

	t.Run("get", func(t *testing.T) {
		w := serve(server, makeRequest("GET", "/api/courses/default", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var course service.Course
		parseResponse(t, w, &course)
		if course.Bonus != 6 || course.Course != board.Left {
			t.Errorf("Unexpected course %+v", course)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		w := serve(server, makeRequest("GET", "/api/courses/nope", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	tests := []struct {
		name           string
		body           map[string]interface{}
		expectedStatus int
	}{
		{"create", map[string]interface{}{"name": "mine", "course": "left", "bonus": 6, "black": 3, "color": 5}, http.StatusCreated},
		{"missing name", map[string]interface{}{"course": "left", "bonus": 6, "black": 3, "color": 5}, http.StatusBadRequest},
		{"invalid course", map[string]interface{}{"name": "bad", "course": "left", "bonus": 3, "black": 3, "color": 5}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(server, makeRequest("POST", "/api/courses", tt.body))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
	if saved == nil || saved.Name != "mine" || saved.Color != 5 {
		t.Errorf("Expected course 'mine' to be saved, got %+v", saved)
	}
}

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t, &MockPlanService{})
	w := serve(server, makeRequest("GET", "/health", nil))

	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected status healthy, got %s", resp["status"])
	}
}

func TestRouteMethods(t *testing.T) {
	server, _ := setupTestServer(t, &MockPlanService{})

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/api/sessions/abc123/plan", http.StatusMethodNotAllowed},
		{"PUT", "/api/sessions", http.StatusMethodNotAllowed},
		{"POST", "/api/opcodes", http.StatusMethodNotAllowed},
		{"DELETE", "/api/courses/golden", http.StatusMethodNotAllowed},
		{"POST", "/health", http.StatusMethodNotAllowed},
		{"GET", "/api/nothing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(server, makeRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

// WebSocket Tests

func TestWebSocket(t *testing.T) {
	mockService := &MockPlanService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "ab12" {
				return nil, service.ErrSessionNotFound
			}
			return &service.SessionInfo{ID: sessionID}, nil
		},
	}
	server, hub := setupTestServer(t, mockService)
	ts := httptest.NewServer(server)
	defer ts.Close()

	t.Run("missing session parameter", func(t *testing.T) {
		w := serve(server, makeRequest("GET", "/ws", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		w := serve(server, makeRequest("GET", "/ws?session=zz99", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("plan events are pushed", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=ab12"
		conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect to WebSocket: %v", err)
		}
		defer conn.Close()

		deadline := time.Now().Add(time.Second)
		for hub.Clients("ab12") != 1 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}

		resp, err := http.Post(ts.URL+"/api/sessions/ab12/plan", "application/json", nil)
		if err != nil {
			t.Fatalf("Plan request failed: %v", err)
		}
		resp.Body.Close()

		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}

		var message websocket.Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != "plan" || message.SessionID != "ab12" || message.Plan.Record.ID != "p1" {
			t.Errorf("Unexpected message %+v", message)
		}
	})
}

// TestServerWithPlanService drives the real planning stack through HTTP
func TestServerWithPlanService(t *testing.T) {
	courses, err := config.NewManager("../courses")
	if err != nil {
		t.Fatalf("Failed to create course manager: %v", err)
	}
	history, err := session.OpenHistoryStore(t.TempDir() + "/history.db")
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}
	defer history.Close()

	svc := service.NewPlanService(session.NewManager(), courses, service.WithHistoryStore(history))
	server, _ := setupTestServer(t, svc)

	w := serve(server, makeRequest("POST", "/api/sessions", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	if info.CourseName != "default" {
		t.Errorf("Expected course 'default', got %s", info.CourseName)
	}

	w = serve(server, makeRequest("POST", "/api/sessions/"+info.ID+"/plan", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var result service.PlanResult
	parseResponse(t, w, &result)
	if !result.Record.Achieved || result.Record.Cost != 24 {
		t.Errorf("Unexpected plan record %+v", result.Record)
	}
	if !strings.HasPrefix(result.Record.Commands, "a e c d c c f c c e c c g") {
		t.Errorf("Unexpected commands %s", result.Record.Commands)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/"+info.ID+"/history", nil))
	var page service.HistoryResponse
	parseResponse(t, w, &page)
	if page.TotalPlans != 1 {
		t.Errorf("Expected 1 plan in session history, got %d", page.TotalPlans)
	}

	w = serve(server, makeRequest("GET", "/api/history", nil))
	var recent struct {
		Count int `json:"count"`
	}
	parseResponse(t, w, &recent)
	if recent.Count != 1 {
		t.Errorf("Expected 1 plan in the history store, got %d", recent.Count)
	}

	w = serve(server, makeRequest("GET", "/api/sessions/nope/plan", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}
