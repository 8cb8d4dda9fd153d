package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/command"
	"github.com/wricardo/blockbingo/game/notation"
	"github.com/wricardo/blockbingo/game/service"
)

// Client serves MCP tools by calling the REST API over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient builds the tool server for the API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

const instructions = `Block Bingo Planner - MCP Interface

Every tool is answered by the planner REST API.

The field is a 4x4 grid of cross circles joined by black lines, with 8 block
circles inside (1 2 3 / 4 . 5 / 6 7 8) and the color block circle in the
middle of the ring. A plan drives the robot through the ring to carry the
black block to the bonus circle, then over the grid to deliver color blocks
until the bingo tier is complete. The output is an opcode string the robot
executes one byte at a time.

ROUNDS are written in notation, one statement per semicolon:
  course left; bonus 6; black 3; color 5; tier single;
  block c30 red; block c33 blue;
Optional: "color_block yellow;" and "start 6 2 north;" (doubled coordinates).

Tools:
- plan_round: Plan a round given in notation, without a session
- create_session / get_session / list_sessions / delete_session
- update_round: Replace a session's round with notation
- plan_session: Plan the session's round
- plan_bingo: Run the cross circle solver on the session's round
- plan_history: Plans made for a session
- recent_plans: Latest plans across all sessions
- translate_commands: Describe an opcode string
- list_opcodes: The full opcode table
- list_courses / get_course: Stored course files`

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Block Bingo Planner",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
	)
	c.mcpServer.AddTools(c.tools()...)
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
}

func (c *Client) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("plan_round",
				mcp.WithDescription("Plan a round given in notation and return the robot commands"),
				mcp.WithString("round", mcp.Required(),
					mcp.Description("Round in notation, e.g. 'course left; bonus 6; black 3; color 5; block c30 red;'")),
			),
			Handler: c.handlePlanRound,
		},
		{
			Tool: mcp.NewTool("plan_session",
				mcp.WithDescription("Plan the round of a session"),
				sessionArg(),
			),
			Handler: c.handlePlanSession,
		},
		{
			Tool: mcp.NewTool("plan_bingo",
				mcp.WithDescription("Deliver every color block with the cross circle solver"),
				sessionArg(),
				mcp.WithNumber("first", mcp.Description("Block circle the bingo goes through (1-8, default the color circle)")),
			),
			Handler: c.handlePlanBingo,
		},
		{
			Tool: mcp.NewTool("plan_history",
				mcp.WithDescription("List the plans made for a session"),
				sessionArg(),
				mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
				mcp.WithNumber("limit", mcp.Description("Plans per page (default 20)")),
			),
			Handler: c.handlePlanHistory,
		},
		{
			Tool: mcp.NewTool("recent_plans",
				mcp.WithDescription("List the latest plans across all sessions"),
				mcp.WithNumber("limit", mcp.Description("Number of plans (default 10)")),
			),
			Handler: c.handleRecentPlans,
		},
		{
			Tool: mcp.NewTool("create_session",
				mcp.WithDescription("Create a planning session from a course (default course if omitted)"),
				mcp.WithString("course_id", mcp.Description("Course to start from (optional)")),
			),
			Handler: c.handleCreateSession,
		},
		{
			Tool:    mcp.NewTool("get_session", mcp.WithDescription("Get a session with its round and board"), sessionArg()),
			Handler: c.handleGetSession,
		},
		{
			Tool:    mcp.NewTool("list_sessions", mcp.WithDescription("List all planning sessions")),
			Handler: c.handleListSessions,
		},
		{
			Tool:    mcp.NewTool("delete_session", mcp.WithDescription("Delete a planning session"), sessionArg()),
			Handler: c.handleDeleteSession,
		},
		{
			Tool: mcp.NewTool("update_round",
				mcp.WithDescription("Replace the round of a session with one given in notation"),
				sessionArg(),
				mcp.WithString("round", mcp.Required(), mcp.Description("Round in notation")),
			),
			Handler: c.handleUpdateRound,
		},
		{
			Tool: mcp.NewTool("translate_commands",
				mcp.WithDescription("Describe each opcode of a command string"),
				mcp.WithString("commands", mcp.Required(), mcp.Description("Opcode string, spaced or packed (e.g. 'a e c g')")),
			),
			Handler: c.handleTranslate,
		},
		{
			Tool:    mcp.NewTool("list_opcodes", mcp.WithDescription("List every opcode the robot understands")),
			Handler: c.handleListOpcodes,
		},
		{
			Tool:    mcp.NewTool("list_courses", mcp.WithDescription("List the stored course files")),
			Handler: c.handleListCourses,
		},
		{
			Tool: mcp.NewTool("get_course",
				mcp.WithDescription("Show a stored course in notation"),
				mcp.WithString("name", mcp.Required(), mcp.Description("Course name")),
			),
			Handler: c.handleGetCourse,
		},
	}
}

// GetMCPServer returns the server to mount on HTTP or stdio
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall sends body as JSON and decodes the response into result. Error
// responses surface the API's "error" field.
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&failure) == nil && failure.Error != "" {
			return errors.New(failure.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// call wraps apiCall for tool handlers: a failed call becomes an error result
func (c *Client) call(ctx context.Context, method, path string, body, result interface{}) *mcp.CallToolResult {
	if err := c.apiCall(ctx, method, path, body, result); err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return nil
}

func sessionPath(request mcp.CallToolRequest, suffix string) string {
	return "/api/sessions/" + url.PathEscape(request.GetString("session_id", "")) + suffix
}

func (c *Client) handlePlanRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	round, err := notation.Parse(request.GetString("round", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result planResult
	if failed := c.call(ctx, http.MethodPost, "/api/plan", round, &result); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(formatPlanResult(&result)), nil
}

func (c *Client) handlePlanSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result planResult
	if failed := c.call(ctx, http.MethodPost, sessionPath(request, "/plan"), nil, &result); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(formatPlanResult(&result)), nil
}

func (c *Client) handlePlanBingo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]int{"first": request.GetInt("first", 0)}

	var result bingoResult
	if failed := c.call(ctx, http.MethodPost, sessionPath(request, "/bingo"), body, &result); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(formatBingoResult(&result)), nil
}

func (c *Client) handlePlanHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(request.GetInt("page", 1)))
	query.Set("limit", strconv.Itoa(request.GetInt("limit", 20)))

	var history service.HistoryResponse
	if failed := c.call(ctx, http.MethodGet, sessionPath(request, "/history?"+query.Encode()), nil, &history); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleRecentPlans(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var recent struct {
		Count int                   `json:"count"`
		Plans []*service.PlanRecord `json:"plans"`
	}
	path := "/api/history?limit=" + strconv.Itoa(request.GetInt("limit", 10))
	if failed := c.call(ctx, http.MethodGet, path, nil, &recent); failed != nil {
		return failed, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent Plans (%d):\n\n", recent.Count)
	for _, rec := range recent.Plans {
		sb.WriteString(formatRecord(rec))
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if courseID := request.GetString("course_id", ""); courseID != "" {
		body["course_id"] = courseID
	}

	var info service.SessionInfo
	if failed := c.call(ctx, http.MethodPost, "/api/sessions", body, &info); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nCourse: %s\n\n%s", info.ID, info.CourseName, info.Board)), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.SessionInfo
	if failed := c.call(ctx, http.MethodGet, sessionPath(request, ""), nil, &info); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var listing struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if failed := c.call(ctx, http.MethodGet, "/api/sessions", nil, &listing); failed != nil {
		return failed, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sessions (%d):\n\n", listing.Count)
	for _, info := range listing.Sessions {
		fmt.Fprintf(&sb, "- %s (Course: %s, Plans: %d, Created: %s)\n",
			info.ID, info.CourseName, info.PlanCount, info.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var reply map[string]string
	if failed := c.call(ctx, http.MethodDelete, sessionPath(request, ""), nil, &reply); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(reply["message"]), nil
}

func (c *Client) handleUpdateRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	round, err := notation.Parse(request.GetString("round", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.SessionInfo
	if failed := c.call(ctx, http.MethodPut, sessionPath(request, "/round"), round, &info); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleTranslate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result service.TranslateResult
	body := map[string]string{"commands": request.GetString("commands", "")}
	if failed := c.call(ctx, http.MethodPost, "/api/translate", body, &result); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(formatTranslations(result.Translations)), nil
}

func (c *Client) handleListOpcodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var table []command.Translation
	if failed := c.call(ctx, http.MethodGet, "/api/opcodes", nil, &table); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText("Opcodes:\n\n" + formatTranslations(table)), nil
}

func (c *Client) handleListCourses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var courses []*service.CourseInfo
	if failed := c.call(ctx, http.MethodGet, "/api/courses", nil, &courses); failed != nil {
		return failed, nil
	}

	var sb strings.Builder
	sb.WriteString("Available Courses:\n\n")
	for _, course := range courses {
		fmt.Fprintf(&sb, "- %s\n  %s\n  Course: %s, Tier: %s, Blocks: %d\n\n",
			course.CourseID, course.Description, course.Course, course.Tier, course.Blocks)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleGetCourse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var course service.Course
	path := "/api/courses/" + url.PathEscape(request.GetString("name", ""))
	if failed := c.call(ctx, http.MethodGet, path, nil, &course); failed != nil {
		return failed, nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Course: %s\n%s\n\n%s", course.Name, course.Description, notation.Format(course.Round))), nil
}

// Response shapes. Only the parts the tools print are decoded.

type planLeg struct {
	Kind   string         `json:"kind"`
	Circle board.CircleID `json:"circle"`
	Color  board.Color    `json:"color"`
	Route  struct {
		Cost int `json:"cost"`
	} `json:"route"`
}

type planResult struct {
	Record *service.PlanRecord `json:"record"`
	Board  string              `json:"board"`
	Plan   struct {
		Legs  []planLeg  `json:"legs"`
		Final board.Pose `json:"final"`
	} `json:"plan"`
}

type bingoResult struct {
	Record *service.PlanRecord `json:"record"`
	Plan   struct {
		Bingo struct {
			Circles []board.CircleID `json:"circles"`
			Final   board.Pose       `json:"final"`
		} `json:"bingo"`
	} `json:"plan"`
}

// Formatting

func formatRecord(rec *service.PlanRecord) string {
	status := "achieved"
	if !rec.Achieved {
		status = "incomplete"
	}
	session := rec.SessionID
	if session == "" {
		session = "-"
	}
	return fmt.Sprintf("%s %s session=%s cost=%d legs=%d %s [%s]",
		rec.CreatedAt.Format("15:04:05"), rec.Kind, session, rec.Cost, rec.Legs, status, rec.Commands)
}

func formatPlanResult(result *planResult) string {
	var sb strings.Builder
	rec := result.Record

	status := "ACHIEVED"
	if !rec.Achieved {
		status = "NOT ACHIEVED"
	}
	fmt.Fprintf(&sb, "Plan %s: %s (cost %d)\n\n", rec.ID, status, rec.Cost)
	if result.Board != "" {
		sb.WriteString(result.Board)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Legs:\n")
	for i, leg := range result.Plan.Legs {
		fmt.Fprintf(&sb, "%d. %s %s block for circle %d (cost %d)\n", i+1, leg.Kind, leg.Color, leg.Circle, leg.Route.Cost)
	}
	fmt.Fprintf(&sb, "\nFinal pose: %s facing %s\n", result.Plan.Final.Coord, result.Plan.Final.Heading)
	fmt.Fprintf(&sb, "\nCommands:\n%s\n", rec.Commands)
	return sb.String()
}

func formatBingoResult(result *bingoResult) string {
	var sb strings.Builder
	rec := result.Record

	fmt.Fprintf(&sb, "Bingo plan %s: %d legs (cost %d)\n", rec.ID, rec.Legs, rec.Cost)
	circles := make([]string, len(result.Plan.Bingo.Circles))
	for i, id := range result.Plan.Bingo.Circles {
		circles[i] = fmt.Sprint(int(id))
	}
	fmt.Fprintf(&sb, "Delivery order: %s\n", strings.Join(circles, " -> "))
	fmt.Fprintf(&sb, "Final pose: %s facing %s\n", result.Plan.Bingo.Final.Coord, result.Plan.Bingo.Final.Heading)
	fmt.Fprintf(&sb, "\nCommands:\n%s\n", rec.Commands)
	return sb.String()
}

func formatSessionInfo(info *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nCourse: %s\nPlans: %d\nCreated: %s\n\n%s",
		info.ID, info.CourseName, info.PlanCount, info.CreatedAt.Format(time.DateTime), info.Board)
}

func formatHistory(history *service.HistoryResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan History (Page %d/%d) - Total: %d\n\n", history.Page, history.TotalPages, history.TotalPlans)
	offset := (history.Page - 1) * history.PageSize
	for i, rec := range history.Plans {
		fmt.Fprintf(&sb, "%d. %s\n", offset+i+1, formatRecord(rec))
	}
	return sb.String()
}

func formatTranslations(translations []command.Translation) string {
	var sb strings.Builder
	for i, tr := range translations {
		fmt.Fprintf(&sb, "%2d. %s  %s\n", i+1, tr.Opcode, tr.Description)
	}
	return sb.String()
}
