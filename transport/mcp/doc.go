// Package mcp exposes the Block Bingo planner as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API (see package api) and the JSON response is rendered as text for the
// agent. Rounds are passed in notation (see package notation) and parsed
// client-side before they are sent.
//
// MCP Tools:
//   - plan_round: Plan a round without a session
//   - create_session, get_session, list_sessions, delete_session
//   - update_round: Replace a session's round
//   - plan_session, plan_bingo: Plan a session's round
//   - plan_history, recent_plans: Past plans
//   - translate_commands, list_opcodes: Opcode descriptions
//   - list_courses, get_course: Stored courses
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
