// Package api provides the HTTP REST API of the Block Bingo planner.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session from a course (body {"course_id": "..."}, empty for default)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session with its rendered board
//   - DELETE /api/sessions/{id} - Delete a session
//   - PUT /api/sessions/{id}/round - Replace the recognized round
//
// Planning:
//   - POST /api/sessions/{id}/plan - Plan the session's round
//   - POST /api/sessions/{id}/bingo - Run the cross circle solver (body {"first": N})
//   - GET /api/sessions/{id}/history - Paginated plan history (?page&limit&order)
//   - POST /api/plan - Plan a round without a session
//   - GET /api/history - Most recent plans across sessions (?limit=N)
//
// Commands:
//   - GET /api/opcodes - The opcode translation table
//   - POST /api/translate - Describe an instruction string (body {"commands": "a c g"})
//
// Courses:
//   - GET /api/courses - List course files
//   - GET /api/courses/{name} - Load a course
//   - POST /api/courses - Save a course
//
// Other:
//   - GET /ws?session=<id> - Subscribe to plan events of a session
//   - GET /health - Liveness check
//
// Errors are returned as {"error": "..."}. Unknown sessions and courses map
// to 404, malformed identifiers to 400 and rounds that break the game rules
// or cannot be planned to 422.
//
// Usage:
//
//	server := api.NewServer(planService, hub)
//	http.ListenAndServe(":8080", server)
package api
