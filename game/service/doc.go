// Package service provides the business logic layer shared by the REST API,
// the MCP tools and the CLI.
//
// PlanService is the main interface. A session holds one round: the course it
// was created from, the round as currently recognized and the plans made for
// it. Plans are computed by the planner package; each plan gets a record with
// a uuid that is appended to the session history, written to the optional
// HistoryStore and journaled in full to the optional Journal.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	courseMgr, _ := config.NewManager("courses")
//	planService := service.NewPlanService(sessionMgr, courseMgr,
//		service.WithHistoryStore(store), service.WithJournal(journal))
//
//	info, err := planService.CreateSession(ctx, "left_basic")
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := planService.PlanSession(ctx, info.ID)
//
// Access is serialized by the service, so a session's round and history never
// change while a plan for it is running.
package service
