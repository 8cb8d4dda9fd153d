// Package config loads the course files a planning session starts from.
//
// A course file describes one recognized field: the course side, the bonus,
// black and color circles, the bingo tier and the color blocks keyed by cross
// circle (c00..c33) or midpoint (m<row><col>). Three formats are read:
//   - YAML (.yaml, .yml) and JSON (.json), checked against course.schema.json
//   - round notation (.round), see package notation
//
// Every course must also build a valid board and have a quota for its tier.
//
// Usage:
//
//	manager, err := config.NewManager("courses")
//	if err != nil {
//		log.Fatal(err)
//	}
//	course, err := manager.LoadCourse("default")
//	courses, err := manager.ListCourses()
//
// Courses are cached after the first load; RefreshCache drops the cache.
package config
