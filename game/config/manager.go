package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/blockbingo/game/board"
	"github.com/wricardo/blockbingo/game/notation"
	"github.com/wricardo/blockbingo/game/planner"
	"github.com/wricardo/blockbingo/game/rules"
	"github.com/wricardo/blockbingo/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = service.ErrInvalidConfig
)

// Extensions lists the course file formats in lookup order
var Extensions = []string{".yaml", ".yml", ".json", ".round"}

//go:embed course.schema.json
var courseSchemaJSON string

var courseSchema = jsonschema.MustCompileString("course.schema.json", courseSchemaJSON)

// Manager handles course file loading and caching
type Manager struct {
	courseDir     string
	defaultCourse *service.Course
	courses       map[string]*service.Course
	mu            sync.RWMutex
}

// NewManager creates a new course manager
func NewManager(courseDir string) (*Manager, error) {
	if _, err := os.Stat(courseDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("course directory does not exist: %s", courseDir)
	}

	m := &Manager{
		courseDir: courseDir,
		courses:   make(map[string]*service.Course),
	}
	m.loadDefaultCourse()
	return m, nil
}

// LoadCourse loads a course by name, with or without its extension
func (m *Manager) LoadCourse(name string) (*service.Course, error) {
	m.mu.RLock()
	if course, exists := m.courses[name]; exists {
		m.mu.RUnlock()
		return course, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if course, exists := m.courses[name]; exists {
		return course, nil
	}

	path, ok := m.find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read course file: %w", err)
	}

	course, err := ParseCourse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if course.Name == "" {
		course.Name = trimExt(filepath.Base(path))
	}

	m.courses[name] = course
	return course, nil
}

// find locates the file of a course name
func (m *Manager) find(name string) (string, bool) {
	candidates := []string{name}
	if !hasCourseExt(name) {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		path := filepath.Join(m.courseDir, c)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ListCourses returns information about all valid course files, sorted by id
func (m *Manager) ListCourses() ([]*service.CourseInfo, error) {
	entries, err := os.ReadDir(m.courseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read course directory: %w", err)
	}

	var courses []*service.CourseInfo
	for _, entry := range entries {
		if entry.IsDir() || !hasCourseExt(entry.Name()) {
			continue
		}

		course, err := m.LoadCourse(entry.Name())
		if err != nil {
			// Skip invalid courses
			continue
		}

		courses = append(courses, &service.CourseInfo{
			Filename:    entry.Name(),
			CourseID:    trimExt(entry.Name()),
			Name:        course.Name,
			Description: course.Description,
			Course:      course.Course.String(),
			Tier:        course.Tier.String(),
			Blocks:      len(course.Blocks),
		})
	}

	sort.Slice(courses, func(i, j int) bool { return courses[i].CourseID < courses[j].CourseID })
	return courses, nil
}

// GetDefault returns the default course
func (m *Manager) GetDefault() *service.Course {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultCourse
}

// SetDefault sets the default course by name
func (m *Manager) SetDefault(name string) error {
	course, err := m.LoadCourse(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultCourse = course
	return nil
}

// RefreshCache drops every cached course and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.courses = make(map[string]*service.Course)
	m.mu.Unlock()

	m.loadDefaultCourse()
}

// loadDefaultCourse loads "default", then the first valid course, then falls
// back to a built-in course
func (m *Manager) loadDefaultCourse() {
	course, err := m.LoadCourse("default")
	if err != nil {
		course = minimalCourse()
		if infos, listErr := m.ListCourses(); listErr == nil && len(infos) > 0 {
			if first, err := m.LoadCourse(infos[0].Filename); err == nil {
				course = first
			}
		}
	}

	m.mu.Lock()
	m.defaultCourse = course
	m.mu.Unlock()
}

// SaveCourse validates a course and writes it to disk. Names ending in .json
// are written as JSON, everything else as YAML.
func (m *Manager) SaveCourse(name string, course *service.Course) error {
	if err := ValidateCourse(course); err != nil {
		return err
	}

	filename := name
	if !hasCourseExt(filename) {
		filename = name + ".yaml"
	}

	var data []byte
	var err error
	switch filepath.Ext(filename) {
	case ".json":
		data, err = json.MarshalIndent(course, "", "  ")
	case ".round":
		data = []byte(notation.Format(course.Round))
	default:
		data, err = yaml.Marshal(course)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal course: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.courseDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write course file: %w", err)
	}

	m.mu.Lock()
	m.courses[name] = course
	m.courses[filename] = course
	m.mu.Unlock()
	return nil
}

// ParseCourse decodes a course file. YAML and JSON documents are checked
// against the course schema first; notation files go through the notation
// parser. The round must then build a valid board.
func ParseCourse(data []byte, ext string) (*service.Course, error) {
	course := &service.Course{}

	switch strings.ToLower(ext) {
	case ".round":
		round, err := notation.Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		course.Round = *round
	case ".json":
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := courseSchema.Validate(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := json.Unmarshal(data, course); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		doc, err := jsonDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := courseSchema.Validate(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := yaml.Unmarshal(data, course); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown course format %q", ErrInvalidConfig, ext)
	}

	if err := ValidateCourse(course); err != nil {
		return nil, err
	}
	return course, nil
}

// ValidateCourse checks that the round builds a board and has a valid tier
func ValidateCourse(course *service.Course) error {
	if course == nil {
		return fmt.Errorf("%w: course cannot be nil", ErrInvalidConfig)
	}
	if _, err := course.Round.Board(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := rules.SelectQuota(course.Tier, course.Color); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// jsonDocument turns a decoded YAML value into the shape encoding/json
// produces, which is what the schema validator walks
func jsonDocument(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func hasCourseExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// minimalCourse is used when the course directory holds no valid course
func minimalCourse() *service.Course {
	return &service.Course{
		Name:        "default",
		Description: "Built-in left course with one block per quota circle",
		Round: planner.Round{
			Course: board.Left,
			Bonus:  6,
			Black:  3,
			Color:  5,
			Tier:   rules.Single,
			Blocks: map[string]board.Color{
				"c30": board.Red,
				"c33": board.Blue,
			},
		},
	}
}
