package engine

import (
	"fmt"

	"github.com/noah-isme/timetable-engine/internal/models"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

// Session is one schedulable unit: a course, or a single batch of a course.
// Batch sessions of the same course must share a timeslot.
type Session struct {
	Index       int
	CourseIdx   int
	Course      *models.Course
	Batch       string
	TeacherID   string
	Cohort      string
	Students    int
	SlotsNeeded int
	DurationMin int
}

// Problem holds the read-only entity tables and derived structures shared by
// every engine for the duration of a run.
type Problem struct {
	Grid           *Grid
	Config         models.ConstraintConfig
	Teachers       []models.Teacher
	Rooms          []models.Classroom
	Courses        []models.Course
	Sessions       []Session
	CourseSessions [][]int
	FitnessCeiling float64

	teacherByID map[string]int
	roomByID    map[string]int
	courseByID  map[string]int
	unavailable map[string]map[string][]breakWindow
}

// DefaultFitnessCeiling caps fitness for candidates with hard violations.
const DefaultFitnessCeiling = 0.7

// NewProblem validates entities, builds the grid, and expands courses into
// schedulable sessions.
func NewProblem(teachers []models.Teacher, rooms []models.Classroom, courses []models.Course, cfg models.ConstraintConfig) (*Problem, error) {
	if len(teachers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teachers must not be empty")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classrooms must not be empty")
	}
	if len(courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "courses must not be empty")
	}

	grid, err := NewGrid(cfg)
	if err != nil {
		return nil, err
	}

	p := &Problem{
		Grid:           grid,
		Config:         cfg,
		Teachers:       teachers,
		Rooms:          rooms,
		Courses:        courses,
		FitnessCeiling: DefaultFitnessCeiling,
		teacherByID:    make(map[string]int, len(teachers)),
		roomByID:       make(map[string]int, len(rooms)),
		courseByID:     make(map[string]int, len(courses)),
		unavailable:    make(map[string]map[string][]breakWindow),
	}

	for i, t := range teachers {
		if _, dup := p.teacherByID[t.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate teacher id %s", t.ID))
		}
		p.teacherByID[t.ID] = i
		blocked := make(map[string][]breakWindow)
		for _, slot := range t.UnavailableSlots {
			day, ok := CanonicalDay(slot.Day)
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s has unknown unavailable day %q", t.ID, slot.Day))
			}
			start, err := ParseClock(slot.StartTime)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("teacher %s has invalid unavailable time", t.ID))
			}
			blocked[day] = append(blocked[day], breakWindow{start: start, end: start + cfg.SlotDuration})
		}
		p.unavailable[t.ID] = blocked
	}

	for i, r := range rooms {
		if _, dup := p.roomByID[r.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate classroom id %s", r.ID))
		}
		p.roomByID[r.ID] = i
	}

	p.CourseSessions = make([][]int, len(courses))
	for i := range courses {
		course := &p.Courses[i]
		if _, dup := p.courseByID[course.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate course id %s", course.ID))
		}
		p.courseByID[course.ID] = i
		if _, ok := p.teacherByID[course.TeacherID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s references unknown teacher %s", course.ID, course.TeacherID))
		}

		durationMin := course.Duration * 60
		slotsNeeded := (durationMin + cfg.SlotDuration - 1) / cfg.SlotDuration

		if len(course.Batches) == 0 {
			p.addSession(Session{
				CourseIdx:   i,
				Course:      course,
				TeacherID:   course.TeacherID,
				Cohort:      course.StudentGroup,
				Students:    course.StudentCount,
				SlotsNeeded: slotsNeeded,
				DurationMin: durationMin,
			})
			continue
		}
		for _, batch := range course.Batches {
			teacherID := batch.TeacherID
			if teacherID == "" {
				teacherID = course.TeacherID
			}
			if _, ok := p.teacherByID[teacherID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s batch %s references unknown teacher %s", course.ID, batch.Name, teacherID))
			}
			students := batch.StudentCount
			if students == 0 {
				students = course.StudentCount / len(course.Batches)
			}
			p.addSession(Session{
				CourseIdx:   i,
				Course:      course,
				Batch:       batch.Name,
				TeacherID:   teacherID,
				Cohort:      course.StudentGroup,
				Students:    students,
				SlotsNeeded: slotsNeeded,
				DurationMin: durationMin,
			})
		}
	}

	return p, nil
}

func (p *Problem) addSession(s Session) {
	s.Index = len(p.Sessions)
	p.Sessions = append(p.Sessions, s)
	p.CourseSessions[s.CourseIdx] = append(p.CourseSessions[s.CourseIdx], s.Index)
}

// TeacherByID resolves a teacher record.
func (p *Problem) TeacherByID(id string) (*models.Teacher, bool) {
	idx, ok := p.teacherByID[id]
	if !ok {
		return nil, false
	}
	return &p.Teachers[idx], true
}

// RoomByID resolves a classroom record.
func (p *Problem) RoomByID(id string) (*models.Classroom, bool) {
	idx, ok := p.roomByID[id]
	if !ok {
		return nil, false
	}
	return &p.Rooms[idx], true
}

// CourseIndex resolves a course id to its index.
func (p *Problem) CourseIndex(id string) (int, bool) {
	idx, ok := p.courseByID[id]
	return idx, ok
}

// requiredRoomType returns the room type a course demands, empty when any
// room type is acceptable.
func requiredRoomType(course *models.Course) models.RoomType {
	if course.RoomRequirements.Type != "" {
		return course.RoomRequirements.Type
	}
	return course.Type
}

// RoomCompatible reports whether a room satisfies a session's requirements.
func (p *Problem) RoomCompatible(s *Session, roomIdx int) bool {
	room := &p.Rooms[roomIdx]
	if want := requiredRoomType(s.Course); want != "" && room.Type != want {
		return false
	}
	if !room.HasFacilities(s.Course.RoomRequirements.Facilities) {
		return false
	}
	minCapacity := s.Students
	if s.Course.RoomRequirements.MinimumCapacity > minCapacity {
		minCapacity = s.Course.RoomRequirements.MinimumCapacity
	}
	return room.Capacity >= minCapacity
}

// CompatibleRooms lists room indexes able to host the session, ordered by
// ascending capacity (best fit first) with the room index as tie-break.
func (p *Problem) CompatibleRooms(s *Session) []int {
	rooms := make([]int, 0, len(p.Rooms))
	for i := range p.Rooms {
		if p.RoomCompatible(s, i) {
			rooms = append(rooms, i)
		}
	}
	for i := 1; i < len(rooms); i++ {
		for j := i; j > 0; j-- {
			a, b := rooms[j-1], rooms[j]
			if p.Rooms[a].Capacity > p.Rooms[b].Capacity || (p.Rooms[a].Capacity == p.Rooms[b].Capacity && a > b) {
				rooms[j-1], rooms[j] = rooms[j], rooms[j-1]
			} else {
				break
			}
		}
	}
	return rooms
}

// TeacherFree reports whether the teacher has no unavailability window
// overlapping [start, end) on the given day.
func (p *Problem) TeacherFree(teacherID, day string, start, end int) bool {
	blocked := p.unavailable[teacherID]
	if blocked == nil {
		return true
	}
	for _, w := range blocked[day] {
		if start < w.end && w.start < end {
			return false
		}
	}
	return true
}

// sessionInterval resolves the occupied interval for a session placed at a
// slot. The second return is false when the slot id is invalid.
func (p *Problem) sessionInterval(s *Session, slotID int) (string, int, int, bool) {
	slot, ok := p.Grid.SlotByID(slotID)
	if !ok {
		return "", 0, 0, false
	}
	return slot.Day, slot.Start, slot.Start + s.DurationMin, true
}

// groupsCollide reports whether two sessions claim the same students.
// Batches are distinct sub-groups; a batch only collides with the full cohort
// or with the same-named batch.
func groupsCollide(a, b *Session) bool {
	if a.Cohort != b.Cohort {
		return false
	}
	if a.Batch == "" || b.Batch == "" {
		return true
	}
	return a.Batch == b.Batch
}
