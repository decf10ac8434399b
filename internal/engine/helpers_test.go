package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func weekConstraints() models.ConstraintConfig {
	return models.ConstraintConfig{
		WorkingDays:  []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		StartTime:    "09:00",
		EndTime:      "17:00",
		SlotDuration: 60,
	}
}

func lectureRoom(id, name string, capacity int) models.Classroom {
	return models.Classroom{ID: id, Name: name, Type: models.RoomLecture, Capacity: capacity}
}

func simpleCourse(id, teacherID, group string) models.Course {
	return models.Course{
		ID:           id,
		Name:         "Course " + id,
		TeacherID:    teacherID,
		Duration:     1,
		HoursPerWeek: 1,
		StudentGroup: group,
		StudentCount: 20,
	}
}

func mustProblem(t *testing.T, teachers []models.Teacher, rooms []models.Classroom, courses []models.Course, cfg models.ConstraintConfig) *Problem {
	t.Helper()
	p, err := NewProblem(teachers, rooms, courses, cfg)
	require.NoError(t, err)
	return p
}

// trivialProblem is the smallest feasible instance: one teacher, one lecture
// room, one course. The course prefers Monday 09:00 so the optimum is unique.
func trivialProblem(t *testing.T) *Problem {
	t.Helper()
	course := simpleCourse("c1", "t1", "g1")
	course.Scheduling.PreferredDays = []string{"Monday"}
	course.Scheduling.PreferredTimeSlots = []string{"09:00"}
	return mustProblem(t,
		[]models.Teacher{{ID: "t1", Name: "Dr. Adams"}},
		[]models.Classroom{lectureRoom("r1", "Room 1", 30)},
		[]models.Course{course},
		weekConstraints(),
	)
}
