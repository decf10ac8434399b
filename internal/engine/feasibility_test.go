package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

func TestFeasibilityAcceptsTrivialInstance(t *testing.T) {
	assert.NoError(t, CheckFeasibility(trivialProblem(t)))
}

func TestFeasibilityFlagsClassroomBottleneck(t *testing.T) {
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Monday"}
	cfg.StartTime = "09:00"
	cfg.EndTime = "11:00"
	p := mustProblem(t,
		[]models.Teacher{{ID: "t1", Name: "Dr. Adams"}, {ID: "t2", Name: "Dr. Brown"}, {ID: "t3", Name: "Dr. Clark"}},
		[]models.Classroom{lectureRoom("r1", "Room 1", 30)},
		[]models.Course{simpleCourse("c1", "t1", "g1"), simpleCourse("c2", "t2", "g2"), simpleCourse("c3", "t3", "g3")},
		cfg,
	)

	err := CheckFeasibility(p)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInfeasible.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "classrooms")
}

func TestFeasibilityFlagsTeacherBottleneck(t *testing.T) {
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Monday"}
	cfg.StartTime = "09:00"
	cfg.EndTime = "11:00"
	teacher := models.Teacher{ID: "t1", Name: "Dr. Adams", UnavailableSlots: []models.UnavailableSlot{
		{Day: "Monday", StartTime: "09:00"},
		{Day: "Monday", StartTime: "10:00"},
	}}
	p := mustProblem(t,
		[]models.Teacher{teacher},
		[]models.Classroom{lectureRoom("r1", "Room 1", 30), lectureRoom("r2", "Room 2", 30)},
		[]models.Course{simpleCourse("c1", "t1", "g1")},
		cfg,
	)

	err := CheckFeasibility(p)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInfeasible.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "teacher t1")
}

func TestFeasibilityFlagsStudentGroupBottleneck(t *testing.T) {
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Monday"}
	cfg.StartTime = "09:00"
	cfg.EndTime = "11:00"
	p := mustProblem(t,
		[]models.Teacher{{ID: "t1", Name: "Dr. Adams"}, {ID: "t2", Name: "Dr. Brown"}, {ID: "t3", Name: "Dr. Clark"}},
		[]models.Classroom{lectureRoom("r1", "Room 1", 30), lectureRoom("r2", "Room 2", 30)},
		[]models.Course{simpleCourse("c1", "t1", "g1"), simpleCourse("c2", "t2", "g1"), simpleCourse("c3", "t3", "g1")},
		cfg,
	)

	err := CheckFeasibility(p)
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "student group g1")
}
