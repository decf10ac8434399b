package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/engine"
	"github.com/noah-isme/timetable-engine/internal/models"
)

func formatterProblem(t *testing.T) *engine.Problem {
	t.Helper()
	core := models.Course{
		ID: "core", Name: "Calculus", Code: "MATH101", TeacherID: "t1",
		Duration: 1, StudentGroup: "g1", StudentCount: 20, IsCore: true, Priority: 5,
	}
	elective1 := models.Course{
		ID: "e1", Name: "Painting", TeacherID: "t2",
		Duration: 1, StudentGroup: "g1", StudentCount: 20, ElectiveGroup: "arts",
	}
	elective2 := models.Course{
		ID: "e2", Name: "Sculpture", TeacherID: "t2",
		Duration: 1, StudentGroup: "g1", StudentCount: 20, ElectiveGroup: "arts",
	}
	p, err := engine.NewProblem(
		[]models.Teacher{{ID: "t1", Name: "Dr. Adams"}, {ID: "t2", Name: "Dr. Brown"}},
		[]models.Classroom{{ID: "r1", Name: "Room 1", Type: models.RoomLecture, Capacity: 30}},
		[]models.Course{core, elective1, elective2},
		models.ConstraintConfig{
			WorkingDays:  []string{"Monday"},
			StartTime:    "09:00",
			EndTime:      "17:00",
			SlotDuration: 60,
		},
	)
	require.NoError(t, err)
	return p
}

func formatterOutcome(p *engine.Problem) *engine.Outcome {
	c := engine.NewCandidate(len(p.Sessions))
	for i := range c.Genes {
		c.Genes[i] = engine.Gene{SlotID: i, Room: 0}
	}
	return &engine.Outcome{Best: c, Algorithm: dto.AlgorithmHybridAdvanced, Iterations: 120}
}

func TestFormatResultDenormalizesNames(t *testing.T) {
	p := formatterProblem(t)
	result := FormatResult(p, formatterOutcome(p))

	require.Len(t, result.BestSolution.Assignments, 3)
	first := result.BestSolution.Assignments[0]
	assert.Equal(t, "core", first.CourseID)
	assert.Equal(t, "Calculus", first.CourseName)
	assert.Equal(t, "MATH101", first.CourseCode)
	assert.Equal(t, "Dr. Adams", first.TeacherName)
	assert.Equal(t, "Room 1", first.ClassroomName)
	assert.Equal(t, "MONDAY", first.Day)
	assert.Equal(t, "09:00", first.StartTime)
	assert.Equal(t, "10:00", first.EndTime)
}

func TestFormatResultStatistics(t *testing.T) {
	p := formatterProblem(t)
	result := FormatResult(p, formatterOutcome(p))

	assert.Equal(t, 1, result.Statistics.CoreSubjectsScheduled)
	assert.Equal(t, 1, result.Statistics.ElectiveGroupsScheduled)
	assert.Equal(t, 120, result.Statistics.FinalIteration)
	assert.Equal(t, dto.AlgorithmHybridAdvanced, result.Statistics.AlgorithmUsed)
	assert.Zero(t, result.Statistics.TotalViolations)
	assert.Equal(t, 1.0, result.BestSolution.Fitness)
}

func TestFormatResultOrdersAssignments(t *testing.T) {
	p := formatterProblem(t)
	result := FormatResult(p, formatterOutcome(p))

	for i := 1; i < len(result.BestSolution.Assignments); i++ {
		assert.LessOrEqual(t,
			result.BestSolution.Assignments[i-1].SlotID,
			result.BestSolution.Assignments[i].SlotID)
	}
}

func TestNormalizeResultIsIdempotent(t *testing.T) {
	p := formatterProblem(t)
	result := FormatResult(p, formatterOutcome(p))

	again := *result
	again.BestSolution.Assignments = append([]models.Assignment(nil), result.BestSolution.Assignments...)
	NormalizeResult(&again)
	assert.Equal(t, result.BestSolution.Assignments, again.BestSolution.Assignments)
}

func TestFormatResultSkipsUnassignedSessions(t *testing.T) {
	p := formatterProblem(t)
	out := formatterOutcome(p)
	out.Best.Genes[2] = engine.Gene{SlotID: -1, Room: -1}
	out.Best.Invalidate()

	result := FormatResult(p, out)
	assert.Len(t, result.BestSolution.Assignments, 2)
	assert.Zero(t, result.Statistics.ElectiveGroupsScheduled, "group incomplete without e2")
	assert.Equal(t, 1, result.BestSolution.Violations[engine.ViolationUnscheduled])
}
