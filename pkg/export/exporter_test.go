package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
)

func sampleResult() *dto.GenerationResult {
	return &dto.GenerationResult{
		BestSolution: dto.BestSolution{
			Assignments: []models.Assignment{
				{
					CourseID: "c1", CourseName: "Algorithms", CourseCode: "CS201",
					TeacherID: "t1", TeacherName: "Dr. Adams",
					ClassroomID: "r1", ClassroomName: "Room 1",
					Day: "MONDAY", StartTime: "09:00", EndTime: "10:00",
					SlotID: 0, StudentGroup: "g1", Duration: 1,
				},
				{
					CourseID: "c2", CourseName: "Databases", CourseCode: "CS202",
					Batch: "b1", TeacherID: "t2", TeacherName: "Dr. Brown",
					ClassroomID: "r2", ClassroomName: "Lab 2",
					Day: "MONDAY", StartTime: "10:00", EndTime: "12:00",
					SlotID: 1, StudentGroup: "g1", Duration: 2,
				},
			},
			Fitness:    0.9876,
			Violations: map[string]int{},
		},
		Statistics: dto.GenerationStatistics{
			FinalIteration:  321,
			TotalViolations: 0,
			AlgorithmUsed:   dto.AlgorithmHybridAdvanced,
		},
	}
}

func TestCSVExporterRendersSchedule(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleResult())
	require.NoError(t, err)

	content := string(data)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Day,Start,End,Course"))
	assert.Contains(t, content, "Algorithms")
	assert.Contains(t, content, "Dr. Brown")
	assert.Contains(t, content, "b1")
	assert.Contains(t, content, "0.9876")
	assert.Contains(t, content, dto.AlgorithmHybridAdvanced)
}

func TestCSVExporterRejectsNilResult(t *testing.T) {
	_, err := NewCSVExporter().Render(nil)
	assert.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	data, err := NewPDFExporter().Render(sampleResult(), "Semester 1 Timetable")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output is a PDF document")
	assert.Greater(t, len(data), 500)
}

func TestPDFExporterRejectsNilResult(t *testing.T) {
	_, err := NewPDFExporter().Render(nil, "")
	assert.Error(t, err)
}
