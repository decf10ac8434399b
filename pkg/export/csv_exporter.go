package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/noah-isme/timetable-engine/internal/dto"
)

var timetableHeaders = []string{"Day", "Start", "End", "Course", "Code", "Batch", "Teacher", "Classroom", "Student Group"}

// timetableRows flattens a generation result into export rows in schedule
// order.
func timetableRows(result *dto.GenerationResult) [][]string {
	rows := make([][]string, 0, len(result.BestSolution.Assignments))
	for _, a := range result.BestSolution.Assignments {
		rows = append(rows, []string{
			a.Day,
			a.StartTime,
			a.EndTime,
			a.CourseName,
			a.CourseCode,
			a.Batch,
			a.TeacherName,
			a.ClassroomName,
			a.StudentGroup,
		})
	}
	return rows
}

// CSVExporter renders generation results into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the timetable, followed by a short
// summary block.
func (e *CSVExporter) Render(result *dto.GenerationResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("csv export requires a result")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(timetableHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range timetableRows(result) {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	summary := [][]string{
		{},
		{"Fitness", strconv.FormatFloat(result.BestSolution.Fitness, 'f', 4, 64)},
		{"Total Violations", strconv.Itoa(result.Statistics.TotalViolations)},
		{"Algorithm", result.Statistics.AlgorithmUsed},
	}
	for _, row := range summary {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv summary: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
