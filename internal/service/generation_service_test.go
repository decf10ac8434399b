package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/engine"
	"github.com/noah-isme/timetable-engine/internal/models"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
)

func newServiceFixture() *GenerationService {
	return NewGenerationService(validator.New(), zap.NewNop(), nil, nil, GenerationConfig{})
}

func trivialRequest(algorithm string) dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		Teachers:   []models.Teacher{{ID: "t1", Name: "Dr. Adams"}},
		Classrooms: []models.Classroom{{ID: "r1", Name: "Room 1", Type: models.RoomLecture, Capacity: 30}},
		Courses: []models.Course{{
			ID:           "c1",
			Name:         "Algorithms",
			TeacherID:    "t1",
			Duration:     1,
			HoursPerWeek: 1,
			StudentGroup: "g1",
			StudentCount: 20,
			Scheduling: models.SchedulingConstraints{
				PreferredDays:      []string{"Monday"},
				PreferredTimeSlots: []string{"09:00"},
			},
		}},
		Constraints: models.ConstraintConfig{
			WorkingDays:  []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			StartTime:    "09:00",
			EndTime:      "17:00",
			SlotDuration: 60,
		},
		Algorithm: algorithm,
		Seed:      42,
		Genetic:   &dto.GeneticParams{PopulationSize: 10, MaxGenerations: 30},
		Hybrid:    &dto.HybridParams{MaxIterations: 100, IterationsPerTemperature: 10, ProgressEvery: 10},
	}
}

func TestGenerateRejectsInvalidPayload(t *testing.T) {
	svc := newServiceFixture()
	req := trivialRequest(dto.AlgorithmGenetic)
	req.Teachers = nil

	_, err := svc.Generate(context.Background(), req, engine.Hooks{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateRejectsUnknownAlgorithm(t *testing.T) {
	svc := newServiceFixture()
	req := trivialRequest("branch_and_bound")

	_, err := svc.Generate(context.Background(), req, engine.Hooks{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateRejectsInfeasibleInstance(t *testing.T) {
	svc := newServiceFixture()
	req := trivialRequest(dto.AlgorithmGenetic)
	req.Constraints.WorkingDays = []string{"Monday"}
	req.Constraints.StartTime = "09:00"
	req.Constraints.EndTime = "10:00"
	req.Courses = append(req.Courses,
		models.Course{ID: "c2", Name: "Databases", TeacherID: "t1", Duration: 1, StudentGroup: "g2", StudentCount: 20},
		models.Course{ID: "c3", Name: "Networks", TeacherID: "t1", Duration: 1, StudentGroup: "g3", StudentCount: 20},
	)

	var hookErr error
	hooks := engine.Hooks{OnError: func(err error) { hookErr = err }}
	_, err := svc.Generate(context.Background(), req, hooks)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInfeasible.Code, appErrors.FromError(err).Code)
	assert.Equal(t, err, hookErr, "fatal errors surface through OnError")
}

func TestGenerateGeneticEndToEnd(t *testing.T) {
	svc := newServiceFixture()
	var completed *dto.GenerationResult
	hooks := engine.Hooks{OnComplete: func(res *dto.GenerationResult) { completed = res }}

	result, err := svc.Generate(context.Background(), trivialRequest(dto.AlgorithmGenetic), hooks)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1.0, result.BestSolution.Fitness)
	assert.Empty(t, result.BestSolution.Violations)
	require.Len(t, result.BestSolution.Assignments, 1)

	assignment := result.BestSolution.Assignments[0]
	assert.Equal(t, "MONDAY", assignment.Day)
	assert.Equal(t, "09:00", assignment.StartTime)
	assert.Equal(t, "10:00", assignment.EndTime)
	assert.Equal(t, "Room 1", assignment.ClassroomName)
	assert.Equal(t, "Dr. Adams", assignment.TeacherName)

	assert.Equal(t, dto.AlgorithmGenetic, result.Statistics.AlgorithmUsed)
	assert.False(t, result.Cancelled)
	assert.Equal(t, result, completed, "OnComplete receives the formatted result")
}

func TestGenerateHybridEndToEnd(t *testing.T) {
	svc := newServiceFixture()
	result, err := svc.Generate(context.Background(), trivialRequest(dto.AlgorithmHybridAdvanced), engine.Hooks{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.BestSolution.Fitness)
	assert.Equal(t, dto.AlgorithmHybridAdvanced, result.Statistics.AlgorithmUsed)
}

func TestGenerateIsDeterministicForFixedSeed(t *testing.T) {
	svc := newServiceFixture()
	first, err := svc.Generate(context.Background(), trivialRequest(dto.AlgorithmGenetic), engine.Hooks{})
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), trivialRequest(dto.AlgorithmGenetic), engine.Hooks{})
	require.NoError(t, err)
	assert.Equal(t, first.BestSolution.Assignments, second.BestSolution.Assignments)
}

func TestStartGenerationReportsProgressAndResult(t *testing.T) {
	svc := newServiceFixture()
	var mu sync.Mutex
	events := 0
	hooks := engine.Hooks{OnProgress: func(dto.ProgressEvent) {
		mu.Lock()
		events++
		mu.Unlock()
	}}

	runID, err := svc.StartGeneration(context.Background(), trivialRequest(dto.AlgorithmGenetic), hooks)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		_, _, done := svc.Result(runID)
		return done
	}, 5*time.Second, 10*time.Millisecond)

	result, runErr, done := svc.Result(runID)
	require.True(t, done)
	require.NoError(t, runErr)
	assert.Equal(t, 1.0, result.BestSolution.Fitness)

	progress, ok := svc.Progress(runID)
	require.True(t, ok)
	assert.Equal(t, runID, progress.RunID)
	mu.Lock()
	assert.Greater(t, events, 0)
	mu.Unlock()
}

func TestCancelAsyncRun(t *testing.T) {
	svc := newServiceFixture()
	req := trivialRequest(dto.AlgorithmGenetic)
	// every admissible day is avoided, so the target fitness is unreachable
	// and the run ends only through cancellation
	req.Courses[0].Scheduling.AvoidDays = req.Constraints.WorkingDays
	req.Genetic = &dto.GeneticParams{PopulationSize: 10, MaxGenerations: 1000000, StallLimit: 1000000}

	runID, err := svc.StartGeneration(context.Background(), req, engine.Hooks{})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	require.True(t, svc.Cancel(runID))

	require.Eventually(t, func() bool {
		_, _, done := svc.Result(runID)
		return done
	}, 5*time.Second, 10*time.Millisecond)

	result, runErr, _ := svc.Result(runID)
	require.NoError(t, runErr)
	assert.True(t, result.Cancelled)
	assert.NotEmpty(t, result.BestSolution.Assignments)
}

func TestStartGenerationThroughQueue(t *testing.T) {
	queue := jobs.NewQueue("generations", jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()})
	queue.Start(context.Background())
	defer queue.Stop()

	svc := NewGenerationService(validator.New(), zap.NewNop(), NewMetrics(), queue, GenerationConfig{})
	runID, err := svc.StartGeneration(context.Background(), trivialRequest(dto.AlgorithmHybridAdvanced), engine.Hooks{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, done := svc.Result(runID)
		return done
	}, 5*time.Second, 10*time.Millisecond)

	result, runErr, _ := svc.Result(runID)
	require.NoError(t, runErr)
	assert.Equal(t, 1.0, result.BestSolution.Fitness)
}

func TestCancelUnknownRun(t *testing.T) {
	svc := newServiceFixture()
	assert.False(t, svc.Cancel("missing"))
}

func TestProgressUnknownRun(t *testing.T) {
	svc := newServiceFixture()
	_, ok := svc.Progress("missing")
	assert.False(t, ok)
}
