package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
)

func testHybridParams() dto.HybridParams {
	return dto.HybridParams{
		MaxIterations:            200,
		InitialTemperature:       1000,
		CoolingRate:              0.95,
		IterationsPerTemperature: 20,
		TabuListSize:             50,
		DomainFilteringStrength:  0.8,
		NeighborhoodSample:       10,
		ProgressEvery:            25,
		AcceptanceScale:          1000,
	}
}

func TestHybridPinsCoreCourseDeterministically(t *testing.T) {
	// one shared teacher free only at 09:00; the core course must win that
	// slot regardless of the RNG seed
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Monday"}
	cfg.StartTime = "09:00"
	cfg.EndTime = "11:00"
	teacher := models.Teacher{ID: "t1", Name: "Dr. Adams", UnavailableSlots: []models.UnavailableSlot{{Day: "Monday", StartTime: "10:00"}}}
	core := simpleCourse("core", "t1", "g1")
	core.IsCore = true
	core.Priority = 5
	other := simpleCourse("other", "t1", "g2")

	for _, seed := range []int64{1, 99, 12345} {
		p := mustProblem(t,
			[]models.Teacher{teacher},
			[]models.Classroom{lectureRoom("r1", "Room 1", 30), lectureRoom("r2", "Room 2", 30)},
			[]models.Course{other, core},
			cfg,
		)
		eng := NewHybridEngine(p, testHybridParams(), seed, Hooks{}, nil, nil)
		out, err := eng.Run(context.Background())
		require.NoError(t, err)

		coreIdx, ok := p.CourseIndex("core")
		require.True(t, ok)
		coreSession := p.CourseSessions[coreIdx][0]
		assert.Equal(t, 0, out.Best.Genes[coreSession].SlotID, "seed %d: core course keeps the 09:00 slot", seed)
		assert.True(t, eng.Pinned()[coreIdx])
	}
}

func TestHybridSchedulesElectiveGroupDisjointly(t *testing.T) {
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Monday"}
	electives := make([]models.Course, 0, 4)
	teachers := []models.Teacher{
		{ID: "t1", Name: "Dr. Adams"}, {ID: "t2", Name: "Dr. Brown"},
		{ID: "t3", Name: "Dr. Clark"}, {ID: "t4", Name: "Dr. Davis"},
	}
	for i, id := range []string{"e1", "e2", "e3"} {
		course := simpleCourse(id, teachers[i].ID, "cohortC")
		course.ElectiveGroup = "hum"
		electives = append(electives, course)
	}
	coreCourse := simpleCourse("core", "t4", "cohortC")
	coreCourse.IsCore = true
	coreCourse.Priority = 5
	electives = append(electives, coreCourse)

	p := mustProblem(t, teachers,
		[]models.Classroom{lectureRoom("r1", "Room 1", 30), lectureRoom("r2", "Room 2", 30)},
		electives, cfg)
	eng := NewHybridEngine(p, testHybridParams(), 42, Hooks{}, nil, nil)
	out, err := eng.Run(context.Background())
	require.NoError(t, err)

	eval := p.Evaluate(out.Best)
	assert.Zero(t, eval.Hard, "enough slots exist for a conflict-free cohort")

	slots := make(map[int]string)
	for i := range p.Sessions {
		slotID := out.Best.Genes[i].SlotID
		prev, taken := slots[slotID]
		assert.False(t, taken, "courses %s and %s share slot %d", prev, p.Sessions[i].Course.ID, slotID)
		slots[slotID] = p.Sessions[i].Course.ID
	}
}

func TestHybridEmitsPhaseProgress(t *testing.T) {
	p := trivialProblem(t)
	var mu sync.Mutex
	phases := make(map[string]bool)
	hooks := Hooks{OnProgress: func(ev dto.ProgressEvent) {
		mu.Lock()
		phases[ev.Phase] = true
		mu.Unlock()
	}}
	params := testHybridParams()
	params.ProgressEvery = 10
	eng := NewHybridEngine(p, params, 42, hooks, nil, nil)

	_, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, phases[PhaseDomainFiltering])
	assert.True(t, phases[PhaseAnnealing])
}

func TestHybridIsDeterministicForFixedSeed(t *testing.T) {
	build := func() *Problem {
		cfg := weekConstraints()
		cfg.WorkingDays = []string{"Monday", "Tuesday"}
		cfg.StartTime = "09:00"
		cfg.EndTime = "12:00"
		return mustProblem(t,
			[]models.Teacher{{ID: "t1", Name: "Dr. Adams"}, {ID: "t2", Name: "Dr. Brown"}},
			[]models.Classroom{lectureRoom("r1", "Room 1", 30), lectureRoom("r2", "Room 2", 30)},
			[]models.Course{
				simpleCourse("c1", "t1", "g1"),
				simpleCourse("c2", "t1", "g2"),
				simpleCourse("c3", "t2", "g1"),
				simpleCourse("c4", "t2", "g2"),
			},
			cfg,
		)
	}
	run := func() *Outcome {
		eng := NewHybridEngine(build(), testHybridParams(), 777, Hooks{}, nil, nil)
		out, err := eng.Run(context.Background())
		require.NoError(t, err)
		return out
	}
	first := run()
	second := run()
	assert.Equal(t, first.Best.Genes, second.Best.Genes)
	assert.Equal(t, first.Iterations, second.Iterations)
}

func TestHybridCancellation(t *testing.T) {
	p := trivialProblem(t)
	params := testHybridParams()
	params.MaxIterations = 10000000
	params.InitialTemperature = 1e12
	control := NewControl()
	control.Cancel()
	eng := NewHybridEngine(p, params, 42, Hooks{}, control, nil)

	out, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Cancelled)
	require.NotNil(t, out.Best)
}

func TestApplyMoveNeighborhoodClosure(t *testing.T) {
	p := contestedProblem(t)
	c := BuildSeed(p, nil)
	p.Score(c)

	courseA, _ := p.CourseIndex("c1")
	courseB, _ := p.CourseIndex("c2")
	neighbor := applyMove(p, c, moveSig{course: courseA, kind: moveSwap, target: courseB})

	changed := 0
	for i := range c.Genes {
		if c.Genes[i] != neighbor.Genes[i] {
			changed++
		}
	}
	assert.LessOrEqual(t, changed, 2, "a swap touches at most two assignments")
	assert.False(t, neighbor.Evaluated(), "moves invalidate cached fitness")
}

func TestTabuListFIFOEviction(t *testing.T) {
	list := newTabuList(2)
	a := moveSig{course: 1, kind: moveSlot, target: 3}
	b := moveSig{course: 2, kind: moveRoom, target: 0}
	c := moveSig{course: 3, kind: moveSwap, target: 1}

	list.Add(a)
	list.Add(b)
	assert.True(t, list.Contains(a))
	list.Add(c)
	assert.False(t, list.Contains(a), "oldest signature evicted at capacity")
	assert.True(t, list.Contains(b))
	assert.True(t, list.Contains(c))
	assert.Equal(t, 2, list.Len())
}
