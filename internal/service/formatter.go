package service

import (
	"sort"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/engine"
	"github.com/noah-isme/timetable-engine/internal/models"
)

// FormatResult denormalizes the winning candidate into presentation rows and
// run statistics. The output is deterministic for a given outcome, and
// normalising an already formatted result leaves it unchanged.
func FormatResult(p *engine.Problem, out *engine.Outcome) *dto.GenerationResult {
	eval := p.Evaluate(out.Best)

	assignments := make([]models.Assignment, 0, len(p.Sessions))
	for i := range p.Sessions {
		s := &p.Sessions[i]
		gene := out.Best.Genes[i]
		if gene.SlotID < 0 || gene.Room < 0 {
			continue
		}
		slot, ok := p.Grid.SlotByID(gene.SlotID)
		if !ok {
			continue
		}
		teacherName := s.TeacherID
		if teacher, ok := p.TeacherByID(s.TeacherID); ok {
			teacherName = teacher.Name
		}
		room := p.Rooms[gene.Room]
		assignments = append(assignments, models.Assignment{
			CourseID:      s.Course.ID,
			CourseName:    s.Course.Name,
			CourseCode:    s.Course.Code,
			Batch:         s.Batch,
			TeacherID:     s.TeacherID,
			TeacherName:   teacherName,
			ClassroomID:   room.ID,
			ClassroomName: room.Name,
			Day:           slot.Day,
			StartTime:     engine.MinutesToClock(slot.Start),
			EndTime:       engine.MinutesToClock(slot.Start + s.DurationMin),
			SlotID:        slot.ID,
			StudentGroup:  s.Cohort,
			Duration:      s.Course.Duration,
		})
	}

	result := &dto.GenerationResult{
		BestSolution: dto.BestSolution{
			Assignments: assignments,
			Fitness:     eval.Fitness,
			Violations:  eval.Violations,
		},
		Statistics: dto.GenerationStatistics{
			FinalGeneration:         out.Generations,
			FinalIteration:          out.Iterations,
			TotalViolations:         eval.Hard + eval.Soft,
			CoreSubjectsScheduled:   countCoreScheduled(p, out.Best),
			ElectiveGroupsScheduled: countElectiveGroups(p, out.Best),
			AlgorithmUsed:           out.Algorithm,
		},
		Cancelled: out.Cancelled,
	}
	NormalizeResult(result)
	return result
}

// NormalizeResult sorts the schedule rows into their canonical order. It is
// idempotent: normalising twice yields an equal result.
func NormalizeResult(result *dto.GenerationResult) {
	sort.SliceStable(result.BestSolution.Assignments, func(i, j int) bool {
		a, b := result.BestSolution.Assignments[i], result.BestSolution.Assignments[j]
		if a.SlotID != b.SlotID {
			return a.SlotID < b.SlotID
		}
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		return a.Batch < b.Batch
	})
}

func countCoreScheduled(p *engine.Problem, c *engine.Candidate) int {
	count := 0
	for i := range p.Courses {
		if !p.Courses[i].IsCore {
			continue
		}
		if courseFullyAssigned(p, c, i) {
			count++
		}
	}
	return count
}

func courseFullyAssigned(p *engine.Problem, c *engine.Candidate, courseIdx int) bool {
	sessions := p.CourseSessions[courseIdx]
	if len(sessions) == 0 {
		return false
	}
	for _, si := range sessions {
		if c.Genes[si].SlotID < 0 || c.Genes[si].Room < 0 {
			return false
		}
	}
	return true
}

// countElectiveGroups counts elective groups whose members are all assigned
// in mutually disjoint time windows.
func countElectiveGroups(p *engine.Problem, c *engine.Candidate) int {
	groups := make(map[string][]int)
	for i := range p.Courses {
		if p.Courses[i].ElectiveGroup != "" {
			groups[p.Courses[i].ElectiveGroup] = append(groups[p.Courses[i].ElectiveGroup], i)
		}
	}
	count := 0
	for _, members := range groups {
		if electiveGroupScheduled(p, c, members) {
			count++
		}
	}
	return count
}

func electiveGroupScheduled(p *engine.Problem, c *engine.Candidate, members []int) bool {
	type window struct {
		course     int
		day        string
		start, end int
	}
	var windows []window
	for _, courseIdx := range members {
		if !courseFullyAssigned(p, c, courseIdx) {
			return false
		}
		for _, si := range p.CourseSessions[courseIdx] {
			s := &p.Sessions[si]
			slot, ok := p.Grid.SlotByID(c.Genes[si].SlotID)
			if !ok {
				return false
			}
			windows = append(windows, window{course: courseIdx, day: slot.Day, start: slot.Start, end: slot.Start + s.DurationMin})
		}
	}
	// batch siblings of one course legitimately share a slot
	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			if windows[i].course == windows[j].course {
				continue
			}
			if windows[i].day == windows[j].day && windows[i].start < windows[j].end && windows[j].start < windows[i].end {
				return false
			}
		}
	}
	return true
}
