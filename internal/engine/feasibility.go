package engine

import (
	"fmt"

	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

// CheckFeasibility audits the problem before any search starts. It rejects
// instances whose required course-hours exceed the available teacher-slot or
// room-slot capacity, naming the bottleneck resource.
func CheckFeasibility(p *Problem) error {
	totalSlots := len(p.Grid.Slots())

	requiredTotal := 0
	requiredByTeacher := make(map[string]int)
	requiredByCohort := make(map[string]int)
	for i := range p.Sessions {
		s := &p.Sessions[i]
		requiredTotal += s.SlotsNeeded
		requiredByTeacher[s.TeacherID] += s.SlotsNeeded
		if s.Batch == "" {
			requiredByCohort[s.Cohort] += s.SlotsNeeded
		}
	}

	if roomCapacity := totalSlots * len(p.Rooms); requiredTotal > roomCapacity {
		return appErrors.Clone(appErrors.ErrInfeasible,
			fmt.Sprintf("required %d slot-hours exceed classroom capacity of %d slot-hours; bottleneck: classrooms", requiredTotal, roomCapacity))
	}

	for teacherID, required := range requiredByTeacher {
		available := p.teacherFreeSlots(teacherID)
		if required > available {
			teacher, _ := p.TeacherByID(teacherID)
			name := teacherID
			if teacher != nil {
				name = teacher.Name
			}
			return appErrors.Clone(appErrors.ErrInfeasible,
				fmt.Sprintf("teacher %s needs %d slot-hours but only %d are available; bottleneck: teacher %s", name, required, available, teacherID))
		}
	}

	for cohort, required := range requiredByCohort {
		if required > totalSlots {
			return appErrors.Clone(appErrors.ErrInfeasible,
				fmt.Sprintf("student group %s needs %d slot-hours but the grid has only %d slots; bottleneck: student group %s", cohort, required, totalSlots, cohort))
		}
	}

	return nil
}

func (p *Problem) teacherFreeSlots(teacherID string) int {
	free := 0
	for _, slot := range p.Grid.Slots() {
		if p.TeacherFree(teacherID, slot.Day, slot.Start, slot.End) {
			free++
		}
	}
	return free
}
