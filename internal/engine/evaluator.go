package engine

import (
	"sort"
)

// Violation category identifiers reported in evaluation results.
const (
	ViolationTeacherConflict    = "teacher_conflicts"
	ViolationClassroomConflict  = "classroom_conflicts"
	ViolationGroupConflict      = "group_conflicts"
	ViolationCapacity           = "capacity"
	ViolationRoomType           = "room_type"
	ViolationTeacherUnavailable = "teacher_unavailable"
	ViolationBreakOverlap       = "break_overlap"
	ViolationExplicitConflict   = "explicit_conflicts"
	ViolationUnscheduled        = "unscheduled"
	ViolationWorkload           = "workload_balance"
	ViolationConsecutive        = "consecutive_hours"
	ViolationPreference         = "time_preferences"
	ViolationDayBalance         = "day_distribution"
	ViolationGaps               = "student_gaps"
	ViolationLinked             = "linked_adjacency"
)

var hardWeights = map[string]int{
	ViolationTeacherConflict:    10,
	ViolationClassroomConflict:  10,
	ViolationGroupConflict:      8,
	ViolationCapacity:           5,
	ViolationRoomType:           6,
	ViolationTeacherUnavailable: 7,
	ViolationBreakOverlap:       4,
	ViolationExplicitConflict:   8,
	ViolationUnscheduled:        10,
}

var softWeights = map[string]int{
	ViolationWorkload:    2,
	ViolationConsecutive: 1,
	ViolationPreference:  3,
	ViolationDayBalance:  1,
	ViolationGaps:        1,
	ViolationLinked:      1,
}

// Evaluation is the weighted violation vector and scalar fitness of a
// candidate.
type Evaluation struct {
	Hard       int
	Soft       int
	Violations map[string]int
	Fitness    float64
}

type placed struct {
	session int
	day     string
	start   int
	end     int
}

// Evaluate computes the full violation vector for a candidate. Pure and
// deterministic: identical candidates always yield identical evaluations.
func (p *Problem) Evaluate(c *Candidate) Evaluation {
	violations := make(map[string]int)

	byTeacher := make(map[string][]placed)
	byRoom := make(map[int][]placed)
	byCohort := make(map[string][]placed)

	for i := range p.Sessions {
		s := &p.Sessions[i]
		gene := c.Genes[i]
		if gene.SlotID < 0 || gene.Room < 0 || gene.Room >= len(p.Rooms) {
			violations[ViolationUnscheduled]++
			continue
		}
		day, start, end, ok := p.sessionInterval(s, gene.SlotID)
		if !ok {
			violations[ViolationUnscheduled]++
			continue
		}
		entry := placed{session: i, day: day, start: start, end: end}
		byTeacher[s.TeacherID] = append(byTeacher[s.TeacherID], entry)
		byRoom[gene.Room] = append(byRoom[gene.Room], entry)
		byCohort[s.Cohort] = append(byCohort[s.Cohort], entry)

		room := &p.Rooms[gene.Room]
		if room.Capacity < s.Students {
			violations[ViolationCapacity]++
		}
		if want := requiredRoomType(s.Course); want != "" && room.Type != want {
			violations[ViolationRoomType]++
		} else if !room.HasFacilities(s.Course.RoomRequirements.Facilities) {
			violations[ViolationRoomType]++
		}
		if !p.TeacherFree(s.TeacherID, day, start, end) {
			violations[ViolationTeacherUnavailable]++
		}
		if p.Config.EnforceBreaks && p.intersectsBreak(start, end) {
			violations[ViolationBreakOverlap]++
		}
	}

	for _, entries := range byTeacher {
		violations[ViolationTeacherConflict] += countOverlaps(entries, nil)
	}
	for _, entries := range byRoom {
		violations[ViolationClassroomConflict] += countOverlaps(entries, nil)
	}
	for _, entries := range byCohort {
		violations[ViolationGroupConflict] += countOverlaps(entries, func(a, b int) bool {
			return groupsCollide(&p.Sessions[a], &p.Sessions[b])
		})
	}
	violations[ViolationExplicitConflict] = p.countExplicitConflicts(c)

	p.scoreWorkload(byTeacher, violations)
	p.scoreConsecutive(byTeacher, violations)
	p.scorePreferences(c, violations)
	p.scoreDayBalance(byCohort, violations)
	p.scoreGaps(byCohort, violations)
	p.scoreLinked(c, violations)

	hard, soft, total := 0, 0, 0
	for key, count := range violations {
		if count == 0 {
			delete(violations, key)
			continue
		}
		if w, ok := hardWeights[key]; ok {
			hard += count
			total += w * count
		} else {
			soft += count
			total += softWeights[key] * count
		}
	}

	fitness := 1.0 / (1.0 + float64(total))
	ceiling := p.FitnessCeiling
	if ceiling <= 0 {
		ceiling = DefaultFitnessCeiling
	}
	if hard > 0 && fitness > ceiling {
		fitness = ceiling
	}

	return Evaluation{Hard: hard, Soft: soft, Violations: violations, Fitness: fitness}
}

// Score evaluates the candidate and caches the result on it.
func (p *Problem) Score(c *Candidate) {
	if c.Evaluated() {
		return
	}
	eval := p.Evaluate(c)
	c.Fitness = eval.Fitness
	c.Hard = eval.Hard
	c.Soft = eval.Soft
	c.Violations = eval.Violations
	c.evaluated = true
}

func (p *Problem) intersectsBreak(start, end int) bool {
	for _, b := range p.Grid.BreakWindows() {
		if start < b[1] && b[0] < end {
			return true
		}
	}
	return false
}

// countOverlaps counts pairwise time overlaps within one resource bucket.
// The filter, when non-nil, decides whether a session pair actually contends.
func countOverlaps(entries []placed, filter func(a, b int) bool) int {
	count := 0
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if a.day != b.day {
				continue
			}
			if a.start >= b.end || b.start >= a.end {
				continue
			}
			if filter != nil && !filter(a.session, b.session) {
				continue
			}
			count++
		}
	}
	return count
}

func (p *Problem) countExplicitConflicts(c *Candidate) int {
	count := 0
	type pairKey struct{ a, b int }
	seen := make(map[pairKey]bool)
	for i := range p.Courses {
		for _, otherID := range p.Courses[i].ConflictsWith {
			j, ok := p.CourseIndex(otherID)
			if !ok || i == j {
				continue
			}
			key := pairKey{a: i, b: j}
			if j < i {
				key = pairKey{a: j, b: i}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			if p.coursesOverlap(c, i, j) {
				count++
			}
		}
	}
	return count
}

func (p *Problem) coursesOverlap(c *Candidate, courseA, courseB int) bool {
	for _, si := range p.CourseSessions[courseA] {
		dayA, startA, endA, okA := p.placedInterval(c, si)
		if !okA {
			continue
		}
		for _, sj := range p.CourseSessions[courseB] {
			dayB, startB, endB, okB := p.placedInterval(c, sj)
			if !okB || dayA != dayB {
				continue
			}
			if startA < endB && startB < endA {
				return true
			}
		}
	}
	return false
}

func (p *Problem) placedInterval(c *Candidate, session int) (string, int, int, bool) {
	gene := c.Genes[session]
	if gene.SlotID < 0 {
		return "", 0, 0, false
	}
	return p.sessionInterval(&p.Sessions[session], gene.SlotID)
}

func (p *Problem) scoreWorkload(byTeacher map[string][]placed, violations map[string]int) {
	if !p.Config.BalanceWorkload {
		return
	}
	for teacherID, entries := range byTeacher {
		teacher, ok := p.TeacherByID(teacherID)
		if !ok {
			continue
		}
		minutes := 0
		for _, e := range entries {
			minutes += e.end - e.start
		}
		hours := minutes / 60
		if teacher.PreferredHours > 0 && hours > teacher.PreferredHours {
			violations[ViolationWorkload] += hours - teacher.PreferredHours
		}
		if teacher.MaxHours > 0 && hours > teacher.MaxHours {
			violations[ViolationWorkload] += hours - teacher.MaxHours
		}
	}
}

func (p *Problem) scoreConsecutive(byTeacher map[string][]placed, violations map[string]int) {
	limit := p.Config.MaxConsecutiveHours
	if limit <= 0 {
		return
	}
	for _, entries := range byTeacher {
		byDay := make(map[string][]placed)
		for _, e := range entries {
			byDay[e.day] = append(byDay[e.day], e)
		}
		for _, dayEntries := range byDay {
			sort.Slice(dayEntries, func(i, j int) bool { return dayEntries[i].start < dayEntries[j].start })
			runStart, runEnd := -1, -1
			flush := func() {
				if runStart < 0 {
					return
				}
				if hours := (runEnd - runStart) / 60; hours > limit {
					violations[ViolationConsecutive] += hours - limit
				}
			}
			for _, e := range dayEntries {
				if runStart < 0 || e.start > runEnd {
					flush()
					runStart, runEnd = e.start, e.end
					continue
				}
				if e.end > runEnd {
					runEnd = e.end
				}
			}
			flush()
		}
	}
}

func (p *Problem) scorePreferences(c *Candidate, violations map[string]int) {
	for i := range p.Sessions {
		s := &p.Sessions[i]
		day, start, _, ok := p.placedInterval(c, i)
		if !ok {
			continue
		}
		sched := s.Course.Scheduling
		if containsDay(sched.AvoidDays, day) {
			violations[ViolationPreference]++
		}
		if len(sched.PreferredDays) > 0 && !containsDay(sched.PreferredDays, day) {
			violations[ViolationPreference]++
		}
		startClock := MinutesToClock(start)
		if containsClock(sched.AvoidTimeSlots, startClock) {
			violations[ViolationPreference]++
		}
		if len(sched.PreferredTimeSlots) > 0 && !containsClock(sched.PreferredTimeSlots, startClock) {
			violations[ViolationPreference]++
		}
	}
}

func containsDay(days []string, day string) bool {
	for _, raw := range days {
		if canonical, ok := CanonicalDay(raw); ok && canonical == day {
			return true
		}
	}
	return false
}

func containsClock(slots []string, clock string) bool {
	for _, raw := range slots {
		if minutes, err := ParseClock(raw); err == nil && MinutesToClock(minutes) == clock {
			return true
		}
	}
	return false
}

func (p *Problem) scoreDayBalance(byCohort map[string][]placed, violations map[string]int) {
	for _, entries := range byCohort {
		counts := make(map[string]int, len(p.Grid.Days()))
		for _, e := range entries {
			counts[e.day]++
		}
		minCount, maxCount := -1, 0
		for _, day := range p.Grid.Days() {
			n := counts[day]
			if minCount < 0 || n < minCount {
				minCount = n
			}
			if n > maxCount {
				maxCount = n
			}
		}
		if maxCount-minCount > 1 {
			violations[ViolationDayBalance] += maxCount - minCount - 1
		}
	}
}

func (p *Problem) scoreGaps(byCohort map[string][]placed, violations map[string]int) {
	for cohort, entries := range byCohort {
		maxGaps := p.cohortGapLimit(cohort)
		byDay := make(map[string][]placed)
		for _, e := range entries {
			byDay[e.day] = append(byDay[e.day], e)
		}
		for _, dayEntries := range byDay {
			if len(dayEntries) < 2 {
				continue
			}
			sort.Slice(dayEntries, func(i, j int) bool { return dayEntries[i].start < dayEntries[j].start })
			gapMinutes := 0
			for i := 0; i < len(dayEntries)-1; i++ {
				if diff := dayEntries[i+1].start - dayEntries[i].end; diff > 0 {
					gapMinutes += diff
				}
			}
			gapSlots := gapMinutes / p.Grid.SlotDuration()
			if gapSlots > maxGaps {
				violations[ViolationGaps] += gapSlots - maxGaps
			}
		}
	}
}

// cohortGapLimit derives the strictest configured gap tolerance among a
// cohort's courses, defaulting to 2 slots.
func (p *Problem) cohortGapLimit(cohort string) int {
	limit := -1
	for i := range p.Courses {
		if p.Courses[i].StudentGroup != cohort {
			continue
		}
		if g := p.Courses[i].Scheduling.MaxGapsPerDay; g > 0 && (limit < 0 || g < limit) {
			limit = g
		}
	}
	if limit < 0 {
		return 2
	}
	return limit
}

func (p *Problem) scoreLinked(c *Candidate, violations map[string]int) {
	type pairKey struct{ a, b int }
	seen := make(map[pairKey]bool)
	for i := range p.Courses {
		for _, otherID := range p.Courses[i].LinkedCourses {
			j, ok := p.CourseIndex(otherID)
			if !ok || i == j {
				continue
			}
			key := pairKey{a: i, b: j}
			if j < i {
				key = pairKey{a: j, b: i}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			if !p.coursesAdjacent(c, i, j) {
				violations[ViolationLinked]++
			}
		}
	}
}

func (p *Problem) coursesAdjacent(c *Candidate, courseA, courseB int) bool {
	if len(p.CourseSessions[courseA]) == 0 || len(p.CourseSessions[courseB]) == 0 {
		return false
	}
	dayA, startA, endA, okA := p.placedInterval(c, p.CourseSessions[courseA][0])
	dayB, startB, endB, okB := p.placedInterval(c, p.CourseSessions[courseB][0])
	if !okA || !okB || dayA != dayB {
		return false
	}
	return endA == startB || endB == startA
}
