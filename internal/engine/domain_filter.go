package engine

import (
	"sort"
)

// placementValue is one admissible (slot, room) pair for a course.
type placementValue struct {
	slot int
	room int
}

// courseDomain holds the filtered value set of one course.
type courseDomain struct {
	course int
	values []placementValue
}

// buildDomains enumerates (slot, room) values per course: slot runs long
// enough for the course duration, rooms compatible with its primary session,
// and a teacher free at the slot.
func buildDomains(p *Problem) []courseDomain {
	domains := make([]courseDomain, len(p.Courses))
	for courseIdx, sessions := range p.CourseSessions {
		domains[courseIdx] = courseDomain{course: courseIdx}
		if len(sessions) == 0 {
			continue
		}
		primary := &p.Sessions[sessions[0]]
		rooms := p.CompatibleRooms(primary)
		if len(rooms) == 0 {
			rooms = allRoomIndexes(p)
		}
		starts := p.Grid.RunStarts(primary.SlotsNeeded)
		if len(starts) == 0 {
			starts = allSlotIDs(p)
		}
		values := make([]placementValue, 0, len(starts)*len(rooms))
		for _, slotID := range starts {
			if !p.courseTeachersFree(courseIdx, slotID) {
				continue
			}
			for _, roomIdx := range rooms {
				values = append(values, placementValue{slot: slotID, room: roomIdx})
			}
		}
		if len(values) == 0 {
			for _, slotID := range starts {
				values = append(values, placementValue{slot: slotID, room: rooms[0]})
			}
		}
		domains[courseIdx].values = values
	}
	return domains
}

func (p *Problem) courseTeachersFree(courseIdx, slotID int) bool {
	for _, si := range p.CourseSessions[courseIdx] {
		s := &p.Sessions[si]
		day, start, end, ok := p.sessionInterval(s, slotID)
		if !ok || !p.TeacherFree(s.TeacherID, day, start, end) {
			return false
		}
	}
	return true
}

// valueConflicts counts how many values of other courses a value pair-wise
// conflicts with under the hard constraints (teacher, room, group, explicit).
func valueConflicts(p *Problem, domains []courseDomain, courseIdx int, v placementValue) int {
	count := 0
	for _, other := range domains {
		if other.course == courseIdx {
			continue
		}
		for _, w := range other.values {
			if pairConflicts(p, courseIdx, v, other.course, w) {
				count++
			}
		}
	}
	return count
}

func pairConflicts(p *Problem, courseA int, a placementValue, courseB int, b placementValue) bool {
	sa := &p.Sessions[p.CourseSessions[courseA][0]]
	sb := &p.Sessions[p.CourseSessions[courseB][0]]
	dayA, startA, endA, okA := p.sessionInterval(sa, a.slot)
	dayB, startB, endB, okB := p.sessionInterval(sb, b.slot)
	if !okA || !okB || dayA != dayB {
		return false
	}
	if startA >= endB || startB >= endA {
		return false
	}
	if sa.TeacherID == sb.TeacherID {
		return true
	}
	if a.room == b.room {
		return true
	}
	if groupsCollide(sa, sb) {
		return true
	}
	for _, id := range sa.Course.ConflictsWith {
		if id == sb.Course.ID {
			return true
		}
	}
	for _, id := range sb.Course.ConflictsWith {
		if id == sa.Course.ID {
			return true
		}
	}
	return false
}

// filterDomains prunes the most conflict-prone fraction of each course's
// values. strength 1 removes every pair-conflicting value; 0 disables
// pruning. At least one value always survives.
func filterDomains(p *Problem, domains []courseDomain, strength float64) {
	if strength <= 0 {
		return
	}
	if strength > 1 {
		strength = 1
	}
	for i := range domains {
		values := domains[i].values
		if len(values) <= 1 {
			continue
		}
		type scored struct {
			value     placementValue
			conflicts int
			order     int
		}
		scoredValues := make([]scored, len(values))
		conflicted := 0
		for j, v := range values {
			c := valueConflicts(p, domains, domains[i].course, v)
			scoredValues[j] = scored{value: v, conflicts: c, order: j}
			if c > 0 {
				conflicted++
			}
		}
		sort.SliceStable(scoredValues, func(a, b int) bool {
			return scoredValues[a].conflicts < scoredValues[b].conflicts
		})
		remove := int(strength * float64(conflicted))
		keep := len(values) - remove
		if keep < 1 {
			keep = 1
		}
		survivors := scoredValues[:keep]
		// restore (slot, room) enumeration order for deterministic picks
		sort.SliceStable(survivors, func(a, b int) bool {
			return survivors[a].order < survivors[b].order
		})
		kept := make([]placementValue, 0, keep)
		for _, sv := range survivors {
			kept = append(kept, sv.value)
		}
		domains[i].values = kept
	}
}

// assignCore places core courses first using minimum-remaining-values with a
// degree tie-break, pins them, and returns the pinned course bitset. Pure
// tie-break ordering keeps the result seed-independent.
func assignCore(p *Problem, c *Candidate, domains []courseDomain) ([]bool, []int) {
	pinned := make([]bool, len(p.Courses))
	var placedSessions []int

	remaining := make([]int, 0, len(p.Courses))
	for i := range p.Courses {
		if p.Courses[i].IsCore && len(p.CourseSessions[i]) > 0 {
			remaining = append(remaining, i)
		}
	}

	assigned := make(map[int]bool)
	for len(remaining) > 0 {
		bestPos := -1
		bestLive := -1
		bestDegree := -1
		for pos, courseIdx := range remaining {
			live := liveValueCount(p, c, placedSessions, domains[courseIdx])
			degree := coreDegree(p, courseIdx, remaining, assigned)
			if bestPos < 0 || live < bestLive || (live == bestLive && degree > bestDegree) ||
				(live == bestLive && degree == bestDegree && courseIdx < remaining[bestPos]) {
				bestPos, bestLive, bestDegree = pos, live, degree
			}
		}
		courseIdx := remaining[bestPos]
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)

		value, ok := pickCoreValue(p, c, placedSessions, domains[courseIdx])
		if !ok {
			// fall back to the greedy seeder when the filtered domain is dry
			placedSessions = seedCourses(p, c, placedSessions, []int{courseIdx}, nil)
			pinned[courseIdx] = true
			assigned[courseIdx] = true
			continue
		}
		_, rooms := placeCourse(p, c, placedSessions, courseIdx, value.slot)
		if len(p.CourseSessions[courseIdx]) == 1 {
			rooms[0] = value.room
		}
		for idx, si := range p.CourseSessions[courseIdx] {
			c.Genes[si] = Gene{SlotID: value.slot, Room: rooms[idx]}
			placedSessions = append(placedSessions, si)
		}
		pinned[courseIdx] = true
		assigned[courseIdx] = true
	}

	c.Invalidate()
	return pinned, placedSessions
}

// liveValueCount counts domain values that add no hard conflict against the
// sessions placed so far.
func liveValueCount(p *Problem, c *Candidate, placedSessions []int, domain courseDomain) int {
	live := 0
	for _, v := range domain.values {
		if coreValueConflicts(p, c, placedSessions, domain.course, v) == 0 {
			live++
		}
	}
	return live
}

func coreValueConflicts(p *Problem, c *Candidate, placedSessions []int, courseIdx int, v placementValue) int {
	total := 0
	for _, si := range p.CourseSessions[courseIdx] {
		total += placementConflicts(p, c, placedSessions, si, v.slot, v.room)
	}
	return total
}

// coreDegree counts constraint edges a core course shares with the other
// still-unassigned core courses.
func coreDegree(p *Problem, courseIdx int, remaining []int, assigned map[int]bool) int {
	course := &p.Courses[courseIdx]
	degree := 0
	for _, other := range remaining {
		if other == courseIdx || assigned[other] {
			continue
		}
		otherCourse := &p.Courses[other]
		if otherCourse.TeacherID == course.TeacherID ||
			otherCourse.StudentGroup == course.StudentGroup ||
			listsCourse(course.ConflictsWith, otherCourse.ID) ||
			listsCourse(otherCourse.ConflictsWith, course.ID) {
			degree++
		}
	}
	return degree
}

func listsCourse(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// pickCoreValue selects the minimum-conflict value; ties resolve to the
// earliest slot, then the smallest adequate room (domain enumeration order).
func pickCoreValue(p *Problem, c *Candidate, placedSessions []int, domain courseDomain) (placementValue, bool) {
	best := placementValue{}
	bestConf := -1
	for _, v := range domain.values {
		conf := coreValueConflicts(p, c, placedSessions, domain.course, v)
		if bestConf < 0 || conf < bestConf {
			best, bestConf = v, conf
		}
	}
	return best, bestConf >= 0
}
