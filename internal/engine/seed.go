package engine

import (
	"math/rand"
	"sort"
)

// courseOrder sorts course indexes by (isCore desc, priority desc, duration
// desc, studentCount desc), stable on the original index.
func courseOrder(p *Problem) []int {
	order := make([]int, len(p.Courses))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := &p.Courses[order[a]], &p.Courses[order[b]]
		if ca.IsCore != cb.IsCore {
			return ca.IsCore
		}
		if ca.Priority != cb.Priority {
			return ca.Priority > cb.Priority
		}
		if ca.Duration != cb.Duration {
			return ca.Duration > cb.Duration
		}
		return ca.StudentCount > cb.StudentCount
	})
	return order
}

// placementConflicts counts the hard conflicts a tentative placement of one
// session would add against the already placed sessions.
func placementConflicts(p *Problem, c *Candidate, placedSessions []int, si, slotID, roomIdx int) int {
	s := &p.Sessions[si]
	day, start, end, ok := p.sessionInterval(s, slotID)
	if !ok {
		return 1 << 16
	}
	conflicts := 0
	for _, pj := range placedSessions {
		gene := c.Genes[pj]
		otherDay, otherStart, otherEnd, ok := p.placedInterval(c, pj)
		if !ok || otherDay != day {
			continue
		}
		if start >= otherEnd || otherStart >= end {
			continue
		}
		other := &p.Sessions[pj]
		if other.TeacherID == s.TeacherID {
			conflicts++
		}
		if gene.Room == roomIdx {
			conflicts++
		}
		if groupsCollide(other, s) {
			conflicts++
		}
	}
	if !p.TeacherFree(s.TeacherID, day, start, end) {
		conflicts++
	}
	if p.Config.EnforceBreaks && p.intersectsBreak(start, end) {
		conflicts++
	}
	if !p.RoomCompatible(s, roomIdx) {
		conflicts++
	}
	return conflicts
}

// placeCourse assigns all sessions of a course at the given slot, choosing
// the least-conflicting room per session from its compatible rooms (all rooms
// when none is compatible) and keeping batch siblings in distinct rooms.
func placeCourse(p *Problem, c *Candidate, placedSessions []int, courseIdx, slotID int) (int, []int) {
	sessions := p.CourseSessions[courseIdx]
	rooms := make([]int, len(sessions))
	usedRooms := make(map[int]bool, len(sessions))
	total := 0
	for k, si := range sessions {
		choices := p.CompatibleRooms(&p.Sessions[si])
		if len(choices) == 0 {
			choices = allRoomIndexes(p)
		}
		bestRoom, bestConf := -1, 0
		for _, roomIdx := range choices {
			if usedRooms[roomIdx] {
				continue
			}
			conf := placementConflicts(p, c, placedSessions, si, slotID, roomIdx)
			if bestRoom < 0 || conf < bestConf {
				bestRoom, bestConf = roomIdx, conf
			}
		}
		if bestRoom < 0 {
			bestRoom = choices[0]
			bestConf = placementConflicts(p, c, placedSessions, si, slotID, bestRoom)
		}
		rooms[k] = bestRoom
		usedRooms[bestRoom] = true
		total += bestConf
	}
	return total, rooms
}

func allRoomIndexes(p *Problem) []int {
	rooms := make([]int, len(p.Rooms))
	for i := range rooms {
		rooms[i] = i
	}
	return rooms
}

// BuildSeed constructs one candidate greedily. With a nil rng the result is
// fully deterministic; with an rng, equally scored placements are picked at
// random to produce perturbed variants for the genetic population.
func BuildSeed(p *Problem, rng *rand.Rand) *Candidate {
	c := NewCandidate(len(p.Sessions))
	seedCourses(p, c, nil, courseOrder(p), rng)
	c.Invalidate()
	return c
}

// seedCourses places the given courses into the candidate, extending the
// supplied list of already placed sessions, and returns the extended list.
func seedCourses(p *Problem, c *Candidate, placedSessions []int, order []int, rng *rand.Rand) []int {
	for _, courseIdx := range order {
		sessions := p.CourseSessions[courseIdx]
		if len(sessions) == 0 {
			continue
		}
		k := p.Sessions[sessions[0]].SlotsNeeded
		starts := p.Grid.RunStarts(k)
		if len(starts) == 0 {
			starts = allSlotIDs(p)
		}

		bestScore := -1
		var ties []int
		tieRooms := make(map[int][]int)
		for _, slotID := range starts {
			score, rooms := placeCourse(p, c, placedSessions, courseIdx, slotID)
			if bestScore < 0 || score < bestScore {
				bestScore = score
				ties = ties[:0]
				ties = append(ties, slotID)
				tieRooms = map[int][]int{slotID: rooms}
			} else if score == bestScore {
				ties = append(ties, slotID)
				tieRooms[slotID] = rooms
			}
		}

		chosen := ties[0]
		if rng != nil && len(ties) > 1 {
			chosen = ties[rng.Intn(len(ties))]
		}
		rooms := tieRooms[chosen]
		for idx, si := range sessions {
			c.Genes[si] = Gene{SlotID: chosen, Room: rooms[idx]}
			placedSessions = append(placedSessions, si)
		}
	}
	return placedSessions
}

func allSlotIDs(p *Problem) []int {
	ids := make([]int, len(p.Grid.Slots()))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// RandomCandidate builds a uniformly random candidate for population
// diversity.
func RandomCandidate(p *Problem, rng *rand.Rand) *Candidate {
	c := NewCandidate(len(p.Sessions))
	for _, sessions := range p.CourseSessions {
		if len(sessions) == 0 {
			continue
		}
		k := p.Sessions[sessions[0]].SlotsNeeded
		starts := p.Grid.RunStarts(k)
		if len(starts) == 0 {
			starts = allSlotIDs(p)
		}
		slotID := starts[rng.Intn(len(starts))]
		for _, si := range sessions {
			choices := p.CompatibleRooms(&p.Sessions[si])
			if len(choices) == 0 {
				choices = allRoomIndexes(p)
			}
			c.Genes[si] = Gene{SlotID: slotID, Room: choices[rng.Intn(len(choices))]}
		}
	}
	c.Invalidate()
	return c
}
