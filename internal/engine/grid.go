package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/timetable-engine/internal/models"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

// Slot is an atomic window on the time grid. Start and End are minutes since
// midnight; ID is stable within a run and ordered by (day, start).
type Slot struct {
	ID    int
	Day   string
	Start int
	End   int
}

// StartClock renders the slot start as HH:MM.
func (s Slot) StartClock() string { return MinutesToClock(s.Start) }

// EndClock renders the slot end as HH:MM.
func (s Slot) EndClock() string { return MinutesToClock(s.End) }

type breakWindow struct {
	start int
	end   int
}

// Grid enumerates the admissible slots derived from the constraint config.
type Grid struct {
	slotDuration int
	days         []string
	slots        []Slot
	byDay        map[string][]Slot
	index        map[string]map[int]int
	breaks       []breakWindow
}

var weekOrder = map[string]int{
	"MONDAY":    1,
	"TUESDAY":   2,
	"WEDNESDAY": 3,
	"THURSDAY":  4,
	"FRIDAY":    5,
	"SATURDAY":  6,
	"SUNDAY":    7,
}

// CanonicalDay normalises day names ("Mon", "monday") to their canonical
// uppercase form. Returns false for unrecognised names.
func CanonicalDay(name string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if _, ok := weekOrder[upper]; ok {
		return upper, true
	}
	if len(upper) >= 3 {
		prefix := upper[:3]
		for day := range weekOrder {
			if strings.HasPrefix(day, prefix) {
				return day, true
			}
		}
	}
	return "", false
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return hours*60 + minutes, nil
}

// MinutesToClock renders minutes since midnight as HH:MM.
func MinutesToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NewGrid builds the slot grid for the configured working week.
func NewGrid(cfg models.ConstraintConfig) (*Grid, error) {
	if cfg.SlotDuration <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slotDuration must be positive")
	}
	start, err := ParseClock(cfg.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startTime")
	}
	end, err := ParseClock(cfg.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endTime")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}
	if len(cfg.WorkingDays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workingDays must not be empty")
	}

	breaks := make([]breakWindow, 0, len(cfg.BreakSlots))
	for _, raw := range cfg.BreakSlots {
		parts := strings.SplitN(raw, "-", 2)
		if len(parts) != 2 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid break slot %q, expected HH:MM-HH:MM", raw))
		}
		bs, err := ParseClock(parts[0])
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid break start")
		}
		be, err := ParseClock(parts[1])
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid break end")
		}
		if bs >= be {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("break slot %q has non-positive length", raw))
		}
		breaks = append(breaks, breakWindow{start: bs, end: be})
	}

	seen := make(map[string]bool)
	days := make([]string, 0, len(cfg.WorkingDays))
	for _, raw := range cfg.WorkingDays {
		day, ok := CanonicalDay(raw)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown working day %q", raw))
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return weekOrder[days[i]] < weekOrder[days[j]] })

	grid := &Grid{
		slotDuration: cfg.SlotDuration,
		days:         days,
		byDay:        make(map[string][]Slot, len(days)),
		index:        make(map[string]map[int]int, len(days)),
		breaks:       breaks,
	}

	id := 0
	for _, day := range days {
		grid.index[day] = make(map[int]int)
		for t := start; t+cfg.SlotDuration <= end; t += cfg.SlotDuration {
			if overlapsBreak(breaks, t, t+cfg.SlotDuration) {
				continue
			}
			slot := Slot{ID: id, Day: day, Start: t, End: t + cfg.SlotDuration}
			grid.slots = append(grid.slots, slot)
			grid.byDay[day] = append(grid.byDay[day], slot)
			grid.index[day][t] = id
			id++
		}
	}
	if len(grid.slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time grid contains no admissible slots")
	}
	return grid, nil
}

func overlapsBreak(breaks []breakWindow, start, end int) bool {
	for _, b := range breaks {
		if start < b.end && b.start < end {
			return true
		}
	}
	return false
}

// Slots returns the full ordered slot sequence.
func (g *Grid) Slots() []Slot { return g.slots }

// SlotsByDay returns the ordered slots of one day.
func (g *Grid) SlotsByDay(day string) []Slot {
	canonical, ok := CanonicalDay(day)
	if !ok {
		return nil
	}
	return g.byDay[canonical]
}

// Days returns the canonical working days in week order.
func (g *Grid) Days() []string { return g.days }

// SlotDuration returns the slot length in minutes.
func (g *Grid) SlotDuration() int { return g.slotDuration }

// SlotByID resolves a slot id.
func (g *Grid) SlotByID(id int) (Slot, bool) {
	if id < 0 || id >= len(g.slots) {
		return Slot{}, false
	}
	return g.slots[id], true
}

// FindSlot resolves (day, start minutes) to a slot.
func (g *Grid) FindSlot(day string, start int) (Slot, bool) {
	canonical, ok := CanonicalDay(day)
	if !ok {
		return Slot{}, false
	}
	id, ok := g.index[canonical][start]
	if !ok {
		return Slot{}, false
	}
	return g.slots[id], true
}

// Consecutive returns the k-1 slot ids following slotID on the same day when
// they are strictly adjacent, and false otherwise.
func (g *Grid) Consecutive(slotID, k int) ([]int, bool) {
	slot, ok := g.SlotByID(slotID)
	if !ok {
		return nil, false
	}
	if k <= 1 {
		return []int{}, true
	}
	ids := make([]int, 0, k-1)
	prev := slot
	for i := 1; i < k; i++ {
		next, ok := g.SlotByID(slotID + i)
		if !ok || next.Day != prev.Day || next.Start != prev.End {
			return nil, false
		}
		ids = append(ids, next.ID)
		prev = next
	}
	return ids, true
}

// RunStarts lists slot ids that can host a run of k adjacent slots.
func (g *Grid) RunStarts(k int) []int {
	starts := make([]int, 0, len(g.slots))
	for _, slot := range g.slots {
		if _, ok := g.Consecutive(slot.ID, k); ok {
			starts = append(starts, slot.ID)
		}
	}
	return starts
}

// BreakWindows exposes the configured break intervals in minutes.
func (g *Grid) BreakWindows() [][2]int {
	out := make([][2]int, len(g.breaks))
	for i, b := range g.breaks {
		out[i] = [2]int{b.start, b.end}
	}
	return out
}
