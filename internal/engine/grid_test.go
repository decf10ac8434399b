package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

func TestGridEnumeratesSlotsInDayOrder(t *testing.T) {
	grid, err := NewGrid(weekConstraints())
	require.NoError(t, err)

	slots := grid.Slots()
	assert.Len(t, slots, 40, "5 days x 8 hourly slots")
	assert.Equal(t, "MONDAY", slots[0].Day)
	assert.Equal(t, 9*60, slots[0].Start)
	assert.Equal(t, 10*60, slots[0].End)
	assert.Equal(t, 0, slots[0].ID)

	for i := 1; i < len(slots); i++ {
		assert.Equal(t, i, slots[i].ID, "slot ids are sequential")
	}
	assert.Len(t, grid.SlotsByDay("Friday"), 8)
}

func TestGridNormalisesDayOrder(t *testing.T) {
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Friday", "Monday"}
	grid, err := NewGrid(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"MONDAY", "FRIDAY"}, grid.Days())
}

func TestGridExcludesBreakSlots(t *testing.T) {
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Monday"}
	cfg.BreakSlots = []string{"12:00-13:00"}
	grid, err := NewGrid(cfg)
	require.NoError(t, err)

	slots := grid.SlotsByDay("Monday")
	assert.Len(t, slots, 7)
	for _, slot := range slots {
		assert.NotEqual(t, 12*60, slot.Start, "break slot must not appear")
	}
}

func TestGridConsecutive(t *testing.T) {
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Monday", "Tuesday"}
	grid, err := NewGrid(cfg)
	require.NoError(t, err)

	next, ok := grid.Consecutive(0, 3)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, next)

	// the last slot of Monday has no same-day successor
	lastMonday := grid.SlotsByDay("Monday")[7].ID
	_, ok = grid.Consecutive(lastMonday, 2)
	assert.False(t, ok)
}

func TestGridConsecutiveStopsAtBreaks(t *testing.T) {
	cfg := weekConstraints()
	cfg.WorkingDays = []string{"Monday"}
	cfg.BreakSlots = []string{"11:00-12:00"}
	grid, err := NewGrid(cfg)
	require.NoError(t, err)

	slot, ok := grid.FindSlot("Monday", 10*60)
	require.True(t, ok)
	_, ok = grid.Consecutive(slot.ID, 2)
	assert.False(t, ok, "run across a break must not be adjacent")
}

func TestGridRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ConstraintConfig)
	}{
		{"inverted times", func(c *models.ConstraintConfig) { c.StartTime, c.EndTime = "17:00", "09:00" }},
		{"zero slot duration", func(c *models.ConstraintConfig) { c.SlotDuration = 0 }},
		{"no working days", func(c *models.ConstraintConfig) { c.WorkingDays = nil }},
		{"unknown day", func(c *models.ConstraintConfig) { c.WorkingDays = []string{"Funday"} }},
		{"bad break", func(c *models.ConstraintConfig) { c.BreakSlots = []string{"12:00"} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := weekConstraints()
			tc.mutate(&cfg)
			_, err := NewGrid(cfg)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}
