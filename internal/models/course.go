package models

// RoomRequirements narrows the rooms a course may use.
type RoomRequirements struct {
	Type            RoomType `json:"type" validate:"omitempty,oneof=lecture lab computer seminar auditorium tutorial"`
	Facilities      []string `json:"facilities"`
	MinimumCapacity int      `json:"minimumCapacity" validate:"omitempty,min=0"`
}

// SchedulingConstraints captures per-course placement preferences.
type SchedulingConstraints struct {
	PreferredDays      []string `json:"preferredDays"`
	AvoidDays          []string `json:"avoidDays"`
	PreferredTimeSlots []string `json:"preferredTimeSlots"`
	AvoidTimeSlots     []string `json:"avoidTimeSlots"`
	ConsecutiveSlots   bool     `json:"consecutiveSlots"`
	MaxGapsPerDay      int      `json:"maxGapsPerDay" validate:"omitempty,min=0"`
}

// Batch describes a lab sub-group scheduled in parallel with its siblings.
type Batch struct {
	Name         string `json:"name" validate:"required"`
	TeacherID    string `json:"teacherId"`
	StudentCount int    `json:"studentCount" validate:"omitempty,min=1"`
}

// Course represents a teaching unit to place on the timetable.
type Course struct {
	ID               string                `json:"id" validate:"required"`
	Name             string                `json:"name" validate:"required"`
	Code             string                `json:"code"`
	TeacherID        string                `json:"teacherId" validate:"required"`
	Type             RoomType              `json:"type" validate:"omitempty,oneof=lecture lab computer seminar auditorium tutorial"`
	Duration         int                   `json:"duration" validate:"required,min=1,max=4"`
	HoursPerWeek     int                   `json:"hoursPerWeek" validate:"omitempty,min=1,max=10"`
	StudentGroup     string                `json:"studentGroup" validate:"required"`
	StudentCount     int                   `json:"studentCount" validate:"required,min=1"`
	Batches          []Batch               `json:"batches" validate:"omitempty,dive"`
	RoomRequirements RoomRequirements      `json:"roomRequirements"`
	Scheduling       SchedulingConstraints `json:"schedulingConstraints"`
	Priority         int                   `json:"priority" validate:"omitempty,min=1,max=5"`
	IsCore           bool                  `json:"isCore"`
	Category         string                `json:"category"`
	ElectiveGroup    string                `json:"electiveGroup"`
	ConflictsWith    []string              `json:"conflictsWith"`
	LinkedCourses    []string              `json:"linkedCourses"`
}
