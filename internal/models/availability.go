package models

import "gorm.io/datatypes"

// AvailabilityType distinguishes weekly patterns from one-off exceptions.
type AvailabilityType string

const (
	AvailabilityTypeRecurring AvailabilityType = "recurring"
	AvailabilityTypeException AvailabilityType = "exception"
)

// AvailabilitySlot is a row of the agent availability ledger. Booking exceptions are
// keyed by agent, date, start time and the booking user; rows without a user are
// agent-initiated blackouts and rows without a date are recurring.
type AvailabilitySlot struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	AgentID          uint             `gorm:"not null;uniqueIndex:idx_availability_booking,priority:1" json:"agent_id"`
	DayOfWeek        string           `gorm:"size:10;not null" json:"day_of_week"`
	SpecificDate     *datatypes.Date  `gorm:"uniqueIndex:idx_availability_booking,priority:2" json:"specific_date,omitempty"`
	StartTime        datatypes.Time   `gorm:"not null;uniqueIndex:idx_availability_booking,priority:3" json:"start_time"`
	EndTime          datatypes.Time   `gorm:"not null" json:"end_time"`
	UserID           *uint            `gorm:"uniqueIndex:idx_availability_booking,priority:4" json:"user_id,omitempty"`
	IsAvailable      bool             `gorm:"not null" json:"is_available"`
	AvailabilityType AvailabilityType `gorm:"size:20;not null;default:'recurring'" json:"availability_type"`
	Notes            string           `gorm:"type:text" json:"notes"`
}

// TableName keeps the historical table name.
func (AvailabilitySlot) TableName() string {
	return "agent_availability"
}
