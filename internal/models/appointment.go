package models

import "time"

// AppointmentStatus is the state of a scheduled viewing.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is a known appointment status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment is a property viewing booked between a client and an agent.
type Appointment struct {
	Base
	AgentID         uint              `gorm:"not null;index" json:"agent_id"`
	ClientID        uint              `gorm:"not null;index" json:"client_id"`
	PropertyID      uint              `gorm:"not null;index" json:"property_id"`
	AppointmentDate time.Time         `gorm:"not null;index" json:"appointment_date"`
	Status          AppointmentStatus `gorm:"size:20;not null;default:'scheduled';index" json:"status"`
	Location        string            `gorm:"size:255" json:"location"`
	Client          *Client           `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}
