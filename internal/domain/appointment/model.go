package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses follow the booking lifecycle. Telehealth video
// sessions may only be opened against a booked appointment.
const (
	StatusProposed  = "proposed"
	StatusBooked    = "booked"
	StatusArrived   = "arrived"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
	StatusNoShow    = "noshow"
)

// Appointment maps to the appointment table.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Status          string     `db:"status" json:"status"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	PractitionerID  *uuid.UUID `db:"practitioner_id" json:"practitioner_id,omitempty"`
	StartTime       time.Time  `db:"start_time" json:"start_time"`
	EndTime         *time.Time `db:"end_time" json:"end_time,omitempty"`
	MinutesDuration *int       `db:"minutes_duration" json:"minutes_duration,omitempty"`
	Reason          *string    `db:"reason" json:"reason,omitempty"`
	Note            *string    `db:"note" json:"note,omitempty"`
	IsTelehealth    bool       `db:"is_telehealth" json:"is_telehealth"`
	VersionID       int        `db:"version_id" json:"version_id"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// GetVersionID returns the current version.
func (a *Appointment) GetVersionID() int { return a.VersionID }

// SetVersionID sets the current version.
func (a *Appointment) SetVersionID(v int) { a.VersionID = v }

// SessionEligible reports whether a video session may be opened for
// this appointment.
func (a *Appointment) SessionEligible() bool {
	if !a.IsTelehealth {
		return false
	}
	switch a.Status {
	case StatusBooked, StatusArrived:
		return true
	}
	return false
}
