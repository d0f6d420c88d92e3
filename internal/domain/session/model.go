package session

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses. Ended, Expired and Cancelled are terminal: no
// transition leaves them and no credential is issued for them.
const (
	StatusActive    = "Active"
	StatusEnded     = "Ended"
	StatusExpired   = "Expired"
	StatusCancelled = "Cancelled"
)

// VideoSession maps to the video_session table. One session exists per
// appointment; the room name is derived from the appointment id.
type VideoSession struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	AppointmentID   string     `db:"appointment_id" json:"appointment_id"`
	RoomName        string     `db:"room_name" json:"room_name"`
	Status          string     `db:"status" json:"status"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	DurationSeconds *int64     `db:"duration_seconds" json:"duration_seconds,omitempty"`
	VersionID       int        `db:"version_id" json:"version_id"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// GetVersionID returns the current version.
func (s *VideoSession) GetVersionID() int { return s.VersionID }

// SetVersionID sets the current version.
func (s *VideoSession) SetVersionID(v int) { s.VersionID = v }

// Terminal reports whether the session is in a final state.
func (s *VideoSession) Terminal() bool {
	switch s.Status {
	case StatusEnded, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// close moves the session into a terminal state at the given instant and
// records the elapsed duration.
func (s *VideoSession) close(status string, at time.Time) {
	s.Status = status
	s.EndedAt = &at
	d := int64(at.Sub(s.StartedAt) / time.Second)
	if d < 0 {
		d = 0
	}
	s.DurationSeconds = &d
}

// RoomNameFor derives the media room name for an appointment.
func RoomNameFor(appointmentID string) string {
	return "room-" + appointmentID
}

// Identity describes the caller requesting a credential. Supplied by
// the HTTP layer from the authenticated request context.
type Identity struct {
	UserID   string
	FullName string
	Role     string
}
