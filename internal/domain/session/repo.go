package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means no session matched the lookup.
	ErrNotFound = errors.New("session not found")

	// ErrVersionConflict means a version-checked update lost a race with a
	// concurrent writer. Callers re-read and decide whether the other
	// writer already did their work.
	ErrVersionConflict = errors.New("session version conflict")
)

// SessionRepository persists video sessions. Update must be
// version-checked: it only applies when the stored version_id matches
// the one the caller read, so racing transitions on one session are
// serialized without long-held locks.
type SessionRepository interface {
	Create(ctx context.Context, s *VideoSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*VideoSession, error)
	GetByAppointment(ctx context.Context, appointmentID string) (*VideoSession, error)
	GetByRoom(ctx context.Context, roomName string) (*VideoSession, error)
	Update(ctx context.Context, s *VideoSession) error
	ListStaleActive(ctx context.Context, before time.Time) ([]*VideoSession, error)
}
