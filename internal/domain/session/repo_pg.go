package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telehealth/telehealth/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type sessionRepoPG struct{ pool *pgxpool.Pool }

// NewSessionRepoPG creates a Postgres-backed SessionRepository.
func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository { return &sessionRepoPG{pool: pool} }

func (r *sessionRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const sessionCols = `id, appointment_id, room_name, status, started_at, ended_at,
	duration_seconds, version_id, created_at, updated_at`

func (r *sessionRepoPG) scanSession(row pgx.Row) (*VideoSession, error) {
	var s VideoSession
	err := row.Scan(&s.ID, &s.AppointmentID, &s.RoomName, &s.Status, &s.StartedAt, &s.EndedAt,
		&s.DurationSeconds, &s.VersionID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &s, err
}

func (r *sessionRepoPG) Create(ctx context.Context, s *VideoSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.VersionID = 1
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO video_session (id, appointment_id, room_name, status, started_at, version_id)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.AppointmentID, s.RoomName, s.Status, s.StartedAt, s.VersionID)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*VideoSession, error) {
	return r.scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM video_session WHERE id = $1`, id))
}

func (r *sessionRepoPG) GetByAppointment(ctx context.Context, appointmentID string) (*VideoSession, error) {
	return r.scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM video_session WHERE appointment_id = $1`, appointmentID))
}

func (r *sessionRepoPG) GetByRoom(ctx context.Context, roomName string) (*VideoSession, error) {
	return r.scanSession(r.conn(ctx).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM video_session WHERE room_name = $1`, roomName))
}

// Update applies a version-checked write. A mismatched version_id means
// a concurrent transition won; the caller gets ErrVersionConflict.
func (r *sessionRepoPG) Update(ctx context.Context, s *VideoSession) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE video_session
		SET status=$2, ended_at=$3, duration_seconds=$4, version_id=version_id+1, updated_at=NOW()
		WHERE id = $1 AND version_id = $5`,
		s.ID, s.Status, s.EndedAt, s.DurationSeconds, s.VersionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	s.VersionID++
	return nil
}

func (r *sessionRepoPG) ListStaleActive(ctx context.Context, before time.Time) ([]*VideoSession, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+sessionCols+` FROM video_session
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at`, StatusActive, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*VideoSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
