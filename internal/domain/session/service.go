package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/telehealth/telehealth/internal/platform/livekit"
)

var (
	// ErrSessionClosed means a credential was requested for a session in a
	// terminal state. Mapped to a distinct "session closed" response.
	ErrSessionClosed = errors.New("session closed")

	// ErrAppointmentNotFound means the booking the session should attach to
	// does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// AppointmentDirectory is the external booking collaborator: the only
// thing the session service needs from it is existence.
type AppointmentDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Grant bundles a session with a freshly issued room credential.
type Grant struct {
	SessionID uuid.UUID `json:"session_id"`
	RoomName  string    `json:"room_name"`
	Token     string    `json:"token"`
	ServerURL string    `json:"server_url"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service owns session lifecycle transitions. Cryptographic work is
// delegated to the livekit issuer; the service never sees the secret.
type Service struct {
	repo         SessionRepository
	appointments AppointmentDirectory
	issuer       *livekit.TokenIssuer
	logger       zerolog.Logger
	now          func() time.Time
}

// NewService creates a session Service.
func NewService(repo SessionRepository, appointments AppointmentDirectory, issuer *livekit.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		issuer:       issuer,
		logger:       logger.With().Str("component", "session").Logger(),
		now:          time.Now,
	}
}

// SetClock overrides the service time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Create resolves or creates the session for an appointment and issues
// a credential for the caller. Create is idempotent: a second call for
// the same appointment returns the existing session.
func (s *Service) Create(ctx context.Context, appointmentID string, id Identity) (*Grant, error) {
	if appointmentID == "" {
		return nil, fmt.Errorf("appointment_id is required")
	}
	sess, err := s.repo.GetByAppointment(ctx, appointmentID)
	if errors.Is(err, ErrNotFound) {
		if s.appointments != nil {
			ok, aerr := s.appointments.Exists(ctx, appointmentID)
			if aerr != nil {
				return nil, aerr
			}
			if !ok {
				return nil, ErrAppointmentNotFound
			}
		}
		sess = &VideoSession{
			AppointmentID: appointmentID,
			RoomName:      RoomNameFor(appointmentID),
			Status:        StatusActive,
			StartedAt:     s.now(),
		}
		if err := s.repo.Create(ctx, sess); err != nil {
			// A concurrent create may have won; fall back to the winner.
			if existing, gerr := s.repo.GetByAppointment(ctx, appointmentID); gerr == nil {
				sess = existing
			} else {
				return nil, err
			}
		}
	} else if err != nil {
		return nil, err
	}
	return s.issueFor(sess, id)
}

// IssueToken issues a fresh credential for an existing session. Only
// Active sessions qualify; terminal sessions yield ErrSessionClosed.
func (s *Service) IssueToken(ctx context.Context, sessionID uuid.UUID, id Identity) (*Grant, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.issueFor(sess, id)
}

func (s *Service) issueFor(sess *VideoSession, id Identity) (*Grant, error) {
	if sess.Status != StatusActive {
		return nil, ErrSessionClosed
	}
	if id.UserID == "" {
		return nil, fmt.Errorf("identity is required")
	}

	name := id.FullName
	if name == "" {
		name = id.UserID
	}
	meta, _ := json.Marshal(map[string]string{
		"role":      id.Role,
		"user_id":   id.UserID,
		"full_name": name,
	})

	grants := livekit.DefaultGrants()
	if id.Role == "observer" {
		grants = livekit.Grants{CanSubscribe: true}
	}

	cred, err := s.issuer.Issue(livekit.IssueRequest{
		RoomName: sess.RoomName,
		Identity: id.UserID,
		Name:     name,
		Metadata: string(meta),
		Grants:   grants,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", sess.ID.String()).
		Str("room", sess.RoomName).
		Str("identity", id.UserID).
		Str("role", id.Role).
		Msg("credential issued")

	return &Grant{
		SessionID: sess.ID,
		RoomName:  sess.RoomName,
		Token:     cred.Token,
		ServerURL: s.issuer.ServerURL(),
		IssuedAt:  cred.IssuedAt,
		ExpiresAt: cred.ExpiresAt,
	}, nil
}

// Get returns the session by id.
func (s *Service) Get(ctx context.Context, sessionID uuid.UUID) (*VideoSession, error) {
	return s.repo.GetByID(ctx, sessionID)
}

// End transitions an Active session to Ended. Ending a session that is
// already terminal is a no-op, not an error.
func (s *Service) End(ctx context.Context, sessionID uuid.UUID) error {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.endSession(ctx, sess, StatusEnded)
}

// endSession applies a terminal transition with version-conflict
// tolerance: if a concurrent writer already closed the session, that
// outcome stands.
func (s *Service) endSession(ctx context.Context, sess *VideoSession, status string) error {
	if sess.Terminal() {
		return nil
	}
	sess.close(status, s.now())
	err := s.repo.Update(ctx, sess)
	if errors.Is(err, ErrVersionConflict) {
		current, gerr := s.repo.GetByID(ctx, sess.ID)
		if gerr == nil && current.Terminal() {
			return nil
		}
		return err
	}
	return err
}

// HandleEvent reacts to a verified webhook event. Only room_finished
// changes state; everything else is logged and ignored.
func (s *Service) HandleEvent(ctx context.Context, ev *livekit.Event) error {
	switch ev.Event {
	case "room_finished":
		sess, err := s.repo.GetByRoom(ctx, ev.Room.Name)
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn().Str("room", ev.Room.Name).Msg("room_finished for unknown room")
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.endSession(ctx, sess, StatusEnded); err != nil {
			return err
		}
		s.logger.Info().Str("room", ev.Room.Name).Str("session_id", sess.ID.String()).Msg("session ended by room_finished")
		return nil
	case "room_started":
		s.logger.Info().Str("room", ev.Room.Name).Msg("room started")
		return nil
	case "participant_joined":
		s.logger.Info().Str("room", ev.Room.Name).Str("identity", ev.Participant.Identity).Msg("participant joined")
		return nil
	default:
		s.logger.Info().Str("event", ev.Event).Msg("ignoring webhook event")
		return nil
	}
}

// ExpireStale transitions Active sessions older than threshold to
// Expired. Each row is an independent transaction; failures are
// collected and the sweep continues. Returns the number of sessions
// expired.
func (s *Service) ExpireStale(ctx context.Context, threshold time.Duration, now time.Time) (int, error) {
	stale, err := s.repo.ListStaleActive(ctx, now.Add(-threshold))
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, sess := range stale {
		if err := s.endSession(ctx, sess, StatusExpired); err != nil {
			s.logger.Error().Err(err).Str("session_id", sess.ID.String()).Msg("failed to expire session")
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
			continue
		}
		expired++
		s.logger.Info().Str("session_id", sess.ID.String()).Msg("session expired")
	}
	return expired, errors.Join(errs...)
}
