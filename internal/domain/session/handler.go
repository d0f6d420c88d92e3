package session

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/telehealth/telehealth/internal/platform/auth"
	"github.com/telehealth/telehealth/internal/platform/livekit"
)

type Handler struct {
	svc      *Service
	receiver *livekit.WebhookReceiver
	logger   zerolog.Logger
}

func NewHandler(svc *Service, receiver *livekit.WebhookReceiver, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, receiver: receiver, logger: logger.With().Str("component", "session_handler").Logger()}
}

// RegisterRoutes binds session routes. The webhook route is registered
// on the bare server group: the media server authenticates with its own
// signed envelope, not a user bearer token.
func (h *Handler) RegisterRoutes(api *echo.Group, webhooks *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "doctor", "patient"))
	g.POST("/video-sessions", h.CreateSession)
	g.GET("/video-sessions/:id", h.GetStatus)
	g.GET("/video-sessions/:id/token", h.GetToken)
	g.POST("/video-sessions/:id/end", h.EndSession)

	webhooks.POST("/livekit", h.Webhook)
}

type createRequest struct {
	AppointmentID string `json:"appointment_id"`
}

func identityFrom(c echo.Context) Identity {
	ctx := c.Request().Context()
	role := "patient"
	for _, r := range auth.RolesFromContext(ctx) {
		if r == "doctor" || r == "admin" || r == "observer" {
			role = r
			break
		}
	}
	return Identity{
		UserID:   auth.UserIDFromContext(ctx),
		FullName: auth.UserNameFromContext(ctx),
		Role:     role,
	}
}

// mapServiceError translates service failures into distinct HTTP
// outcomes: closed sessions are a 409, not a generic error, and issuer
// misconfiguration is never disguised as caller fault.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrSessionClosed):
		return echo.NewHTTPError(http.StatusConflict, "session closed")
	case errors.Is(err, livekit.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusInternalServerError, "media server credentials not configured")
	case livekit.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// CreateSession handles POST /video-sessions.
func (h *Handler) CreateSession(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AppointmentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_id is required")
	}
	grant, err := h.svc.Create(c.Request().Context(), req.AppointmentID, identityFrom(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, grant)
}

// GetToken handles GET /video-sessions/:id/token.
func (h *Handler) GetToken(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	grant, err := h.svc.IssueToken(c.Request().Context(), id, identityFrom(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, grant)
}

// GetStatus handles GET /video-sessions/:id.
func (h *Handler) GetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	resp := map[string]interface{}{
		"session_id": sess.ID,
		"status":     sess.Status,
		"started_at": sess.StartedAt,
		"ended_at":   sess.EndedAt,
	}
	if sess.DurationSeconds != nil {
		resp["duration"] = *sess.DurationSeconds
	} else {
		resp["duration"] = 0
	}
	return c.JSON(http.StatusOK, resp)
}

// EndSession handles POST /video-sessions/:id/end.
func (h *Handler) EndSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.End(c.Request().Context(), id); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "session ended"})
}

// Webhook handles POST /webhooks/livekit. The signature is verified
// over the exact raw bytes before anything is parsed; verification
// failure is a 401, a missing envelope is a 400.
func (h *Handler) Webhook(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization header")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	ev, err := h.receiver.Receive(authHeader, body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("webhook rejected")
		if errors.Is(err, livekit.ErrNotConfigured) {
			return echo.NewHTTPError(http.StatusInternalServerError, "media server credentials not configured")
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	if err := h.svc.HandleEvent(c.Request().Context(), ev); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}
