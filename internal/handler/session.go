package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/middleware"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/queue"
	"github.com/opencampus/cms-api/internal/utils"
)

// Route-level any-of groups are registered in order (any first, self
// second), so the matched index tells a handler whether it must enforce
// ownership.
const selfScopeGroup = 1

// sessionAdminStore is the slice of the session repository the
// administrative endpoints need.
type sessionAdminStore interface {
	Create(ctx context.Context, userID uuid.UUID, ipHash string) (model.Session, error)
	Get(ctx context.Context, id uuid.UUID) (model.Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error)
	Terminate(ctx context.Context, id uuid.UUID) error
	TerminateAllForUser(ctx context.Context, userID uuid.UUID) error
	PurgeExpired(ctx context.Context) error
}

// SessionHandler exposes administrative session operations.
type SessionHandler struct {
	Sessions sessionAdminStore
}

func NewSessionHandler(s sessionAdminStore) *SessionHandler {
	return &SessionHandler{Sessions: s}
}

type sessionPart struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionDetail struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	Terminated bool      `json:"is_terminated"`
	CreatedAt  time.Time `json:"created_at"`
}

type createSessionReq struct {
	UserID string `json:"user_id"`
}

type sessionCreatedResp struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Create opens a session on behalf of the named user, bound to the
// requesting client's address just like a login-issued one.
func (h *SessionHandler) Create(c echo.Context) error {
	var req createSessionReq
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body", "user_id is required")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apierr.UserNotFound("user_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.Create(ctx, userID, utils.HashString(clientAddr(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sessionCreatedResp{
		SessionID: s.ID.String(),
		UserID:    s.UserID.String(),
		ExpiresAt: s.ExpiresAt,
	})
}

// Get returns a single session by id, including expired and terminated
// rows so history within the retention window stays inspectable.  A
// caller admitted on the self-scoped grant may only read their own.
func (h *SessionHandler) Get(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return apierr.SessionNotFound("session_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if middleware.MatchedGroup(c) == selfScopeGroup {
		id, _ := middleware.CurrentIdentity(c)
		if s.UserID != id.UserID {
			return apierr.NotEnoughPermissions()
		}
	}
	return c.JSON(http.StatusOK, sessionDetail{
		SessionID:  s.ID.String(),
		UserID:     s.UserID.String(),
		ExpiresAt:  s.ExpiresAt,
		Terminated: s.Terminated,
		CreatedAt:  s.CreatedAt,
	})
}

// ListForUser returns the target user's currently valid sessions.  A
// caller admitted on the self-scoped grant may only list their own.
func (h *SessionHandler) ListForUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apierr.UserNotFound("user_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != userID {
		return apierr.NotEnoughPermissions()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Sessions.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	out := make([]sessionPart, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionPart{
			SessionID: s.ID.String(),
			UserID:    s.UserID.String(),
			ExpiresAt: s.ExpiresAt,
			CreatedAt: s.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Terminate revokes a single session by id.  A caller admitted on the
// self-scoped grant may only revoke sessions they own; the ownership
// lookup deliberately ignores validity, so revoking one's own
// already-expired session stays the same idempotent no-op the broad
// grant gets.
func (h *SessionHandler) Terminate(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return apierr.SessionNotFound("session_id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if middleware.MatchedGroup(c) == selfScopeGroup {
		id, _ := middleware.CurrentIdentity(c)
		s, err := h.Sessions.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.UserID != id.UserID {
			return apierr.NotEnoughPermissions()
		}
	}

	if err := h.Sessions.Terminate(ctx, sessionID); err != nil {
		return err
	}
	id, _ := middleware.CurrentIdentity(c)
	publishAudit(queue.ActionTerminate, id.UserID.String(), sessionID.String(), clientAddr(c))
	return c.NoContent(http.StatusNoContent)
}

// TerminateAllForUser revokes every valid session of the target user.
func (h *SessionHandler) TerminateAllForUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apierr.UserNotFound("user_id")
	}
	id, _ := middleware.CurrentIdentity(c)
	if middleware.MatchedGroup(c) == selfScopeGroup && id.UserID != userID {
		return apierr.NotEnoughPermissions()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.TerminateAllForUser(ctx, userID); err != nil {
		return err
	}
	publishAudit(queue.ActionTerminate, userID.String(), "", clientAddr(c))
	return c.NoContent(http.StatusNoContent)
}

// Purge hard-deletes sessions past the retention window on demand; the
// same sweep also runs on a timer in the background.
func (h *SessionHandler) Purge(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.Sessions.PurgeExpired(ctx); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
