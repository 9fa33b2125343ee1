package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/middleware"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/queue"
	"github.com/opencampus/cms-api/internal/service"
	"github.com/opencampus/cms-api/internal/utils"
)

// userStore is the slice of the user repository the auth flow needs.
type userStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetPermissions(ctx context.Context, id uuid.UUID) ([]string, error)
}

// sessionStore is the slice of the session repository the auth flow needs.
type sessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, ipHash string) (model.Session, error)
	Terminate(ctx context.Context, id uuid.UUID) error
	Refresh(ctx context.Context, id uuid.UUID) (time.Time, error)
}

// AuthHandler bundles dependencies for the login/logout/refresh endpoints.
type AuthHandler struct {
	Users    userStore
	Sessions sessionStore
}

func NewAuthHandler(u userStore, s sessionStore) *AuthHandler {
	return &AuthHandler{Users: u, Sessions: s}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email_id"`
	Password string `json:"password"`
}

type userPart struct {
	ID           string  `json:"id"`
	Email        string  `json:"email_id"`
	ContactNo    string  `json:"contact_no"`
	ProfileImage *string `json:"profile_image"`
}

type loginResp struct {
	SessionID   string    `json:"session_id"`
	User        userPart  `json:"user"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type refreshResp struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login verifies credentials and opens a session bound to the caller's
// address.  An unknown email and a wrong password deliberately produce
// different statuses (404 vs 400), matching the API contract.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, "invalid_body", "Request body could not be parsed")
	}
	if req.Email == "" || req.Password == "" {
		return apierr.New(http.StatusBadRequest, "invalid_body", "email_id and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}

	ok, err := utils.VerifyPassword(req.Password, u.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		publishAudit(queue.ActionLoginFailed, u.ID.String(), "", clientAddr(c))
		return apierr.PasswordIncorrect()
	}

	addr := clientAddr(c)
	session, err := h.Sessions.Create(ctx, u.ID, utils.HashString(addr))
	if err != nil {
		return err
	}

	perms, err := h.Users.GetPermissions(ctx, u.ID)
	if err != nil {
		return err
	}
	if perms == nil {
		perms = []string{}
	}

	publishAudit(queue.ActionLogin, u.ID.String(), session.ID.String(), addr)

	var img *string
	if u.ProfileImage != nil {
		s := u.ProfileImage.String()
		img = &s
	}
	return c.JSON(http.StatusOK, loginResp{
		SessionID: session.ID.String(),
		User: userPart{
			ID:           u.ID.String(),
			Email:        u.Email,
			ContactNo:    u.ContactNo,
			ProfileImage: img,
		},
		Permissions: perms,
		ExpiresAt:   session.ExpiresAt,
	})
}

// Logout terminates the session named by the bearer token.  The token is
// only parsed, never validity-checked: an expired, terminated or
// address-mismatched session can still log itself out, and only a session
// that no longer exists at all yields 404.
func (h *AuthHandler) Logout(c echo.Context) error {
	sessionID, err := middleware.BearerSessionID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Terminate(ctx, sessionID); err != nil {
		return err
	}
	publishAudit(queue.ActionLogout, "", sessionID.String(), clientAddr(c))
	return c.NoContent(http.StatusNoContent)
}

// Refresh extends the session named by the bearer token by the configured
// TTL.  Like Logout it parses the token without a validity check; the
// conditional update in the store refuses expired and terminated sessions
// with 404.
func (h *AuthHandler) Refresh(c echo.Context) error {
	sessionID, err := middleware.BearerSessionID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	exp, err := h.Sessions.Refresh(ctx, sessionID)
	if err != nil {
		return err
	}
	publishAudit(queue.ActionRefresh, "", sessionID.String(), clientAddr(c))
	return c.JSON(http.StatusOK, refreshResp{
		SessionID: sessionID.String(),
		ExpiresAt: exp,
	})
}

func clientAddr(c echo.Context) string { return middleware.ClientIP(c.Request()) }

// publishAudit fires the event without blocking the request; a broker
// outage costs the audit line, never the login.
func publishAudit(action, userID, sessionID, ip string) {
	ev := queue.AuthEvent{
		Action:     action,
		UserID:     userID,
		SessionID:  sessionID,
		ClientIP:   ip,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := service.PublishAuthEvent(ctx, ev); err != nil {
			log.Printf("audit: publish %s event failed: %v", action, err)
		}
	}()
}
