package middleware

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/utils"
)

// identityKey is the context key under which Authenticate stores the
// resolved Identity.
const identityKey = "identity"

// Identity is what Authenticate resolves for a request: the session, its
// owner and the owner's permission set loaded fresh from storage.
type Identity struct {
	UserID      uuid.UUID
	SessionID   uuid.UUID
	Permissions map[string]bool
}

// Has reports whether the identity holds the permission slug.
func (i Identity) Has(slug string) bool { return i.Permissions[slug] }

// CurrentIdentity returns the Identity stored by Authenticate.  The bool
// is false on routes that never passed through the middleware.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// SessionSource is the slice of the session store Authenticate needs.
type SessionSource interface {
	GetValid(ctx context.Context, id uuid.UUID) (model.Session, error)
}

// PermissionSource loads a user's permission slugs.
type PermissionSource interface {
	GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// BearerSessionID extracts the session id from the Authorization header
// without consulting storage.  Logout and refresh call it directly:
// those flows must accept tokens of sessions that are no longer valid
// and leave the conditional update in the store to decide the outcome,
// so an expired session can still log itself out.
func BearerSessionID(c echo.Context) (uuid.UUID, error) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return uuid.Nil, apierr.CredentialsNotFound()
	}
	id, err := uuid.Parse(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
	if err != nil {
		return uuid.Nil, apierr.CredentialsNotFound()
	}
	return id, nil
}

// Authenticate returns the middleware that turns a bearer session id into
// an Identity.  A missing or malformed token is a 401; a session that is
// expired, terminated, nonexistent or bound to a different address is a
// 403 with one indistinguishable body, so a probe learns nothing about
// which check failed.  Permissions are loaded from storage on every
// request; a revoked grant takes effect on the very next call.
func Authenticate(sessions SessionSource, perms PermissionSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID, err := BearerSessionID(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			session, err := sessions.GetValid(ctx, sessionID)
			if err != nil {
				if apierr.Is(err, "session_not_found") {
					return apierr.SessionInvalidOrExpired()
				}
				return err
			}

			ipHash := utils.HashString(clientIP(c))
			if subtle.ConstantTimeCompare([]byte(ipHash), []byte(session.IPHash)) != 1 {
				return apierr.SessionInvalidOrExpired()
			}

			slugs, err := perms.GetPermissions(ctx, session.UserID)
			if err != nil {
				return err
			}
			set := make(map[string]bool, len(slugs))
			for _, s := range slugs {
				set[s] = true
			}

			c.Set(identityKey, Identity{
				UserID:      session.UserID,
				SessionID:   session.ID,
				Permissions: set,
			})
			return next(c)
		}
	}
}
