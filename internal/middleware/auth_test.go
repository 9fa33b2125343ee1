package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/utils"
)

type fakeSessions struct {
	sessions map[uuid.UUID]model.Session
}

func (f *fakeSessions) GetValid(_ context.Context, id uuid.UUID) (model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return model.Session{}, apierr.SessionNotFound("session_id")
	}
	return s, nil
}

type fakePerms struct {
	grants map[uuid.UUID][]string
	calls  int
}

func (f *fakePerms) GetPermissions(_ context.Context, userID uuid.UUID) ([]string, error) {
	f.calls++
	return f.grants[userID], nil
}

func newAuthFixture() (*fakeSessions, *fakePerms, model.Session) {
	userID := uuid.New()
	s := model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		IPHash:    utils.HashString("10.1.2.3"),
		ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
	}
	sessions := &fakeSessions{sessions: map[uuid.UUID]model.Session{s.ID: s}}
	perms := &fakePerms{grants: map[uuid.UUID][]string{userID: {"user:read:self"}}}
	return sessions, perms, s
}

func doAuth(t *testing.T, sessions SessionSource, perms PermissionSource, authz, remoteIP string) (Identity, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	if remoteIP != "" {
		req.RemoteAddr = remoteIP + ":44321"
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Identity
	h := Authenticate(sessions, perms)(func(c echo.Context) error {
		got, _ = CurrentIdentity(c)
		return c.NoContent(http.StatusOK)
	})
	return got, h(c)
}

func TestAuthenticateSuccess(t *testing.T) {
	sessions, perms, s := newAuthFixture()
	id, err := doAuth(t, sessions, perms, "Bearer "+s.ID.String(), "10.1.2.3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != s.UserID || id.SessionID != s.ID {
		t.Fatal("identity does not match the session")
	}
	if !id.Has("user:read:self") {
		t.Fatal("permissions not loaded")
	}
	if id.Has("user:read:any") {
		t.Fatal("identity holds a permission it was never granted")
	}
}

func TestAuthenticateMissingHeader(t *testing.T) {
	sessions, perms, _ := newAuthFixture()
	_, err := doAuth(t, sessions, perms, "", "10.1.2.3")
	if !apierr.Is(err, "credentials_not_found") {
		t.Fatalf("got %v, want credentials_not_found", err)
	}
}

func TestAuthenticateMalformedToken(t *testing.T) {
	sessions, perms, _ := newAuthFixture()
	for _, authz := range []string{"Bearer not-a-uuid", "Basic abc", "Bearer "} {
		if _, err := doAuth(t, sessions, perms, authz, "10.1.2.3"); !apierr.Is(err, "credentials_not_found") {
			t.Errorf("authz %q: got %v, want credentials_not_found", authz, err)
		}
	}
}

func TestAuthenticateUnknownSession(t *testing.T) {
	sessions, perms, _ := newAuthFixture()
	_, err := doAuth(t, sessions, perms, "Bearer "+uuid.NewString(), "10.1.2.3")
	if !apierr.Is(err, "not_authorized") {
		t.Fatalf("got %v, want not_authorized", err)
	}
}

// A session presented from the wrong address must be rejected with exactly
// the same error as a missing session, so a stolen token leaks nothing.
func TestAuthenticateIPMismatchIndistinguishable(t *testing.T) {
	sessions, perms, s := newAuthFixture()

	_, errMismatch := doAuth(t, sessions, perms, "Bearer "+s.ID.String(), "192.0.2.99")
	_, errMissing := doAuth(t, sessions, perms, "Bearer "+uuid.NewString(), "10.1.2.3")

	var a, b *apierr.Error
	if !asAPIErr(errMismatch, &a) || !asAPIErr(errMissing, &b) {
		t.Fatalf("expected domain errors, got %v / %v", errMismatch, errMissing)
	}
	if a.Status != b.Status || a.Slug != b.Slug || a.Description != b.Description {
		t.Fatalf("mismatch and missing session responses differ: %+v vs %+v", a, b)
	}
	if a.Context["reason"] != b.Context["reason"] {
		t.Fatalf("reason differs: %v vs %v", a.Context["reason"], b.Context["reason"])
	}
}

func TestAuthenticateLoadsPermissionsEveryRequest(t *testing.T) {
	sessions, perms, s := newAuthFixture()
	authz := "Bearer " + s.ID.String()

	if _, err := doAuth(t, sessions, perms, authz, "10.1.2.3"); err != nil {
		t.Fatal(err)
	}
	// Revoke between requests; the next call must see the change.
	perms.grants[s.UserID] = nil
	id, err := doAuth(t, sessions, perms, authz, "10.1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	if id.Has("user:read:self") {
		t.Fatal("revoked permission still present; permissions must never be cached")
	}
	if perms.calls != 2 {
		t.Fatalf("permission loads = %d, want 2 (one per request)", perms.calls)
	}
}

func asAPIErr(err error, target **apierr.Error) bool {
	e, ok := err.(*apierr.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
