package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/utils"
)

var testArgon = utils.Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}

type fakeUsers struct {
	byEmail map[string]model.User
	grants  map[uuid.UUID][]string
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return model.User{}, apierr.UserNotFound("email_id")
	}
	return u, nil
}

func (f *fakeUsers) GetPermissions(_ context.Context, id uuid.UUID) ([]string, error) {
	return f.grants[id], nil
}

type fakeSessionStore struct {
	ttl          time.Duration
	created      []model.Session
	terminated   []uuid.UUID
	terminateErr error
	refreshErr   error
}

func (f *fakeSessionStore) Create(_ context.Context, userID uuid.UUID, ipHash string) (model.Session, error) {
	s := model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		IPHash:    ipHash,
		ExpiresAt: time.Now().UTC().Add(f.ttl),
	}
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeSessionStore) Terminate(_ context.Context, id uuid.UUID) error {
	if f.terminateErr != nil {
		return f.terminateErr
	}
	f.terminated = append(f.terminated, id)
	return nil
}

func (f *fakeSessionStore) Refresh(_ context.Context, _ uuid.UUID) (time.Time, error) {
	if f.refreshErr != nil {
		return time.Time{}, f.refreshErr
	}
	return time.Now().UTC().Add(f.ttl), nil
}

func newLoginFixture(t *testing.T) (*AuthHandler, *fakeUsers, *fakeSessionStore, model.User) {
	t.Helper()
	hash, err := utils.HashPassword("right-password", testArgon)
	if err != nil {
		t.Fatal(err)
	}
	u := model.User{
		ID:           uuid.New(),
		Email:        "alice@example.edu",
		PasswordHash: hash,
		ContactNo:    "+91 90000 00001",
		Active:       true,
	}
	users := &fakeUsers{
		byEmail: map[string]model.User{u.Email: u},
		grants:  map[uuid.UUID][]string{u.ID: {"student:read:self"}},
	}
	sessions := &fakeSessionStore{ttl: 15 * time.Minute}
	return NewAuthHandler(users, sessions), users, sessions, u
}

func postJSON(path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "10.1.2.3:51000"
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLoginSuccess(t *testing.T) {
	h, _, sessions, u := newLoginFixture(t)
	c, rec := postJSON("/v1/auth/login", `{"email_id":"alice@example.edu","password":"right-password"}`)

	before := time.Now().UTC()
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp loginResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.User.ID != u.ID.String() {
		t.Fatal("response user does not match")
	}
	if len(resp.Permissions) != 1 || resp.Permissions[0] != "student:read:self" {
		t.Fatalf("permissions = %v", resp.Permissions)
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Fatalf("session_id is not a UUID: %v", err)
	}

	// Expiry is roughly now plus the TTL.
	want := before.Add(15 * time.Minute)
	if resp.ExpiresAt.Before(want.Add(-time.Minute)) || resp.ExpiresAt.After(want.Add(time.Minute)) {
		t.Fatalf("expires_at = %v, want about %v", resp.ExpiresAt, want)
	}

	// The stored session is bound to the caller's hashed address, never the
	// raw one.
	if len(sessions.created) != 1 {
		t.Fatalf("sessions created = %d", len(sessions.created))
	}
	if got := sessions.created[0].IPHash; got != utils.HashString("10.1.2.3") {
		t.Fatalf("stored ip hash = %s", got)
	}
	if strings.Contains(sessions.created[0].IPHash, "10.1.2.3") {
		t.Fatal("raw address stored")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	h, _, _, _ := newLoginFixture(t)
	c, _ := postJSON("/v1/auth/login", `{"email_id":"nobody@example.edu","password":"x"}`)
	err := h.Login(c)
	if !apierr.Is(err, "user_not_found") {
		t.Fatalf("got %v, want user_not_found", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _, sessions, _ := newLoginFixture(t)
	c, _ := postJSON("/v1/auth/login", `{"email_id":"alice@example.edu","password":"wrong"}`)
	err := h.Login(c)
	if !apierr.Is(err, "password_incorrect") {
		t.Fatalf("got %v, want password_incorrect", err)
	}
	if len(sessions.created) != 0 {
		t.Fatal("session created despite failed login")
	}
}

func TestLoginMissingFields(t *testing.T) {
	h, _, _, _ := newLoginFixture(t)
	c, _ := postJSON("/v1/auth/login", `{"email_id":"alice@example.edu"}`)
	err := h.Login(c)
	if !apierr.Is(err, "invalid_body") {
		t.Fatalf("got %v, want invalid_body", err)
	}
}

func postBearer(path, token string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := postJSON(path, "")
	if token != "" {
		c.Request().Header.Set("Authorization", "Bearer "+token)
	}
	return c, rec
}

func TestLogoutTerminatesSession(t *testing.T) {
	h, _, sessions, _ := newLoginFixture(t)
	sessionID := uuid.New()

	c, rec := postBearer("/v1/auth/logout", sessionID.String())
	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(sessions.terminated) != 1 || sessions.terminated[0] != sessionID {
		t.Fatalf("terminated = %v, want [%s]", sessions.terminated, sessionID)
	}
}

func TestLogoutMissingToken(t *testing.T) {
	h, _, _, _ := newLoginFixture(t)
	c, _ := postBearer("/v1/auth/logout", "")
	if err := h.Logout(c); !apierr.Is(err, "credentials_not_found") {
		t.Fatalf("got %v, want credentials_not_found", err)
	}
}

func TestLogoutMalformedToken(t *testing.T) {
	h, _, sessions, _ := newLoginFixture(t)
	c, _ := postBearer("/v1/auth/logout", "not-a-uuid")
	if err := h.Logout(c); !apierr.Is(err, "credentials_not_found") {
		t.Fatalf("got %v, want credentials_not_found", err)
	}
	if len(sessions.terminated) != 0 {
		t.Fatal("terminate called for a malformed token")
	}
}

func TestLogoutGoneSession(t *testing.T) {
	h, _, sessions, _ := newLoginFixture(t)
	sessions.terminateErr = apierr.SessionNotFound("session_id")

	c, _ := postBearer("/v1/auth/logout", uuid.New().String())
	if err := h.Logout(c); !apierr.Is(err, "session_not_found") {
		t.Fatalf("got %v, want session_not_found", err)
	}
}

func TestRefreshReturnsNewExpiry(t *testing.T) {
	h, _, _, _ := newLoginFixture(t)
	sessionID := uuid.New()

	c, rec := postBearer("/v1/auth/refresh", sessionID.String())

	before := time.Now().UTC()
	if err := h.Refresh(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp refreshResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != sessionID.String() {
		t.Fatal("refresh returned a different session id")
	}
	want := before.Add(15 * time.Minute)
	if resp.ExpiresAt.Before(want.Add(-time.Minute)) || resp.ExpiresAt.After(want.Add(time.Minute)) {
		t.Fatalf("expires_at = %v, want about %v", resp.ExpiresAt, want)
	}
}

func TestRefreshInvalidSession(t *testing.T) {
	h, _, sessions, _ := newLoginFixture(t)
	sessions.refreshErr = apierr.SessionNotFound("session_id")

	c, _ := postBearer("/v1/auth/refresh", uuid.New().String())
	if err := h.Refresh(c); !apierr.Is(err, "session_not_found") {
		t.Fatalf("got %v, want session_not_found", err)
	}
}
