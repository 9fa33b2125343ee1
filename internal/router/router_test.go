package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/config"
	"github.com/opencampus/cms-api/internal/handler"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/utils"
)

// invalidSessions reports every session as unusable for authentication,
// the way an expired or terminated one looks to the middleware.
type invalidSessions struct{}

func (invalidSessions) GetValid(context.Context, uuid.UUID) (model.Session, error) {
	return model.Session{}, apierr.SessionNotFound("session_id")
}

type noPerms struct{}

func (noPerms) GetPermissions(context.Context, uuid.UUID) ([]string, error) { return nil, nil }

type noUsers struct{}

func (noUsers) GetByEmail(context.Context, string) (model.User, error) {
	return model.User{}, apierr.UserNotFound("email_id")
}

func (noUsers) GetPermissions(context.Context, uuid.UUID) ([]string, error) { return nil, nil }

type recordingSessions struct {
	terminated []uuid.UUID
	refreshErr error
}

func (r *recordingSessions) Create(_ context.Context, userID uuid.UUID, ipHash string) (model.Session, error) {
	return model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		IPHash:    ipHash,
		ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
	}, nil
}

func (r *recordingSessions) Terminate(_ context.Context, id uuid.UUID) error {
	r.terminated = append(r.terminated, id)
	return nil
}

func (r *recordingSessions) Refresh(_ context.Context, _ uuid.UUID) (time.Time, error) {
	if r.refreshErr != nil {
		return time.Time{}, r.refreshErr
	}
	return time.Now().UTC().Add(15 * time.Minute), nil
}

func newTestServer(store *recordingSessions) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = apierr.HTTPErrorHandler
	h := Handlers{
		Auth:        handler.NewAuthHandler(noUsers{}, store),
		Sessions:    handler.NewSessionHandler(nil),
		Users:       handler.NewUserHandler(nil, nil, utils.Argon2Params{}),
		Permissions: handler.NewPermissionHandler(nil),
		Students:    handler.NewStudentHandler(nil, utils.Argon2Params{}),
		Staff:       handler.NewStaffHandler(nil, utils.Argon2Params{}),
		Parents:     handler.NewParentHandler(nil),
		Schools:     handler.NewSchoolHandler(nil, nil),
		Departments: handler.NewDepartmentHandler(nil, nil),
		Programs:    handler.NewProgramHandler(nil),
		Batches:     handler.NewBatchHandler(nil),
	}
	Register(e, h, invalidSessions{}, noPerms{}, config.RateLimitConfig{}, nil)
	return e
}

func do(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// A session the middleware would reject as invalid can still log itself
// out: the logout route resolves the bearer by parse only and leaves the
// outcome to the store's conditional update.
func TestLogoutExpiredSessionStillSucceeds(t *testing.T) {
	store := &recordingSessions{}
	e := newTestServer(store)
	id := uuid.New()

	rec := do(e, http.MethodPost, "/v1/auth/logout", id.String())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 (body %s)", rec.Code, rec.Body.String())
	}
	if len(store.terminated) != 1 || store.terminated[0] != id {
		t.Fatalf("terminated = %v, want [%s]", store.terminated, id)
	}
}

func TestRefreshStaleSessionIs404(t *testing.T) {
	store := &recordingSessions{refreshErr: apierr.SessionNotFound("session_id")}
	e := newTestServer(store)

	rec := do(e, http.MethodPost, "/v1/auth/refresh", uuid.New().String())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (body %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Slug != "session_not_found" {
		t.Fatalf("slug = %s, want session_not_found", body.Slug)
	}
}

func TestLogoutMalformedBearerIs401(t *testing.T) {
	store := &recordingSessions{}
	e := newTestServer(store)

	rec := do(e, http.MethodPost, "/v1/auth/logout", "not-a-uuid")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(store.terminated) != 0 {
		t.Fatal("terminate called for a malformed token")
	}
}

// Everything behind the group middleware keeps rejecting the same token
// logout accepts.
func TestProtectedRouteRejectsInvalidSession(t *testing.T) {
	e := newTestServer(&recordingSessions{})

	rec := do(e, http.MethodGet, "/v1/permissions", uuid.New().String())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body %s)", rec.Code, rec.Body.String())
	}
}
