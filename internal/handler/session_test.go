package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/middleware"
	"github.com/opencampus/cms-api/internal/model"
	"github.com/opencampus/cms-api/internal/utils"
)

type fakeSessionAdmin struct {
	sessions   map[uuid.UUID]model.Session
	created    []model.Session
	terminated []uuid.UUID
}

func newFakeSessionAdmin() *fakeSessionAdmin {
	return &fakeSessionAdmin{sessions: map[uuid.UUID]model.Session{}}
}

func (f *fakeSessionAdmin) Create(_ context.Context, userID uuid.UUID, ipHash string) (model.Session, error) {
	s := model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		IPHash:    ipHash,
		ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
	}
	f.sessions[s.ID] = s
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeSessionAdmin) Get(_ context.Context, id uuid.UUID) (model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return model.Session{}, apierr.SessionNotFound("session_id")
	}
	return s, nil
}

func (f *fakeSessionAdmin) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Session, error) {
	var out []model.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.Valid(time.Now().UTC()) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionAdmin) Terminate(_ context.Context, id uuid.UUID) error {
	if _, ok := f.sessions[id]; !ok {
		return apierr.SessionNotFound("session_id")
	}
	f.terminated = append(f.terminated, id)
	return nil
}

func (f *fakeSessionAdmin) TerminateAllForUser(_ context.Context, userID uuid.UUID) error {
	for id, s := range f.sessions {
		if s.UserID == userID {
			f.terminated = append(f.terminated, id)
		}
	}
	return nil
}

func (f *fakeSessionAdmin) PurgeExpired(context.Context) error { return nil }

func requestCtx(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.RemoteAddr = "10.1.2.3:51000"
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// caller admitted on the broad grant (matched group 0).
func asAdmin(c echo.Context, userID uuid.UUID) {
	c.Set("identity", middleware.Identity{UserID: userID, SessionID: uuid.New(), Permissions: map[string]bool{}})
	c.Set("matched_permission_group", 0)
}

// caller admitted on the self-scoped grant (matched group 1).
func asSelf(c echo.Context, userID uuid.UUID) {
	c.Set("identity", middleware.Identity{UserID: userID, SessionID: uuid.New(), Permissions: map[string]bool{}})
	c.Set("matched_permission_group", 1)
}

func TestSessionCreateBindsCallerAddress(t *testing.T) {
	store := newFakeSessionAdmin()
	h := NewSessionHandler(store)
	userID := uuid.New()

	c, rec := requestCtx(http.MethodPost, "/v1/sessions", `{"user_id":"`+userID.String()+`"}`)
	asAdmin(c, uuid.New())
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp sessionCreatedResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.UserID != userID.String() {
		t.Fatalf("user_id = %s, want %s", resp.UserID, userID)
	}
	if len(store.created) != 1 || store.created[0].IPHash != utils.HashString("10.1.2.3") {
		t.Fatal("session not bound to the requesting client's hashed address")
	}
}

func TestSessionCreateInvalidUserID(t *testing.T) {
	h := NewSessionHandler(newFakeSessionAdmin())
	c, _ := requestCtx(http.MethodPost, "/v1/sessions", `{"user_id":"not-a-uuid"}`)
	asAdmin(c, uuid.New())
	if err := h.Create(c); !apierr.Is(err, "user_not_found") {
		t.Fatalf("got %v, want user_not_found", err)
	}
}

// Get must return expired and terminated rows; only a row that no longer
// exists is 404.
func TestSessionGetReturnsExpiredRow(t *testing.T) {
	store := newFakeSessionAdmin()
	h := NewSessionHandler(store)
	owner := uuid.New()
	s := model.Session{
		ID:         uuid.New(),
		UserID:     owner,
		ExpiresAt:  time.Now().UTC().Add(-time.Hour),
		Terminated: true,
	}
	store.sessions[s.ID] = s

	c, rec := requestCtx(http.MethodGet, "/v1/sessions/"+s.ID.String(), "")
	c.SetParamNames("session_id")
	c.SetParamValues(s.ID.String())
	asAdmin(c, uuid.New())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp sessionDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Terminated {
		t.Fatal("is_terminated not reported")
	}
	if resp.UserID != owner.String() {
		t.Fatalf("user_id = %s, want %s", resp.UserID, owner)
	}
}

func TestSessionGetSelfScopeOtherUser(t *testing.T) {
	store := newFakeSessionAdmin()
	h := NewSessionHandler(store)
	s := model.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().UTC().Add(time.Minute)}
	store.sessions[s.ID] = s

	c, _ := requestCtx(http.MethodGet, "/v1/sessions/"+s.ID.String(), "")
	c.SetParamNames("session_id")
	c.SetParamValues(s.ID.String())
	asSelf(c, uuid.New())
	if err := h.Get(c); !apierr.Is(err, "not_authorized") {
		t.Fatalf("got %v, want not_authorized", err)
	}
}

// A self-scoped caller revoking their own already-expired session gets
// the same idempotent 204 the broad grant would; the ownership lookup
// must not filter on validity.
func TestTerminateOwnExpiredSession(t *testing.T) {
	store := newFakeSessionAdmin()
	h := NewSessionHandler(store)
	owner := uuid.New()
	s := model.Session{ID: uuid.New(), UserID: owner, ExpiresAt: time.Now().UTC().Add(-time.Hour)}
	store.sessions[s.ID] = s

	c, rec := requestCtx(http.MethodDelete, "/v1/sessions/"+s.ID.String(), "")
	c.SetParamNames("session_id")
	c.SetParamValues(s.ID.String())
	asSelf(c, owner)
	if err := h.Terminate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(store.terminated) != 1 || store.terminated[0] != s.ID {
		t.Fatalf("terminated = %v, want [%s]", store.terminated, s.ID)
	}
}

func TestTerminateSelfScopeOtherUser(t *testing.T) {
	store := newFakeSessionAdmin()
	h := NewSessionHandler(store)
	s := model.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().UTC().Add(time.Minute)}
	store.sessions[s.ID] = s

	c, _ := requestCtx(http.MethodDelete, "/v1/sessions/"+s.ID.String(), "")
	c.SetParamNames("session_id")
	c.SetParamValues(s.ID.String())
	asSelf(c, uuid.New())
	if err := h.Terminate(c); !apierr.Is(err, "not_authorized") {
		t.Fatalf("got %v, want not_authorized", err)
	}
	if len(store.terminated) != 0 {
		t.Fatal("terminate called despite failed ownership check")
	}
}
