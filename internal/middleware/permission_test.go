package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
)

func identityWith(slugs ...string) Identity {
	set := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		set[s] = true
	}
	return Identity{UserID: uuid.New(), SessionID: uuid.New(), Permissions: set}
}

func TestMatchAnyOfFirstMatchWins(t *testing.T) {
	id := identityWith("a", "b", "c")
	groups := [][]string{{"a"}, {"b"}, {"c"}}
	idx, ok := matchAnyOf(id, groups)
	if !ok || idx != 0 {
		t.Fatalf("got (%d,%v), want (0,true)", idx, ok)
	}
}

func TestMatchAnyOfSkipsIncompleteGroups(t *testing.T) {
	id := identityWith("b")
	groups := [][]string{{"a", "b"}, {"b"}}
	idx, ok := matchAnyOf(id, groups)
	if !ok || idx != 1 {
		t.Fatalf("got (%d,%v), want (1,true)", idx, ok)
	}
}

func TestMatchAnyOfRequiresWholeGroup(t *testing.T) {
	id := identityWith("a")
	if _, ok := matchAnyOf(id, [][]string{{"a", "b"}}); ok {
		t.Fatal("partial group must not match")
	}
}

func TestMatchAnyOfEmptyGroupNeverMatches(t *testing.T) {
	id := identityWith("a")
	if _, ok := matchAnyOf(id, [][]string{{}}); ok {
		t.Fatal("empty group matched")
	}
	if _, ok := matchAnyOf(id, [][]string{{}, {}}); ok {
		t.Fatal("all-empty requirement must deny everyone")
	}
	// An empty group before a real one must not short-circuit it.
	idx, ok := matchAnyOf(id, [][]string{{}, {"a"}})
	if !ok || idx != 1 {
		t.Fatalf("got (%d,%v), want (1,true)", idx, ok)
	}
}

func TestMatchAnyOfNoGroups(t *testing.T) {
	if _, ok := matchAnyOf(identityWith("a"), nil); ok {
		t.Fatal("no groups matched")
	}
}

func runProtected(t *testing.T, id *Identity, mw echo.MiddlewareFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != nil {
		c.Set(identityKey, *id)
	}
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return rec, h(c)
}

func TestRequirePermissionsAllOf(t *testing.T) {
	id := identityWith("user:read:any", "user:update:any")
	rec, err := runProtected(t, &id, RequirePermissions("user:read:any", "user:update:any"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequirePermissionsMissingOne(t *testing.T) {
	id := identityWith("user:read:any")
	_, err := runProtected(t, &id, RequirePermissions("user:read:any", "user:update:any"))
	if !apierr.Is(err, "not_authorized") {
		t.Fatalf("got %v, want not_authorized", err)
	}
}

func TestRequirePermissionsNoIdentity(t *testing.T) {
	_, err := runProtected(t, nil, RequirePermissions("user:read:any"))
	if !apierr.Is(err, "credentials_not_found") {
		t.Fatalf("got %v, want credentials_not_found", err)
	}
}

func TestRequireAnyOfRecordsMatchedGroup(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(identityKey, identityWith("session:read:self"))

	var matched int
	h := RequireAnyOf(
		[]string{"session:read:any"},
		[]string{"session:read:self"},
	)(func(c echo.Context) error {
		matched = MatchedGroup(c)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched != 1 {
		t.Fatalf("matched group = %d, want 1", matched)
	}
}

func TestRequireAnyOfBroadGrantWins(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(identityKey, identityWith("session:read:any", "session:read:self"))

	var matched int
	h := RequireAnyOf(
		[]string{"session:read:any"},
		[]string{"session:read:self"},
	)(func(c echo.Context) error {
		matched = MatchedGroup(c)
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched != 0 {
		t.Fatalf("matched group = %d, want 0 (broad grant first)", matched)
	}
}

func TestRequireAnyOfDenied(t *testing.T) {
	id := identityWith("unrelated")
	_, err := runProtected(t, &id, RequireAnyOf([]string{"a"}, []string{"b"}))
	if !apierr.Is(err, "not_authorized") {
		t.Fatalf("got %v, want not_authorized", err)
	}
}

func TestMatchedGroupDefault(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := MatchedGroup(c); got != -1 {
		t.Fatalf("MatchedGroup = %d, want -1 on plain routes", got)
	}
}
