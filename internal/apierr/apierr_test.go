package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestWithCopies(t *testing.T) {
	base := SessionNotFound("session_id")
	extended := base.With("value", "abc")

	if _, ok := base.Context["value"]; ok {
		t.Fatal("With mutated the original error")
	}
	if extended.Context["value"] != "abc" {
		t.Fatal("With did not set the new key")
	}
	if extended.Context["parameter"] != "session_id" {
		t.Fatal("With dropped existing context")
	}
}

func TestErrorsIsBySlug(t *testing.T) {
	err := fmt.Errorf("wrap: %w", UserNotFound("id"))
	if !errors.Is(err, UserNotFound("other")) {
		t.Fatal("errors.Is should match on slug regardless of context")
	}
	if errors.Is(err, SessionNotFound("id")) {
		t.Fatal("errors.Is matched across different slugs")
	}
}

func TestIsHelper(t *testing.T) {
	err := fmt.Errorf("wrap: %w", PermissionExists())
	if !Is(err, "permission_already_exists") {
		t.Fatal("Is did not match wrapped slug")
	}
	if Is(err, "permission_not_found") {
		t.Fatal("Is matched the wrong slug")
	}
	if Is(errors.New("plain"), "permission_already_exists") {
		t.Fatal("Is matched a non-domain error")
	}
}

func TestSessionInvalidAndNotEnoughPermissionsShareSlug(t *testing.T) {
	a := SessionInvalidOrExpired()
	b := NotEnoughPermissions()
	if a.Slug != b.Slug || a.Slug != "not_authorized" {
		t.Fatalf("both 403 variants must share the not_authorized slug, got %s / %s", a.Slug, b.Slug)
	}
	if a.Status != http.StatusForbidden || b.Status != http.StatusForbidden {
		t.Fatal("403 variants carry wrong status")
	}
}

func renderErr(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	HTTPErrorHandler(err, c)
	return rec
}

func TestHTTPErrorHandlerDomainError(t *testing.T) {
	rec := renderErr(t, CredentialsNotFound())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body struct {
		Slug        string         `json:"slug"`
		Description string         `json:"description"`
		Context     map[string]any `json:"context"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Slug != "credentials_not_found" {
		t.Fatalf("slug = %s", body.Slug)
	}
	if body.Context == nil {
		t.Fatal("context must serialize as an object, not null")
	}
}

func TestHTTPErrorHandlerGeneric(t *testing.T) {
	rec := renderErr(t, errors.New("driver: bad connection"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "bad connection") {
		t.Fatal("internal error details leaked to the client")
	}
	if !strings.Contains(rec.Body.String(), "internal_error") {
		t.Fatal("generic body missing internal_error slug")
	}
}

func TestHTTPErrorHandlerEchoError(t *testing.T) {
	rec := renderErr(t, echo.NewHTTPError(http.StatusMethodNotAllowed))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
