// Package apierr defines the typed domain errors shared by repositories,
// middleware and handlers.  Every rejected request renders the same
// structured body: {slug, description, context}.  Raw storage errors never
// reach a client; repositories translate constraint violations here and let
// anything unrecognized propagate as a 500.
package apierr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error is a machine-readable domain error.  Slug is stable across releases;
// Context carries structured parameters such as the offending field name.
type Error struct {
	Status      int            `json:"-"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	Context     map[string]any `json:"context"`
}

func (e *Error) Error() string { return e.Slug }

// New builds an Error with an empty (but non-nil) context map so the JSON
// body always serializes context as an object.
func New(status int, slug, description string) *Error {
	return &Error{Status: status, Slug: slug, Description: description, Context: map[string]any{}}
}

// With returns a copy of e carrying an extra context entry.
func (e *Error) With(key string, value any) *Error {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Status: e.Status, Slug: e.Slug, Description: e.Description, Context: ctx}
}

// Is matches two Errors by slug so errors.Is works across With copies.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Slug == t.Slug
	}
	return false
}

// Is reports whether err is (or wraps) an *Error with the given slug.
func Is(err error, slug string) bool {
	var e *Error
	return errors.As(err, &e) && e.Slug == slug
}

// Authentication and authorization.

func CredentialsNotFound() *Error {
	return New(http.StatusUnauthorized, "credentials_not_found", "Authentication credentials not found")
}

func SessionInvalidOrExpired() *Error {
	return New(http.StatusForbidden, "not_authorized", "You are not authorized to perform the action").
		With("reason", "Session is invalid or expired")
}

func NotEnoughPermissions() *Error {
	return New(http.StatusForbidden, "not_authorized", "You are not authorized to perform the action").
		With("reason", "Not enough permissions")
}

// Users and sessions.

func UserNotFound(parameter string) *Error {
	return New(http.StatusNotFound, "user_not_found", "User with given identifier does not exist").
		With("parameter", parameter)
}

func UserExists(parameter string) *Error {
	return New(http.StatusConflict, "user_exists", "User with given identifier already exists").
		With("parameter", parameter)
}

func PasswordIncorrect() *Error {
	return New(http.StatusBadRequest, "password_incorrect", "The provided password is incorrect")
}

func SessionNotFound(parameter string) *Error {
	return New(http.StatusNotFound, "session_not_found", "Session does not exist").
		With("parameter", parameter)
}

// Permission catalog.

func PermissionExists() *Error {
	return New(http.StatusConflict, "permission_already_exists", "The permission already exists")
}

func PermissionNotFound() *Error {
	return New(http.StatusNotFound, "permission_not_found", "The permission does not exist")
}

func PermissionReferenced(action string) *Error {
	return New(http.StatusConflict, "permission_referenced",
		"The permission is still referenced by a user, the action cannot be performed").
		With("action", action)
}

// CRUD collaborators.

func NotFound(entity, parameter string) *Error {
	return New(http.StatusNotFound, entity+"_not_found", "The "+entity+" does not exist").
		With("parameter", parameter)
}

func AlreadyExists(entity, parameter string) *Error {
	return New(http.StatusConflict, entity+"_exists", "The "+entity+" already exists").
		With("parameter", parameter)
}

// HTTPErrorHandler renders *Error values as their structured body and hides
// everything else behind a generic 500.  Echo's own HTTP errors (404 route
// not found, 405) keep their status with the same body shape.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var e *Error
	if errors.As(err, &e) {
		_ = c.JSON(e.Status, e)
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, New(he.Code, "http_error", http.StatusText(he.Code)))
		return
	}
	c.Logger().Error(err)
	_ = c.JSON(http.StatusInternalServerError,
		New(http.StatusInternalServerError, "internal_error", "Internal server error"))
}
