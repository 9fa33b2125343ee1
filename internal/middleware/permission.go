package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/opencampus/cms-api/internal/apierr"
)

// matchedGroupKey is the context key under which RequireAnyOf records the
// index of the permission group that satisfied the request.
const matchedGroupKey = "matched_permission_group"

// RequirePermissions returns a middleware that admits the request only
// when the identity holds every listed permission.  It assumes
// Authenticate already ran; a route wired without it rejects everything.
func RequirePermissions(slugs ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return apierr.CredentialsNotFound()
			}
			for _, s := range slugs {
				if !id.Has(s) {
					return apierr.NotEnoughPermissions()
				}
			}
			return next(c)
		}
	}
}

// RequireAnyOf admits the request when at least one of the given groups is
// fully held.  Groups are tried in order and the first complete match
// wins; its index is recorded in the context so handlers can tell a
// broad grant ("any") from a self-scoped one and enforce ownership.
// An empty group never matches, so an all-empty requirement denies
// everyone.
func RequireAnyOf(groups ...[]string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return apierr.CredentialsNotFound()
			}
			matched, ok := matchAnyOf(id, groups)
			if !ok {
				return apierr.NotEnoughPermissions()
			}
			c.Set(matchedGroupKey, matched)
			return next(c)
		}
	}
}

// MatchedGroup returns the index recorded by RequireAnyOf, or -1 when the
// route used a plain all-of requirement.
func MatchedGroup(c echo.Context) int {
	if v, ok := c.Get(matchedGroupKey).(int); ok {
		return v
	}
	return -1
}

// matchAnyOf returns the index of the first group whose every slug the
// identity holds.
func matchAnyOf(id Identity, groups [][]string) (int, bool) {
	for i, group := range groups {
		if len(group) == 0 {
			continue
		}
		all := true
		for _, s := range group {
			if !id.Has(s) {
				all = false
				break
			}
		}
		if all {
			return i, true
		}
	}
	return -1, false
}
