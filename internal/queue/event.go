// Package queue defines message payloads exchanged over the message broker
// and the background consumer that persists them.
package queue

// AuthEvent is published for every authentication action: login, logout,
// refresh and administrative termination.  It carries enough for an audit
// trail without another trip to the primary database.
type AuthEvent struct {
	Action     string `json:"action"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
	ClientIP   string `json:"client_ip"`
	OccurredAt string `json:"occurred_at"`
}

// Auth event actions.
const (
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionRefresh     = "refresh"
	ActionTerminate   = "terminate"
	ActionLoginFailed = "login_failed"
)
