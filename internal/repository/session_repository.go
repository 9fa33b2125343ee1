package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// SessionRepo owns the `sessions` table.  Validity is always evaluated
// against the database clock inside the query itself, so concurrent
// refresh/terminate races resolve at the storage layer with no
// application-level locking.
type SessionRepo struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionRepo constructs a SessionRepo.  ttl is the session lifetime
// applied on creation and refresh.
func NewSessionRepo(db *sql.DB, ttl time.Duration) *SessionRepo {
	return &SessionRepo{db: db, ttl: ttl}
}

// TTL returns the configured session lifetime.
func (r *SessionRepo) TTL() time.Duration { return r.ttl }

// Create inserts a session for the user with a fresh unguessable id.
// A foreign-key violation on the user is surfaced as UserNotFound.
func (r *SessionRepo) Create(ctx context.Context, userID uuid.UUID, ipHash string) (model.Session, error) {
	s := model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		IPHash:    ipHash,
		ExpiresAt: time.Now().UTC().Add(r.ttl),
	}
	const q = `INSERT INTO sessions (session_id, user_id, ip_hash, expires_at) VALUES (?,?,?,?)`
	if _, err := r.db.ExecContext(ctx, q, s.ID.String(), s.UserID.String(), s.IPHash, s.ExpiresAt); err != nil {
		if isFKViolation(err, "fk_sessions_users") {
			return model.Session{}, apierr.UserNotFound("user_id")
		}
		return model.Session{}, err
	}
	return s, nil
}

// GetValid returns the session only while it is usable for authentication.
// Expired, terminated and nonexistent sessions are indistinguishable to the
// caller: all come back as SessionNotFound.
func (r *SessionRepo) GetValid(ctx context.Context, id uuid.UUID) (model.Session, error) {
	const q = `SELECT session_id, user_id, ip_hash, expires_at, is_terminated, created_at
	           FROM sessions
	           WHERE session_id = ? AND is_terminated = 0 AND expires_at > UTC_TIMESTAMP()`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id.String()))
}

// Get returns the session row regardless of validity.  Administrative
// inspection and ownership checks want the row even after it expired or
// was terminated; only a genuinely absent row is SessionNotFound.
func (r *SessionRepo) Get(ctx context.Context, id uuid.UUID) (model.Session, error) {
	const q = `SELECT session_id, user_id, ip_hash, expires_at, is_terminated, created_at
	           FROM sessions
	           WHERE session_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id.String()))
}

// ListByUser returns the user's currently valid sessions, soonest to expire
// last.
func (r *SessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Session, error) {
	const q = `SELECT session_id, user_id, ip_hash, expires_at, is_terminated, created_at
	           FROM sessions
	           WHERE user_id = ? AND is_terminated = 0 AND expires_at > UTC_TIMESTAMP()
	           ORDER BY expires_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		var (
			s             model.Session
			sessID, usrID string
		)
		if err := rows.Scan(&sessID, &usrID, &s.IPHash, &s.ExpiresAt, &s.Terminated, &s.CreatedAt); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(sessID); err != nil {
			return nil, err
		}
		if s.UserID, err = uuid.Parse(usrID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Terminate revokes the session.  Terminating an already-terminated session
// is a no-op so retry-heavy clients can repeat the call safely; terminating
// a session that does not exist fails with SessionNotFound.
func (r *SessionRepo) Terminate(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE sessions SET is_terminated = 1 WHERE session_id = ?`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero changed rows: either the row is gone or it was already
	// terminated.  Only the former is an error.
	found, err := rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE session_id = ?)`, id.String())
	if err != nil {
		return err
	}
	if !found {
		return apierr.SessionNotFound("session_id")
	}
	return nil
}

// TerminateAllForUser revokes every currently valid session of the user.
// Used on password change and compromise response; no error when the user
// has none.
func (r *SessionRepo) TerminateAllForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `UPDATE sessions SET is_terminated = 1
	           WHERE user_id = ? AND is_terminated = 0 AND expires_at > UTC_TIMESTAMP()`
	_, err := r.db.ExecContext(ctx, q, userID.String())
	return err
}

// Refresh extends a currently valid session by the configured TTL as a
// single atomic conditional update.  Invalid sessions fail with
// SessionNotFound and the row is left untouched.
func (r *SessionRepo) Refresh(ctx context.Context, id uuid.UUID) (time.Time, error) {
	newExp := time.Now().UTC().Add(r.ttl)
	const q = `UPDATE sessions SET expires_at = ?
	           WHERE session_id = ? AND is_terminated = 0 AND expires_at > UTC_TIMESTAMP()`
	res, err := r.db.ExecContext(ctx, q, newExp, id.String())
	if err != nil {
		return time.Time{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return time.Time{}, apierr.SessionNotFound("session_id")
	}
	return newExp, nil
}

// PurgeExpired hard-deletes sessions that expired more than a month ago.
// The grace window keeps recently expired rows around for audit.
func (r *SessionRepo) PurgeExpired(ctx context.Context) error {
	const q = `DELETE FROM sessions WHERE expires_at < UTC_TIMESTAMP() - INTERVAL 1 MONTH`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *SessionRepo) scanOne(row *sql.Row) (model.Session, error) {
	var (
		s             model.Session
		sessID, usrID string
	)
	err := row.Scan(&sessID, &usrID, &s.IPHash, &s.ExpiresAt, &s.Terminated, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, apierr.SessionNotFound("session_id")
		}
		return model.Session{}, err
	}
	if s.ID, err = uuid.Parse(sessID); err != nil {
		return model.Session{}, err
	}
	if s.UserID, err = uuid.Parse(usrID); err != nil {
		return model.Session{}, err
	}
	return s, nil
}
