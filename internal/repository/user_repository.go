package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// UserRepo owns the `users` and `user_permissions` tables.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email_id, password, contact_no, profile_image, active, created_at`

// Create inserts a user with a generated id.  The email is stored
// lowercase; passwordHash must already be an argon2id string.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, contactNo string, profileImage *uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	err := createUserExec(ctx, r.db, id, email, passwordHash, contactNo, profileImage)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// execer covers both *sql.DB and *sql.Tx so user creation can take part in
// the profile-creation transactions of the student/staff/parent repos.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func createUserExec(ctx context.Context, ex execer, id uuid.UUID, email, passwordHash, contactNo string, profileImage *uuid.UUID) error {
	const q = `INSERT INTO users (id, email_id, password, contact_no, profile_image)
	           VALUES (?,?,?,?,?)`
	var img any
	if profileImage != nil {
		img = profileImage.String()
	}
	_, err := ex.ExecContext(ctx, q, id.String(), normalizeEmail(email), passwordHash, contactNo, img)
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_users_email_id"):
			return apierr.UserExists("email_id")
		case isDuplicate(err, "uniq_users_contact_no"):
			return apierr.UserExists("contact_no")
		}
		return err
	}
	return nil
}

// GetByID fetches an active user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ? AND active = 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id.String()), "id")
}

// GetByEmail fetches an active user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email_id = ? AND active = 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, normalizeEmail(email)), "email_id")
}

// Update patches contact number and profile image; nil fields keep their
// current value.
func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, contactNo *string, profileImage *uuid.UUID) error {
	const q = `UPDATE users
	           SET contact_no = COALESCE(?, contact_no),
	               profile_image = COALESCE(?, profile_image)
	           WHERE id = ? AND active = 1`
	var img any
	if profileImage != nil {
		img = profileImage.String()
	}
	res, err := r.db.ExecContext(ctx, q, contactNo, img, id.String())
	if err != nil {
		if isDuplicate(err, "uniq_users_contact_no") {
			return apierr.UserExists("contact_no")
		}
		return err
	}
	return r.checkUpdated(ctx, res, id)
}

// UpdatePassword replaces the stored credential hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const q = `UPDATE users SET password = ? WHERE id = ? AND active = 1`
	res, err := r.db.ExecContext(ctx, q, passwordHash, id.String())
	if err != nil {
		return err
	}
	return r.checkUpdated(ctx, res, id)
}

// Delete soft-deletes the user.  The row stays behind any references.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE users SET active = 0 WHERE id = ? AND active = 1`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.UserNotFound("id")
	}
	return nil
}

// GrantPermissions grants each slug to the user.  Granting an
// already-granted pair is a no-op; an unknown slug fails the whole batch
// with PermissionNotFound.
func (r *UserRepo) GrantPermissions(ctx context.Context, id uuid.UUID, slugs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO user_permissions (user_id, permission_slug)
	           VALUES (?,?)
	           ON DUPLICATE KEY UPDATE permission_slug = permission_slug`
	for _, slug := range slugs {
		if _, err := tx.ExecContext(ctx, q, id.String(), slug); err != nil {
			switch {
			case isFKViolation(err, "fk_user_permissions_permissions"):
				return apierr.PermissionNotFound().With("value", slug)
			case isFKViolation(err, "fk_user_permissions_users"):
				return apierr.UserNotFound("id")
			}
			return err
		}
	}
	return tx.Commit()
}

// RevokePermissions removes the given grants; slugs the user does not hold
// are ignored.
func (r *UserRepo) RevokePermissions(ctx context.Context, id uuid.UUID, slugs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `DELETE FROM user_permissions WHERE user_id = ? AND permission_slug = ?`
	for _, slug := range slugs {
		if _, err := tx.ExecContext(ctx, q, id.String(), slug); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetPermissions returns the user's current permission set.  Called on
// every authenticated request; never cached so grant and revoke changes
// apply on the next request.
func (r *UserRepo) GetPermissions(ctx context.Context, id uuid.UUID) ([]string, error) {
	const q = `SELECT permission_slug FROM user_permissions WHERE user_id = ?`
	rows, err := r.db.QueryContext(ctx, q, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		out = append(out, slug)
	}
	return out, rows.Err()
}

func (r *UserRepo) checkUpdated(ctx context.Context, res sql.Result, id uuid.UUID) error {
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// COALESCE updates can legitimately change nothing; distinguish a
	// no-op from a missing row.
	found, err := rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = ? AND active = 1)`, id.String())
	if err != nil {
		return err
	}
	if !found {
		return apierr.UserNotFound("id")
	}
	return nil
}

func (r *UserRepo) scanOne(row *sql.Row, parameter string) (model.User, error) {
	var (
		u   model.User
		id  string
		img sql.NullString
	)
	err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.ContactNo, &img, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, apierr.UserNotFound(parameter)
		}
		return model.User{}, err
	}
	if u.ID, err = uuid.Parse(id); err != nil {
		return model.User{}, err
	}
	if img.Valid {
		p, err := uuid.Parse(img.String)
		if err != nil {
			return model.User{}, err
		}
		u.ProfileImage = &p
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
