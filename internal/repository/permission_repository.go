package repository

import (
	"context"
	"database/sql"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// PermissionRepo owns the `permissions` catalog.
type PermissionRepo struct {
	db *sql.DB
}

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{db: db} }

// Create inserts a permission; the slug is the primary key.
func (r *PermissionRepo) Create(ctx context.Context, slug, description string) error {
	const q = `INSERT INTO permissions (slug, description) VALUES (?,?)`
	if _, err := r.db.ExecContext(ctx, q, slug, description); err != nil {
		if isDuplicate(err, "PRIMARY") {
			return apierr.PermissionExists()
		}
		return err
	}
	return nil
}

// GetAll lists the full catalog.
func (r *PermissionRepo) GetAll(ctx context.Context) ([]model.Permission, error) {
	const q = `SELECT slug, description FROM permissions ORDER BY slug`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.Slug, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a permission.  Deleting one still granted to any user
// fails with PermissionReferenced instead of cascading; the grants must be
// revoked first.
func (r *PermissionRepo) Delete(ctx context.Context, slug string) error {
	const q = `DELETE FROM permissions WHERE slug = ?`
	res, err := r.db.ExecContext(ctx, q, slug)
	if err != nil {
		if isFKViolation(err, "fk_user_permissions_permissions") {
			return apierr.PermissionReferenced("delete")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.PermissionNotFound()
	}
	return nil
}
