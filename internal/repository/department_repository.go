package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// DepartmentRepo owns the `departments` table.
type DepartmentRepo struct {
	db *sql.DB
}

func NewDepartmentRepo(db *sql.DB) *DepartmentRepo { return &DepartmentRepo{db: db} }

// Create inserts a department under a school.  The head must reference an
// existing staff member.
func (r *DepartmentRepo) Create(ctx context.Context, name string, schoolID, headID uuid.UUID, extraInfo []byte) (uuid.UUID, error) {
	id := uuid.New()
	const q = `INSERT INTO departments (id, name, school_id, head_id, extra_info) VALUES (?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, id.String(), name, schoolID.String(), headID.String(),
		nullableJSON(extraInfo))
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_departments_name"):
			return uuid.Nil, apierr.AlreadyExists("department", "name")
		case isFKViolation(err, "fk_departments_schools"):
			return uuid.Nil, apierr.NotFound("school", "school_id")
		case isFKViolation(err, "fk_departments_staff"):
			return uuid.Nil, apierr.NotFound("staff", "head_id")
		}
		return uuid.Nil, err
	}
	return id, nil
}

const departmentColumns = `id, name, school_id, head_id, extra_info`

// GetByID fetches a department.
func (r *DepartmentRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Department, error) {
	const q = `SELECT ` + departmentColumns + ` FROM departments WHERE id = ?`
	d, err := scanDepartmentRows(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Department{}, apierr.NotFound("department", "department_id")
	}
	return d, err
}

// GetAll lists departments, optionally scoped to one school.
func (r *DepartmentRepo) GetAll(ctx context.Context, schoolID *uuid.UUID) ([]model.Department, error) {
	q := `SELECT ` + departmentColumns + ` FROM departments`
	var args []any
	if schoolID != nil {
		q += ` WHERE school_id = ?`
		args = append(args, schoolID.String())
	}
	q += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Department
	for rows.Next() {
		d, err := scanDepartmentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DepartmentPatch carries optional updates; nil fields keep their value.
type DepartmentPatch struct {
	Name      *string
	SchoolID  *uuid.UUID
	HeadID    *uuid.UUID
	ExtraInfo []byte
}

// Update patches the department row.
func (r *DepartmentRepo) Update(ctx context.Context, id uuid.UUID, p DepartmentPatch) error {
	const q = `UPDATE departments
	           SET name = COALESCE(?, name),
	               school_id = COALESCE(?, school_id),
	               head_id = COALESCE(?, head_id),
	               extra_info = COALESCE(?, extra_info)
	           WHERE id = ?`
	var school, head any
	if p.SchoolID != nil {
		school = p.SchoolID.String()
	}
	if p.HeadID != nil {
		head = p.HeadID.String()
	}
	res, err := r.db.ExecContext(ctx, q, p.Name, school, head, nullableJSON(p.ExtraInfo), id.String())
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_departments_name"):
			return apierr.AlreadyExists("department", "name")
		case isFKViolation(err, "fk_departments_schools"):
			return apierr.NotFound("school", "school_id")
		case isFKViolation(err, "fk_departments_staff"):
			return apierr.NotFound("staff", "head_id")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	found, err := rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM departments WHERE id = ?)`, id.String())
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("department", "department_id")
	}
	return nil
}

// Delete removes a department.  Programs or staff still attached block the
// delete.
func (r *DepartmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM departments WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		switch {
		case isFKViolation(err, "fk_programs_departments"):
			return apierr.New(409, "department_referenced",
				"The department still has programs attached").With("action", "delete")
		case isFKViolation(err, "fk_staff_departments"):
			return apierr.New(409, "department_referenced",
				"The department still has staff assigned").With("action", "delete")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("department", "department_id")
	}
	return nil
}

func scanDepartmentRows(row rowScanner) (model.Department, error) {
	var (
		d                model.Department
		id, school, head string
		extra            sql.NullString
	)
	err := row.Scan(&id, &d.Name, &school, &head, &extra)
	if err != nil {
		return model.Department{}, err
	}
	if d.ID, err = uuid.Parse(id); err != nil {
		return model.Department{}, err
	}
	if d.SchoolID, err = uuid.Parse(school); err != nil {
		return model.Department{}, err
	}
	if d.HeadID, err = uuid.Parse(head); err != nil {
		return model.Department{}, err
	}
	if extra.Valid {
		d.ExtraInfo = []byte(extra.String)
	}
	return d, nil
}
