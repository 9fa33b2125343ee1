package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// StaffRepo owns the `staff` table.  Like students, a staff row shares its
// primary key with the backing user row.
type StaffRepo struct {
	db *sql.DB
}

func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{db: db} }

// NewStaff carries the fields needed to create a staff member together
// with its backing user.
type NewStaff struct {
	Email        string
	PasswordHash string
	ContactNo    string
	FirstName    string
	LastName     string
	Position     string
	Education    []byte
	Experience   []byte
	Activity     []byte
	OtherDetails []byte
	IsPublic     bool
}

// Create inserts the backing user and the staff row in one transaction.
func (r *StaffRepo) Create(ctx context.Context, n NewStaff) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New()
	if err := createUserExec(ctx, tx, id, n.Email, n.PasswordHash, n.ContactNo, nil); err != nil {
		return uuid.Nil, err
	}

	const q = `INSERT INTO staff (id, first_name, last_name, position, education,
	                              experience, activity, other_details, is_public)
	           VALUES (?,?,?,?,?,?,?,?,?)`
	_, err = tx.ExecContext(ctx, q, id.String(), n.FirstName, n.LastName, n.Position,
		nullableJSON(n.Education), nullableJSON(n.Experience), nullableJSON(n.Activity),
		nullableJSON(n.OtherDetails), n.IsPublic)
	if err != nil {
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

const staffColumns = `st.id, st.first_name, st.last_name, u.email_id, u.contact_no,
	st.position, st.education, st.experience, st.activity, st.other_details,
	st.is_public, st.department_id`

// GetByID fetches an active staff member joined with its user row.
func (r *StaffRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Staff, error) {
	const q = `SELECT ` + staffColumns + `
	           FROM staff st
	           INNER JOIN users u ON u.id = st.id AND u.active = 1
	           WHERE st.id = ? AND st.is_active = 1`
	s, err := scanStaffRows(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Staff{}, apierr.NotFound("staff", "staff_id")
	}
	return s, err
}

// Exists reports whether an active staff member with the id exists; used
// for dean/head foreign-key pre-checks that want a clean 404.
func (r *StaffRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM staff WHERE id = ? AND is_active = 1)`, id.String())
}

// GetAll lists active staff; when publicOnly is set, only members with
// is_public appear (the unauthenticated faculty listing).
func (r *StaffRepo) GetAll(ctx context.Context, publicOnly bool, limit, offset int) ([]model.Staff, error) {
	q := `SELECT ` + staffColumns + `
	      FROM staff st
	      INNER JOIN users u ON u.id = st.id AND u.active = 1
	      WHERE st.is_active = 1`
	if publicOnly {
		q += ` AND st.is_public = 1`
	}
	q += ` ORDER BY st.last_name, st.first_name LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		s, err := scanStaffRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// StaffPatch carries optional updates; nil fields keep their value.
type StaffPatch struct {
	FirstName    *string
	LastName     *string
	Position     *string
	Education    []byte
	Experience   []byte
	Activity     []byte
	OtherDetails []byte
	IsPublic     *bool
}

// Update patches the staff row.
func (r *StaffRepo) Update(ctx context.Context, id uuid.UUID, p StaffPatch) error {
	const q = `UPDATE staff
	           SET first_name = COALESCE(?, first_name),
	               last_name = COALESCE(?, last_name),
	               position = COALESCE(?, position),
	               education = COALESCE(?, education),
	               experience = COALESCE(?, experience),
	               activity = COALESCE(?, activity),
	               other_details = COALESCE(?, other_details),
	               is_public = COALESCE(?, is_public)
	           WHERE id = ? AND is_active = 1`
	res, err := r.db.ExecContext(ctx, q, p.FirstName, p.LastName, p.Position,
		nullableJSON(p.Education), nullableJSON(p.Experience), nullableJSON(p.Activity),
		nullableJSON(p.OtherDetails), p.IsPublic, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	found, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("staff", "staff_id")
	}
	return nil
}

// AssignDepartment moves the staff member into a department.
func (r *StaffRepo) AssignDepartment(ctx context.Context, id, departmentID uuid.UUID) error {
	const q = `UPDATE staff SET department_id = ? WHERE id = ? AND is_active = 1`
	res, err := r.db.ExecContext(ctx, q, departmentID.String(), id.String())
	if err != nil {
		if isFKViolation(err, "fk_staff_departments") {
			return apierr.NotFound("department", "department_id")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	found, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("staff", "staff_id")
	}
	return nil
}

// Delete soft-deletes the staff profile.
func (r *StaffRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE staff SET is_active = 0 WHERE id = ? AND is_active = 1`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("staff", "staff_id")
	}
	return nil
}

func scanStaffRows(row rowScanner) (model.Staff, error) {
	var (
		s                          model.Staff
		id                         string
		edu, exp, act, other, dept sql.NullString
	)
	err := row.Scan(&id, &s.FirstName, &s.LastName, &s.Email, &s.ContactNo, &s.Position,
		&edu, &exp, &act, &other, &s.IsPublic, &dept)
	if err != nil {
		return model.Staff{}, err
	}
	if s.ID, err = uuid.Parse(id); err != nil {
		return model.Staff{}, err
	}
	if edu.Valid {
		s.Education = []byte(edu.String)
	}
	if exp.Valid {
		s.Experience = []byte(exp.String)
	}
	if act.Valid {
		s.Activity = []byte(act.String)
	}
	if other.Valid {
		s.OtherDetails = []byte(other.String)
	}
	if dept.Valid {
		d, err := uuid.Parse(dept.String)
		if err != nil {
			return model.Staff{}, err
		}
		s.DepartmentID = &d
	}
	return s, nil
}
