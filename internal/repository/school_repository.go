package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// SchoolRepo owns the `schools` table.
type SchoolRepo struct {
	db *sql.DB
}

func NewSchoolRepo(db *sql.DB) *SchoolRepo { return &SchoolRepo{db: db} }

// Create inserts a school.  The dean must reference an existing staff
// member.
func (r *SchoolRepo) Create(ctx context.Context, name string, deanID uuid.UUID, extraInfo []byte) (uuid.UUID, error) {
	id := uuid.New()
	const q = `INSERT INTO schools (id, name, dean_id, extra_info) VALUES (?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, id.String(), name, deanID.String(), nullableJSON(extraInfo))
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_schools_name"):
			return uuid.Nil, apierr.AlreadyExists("school", "name")
		case isFKViolation(err, "fk_schools_staff"):
			return uuid.Nil, apierr.NotFound("staff", "dean_id")
		}
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID fetches a school.
func (r *SchoolRepo) GetByID(ctx context.Context, id uuid.UUID) (model.School, error) {
	const q = `SELECT id, name, dean_id, extra_info FROM schools WHERE id = ?`
	s, err := scanSchoolRows(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.School{}, apierr.NotFound("school", "school_id")
	}
	return s, err
}

// GetAll lists schools.
func (r *SchoolRepo) GetAll(ctx context.Context) ([]model.School, error) {
	const q = `SELECT id, name, dean_id, extra_info FROM schools ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.School
	for rows.Next() {
		s, err := scanSchoolRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SchoolPatch carries optional updates; nil fields keep their value.
type SchoolPatch struct {
	Name      *string
	DeanID    *uuid.UUID
	ExtraInfo []byte
}

// Update patches the school row.
func (r *SchoolRepo) Update(ctx context.Context, id uuid.UUID, p SchoolPatch) error {
	const q = `UPDATE schools
	           SET name = COALESCE(?, name),
	               dean_id = COALESCE(?, dean_id),
	               extra_info = COALESCE(?, extra_info)
	           WHERE id = ?`
	var dean any
	if p.DeanID != nil {
		dean = p.DeanID.String()
	}
	res, err := r.db.ExecContext(ctx, q, p.Name, dean, nullableJSON(p.ExtraInfo), id.String())
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_schools_name"):
			return apierr.AlreadyExists("school", "name")
		case isFKViolation(err, "fk_schools_staff"):
			return apierr.NotFound("staff", "dean_id")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	found, err := rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM schools WHERE id = ?)`, id.String())
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("school", "school_id")
	}
	return nil
}

// Delete removes a school.  Departments still attached block the delete.
func (r *SchoolRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM schools WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		if isFKViolation(err, "fk_departments_schools") {
			return apierr.New(409, "school_referenced",
				"The school still has departments attached").With("action", "delete")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("school", "school_id")
	}
	return nil
}

func scanSchoolRows(row rowScanner) (model.School, error) {
	var (
		s        model.School
		id, dean string
		extra    sql.NullString
	)
	err := row.Scan(&id, &s.Name, &dean, &extra)
	if err != nil {
		return model.School{}, err
	}
	if s.ID, err = uuid.Parse(id); err != nil {
		return model.School{}, err
	}
	if s.DeanID, err = uuid.Parse(dean); err != nil {
		return model.School{}, err
	}
	if extra.Valid {
		s.ExtraInfo = []byte(extra.String)
	}
	return s, nil
}
