package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// ProgramRepo owns the `programs` table.
type ProgramRepo struct {
	db *sql.DB
}

func NewProgramRepo(db *sql.DB) *ProgramRepo { return &ProgramRepo{db: db} }

// NewProgram carries the fields needed to create a program.
type NewProgram struct {
	Name         string
	DegreeName   string
	DegreeType   string
	DepartmentID uuid.UUID
	ExtraInfo    []byte
}

// Create inserts a program under a department.
func (r *ProgramRepo) Create(ctx context.Context, n NewProgram) (uuid.UUID, error) {
	id := uuid.New()
	const q = `INSERT INTO programs (id, name, degree_name, degree_type, department_id, extra_info)
	           VALUES (?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, id.String(), n.Name, n.DegreeName, n.DegreeType,
		n.DepartmentID.String(), nullableJSON(n.ExtraInfo))
	if err != nil {
		if isFKViolation(err, "fk_programs_departments") {
			return uuid.Nil, apierr.NotFound("department", "department_id")
		}
		return uuid.Nil, err
	}
	return id, nil
}

const programColumns = `p.id, p.name, p.degree_name, p.degree_type, p.department_id, d.name, p.extra_info`

// GetByID fetches a program joined with its department name.
func (r *ProgramRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Program, error) {
	const q = `SELECT ` + programColumns + `
	           FROM programs p
	           INNER JOIN departments d ON d.id = p.department_id
	           WHERE p.id = ?`
	pr, err := scanProgramRows(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Program{}, apierr.NotFound("program", "program_id")
	}
	return pr, err
}

// GetAll lists programs, optionally scoped to one department.
func (r *ProgramRepo) GetAll(ctx context.Context, departmentID *uuid.UUID) ([]model.Program, error) {
	q := `SELECT ` + programColumns + `
	      FROM programs p
	      INNER JOIN departments d ON d.id = p.department_id`
	var args []any
	if departmentID != nil {
		q += ` WHERE p.department_id = ?`
		args = append(args, departmentID.String())
	}
	q += ` ORDER BY p.name`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Program
	for rows.Next() {
		pr, err := scanProgramRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// ProgramPatch carries optional updates; nil fields keep their value.
type ProgramPatch struct {
	Name         *string
	DegreeName   *string
	DegreeType   *string
	DepartmentID *uuid.UUID
	ExtraInfo    []byte
}

// Update patches the program row.
func (r *ProgramRepo) Update(ctx context.Context, id uuid.UUID, p ProgramPatch) error {
	const q = `UPDATE programs
	           SET name = COALESCE(?, name),
	               degree_name = COALESCE(?, degree_name),
	               degree_type = COALESCE(?, degree_type),
	               department_id = COALESCE(?, department_id),
	               extra_info = COALESCE(?, extra_info)
	           WHERE id = ?`
	var dept any
	if p.DepartmentID != nil {
		dept = p.DepartmentID.String()
	}
	res, err := r.db.ExecContext(ctx, q, p.Name, p.DegreeName, p.DegreeType, dept,
		nullableJSON(p.ExtraInfo), id.String())
	if err != nil {
		if isFKViolation(err, "fk_programs_departments") {
			return apierr.NotFound("department", "department_id")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	found, err := rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM programs WHERE id = ?)`, id.String())
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("program", "program_id")
	}
	return nil
}

// Delete removes a program.  Batches still attached block the delete.
func (r *ProgramRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM programs WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		if isFKViolation(err, "fk_batches_programs") {
			return apierr.New(409, "program_referenced",
				"The program still has batches attached").With("action", "delete")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("program", "program_id")
	}
	return nil
}

func scanProgramRows(row rowScanner) (model.Program, error) {
	var (
		pr       model.Program
		id, dept string
		extra    sql.NullString
	)
	err := row.Scan(&id, &pr.Name, &pr.DegreeName, &pr.DegreeType, &dept, &pr.DepartmentName, &extra)
	if err != nil {
		return model.Program{}, err
	}
	if pr.ID, err = uuid.Parse(id); err != nil {
		return model.Program{}, err
	}
	if pr.DepartmentID, err = uuid.Parse(dept); err != nil {
		return model.Program{}, err
	}
	if extra.Valid {
		pr.ExtraInfo = []byte(extra.String)
	}
	return pr, nil
}
