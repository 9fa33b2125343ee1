package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// BatchRepo owns the `batches` table.
type BatchRepo struct {
	db *sql.DB
}

func NewBatchRepo(db *sql.DB) *BatchRepo { return &BatchRepo{db: db} }

// NewBatch carries the fields needed to create a batch.
type NewBatch struct {
	Code      string
	ProgramID uuid.UUID
	Name      string
	Year      int
	ExtraInfo []byte
}

// Create inserts a batch under a program.
func (r *BatchRepo) Create(ctx context.Context, n NewBatch) (uuid.UUID, error) {
	id := uuid.New()
	const q = `INSERT INTO batches (id, code, program_id, name, year, extra_info)
	           VALUES (?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, id.String(), n.Code, n.ProgramID.String(),
		n.Name, n.Year, nullableJSON(n.ExtraInfo))
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_batches_code"):
			return uuid.Nil, apierr.AlreadyExists("batch", "code")
		case isFKViolation(err, "fk_batches_programs"):
			return uuid.Nil, apierr.NotFound("program", "program_id")
		}
		return uuid.Nil, err
	}
	return id, nil
}

const batchColumns = `b.id, b.code, b.program_id, p.name, b.name, b.year, b.extra_info`

// GetByID fetches a batch joined with its program name.
func (r *BatchRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Batch, error) {
	const q = `SELECT ` + batchColumns + `
	           FROM batches b
	           INNER JOIN programs p ON p.id = b.program_id
	           WHERE b.id = ?`
	b, err := scanBatchRows(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Batch{}, apierr.NotFound("batch", "batch_id")
	}
	return b, err
}

// GetAll lists batches, optionally scoped to a program and/or a year.
func (r *BatchRepo) GetAll(ctx context.Context, programID *uuid.UUID, year *int) ([]model.Batch, error) {
	q := `SELECT ` + batchColumns + `
	      FROM batches b
	      INNER JOIN programs p ON p.id = b.program_id
	      WHERE 1=1`
	var args []any
	if programID != nil {
		q += ` AND b.program_id = ?`
		args = append(args, programID.String())
	}
	if year != nil {
		q += ` AND b.year = ?`
		args = append(args, *year)
	}
	q += ` ORDER BY b.year DESC, b.code`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Batch
	for rows.Next() {
		b, err := scanBatchRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BatchPatch carries optional updates; nil fields keep their value.
type BatchPatch struct {
	Code      *string
	ProgramID *uuid.UUID
	Name      *string
	Year      *int
	ExtraInfo []byte
}

// Update patches the batch row.
func (r *BatchRepo) Update(ctx context.Context, id uuid.UUID, p BatchPatch) error {
	const q = `UPDATE batches
	           SET code = COALESCE(?, code),
	               program_id = COALESCE(?, program_id),
	               name = COALESCE(?, name),
	               year = COALESCE(?, year),
	               extra_info = COALESCE(?, extra_info)
	           WHERE id = ?`
	var program any
	if p.ProgramID != nil {
		program = p.ProgramID.String()
	}
	res, err := r.db.ExecContext(ctx, q, p.Code, program, p.Name, p.Year,
		nullableJSON(p.ExtraInfo), id.String())
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_batches_code"):
			return apierr.AlreadyExists("batch", "code")
		case isFKViolation(err, "fk_batches_programs"):
			return apierr.NotFound("program", "program_id")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	found, err := rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM batches WHERE id = ?)`, id.String())
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("batch", "batch_id")
	}
	return nil
}

// Delete removes a batch.  Enrolled students block the delete.
func (r *BatchRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM batches WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		if isFKViolation(err, "fk_enrollments_batches") {
			return apierr.New(409, "batch_referenced",
				"The batch still has enrolled students").With("action", "delete")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("batch", "batch_id")
	}
	return nil
}

// EnrolledStudents lists the students enrolled in the batch.
func (r *BatchRepo) EnrolledStudents(ctx context.Context, batchID uuid.UUID) ([]model.EnrolledStudent, error) {
	const q = `SELECT e.enrollment_no, s.id, s.first_name, s.middle_name, s.last_name
	           FROM enrollments e
	           INNER JOIN students s ON s.id = e.student_id AND s.is_active = 1
	           WHERE e.batch_id = ?
	           ORDER BY s.last_name, s.first_name`
	rows, err := r.db.QueryContext(ctx, q, batchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EnrolledStudent
	for rows.Next() {
		var (
			e  model.EnrolledStudent
			id string
		)
		if err := rows.Scan(&e.EnrollmentNo, &id, &e.FirstName, &e.MiddleName, &e.LastName); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanBatchRows(row rowScanner) (model.Batch, error) {
	var (
		b           model.Batch
		id, program string
		extra       sql.NullString
	)
	err := row.Scan(&id, &b.Code, &program, &b.ProgramName, &b.Name, &b.Year, &extra)
	if err != nil {
		return model.Batch{}, err
	}
	if b.ID, err = uuid.Parse(id); err != nil {
		return model.Batch{}, err
	}
	if b.ProgramID, err = uuid.Parse(program); err != nil {
		return model.Batch{}, err
	}
	if extra.Valid {
		b.ExtraInfo = []byte(extra.String)
	}
	return b, nil
}
