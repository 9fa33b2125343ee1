package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// ParentRepo owns the `parents` table and the `student_parents`
// association.
type ParentRepo struct {
	db *sql.DB
}

func NewParentRepo(db *sql.DB) *ParentRepo { return &ParentRepo{db: db} }

const parentColumns = `id, fathers_name, mothers_name, fathers_email_id, mothers_email_id,
	fathers_contact_no, mothers_contact_no, address, extra_info`

// Create inserts a parent record.
func (r *ParentRepo) Create(ctx context.Context, p model.Parent) (uuid.UUID, error) {
	id := uuid.New()
	const q = `INSERT INTO parents (` + parentColumns + `) VALUES (?,?,?,?,?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, id.String(), p.FathersName, p.MothersName,
		p.FathersEmail, p.MothersEmail, p.FathersContactNo, p.MothersContactNo,
		p.Address, nullableJSON(p.ExtraInfo))
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID fetches an active parent record.
func (r *ParentRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Parent, error) {
	const q = `SELECT ` + parentColumns + ` FROM parents WHERE id = ? AND is_active = 1`
	p, err := scanParentRows(r.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Parent{}, apierr.NotFound("parent", "parent_id")
	}
	return p, err
}

// GetAll lists active parents.
func (r *ParentRepo) GetAll(ctx context.Context, limit, offset int) ([]model.Parent, error) {
	const q = `SELECT ` + parentColumns + ` FROM parents WHERE is_active = 1
	           ORDER BY fathers_name LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Parent
	for rows.Next() {
		p, err := scanParentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ParentPatch carries optional updates; nil fields keep their value.
type ParentPatch struct {
	FathersName      *string
	MothersName      *string
	FathersEmail     *string
	MothersEmail     *string
	FathersContactNo *string
	MothersContactNo *string
	Address          *string
	ExtraInfo        []byte
}

// Update patches the parent row.
func (r *ParentRepo) Update(ctx context.Context, id uuid.UUID, p ParentPatch) error {
	const q = `UPDATE parents
	           SET fathers_name = COALESCE(?, fathers_name),
	               mothers_name = COALESCE(?, mothers_name),
	               fathers_email_id = COALESCE(?, fathers_email_id),
	               mothers_email_id = COALESCE(?, mothers_email_id),
	               fathers_contact_no = COALESCE(?, fathers_contact_no),
	               mothers_contact_no = COALESCE(?, mothers_contact_no),
	               address = COALESCE(?, address),
	               extra_info = COALESCE(?, extra_info)
	           WHERE id = ? AND is_active = 1`
	res, err := r.db.ExecContext(ctx, q, p.FathersName, p.MothersName, p.FathersEmail,
		p.MothersEmail, p.FathersContactNo, p.MothersContactNo, p.Address,
		nullableJSON(p.ExtraInfo), id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	found, err := rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM parents WHERE id = ? AND is_active = 1)`, id.String())
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("parent", "parent_id")
	}
	return nil
}

// Delete soft-deletes the parent record.
func (r *ParentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE parents SET is_active = 0 WHERE id = ? AND is_active = 1`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("parent", "parent_id")
	}
	return nil
}

// LinkStudent associates a student with the parent; linking an existing
// pair is a no-op.
func (r *ParentRepo) LinkStudent(ctx context.Context, parentID, studentID uuid.UUID) error {
	const q = `INSERT INTO student_parents (student_id, parent_id) VALUES (?,?)
	           ON DUPLICATE KEY UPDATE parent_id = parent_id`
	if _, err := r.db.ExecContext(ctx, q, studentID.String(), parentID.String()); err != nil {
		switch {
		case isFKViolation(err, "fk_student_parents_students"):
			return apierr.NotFound("student", "student_id")
		case isFKViolation(err, "fk_student_parents_parents"):
			return apierr.NotFound("parent", "parent_id")
		}
		return err
	}
	return nil
}

// UnlinkStudent removes the association; unlinking a missing pair is a
// no-op.
func (r *ParentRepo) UnlinkStudent(ctx context.Context, parentID, studentID uuid.UUID) error {
	const q = `DELETE FROM student_parents WHERE student_id = ? AND parent_id = ?`
	_, err := r.db.ExecContext(ctx, q, studentID.String(), parentID.String())
	return err
}

// Students lists the ids of students linked to the parent.
func (r *ParentRepo) Students(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT student_id FROM student_parents WHERE parent_id = ?`
	rows, err := r.db.QueryContext(ctx, q, parentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanParentRows(row rowScanner) (model.Parent, error) {
	var (
		p     model.Parent
		id    string
		extra sql.NullString
	)
	err := row.Scan(&id, &p.FathersName, &p.MothersName, &p.FathersEmail, &p.MothersEmail,
		&p.FathersContactNo, &p.MothersContactNo, &p.Address, &extra)
	if err != nil {
		return model.Parent{}, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return model.Parent{}, err
	}
	if extra.Valid {
		p.ExtraInfo = []byte(extra.String)
	}
	return p, nil
}
