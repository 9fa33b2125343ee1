package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opencampus/cms-api/internal/apierr"
	"github.com/opencampus/cms-api/internal/model"
)

// StudentRepo owns the `students` table and the `enrollments` association.
// A student row shares its primary key with the backing user row.
type StudentRepo struct {
	db *sql.DB
}

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{db: db} }

// NewStudent carries the fields needed to create a student together with
// its backing user.
type NewStudent struct {
	Email        string
	PasswordHash string
	ContactNo    string
	FirstName    string
	MiddleName   string
	LastName     string
	DateOfBirth  time.Time
	Gender       string
	Address      string
	AadhaarNo    string
	ApaarID      string
	ExtraInfo    []byte
}

// Create inserts the backing user and the student row in one transaction,
// so a failure on the student side never leaves an orphaned user behind.
func (r *StudentRepo) Create(ctx context.Context, n NewStudent) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New()
	if err := createUserExec(ctx, tx, id, n.Email, n.PasswordHash, n.ContactNo, nil); err != nil {
		return uuid.Nil, err
	}

	const q = `INSERT INTO students (id, first_name, middle_name, last_name, date_of_birth,
	                                 gender, address, aadhaar_no, apaar_id, extra_info)
	           VALUES (?,?,?,?,?,?,?,?,?,?)`
	_, err = tx.ExecContext(ctx, q, id.String(), n.FirstName, n.MiddleName, n.LastName,
		n.DateOfBirth, n.Gender, n.Address, n.AadhaarNo, n.ApaarID, nullableJSON(n.ExtraInfo))
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_students_aadhaar_no"):
			return uuid.Nil, apierr.AlreadyExists("student", "aadhaar_no")
		case isDuplicate(err, "uniq_students_apaar_id"):
			return uuid.Nil, apierr.AlreadyExists("student", "apaar_id")
		}
		return uuid.Nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

const studentColumns = `s.id, s.first_name, s.middle_name, s.last_name, s.date_of_birth,
	s.gender, s.address, u.email_id, u.contact_no, s.aadhaar_no, s.apaar_id, s.extra_info`

// GetByID fetches an active student joined with its user row.
func (r *StudentRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Student, error) {
	const q = `SELECT ` + studentColumns + `
	           FROM students s
	           INNER JOIN users u ON u.id = s.id AND u.active = 1
	           WHERE s.id = ? AND s.is_active = 1`
	return scanStudent(r.db.QueryRowContext(ctx, q, id.String()))
}

// GetAll lists active students ordered by name.
func (r *StudentRepo) GetAll(ctx context.Context, limit, offset int) ([]model.Student, error) {
	const q = `SELECT ` + studentColumns + `
	           FROM students s
	           INNER JOIN users u ON u.id = s.id AND u.active = 1
	           WHERE s.is_active = 1
	           ORDER BY s.last_name, s.first_name
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Student
	for rows.Next() {
		st, err := scanStudentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// StudentPatch carries optional updates; nil fields keep their value.
type StudentPatch struct {
	FirstName   *string
	MiddleName  *string
	LastName    *string
	DateOfBirth *time.Time
	Gender      *string
	Address     *string
	AadhaarNo   *string
	ApaarID     *string
	ExtraInfo   []byte
}

// Update patches the student row.
func (r *StudentRepo) Update(ctx context.Context, id uuid.UUID, p StudentPatch) error {
	const q = `UPDATE students
	           SET first_name = COALESCE(?, first_name),
	               middle_name = COALESCE(?, middle_name),
	               last_name = COALESCE(?, last_name),
	               date_of_birth = COALESCE(?, date_of_birth),
	               gender = COALESCE(?, gender),
	               address = COALESCE(?, address),
	               aadhaar_no = COALESCE(?, aadhaar_no),
	               apaar_id = COALESCE(?, apaar_id),
	               extra_info = COALESCE(?, extra_info)
	           WHERE id = ? AND is_active = 1`
	res, err := r.db.ExecContext(ctx, q, p.FirstName, p.MiddleName, p.LastName, p.DateOfBirth,
		p.Gender, p.Address, p.AadhaarNo, p.ApaarID, nullableJSON(p.ExtraInfo), id.String())
	if err != nil {
		switch {
		case isDuplicate(err, "uniq_students_aadhaar_no"):
			return apierr.AlreadyExists("student", "aadhaar_no")
		case isDuplicate(err, "uniq_students_apaar_id"):
			return apierr.AlreadyExists("student", "apaar_id")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	found, err := rowExists(ctx, r.db,
		`SELECT EXISTS(SELECT 1 FROM students WHERE id = ? AND is_active = 1)`, id.String())
	if err != nil {
		return err
	}
	if !found {
		return apierr.NotFound("student", "student_id")
	}
	return nil
}

// Delete soft-deletes the student profile; the backing user stays active.
func (r *StudentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE students SET is_active = 0 WHERE id = ? AND is_active = 1`
	res, err := r.db.ExecContext(ctx, q, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("student", "student_id")
	}
	return nil
}

// Enroll registers the student into a batch and returns the generated
// enrollment number.  The number is opaque; nothing downstream parses it.
func (r *StudentRepo) Enroll(ctx context.Context, studentID, batchID uuid.UUID) (string, error) {
	no, err := newEnrollmentNo()
	if err != nil {
		return "", err
	}
	const q = `INSERT INTO enrollments (enrollment_no, student_id, batch_id) VALUES (?,?,?)`
	if _, err := r.db.ExecContext(ctx, q, no, studentID.String(), batchID.String()); err != nil {
		switch {
		case isFKViolation(err, "fk_enrollments_students"):
			return "", apierr.NotFound("student", "student_id")
		case isFKViolation(err, "fk_enrollments_batches"):
			return "", apierr.NotFound("batch", "batch_id")
		case isDuplicate(err, "uniq_enrollments_student_batch"):
			return "", apierr.AlreadyExists("enrollment", "batch_id")
		}
		return "", err
	}
	return no, nil
}

// Enrollments lists the student's enrollments with batch and program
// context.
func (r *StudentRepo) Enrollments(ctx context.Context, studentID uuid.UUID) ([]model.Enrollment, error) {
	const q = `SELECT e.enrollment_no, e.student_id, b.id, b.name, b.code, b.year, p.name
	           FROM enrollments e
	           INNER JOIN batches b ON b.id = e.batch_id
	           INNER JOIN programs p ON p.id = b.program_id
	           WHERE e.student_id = ?
	           ORDER BY b.year DESC`
	rows, err := r.db.QueryContext(ctx, q, studentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Enrollment
	for rows.Next() {
		var (
			e          model.Enrollment
			stID, btID string
		)
		if err := rows.Scan(&e.EnrollmentNo, &stID, &btID, &e.BatchName, &e.BatchCode, &e.Year, &e.ProgramName); err != nil {
			return nil, err
		}
		if e.StudentID, err = uuid.Parse(stID); err != nil {
			return nil, err
		}
		if e.BatchID, err = uuid.Parse(btID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanStudent(row *sql.Row) (model.Student, error) {
	st, err := scanStudentRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, apierr.NotFound("student", "student_id")
	}
	return st, err
}

func scanStudentRows(row rowScanner) (model.Student, error) {
	var (
		st    model.Student
		id    string
		extra sql.NullString
	)
	err := row.Scan(&id, &st.FirstName, &st.MiddleName, &st.LastName, &st.DateOfBirth,
		&st.Gender, &st.Address, &st.Email, &st.ContactNo, &st.AadhaarNo, &st.ApaarID, &extra)
	if err != nil {
		return model.Student{}, err
	}
	if st.ID, err = uuid.Parse(id); err != nil {
		return model.Student{}, err
	}
	if extra.Valid {
		st.ExtraInfo = []byte(extra.String)
	}
	return st, nil
}

// nullableJSON turns an empty document into SQL NULL so COALESCE patches
// behave.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func newEnrollmentNo() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ENR-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
