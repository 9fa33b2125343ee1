package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Student shares its primary key with the backing user row; profile fields
// live in `students`, email and contact number come from `users`.
type Student struct {
	ID          uuid.UUID
	FirstName   string
	MiddleName  string
	LastName    string
	DateOfBirth time.Time
	Gender      string
	Address     string
	Email       string
	ContactNo   string
	AadhaarNo   string
	ApaarID     string
	ExtraInfo   json.RawMessage
}

// Enrollment links a student to a batch.  The enrollment number is an
// opaque generated string; its format carries no academic meaning here.
type Enrollment struct {
	EnrollmentNo string
	StudentID    uuid.UUID
	BatchID      uuid.UUID
	BatchName    string
	BatchCode    string
	Year         int
	ProgramName  string
}
