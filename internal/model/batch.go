package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Batch is a cohort of a program identified by a unique code and a year.
type Batch struct {
	ID          uuid.UUID
	Code        string
	ProgramID   uuid.UUID
	ProgramName string
	Name        string
	Year        int
	ExtraInfo   json.RawMessage
}

// EnrolledStudent is the batch-side view of an enrollment.
type EnrolledStudent struct {
	ID           uuid.UUID
	EnrollmentNo string
	FirstName    string
	MiddleName   string
	LastName     string
}
