package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Parent is a guardian record; students link to parents through the
// `student_parents` association table.
type Parent struct {
	ID               uuid.UUID
	FathersName      string
	MothersName      string
	FathersEmail     string
	MothersEmail     string
	FathersContactNo string
	MothersContactNo string
	Address          string
	ExtraInfo        json.RawMessage
}
