package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Program is a degree program offered by a department.  DegreeType is kept
// as an opaque string; degree taxonomy is not interpreted by this service.
type Program struct {
	ID             uuid.UUID
	Name           string
	DegreeName     string
	DegreeType     string
	DepartmentID   uuid.UUID
	DepartmentName string
	ExtraInfo      json.RawMessage
}
