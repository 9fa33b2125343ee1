package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Staff shares its primary key with the backing user row.  Education,
// experience and activity are free-form JSON documents; IsPublic controls
// whether the member appears in the public listing.
type Staff struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	Email        string
	ContactNo    string
	Position     string
	Education    json.RawMessage
	Experience   json.RawMessage
	Activity     json.RawMessage
	OtherDetails json.RawMessage
	IsPublic     bool
	DepartmentID *uuid.UUID
}
