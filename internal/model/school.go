package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// School is a top-level academic unit headed by a dean (a staff member).
type School struct {
	ID        uuid.UUID
	Name      string
	DeanID    uuid.UUID
	ExtraInfo json.RawMessage
}
