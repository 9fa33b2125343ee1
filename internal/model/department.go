package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Department belongs to a school and is headed by a staff member.
type Department struct {
	ID        uuid.UUID
	Name      string
	SchoolID  uuid.UUID
	HeadID    uuid.UUID
	ExtraInfo json.RawMessage
}
