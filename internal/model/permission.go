package model

// Permission is a named capability in the `permissions` table.  The slug is
// the primary key; by convention it is colon-delimited
// (resource:action or resource:action:scope) but nothing in the
// authorization path parses it.
type Permission struct {
	Slug        string `json:"slug"`
	Description string `json:"description"`
}
