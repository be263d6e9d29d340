package note

import "time"

// Status values for stored notes.
const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
)

// Note is a persisted piece of intelligence about an identity.
type Note struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identityId"`
	Text       string    `json:"text"`
	Importance int       `json:"importance"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Draft is a synthesized note before it is committed to storage.
type Draft struct {
	IdentityID string `json:"identityId"`
	Text       string `json:"text"`
	Importance int    `json:"importance"`
}
