package entity

import (
	"time"

	"github.com/google/uuid"
)

// Member is the payer record: the minimum the recovery engine needs to
// address a notification. Full member management lives outside this core.
type Member struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// NewMember creates a new member entity
func NewMember(firstName, lastName, email string) *Member {
	return &Member{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		CreatedAt: time.Now(),
	}
}

// FullName returns the display name used in notifications
func (m *Member) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// HasEmail returns true if the member can be reached by email
func (m *Member) HasEmail() bool {
	return m.Email != ""
}

// IsDeleted returns true if the member has been soft deleted
func (m *Member) IsDeleted() bool {
	return m.DeletedAt != nil
}
