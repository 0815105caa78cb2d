package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Participant struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	RoleID    uuid.UUID `json:"-"`
	Role      Role      `json:"role"`

	// Organizer profile. Empty for plain participants.
	OrganizerName  string `json:"organizer_name,omitempty"`
	Category       string `json:"category,omitempty"`
	Description    string `json:"description,omitempty"`
	ContactEmail   string `json:"contact_email,omitempty"`
	DiscordWebhook string `json:"-"`
}

func (participant *Participant) BeforeCreate(tx *gorm.DB) (err error) {
	if participant.ID == uuid.Nil {
		participant.ID = uuid.New()
	}
	return
}
