package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventTypeNormal      = "normal"
	EventTypeMerchandise = "merchandise"

	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusOngoing   = "ongoing"
	StatusClosed    = "closed"

	EligibilityOpen     = "Open to all"
	EligibilityIIITOnly = "IIIT Only"

	// Email domain suffix required when eligibility is IIIT Only.
	RestrictedEmailSuffix = "iiit.ac.in"
)

type Event struct {
	ID                   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Title                string    `gorm:"not null" json:"title"`
	Description          string    `gorm:"not null" json:"description"`
	Location             string    `gorm:"not null;default:'TBD'" json:"location"`
	EventType            string    `gorm:"not null" json:"event_type"`
	Eligibility          string    `gorm:"not null;default:'Open to all'" json:"eligibility"`
	RegistrationDeadline time.Time `gorm:"not null" json:"registration_deadline"`
	StartDate            time.Time `gorm:"not null" json:"start_date"`
	EndDate              time.Time `gorm:"not null" json:"end_date"`

	// 0 means unlimited. RegistrationCount is only ever changed through a
	// conditional UPDATE inside the admission transaction.
	RegistrationLimit int `gorm:"not null;default:0" json:"registration_limit"`
	RegistrationCount int `gorm:"not null;default:0" json:"registration_count"`
	RegistrationFee   int `gorm:"not null;default:0" json:"registration_fee"`

	EventTags  StringList `gorm:"type:jsonb" json:"event_tags"`
	FormSchema FormSchema `gorm:"type:jsonb" json:"form_schema"`

	PurchaseLimit int                  `gorm:"not null;default:1" json:"purchase_limit"`
	Variants      []MerchandiseVariant `gorm:"foreignKey:EventID" json:"merchandise_variants"`

	Status      string       `gorm:"not null;default:'draft'" json:"status"`
	OrganizerID uuid.UUID    `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer   *Participant `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}

// EffectiveStatus derives the time-based phase of a published event. The
// persisted Status column stays the single written source of truth; ongoing
// and closed are inferred from the event dates so the two never drift.
func (event *Event) EffectiveStatus(now time.Time) string {
	if event.Status != StatusPublished {
		return event.Status
	}
	switch {
	case now.After(event.EndDate):
		return StatusClosed
	case !now.Before(event.StartDate):
		return StatusOngoing
	default:
		return StatusPublished
	}
}

// MerchandiseVariant is one purchasable SKU of a merchandise event. Stock
// lives in its own row so approval can decrement it with a single
// conditional UPDATE.
type MerchandiseVariant struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	VariantName string    `gorm:"not null" json:"variant_name"`
	Color       string    `json:"color"`
	Size        string    `json:"size"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (variant *MerchandiseVariant) BeforeCreate(tx *gorm.DB) (err error) {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	return
}
