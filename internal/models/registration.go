package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentPending    = "pending"
	PaymentSuccessful = "successful"
	PaymentRejected   = "rejected"

	AttendanceQRScan         = "QR Scan"
	AttendanceManualOverride = "Manual Override"
)

type Registration struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TicketID string    `gorm:"unique;not null" json:"ticket_id"`

	ParticipantID uuid.UUID    `gorm:"type:uuid;not null;index" json:"participant_id"`
	Participant   *Participant `gorm:"foreignKey:ParticipantID" json:"participant,omitempty"`
	EventID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"event_id"`
	Event         *Event       `gorm:"foreignKey:EventID" json:"event,omitempty"`

	Answers AnswerMap `gorm:"type:jsonb" json:"answers"`

	// Merchandise only.
	MerchandiseVariant string `json:"merchandise_variant,omitempty"`
	Quantity           int    `gorm:"not null;default:1" json:"quantity"`

	PaymentProofPath *string `json:"payment_proof_path,omitempty"`
	PaymentStatus    string  `gorm:"not null;default:'pending'" json:"payment_status"`

	Attended            bool       `gorm:"not null;default:false" json:"attended"`
	AttendanceTimestamp *time.Time `json:"attendance_timestamp,omitempty"`
	AttendanceMethod    *string    `json:"attendance_method,omitempty"`
	AttendanceActorID   *uuid.UUID `gorm:"type:uuid" json:"attendance_actor_id,omitempty"`
	AttendanceReason    *string    `json:"attendance_reason,omitempty"`

	// Unique across the table. For normal events it is participant:event so
	// the store itself rejects a second registration; merchandise rows embed
	// the registration id so repeat purchases stay legal.
	DedupKey string `gorm:"uniqueIndex;not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (reg *Registration) BeforeCreate(tx *gorm.DB) (err error) {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	if reg.DedupKey == "" {
		reg.DedupKey = NormalDedupKey(reg.ParticipantID, reg.EventID)
	}
	return
}

// NormalDedupKey builds the uniqueness key that limits a participant to one
// registration per normal event.
func NormalDedupKey(participantID, eventID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", participantID, eventID)
}

// MerchandiseDedupKey builds a per-registration key so merchandise events
// accept repeat registrations from the same participant.
func MerchandiseDedupKey(participantID, eventID, registrationID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", participantID, eventID, registrationID)
}
