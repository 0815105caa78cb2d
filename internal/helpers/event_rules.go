package helpers

import (
	"encoding/json"
	"time"

	"github.com/farellandr/eventpass/internal/models"
)

// Date updates within this window are treated as unchanged so that clients
// re-submitting formatted timestamps don't trip the forbidden-field check.
const DateTolerance = 60 * time.Second

type VariantPatch struct {
	VariantName string `json:"variant_name" binding:"required"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Stock       int    `json:"stock" binding:"min=0"`
}

// EventPatch is a partial event update. Nil pointers mean "not submitted".
type EventPatch struct {
	Title                *string            `json:"title"`
	Description          *string            `json:"description"`
	Location             *string            `json:"location"`
	EventType            *string            `json:"event_type"`
	Eligibility          *string            `json:"eligibility"`
	RegistrationDeadline *time.Time         `json:"registration_deadline"`
	StartDate            *time.Time         `json:"start_date"`
	EndDate              *time.Time         `json:"end_date"`
	RegistrationLimit    *int               `json:"registration_limit"`
	RegistrationFee      *int               `json:"registration_fee"`
	EventTags            *[]string          `json:"event_tags"`
	MerchandiseVariants  *[]VariantPatch    `json:"merchandise_variants"`
	PurchaseLimit        *int               `json:"purchase_limit"`
	FormSchema           *models.FormSchema `json:"form_schema"`
	Status               *string            `json:"status"`
}

// ForbiddenFieldChanges returns the names of fields a published event locks
// that the patch actually changes. Dates compare within DateTolerance and
// the fee compares numerically, so formatting noise does not count as a
// change.
func ForbiddenFieldChanges(event *models.Event, patch *EventPatch) []string {
	var changed []string

	if patch.Title != nil && *patch.Title != event.Title {
		changed = append(changed, "title")
	}
	if patch.EventType != nil && *patch.EventType != event.EventType {
		changed = append(changed, "event_type")
	}
	if patch.StartDate != nil && !datesMatch(event.StartDate, *patch.StartDate) {
		changed = append(changed, "start_date")
	}
	if patch.EndDate != nil && !datesMatch(event.EndDate, *patch.EndDate) {
		changed = append(changed, "end_date")
	}
	if patch.RegistrationFee != nil && *patch.RegistrationFee != event.RegistrationFee {
		changed = append(changed, "registration_fee")
	}

	return changed
}

func datesMatch(a, b time.Time) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= DateTolerance
}

// FormSchemaChanged reports whether the patch submits a form schema that
// differs from the stored one. Compared structurally, not by pointer.
func FormSchemaChanged(event *models.Event, patch *EventPatch) bool {
	if patch.FormSchema == nil {
		return false
	}
	oldJSON, _ := json.Marshal(event.FormSchema)
	newJSON, _ := json.Marshal(*patch.FormSchema)
	return string(oldJSON) != string(newJSON)
}

// ApplyDraftPatch applies every submitted field. Draft events have no locked
// fields. Merchandise variants are replaced by the caller since that touches
// separate rows.
func ApplyDraftPatch(event *models.Event, patch *EventPatch) {
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.EventType != nil {
		event.EventType = *patch.EventType
	}
	if patch.StartDate != nil {
		event.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		event.EndDate = *patch.EndDate
	}
	if patch.RegistrationFee != nil {
		event.RegistrationFee = *patch.RegistrationFee
	}
	if patch.Eligibility != nil {
		event.Eligibility = *patch.Eligibility
	}
	ApplyPublishedPatch(event, patch)
}

// ApplyPublishedPatch applies only the fields that stay editable after
// publication.
func ApplyPublishedPatch(event *models.Event, patch *EventPatch) {
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.RegistrationDeadline != nil {
		event.RegistrationDeadline = *patch.RegistrationDeadline
	}
	if patch.RegistrationLimit != nil {
		event.RegistrationLimit = *patch.RegistrationLimit
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.EventTags != nil {
		event.EventTags = models.StringList(*patch.EventTags)
	}
	if patch.PurchaseLimit != nil {
		event.PurchaseLimit = *patch.PurchaseLimit
	}
	if patch.FormSchema != nil {
		event.FormSchema = *patch.FormSchema
	}
}
