package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farellandr/eventpass/internal/helpers"
	"github.com/farellandr/eventpass/internal/models"
)

func TestCreateEventDefaults(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)
	r := newTestRouter(db, organizer.ID, models.RoleOrganizer)

	now := time.Now()
	w := doJSON(t, r, http.MethodPost, "/events", map[string]interface{}{
		"title":                 "Hack Night",
		"description":           "Bring a laptop.",
		"event_type":            models.EventTypeNormal,
		"registration_deadline": now.Add(24 * time.Hour),
		"start_date":            now.Add(48 * time.Hour),
		"end_date":              now.Add(50 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var event models.Event
	require.NoError(t, db.Where("title = ?", "Hack Night").First(&event).Error)
	assert.Equal(t, models.StatusDraft, event.Status)
	assert.Equal(t, "TBD", event.Location)
	assert.Equal(t, models.EligibilityOpen, event.Eligibility)
	assert.Equal(t, 1, event.PurchaseLimit)
	assert.Equal(t, 0, event.RegistrationLimit)
	assert.Equal(t, organizer.ID, event.OrganizerID)
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)
	r := newTestRouter(db, organizer.ID, models.RoleOrganizer)

	now := time.Now()

	// End before start.
	w := doJSON(t, r, http.MethodPost, "/events", map[string]interface{}{
		"title":                 "Backwards",
		"description":           "x",
		"event_type":            models.EventTypeNormal,
		"registration_deadline": now.Add(24 * time.Hour),
		"start_date":            now.Add(48 * time.Hour),
		"end_date":              now.Add(24 * time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, helpers.ReasonInvalidInput, reasonOf(t, w))

	// Unknown form field type.
	w = doJSON(t, r, http.MethodPost, "/events", map[string]interface{}{
		"title":                 "Bad Form",
		"description":           "x",
		"event_type":            models.EventTypeNormal,
		"registration_deadline": now.Add(24 * time.Hour),
		"start_date":            now.Add(48 * time.Hour),
		"end_date":              now.Add(50 * time.Hour),
		"form_schema":           []map[string]interface{}{{"label": "Photo", "type": "hologram"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Negative variant stock.
	w = doJSON(t, r, http.MethodPost, "/events", map[string]interface{}{
		"title":                 "Merch",
		"description":           "x",
		"event_type":            models.EventTypeMerchandise,
		"registration_deadline": now.Add(24 * time.Hour),
		"start_date":            now.Add(48 * time.Hour),
		"end_date":              now.Add(50 * time.Hour),
		"merchandise_variants":  []map[string]interface{}{{"variant_name": "Tee", "stock": -1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateEventDraftAllowsEverything(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)
	r := newTestRouter(db, organizer.ID, models.RoleOrganizer)

	event := testEvent(organizer.ID)
	event.Status = models.StatusDraft
	require.NoError(t, db.Create(event).Error)

	w := doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"title":            "Renamed Talk",
		"registration_fee": 150,
		"start_date":       event.StartDate.Add(72 * time.Hour),
		"end_date":         event.EndDate.Add(72 * time.Hour),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.Event
	require.NoError(t, db.First(&updated, "id = ?", event.ID).Error)
	assert.Equal(t, "Renamed Talk", updated.Title)
	assert.Equal(t, 150, updated.RegistrationFee)
	assert.Equal(t, models.StatusDraft, updated.Status)
}

func TestUpdateEventPublishedLocksIdentityFields(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)
	r := newTestRouter(db, organizer.ID, models.RoleOrganizer)

	event := testEvent(organizer.ID)
	require.NoError(t, db.Create(event).Error)

	w := doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"title": "Totally Different",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, helpers.ReasonForbiddenFields, reasonOf(t, w))

	w = doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"registration_fee": event.RegistrationFee + 100,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Editable fields still go through.
	w = doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"description":           "Updated agenda.",
		"location":              "Main Hall",
		"registration_deadline": event.RegistrationDeadline.Add(24 * time.Hour),
		"registration_limit":    200,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.Event
	require.NoError(t, db.First(&updated, "id = ?", event.ID).Error)
	assert.Equal(t, "Updated agenda.", updated.Description)
	assert.Equal(t, "Main Hall", updated.Location)
	assert.Equal(t, 200, updated.RegistrationLimit)
}

func TestUpdateEventDateWithinTolerance(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)
	r := newTestRouter(db, organizer.ID, models.RoleOrganizer)

	event := testEvent(organizer.ID)
	require.NoError(t, db.Create(event).Error)

	// A 30 second nudge is formatting noise, not a schedule change.
	w := doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"start_date":  event.StartDate.Add(30 * time.Second),
		"description": "Same schedule, new blurb.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"start_date": event.StartDate.Add(5 * time.Minute),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, helpers.ReasonForbiddenFields, reasonOf(t, w))
}

func TestUpdateEventFormLocksAfterFirstRegistration(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)
	participant := createParticipant(t, db, "p1@mail.test", models.RoleParticipant)
	r := newTestRouter(db, organizer.ID, models.RoleOrganizer)

	event := testEvent(organizer.ID)
	event.FormSchema = models.FormSchema{{Label: "T-shirt size", Type: "dropdown", Options: []string{"S", "M", "L"}}}
	require.NoError(t, db.Create(event).Error)

	reg := &models.Registration{
		TicketID:      "TICKET-1-001",
		ParticipantID: participant.ID,
		EventID:       event.ID,
		PaymentStatus: models.PaymentSuccessful,
	}
	require.NoError(t, db.Create(reg).Error)

	w := doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"form_schema": []map[string]interface{}{{"label": "Meal preference", "type": "text"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, helpers.ReasonFormLocked, reasonOf(t, w))

	// Resubmitting the identical schema is not a change.
	w = doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"form_schema": event.FormSchema,
		"description": "Still the same form.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpdateEventOngoingAndClosedAreReadOnly(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)
	r := newTestRouter(db, organizer.ID, models.RoleOrganizer)

	now := time.Now()

	ongoing := testEvent(organizer.ID)
	ongoing.StartDate = now.Add(-1 * time.Hour)
	ongoing.EndDate = now.Add(1 * time.Hour)
	require.NoError(t, db.Create(ongoing).Error)

	closed := testEvent(organizer.ID)
	closed.StartDate = now.Add(-48 * time.Hour)
	closed.EndDate = now.Add(-24 * time.Hour)
	require.NoError(t, db.Create(closed).Error)

	for _, event := range []*models.Event{ongoing, closed} {
		w := doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
			"description": "Too late.",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, helpers.ReasonNotEditable, reasonOf(t, w))
	}
}

func TestUpdateEventRejectsForeignOrganizer(t *testing.T) {
	db := setupTestDB(t)
	owner := createParticipant(t, db, "owner@club.test", models.RoleOrganizer)
	other := createParticipant(t, db, "other@club.test", models.RoleOrganizer)

	event := testEvent(owner.ID)
	require.NoError(t, db.Create(event).Error)

	r := newTestRouter(db, other.ID, models.RoleOrganizer)
	w := doJSON(t, r, http.MethodPut, "/events/"+event.ID.String(), map[string]interface{}{
		"description": "Hijacked.",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublishEventHappensOnce(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)
	r := newTestRouter(db, organizer.ID, models.RoleOrganizer)

	event := testEvent(organizer.ID)
	event.Status = models.StatusDraft
	require.NoError(t, db.Create(event).Error)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/events/%s/publish", event.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var published models.Event
	require.NoError(t, db.First(&published, "id = ?", event.ID).Error)
	assert.Equal(t, models.StatusPublished, published.Status)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/events/%s/publish", event.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, helpers.ReasonAlreadyPublished, reasonOf(t, w))
}

func TestGetEventHidesDraftsFromOutsiders(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)

	event := testEvent(organizer.ID)
	event.Status = models.StatusDraft
	require.NoError(t, db.Create(event).Error)

	anon := newTestRouter(db, uuid.Nil, "")
	w := doJSON(t, anon, http.MethodGet, "/events/"+event.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, helpers.ReasonNotPublished, reasonOf(t, w))

	owner := newTestRouter(db, organizer.ID, models.RoleOrganizer)
	w = doJSON(t, owner, http.MethodGet, "/events/"+event.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	admin := newTestRouter(db, createParticipant(t, db, "admin@mail.test", models.RoleAdmin).ID, models.RoleAdmin)
	w = doJSON(t, admin, http.MethodGet, "/events/"+event.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListEventsExcludesDrafts(t *testing.T) {
	db := setupTestDB(t)
	organizer := createParticipant(t, db, "org@club.test", models.RoleOrganizer)

	published := testEvent(organizer.ID)
	require.NoError(t, db.Create(published).Error)

	draft := testEvent(organizer.ID)
	draft.Title = "Secret Plans"
	draft.Status = models.StatusDraft
	require.NoError(t, db.Create(draft).Error)

	r := newTestRouter(db, uuid.Nil, "")
	w := doJSON(t, r, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	events := body["events"].([]interface{})
	require.Len(t, events, 1)
	assert.EqualValues(t, 1, body["total"])
}
