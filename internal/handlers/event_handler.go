package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/farellandr/eventpass/internal/helpers"
	"github.com/farellandr/eventpass/internal/middleware"
	"github.com/farellandr/eventpass/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateEventRequest struct {
	Title                string                 `json:"title" binding:"required"`
	Description          string                 `json:"description" binding:"required"`
	Location             string                 `json:"location"`
	EventType            string                 `json:"event_type" binding:"required,oneof=normal merchandise"`
	Eligibility          string                 `json:"eligibility"`
	RegistrationDeadline time.Time              `json:"registration_deadline" binding:"required"`
	StartDate            time.Time              `json:"start_date" binding:"required"`
	EndDate              time.Time              `json:"end_date" binding:"required"`
	RegistrationLimit    int                    `json:"registration_limit" binding:"min=0"`
	RegistrationFee      int                    `json:"registration_fee" binding:"min=0"`
	EventTags            []string               `json:"event_tags"`
	MerchandiseVariants  []helpers.VariantPatch `json:"merchandise_variants"`
	PurchaseLimit        int                    `json:"purchase_limit"`
	FormSchema           models.FormSchema      `json:"form_schema"`
}

var validFormFieldTypes = map[string]bool{
	"text":     true,
	"number":   true,
	"dropdown": true,
	"checkbox": true,
	"file":     true,
}

func validateFormSchema(schema models.FormSchema) error {
	for _, field := range schema {
		if strings.TrimSpace(field.Label) == "" {
			return fmt.Errorf("form fields need a label")
		}
		if !validFormFieldTypes[field.Type] {
			return fmt.Errorf("unknown form field type %q", field.Type)
		}
	}
	return nil
}

// CreateEvent creates a new draft event owned by the calling organizer.
func CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid input. Please check your fields.")
		return
	}

	if req.EndDate.Before(req.StartDate) {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "End date must not be before start date.")
		return
	}
	if err := validateFormSchema(req.FormSchema); err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, err.Error())
		return
	}
	for _, v := range req.MerchandiseVariants {
		if v.Stock < 0 {
			helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Variant stock cannot be negative.")
			return
		}
	}
	if req.PurchaseLimit < 1 {
		req.PurchaseLimit = 1
	}
	if req.Location == "" {
		req.Location = "TBD"
	}
	if req.Eligibility == "" {
		req.Eligibility = models.EligibilityOpen
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	event := models.Event{
		ID:                   uuid.New(),
		Title:                req.Title,
		Description:          req.Description,
		Location:             req.Location,
		EventType:            req.EventType,
		Eligibility:          req.Eligibility,
		RegistrationDeadline: req.RegistrationDeadline,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		RegistrationLimit:    req.RegistrationLimit,
		RegistrationFee:      req.RegistrationFee,
		EventTags:            models.StringList(req.EventTags),
		FormSchema:           req.FormSchema,
		PurchaseLimit:        req.PurchaseLimit,
		Status:               models.StatusDraft,
		OrganizerID:          userID.(uuid.UUID),
	}
	for _, v := range req.MerchandiseVariants {
		event.Variants = append(event.Variants, models.MerchandiseVariant{
			VariantName: v.VariantName,
			Color:       v.Color,
			Size:        v.Size,
			Stock:       v.Stock,
		})
	}

	if err := gormDB.Create(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create event.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Event created successfully.",
		"event":   event,
	})
}

// UpdateEvent applies a partial update, enforcing the per-status edit rules:
// drafts accept everything, published events lock identity/pricing/schedule
// fields, ongoing and closed events are read-only. The form schema
// additionally locks the moment the first registration exists.
func UpdateEvent(c *gin.Context) {
	eventID := c.Param("id")
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var patch helpers.EventPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Where("id = ?", eventID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithReason(c, http.StatusNotFound, helpers.ReasonNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return
	}

	if event.OrganizerID != userID.(uuid.UUID) {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized.")
		return
	}

	var registrationCount int64
	if err := gormDB.Model(&models.Registration{}).Where("event_id = ?", event.ID).Count(&registrationCount).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error checking registrations.")
		return
	}
	if registrationCount > 0 && helpers.FormSchemaChanged(&event, &patch) {
		helpers.RespondWithReason(c, http.StatusConflict, helpers.ReasonFormLocked,
			"Cannot edit the registration form after the first registration is received.")
		return
	}

	if patch.FormSchema != nil {
		if err := validateFormSchema(*patch.FormSchema); err != nil {
			helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, err.Error())
			return
		}
	}

	publishing := false

	switch event.EffectiveStatus(time.Now()) {
	case models.StatusDraft:
		if patch.Status != nil {
			if *patch.Status != models.StatusPublished {
				helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput,
					"Drafts can only transition to published.")
				return
			}
			publishing = true
		}
		helpers.ApplyDraftPatch(&event, &patch)

	case models.StatusPublished:
		if patch.Status != nil && *patch.Status != event.Status {
			helpers.RespondWithReason(c, http.StatusConflict, helpers.ReasonAlreadyPublished,
				"Event is already published.")
			return
		}
		if forbidden := helpers.ForbiddenFieldChanges(&event, &patch); len(forbidden) > 0 {
			helpers.RespondWithReason(c, http.StatusConflict, helpers.ReasonForbiddenFields,
				fmt.Sprintf("Cannot edit %s for a published event.", strings.Join(forbidden, ", ")))
			return
		}
		helpers.ApplyPublishedPatch(&event, &patch)

	default: // ongoing, closed
		helpers.RespondWithReason(c, http.StatusConflict, helpers.ReasonNotEditable,
			"Ongoing or closed events cannot be edited.")
		return
	}

	if event.EndDate.Before(event.StartDate) {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "End date must not be before start date.")
		return
	}
	if event.RegistrationLimit < 0 || event.PurchaseLimit < 1 {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid limit values.")
		return
	}

	if publishing {
		event.Status = models.StatusPublished
	}

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if patch.MerchandiseVariants != nil {
			if err := replaceVariants(tx, event.ID, *patch.MerchandiseVariants); err != nil {
				return err
			}
		}
		return tx.Omit("Organizer", "Variants", "RegistrationCount").Save(&event).Error
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update event.")
		return
	}

	if publishing {
		announcePublish(c, gormDB, &event)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event updated successfully.",
		"event":   event,
	})
}

// PublishEvent performs the one-time draft to published transition.
func PublishEvent(c *gin.Context) {
	eventID := c.Param("id")
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Where("id = ?", eventID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithReason(c, http.StatusNotFound, helpers.ReasonNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return
	}

	if event.OrganizerID != userID.(uuid.UUID) {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized.")
		return
	}

	if event.Status != models.StatusDraft {
		helpers.RespondWithReason(c, http.StatusConflict, helpers.ReasonAlreadyPublished,
			"Event is already published or closed.")
		return
	}

	event.Status = models.StatusPublished
	if err := gormDB.Omit("Organizer", "Variants", "RegistrationCount").Save(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to publish event.")
		return
	}

	announcePublish(c, gormDB, &event)

	c.JSON(http.StatusOK, gin.H{
		"message": "Event published successfully.",
		"event":   event,
	})
}

// announcePublish fires the organizer's discord webhook, if configured.
// Delivery failures never affect the publish itself.
func announcePublish(c *gin.Context, gormDB *gorm.DB, event *models.Event) {
	dispatcher := middleware.GetNotifier(c)
	if dispatcher == nil {
		return
	}

	var organizer models.Participant
	if err := gormDB.Where("id = ?", event.OrganizerID).First(&organizer).Error; err != nil {
		return
	}
	if organizer.DiscordWebhook == "" {
		return
	}

	content := fmt.Sprintf("**New Event Published!**\n**%s**\n%s", event.Title, event.Description)
	dispatcher.DispatchWebhook(organizer.DiscordWebhook, content)
}

func replaceVariants(tx *gorm.DB, eventID uuid.UUID, patches []helpers.VariantPatch) error {
	if err := tx.Where("event_id = ?", eventID).Delete(&models.MerchandiseVariant{}).Error; err != nil {
		return err
	}
	for _, p := range patches {
		variant := models.MerchandiseVariant{
			EventID:     eventID,
			VariantName: p.VariantName,
			Color:       p.Color,
			Size:        p.Size,
			Stock:       p.Stock,
		}
		if err := tx.Create(&variant).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetEvent returns a single event. Drafts are only visible to their
// organizer or an admin.
func GetEvent(c *gin.Context) {
	eventID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Preload("Variants").Preload("Organizer").Where("id = ?", eventID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithReason(c, http.StatusNotFound, helpers.ReasonNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	if event.Status == models.StatusDraft {
		userID, authed := c.Get("user_id")
		role, _ := c.Get("role")
		isOwner := authed && event.OrganizerID == userID.(uuid.UUID)
		isAdmin := role == models.RoleAdmin
		if !isOwner && !isAdmin {
			helpers.RespondWithReason(c, http.StatusForbidden, helpers.ReasonNotPublished, "This event is not yet published.")
			return
		}
	}

	// Pending registrations still count toward the visible total.
	var registrationCount int64
	gormDB.Model(&models.Registration{}).
		Where("event_id = ? AND payment_status <> ?", event.ID, models.PaymentRejected).
		Count(&registrationCount)

	c.JSON(http.StatusOK, gin.H{
		"event":              event,
		"registration_count": registrationCount,
	})
}

// ListEvents returns published (non-draft) events, newest first.
func ListEvents(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")

	pageNum, err := helpers.StringToInt(page)
	if err != nil || pageNum < 1 {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid page number.")
		return
	}
	limitNum, err := helpers.StringToInt(limit)
	if err != nil || limitNum < 1 {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid limit.")
		return
	}

	query := gormDB.Model(&models.Event{}).Where("status <> ?", models.StatusDraft)

	if eventType := c.Query("event_type"); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var totalCount int64
	query.Count(&totalCount)

	var events []models.Event
	offset := (pageNum - 1) * limitNum
	err = query.Preload("Organizer").Preload("Variants").
		Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&events).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

// TrendingEvents returns the five events with the most registrations over
// the last 24 hours.
func TrendingEvents(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	oneDayAgo := time.Now().Add(-24 * time.Hour)

	type trendingRow struct {
		EventID uuid.UUID
		Total   int64
	}
	var rows []trendingRow
	err := gormDB.Model(&models.Registration{}).
		Select("event_id, COUNT(*) as total").
		Where("created_at >= ?", oneDayAgo).
		Group("event_id").
		Order("total DESC").
		Limit(5).
		Scan(&rows).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving trending events.")
		return
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.EventID)
	}

	var events []models.Event
	if len(ids) > 0 {
		if err := gormDB.Preload("Organizer").
			Where("id IN ? AND status <> ?", ids, models.StatusDraft).
			Find(&events).Error; err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving trending events.")
			return
		}
	}

	// Keep the registration-count ordering.
	byID := make(map[uuid.UUID]models.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	sorted := make([]models.Event, 0, len(events))
	for _, row := range rows {
		if e, ok := byID[row.EventID]; ok {
			sorted = append(sorted, e)
		}
	}

	c.JSON(http.StatusOK, gin.H{"events": sorted})
}
