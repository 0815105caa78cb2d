package handlers

import (
	"net/http"
	"time"

	"github.com/farellandr/eventpass/internal/helpers"
	"github.com/farellandr/eventpass/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetOrganizerEvents lists every event owned by the caller, drafts included.
func GetOrganizerEvents(c *gin.Context) {
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

	var events []models.Event
	if err := gormDB.Preload("Variants").
		Where("organizer_id = ?", userID).
		Order("created_at DESC").
		Find(&events).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	now := time.Now()
	type eventView struct {
		models.Event
		EffectiveStatus string `json:"effective_status"`
	}
	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, eventView{Event: event, EffectiveStatus: event.EffectiveStatus(now)})
	}

	c.JSON(http.StatusOK, gin.H{"events": views})
}

// GetAllRegistrations returns the caller's registrations grouped per event.
func GetAllRegistrations(c *gin.Context) {
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

	var events []models.Event
	if err := gormDB.Where("organizer_id = ?", userID).Find(&events).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	type eventRegistrations struct {
		EventID       uuid.UUID             `json:"event_id"`
		Title         string                `json:"title"`
		Registrations []models.Registration `json:"registrations"`
	}

	grouped := make([]eventRegistrations, 0, len(events))
	for _, event := range events {
		var registrations []models.Registration
		if err := gormDB.Preload("Participant").
			Where("event_id = ?", event.ID).
			Order("created_at ASC").
			Find(&registrations).Error; err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving registrations.")
			return
		}
		grouped = append(grouped, eventRegistrations{
			EventID:       event.ID,
			Title:         event.Title,
			Registrations: registrations,
		})
	}

	c.JSON(http.StatusOK, gin.H{"events": grouped})
}

// EventParticipants lists registrations for one event the caller owns.
func EventParticipants(c *gin.Context) {
	eventID := c.Param("id")

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}
	role, _ := c.Get("role")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithReason(c, http.StatusNotFound, helpers.ReasonNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	if event.OrganizerID != userID.(uuid.UUID) && role != models.RoleAdmin {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized for this event.")
		return
	}

	var registrations []models.Registration
	if err := gormDB.Preload("Participant").
		Where("event_id = ?", event.ID).
		Order("created_at ASC").
		Find(&registrations).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving registrations.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event_id":      event.ID,
		"title":         event.Title,
		"registrations": registrations,
	})
}

// GetOrganizerStats aggregates the caller's events into dashboard totals.
// Revenue only counts successful payments.
func GetOrganizerStats(c *gin.Context) {
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

	var eventIDs []uuid.UUID
	if err := gormDB.Model(&models.Event{}).
		Where("organizer_id = ?", userID).
		Pluck("id", &eventIDs).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	stats := gin.H{
		"total_events":        len(eventIDs),
		"total_registrations": 0,
		"total_revenue":       0,
		"total_attendance":    0,
	}
	if len(eventIDs) == 0 {
		c.JSON(http.StatusOK, gin.H{"stats": stats})
		return
	}

	var totalRegistrations int64
	if err := gormDB.Model(&models.Registration{}).
		Where("event_id IN ?", eventIDs).
		Where("payment_status <> ?", models.PaymentRejected).
		Count(&totalRegistrations).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error counting registrations.")
		return
	}

	var totalRevenue int64
	err := gormDB.Model(&models.Registration{}).
		Select("COALESCE(SUM(registrations.quantity * events.registration_fee), 0)").
		Joins("JOIN events ON events.id = registrations.event_id").
		Where("registrations.event_id IN ?", eventIDs).
		Where("registrations.payment_status = ?", models.PaymentSuccessful).
		Scan(&totalRevenue).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error computing revenue.")
		return
	}

	var totalAttendance int64
	if err := gormDB.Model(&models.Registration{}).
		Where("event_id IN ?", eventIDs).
		Where("attended = ?", true).
		Count(&totalAttendance).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error counting attendance.")
		return
	}

	stats["total_registrations"] = totalRegistrations
	stats["total_revenue"] = totalRevenue
	stats["total_attendance"] = totalAttendance

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
