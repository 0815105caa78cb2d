package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/farellandr/eventpass/internal/helpers"
	"github.com/farellandr/eventpass/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MarkAttendanceRequest struct {
	TicketID string `json:"ticket_id"`
	QRData   string `json:"qr_data"`
	Method   string `json:"method"`
	Reason   string `json:"reason"`
}

// MarkAttendance flips a registration to attended exactly once. The write is
// a compare-and-set on the attended flag so two scanners racing on the same
// ticket cannot double-count. There is no un-attend.
func MarkAttendance(c *gin.Context) {
	var req MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid input. Please check your fields.")
		return
	}

	if req.Method == "" {
		req.Method = models.AttendanceQRScan
	}
	if req.Method != models.AttendanceQRScan && req.Method != models.AttendanceManualOverride {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Unknown attendance method.")
		return
	}

	ticketID := req.TicketID
	if req.QRData != "" {
		parsed, err := helpers.ParseQRPayload(req.QRData)
		if err != nil {
			helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidTicket, "Invalid ticket QR code.")
			return
		}
		ticketID = parsed
	}
	if ticketID == "" {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Ticket ID is required.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}
	actorID := userID.(uuid.UUID)
	role, _ := c.Get("role")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var registration models.Registration
	err := gormDB.Preload("Event").Preload("Participant").
		Where("ticket_id = ?", ticketID).First(&registration).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithReason(c, http.StatusNotFound, helpers.ReasonInvalidTicket, "Invalid ticket ID.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving registration.")
		return
	}

	if registration.Event.OrganizerID != actorID && role != models.RoleAdmin {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized for this event.")
		return
	}

	if registration.Attended {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonAlreadyAttended, "Participant already marked attended.")
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"attended":             true,
		"attendance_timestamp": now,
		"attendance_method":    req.Method,
	}
	if req.Method == models.AttendanceManualOverride {
		reason := req.Reason
		if reason == "" {
			reason = "Verified manually by organizer"
		}
		updates["attendance_actor_id"] = actorID
		updates["attendance_reason"] = reason
	}

	result := gormDB.Model(&models.Registration{}).
		Where("id = ? AND attended = ?", registration.ID, false).
		Updates(updates)
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to mark attendance.")
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonAlreadyAttended, "Participant already marked attended.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Attendance marked successfully.",
		"participant":    fmt.Sprintf("%s %s", registration.Participant.FirstName, registration.Participant.LastName),
		"participant_id": registration.ParticipantID,
		"event_id":       registration.EventID,
		"event":          registration.Event.Title,
	})
}
