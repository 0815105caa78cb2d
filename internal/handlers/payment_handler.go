package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/farellandr/eventpass/internal/helpers"
	"github.com/farellandr/eventpass/internal/middleware"
	"github.com/farellandr/eventpass/internal/models"
	"github.com/farellandr/eventpass/internal/notifier"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errAlreadyProcessed = errors.New("payment already processed")

type ResolvePaymentRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

// ResolvePayment settles a pending registration exactly once. Approval of a
// merchandise registration also decrements the variant's stock, but only
// when enough stock remains: an insufficient stock level leaves the counter
// untouched while the payment still becomes successful. Admission does not
// reserve stock, so approvals can outrun it.
func ResolvePayment(c *gin.Context) {
	registrationID := c.Param("id")

	var req ResolvePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Status must be approved or rejected.")
		return
	}

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

	var registration models.Registration
	err := gormDB.Preload("Event").Preload("Participant").
		Where("id = ?", registrationID).First(&registration).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithReason(c, http.StatusNotFound, helpers.ReasonNotFound, "Registration not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving registration.")
		return
	}

	if registration.Event.OrganizerID != userID.(uuid.UUID) && role != models.RoleAdmin {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized for this event.")
		return
	}

	if registration.PaymentStatus != models.PaymentPending {
		helpers.RespondWithReason(c, http.StatusConflict, helpers.ReasonAlreadyProcessed, "Payment already processed.")
		return
	}

	terminal := models.PaymentRejected
	if req.Status == "approved" {
		terminal = models.PaymentSuccessful
	}

	err = gormDB.Transaction(func(tx *gorm.DB) error {
		// CAS pending -> terminal. A concurrent resolution loses here
		// instead of double-applying.
		result := tx.Model(&models.Registration{}).
			Where("id = ? AND payment_status = ?", registration.ID, models.PaymentPending).
			Update("payment_status", terminal)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errAlreadyProcessed
		}

		if terminal == models.PaymentSuccessful && registration.Event.EventType == models.EventTypeMerchandise {
			// Atomic read-check-decrement. Zero rows means unknown variant
			// or insufficient stock; both are deliberately non-fatal.
			return tx.Model(&models.MerchandiseVariant{}).
				Where("event_id = ? AND variant_name = ? AND stock >= ?",
					registration.EventID, registration.MerchandiseVariant, registration.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", registration.Quantity)).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyProcessed) {
			helpers.RespondWithReason(c, http.StatusConflict, helpers.ReasonAlreadyProcessed, "Payment already processed.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to resolve payment.")
		return
	}

	registration.PaymentStatus = terminal

	// A rejected proof has no further use; remove the file, keep the path
	// on the record. Best effort only.
	if terminal == models.PaymentRejected && registration.PaymentProofPath != nil {
		_ = helpers.DeleteFile(*registration.PaymentProofPath)
	}

	sendPaymentNotice(c, &registration)

	c.JSON(http.StatusOK, gin.H{
		"message":      fmt.Sprintf("Payment %s.", req.Status),
		"registration": registration,
	})
}

func sendPaymentNotice(c *gin.Context, registration *models.Registration) {
	dispatcher := middleware.GetNotifier(c)
	if dispatcher == nil || registration.Participant == nil || registration.Event == nil {
		return
	}
	email := registration.Participant.Email
	title := registration.Event.Title

	if registration.PaymentStatus == models.PaymentRejected {
		dispatcher.DispatchEmail(email,
			fmt.Sprintf("Payment Rejected: %s", title),
			"Your payment proof was rejected. Please contact the organizer.")
		return
	}

	body := fmt.Sprintf(
		"Hello,\nYour payment for %s has been APPROVED!\n\n"+
			"Event: %s\nTicket ID: %s\n\n"+
			"Please show the attached QR code at the venue for entry/pickup.",
		title, title, registration.TicketID,
	)
	var attachments []notifier.Attachment
	if qrPNG, err := helpers.EncodeTicketQR(registration.TicketID); err == nil {
		attachments = append(attachments, notifier.Attachment{Filename: "ticket-qr.png", Content: qrPNG})
	}
	dispatcher.DispatchEmail(email, fmt.Sprintf("Payment Approved: %s", title), body, attachments...)
}

// GetPendingPayments lists pending registrations across the calling
// organizer's events.
func GetPendingPayments(c *gin.Context) {
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

	var registrations []models.Registration
	if len(eventIDs) > 0 {
		err := gormDB.Preload("Event").Preload("Participant").
			Where("event_id IN ? AND payment_status = ?", eventIDs, models.PaymentPending).
			Order("created_at ASC").
			Find(&registrations).Error
		if err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving pending payments.")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"registrations": registrations})
}
