package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/farellandr/eventpass/internal/helpers"
	"github.com/farellandr/eventpass/internal/middleware"
	"github.com/farellandr/eventpass/internal/models"
	"github.com/farellandr/eventpass/internal/notifier"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errLimitReached = errors.New("registration limit reached")

const ticketIDAttempts = 3

// RegisterForEvent runs the admission pipeline: deadline, capacity,
// eligibility and duplicate gates in order, then persists the registration
// with a fresh ticket id. The capacity check is a conditional counter
// increment inside the insert transaction, so concurrent admissions can
// never jointly exceed the limit. Confirmation email is fire-and-forget
// after commit.
func RegisterForEvent(c *gin.Context) {
	eventIDStr := c.PostForm("event_id")
	eventID, err := uuid.Parse(eventIDStr)
	if err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid event ID.")
		return
	}

	quantity := 1
	if q := c.PostForm("quantity"); q != "" {
		quantity, err = helpers.StringToInt(q)
		if err != nil || quantity < 1 {
			helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Quantity must be a positive integer.")
			return
		}
	}
	merchandiseVariant := c.PostForm("merchandise_variant")

	// Answers arrive as a JSON string because the request is multipart
	// (the payment proof rides along as a file part).
	answers := models.AnswerMap{}
	if raw := c.PostForm("answers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Answers must be valid JSON.")
			return
		}
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}
	participantID := userID.(uuid.UUID)

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var participant models.Participant
	if err := gormDB.Where("id = ?", participantID).First(&participant).Error; err != nil {
		helpers.RespondWithReason(c, http.StatusNotFound, helpers.ReasonNotFound, "Participant not found.")
		return
	}

	// Gate 1: the event must exist.
	var event models.Event
	if err := gormDB.Where("id = ?", eventID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithReason(c, http.StatusNotFound, helpers.ReasonNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	// Gate 2: only published events accept registrations.
	if event.Status != models.StatusPublished {
		helpers.RespondWithReason(c, http.StatusForbidden, helpers.ReasonNotPublished, "This event is not open for registration.")
		return
	}

	// Gate 3: deadline.
	if time.Now().After(event.RegistrationDeadline) {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonDeadlinePassed, "Registration deadline has passed.")
		return
	}

	// Gate 4: capacity. Advisory read so a full event reports limit_reached
	// before the later gates get a say; the conditional increment inside
	// admit is what actually enforces the limit under concurrency.
	if event.RegistrationLimit > 0 && event.RegistrationCount >= event.RegistrationLimit {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonLimitReached, "Registration limit reached.")
		return
	}

	// Gate 5: eligibility.
	if event.Eligibility == models.EligibilityIIITOnly {
		if !strings.HasSuffix(participant.Email, models.RestrictedEmailSuffix) {
			helpers.RespondWithReason(c, http.StatusForbidden, helpers.ReasonNotEligible, "This event is restricted to IIIT students only.")
			return
		}
	}

	// Gate 6: one registration per participant for normal events. This
	// pre-check gives the friendly error; the unique dedup constraint
	// closes the race.
	if event.EventType == models.EventTypeNormal {
		var existing models.Registration
		err := gormDB.Where("participant_id = ? AND event_id = ?", participantID, eventID).First(&existing).Error
		if err == nil {
			helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonAlreadyRegistered, "Already registered.")
			return
		}
		if err != gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Error checking existing registration.")
			return
		}
	}

	var proofPath *string
	if proofFile, err := c.FormFile("payment_proof"); err == nil {
		path, err := helpers.UploadFile(c, proofFile, "payment_proofs", helpers.PaymentProofUploadConfig)
		if err != nil {
			helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, err.Error())
			return
		}
		proofPath = &path
	}

	paymentStatus := models.PaymentSuccessful
	if proofPath != nil {
		paymentStatus = models.PaymentPending
	}

	var registration models.Registration
	for attempt := 0; ; attempt++ {
		registration = models.Registration{
			ID:                 uuid.New(),
			TicketID:           helpers.GenerateTicketID(),
			ParticipantID:      participantID,
			EventID:            eventID,
			Answers:            answers,
			MerchandiseVariant: merchandiseVariant,
			Quantity:           quantity,
			PaymentProofPath:   proofPath,
			PaymentStatus:      paymentStatus,
		}
		if event.EventType == models.EventTypeMerchandise {
			registration.DedupKey = models.MerchandiseDedupKey(participantID, eventID, registration.ID)
		} else {
			registration.DedupKey = models.NormalDedupKey(participantID, eventID)
		}

		err = admit(gormDB, &event, &registration)
		if err == nil {
			break
		}
		if errors.Is(err, errLimitReached) {
			helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonLimitReached, "Registration limit reached.")
			return
		}
		if helpers.IsDuplicateError(err) {
			// Either the dedup constraint fired (lost the duplicate race)
			// or two tickets collided. Only the latter is retryable.
			var existing models.Registration
			if gormDB.Where("dedup_key = ?", registration.DedupKey).First(&existing).Error == nil {
				helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonAlreadyRegistered, "Already registered.")
				return
			}
			if attempt < ticketIDAttempts-1 {
				continue
			}
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create registration.")
		return
	}

	sendAdmissionNotice(c, &event, &participant, &registration)

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Registration successful.",
		"ticket_id": registration.TicketID,
	})
}

// admit performs the serialized capacity check and the insert in one
// transaction. A naive count-then-insert would let concurrent requests
// jointly exceed the limit; the conditional UPDATE makes the check and the
// reservation a single atomic statement.
func admit(gormDB *gorm.DB, event *models.Event, registration *models.Registration) error {
	return gormDB.Transaction(func(tx *gorm.DB) error {
		counter := tx.Model(&models.Event{})
		if event.RegistrationLimit > 0 {
			counter = counter.Where("id = ? AND registration_count < registration_limit", event.ID)
		} else {
			counter = counter.Where("id = ?", event.ID)
		}
		result := counter.UpdateColumn("registration_count", gorm.Expr("registration_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errLimitReached
		}

		return tx.Create(registration).Error
	})
}

func sendAdmissionNotice(c *gin.Context, event *models.Event, participant *models.Participant, registration *models.Registration) {
	dispatcher := middleware.GetNotifier(c)
	if dispatcher == nil {
		return
	}

	if registration.PaymentStatus == models.PaymentPending {
		body := fmt.Sprintf(
			"Hello,\nWe have received your registration and payment proof for %s.\n\n"+
				"Your registration is currently PENDING approval by the organizer.\n"+
				"Once approved, you will receive another email with your ticket and QR code.",
			event.Title,
		)
		dispatcher.DispatchEmail(participant.Email, fmt.Sprintf("Payment Verification Pending: %s", event.Title), body)
		return
	}

	body := fmt.Sprintf(
		"Hello,\nYou have successfully registered for %s.\n\n"+
			"Event: %s\nDate: %s\nTicket ID: %s\n\n"+
			"Please show the attached QR code at the venue for entry.",
		event.Title, event.Title, event.StartDate.Format(time.RFC1123), registration.TicketID,
	)

	var attachments []notifier.Attachment
	if qrPNG, err := helpers.EncodeTicketQR(registration.TicketID); err == nil {
		attachments = append(attachments, notifier.Attachment{Filename: "ticket-qr.png", Content: qrPNG})
	}
	dispatcher.DispatchEmail(participant.Email,
		fmt.Sprintf("Registration Confirmation: %s", event.Title), body, attachments...)
}

// GetMyRegistrations lists the calling participant's registrations, newest
// first.
func GetMyRegistrations(c *gin.Context) {
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

	var registrations []models.Registration
	err := gormDB.Preload("Event").Preload("Event.Organizer").
		Where("participant_id = ?", userID).
		Order("created_at DESC").
		Find(&registrations).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving registrations.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"registrations": registrations})
}
