package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/farellandr/eventpass/internal/helpers"
	"github.com/farellandr/eventpass/internal/models"
)

type SignupRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateOrganizerRequest struct {
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	OrganizerName  string `json:"organizer_name" binding:"required"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	ContactEmail   string `json:"contact_email"`
	DiscordWebhook string `json:"discord_webhook"`
}

// Signup registers a new participant account. Organizer accounts are only
// created by an admin through CreateOrganizer.
func Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var role models.Role
	if err := gormDB.Where("name = ?", models.RoleParticipant).First(&role).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Participant role not seeded.")
		return
	}

	var existing models.Participant
	if result := gormDB.Where("email = ?", req.Email).First(&existing); result.Error == nil {
		helpers.RespondWithError(c, http.StatusConflict, "User already exists.")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to hash the password.")
		return
	}

	participant := models.Participant{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  string(hashedPassword),
		RoleID:    role.ID,
	}

	if err := gormDB.Create(&participant).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create user.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully."})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var participant models.Participant
	if err := gormDB.Preload("Role").Where("email = ?", req.Email).First(&participant).Error; err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(participant.Password), []byte(req.Password)); err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		helpers.RespondWithError(c, http.StatusInternalServerError, "JWT_SECRET not configured.")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": participant.ID,
		"role":    participant.Role.Name,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenString,
		"user": gin.H{
			"id":    participant.ID,
			"email": participant.Email,
			"role":  participant.Role.Name,
		},
	})
}

// CreateOrganizer lets an admin provision an organizer account with its
// public profile and optional publish webhook.
func CreateOrganizer(c *gin.Context) {
	var req CreateOrganizerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithReason(c, http.StatusBadRequest, helpers.ReasonInvalidInput, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var role models.Role
	if err := gormDB.Where("name = ?", models.RoleOrganizer).First(&role).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Organizer role not seeded.")
		return
	}

	var existing models.Participant
	if result := gormDB.Where("email = ?", req.Email).First(&existing); result.Error == nil {
		helpers.RespondWithError(c, http.StatusConflict, "User already exists.")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to hash the password.")
		return
	}

	organizer := models.Participant{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Password:       string(hashedPassword),
		RoleID:         role.ID,
		OrganizerName:  req.OrganizerName,
		Category:       req.Category,
		Description:    req.Description,
		ContactEmail:   req.ContactEmail,
		DiscordWebhook: req.DiscordWebhook,
	}

	if err := gormDB.Create(&organizer).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create organizer.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Organizer created successfully.",
		"organizer_id": organizer.ID,
	})
}
