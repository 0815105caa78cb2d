package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/farellandr/eventpass/internal/models"
)

func TestSignupCreatesParticipant(t *testing.T) {
	db := setupTestDB(t)
	r := newTestRouter(db, uuid.Nil, "")

	w := doJSON(t, r, http.MethodPost, "/signup", map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@mail.test",
		"password":   "hunter22",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var participant models.Participant
	require.NoError(t, db.Preload("Role").Where("email = ?", "ada@mail.test").First(&participant).Error)
	assert.Equal(t, models.RoleParticipant, participant.Role.Name)
	assert.NotEqual(t, "hunter22", participant.Password)

	// Duplicate email is refused.
	w = doJSON(t, r, http.MethodPost, "/signup", map[string]string{
		"first_name": "Ada",
		"last_name":  "Again",
		"email":      "ada@mail.test",
		"password":   "hunter22",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	db := setupTestDB(t)
	r := newTestRouter(db, uuid.Nil, "")

	var role models.Role
	require.NoError(t, db.Where("name = ?", models.RoleParticipant).First(&role).Error)

	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Participant{
		FirstName: "Ada", LastName: "Lovelace",
		Email: "ada@mail.test", Password: string(hashed), RoleID: role.ID,
	}).Error)

	w := doJSON(t, r, http.MethodPost, "/login", map[string]string{
		"email":    "ada@mail.test",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)

	w = doJSON(t, r, http.MethodPost, "/login", map[string]string{
		"email":    "ada@mail.test",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrganizer(t *testing.T) {
	db := setupTestDB(t)
	admin := createParticipant(t, db, "admin@mail.test", models.RoleAdmin)
	r := newTestRouter(db, admin.ID, models.RoleAdmin)

	w := doJSON(t, r, http.MethodPost, "/admin/organizers", map[string]string{
		"first_name":      "Club",
		"last_name":       "Lead",
		"email":           "lead@club.test",
		"password":        "hunter22",
		"organizer_name":  "Robotics Club",
		"category":        "technical",
		"discord_webhook": "https://discord.test/webhook",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var organizer models.Participant
	require.NoError(t, db.Preload("Role").Where("email = ?", "lead@club.test").First(&organizer).Error)
	assert.Equal(t, models.RoleOrganizer, organizer.Role.Name)
	assert.Equal(t, "Robotics Club", organizer.OrganizerName)
	assert.Equal(t, "https://discord.test/webhook", organizer.DiscordWebhook)
}
