package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farellandr/eventpass/config"
	"github.com/farellandr/eventpass/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farellandr/eventpass/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestDB opens an in-memory database limited to one connection so that
// concurrent requests serialize the same way a single postgres row lock
// would.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateModels(db))

	for _, name := range []string{models.RoleParticipant, models.RoleOrganizer, models.RoleAdmin} {
		require.NoError(t, db.Create(&models.Role{Name: name}).Error)
	}

	return db
}

// authAs stands in for the JWT middleware: it injects the identity the
// handlers read off the context.
func authAs(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

// newTestRouter wires every handler route with the given identity. A nil
// userID registers the routes unauthenticated.
func newTestRouter(db *gorm.DB, userID uuid.UUID, role string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	if userID != uuid.Nil {
		r.Use(authAs(userID, role))
	}

	r.POST("/signup", Signup)
	r.POST("/login", Login)
	r.POST("/admin/organizers", CreateOrganizer)

	r.GET("/events", ListEvents)
	r.GET("/events/trending", TrendingEvents)
	r.GET("/events/:id", GetEvent)
	r.POST("/events", CreateEvent)
	r.PUT("/events/:id", UpdateEvent)
	r.POST("/events/:id/publish", PublishEvent)
	r.GET("/events/:id/participants", EventParticipants)

	r.POST("/registrations", RegisterForEvent)
	r.GET("/registrations/mine", GetMyRegistrations)

	r.GET("/organizer/events", GetOrganizerEvents)
	r.GET("/organizer/registrations", GetAllRegistrations)
	r.GET("/organizer/payments/pending", GetPendingPayments)
	r.GET("/organizer/stats", GetOrganizerStats)
	r.PUT("/organizer/payments/:id", ResolvePayment)
	r.POST("/organizer/attendance", MarkAttendance)

	return r
}

func createParticipant(t *testing.T, db *gorm.DB, email, roleName string) *models.Participant {
	t.Helper()

	var role models.Role
	require.NoError(t, db.Where("name = ?", roleName).First(&role).Error)

	participant := &models.Participant{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  "not-a-real-hash",
		RoleID:    role.ID,
	}
	require.NoError(t, db.Create(participant).Error)
	return participant
}

// testEvent returns a published normal event open for another week.
func testEvent(organizerID uuid.UUID) *models.Event {
	now := time.Now()
	return &models.Event{
		ID:                   uuid.New(),
		Title:                "Tech Talk",
		Description:          "An evening of talks.",
		Location:             "Auditorium",
		EventType:            models.EventTypeNormal,
		Eligibility:          models.EligibilityOpen,
		RegistrationDeadline: now.Add(7 * 24 * time.Hour),
		StartDate:            now.Add(8 * 24 * time.Hour),
		EndDate:              now.Add(9 * 24 * time.Hour),
		Status:               models.StatusPublished,
		OrganizerID:          organizerID,
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, r *gin.Engine, path string, fields map[string]string, fileField, filename string, fileContent []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(fileContent)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func reasonOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	body := decodeBody(t, w)
	reason, _ := body["reason"].(string)
	return reason
}
