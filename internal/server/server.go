package server

import (
	"fmt"
	"os"

	"github.com/farellandr/eventpass/config"
	"github.com/farellandr/eventpass/internal/handlers"
	"github.com/farellandr/eventpass/internal/middleware"
	"github.com/farellandr/eventpass/internal/models"
	"github.com/farellandr/eventpass/internal/notifier"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	smtpCfg, err := config.LoadSMTPConfig()
	if err != nil {
		return fmt.Errorf("failed to load smtp config: %v", err)
	}

	var email notifier.EmailSender
	if smtpCfg.Host != "" {
		email = notifier.NewSMTPSender(smtpCfg.Host, smtpCfg.Port, smtpCfg.Username, smtpCfg.Password, smtpCfg.From)
	}
	dispatcher := notifier.New(email, notifier.NewWebhookSender(), log)
	defer dispatcher.Close()

	r := gin.Default()

	setupRoutes(r, db, dispatcher)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, dispatcher *notifier.Dispatcher) {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.NotifierMiddleware(dispatcher))

	public := r.Group("/v1")
	{
		public.POST("/signup", handlers.Signup)
		public.POST("/login", handlers.Login)

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", handlers.ListEvents)
			eventPublic.GET("/trending", handlers.TrendingEvents)
			eventPublic.GET("/:id", handlers.GetEvent)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		eventProtected := protected.Group("/events")
		eventProtected.Use(middleware.RequireRoles(models.RoleOrganizer, models.RoleAdmin))
		{
			eventProtected.POST("", handlers.CreateEvent)
			eventProtected.PUT("/:id", handlers.UpdateEvent)
			eventProtected.POST("/:id/publish", handlers.PublishEvent)
			eventProtected.GET("/:id/participants", handlers.EventParticipants)
		}

		organizer := protected.Group("/organizer")
		organizer.Use(middleware.RequireRoles(models.RoleOrganizer, models.RoleAdmin))
		{
			organizer.GET("/events", handlers.GetOrganizerEvents)
			organizer.GET("/registrations", handlers.GetAllRegistrations)
			organizer.GET("/payments/pending", handlers.GetPendingPayments)
			organizer.GET("/stats", handlers.GetOrganizerStats)
			organizer.PUT("/payments/:id", handlers.ResolvePayment)
			organizer.POST("/attendance", handlers.MarkAttendance)
		}

		protected.POST("/registrations", handlers.RegisterForEvent)
		protected.GET("/registrations/mine", handlers.GetMyRegistrations)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/organizers", handlers.CreateOrganizer)
		}
	}
}
