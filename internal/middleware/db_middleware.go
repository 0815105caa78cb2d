package middleware

import (
	"github.com/farellandr/eventpass/internal/notifier"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}

func NotifierMiddleware(dispatcher *notifier.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("notifier", dispatcher)
		c.Next()
	}
}

func GetNotifier(c *gin.Context) *notifier.Dispatcher {
	d, exists := c.Get("notifier")
	if !exists {
		return nil
	}
	return d.(*notifier.Dispatcher)
}
