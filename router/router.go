package router

import (
	"wawebhook/config"
	"wawebhook/controllers"
	"wawebhook/db"
	"wawebhook/logger"
	"wawebhook/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// Handlers groups the controllers the routes dispatch to.
type Handlers struct {
	Webhook *controllers.WebhookController
	Admin   *controllers.AdminController
	Info    *controllers.InfoController
}

// Initialize wires all routes and middlewares.
// Webhook routes are public (Meta signs the body); admin and health need the app token.
func Initialize(r *gin.Engine, cfg config.Configuration, database *gorm.DB, h Handlers, log *logger.Logger) {
	r.Use(gin.Recovery())
	r.Use(Logger(log))
	r.Use(db.AttachDB(database))

	api := r.Group("/api/v1")

	// Webhook (WhatsApp)
	api.GET("/webhook/whatsapp", h.Webhook.Verify)
	api.POST("/webhook/whatsapp", h.Webhook.Update)

	// Public info
	info := api.Group("/info")
	info.Use(middleware.CORSMiddleware())
	info.GET("/version", h.Info.Version)

	// App token routes
	admin := api.Group("/admin")
	admin.Use(middleware.CORSMiddleware())
	admin.Use(Authorizer(cfg.AppToken))
	admin.GET("/archive_user_sessions/:phone_number", h.Admin.ArchiveUserSessions)

	r.GET("/health_check", Authorizer(cfg.AppToken), h.Info.HealthCheck)

	log.Info("Routes initialized")
}
