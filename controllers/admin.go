package controllers

import (
	"context"
	"errors"
	"net/http"

	"wawebhook/services"
	"wawebhook/tools"

	"github.com/gin-gonic/gin"
)

type SessionArchiver interface {
	ArchiveUserSessions(ctx context.Context, phoneNumber string) (int64, error)
}

type AdminController struct {
	archiver SessionArchiver
}

func NewAdminController(archiver SessionArchiver) *AdminController {
	return &AdminController{archiver: archiver}
}

// GET /api/v1/admin/archive_user_sessions/:phone_number
func (a *AdminController) ArchiveUserSessions(c *gin.Context) {
	phone := c.Param("phone_number")

	n, err := a.archiver.ArchiveUserSessions(c.Request.Context(), phone)
	if errors.Is(err, services.ErrUserNotFound) {
		RespondError(c, "User not found", http.StatusBadRequest)
		return
	}
	if errors.Is(err, tools.ErrInvalidPhone) {
		RespondError(c, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		RespondError(c, "failed to archive user sessions", http.StatusInternalServerError)
		return
	}

	RespondSuccess(c, gin.H{
		"message":           "User sessions archived",
		"phone_number":      phone,
		"archived_sessions": n,
	})
}
