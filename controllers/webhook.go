package controllers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"wawebhook/config"
	"wawebhook/logger"
	"wawebhook/models"
	"wawebhook/tools"

	"github.com/gin-gonic/gin"
)

// Submitter hands an update to background processing.
type Submitter interface {
	Submit(update models.WebhookUpdate) string
}

type WebhookController struct {
	conf       config.WhatsAppConfig
	dispatcher Submitter
	log        *logger.Logger
}

func NewWebhookController(conf config.WhatsAppConfig, dispatcher Submitter, log *logger.Logger) *WebhookController {
	return &WebhookController{conf: conf, dispatcher: dispatcher, log: log.With("component", "WebhookController")}
}

// GET /api/v1/webhook/whatsapp
func (w *WebhookController) Verify(c *gin.Context) {
	verifyToken := strings.TrimSpace(w.conf.WebhookToken)
	if verifyToken == "" {
		RespondError(c, "WHATSAPP_WEBHOOK_TOKEN not set", http.StatusInternalServerError)
		return
	}

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	tokenOK := subtle.ConstantTimeCompare([]byte(token), []byte(verifyToken)) == 1
	w.log.Info("Webhook verification", "mode", mode, "token_ok", tokenOK)

	if mode == "subscribe" && tokenOK {
		c.String(http.StatusOK, "%s", challenge)
		return
	}

	RespondError(c, "forbidden", http.StatusForbidden)
}

// POST /api/v1/webhook/whatsapp
//
// Acknowledges with 200 "OK" as soon as the update is queued; processing
// success or failure never reaches Meta.
func (w *WebhookController) Update(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, "failed to read body", http.StatusBadRequest)
		return
	}

	if w.conf.ValidateSignature && strings.TrimSpace(w.conf.AppSecret) != "" {
		if err := tools.VerifySignature(w.conf.AppSecret, raw, c.GetHeader(tools.SIGNATURE_HEADER)); err != nil {
			w.log.Warn("Rejected webhook", "error", err)
			RespondError(c, "forbidden: "+err.Error(), http.StatusForbidden)
			return
		}
	}

	var update models.WebhookUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		RespondError(c, "invalid json", http.StatusBadRequest)
		return
	}

	taskID := w.dispatcher.Submit(update)
	w.log.Info("Webhook update queued", "task_id", taskID, "entries", len(update.Entry))

	c.String(http.StatusOK, "OK")
}
