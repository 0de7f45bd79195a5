package tools

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"wawebhook/config"
	"wawebhook/logger"
)

const MESSAGING_PRODUCT = "whatsapp"

// WhatsAppAPIError is a non-2xx answer of the Graph API.
type WhatsAppAPIError struct {
	StatusCode int
	Body       string
}

func (e WhatsAppAPIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d body=%s", e.StatusCode, e.Body)
}

// MessageCallback is the Graph API answer to a sent message.
type MessageCallback struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// WhatsAppClient talks to the WhatsApp Cloud API on behalf of any business number.
// With Enabled false every call succeeds without touching the network.
// Each call is tried up to RetryAttempts times on 408, 429, 5xx and network
// errors, waiting RetryStartTimeout and doubling it between tries.
type WhatsAppClient struct {
	AccessToken       string
	BaseURL           string
	ApiVersion        string
	Enabled           bool
	RetryAttempts     int
	RetryStartTimeout time.Duration
	HTTPClient        *http.Client
	sleep             func(ctx context.Context, d time.Duration) error
	log               *logger.Logger
}

func NewWhatsAppClient(conf config.Configuration, log *logger.Logger) *WhatsAppClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !conf.WhatsApp.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &WhatsAppClient{
		AccessToken:       conf.WhatsApp.ApiToken,
		BaseURL:           conf.WhatsApp.ApiBaseURL,
		ApiVersion:        conf.WhatsApp.ApiVersion,
		Enabled:           conf.IsProd() || conf.WhatsApp.EnableIntegration,
		RetryAttempts:     conf.WhatsApp.RetryCount,
		RetryStartTimeout: conf.WhatsApp.RetryStartTimeout(),
		HTTPClient:        &http.Client{Timeout: conf.WhatsApp.RequestTimeout(), Transport: transport},
		sleep:             Sleep,
		log:               log.With("component", "WhatsAppClient"),
	}
}

func (c *WhatsAppClient) messagesURL(phoneNumberID string) string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = "https://graph.facebook.com"
	}
	apiVersion := strings.TrimSpace(c.ApiVersion)
	if apiVersion == "" {
		apiVersion = "v19.0"
	}
	return fmt.Sprintf("%s/%s/%s/messages", base, apiVersion, strings.TrimSpace(phoneNumberID))
}

func (c *WhatsAppClient) post(ctx context.Context, url string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	attempts := c.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := c.sleep
	if sleep == nil {
		sleep = Sleep
	}
	backoff := c.RetryStartTimeout

	for attempt := 1; ; attempt++ {
		err = c.postOnce(ctx, url, b, out)
		if err == nil || attempt >= attempts || !isRetryable(ctx, err) {
			return err
		}

		c.log.Warn("Whatsapp request retrying",
			"url", url,
			"attempt", attempt,
			"max_attempts", attempts,
			"sleep", backoff.String(),
			"error", err.Error(),
		)
		if sleepErr := sleep(ctx, backoff); sleepErr != nil {
			return err
		}
		backoff *= 2
	}
}

func (c *WhatsAppClient) postOnce(ctx context.Context, url string, b []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.AccessToken))
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return WhatsAppAPIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// isRetryable reports a failure worth another try: a throttled or failing
// provider, or a dropped connection. Nothing is retried once ctx is done.
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr WhatsAppAPIError
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// MarkAsRead shows the blue ticks for waMessageID. Failures are logged and reported as false.
func (c *WhatsAppClient) MarkAsRead(ctx context.Context, phoneNumberID, waMessageID string) bool {
	if !c.Enabled {
		c.log.Warn("Whatsapp integration disabled, skipping mark as read", "wa_message_id", waMessageID)
		return true
	}
	c.log.Info("Marking message as read", "phone_number_id", phoneNumberID, "wa_message_id", waMessageID)

	var result struct {
		Success bool `json:"success"`
	}
	err := c.post(ctx, c.messagesURL(phoneNumberID), map[string]any{
		"messaging_product": MESSAGING_PRODUCT,
		"status":            "read",
		"message_id":        waMessageID,
	}, &result)
	if err != nil {
		c.log.Error("Failed to mark message as read", "wa_message_id", waMessageID, "error", err)
		return false
	}
	return result.Success
}

// SendMessage sends a text reply to phoneNumber from the business number phoneNumberID.
func (c *WhatsAppClient) SendMessage(ctx context.Context, phoneNumber, phoneNumberID, text string) (*MessageCallback, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty message text")
	}
	if !c.Enabled {
		c.log.Warn("Whatsapp integration disabled, skipping send", "phone_number", phoneNumber)
		return &MessageCallback{MessagingProduct: MESSAGING_PRODUCT}, nil
	}
	c.log.Info("Sending message to user", "phone_number", phoneNumber)
	c.log.Debug("Message content", "text", text)

	var callback MessageCallback
	err := c.post(ctx, c.messagesURL(phoneNumberID), map[string]any{
		"messaging_product": MESSAGING_PRODUCT,
		"to":                phoneNumber,
		"text": map[string]any{
			"body": text,
		},
	}, &callback)
	if err != nil {
		c.log.Error("Failed to send message", "phone_number", phoneNumber, "error", err)
		return nil, err
	}
	return &callback, nil
}
