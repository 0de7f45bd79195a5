package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	APP_MODE_LOCAL = "LOCAL"
	APP_MODE_DEV   = "DEV"
	APP_MODE_PROD  = "PROD"
)

type Configuration struct {
	ApiPort    string `json:"api_port"`
	AppMode    string `json:"app_mode"`
	AppToken   string `json:"app_token"`
	AppVersion string `json:"app_version"`

	Database    string `json:"database"` // "sqlite3" ou "postgres"
	DbHost      string `json:"db_host"`
	DbPort      string `json:"db_port"`
	DbUser      string `json:"db_user"`
	DbName      string `json:"db_name"`
	DbPass      string `json:"db_pass"`
	DbPath      string `json:"db_path"`
	AutoMigrate bool   `json:"automigrate"`

	WhatsApp   WhatsAppConfig   `json:"whatsapp"`
	Processing ProcessingConfig `json:"processing"`
	Redis      RedisConfig      `json:"redis"`
	OpenAI     OpenAIConfig     `json:"openai"`
}

type WhatsAppConfig struct {
	ApiToken          string `json:"api_token"`
	ApiBaseURL        string `json:"api_base_url"`
	ApiVersion        string `json:"api_version"`
	WebhookToken      string `json:"webhook_token"`
	AppSecret         string `json:"app_secret"`
	ValidateSignature bool   `json:"validate_signature"`
	EnableIntegration bool   `json:"enable_integration"`
	RequestTimeoutSec int    `json:"request_timeout_seconds"`

	RetryCount           int     `json:"retry_count"`
	RetryStartTimeoutSec float64 `json:"retry_start_timeout_seconds"`
	VerifySSL            bool    `json:"verify_ssl"`
}

type ProcessingConfig struct {
	ConcatenationWaitSec int      `json:"concatenation_wait_seconds"`
	RetryCount           int      `json:"retry_count"`
	RetryIntervalSec     float64  `json:"retry_interval_seconds"`
	RetryExponential     float64  `json:"retry_exponential"`
	SupportedTypes       []string `json:"supported_types"`
	UnsupportedTypes     []string `json:"unsupported_types"`
}

type RedisConfig struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type OpenAIConfig struct {
	ApiKey       string `json:"api_key"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
}

// ConcatenationWait is the debounce window before deciding on a merge.
func (p ProcessingConfig) ConcatenationWait() time.Duration {
	return time.Duration(p.ConcatenationWaitSec) * time.Second
}

// RetryInterval is the base of the exponential backoff.
func (p ProcessingConfig) RetryInterval() time.Duration {
	return time.Duration(p.RetryIntervalSec * float64(time.Second))
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

func (w WhatsAppConfig) RequestTimeout() time.Duration {
	return time.Duration(w.RequestTimeoutSec) * time.Second
}

// RetryStartTimeout is the first wait of the provider call backoff; it doubles on each retry.
func (w WhatsAppConfig) RetryStartTimeout() time.Duration {
	return time.Duration(w.RetryStartTimeoutSec * float64(time.Second))
}

func (c Configuration) IsProd() bool {
	return strings.EqualFold(c.AppMode, APP_MODE_PROD)
}

// Load reads the optional JSON file at path, applies env overrides and
// fills defaults. An empty path skips the file.
func Load(path string) (Configuration, error) {
	c := Configuration{
		WhatsApp: WhatsAppConfig{
			ValidateSignature: true,
			EnableIntegration: true,
			VerifySSL:         true,
		},
		Processing: ProcessingConfig{
			ConcatenationWaitSec: 30,
		},
	}

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&c); err != nil {
		return c, err
	}
	applyDefaults(&c)

	if err := validate(c); err != nil {
		return c, err
	}
	return c, nil
}

func applyEnv(c *Configuration) error {
	setString(&c.ApiPort, "PORT")
	setString(&c.AppMode, "APP_MODE")
	setString(&c.AppToken, "APP_TOKEN")
	setString(&c.AppVersion, "APP_VERSION")

	setString(&c.Database, "DATABASE")
	setString(&c.DbHost, "POSTGRES_HOST")
	setString(&c.DbPort, "POSTGRES_PORT")
	setString(&c.DbUser, "POSTGRES_USER")
	setString(&c.DbName, "POSTGRES_DB")
	setString(&c.DbPass, "POSTGRES_PASSWORD")
	setString(&c.DbPath, "SQLITE_PATH")

	setString(&c.WhatsApp.ApiToken, "WHATSAPP_API_TOKEN")
	setString(&c.WhatsApp.ApiBaseURL, "WHATSAPP_API_BASE_URL")
	setString(&c.WhatsApp.ApiVersion, "WHATSAPP_API_VERSION")
	setString(&c.WhatsApp.WebhookToken, "WHATSAPP_WEBHOOK_TOKEN")
	setString(&c.WhatsApp.AppSecret, "WHATSAPP_APP_SECRET")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	setString(&c.OpenAI.ApiKey, "OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.OpenAI.SystemPrompt, "OPENAI_SYSTEM_PROMPT")

	for _, b := range []struct {
		dst *bool
		key string
	}{
		{&c.AutoMigrate, "AUTOMIGRATE"},
		{&c.WhatsApp.ValidateSignature, "WHATSAPP_VALIDATE_SIGNATURE"},
		{&c.WhatsApp.EnableIntegration, "WHATSAPP_ENABLE_PROD_INTEGRATION"},
		{&c.WhatsApp.VerifySSL, "WHATSAPP_API_VERIFY_SSL"},
	} {
		if err := setBool(b.dst, b.key); err != nil {
			return err
		}
	}

	for _, i := range []struct {
		dst *int
		key string
	}{
		{&c.WhatsApp.RequestTimeoutSec, "WHATSAPP_API_TIMEOUT_SECONDS"},
		{&c.WhatsApp.RetryCount, "WHATSAPP_API_RETRY_COUNT"},
		{&c.Processing.ConcatenationWaitSec, "WHATSAPP_CONCATENATED_MESSAGE_WAITING_SECONDS"},
		{&c.Processing.RetryCount, "WHATSAPP_MESSAGE_PROCESSING_RETRIES"},
		{&c.Redis.DB, "REDIS_DB"},
		{&c.Redis.TTLSeconds, "REDIS_TTL_SECONDS"},
	} {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}

	for _, f := range []struct {
		dst *float64
		key string
	}{
		{&c.WhatsApp.RetryStartTimeoutSec, "WHATSAPP_API_RETRY_START_TIMEOUT"},
		{&c.Processing.RetryIntervalSec, "WHATSAPP_MESSAGE_PROCESSING_INTERVAL"},
		{&c.Processing.RetryExponential, "WHATSAPP_MESSAGE_PROCESSING_EXPONENTIAL"},
	} {
		if err := setFloat(f.dst, f.key); err != nil {
			return err
		}
	}
	return nil
}

// defaults (pra evitar nil/zero chato)
func applyDefaults(c *Configuration) {
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.AppMode == "" {
		c.AppMode = APP_MODE_LOCAL
	}
	c.AppMode = strings.ToUpper(c.AppMode)
	if c.AppVersion == "" {
		c.AppVersion = "dev"
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.DbPort == "" {
		c.DbPort = "5432"
	}
	if c.DbPath == "" {
		c.DbPath = "db/database.db"
	}

	if c.WhatsApp.ApiBaseURL == "" {
		c.WhatsApp.ApiBaseURL = "https://graph.facebook.com"
	}
	if c.WhatsApp.ApiVersion == "" {
		c.WhatsApp.ApiVersion = "v19.0"
	}
	if c.WhatsApp.RequestTimeoutSec <= 0 {
		c.WhatsApp.RequestTimeoutSec = 30
	}
	if c.WhatsApp.RetryCount <= 0 {
		c.WhatsApp.RetryCount = 5
	}
	if c.WhatsApp.RetryStartTimeoutSec <= 0 {
		c.WhatsApp.RetryStartTimeoutSec = 1
	}

	// 0 is a valid wait (no debounce); the 30s default is set before the file and env are read
	if c.Processing.ConcatenationWaitSec < 0 {
		c.Processing.ConcatenationWaitSec = 0
	}
	if c.Processing.RetryCount <= 0 {
		c.Processing.RetryCount = 3
	}
	if c.Processing.RetryIntervalSec <= 0 {
		c.Processing.RetryIntervalSec = 3
	}
	if c.Processing.RetryExponential <= 0 {
		c.Processing.RetryExponential = 3
	}
	if len(c.Processing.SupportedTypes) == 0 {
		c.Processing.SupportedTypes = []string{"text", "button"}
	}
	if len(c.Processing.UnsupportedTypes) == 0 {
		c.Processing.UnsupportedTypes = []string{"reaction", "image", "document", "audio", "sticker", "video"}
	}

	if c.Redis.TTLSeconds <= 0 {
		c.Redis.TTLSeconds = 86400
	}

	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4.1-mini"
	}
}

func validate(c Configuration) error {
	switch c.AppMode {
	case APP_MODE_LOCAL, APP_MODE_DEV, APP_MODE_PROD:
	default:
		return fmt.Errorf("invalid APP_MODE %q", c.AppMode)
	}
	switch c.Database {
	case "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("invalid database %q", c.Database)
	}
	for _, t := range c.Processing.SupportedTypes {
		for _, u := range c.Processing.UnsupportedTypes {
			if strings.EqualFold(t, u) {
				return fmt.Errorf("message type %q is both supported and unsupported", t)
			}
		}
	}
	if c.IsProd() && strings.TrimSpace(c.WhatsApp.ApiToken) == "" {
		return fmt.Errorf("missing WHATSAPP_API_TOKEN")
	}
	if c.IsProd() && c.WhatsApp.ValidateSignature && strings.TrimSpace(c.WhatsApp.AppSecret) == "" {
		return fmt.Errorf("missing WHATSAPP_APP_SECRET (or set WHATSAPP_VALIDATE_SIGNATURE=false)")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid bool for env %s: %s", key, v)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	*dst = i
	return nil
}

func setFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid float for env %s: %s", key, v)
	}
	*dst = f
	return nil
}
