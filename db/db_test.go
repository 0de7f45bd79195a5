package db

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"wawebhook/config"
	"wawebhook/logger"

	"github.com/gin-gonic/gin"
)

func TestConnect_SqliteMigrates(t *testing.T) {
	conf := config.Configuration{
		Database:    "sqlite3",
		DbPath:      filepath.Join(t.TempDir(), "nested", "test.db"),
		AutoMigrate: true,
	}

	database, err := Connect(conf, logger.NewNop())
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer database.Close()

	for _, table := range []string{"users", "sessions", "messages", "message_statuses", "message_processing"} {
		if !database.HasTable(table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
	if err := Ping(database); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestPing_NoDatabase(t *testing.T) {
	if err := Ping(nil); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
}

func TestAttachDB(t *testing.T) {
	gin.SetMode(gin.TestMode)

	database, err := Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer database.Close()

	r := gin.New()
	r.Use(AttachDB(database))
	r.GET("/", func(c *gin.Context) {
		if FromContext(c) != database {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected attached db, got %d", rr.Code)
	}
}
