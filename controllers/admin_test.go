package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"wawebhook/services"
	"wawebhook/tools"

	"github.com/gin-gonic/gin"
)

type stubArchiver struct {
	archived int64
	err      error
}

func (s stubArchiver) ArchiveUserSessions(_ context.Context, _ string) (int64, error) {
	return s.archived, s.err
}

func TestAdminController_ArchiveUserSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		archiver stubArchiver
		wantCode int
	}{
		{"archived", stubArchiver{archived: 2}, http.StatusOK},
		{"user not found", stubArchiver{err: services.ErrUserNotFound}, http.StatusBadRequest},
		{"invalid phone", stubArchiver{err: fmt.Errorf("%w %q", tools.ErrInvalidPhone, "abc")}, http.StatusBadRequest},
		{"store failure", stubArchiver{err: errors.New("database is locked")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/archive/:phone_number", NewAdminController(tt.archiver).ArchiveUserSessions)

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/archive/5511", nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d %s", tt.wantCode, rr.Code, rr.Body.String())
			}

			var body map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode json: %v", err)
			}
			if tt.wantCode == http.StatusInternalServerError && body["error"] == "database is locked" {
				t.Fatalf("expected store error details to stay out of the response")
			}
			if tt.wantCode == http.StatusOK && body["archived_sessions"] != float64(2) {
				t.Fatalf("expected 2 archived sessions, got %v", body)
			}
		})
	}
}
