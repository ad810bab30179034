package main

import (
	"net/http"
	"testing"
)

func TestHealthResponse(t *testing.T) {
	tests := []struct {
		name       string
		db, redis  bool
		wantCode   int
		wantStatus string
	}{
		{"all healthy", true, true, http.StatusOK, "ok"},
		{"db down", false, true, http.StatusServiceUnavailable, "degraded"},
		{"redis down", true, false, http.StatusServiceUnavailable, "degraded"},
		{"everything down", false, false, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := healthResponse(tt.db, tt.redis)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %q", body["status"], tt.wantStatus)
			}
			if body["db"] != tt.db || body["redis"] != tt.redis {
				t.Errorf("body = %v, want db=%v redis=%v", body, tt.db, tt.redis)
			}
		})
	}
}
