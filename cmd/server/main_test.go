package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/pai-classroom/internal/platform/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("LEARN_STORE_DRIVER", config.DriverMemory)
	t.Setenv("LEARN_CACHE_ENABLED", "false")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestHealthEndpoints(t *testing.T) {
	a, err := newApp(context.Background(), memoryConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"status": "ok"},
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"status": "ready"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			a.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var got map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if diff := cmp.Diff(tt.wantBody, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSeedOnStartup(t *testing.T) {
	dir := t.TempDir()
	course := "name: Physics\ninstructor:\n  email: seed@example.com\ntopics:\n  - name: Motion\n"
	if err := os.WriteFile(filepath.Join(dir, "physics.course.yaml"), []byte(course), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, memoryConfig(t))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	if err := a.seed(ctx, dir); err != nil {
		t.Fatalf("seed() error = %v", err)
	}
	owner, err := a.accounts.Store().GetUserByEmail(ctx, "seed@example.com")
	if err != nil {
		t.Fatalf("seed instructor missing: %v", err)
	}
	courses, err := a.classroom.Store().ListCoursesByInstructor(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListCoursesByInstructor() error = %v", err)
	}
	if len(courses) != 1 || courses[0].Name != "Physics" {
		t.Errorf("courses = %+v, want one Physics course", courses)
	}
}

func TestNewMailer(t *testing.T) {
	if _, err := newMailer(config.MailConfig{}); err != nil {
		t.Errorf("newMailer() without key error = %v", err)
	}
	if _, err := newMailer(config.MailConfig{SendGridAPIKey: "SG.key"}); err == nil {
		t.Error("newMailer() with key and no sender should return error")
	}
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"*", "https://app.example.com", "http://localhost:3000"})
	want := []string{"*", "app.example.com", "localhost:3000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("originPatterns() mismatch (-want +got):\n%s", diff)
	}
}
