package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chronicle/internal/models"

	"github.com/gofiber/fiber/v2"
)

func TestListVisitLogsScoping(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	owner := createTestUser(t, db, "writer", false)
	readerA := createTestUser(t, db, "reader_a", false)
	readerB := createTestUser(t, db, "reader_b", false)
	admin := createTestUser(t, db, "warden", true)
	post := createTestPost(t, db, owner, "tracked")

	for _, reader := range []*models.User{readerA, readerA, readerB} {
		if err := db.Create(&models.VisitLog{PostID: post.ID, UserID: reader.ID}).Error; err != nil {
			t.Fatalf("create log: %v", err)
		}
	}

	count := func(caller *models.User) int {
		app := fiber.New()
		app.Get("/api/visits", asUser(caller), s.ListVisitLogs)
		req := httptest.NewRequest(http.MethodGet, "/api/visits", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		var logs []models.VisitLog
		if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
			t.Fatalf("decode logs: %v", err)
		}
		_ = resp.Body.Close()
		return len(logs)
	}

	if got := count(readerA); got != 2 {
		t.Fatalf("expected reader_a to see 2 logs, got %d", got)
	}
	if got := count(readerB); got != 1 {
		t.Fatalf("expected reader_b to see 1 log, got %d", got)
	}
	if got := count(admin); got != 3 {
		t.Fatalf("expected staff to see all 3 logs, got %d", got)
	}
}

func TestGetVisitLogSelfOrAdmin(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	owner := createTestUser(t, db, "writer2", false)
	reader := createTestUser(t, db, "reader2", false)
	stranger := createTestUser(t, db, "stranger2", false)
	admin := createTestUser(t, db, "warden2", true)
	post := createTestPost(t, db, owner, "tracked2")

	log := &models.VisitLog{PostID: post.ID, UserID: reader.ID}
	if err := db.Create(log).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}

	cases := []struct {
		name   string
		caller *models.User
		want   int
	}{
		{"self", reader, http.StatusOK},
		{"stranger", stranger, http.StatusForbidden},
		{"admin", admin, http.StatusOK},
	}
	for _, tc := range cases {
		app := fiber.New()
		app.Get("/api/visits/:id", asUser(tc.caller), s.GetVisitLog)
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/visits/%d", log.ID), nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test: %v", tc.name, err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
	}
}
