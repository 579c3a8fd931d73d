package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chronicle/internal/models"

	"github.com/gofiber/fiber/v2"
)

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func putJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestObtainTokenSuccess(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	user := createTestUser(t, db, "alice", true)

	app := fiber.New()
	app.Post("/api/token", s.ObtainToken)

	resp := postJSON(t, app, "/api/token", fiber.Map{
		"username": "alice",
		"password": "Sup3rSecret!Pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatal("missing access_token")
	}
	if body["refresh_token"] == "" || body["refresh_token"] == nil {
		t.Fatal("missing refresh_token")
	}
	if body["is_staff"] != true {
		t.Fatalf("expected is_staff true, got %v", body["is_staff"])
	}
	if body["user_id"] != user.ID.String() {
		t.Fatalf("expected user_id %s, got %v", user.ID, body["user_id"])
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.LastLogin == nil {
		t.Fatal("expected last_login to be set after token issuance")
	}
}

func TestObtainTokenWrongPassword(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	createTestUser(t, db, "bob", false)

	app := fiber.New()
	app.Post("/api/token", s.ObtainToken)

	resp := postJSON(t, app, "/api/token", fiber.Map{
		"username": "bob",
		"password": "not-the-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestObtainTokenInactiveUser(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	user := createTestUser(t, db, "carol", false)
	if err := db.Model(user).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	app := fiber.New()
	app.Post("/api/token", s.ObtainToken)

	resp := postJSON(t, app, "/api/token", fiber.Map{
		"username": "carol",
		"password": "Sup3rSecret!Pass",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", resp.StatusCode)
	}
}

func TestRefreshTokenFlow(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	createTestUser(t, db, "dave", false)

	app := fiber.New()
	app.Post("/api/token", s.ObtainToken)
	app.Post("/api/token/refresh", s.RefreshToken)

	resp := postJSON(t, app, "/api/token", fiber.Map{
		"username": "dave",
		"password": "Sup3rSecret!Pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("obtain: expected 200, got %d", resp.StatusCode)
	}
	tokens := decodeBody(t, resp)
	refreshToken, _ := tokens["refresh_token"].(string)
	accessToken, _ := tokens["access_token"].(string)

	resp = postJSON(t, app, "/api/token/refresh", fiber.Map{
		"refresh_token": refreshToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatal("missing refreshed access_token")
	}

	// An access token is not accepted where a refresh token is expected.
	resp = postJSON(t, app, "/api/token/refresh", fiber.Map{
		"refresh_token": accessToken,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access-as-refresh, got %d", resp.StatusCode)
	}
}

func TestAuthRequiredAcceptsAccessToken(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	user := createTestUser(t, db, "erin", false)

	token, err := s.generateToken(user.ID, user.Username, "", s.accessTokenTTL())
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	app := fiber.New()
	app.Get("/whoami", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": s.caller(c).ID()})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["user_id"] != user.ID.String() {
		t.Fatalf("expected %s, got %v", user.ID, body["user_id"])
	}
}

func TestAuthRequiredRejectsAnonymousAndRefresh(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	user := createTestUser(t, db, "frank", false)

	app := fiber.New()
	app.Get("/whoami", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	refresh, err := s.generateToken(user.ID, user.Username, refreshTokenType, s.refreshTokenTTL())
	if err != nil {
		t.Fatalf("generate refresh: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token, got %d", resp.StatusCode)
	}
}

func TestAuthRequiredRejectsDeactivatedUser(t *testing.T) {
	t.Parallel()

	s, db := newTestServer(t)
	user := createTestUser(t, db, "grace", false)

	token, err := s.generateToken(user.ID, user.Username, "", s.accessTokenTTL())
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if err := db.Model(user).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	app := fiber.New()
	app.Get("/whoami", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deactivated account, got %d", resp.StatusCode)
	}
}
