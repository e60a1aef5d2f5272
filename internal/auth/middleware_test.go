package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signTestToken(t *testing.T, claims Claims) string {
	t.Helper()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware(testSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":   c.Locals("user_id"),
			"user_name": c.Locals("user_name"),
		})
	})
	app.Get("/mod", JWTMiddleware(testSecret), RequireRole(RoleModerator), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestJWTMiddlewareValid(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, Claims{UserID: "user-1", UserName: "Anna"}))

	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %v %v", resp.StatusCode, err)
	}
}

func TestJWTMiddlewareMissingToken(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	if err != nil || resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %v %v", resp.StatusCode, err)
	}
}

func TestJWTMiddlewareBadToken(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %v %v", resp.StatusCode, err)
	}
}

func TestRequireRole(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest("GET", "/mod", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, Claims{UserID: "user-1"}))
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 without role, got %v %v", resp.StatusCode, err)
	}

	req = httptest.NewRequest("GET", "/mod", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, Claims{UserID: "user-1", Role: RoleModerator}))
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 with role, got %v %v", resp.StatusCode, err)
	}
}

func TestBearerFromHeader(t *testing.T) {
	if bearerFromHeader("Bearer abc") != "abc" {
		t.Fatalf("expected token")
	}
	if bearerFromHeader("bearer abc") != "abc" {
		t.Fatalf("scheme should be case-insensitive")
	}
	if bearerFromHeader("Basic abc") != "" || bearerFromHeader("") != "" {
		t.Fatalf("expected empty token for non-bearer header")
	}
}
