package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestJWTMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/private", JWTMiddleware("secret"), func(c *fiber.Ctx) error {
		deviceID, _ := c.Locals("device_id").(string)
		return c.SendString(deviceID)
	})

	svc := NewService("secret", nil)
	token, _ := svc.signToken("device-1", accessTokenTTL)

	tests := map[string]struct {
		target string
		header string
		status int
	}{
		"missing_token":  {target: "/private", status: http.StatusUnauthorized},
		"bad_scheme":     {target: "/private", header: "Basic " + token, status: http.StatusUnauthorized},
		"garbage_token":  {target: "/private", header: "Bearer nope", status: http.StatusUnauthorized},
		"bearer_header":  {target: "/private", header: "Bearer " + token, status: http.StatusOK},
		"query_fallback": {target: "/private?token=" + token, status: http.StatusOK},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestJWTMiddlewareWrongSecret(t *testing.T) {
	app := fiber.New()
	app.Get("/private", JWTMiddleware("secret"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	token, _ := NewService("another", nil).signToken("device-1", accessTokenTTL)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized")
	}
}

func TestBearerFromHeader(t *testing.T) {
	if bearerFromHeader("bad") != "" {
		t.Fatalf("expected empty token")
	}
	if bearerFromHeader("bearer token") != "token" {
		t.Fatalf("expected token")
	}
}
