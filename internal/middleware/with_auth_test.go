package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-evaluation-api/internal/middleware"
)

func withPrincipal(userID uint, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, userID)
		c.Locals(middleware.LocalUserRole, role)
		return c.Next()
	}
}

func TestWithAuthStudentRole(t *testing.T) {
	app := fiber.New()
	app.Use(withPrincipal(10, "Student"))
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}, middleware.AuthOptions{Roles: []string{middleware.AuthRoleStudent}}))

	resp := perform(t, app, "")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWithAuthRejectsOtherRoles(t *testing.T) {
	app := fiber.New()
	app.Use(withPrincipal(3, "lecturer"))
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}, middleware.AuthOptions{Roles: []string{middleware.AuthRoleStudent}}))

	resp := perform(t, app, "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWithAuthAnyRequiresUser(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{RequireUser: true}))

	resp := perform(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWithAuthAllowsAnonymousWhenOptedIn(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}, middleware.AuthOptions{Roles: []string{middleware.AuthRoleAny}}))

	resp := perform(t, app, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTProtectedStoresPrincipal(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error {
		id, role := middleware.Principal(c)
		c.Set("X-User", role)
		if id != 7 {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	token := signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{
		"sub":   "7",
		"roles": []interface{}{"Student"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	resp := perform(t, app, "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "student", resp.Header.Get("X-User"))
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"wrong secret":   "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": 7}),
		"expired":        "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"sub": 7, "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":     "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"role": "admin"}),
		"none algorithm": "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"sub": 7}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			resp := perform(t, app, header)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func perform(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
