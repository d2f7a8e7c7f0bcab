package utils_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-evaluation-api/internal/utils"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Details map[string]interface{} `json:"details"`
	Meta    map[string]interface{} `json:"meta"`
}

func serve(t *testing.T, handler fiber.Handler) (*http.Response, []byte) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestSuccessEnvelopes(t *testing.T) {
	cases := []struct {
		name    string
		handler fiber.Handler
		status  int
		message string
		meta    bool
	}{
		{"send success defaults message", func(c *fiber.Ctx) error {
			return utils.SendSuccess(c, "", fiber.Map{"overall_rating": 4.5})
		}, fiber.StatusOK, "success", false},
		{"created", func(c *fiber.Ctx) error {
			return utils.Created(c, "evaluation submitted", fiber.Map{"overall_rating": 4.5})
		}, fiber.StatusCreated, "evaluation submitted", false},
		{"ok with meta", func(c *fiber.Ctx) error {
			return utils.OK(c, fiber.Map{"overall_rating": 4.5}, "evaluation analytics retrieved", fiber.Map{"cache_hit": true})
		}, fiber.StatusOK, "evaluation analytics retrieved", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := serve(t, tc.handler)
			require.Equal(t, tc.status, resp.StatusCode)

			var payload envelope
			require.NoError(t, json.Unmarshal(body, &payload))
			require.True(t, payload.Success)
			require.Equal(t, tc.message, payload.Message)
			require.JSONEq(t, `{"overall_rating":4.5}`, string(payload.Data))
			require.Nil(t, payload.Details)
			if tc.meta {
				require.Equal(t, true, payload.Meta["cache_hit"])
			} else {
				require.NotContains(t, string(body), `"meta"`)
			}
		})
	}
}

func TestFailCarriesDomainDetails(t *testing.T) {
	resp, body := serve(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusConflict, "evaluation already submitted for this session", fiber.Map{
			"code":       "DUPLICATE_SUBMISSION",
			"session_id": 3,
		})
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var payload envelope
	require.NoError(t, json.Unmarshal(body, &payload))
	require.False(t, payload.Success)
	require.Equal(t, "DUPLICATE_SUBMISSION", payload.Details["code"])
	require.Equal(t, float64(3), payload.Details["session_id"])
	require.NotContains(t, string(body), `"data"`)
}

func TestFailDefaults(t *testing.T) {
	resp, body := serve(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, 0, "", nil)
	})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.JSONEq(t, `{"success":false,"message":"error"}`, string(body))
}

func TestAttachment(t *testing.T) {
	resp, body := serve(t, func(c *fiber.Ctx) error {
		return utils.Attachment(c, "course-10.xlsx", "application/octet-stream", []byte("PK"))
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "application/octet-stream", resp.Header.Get(fiber.HeaderContentType))
	require.Equal(t, `attachment; filename="course-10.xlsx"`, resp.Header.Get(fiber.HeaderContentDisposition))
	require.Equal(t, []byte("PK"), body)
}
