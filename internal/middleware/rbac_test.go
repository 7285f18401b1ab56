package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/edumark/edumark-api/internal/models"
)

func TestRequireRoleGuardsReviewSurface(t *testing.T) {
	cases := []struct {
		name string
		role interface{}
		want int
	}{
		{name: "teacher allowed", role: models.RoleTeacher, want: fiber.StatusOK},
		{name: "admin allowed", role: "  Admin  ", want: fiber.StatusOK},
		{name: "student rejected", role: "student", want: fiber.StatusForbidden},
		{name: "missing role rejected", role: nil, want: fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				if tc.role != nil {
					c.Locals("user_role", tc.role)
				}
				return c.Next()
			})
			app.Use(RequireRole(models.RoleTeacher, models.RoleAdmin))
			app.Get("/teacher/submissions", func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/teacher/submissions", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
