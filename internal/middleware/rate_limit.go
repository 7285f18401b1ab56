package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit builds a per-caller limiter. Authenticated teachers are keyed by
// their user id; anonymous students on the public submit link fall back to
// the student_email form field and finally the client IP.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			caller := fmt.Sprintf("%v", c.Locals("user_id"))
			if caller == "" || caller == "0" || caller == "<nil>" {
				caller = strings.ToLower(strings.TrimSpace(c.FormValue("student_email")))
			}
			if caller == "" {
				caller = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, caller)
		},
	})
}
