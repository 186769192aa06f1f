package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderName is the request/response header carrying the ray ID.
const HeaderName = "X-Ray-ID"

// New returns a middleware that assigns a unique ray ID to every request.
// An incoming X-Ray-ID header is honored so upstream proxies can correlate;
// otherwise a fresh UUID is generated. The ID is stored in locals under
// "ray_id" and echoed in the response header.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(HeaderName)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Locals("ray_id", rid)
		c.Set(HeaderName, rid)
		return c.Next()
	}
}
