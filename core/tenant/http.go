package tenant

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"community-hub/core/apperr"
)

// HeaderTenantID carries the tenant on every API request.
const HeaderTenantID = "X-Tenant-Id"

// FromRequest reads the tenant scope off a request: the X-Tenant-Id
// header plus an optional comma-separated segments query parameter.
func FromRequest(c *fiber.Ctx) (Scope, error) {
	raw := c.Get(HeaderTenantID)
	if raw == "" {
		return Scope{}, apperr.NewValidation("%s header is required", HeaderTenantID)
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return Scope{}, apperr.NewValidation("invalid tenant id")
	}

	var segments []uuid.UUID
	if q := c.Query("segments"); q != "" {
		for _, part := range strings.Split(q, ",") {
			segmentID, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return Scope{}, apperr.NewValidation("invalid segment id: %s", part)
			}
			segments = append(segments, segmentID)
		}
	}
	return New(tenantID, segments...), nil
}
