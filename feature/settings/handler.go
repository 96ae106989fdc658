package settings

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"community-hub/core/apperr"
	"community-hub/core/logger"
	"community-hub/core/tenant"
	"community-hub/feature/settings/models"
)

// Handler handles HTTP requests for tenant settings.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the settings routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/settings")
	group.Get("/attributes", h.HandleListAttributes)
	group.Post("/attributes", h.HandleEnsureAttributes)
	group.Delete("/attributes/:name", h.HandleDestroyAttribute)
	group.Get("/priorities", h.HandleGetPriorities)
	group.Put("/priorities", h.HandleSetPriorities)
}

// HandleListAttributes returns the tenant's attribute registry.
// @Summary List Attribute Settings
// @Tags settings
// @Produce json
// @Success 200 {array} models.AttributeSetting "Attribute Settings"
// @Router /settings/attributes [get]
func (h *Handler) HandleListAttributes(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	attributes, err := h.service.ListAttributes(c.Context(), scope.ID)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(attributes)
}

// HandleEnsureAttributes registers attribute settings, skipping names
// the tenant already has.
// @Summary Ensure Attribute Settings
// @Tags settings
// @Accept json
// @Produce json
// @Param payload body []models.AttributeSetting true "Attribute settings"
// @Success 204 "Registered"
// @Failure 400 {object} map[string]string "Validation Error"
// @Router /settings/attributes [post]
func (h *Handler) HandleEnsureAttributes(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	var attributes []models.AttributeSetting
	if err := c.BodyParser(&attributes); err != nil {
		return respondError(c, l, apperr.NewValidation("invalid payload: %v", err))
	}

	if err := h.service.EnsureAttributes(c.Context(), scope.ID, attributes); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleDestroyAttribute removes one registry entry.
// @Summary Destroy Attribute Setting
// @Tags settings
// @Produce json
// @Param name path string true "Attribute Name"
// @Success 204 "Deleted"
// @Failure 400 {object} map[string]string "Not Deletable"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /settings/attributes/{name} [delete]
func (h *Handler) HandleDestroyAttribute(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	if err := h.service.DestroyAttribute(c.Context(), scope.ID, c.Params("name")); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleGetPriorities returns the tenant's platform priority order.
// @Summary Get Platform Priorities
// @Tags settings
// @Produce json
// @Success 200 {array} string "Priorities"
// @Router /settings/priorities [get]
func (h *Handler) HandleGetPriorities(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	priorities, err := h.service.PlatformPriorities(c.Context(), scope.ID)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(priorities)
}

// HandleSetPriorities replaces the tenant's platform priority order.
// @Summary Set Platform Priorities
// @Tags settings
// @Accept json
// @Produce json
// @Param payload body []string true "Priorities"
// @Success 204 "Stored"
// @Router /settings/priorities [put]
func (h *Handler) HandleSetPriorities(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	var priorities models.Priorities
	if err := c.BodyParser(&priorities); err != nil {
		return respondError(c, l, apperr.NewValidation("invalid payload: %v", err))
	}

	if err := h.service.SetPlatformPriorities(c.Context(), scope.ID, priorities); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func respondError(c *fiber.Ctx, l *zap.Logger, err error) error {
	status := apperr.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		l.Error("request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
