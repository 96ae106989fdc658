package organization

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"community-hub/core/apperr"
	"community-hub/core/logger"
	"community-hub/core/tenant"
)

// Handler handles HTTP requests for organizations.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the organization routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/organizations")
	group.Post("/", h.HandleUpsert)
	group.Post("/suggestions/run", h.HandleRunSuggestions)
	group.Get("/:id", h.HandleGet)
	group.Get("/:id/suggestions", h.HandleListSuggestions)
	group.Delete("/:id/suggest/:toMergeId", h.HandleDismissSuggestion)
	group.Put("/:id/merge/:toMergeId", h.HandleMerge)
	group.Put("/:id/no-merge/:otherId", h.HandleMarkNoMerge)
}

// HandleGet returns one organization with its identities.
// @Summary Get Organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} models.Organization "Organization"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /organizations/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid organization id"))
	}

	org, err := h.service.FindByID(c.Context(), scope, id)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(org)
}

// HandleUpsert creates or enriches an organization by identity.
// @Summary Upsert Organization
// @Tags organizations
// @Accept json
// @Produce json
// @Param payload body UpsertInput true "Organization payload"
// @Success 200 {object} models.Organization "Organization"
// @Failure 400 {object} map[string]string "Validation Error"
// @Router /organizations [post]
func (h *Handler) HandleUpsert(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	var input UpsertInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, l, apperr.NewValidation("invalid payload: %v", err))
	}

	org, err := h.service.Upsert(c.Context(), scope, input)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(org)
}

// HandleMerge merges the second organization into the first.
// @Summary Merge Organizations
// @Tags organizations
// @Produce json
// @Param id path string true "Surviving Organization ID"
// @Param toMergeId path string true "Organization ID to merge in"
// @Success 200 {object} MergeResult "Merge Result"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /organizations/{id}/merge/{toMergeId} [put]
func (h *Handler) HandleMerge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	originalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid organization id"))
	}
	toMergeID, err := uuid.Parse(c.Params("toMergeId"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid organization id"))
	}

	result, err := h.service.Merge(c.Context(), scope, originalID, toMergeID)
	if err != nil {
		l.Error("organization merge failed",
			zap.String("originalId", originalID.String()),
			zap.String("toMergeId", toMergeID.String()),
			zap.Error(err))
		return respondError(c, l, err)
	}
	return c.JSON(result)
}

// HandleDismissSuggestion withdraws a standing suggestion for a pair.
// @Summary Dismiss Merge Suggestion
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Param toMergeId path string true "Candidate Organization ID"
// @Success 204 "Removed"
// @Router /organizations/{id}/suggest/{toMergeId} [delete]
func (h *Handler) HandleDismissSuggestion(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	organizationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid organization id"))
	}
	toMergeID, err := uuid.Parse(c.Params("toMergeId"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid organization id"))
	}

	if err := h.service.DismissSuggestion(c.Context(), scope, organizationID, toMergeID); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleMarkNoMerge marks a pair as confirmed-not-duplicates.
// @Summary Mark No-Merge
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Param otherId path string true "Other Organization ID"
// @Success 204 "Recorded"
// @Router /organizations/{id}/no-merge/{otherId} [put]
func (h *Handler) HandleMarkNoMerge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	organizationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid organization id"))
	}
	otherID, err := uuid.Parse(c.Params("otherId"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid organization id"))
	}

	if err := h.service.MarkNoMerge(c.Context(), scope, organizationID, otherID); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListSuggestions returns the candidate edges of one organization.
// @Summary List Merge Suggestions
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {array} models.OrganizationToMerge "Suggestions"
// @Router /organizations/{id}/suggestions [get]
func (h *Handler) HandleListSuggestions(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	organizationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid organization id"))
	}

	edges, err := h.service.FindMergeSuggestions(c.Context(), scope, organizationID)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(edges)
}

// HandleRunSuggestions runs the organization suggestion generator.
// @Summary Run Suggestion Generator
// @Tags organizations
// @Produce json
// @Success 200 {object} map[string]int "Edge count"
// @Router /organizations/suggestions/run [post]
func (h *Handler) HandleRunSuggestions(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	count, err := h.service.GenerateSuggestions(c.Context(), scope)
	if err != nil {
		l.Error("suggestion run failed", zap.Error(err))
		return respondError(c, l, err)
	}
	return c.JSON(fiber.Map{"edges": count})
}

func respondError(c *fiber.Ctx, l *zap.Logger, err error) error {
	status := apperr.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		l.Error("request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
