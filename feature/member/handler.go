package member

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"community-hub/core/apperr"
	"community-hub/core/logger"
	"community-hub/core/tenant"
)

// Handler handles HTTP requests for members.
type Handler struct {
	service *Service
	engine  *SuggestionEngine
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, engine *SuggestionEngine) *Handler {
	return &Handler{service: service, engine: engine}
}

// RegisterRoutes registers the member routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/members")
	group.Post("/", h.HandleUpsert)
	group.Post("/destroy", h.HandleDestroyBulk)
	group.Post("/suggestions/run", h.HandleRunSuggestions)
	group.Get("/:id", h.HandleGet)
	group.Put("/:id", h.HandleUpdate)
	group.Get("/:id/suggestions", h.HandleListSuggestions)
	group.Put("/:id/merge/:toMergeId", h.HandleMerge)
	group.Put("/:id/suggest/:toMergeId", h.HandleSuggestMerge)
	group.Delete("/:id/suggest/:toMergeId", h.HandleDismissSuggestion)
	group.Put("/:id/no-merge/:otherId", h.HandleMarkNoMerge)
}

// HandleGet returns one member with its identities.
// @Summary Get Member
// @Description Get a member by ID, identities included.
// @Tags members
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} models.Member "Member"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /members/{id} [get]
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}

	member, err := h.service.FindByID(c.Context(), scope, id)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(member)
}

// HandleUpsert creates a member or folds the payload into the member
// already owning one of its identities.
// @Summary Upsert Member
// @Description Create a member, or enrich the one owning an incoming identity.
// @Tags members
// @Accept json
// @Produce json
// @Param payload body UpsertInput true "Member payload"
// @Success 200 {object} models.Member "Member"
// @Failure 400 {object} map[string]string "Validation Error"
// @Failure 409 {object} map[string]string "Identity Conflict"
// @Router /members [post]
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

	member, err := h.service.Upsert(c.Context(), scope, input)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(member)
}

// HandleUpdate overwrites the provided fields of one member.
// @Summary Update Member
// @Tags members
// @Accept json
// @Produce json
// @Param id path string true "Member ID"
// @Param payload body UpdateInput true "Member payload"
// @Success 200 {object} models.Member "Member"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Identity Conflict"
// @Router /members/{id} [put]
func (h *Handler) HandleUpdate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}

	var input UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, l, apperr.NewValidation("invalid payload: %v", err))
	}

	member, err := h.service.Update(c.Context(), scope, id, input)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(member)
}

// HandleMerge merges the second member into the first.
// @Summary Merge Members
// @Description Merge toMergeId into id. The first member survives.
// @Tags members
// @Produce json
// @Param id path string true "Surviving Member ID"
// @Param toMergeId path string true "Member ID to merge in"
// @Success 200 {object} MergeResult "Merge Result"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /members/{id}/merge/{toMergeId} [put]
func (h *Handler) HandleMerge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	originalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}
	toMergeID, err := uuid.Parse(c.Params("toMergeId"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}

	result, err := h.service.Merge(c.Context(), scope, originalID, toMergeID)
	if err != nil {
		l.Error("member merge failed",
			zap.String("originalId", originalID.String()),
			zap.String("toMergeId", toMergeID.String()),
			zap.Error(err))
		return respondError(c, l, err)
	}
	return c.JSON(result)
}

// HandleSuggestMerge records a manual merge suggestion for a pair.
// @Summary Suggest Merge
// @Tags members
// @Produce json
// @Param id path string true "Member ID"
// @Param toMergeId path string true "Candidate Member ID"
// @Success 204 "Recorded"
// @Router /members/{id}/suggest/{toMergeId} [put]
func (h *Handler) HandleSuggestMerge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	memberID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}
	toMergeID, err := uuid.Parse(c.Params("toMergeId"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}

	if err := h.service.SuggestMerge(c.Context(), scope, memberID, toMergeID, nil); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleDismissSuggestion withdraws a standing suggestion for a pair.
// @Summary Dismiss Merge Suggestion
// @Description Remove the candidate edge in both directions without excluding the pair.
// @Tags members
// @Produce json
// @Param id path string true "Member ID"
// @Param toMergeId path string true "Candidate Member ID"
// @Success 204 "Removed"
// @Router /members/{id}/suggest/{toMergeId} [delete]
func (h *Handler) HandleDismissSuggestion(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	memberID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}
	toMergeID, err := uuid.Parse(c.Params("toMergeId"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}

	if err := h.service.DismissSuggestion(c.Context(), scope, memberID, toMergeID); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleMarkNoMerge marks a pair as confirmed-not-duplicates.
// @Summary Mark No-Merge
// @Tags members
// @Produce json
// @Param id path string true "Member ID"
// @Param otherId path string true "Other Member ID"
// @Success 204 "Recorded"
// @Router /members/{id}/no-merge/{otherId} [put]
func (h *Handler) HandleMarkNoMerge(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	memberID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}
	otherID, err := uuid.Parse(c.Params("otherId"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}

	if err := h.service.MarkNoMerge(c.Context(), scope, memberID, otherID); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListSuggestions returns the candidate edges of one member.
// @Summary List Merge Suggestions
// @Tags members
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {array} models.MemberToMerge "Suggestions"
// @Router /members/{id}/suggestions [get]
func (h *Handler) HandleListSuggestions(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}
	memberID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, l, apperr.NewValidation("invalid member id"))
	}

	edges, err := h.service.FindMergeSuggestions(c.Context(), scope, memberID)
	if err != nil {
		return respondError(c, l, err)
	}
	return c.JSON(edges)
}

// HandleDestroyBulk deletes members in bulk.
// @Summary Destroy Members
// @Tags members
// @Accept json
// @Produce json
// @Param payload body object true "IDs payload"
// @Success 204 "Deleted"
// @Router /members/destroy [post]
func (h *Handler) HandleDestroyBulk(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	var payload struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return respondError(c, l, apperr.NewValidation("invalid payload: %v", err))
	}

	if err := h.service.DestroyBulk(c.Context(), scope, payload.IDs); err != nil {
		return respondError(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRunSuggestions runs the suggestion generators for the scope.
// @Summary Run Suggestion Generators
// @Tags members
// @Produce json
// @Success 200 {object} map[string]int "Edge count"
// @Router /members/suggestions/run [post]
func (h *Handler) HandleRunSuggestions(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.log, c)
	scope, err := tenant.FromRequest(c)
	if err != nil {
		return respondError(c, l, err)
	}

	count, err := h.engine.Run(c.Context(), scope)
	if err != nil {
		l.Error("suggestion run failed", zap.Error(err))
		return respondError(c, l, err)
	}
	return c.JSON(fiber.Map{"edges": count})
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, l *zap.Logger, err error) error {
	status := apperr.HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		l.Error("request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
