package organization

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-hub/core/events"
	"community-hub/core/storage"

	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature wires the organization feature.
func NewFeature(db *gorm.DB, emitter events.Emitter, archive *storage.Archive, logger *zap.Logger) *Feature {
	graph := NewGraph(db)
	svc := NewService(db, graph, emitter, archive, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "organization"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the organization service for commands.
func (f *Feature) Service() *Service {
	return f.service
}
