package settings

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-hub/core/cache"

	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the settings feature.
func NewFeature(db *gorm.DB, c *cache.Cache, logger *zap.Logger) *Feature {
	svc := NewService(db, c, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "settings"
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

// Service exposes the settings service to other features.
func (f *Feature) Service() *Service {
	return f.service
}
