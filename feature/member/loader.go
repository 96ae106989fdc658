package member

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"community-hub/core/events"
	"community-hub/core/storage"
	"community-hub/feature/settings"

	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	engine  *SuggestionEngine
	handler *Handler
}

// NewFeature wires the member feature: graph store, service,
// suggestion engine and HTTP handler.
func NewFeature(db *gorm.DB, settingsSvc *settings.Service, emitter events.Emitter,
	archive *storage.Archive, logger *zap.Logger, suggestionLookback time.Duration) *Feature {

	graph := NewGraph(db)
	svc := NewService(db, graph, settingsSvc, emitter, archive, logger)
	engine := NewSuggestionEngine(db, graph, logger, suggestionLookback)
	h := NewHandler(svc, engine)
	return &Feature{service: svc, engine: engine, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "member"
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

// Service exposes the member service for other features and commands.
func (f *Feature) Service() *Service {
	return f.service
}

// Engine exposes the suggestion engine for batch commands.
func (f *Feature) Engine() *SuggestionEngine {
	return f.engine
}
