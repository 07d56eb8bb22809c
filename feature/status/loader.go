package status

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const timeLayout = time.RFC3339

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
}

// NewFeature creates the status feature.
func NewFeature(store Store, stats StatsProvider, maxRetries int, ttl time.Duration, logger *zap.Logger) *Feature {
	return &Feature{handler: NewHandler(NewService(store, stats, maxRetries, ttl, logger))}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "status"
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
