package logger

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the logger described by cfg. Output always goes to stderr so that
// --format json on stdout stays machine readable.
func New(cfg *Config) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if cfg.Level == "debug" {
		config = zap.NewDevelopmentConfig()
	} else if lvl, err := zapcore.ParseLevel(cfg.Level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	enc := &config.EncoderConfig
	switch cfg.Format {
	case "console":
		config.Encoding = "console"
		config.DisableStacktrace = true
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		config.Encoding = "json"
		config.InitialFields = map[string]any{"service": "ledger-sync"}
		enc.EncodeTime = zapcore.RFC3339TimeEncoder
	}
	enc.LevelKey, enc.TimeKey, enc.MessageKey = "level", "time", "message"
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build()
}

// WithRayID returns a logger with the ray_id field set from the Fiber context.
func WithRayID(l *zap.Logger, c *fiber.Ctx) *zap.Logger {
	rid := c.Locals("ray_id")
	if str, ok := rid.(string); ok && str != "" {
		return l.With(zap.String("ray_id", str))
	}
	return l
}

// WithRun returns a logger tagged with a sync run id.
func WithRun(l *zap.Logger, runID string) *zap.Logger {
	if runID == "" {
		return l
	}
	return l.With(zap.String("run_id", runID))
}
