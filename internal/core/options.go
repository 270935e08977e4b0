package core

import (
	"trackgeo/internal/field"
	"trackgeo/internal/importer"
	"trackgeo/internal/limits"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option customises a GeometryManager.
type Option func(*managerConfig)

type managerConfig struct {
	caps             importer.Capabilities
	app              Application
	fieldEngine      field.Engine
	fieldParams      *field.Parameters
	sd               SensitiveDetectors
	region           RegionConstruction
	limits           limits.Config
	interchangeMedia importer.MediaSource
	logger           *zap.Logger
	metrics          *Metrics
	tracer           trace.Tracer
	verbose          int
}

func defaultManagerConfig() managerConfig {
	return managerConfig{
		caps:             importer.AllCapabilities(),
		limits:           limits.DefaultConfig(),
		interchangeMedia: importer.MaterialIndexMedia,
	}
}

// WithCapabilities restricts the import paths available to the manager.
func WithCapabilities(c importer.Capabilities) Option {
	return func(cfg *managerConfig) { cfg.caps = c }
}

// WithApplication installs the construction callbacks.
func WithApplication(app Application) Option {
	return func(cfg *managerConfig) { cfg.app = app }
}

// WithFieldEngine installs the source of the magnetic field.
func WithFieldEngine(e field.Engine) Option {
	return func(cfg *managerConfig) { cfg.fieldEngine = e }
}

// WithFieldParameters overrides the default field parameters.
func WithFieldParameters(p field.Parameters) Option {
	return func(cfg *managerConfig) { cfg.fieldParams = &p }
}

// WithSensitiveDetectors installs the per-worker sensitive detector setup.
func WithSensitiveDetectors(sd SensitiveDetectors) Option {
	return func(cfg *managerConfig) { cfg.sd = sd }
}

// WithRegionConstruction installs the user region callback.
func WithRegionConstruction(r RegionConstruction) Option {
	return func(cfg *managerConfig) { cfg.region = r }
}

// WithLimits sets the limits policy configuration.
func WithLimits(c limits.Config) Option {
	return func(cfg *managerConfig) { cfg.limits = c }
}

// WithInterchangeMedia selects the interchange medium fill.
func WithInterchangeMedia(s importer.MediaSource) Option {
	return func(cfg *managerConfig) { cfg.interchangeMedia = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *managerConfig) { cfg.logger = l }
}

// WithMetrics enables prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(cfg *managerConfig) { cfg.metrics = m }
}

// WithTracer sets the tracer used for construction spans.
func WithTracer(t trace.Tracer) Option {
	return func(cfg *managerConfig) { cfg.tracer = t }
}

// WithVerboseLevel sets the initial verbose level of every component.
func WithVerboseLevel(level int) Option {
	return func(cfg *managerConfig) { cfg.verbose = level }
}
