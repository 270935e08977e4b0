// Package field creates and updates the per-worker magnetic field adapters.
package field

import (
	"sync"

	"trackgeo/internal/fault"
	"trackgeo/internal/verbose"
	"trackgeo/internal/worker"
	"trackgeo/pkg/geometry"

	"go.uber.org/zap"
)

const component = "FieldController"

// Field evaluates the magnetic field (kG) at a point (cm).
type Field interface {
	Value(p geometry.Vector3) geometry.Vector3
}

// Uniform is a constant field.
type Uniform geometry.Vector3

// Value implements Field.
func (u Uniform) Value(geometry.Vector3) geometry.Vector3 { return geometry.Vector3(u) }

// Engine reports the field configured by the application; nil means none.
type Engine interface {
	MagField() Field
}

// EngineFunc adapts a function to Engine.
type EngineFunc func() Field

// MagField implements Engine.
func (f EngineFunc) MagField() Field { return f() }

// Adapter binds the application field to one worker.
type Adapter struct {
	mu      sync.RWMutex
	worker  worker.ID
	field   Field
	params  Parameters
	updates int
}

// Worker returns the owning worker.
func (a *Adapter) Worker() worker.ID { return a.worker }

// Value evaluates the underlying field.
func (a *Adapter) Value(p geometry.Vector3) geometry.Vector3 { return a.field.Value(p) }

// Parameters returns the parameters in force.
func (a *Adapter) Parameters() Parameters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.params
}

// Updates returns how many times parameters were pushed after creation.
func (a *Adapter) Updates() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.updates
}

// Update pushes new parameters.
func (a *Adapter) Update(p Parameters) {
	a.mu.Lock()
	a.params = p
	a.updates++
	a.mu.Unlock()
}

// Controller owns one adapter per worker.
type Controller struct {
	*verbose.Level
	engine   Engine
	workers  *worker.Registry
	logger   *zap.Logger
	mu       sync.Mutex
	params   Parameters
	adapters map[worker.ID]*Adapter
}

// NewController builds a controller. A nil engine means no field is ever configured.
func NewController(engine Engine, workers *worker.Registry, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers == nil {
		workers = worker.NewRegistry()
	}
	return &Controller{
		Level:    verbose.NewLevel("fieldController", 0),
		engine:   engine,
		workers:  workers,
		logger:   logger,
		params:   DefaultParameters(),
		adapters: make(map[worker.ID]*Adapter),
	}
}

// SetParameters replaces the parameters used by new adapters and by UpdateMagField.
func (c *Controller) SetParameters(p Parameters) error {
	if err := p.Validate(); err != nil {
		return fault.Wrap(component, "SetParameters", err)
	}
	c.mu.Lock()
	c.params = p
	c.mu.Unlock()
	return nil
}

// Parameters returns the current parameters.
func (c *Controller) Parameters() Parameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// ConstructMagField creates the adapter of worker id when the engine reports a
// field. It returns nil when no field is configured. Calling it again for the
// same worker returns the existing adapter.
func (c *Controller) ConstructMagField(id worker.ID) *Adapter {
	if c.Enabled(2) {
		c.logger.Debug("ConstructMagField", zap.Int("worker", int(id)))
	}
	if c.engine == nil {
		return nil
	}
	f := c.engine.MagField()
	if f == nil {
		return nil
	}

	c.mu.Lock()
	if existing, ok := c.adapters[id]; ok {
		c.mu.Unlock()
		return existing
	}
	adapter := &Adapter{worker: id, field: f, params: c.params}
	c.adapters[id] = adapter
	c.mu.Unlock()

	if c.Enabled(1) {
		c.logger.Info("magnetic field constructed",
			zap.Int("worker", int(id)),
			zap.String("stepper", StepperTypeName(adapter.params.Stepper)))
	}
	c.workers.Register(id, "magnetic-field", func() error {
		c.release(id)
		return nil
	})
	return adapter
}

// UpdateMagField pushes the current parameters into the adapter of worker id.
// A missing adapter is a warning, reported by the false return.
func (c *Controller) UpdateMagField(id worker.ID) bool {
	c.mu.Lock()
	adapter, ok := c.adapters[id]
	params := c.params
	c.mu.Unlock()
	if !ok {
		fault.Warning(c.logger, component, "UpdateMagField", "No magnetic field is defined.")
		return false
	}
	if c.Enabled(1) {
		c.logger.Info("updating magnetic field", zap.Int("worker", int(id)))
	}
	adapter.Update(params)
	return true
}

// Adapter returns the adapter of worker id.
func (c *Controller) Adapter(id worker.ID) (*Adapter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.adapters[id]
	return a, ok
}

// NofAdapters returns the number of live adapters.
func (c *Controller) NofAdapters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.adapters)
}

func (c *Controller) release(id worker.ID) {
	c.mu.Lock()
	delete(c.adapters, id)
	c.mu.Unlock()
}
