package core

import (
	"context"
	"sync"
	"time"

	"trackgeo/internal/fault"
	"trackgeo/internal/field"
	"trackgeo/internal/importer"
	"trackgeo/internal/limits"
	"trackgeo/internal/mcgeom"
	"trackgeo/internal/medium"
	"trackgeo/internal/state"
	"trackgeo/internal/verbose"
	"trackgeo/internal/worker"
	"trackgeo/pkg/geometry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const managerComponent = "GeometryManager"

// GeometryManager drives the construction of the native geometry of a job
// and owns the medium map, the limits registry and the field controller.
// After FinishGeometry its state is read-only.
type GeometryManager struct {
	*verbose.Level

	job       *Job
	strategy  importer.Strategy
	ws        *importer.Workspace
	mediumMap *medium.Map
	registry  *limits.Registry
	policy    *limits.Policy
	states    *state.Machine
	field     *field.Controller
	app       Application
	sd        SensitiveDetectors
	logger    *zap.Logger
	metrics   *Metrics
	tracer    trace.Tracer

	mu          sync.Mutex
	constructed bool
	finished    bool
	world       *geometry.PhysicalVolume

	regionMu   sync.Mutex
	region     RegionConstruction
	regionDone bool
}

func newGeometryManager(j *Job, source importer.Kind, cfg managerConfig) (*GeometryManager, error) {
	if err := cfg.limits.Validate(); err != nil {
		return nil, fault.Wrap(managerComponent, "NewGeometryManager", err)
	}
	strategy, err := importer.New(source, cfg.caps, cfg.logger)
	if err != nil {
		return nil, fault.Wrap(managerComponent, "NewGeometryManager", err)
	}
	tracer := cfg.tracer
	if tracer == nil {
		tracer = otel.Tracer("trackgeo.core")
	}
	app := cfg.app
	if app == nil {
		app = Callbacks{}
	}
	m := &GeometryManager{
		Level:     verbose.NewLevel("geometryManager", cfg.verbose),
		job:       j,
		strategy:  strategy,
		ws:        importer.NewWorkspace(),
		mediumMap: medium.NewMap(cfg.logger),
		registry:  limits.NewRegistry(),
		policy:    limits.NewPolicy(cfg.limits),
		states:    state.NewMachine(),
		field:     field.NewController(cfg.fieldEngine, j.Workers, cfg.logger),
		app:       app,
		sd:        cfg.sd,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		tracer:    tracer,
		region:    cfg.region,
	}
	m.ws.InterchangeMedia = cfg.interchangeMedia
	m.ws.MC = strategy.MCGeometry(m.ws)
	if cfg.fieldParams != nil {
		if err := m.field.SetParameters(*cfg.fieldParams); err != nil {
			return nil, err
		}
	}
	for _, v := range []verbose.Verbose{m, m.mediumMap, m.field, m.strategy} {
		v.SetVerboseLevel(cfg.verbose)
		if err := j.Verbose.Register(v); err != nil {
			return nil, fault.Wrap(managerComponent, "NewGeometryManager", err)
		}
	}
	m.states.OnTransition(func(from, to state.State) {
		if m.Enabled(2) {
			m.logger.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
		}
	})
	return m, nil
}

// ConstructGeometry runs the construction callbacks, builds the native graph
// with the selected strategy and fills the medium map. It runs once per job.
func (m *GeometryManager) ConstructGeometry(ctx context.Context) (err error) {
	const method = "ConstructGeometry"
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.constructed {
		return fault.Fatal(managerComponent, method, "geometry has already been constructed")
	}
	m.constructed = true

	ctx, span := m.tracer.Start(ctx, "core.ConstructGeometry",
		trace.WithAttributes(attribute.String("source", string(m.strategy.Kind()))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "construction failed")
		}
		span.End()
		m.metrics.construction(string(m.strategy.Kind()), err)
	}()
	if m.Enabled(2) {
		m.logger.Debug(managerComponent+"::"+method, zap.String("source", string(m.strategy.Kind())))
	}

	if err := m.runPhase(ctx, "callbacks", m.runGeometryCallbacks); err != nil {
		return err
	}
	if err := m.runPhase(ctx, "populate", func() error {
		return fault.Wrap(managerComponent, method, m.strategy.PopulateGraph(m.ws))
	}); err != nil {
		return err
	}
	if m.Enabled(1) {
		m.logger.Info("native geometry statistics",
			zap.Int("logical_volumes", m.ws.Graph.NofLogicalVolumes()),
			zap.Int("physical_volumes", m.ws.Graph.NofPhysicalVolumes()))
	}
	if err := m.runPhase(ctx, "fill", m.fillMediumMap); err != nil {
		return err
	}
	if err := m.runPhase(ctx, "optical", m.runOpGeometryCallback); err != nil {
		return err
	}
	if err := m.constructRegions(); err != nil {
		return err
	}
	m.metrics.graph(m.ws.Graph.NofLogicalVolumes(), m.ws.Graph.NofPhysicalVolumes(), m.mediumMap.NofMedia())
	return nil
}

func (m *GeometryManager) runPhase(ctx context.Context, phase string, fn func() error) error {
	_, span := m.tracer.Start(ctx, "core.phase."+phase)
	defer span.End()
	start := time.Now()
	err := fn()
	m.metrics.observePhase(phase, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, phase+" failed")
	}
	return err
}

func (m *GeometryManager) runGeometryCallbacks() error {
	const method = "ConstructGeometry"
	if err := m.states.Set(state.ConstructGeometry); err != nil {
		return err
	}
	if err := m.app.ConstructGeometry(m.ws); err != nil {
		return fault.Wrap(managerComponent, method, err)
	}
	if err := m.strategy.Close(m.ws); err != nil {
		return err
	}
	if err := m.states.Set(state.MisalignGeometry); err != nil {
		return err
	}
	if err := m.app.MisalignGeometry(m.ws); err != nil {
		return fault.Wrap(managerComponent, "MisalignGeometry", err)
	}
	return m.states.Set(state.NotInApplication)
}

func (m *GeometryManager) runOpGeometryCallback() error {
	if err := m.states.Set(state.ConstructOpGeometry); err != nil {
		return err
	}
	if err := m.app.ConstructOpGeometry(m.ws); err != nil {
		return fault.Wrap(managerComponent, "ConstructOpGeometry", err)
	}
	return m.states.Set(state.NotInApplication)
}

func (m *GeometryManager) fillMediumMap() error {
	return fault.Wrap(managerComponent, "FillMediumMap", m.strategy.FillMediums(m.ws, m.mediumMap))
}

// constructRegions runs the user region callback at most once, whichever of
// ConstructGeometry and ConstructSDAndField gets there first.
func (m *GeometryManager) constructRegions() error {
	m.regionMu.Lock()
	defer m.regionMu.Unlock()
	if m.region == nil || m.regionDone {
		return nil
	}
	m.regionDone = true
	if m.Enabled(1) {
		m.logger.Info("constructing user regions")
	}
	return fault.Wrap(managerComponent, "ConstructUserRegions", m.region.Construct())
}

// ConstructSDAndField runs region construction if still pending, initializes
// the sensitive detectors of the worker and constructs its field adapter.
// Workers call it concurrently.
func (m *GeometryManager) ConstructSDAndField(ctx context.Context, id worker.ID) error {
	_, span := m.tracer.Start(ctx, "core.ConstructSDAndField",
		trace.WithAttributes(attribute.Int("worker", int(id))))
	defer span.End()
	if m.Enabled(2) {
		m.logger.Debug(managerComponent+"::ConstructSDAndField", zap.Int("worker", int(id)))
	}
	if err := m.constructRegions(); err != nil {
		span.RecordError(err)
		return err
	}
	if m.sd != nil {
		if err := m.sd.Initialize(id); err != nil {
			span.RecordError(err)
			return fault.Wrap(managerComponent, "ConstructSDAndField", err)
		}
	}
	adapter := m.field.ConstructMagField(id)
	m.metrics.field(adapter != nil)
	return nil
}

// FinishGeometry fills the medium map if nothing filled it yet and records
// the world. Repeated calls do nothing.
func (m *GeometryManager) FinishGeometry() error {
	const method = "FinishGeometry"
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finished {
		return nil
	}
	if m.Enabled(2) {
		m.logger.Debug(managerComponent + "::" + method)
	}
	world := m.ws.Graph.World()
	if world == nil {
		return fault.Wrap(managerComponent, method, geometry.ErrNoWorld)
	}
	if m.mediumMap.NofMedia() == 0 {
		if err := m.fillMediumMap(); err != nil {
			return err
		}
	}
	m.world = world
	m.finished = true
	m.metrics.graph(m.ws.Graph.NofLogicalVolumes(), m.ws.Graph.NofPhysicalVolumes(), m.mediumMap.NofMedia())
	return nil
}

// SetUserLimits installs a limits record on every volume bound to a medium.
// Records are shared through the registry by (medium name, cuts, controls)
// and the policy is applied to each of them in its fixed step order.
func (m *GeometryManager) SetUserLimits(cuts limits.CutVector, controls limits.ControlVector) error {
	const method = "SetUserLimits"
	if m.Enabled(2) {
		m.logger.Debug(managerComponent + "::" + method)
	}
	for _, lv := range m.ws.Graph.LogicalVolumes() {
		med, err := m.mediumMap.GetMedium(lv, false)
		if err != nil {
			return fault.Wrap(managerComponent, method, err)
		}
		if med == nil {
			continue
		}
		name := med.Name
		if name == "" {
			name = lv.Name()
		}
		rec, _ := m.registry.Resolve(med.Limits, name, cuts, controls)
		m.policy.Apply(rec, densityOf(med, lv), controls)
		lv.SetUserLimits(rec)
		med.Limits = rec
	}
	m.metrics.limits(m.registry.Len())
	return nil
}

func densityOf(med *medium.Medium, lv *geometry.LogicalVolume) float64 {
	switch {
	case med.Material != nil:
		return med.Material.Density
	case lv.Material != nil:
		return lv.Material.Density
	}
	return 0
}

// UpdateMagField pushes the current field parameters into the adapter of the
// worker. A missing adapter only logs a warning and returns false.
func (m *GeometryManager) UpdateMagField(id worker.ID) bool {
	ok := m.field.UpdateMagField(id)
	if !ok {
		m.metrics.fieldWarning()
	}
	return ok
}

// GetMCGeometry returns the virtual definition interface of the source.
// Natively authored sources have none, which is fatal.
func (m *GeometryManager) GetMCGeometry() (mcgeom.Geometry, error) {
	if m.ws.MC == nil {
		return nil, fault.Fatal(managerComponent, "GetMCGeometry", "No MC geometry defined.")
	}
	return m.ws.MC, nil
}

// SetIsUserMaxStep (in)activates the max step defined in the media.
func (m *GeometryManager) SetIsUserMaxStep(on bool) { m.policy.SetUserMaxStep(on) }

// SetIsMaxStepInLowDensityMaterials (in)activates the low-density ceiling.
func (m *GeometryManager) SetIsMaxStepInLowDensityMaterials(on bool) {
	m.policy.SetMaxStepInLowDensity(on)
}

// SetLimitDensity sets the density (g/cm3) below which the ceiling applies.
func (m *GeometryManager) SetLimitDensity(density float64) { m.policy.SetLimitDensity(density) }

// SetMaxStepInLowDensityMaterials sets the ceiling (cm).
func (m *GeometryManager) SetMaxStepInLowDensityMaterials(step float64) {
	m.policy.SetLowDensityMaxStep(step)
}

// SetUserRegionConstruction installs the region callback.
func (m *GeometryManager) SetUserRegionConstruction(r RegionConstruction) {
	m.regionMu.Lock()
	m.region = r
	m.regionMu.Unlock()
}

// SetFieldParameters replaces the field parameters.
func (m *GeometryManager) SetFieldParameters(p field.Parameters) error {
	return m.field.SetParameters(p)
}

func (m *GeometryManager) Graph() *geometry.Graph             { return m.ws.Graph }
func (m *GeometryManager) MediumMap() *medium.Map             { return m.mediumMap }
func (m *GeometryManager) LimitsRegistry() *limits.Registry   { return m.registry }
func (m *GeometryManager) LimitsPolicy() *limits.Policy       { return m.policy }
func (m *GeometryManager) FieldController() *field.Controller { return m.field }
func (m *GeometryManager) Workspace() *importer.Workspace     { return m.ws }
func (m *GeometryManager) Source() importer.Kind              { return m.strategy.Kind() }
func (m *GeometryManager) State() state.State                 { return m.states.Current() }
func (m *GeometryManager) StateHistory() []state.State        { return m.states.History() }

// World returns the world recorded by FinishGeometry.
func (m *GeometryManager) World() *geometry.PhysicalVolume {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.world
}
