// Package runner executes a geometry job: one construction on the master
// followed by the concurrent per-worker sensitive detector and field setup.
package runner

import (
	"context"
	"errors"
	"fmt"

	"trackgeo/internal/config"
	"trackgeo/internal/core"
	"trackgeo/internal/field"
	"trackgeo/internal/limits"
	"trackgeo/internal/source"
	"trackgeo/internal/worker"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Deps are the ambient services of a job.
type Deps struct {
	Logger  *zap.Logger
	Metrics *core.Metrics
	Tracer  trace.Tracer
	// Extra options are applied after the configuration-derived ones.
	Extra []core.Option
}

// Setup creates the job and its geometry manager from cfg. A non-nil doc
// becomes the construction callbacks.
func Setup(cfg *config.Config, doc *source.Document, deps Deps) (*core.Job, *core.GeometryManager, error) {
	kind, err := cfg.Kind()
	if err != nil {
		return nil, nil, err
	}
	media, err := cfg.MediaSource()
	if err != nil {
		return nil, nil, err
	}
	params, err := cfg.FieldParameters()
	if err != nil {
		return nil, nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []core.Option{
		core.WithCapabilities(cfg.Capabilities),
		core.WithLimits(cfg.LimitsConfig()),
		core.WithInterchangeMedia(media),
		core.WithFieldParameters(params),
		core.WithVerboseLevel(cfg.Verbose),
		core.WithMetrics(deps.Metrics),
	}
	if deps.Tracer != nil {
		opts = append(opts, core.WithTracer(deps.Tracer))
	}
	if u := cfg.Field.Uniform; len(u) == 3 {
		value := field.Uniform{X: u[0], Y: u[1], Z: u[2]}
		opts = append(opts, core.WithFieldEngine(field.EngineFunc(func() field.Field { return value })))
	}
	if doc != nil {
		opts = append(opts, core.WithApplication(source.NewApplication(doc, logger)))
	}
	opts = append(opts, deps.Extra...)
	job := core.NewJob(logger)
	m, err := job.NewGeometryManager(kind, opts...)
	if err != nil {
		return nil, nil, err
	}
	return job, m, nil
}

// Options control Run. A zero Controls is read as "no control set"; the
// literal zero vector would inactivate every process.
type Options struct {
	Workers  int
	Cuts     limits.CutVector
	Controls limits.ControlVector
}

// Result summarizes a finished job.
type Result struct {
	JobID           uuid.UUID
	Source          string
	LogicalVolumes  int
	PhysicalVolumes int
	Media           int
	LimitsRecords   int
	Workers         int
	FieldAdapters   int
}

// Run constructs the geometry, installs the user limits and brings up the
// workers concurrently. Every worker's resources are released before Run
// returns, also on failure.
func Run(ctx context.Context, job *core.Job, m *core.GeometryManager, opts Options) (Result, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Controls == (limits.ControlVector{}) {
		opts.Controls = limits.NewControlVector()
	}
	if err := m.ConstructGeometry(ctx); err != nil {
		return Result{}, err
	}
	if err := m.FinishGeometry(); err != nil {
		return Result{}, err
	}
	if err := m.SetUserLimits(opts.Cuts, opts.Controls); err != nil {
		return Result{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= opts.Workers; i++ {
		id := worker.ID(i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := m.ConstructSDAndField(gctx, id); err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
			if _, ok := m.FieldController().Adapter(id); ok {
				m.UpdateMagField(id)
			}
			return nil
		})
	}
	runErr := g.Wait()

	res := Result{
		JobID:           job.ID,
		Source:          string(m.Source()),
		LogicalVolumes:  m.Graph().NofLogicalVolumes(),
		PhysicalVolumes: m.Graph().NofPhysicalVolumes(),
		Media:           m.MediumMap().NofMedia(),
		LimitsRecords:   m.LimitsRegistry().Len(),
		Workers:         opts.Workers,
		FieldAdapters:   m.FieldController().NofAdapters(),
	}
	var teardownErr error
	for i := 1; i <= opts.Workers; i++ {
		teardownErr = errors.Join(teardownErr, job.Workers.Teardown(worker.ID(i)))
	}
	if err := errors.Join(runErr, teardownErr); err != nil {
		return res, err
	}
	return res, nil
}
