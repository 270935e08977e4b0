package core

import (
	"sync"

	"trackgeo/internal/fault"
	"trackgeo/internal/importer"
	"trackgeo/internal/verbose"
	"trackgeo/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job is the context of one simulation job. It owns the single geometry
// manager, the per-worker resources and the verbose registry.
type Job struct {
	ID      uuid.UUID
	Workers *worker.Registry
	Verbose *verbose.Registry

	mu      sync.Mutex
	manager *GeometryManager
	logger  *zap.Logger
}

// NewJob creates a job context.
func NewJob(logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New()
	return &Job{
		ID:      id,
		Workers: worker.NewRegistry(),
		Verbose: verbose.NewRegistry(),
		logger:  logger.With(zap.String("job", id.String())),
	}
}

// NewGeometryManager creates the job's geometry manager for the given source.
// A job has at most one manager; a second call is fatal.
func (j *Job) NewGeometryManager(source importer.Kind, opts ...Option) (*GeometryManager, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.manager != nil {
		return nil, fault.Fatal(managerComponent, "NewGeometryManager", "Cannot create two instances of singleton.")
	}
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = j.logger
	}
	m, err := newGeometryManager(j, source, cfg)
	if err != nil {
		return nil, err
	}
	j.manager = m
	return m, nil
}

// GeometryManager returns the job's manager, nil before one was created.
func (j *Job) GeometryManager() *GeometryManager {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.manager
}

// Teardown releases every worker resource of the job.
func (j *Job) Teardown() error {
	return j.Workers.TeardownAll()
}
