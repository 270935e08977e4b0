package core

import (
	"trackgeo/internal/importer"
	"trackgeo/internal/worker"
)

// Application is implemented by detector-specific code. Each callback runs
// exactly once per job, in the order ConstructGeometry, MisalignGeometry,
// ConstructOpGeometry.
type Application interface {
	ConstructGeometry(ws *importer.Workspace) error
	MisalignGeometry(ws *importer.Workspace) error
	ConstructOpGeometry(ws *importer.Workspace) error
}

// Callbacks adapts plain functions to Application; nil fields are no-ops.
type Callbacks struct {
	Geometry   func(ws *importer.Workspace) error
	Misalign   func(ws *importer.Workspace) error
	OpGeometry func(ws *importer.Workspace) error
}

func (c Callbacks) ConstructGeometry(ws *importer.Workspace) error { return call(c.Geometry, ws) }

func (c Callbacks) MisalignGeometry(ws *importer.Workspace) error { return call(c.Misalign, ws) }

func (c Callbacks) ConstructOpGeometry(ws *importer.Workspace) error { return call(c.OpGeometry, ws) }

func call(fn func(ws *importer.Workspace) error, ws *importer.Workspace) error {
	if fn == nil {
		return nil
	}
	return fn(ws)
}

// RegionConstruction is the optional user region callback.
type RegionConstruction interface {
	Construct() error
}

// RegionFunc adapts a function to RegionConstruction.
type RegionFunc func() error

// Construct implements RegionConstruction.
func (f RegionFunc) Construct() error { return f() }

// SensitiveDetectors registers sensitive volumes for a worker.
type SensitiveDetectors interface {
	Initialize(id worker.ID) error
}
