// Package blob is the entry point to the geometry document stores. Callers
// depend on Store; the backends under internal/infra/blob are only reached
// through this package.
package blob

import "trackgeo/internal/blob/core"

type (
	Driver     = core.Driver
	Format     = core.Format
	PutOptions = core.PutOptions
	Info       = core.Info
	Store      = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory

	FormatYAML = core.FormatYAML
	FormatJSON = core.FormatJSON
)

var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
	ErrBadKey   = core.ErrBadKey
)
