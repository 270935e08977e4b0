// Package mcgeom defines the virtual geometry definition interface through
// which construction callbacks describe materials, media and volumes when the
// geometry is not authored natively.
package mcgeom

import (
	"errors"

	"trackgeo/pkg/geometry"
)

var (
	ErrUnknownMaterial = errors.New("unknown material")
	ErrUnknownMedium   = errors.New("unknown medium")
	ErrUnknownVolume   = errors.New("unknown volume")
	ErrUnknownMatrix   = errors.New("unknown rotation matrix")
	ErrDuplicateVolume = errors.New("volume already defined")
)

// MediumParams are the tracking parameters of a medium. Only SteMax is used
// by the limits policy; the rest are carried for the definition's consumers.
type MediumParams struct {
	IsVol  int
	IField int
	FieldM float64
	TMaxFD float64
	SteMax float64
	DeeMax float64
	Epsil  float64
	StMin  float64
}

// Geometry is the definition surface shared by the legacy tables and the
// interchange manager. IDs returned by the definition calls are 1-based.
type Geometry interface {
	Material(name string, a, z, density, radLen, absLen float64) (int, error)
	Medium(name string, materialID int, p MediumParams) (int, error)
	Matrix(theta1, phi1, theta2, phi2, theta3, phi3 float64) (int, error)
	Volume(name, shape string, mediumID int, params []float64) (int, error)
	// Position places name inside mother. only=false marks a MANY placement
	// that may overlap its siblings.
	Position(name string, copyNo int, mother string, pos geometry.Vector3, matrixID int, only bool) error

	VolumeID(name string) (int, bool)
	VolumeName(id int) (string, bool)
	MediumID(volumeName string) (int, bool)
	NofVolumes() int
}
