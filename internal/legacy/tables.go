// Package legacy holds the flat, numerically indexed geometry tables of the
// legacy definition format and the builder that fills them.
package legacy

import (
	"trackgeo/internal/mcgeom"
	"trackgeo/pkg/geometry"
)

// Material is a legacy material entry.
type Material struct {
	ID      int
	Name    string
	A       float64
	Z       float64
	Density float64
	RadLen  float64
	AbsLen  float64
}

// Medium is a legacy tracking medium entry.
type Medium struct {
	ID         int
	Name       string
	MaterialID int
	Params     mcgeom.MediumParams
}

// Volume is a legacy volume entry.
type Volume struct {
	ID       int
	Name     string
	Shape    string
	MediumID int
	Params   []float64
}

// Position places a volume inside a mother volume.
type Position struct {
	Volume   string
	CopyNo   int
	Mother   string
	Pos      geometry.Vector3
	MatrixID int
	Only     bool
}

// Tables is the whole legacy definition. Entries are stored in definition
// order; IDs are positions plus one.
type Tables struct {
	Materials []Material
	Media     []Medium
	Volumes   []Volume
	Positions []Position
	Rotations []geometry.Rotation
}

// NewTables constructs empty tables.
func NewTables() *Tables { return &Tables{} }

// Empty reports whether no volume was defined.
func (t *Tables) Empty() bool { return t == nil || len(t.Volumes) == 0 }

// Material returns the material with the given id.
func (t *Tables) Material(id int) (Material, bool) {
	if id < 1 || id > len(t.Materials) {
		return Material{}, false
	}
	return t.Materials[id-1], true
}

// Medium returns the medium with the given id.
func (t *Tables) Medium(id int) (Medium, bool) {
	if id < 1 || id > len(t.Media) {
		return Medium{}, false
	}
	return t.Media[id-1], true
}

// Rotation returns the rotation matrix with the given id; 0 is the identity.
func (t *Tables) Rotation(id int) (geometry.Rotation, bool) {
	if id == 0 {
		return geometry.IdentityRotation(), true
	}
	if id < 1 || id > len(t.Rotations) {
		return geometry.Rotation{}, false
	}
	return t.Rotations[id-1], true
}

// Volume looks a volume up by name.
func (t *Tables) Volume(name string) (Volume, bool) {
	for _, v := range t.Volumes {
		if v.Name == name {
			return v, true
		}
	}
	return Volume{}, false
}

// VolumeByID returns the volume with the given id.
func (t *Tables) VolumeByID(id int) (Volume, bool) {
	if id < 1 || id > len(t.Volumes) {
		return Volume{}, false
	}
	return t.Volumes[id-1], true
}

// PositionsIn returns the positions whose mother is the named volume.
func (t *Tables) PositionsIn(mother string) []Position {
	var out []Position
	for _, p := range t.Positions {
		if p.Mother == mother {
			out = append(out, p)
		}
	}
	return out
}

// PositionsOf returns the positions of the named volume.
func (t *Tables) PositionsOf(name string) []Position {
	var out []Position
	for _, p := range t.Positions {
		if p.Volume == name {
			out = append(out, p)
		}
	}
	return out
}

// Clear discards every table.
func (t *Tables) Clear() {
	t.Materials = nil
	t.Media = nil
	t.Volumes = nil
	t.Positions = nil
	t.Rotations = nil
}
