package legacy

import (
	"fmt"
	"strings"

	"trackgeo/internal/mcgeom"
	"trackgeo/pkg/geometry"
)

// Builder fills Tables through the mcgeom.Geometry interface.
type Builder struct {
	tables *Tables
}

var _ mcgeom.Geometry = (*Builder)(nil)

// NewBuilder returns a builder writing into t.
func NewBuilder(t *Tables) *Builder { return &Builder{tables: t} }

// Tables returns the tables being filled.
func (b *Builder) Tables() *Tables { return b.tables }

func (b *Builder) Material(name string, a, z, density, radLen, absLen float64) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("material name required")
	}
	if density < 0 {
		return 0, fmt.Errorf("material %s: negative density %g", name, density)
	}
	id := len(b.tables.Materials) + 1
	b.tables.Materials = append(b.tables.Materials, Material{
		ID: id, Name: name, A: a, Z: z, Density: density, RadLen: radLen, AbsLen: absLen,
	})
	return id, nil
}

func (b *Builder) Medium(name string, materialID int, p mcgeom.MediumParams) (int, error) {
	if _, ok := b.tables.Material(materialID); !ok {
		return 0, fmt.Errorf("medium %s: %w %d", name, mcgeom.ErrUnknownMaterial, materialID)
	}
	id := len(b.tables.Media) + 1
	b.tables.Media = append(b.tables.Media, Medium{ID: id, Name: name, MaterialID: materialID, Params: p})
	return id, nil
}

func (b *Builder) Matrix(theta1, phi1, theta2, phi2, theta3, phi3 float64) (int, error) {
	b.tables.Rotations = append(b.tables.Rotations, geometry.RotationFromAngles(theta1, phi1, theta2, phi2, theta3, phi3))
	return len(b.tables.Rotations), nil
}

func (b *Builder) Volume(name, shape string, mediumID int, params []float64) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("volume name required")
	}
	if _, exists := b.tables.Volume(name); exists {
		return 0, fmt.Errorf("%w: %s", mcgeom.ErrDuplicateVolume, name)
	}
	if _, ok := b.tables.Medium(mediumID); !ok {
		return 0, fmt.Errorf("volume %s: %w %d", name, mcgeom.ErrUnknownMedium, mediumID)
	}
	if _, err := geometry.NewSolid(shape, params); err != nil {
		return 0, fmt.Errorf("volume %s: %w", name, err)
	}
	id := len(b.tables.Volumes) + 1
	b.tables.Volumes = append(b.tables.Volumes, Volume{
		ID: id, Name: name, Shape: shape, MediumID: mediumID, Params: append([]float64(nil), params...),
	})
	return id, nil
}

func (b *Builder) Position(name string, copyNo int, mother string, pos geometry.Vector3, matrixID int, only bool) error {
	if _, ok := b.tables.Volume(name); !ok {
		return fmt.Errorf("position: %w %s", mcgeom.ErrUnknownVolume, name)
	}
	if _, ok := b.tables.Volume(mother); !ok {
		return fmt.Errorf("position %s: %w %s", name, mcgeom.ErrUnknownVolume, mother)
	}
	if _, ok := b.tables.Rotation(matrixID); !ok {
		return fmt.Errorf("position %s: %w %d", name, mcgeom.ErrUnknownMatrix, matrixID)
	}
	b.tables.Positions = append(b.tables.Positions, Position{
		Volume: name, CopyNo: copyNo, Mother: mother, Pos: pos, MatrixID: matrixID, Only: only,
	})
	return nil
}

// VolumeID matches the name modulo the reflection suffix.
func (b *Builder) VolumeID(name string) (int, bool) {
	v, ok := b.tables.Volume(geometry.StripReflectionSuffix(name))
	return v.ID, ok
}

func (b *Builder) VolumeName(id int) (string, bool) {
	v, ok := b.tables.VolumeByID(id)
	return v.Name, ok
}

func (b *Builder) MediumID(volumeName string) (int, bool) {
	v, ok := b.tables.Volume(geometry.StripReflectionSuffix(volumeName))
	return v.MediumID, ok
}

func (b *Builder) NofVolumes() int { return len(b.tables.Volumes) }
