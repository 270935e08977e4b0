package interchange

import (
	"fmt"

	"trackgeo/internal/mcgeom"
	"trackgeo/pkg/geometry"
)

// Builder defines interchange geometry through mcgeom.Geometry.
type Builder struct {
	mgr       *Manager
	rotations []geometry.Rotation
}

var _ mcgeom.Geometry = (*Builder)(nil)

// NewBuilder returns a builder writing into m.
func NewBuilder(m *Manager) *Builder { return &Builder{mgr: m} }

// Manager returns the manager being filled.
func (b *Builder) Manager() *Manager { return b.mgr }

func (b *Builder) Material(name string, a, z, density, radLen, _ float64) (int, error) {
	mat, err := b.mgr.AddMaterial(name, a, z, density, radLen)
	if err != nil {
		return 0, err
	}
	return mat.Index + 1, nil
}

func (b *Builder) Medium(name string, materialID int, p mcgeom.MediumParams) (int, error) {
	if materialID < 1 || materialID > len(b.mgr.materials) {
		return 0, fmt.Errorf("medium %s: %w %d", name, mcgeom.ErrUnknownMaterial, materialID)
	}
	id := len(b.mgr.mediaIDs) + 1
	if _, err := b.mgr.AddMedium(id, name, b.mgr.materials[materialID-1].Name, p); err != nil {
		return 0, err
	}
	return id, nil
}

func (b *Builder) Matrix(theta1, phi1, theta2, phi2, theta3, phi3 float64) (int, error) {
	b.rotations = append(b.rotations, geometry.RotationFromAngles(theta1, phi1, theta2, phi2, theta3, phi3))
	return len(b.rotations), nil
}

func (b *Builder) Volume(name, shape string, mediumID int, params []float64) (int, error) {
	solid, err := geometry.NewSolid(shape, params)
	if err != nil {
		return 0, fmt.Errorf("volume %s: %w", name, err)
	}
	v, err := b.mgr.AddVolume(name, solid, mediumID)
	if err != nil {
		return 0, err
	}
	return v.Number, nil
}

func (b *Builder) Position(name string, copyNo int, mother string, pos geometry.Vector3, matrixID int, only bool) error {
	rot := geometry.IdentityRotation()
	if matrixID != 0 {
		if matrixID < 1 || matrixID > len(b.rotations) {
			return fmt.Errorf("position %s: %w %d", name, mcgeom.ErrUnknownMatrix, matrixID)
		}
		rot = b.rotations[matrixID-1]
	}
	tr := geometry.Transform{Rotation: rot, Translation: pos}
	_, err := b.mgr.AddNode(name, mother, copyNo, tr, !only)
	return err
}

func (b *Builder) VolumeID(name string) (int, bool) {
	v, ok := b.mgr.Volume(geometry.StripReflectionSuffix(name))
	if !ok {
		return 0, false
	}
	return v.Number, true
}

func (b *Builder) VolumeName(id int) (string, bool) {
	if id < 1 || id > len(b.mgr.volumes) {
		return "", false
	}
	return b.mgr.volumes[id-1].Name, true
}

func (b *Builder) MediumID(volumeName string) (int, bool) {
	v, ok := b.mgr.Volume(geometry.StripReflectionSuffix(volumeName))
	if !ok || v.Medium == nil {
		return 0, false
	}
	return v.Medium.ID, true
}

func (b *Builder) NofVolumes() int { return len(b.mgr.volumes) }
