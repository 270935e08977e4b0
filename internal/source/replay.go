package source

import (
	"fmt"

	"trackgeo/internal/importer"
	"trackgeo/internal/mcgeom"
	"trackgeo/pkg/geometry"
)

// Define replays the document through the virtual definition interface in
// document order. Assembly volumes are handed to assembly; a nil assembly
// rejects them.
func (d *Document) Define(g mcgeom.Geometry, assembly func(name string) error) error {
	materials := make(map[string]int, len(d.Materials))
	for _, m := range d.Materials {
		id, err := g.Material(m.Name, m.A, m.Z, m.Density, m.RadLen, m.AbsLen)
		if err != nil {
			return fmt.Errorf("material %s: %w", m.Name, err)
		}
		materials[m.Name] = id
	}
	media := make(map[string]int, len(d.Media))
	for _, m := range d.Media {
		matID, ok := materials[m.Material]
		if !ok {
			return fmt.Errorf("medium %s: %w material %s", m.Name, ErrUnknownReference, m.Material)
		}
		id, err := g.Medium(m.Name, matID, m.Params())
		if err != nil {
			return fmt.Errorf("medium %s: %w", m.Name, err)
		}
		media[m.Name] = id
	}
	rotations := make(map[string]int, len(d.Rotations))
	for _, r := range d.Rotations {
		id, err := g.Matrix(r.Theta1, r.Phi1, r.Theta2, r.Phi2, r.Theta3, r.Phi3)
		if err != nil {
			return fmt.Errorf("rotation %s: %w", r.Name, err)
		}
		rotations[r.Name] = id
	}
	for _, v := range d.Volumes {
		if v.Assembly {
			if assembly == nil {
				return fmt.Errorf("volume %s: %w", v.Name, ErrAssembly)
			}
			if err := assembly(v.Name); err != nil {
				return fmt.Errorf("assembly %s: %w", v.Name, err)
			}
			continue
		}
		medID, ok := media[v.Medium]
		if !ok {
			return fmt.Errorf("volume %s: %w medium %s", v.Name, ErrUnknownReference, v.Medium)
		}
		if _, err := g.Volume(v.Name, v.Shape, medID, v.Params); err != nil {
			return fmt.Errorf("volume %s: %w", v.Name, err)
		}
	}
	for _, p := range d.Positions {
		rotID := 0
		if p.Rotation != "" {
			id, ok := rotations[p.Rotation]
			if !ok {
				return fmt.Errorf("position %s: %w rotation %s", p.Volume, ErrUnknownReference, p.Rotation)
			}
			rotID = id
		}
		if err := g.Position(p.Volume, p.CopyNo, p.Mother, p.translation(), rotID, !p.Many); err != nil {
			return fmt.Errorf("position %s in %s: %w", p.Volume, p.Mother, err)
		}
	}
	return nil
}

func (p Position) translation() geometry.Vector3 {
	if len(p.At) != 3 {
		return geometry.Vector3{}
	}
	return geometry.Vector3{X: p.At[0], Y: p.At[1], Z: p.At[2]}
}

// BuildNative authors the document directly in the native graph and places
// the top volume as the world.
func (d *Document) BuildNative(g *geometry.Graph) error {
	for _, m := range d.Materials {
		if _, err := g.Materials().Add(m.Name, m.Z, m.A, m.Density, m.RadLen); err != nil {
			return err
		}
	}
	mediumMaterial := make(map[string]string, len(d.Media))
	for _, m := range d.Media {
		mediumMaterial[m.Name] = m.Material
	}
	volumes := make(map[string]*geometry.LogicalVolume, len(d.Volumes))
	for _, v := range d.Volumes {
		var (
			lv  *geometry.LogicalVolume
			err error
		)
		if v.Assembly {
			lv, err = g.NewAssembly(v.Name)
		} else {
			lv, err = d.nativeVolume(g, v, mediumMaterial)
		}
		if err != nil {
			return fmt.Errorf("volume %s: %w", v.Name, err)
		}
		volumes[v.Name] = lv
	}
	rotations := make(map[string]geometry.Rotation, len(d.Rotations))
	for _, r := range d.Rotations {
		rotations[r.Name] = geometry.RotationFromAngles(r.Theta1, r.Phi1, r.Theta2, r.Phi2, r.Theta3, r.Phi3)
	}
	for _, p := range d.Positions {
		lv, ok := volumes[p.Volume]
		if !ok {
			return fmt.Errorf("position: %w volume %s", ErrUnknownReference, p.Volume)
		}
		mother, ok := volumes[p.Mother]
		if !ok {
			return fmt.Errorf("position %s: %w mother %s", p.Volume, ErrUnknownReference, p.Mother)
		}
		tr := geometry.Transform{Rotation: geometry.IdentityRotation(), Translation: p.translation()}
		if p.Rotation != "" {
			rot, ok := rotations[p.Rotation]
			if !ok {
				return fmt.Errorf("position %s: %w rotation %s", p.Volume, ErrUnknownReference, p.Rotation)
			}
			tr.Rotation = rot
		}
		if _, err := g.Place("", lv, mother, p.CopyNo, tr); err != nil {
			return err
		}
	}
	top := d.TopVolume()
	lv, ok := volumes[top]
	if !ok {
		return fmt.Errorf("world: %w volume %s", ErrUnknownReference, top)
	}
	world, err := g.Place(top, lv, nil, 1, geometry.Identity())
	if err != nil {
		return err
	}
	return g.SetWorld(world)
}

func (d *Document) nativeVolume(g *geometry.Graph, v Volume, mediumMaterial map[string]string) (*geometry.LogicalVolume, error) {
	matName, ok := mediumMaterial[v.Medium]
	if !ok {
		return nil, fmt.Errorf("%w medium %s", ErrUnknownReference, v.Medium)
	}
	mat, ok := g.Materials().Get(matName)
	if !ok {
		return nil, fmt.Errorf("%w material %s", ErrUnknownReference, matName)
	}
	solid, err := geometry.NewSolid(v.Shape, v.Params)
	if err != nil {
		return nil, err
	}
	return g.NewLogicalVolume(v.Name, solid, mat)
}

// TopVolume returns the designated top volume, the first volume otherwise.
func (d *Document) TopVolume() string {
	if d.Top != "" || len(d.Volumes) == 0 {
		return d.Top
	}
	return d.Volumes[0].Name
}

// FillTrackingMedia lists the document media with ids in definition order
// and assigns every shaped volume its medium.
func (d *Document) FillTrackingMedia(tm *importer.TrackingMedia) error {
	ids := make(map[string]int, len(d.Media))
	for i, m := range d.Media {
		ids[m.Name] = i + 1
		tm.Add(importer.TrackingMedium{ID: i + 1, Name: m.Name, Material: m.Material, MaxStep: m.MaxStep})
	}
	for _, v := range d.Volumes {
		if v.Assembly {
			continue
		}
		id, ok := ids[v.Medium]
		if !ok {
			return fmt.Errorf("volume %s: %w medium %s", v.Name, ErrUnknownReference, v.Medium)
		}
		tm.Assign(v.Name, id)
	}
	return nil
}
