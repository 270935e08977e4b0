package gm

import (
	"fmt"

	"trackgeo/pkg/geometry"
)

// NativeFactory exports a Model into the native graph.
type NativeFactory struct {
	graph *geometry.Graph
	world *geometry.PhysicalVolume
}

// NewNativeFactory writes into g.
func NewNativeFactory(g *geometry.Graph) *NativeFactory {
	return &NativeFactory{graph: g}
}

// Export implements Exporter. The top volume is placed as the world with copy
// number 0. Materials already present in the graph are reused by name.
func (f *NativeFactory) Export(m *Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	mats := f.graph.Materials()
	for _, mat := range m.Materials {
		if _, ok := mats.Get(mat.Name); ok {
			continue
		}
		if _, err := mats.Add(mat.Name, mat.Z, mat.A, mat.Density, mat.RadLen); err != nil {
			return err
		}
	}
	lvs := make(map[string]*geometry.LogicalVolume, len(m.Volumes))
	for _, v := range m.Volumes {
		var (
			lv  *geometry.LogicalVolume
			err error
		)
		if v.Assembly {
			lv, err = f.graph.NewAssembly(v.Name)
		} else {
			var mat *geometry.Material
			if v.Material != "" {
				mat, _ = mats.Get(v.Material)
			}
			lv, err = f.graph.NewLogicalVolume(v.Name, v.Solid, mat)
		}
		if err != nil {
			return err
		}
		lvs[v.Name] = lv
	}
	for _, p := range m.Placements {
		if _, err := f.graph.Place(p.Name, lvs[p.Volume], lvs[p.Mother], p.CopyNo, p.Transform); err != nil {
			return err
		}
	}
	world, err := f.graph.Place(m.Top, lvs[m.Top], nil, 0, geometry.Identity())
	if err != nil {
		return fmt.Errorf("place world: %w", err)
	}
	if err := f.graph.SetWorld(world); err != nil {
		return err
	}
	f.world = world
	return nil
}

// World returns the exported world placement.
func (f *NativeFactory) World() *geometry.PhysicalVolume { return f.world }
