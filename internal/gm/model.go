// Package gm is the generic geometry model used to move a geometry between
// engines: an importer factory reads a concrete geometry into the neutral
// Model, an exporter factory writes the Model out into another engine.
package gm

import (
	"errors"
	"fmt"

	"trackgeo/internal/interchange"
	"trackgeo/pkg/geometry"
)

var ErrNoTop = errors.New("model has no top volume")

// Material is a neutral material.
type Material struct {
	Name    string
	Z       float64
	A       float64
	Density float64
	RadLen  float64
}

// Volume is a neutral logical volume. Assemblies carry neither solid nor material.
type Volume struct {
	Name     string
	Solid    geometry.Solid
	Material string
	Assembly bool
}

// Placement positions Volume inside Mother. Overlapping marks a node the
// source declared as overlapping its siblings; the native graph has no such
// notion and places it as an ordinary daughter.
type Placement struct {
	Name        string
	Volume      string
	Mother      string
	CopyNo      int
	Transform   geometry.Transform
	Overlapping bool
}

// Model is an engine-neutral geometry. Volumes precede the placements that use them.
type Model struct {
	Materials  []Material
	Volumes    []Volume
	Placements []Placement
	Top        string
}

// Validate checks references inside the model.
func (m *Model) Validate() error {
	if m.Top == "" {
		return ErrNoTop
	}
	mats := make(map[string]struct{}, len(m.Materials))
	for _, mat := range m.Materials {
		mats[mat.Name] = struct{}{}
	}
	vols := make(map[string]struct{}, len(m.Volumes))
	for _, v := range m.Volumes {
		if !v.Assembly {
			if _, ok := mats[v.Material]; !ok && v.Material != "" {
				return fmt.Errorf("volume %s: unknown material %s", v.Name, v.Material)
			}
		}
		vols[v.Name] = struct{}{}
	}
	if _, ok := vols[m.Top]; !ok {
		return fmt.Errorf("top volume %s not defined", m.Top)
	}
	for _, p := range m.Placements {
		if _, ok := vols[p.Volume]; !ok {
			return fmt.Errorf("placement %s: unknown volume %s", p.Name, p.Volume)
		}
		if _, ok := vols[p.Mother]; !ok {
			return fmt.Errorf("placement %s: unknown mother %s", p.Name, p.Mother)
		}
	}
	return nil
}

// Importer reads a concrete geometry into a Model.
type Importer interface {
	Import() (*Model, error)
}

// Exporter writes a Model into a concrete geometry.
type Exporter interface {
	Export(m *Model) error
}

// InterchangeFactory imports a closed interchange geometry.
type InterchangeFactory struct {
	mgr *interchange.Manager
}

// NewInterchangeFactory wraps mgr.
func NewInterchangeFactory(mgr *interchange.Manager) *InterchangeFactory {
	return &InterchangeFactory{mgr: mgr}
}

// Import implements Importer.
func (f *InterchangeFactory) Import() (*Model, error) {
	if !f.mgr.IsClosed() {
		return nil, interchange.ErrNotClosed
	}
	top := f.mgr.TopVolume()
	if top == nil {
		return nil, ErrNoTop
	}
	m := &Model{Top: top.Name}
	for _, mat := range f.mgr.Materials() {
		m.Materials = append(m.Materials, Material{
			Name: mat.Name, Z: mat.Z, A: mat.A, Density: mat.Density, RadLen: mat.RadLen,
		})
	}
	for _, v := range f.mgr.Volumes() {
		nv := Volume{Name: v.Name, Solid: v.Solid, Assembly: v.Assembly}
		if v.Medium != nil {
			nv.Material = v.Medium.Material.Name
		}
		m.Volumes = append(m.Volumes, nv)
	}
	for _, v := range f.mgr.Volumes() {
		for _, n := range v.Nodes {
			m.Placements = append(m.Placements, Placement{
				Name:        n.Name,
				Volume:      n.Volume.Name,
				Mother:      v.Name,
				CopyNo:      n.CopyNo,
				Transform:   n.Transform,
				Overlapping: n.Overlapping,
			})
		}
	}
	return m, nil
}
