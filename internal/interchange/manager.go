// Package interchange is the engine-neutral hierarchical geometry model that
// an alternate geometry engine builds before the native graph exists. It must
// be closed before it can be exported.
package interchange

import (
	"errors"
	"fmt"

	"trackgeo/internal/mcgeom"
	"trackgeo/pkg/geometry"
)

var (
	ErrClosed    = errors.New("geometry is closed")
	ErrNotClosed = errors.New("geometry is not closed")
	ErrEmpty     = errors.New("geometry has no volumes")
)

// Material is an interchange material; Index is its table position.
type Material struct {
	Index   int
	Name    string
	A       float64
	Z       float64
	Density float64
	RadLen  float64
}

// Medium is an interchange tracking medium.
type Medium struct {
	ID       int
	Name     string
	Material *Material
	Params   mcgeom.MediumParams
}

// Volume is a shape with a medium, or an assembly without either.
type Volume struct {
	Number   int
	Name     string
	Solid    geometry.Solid
	Medium   *Medium
	Assembly bool
	Nodes    []*Node
}

// Node places a volume inside a mother.
type Node struct {
	Name        string
	Volume      *Volume
	Mother      *Volume
	CopyNo      int
	Transform   geometry.Transform
	Overlapping bool
}

// Manager owns the interchange geometry.
type Manager struct {
	materials []*Material
	matByName map[string]*Material
	media     map[int]*Medium
	mediaIDs  []int
	volumes   []*Volume
	byName    map[string]*Volume
	top       *Volume
	closed    bool
}

// NewManager constructs an open, empty geometry.
func NewManager() *Manager {
	return &Manager{
		matByName: make(map[string]*Material),
		media:     make(map[int]*Medium),
		byName:    make(map[string]*Volume),
	}
}

func (m *Manager) checkOpen(what string) error {
	if m.closed {
		return fmt.Errorf("%s: %w", what, ErrClosed)
	}
	return nil
}

// AddMaterial appends a material.
func (m *Manager) AddMaterial(name string, a, z, density, radLen float64) (*Material, error) {
	if err := m.checkOpen("add material " + name); err != nil {
		return nil, err
	}
	if _, ok := m.matByName[name]; ok {
		return nil, fmt.Errorf("material %s already defined", name)
	}
	mat := &Material{Index: len(m.materials), Name: name, A: a, Z: z, Density: density, RadLen: radLen}
	m.materials = append(m.materials, mat)
	m.matByName[name] = mat
	return mat, nil
}

// AddMedium defines medium id made of the named material.
func (m *Manager) AddMedium(id int, name, material string, p mcgeom.MediumParams) (*Medium, error) {
	if err := m.checkOpen("add medium " + name); err != nil {
		return nil, err
	}
	mat, ok := m.matByName[material]
	if !ok {
		return nil, fmt.Errorf("medium %s: %w %s", name, mcgeom.ErrUnknownMaterial, material)
	}
	if _, exists := m.media[id]; exists {
		return nil, fmt.Errorf("medium %d already defined", id)
	}
	med := &Medium{ID: id, Name: name, Material: mat, Params: p}
	m.media[id] = med
	m.mediaIDs = append(m.mediaIDs, id)
	return med, nil
}

// AddVolume defines a volume filled with medium mediumID.
func (m *Manager) AddVolume(name string, solid geometry.Solid, mediumID int) (*Volume, error) {
	if solid == nil {
		return nil, fmt.Errorf("volume %s: solid required", name)
	}
	med, ok := m.media[mediumID]
	if !ok {
		return nil, fmt.Errorf("volume %s: %w %d", name, mcgeom.ErrUnknownMedium, mediumID)
	}
	return m.addVolume(name, solid, med, false)
}

// AddAssembly defines a pure grouping volume.
func (m *Manager) AddAssembly(name string) (*Volume, error) {
	return m.addVolume(name, nil, nil, true)
}

func (m *Manager) addVolume(name string, solid geometry.Solid, med *Medium, assembly bool) (*Volume, error) {
	if err := m.checkOpen("add volume " + name); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("volume name required")
	}
	if _, exists := m.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", mcgeom.ErrDuplicateVolume, name)
	}
	v := &Volume{Number: len(m.volumes) + 1, Name: name, Solid: solid, Medium: med, Assembly: assembly}
	m.volumes = append(m.volumes, v)
	m.byName[name] = v
	return v, nil
}

// AddNode places the named volume inside the named mother.
func (m *Manager) AddNode(volume, mother string, copyNo int, tr geometry.Transform, overlapping bool) (*Node, error) {
	if err := m.checkOpen("add node " + volume); err != nil {
		return nil, err
	}
	v, ok := m.byName[volume]
	if !ok {
		return nil, fmt.Errorf("node: %w %s", mcgeom.ErrUnknownVolume, volume)
	}
	mo, ok := m.byName[mother]
	if !ok {
		return nil, fmt.Errorf("node %s: %w %s", volume, mcgeom.ErrUnknownVolume, mother)
	}
	if v == mo || contains(v, mo) {
		return nil, fmt.Errorf("node %s in %s: %w", volume, mother, geometry.ErrPlacementCycle)
	}
	n := &Node{
		Name:        fmt.Sprintf("%s_%d", volume, copyNo),
		Volume:      v,
		Mother:      mo,
		CopyNo:      copyNo,
		Transform:   tr,
		Overlapping: overlapping,
	}
	mo.Nodes = append(mo.Nodes, n)
	return n, nil
}

func contains(root, target *Volume) bool {
	for _, n := range root.Nodes {
		if n.Volume == target || contains(n.Volume, target) {
			return true
		}
	}
	return false
}

// SetTopVolume designates the top volume.
func (m *Manager) SetTopVolume(name string) error {
	if err := m.checkOpen("set top volume"); err != nil {
		return err
	}
	v, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("top volume: %w %s", mcgeom.ErrUnknownVolume, name)
	}
	m.top = v
	return nil
}

// CloseGeometry freezes the geometry. Without a designated top volume the
// first defined volume becomes the top.
func (m *Manager) CloseGeometry() error {
	if m.closed {
		return nil
	}
	if len(m.volumes) == 0 {
		return ErrEmpty
	}
	if m.top == nil {
		m.top = m.volumes[0]
	}
	m.closed = true
	return nil
}

// IsClosed reports whether CloseGeometry ran.
func (m *Manager) IsClosed() bool { return m.closed }

// TopVolume returns the top volume, nil before one is set or resolved.
func (m *Manager) TopVolume() *Volume { return m.top }

// Volume looks a volume up by name.
func (m *Manager) Volume(name string) (*Volume, bool) {
	v, ok := m.byName[name]
	return v, ok
}

// Volumes returns the volumes in definition order.
func (m *Manager) Volumes() []*Volume {
	out := make([]*Volume, len(m.volumes))
	copy(out, m.volumes)
	return out
}

// Materials returns the materials in definition order.
func (m *Manager) Materials() []*Material {
	out := make([]*Material, len(m.materials))
	copy(out, m.materials)
	return out
}

// Medium looks a medium up by id.
func (m *Manager) Medium(id int) (*Medium, bool) {
	med, ok := m.media[id]
	return med, ok
}

// Media returns the media in definition order.
func (m *Manager) Media() []*Medium {
	out := make([]*Medium, 0, len(m.mediaIDs))
	for _, id := range m.mediaIDs {
		out = append(out, m.media[id])
	}
	return out
}
