// Package geometry is the native volume graph the translation layer produces:
// materials, solids, logical volumes and their placements, and the two volume
// identification schemes (native handle and legacy numeric ID).
package geometry

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateMaterial = errors.New("duplicate material")
	ErrDuplicateVolume   = errors.New("duplicate logical volume")
	ErrUnknownVolume     = errors.New("unknown logical volume")
	ErrLegacyIDInUse     = errors.New("legacy volume id already bound")
	ErrPlacementCycle    = errors.New("placement would create a cycle")
	ErrUnsupportedShape  = errors.New("unsupported shape")
	ErrNoWorld           = errors.New("world volume not set")
)

// Graph owns the native material table, the logical and physical volume
// stores, and the identity indexes.
type Graph struct {
	materials  *MaterialTable
	logicals   []*LogicalVolume
	physicals  []*PhysicalVolume
	byHandle   map[Handle]*LogicalVolume
	byName     map[string]*LogicalVolume
	byLegacy   map[int]*LogicalVolume
	nextHandle Handle
	world      *PhysicalVolume
}

// NewGraph constructs an empty graph.
func NewGraph() *Graph {
	return &Graph{
		materials: NewMaterialTable(),
		byHandle:  make(map[Handle]*LogicalVolume),
		byName:    make(map[string]*LogicalVolume),
		byLegacy:  make(map[int]*LogicalVolume),
	}
}

// Materials returns the native material table.
func (g *Graph) Materials() *MaterialTable { return g.materials }

// NewLogicalVolume registers a volume. A nil material is accepted here; the
// medium fill decides whether that is fatal.
func (g *Graph) NewLogicalVolume(name string, solid Solid, material *Material) (*LogicalVolume, error) {
	if solid == nil {
		return nil, fmt.Errorf("logical volume %s: solid required", name)
	}
	return g.register(name, solid, material, false)
}

// NewAssembly registers a pure grouping volume.
func (g *Graph) NewAssembly(name string) (*LogicalVolume, error) {
	return g.register(name, nil, nil, true)
}

func (g *Graph) register(name string, solid Solid, material *Material, assembly bool) (*LogicalVolume, error) {
	if name == "" {
		return nil, fmt.Errorf("logical volume name required")
	}
	if _, exists := g.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVolume, name)
	}
	g.nextHandle++
	lv := &LogicalVolume{
		identity: VolumeIdentity{Handle: g.nextHandle, Name: name},
		Solid:    solid,
		Material: material,
		assembly: assembly,
	}
	g.logicals = append(g.logicals, lv)
	g.byHandle[lv.identity.Handle] = lv
	g.byName[name] = lv
	return lv, nil
}

// Place positions lv inside mother. A nil mother creates a top-level placement
// that can be designated as the world.
func (g *Graph) Place(name string, lv, mother *LogicalVolume, copyNo int, tr Transform) (*PhysicalVolume, error) {
	if lv == nil {
		return nil, fmt.Errorf("place %s: %w", name, ErrUnknownVolume)
	}
	if name == "" {
		name = lv.Name()
	}
	if mother != nil {
		if _, ok := g.byHandle[mother.Handle()]; !ok {
			return nil, fmt.Errorf("place %s in %s: %w", name, mother.Name(), ErrUnknownVolume)
		}
		if lv.contains(mother) {
			return nil, fmt.Errorf("place %s in %s: %w", name, mother.Name(), ErrPlacementCycle)
		}
	}
	pv := &PhysicalVolume{Name: name, Logical: lv, Mother: mother, CopyNo: copyNo, Transform: tr}
	if mother != nil {
		mother.daughters = append(mother.daughters, pv)
	}
	g.physicals = append(g.physicals, pv)
	return pv, nil
}

// SetWorld designates a top-level placement as the world.
func (g *Graph) SetWorld(pv *PhysicalVolume) error {
	if pv == nil {
		return ErrNoWorld
	}
	if pv.Mother != nil {
		return fmt.Errorf("world %s must not have a mother", pv.Name)
	}
	g.world = pv
	return nil
}

// World returns the world placement, nil before one is set.
func (g *Graph) World() *PhysicalVolume { return g.world }

// Reflect returns the reflected copy of lv, creating it (and reflected copies
// of its daughters) on first use. The copy is named lv's name plus ReflectionSuffix
// and shares lv's legacy ID.
func (g *Graph) Reflect(lv *LogicalVolume) (*LogicalVolume, error) {
	if lv == nil {
		return nil, ErrUnknownVolume
	}
	if lv.original != nil {
		return lv.original, nil
	}
	if lv.reflected != nil {
		return lv.reflected, nil
	}
	var solid Solid
	if lv.Solid != nil {
		solid = Reflected{Solid: lv.Solid}
	}
	refl, err := g.register(lv.Name()+ReflectionSuffix, solid, lv.Material, lv.assembly)
	if err != nil {
		return nil, err
	}
	refl.identity.LegacyID = lv.identity.LegacyID
	refl.original = lv
	lv.reflected = refl
	mirror := Transform{Rotation: ReflectZ()}
	for _, d := range lv.daughters {
		child, err := g.Reflect(d.Logical)
		if err != nil {
			return nil, err
		}
		tr := mirror.Compose(d.Transform).Compose(mirror)
		if _, err := g.Place(d.Name, child, refl, d.CopyNo, tr); err != nil {
			return nil, err
		}
	}
	return refl, nil
}

// BindLegacyID records the legacy numeric ID of lv. An ID can be bound to one
// volume only (reflected copies share their original's ID).
func (g *Graph) BindLegacyID(lv *LogicalVolume, id int) error {
	if lv == nil {
		return ErrUnknownVolume
	}
	if owner, ok := g.byLegacy[id]; ok && owner != lv {
		return fmt.Errorf("%w: %d (%s, %s)", ErrLegacyIDInUse, id, owner.Name(), lv.Name())
	}
	g.byLegacy[id] = lv
	v := id
	lv.identity.LegacyID = &v
	if lv.reflected != nil {
		lv.reflected.identity.LegacyID = &v
	}
	return nil
}

// LogicalVolume looks a volume up by handle.
func (g *Graph) LogicalVolume(h Handle) (*LogicalVolume, bool) {
	lv, ok := g.byHandle[h]
	return lv, ok
}

// LogicalVolumeByName looks a volume up by exact name.
func (g *Graph) LogicalVolumeByName(name string) (*LogicalVolume, bool) {
	lv, ok := g.byName[name]
	return lv, ok
}

// LogicalVolumeByLegacyID looks a volume up by legacy ID.
func (g *Graph) LogicalVolumeByLegacyID(id int) (*LogicalVolume, bool) {
	lv, ok := g.byLegacy[id]
	return lv, ok
}

// VolumeID returns the legacy ID of the named volume, matching modulo the
// reflection suffix.
func (g *Graph) VolumeID(name string) (int, bool) {
	lv, ok := g.byName[StripReflectionSuffix(name)]
	if !ok || lv.identity.LegacyID == nil {
		return 0, false
	}
	return *lv.identity.LegacyID, true
}

// VolumeName returns the name of the volume bound to a legacy ID.
func (g *Graph) VolumeName(id int) (string, bool) {
	lv, ok := g.byLegacy[id]
	if !ok {
		return "", false
	}
	return lv.Name(), true
}

// LogicalVolumes returns all logical volumes in creation order.
func (g *Graph) LogicalVolumes() []*LogicalVolume {
	out := make([]*LogicalVolume, len(g.logicals))
	copy(out, g.logicals)
	return out
}

// PhysicalVolumes returns all placements in creation order.
func (g *Graph) PhysicalVolumes() []*PhysicalVolume {
	out := make([]*PhysicalVolume, len(g.physicals))
	copy(out, g.physicals)
	return out
}

// NofLogicalVolumes returns the size of the logical volume store.
func (g *Graph) NofLogicalVolumes() int { return len(g.logicals) }

// NofPhysicalVolumes returns the size of the physical volume store.
func (g *Graph) NofPhysicalVolumes() int { return len(g.physicals) }

// Walk visits the placement tree depth first from the world.
func (g *Graph) Walk(fn func(pv *PhysicalVolume, depth int) error) error {
	if g.world == nil {
		return ErrNoWorld
	}
	var visit func(pv *PhysicalVolume, depth int) error
	visit = func(pv *PhysicalVolume, depth int) error {
		if err := fn(pv, depth); err != nil {
			return err
		}
		for _, d := range pv.Logical.daughters {
			if err := visit(d, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(g.world, 0)
}

// ReachableLogicalVolumes returns each logical volume reachable from the world
// once, in visit order.
func (g *Graph) ReachableLogicalVolumes() ([]*LogicalVolume, error) {
	seen := make(map[Handle]struct{})
	var out []*LogicalVolume
	err := g.Walk(func(pv *PhysicalVolume, _ int) error {
		if _, ok := seen[pv.Logical.Handle()]; ok {
			return nil
		}
		seen[pv.Logical.Handle()] = struct{}{}
		out = append(out, pv.Logical)
		return nil
	})
	return out, err
}
