package importer

import (
	"fmt"

	"trackgeo/internal/fault"
	"trackgeo/internal/legacy"
	"trackgeo/internal/limits"
	"trackgeo/internal/mcgeom"
	"trackgeo/internal/medium"
	"trackgeo/internal/verbose"
	"trackgeo/pkg/geometry"

	"go.uber.org/zap"
)

// legacyStrategy translates the flat legacy tables into the native graph.
type legacyStrategy struct {
	*verbose.Level
	fill    filler
	builder *legacy.Builder
}

func newLegacyStrategy(logger *zap.Logger) *legacyStrategy {
	lvl := verbose.NewLevel("legacyImport", 0)
	return &legacyStrategy{
		Level: lvl,
		fill:  filler{component: "LegacyTableImport", level: lvl, logger: logger},
	}
}

func (s *legacyStrategy) Kind() Kind { return Legacy }

func (s *legacyStrategy) Close(*Workspace) error { return nil }

func (s *legacyStrategy) MCGeometry(ws *Workspace) mcgeom.Geometry {
	if s.builder == nil || s.builder.Tables() != ws.Legacy {
		s.builder = legacy.NewBuilder(ws.Legacy)
	}
	return s.builder
}

// treeBuilder holds the translation state of one PopulateGraph run.
type treeBuilder struct {
	tables    *legacy.Tables
	graph     *geometry.Graph
	materials map[int]*geometry.Material
	built     map[string]*geometry.LogicalVolume
	logger    *zap.Logger
	level     *verbose.Level
}

// PopulateGraph converts the materials, resolves MANY positions into boolean
// solids, builds the volume tree from the first volume and places it as the
// world with copy number 1.
func (s *legacyStrategy) PopulateGraph(ws *Workspace) error {
	const method = "PopulateGraph"
	s.fill.enter(method)
	if ws.Legacy.Empty() {
		return fault.Fatal(s.fill.component, method, "geometry was not defined via the legacy tables")
	}
	tb := &treeBuilder{
		tables:    ws.Legacy,
		graph:     ws.Graph,
		materials: make(map[int]*geometry.Material),
		built:     make(map[string]*geometry.LogicalVolume),
		logger:    s.fill.logger,
		level:     s.Level,
	}
	if err := tb.convertMaterials(); err != nil {
		return fault.Wrap(s.fill.component, method, err)
	}
	first := ws.Legacy.Volumes[0]
	root, err := tb.build(first.Name)
	if err != nil {
		return fault.Wrap(s.fill.component, method, err)
	}
	if ws.Graph.World() == nil {
		world, err := ws.Graph.Place(first.Name, root, nil, 1, geometry.Identity())
		if err != nil {
			return fault.Wrap(s.fill.component, method, err)
		}
		if err := ws.Graph.SetWorld(world); err != nil {
			return fault.Wrap(s.fill.component, method, err)
		}
	}
	if s.Enabled(1) {
		s.fill.logger.Info("legacy volume table statistics",
			zap.Int("volumes", len(ws.Legacy.Volumes)),
			zap.Int("positions", len(ws.Legacy.Positions)),
			zap.Int("translated", len(tb.built)))
	}
	return nil
}

func (tb *treeBuilder) convertMaterials() error {
	table := tb.graph.Materials()
	for _, m := range tb.tables.Materials {
		if existing, ok := table.Get(m.Name); ok {
			tb.materials[m.ID] = existing
			continue
		}
		mat, err := table.Add(m.Name, m.Z, m.A, m.Density, m.RadLen)
		if err != nil {
			return err
		}
		tb.materials[m.ID] = mat
	}
	return nil
}

// build returns the logical volume of name, creating it and placing its
// daughters on first use. Cycles are rejected by Graph.Place.
func (tb *treeBuilder) build(name string) (*geometry.LogicalVolume, error) {
	if lv, ok := tb.built[name]; ok {
		return lv, nil
	}

	vol, ok := tb.tables.Volume(name)
	if !ok {
		return nil, fmt.Errorf("%w %s", mcgeom.ErrUnknownVolume, name)
	}
	solid, err := tb.solid(vol)
	if err != nil {
		return nil, err
	}
	med, ok := tb.tables.Medium(vol.MediumID)
	if !ok {
		return nil, fmt.Errorf("volume %s: %w %d", name, mcgeom.ErrUnknownMedium, vol.MediumID)
	}
	lv, err := tb.graph.NewLogicalVolume(name, solid, tb.materials[med.MaterialID])
	if err != nil {
		return nil, err
	}
	if err := tb.graph.BindLegacyID(lv, vol.ID); err != nil {
		return nil, err
	}
	tb.built[name] = lv
	if tb.level.Enabled(3) {
		tb.logger.Debug("built volume", zap.String("volume", name), zap.Int("id", vol.ID))
	}

	for _, pos := range tb.tables.PositionsIn(name) {
		child, err := tb.build(pos.Volume)
		if err != nil {
			return nil, err
		}
		rot, ok := tb.tables.Rotation(pos.MatrixID)
		if !ok {
			return nil, fmt.Errorf("position %s: %w %d", pos.Volume, mcgeom.ErrUnknownMatrix, pos.MatrixID)
		}
		if rot.IsReflection() {
			// factor the reflection out of the placement into the volume
			rot = rot.Mul(geometry.ReflectZ())
			if child, err = tb.graph.Reflect(child); err != nil {
				return nil, err
			}
		}
		tr := geometry.Transform{Rotation: rot, Translation: pos.Pos}
		if _, err := tb.graph.Place(child.Name(), child, lv, pos.CopyNo, tr); err != nil {
			return nil, err
		}
	}
	return lv, nil
}

// solid builds the shape of vol. A volume positioned MANY has every ONLY
// sibling in the same mother subtracted from its shape, so the ONLY volumes
// win where they overlap. MANY volumes may be positioned only once.
func (tb *treeBuilder) solid(vol legacy.Volume) (geometry.Solid, error) {
	solid, err := geometry.NewSolid(vol.Shape, vol.Params)
	if err != nil {
		return nil, fmt.Errorf("volume %s: %w", vol.Name, err)
	}
	positions := tb.tables.PositionsOf(vol.Name)
	many := false
	for _, p := range positions {
		if !p.Only {
			many = true
		}
	}
	if !many {
		return solid, nil
	}
	if len(positions) > 1 {
		return nil, fmt.Errorf("volume %s: MANY volume positioned more than once is not supported", vol.Name)
	}
	self := positions[0]
	selfTr, err := tb.transform(self)
	if err != nil {
		return nil, err
	}
	for _, sib := range tb.tables.PositionsIn(self.Mother) {
		if sib.Volume == vol.Name || !sib.Only {
			continue
		}
		sv, ok := tb.tables.Volume(sib.Volume)
		if !ok {
			return nil, fmt.Errorf("%w %s", mcgeom.ErrUnknownVolume, sib.Volume)
		}
		other, err := geometry.NewSolid(sv.Shape, sv.Params)
		if err != nil {
			return nil, fmt.Errorf("volume %s: %w", sv.Name, err)
		}
		sibTr, err := tb.transform(sib)
		if err != nil {
			return nil, err
		}
		solid = geometry.Boolean{
			Op:        geometry.Subtraction,
			A:         solid,
			B:         other,
			Transform: selfTr.Inverse().Compose(sibTr),
		}
	}
	return solid, nil
}

func (tb *treeBuilder) transform(p legacy.Position) (geometry.Transform, error) {
	rot, ok := tb.tables.Rotation(p.MatrixID)
	if !ok {
		return geometry.Transform{}, fmt.Errorf("position %s: %w %d", p.Volume, mcgeom.ErrUnknownMatrix, p.MatrixID)
	}
	return geometry.Transform{Rotation: rot, Translation: p.Pos}, nil
}

// FillMediums creates a medium per legacy medium entry and maps every volume
// through its legacy medium id, then discards the tables.
func (s *legacyStrategy) FillMediums(ws *Workspace, mm *medium.Map) error {
	const method = "FillMediumMapFromLegacy"
	s.fill.enter(method)
	tables := ws.Legacy
	for _, entry := range tables.Media {
		if s.Enabled(3) {
			s.fill.logger.Debug("adding medium", zap.Int("id", entry.ID))
		}
		med, err := mm.AddMedium(entry.ID, false)
		if err != nil {
			return fault.Wrap(s.fill.component, method, err)
		}
		med.Name = entry.Name
		if entry.Params.SteMax > 0 {
			med.Limits = limits.NewRecord(entry.Name, entry.Params.SteMax)
		}
		if m, ok := tables.Material(entry.MaterialID); ok {
			med.Material, _ = ws.Graph.Materials().Get(m.Name)
		}
		if med.Material == nil {
			return fault.Fatal(s.fill.component, method, "medium %s: material %d not found", entry.Name, entry.MaterialID)
		}
	}
	for _, lv := range ws.Graph.LogicalVolumes() {
		name := geometry.StripReflectionSuffix(lv.Name())
		vol, ok := tables.Volume(name)
		if !ok {
			if lv.IsAssembly() {
				continue
			}
			return fault.Fatal(s.fill.component, method, "volume %s not found in the legacy tables", name)
		}
		if s.Enabled(3) {
			s.fill.logger.Debug("mapping medium", zap.Int("id", vol.MediumID), zap.String("volume", lv.Name()))
		}
		if err := mm.MapMedium(lv, vol.MediumID); err != nil {
			return fault.Wrap(s.fill.component, method, err)
		}
	}
	tables.Clear()
	return s.fill.verifyCoverage(ws.Graph, mm)
}
