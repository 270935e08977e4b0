package importer

import (
	"trackgeo/internal/fault"
	"trackgeo/internal/limits"
	"trackgeo/internal/medium"
	"trackgeo/internal/verbose"
	"trackgeo/pkg/geometry"

	"go.uber.org/zap"
)

// filler carries what every fill path logs with.
type filler struct {
	component string
	level     *verbose.Level
	logger    *zap.Logger
}

func (f filler) enter(method string) {
	if f.level.Enabled(2) {
		f.logger.Debug(f.component+"::"+method, zap.String("component", f.component))
	}
}

// fillFromMaterials creates one medium per native material, with the material
// index as id, and maps every volume to the medium of its material.
func (f filler) fillFromMaterials(g *geometry.Graph, mm *medium.Map) error {
	const method = "FillMediumMapFromMaterials"
	f.enter(method)
	for _, mat := range g.Materials().All() {
		if f.level.Enabled(3) {
			f.logger.Debug("adding medium", zap.String("name", mat.Name), zap.Int("id", mat.Index))
		}
		med, err := mm.AddMedium(mat.Index, true)
		if err != nil {
			return fault.Wrap(f.component, method, err)
		}
		med.Name = mat.Name
		med.Material = mat
	}
	for _, lv := range g.LogicalVolumes() {
		if lv.Material == nil {
			if lv.IsAssembly() {
				continue
			}
			return fault.Fatal(f.component, method, "volume %s has no material defined", lv.Name())
		}
		if f.level.Enabled(3) {
			f.logger.Debug("mapping medium", zap.Int("id", lv.Material.Index), zap.String("volume", lv.Name()))
		}
		if err := mm.MapMedium(lv, lv.Material.Index); err != nil {
			return fault.Wrap(f.component, method, err)
		}
	}
	return nil
}

// fillFromTrackingMedia creates the listed media and maps volumes by name,
// ignoring the reflection suffix. Only the step ceiling of each entry is used.
func (f filler) fillFromTrackingMedia(g *geometry.Graph, tm *TrackingMedia, mm *medium.Map) error {
	const method = "FillMediumMapFromTrackingMedia"
	f.enter(method)
	for _, entry := range tm.Media {
		var rec *limits.Record
		if entry.MaxStep > 0 {
			rec = limits.NewRecord(entry.Name, entry.MaxStep)
		}
		if f.level.Enabled(3) {
			f.logger.Debug("adding medium",
				zap.Int("id", entry.ID),
				zap.String("name", entry.Name),
				zap.Bool("limits", rec != nil))
		}
		med, err := mm.AddMedium(entry.ID, true)
		if err != nil {
			return fault.Wrap(f.component, method, err)
		}
		med.Name = entry.Name
		med.Limits = rec
		mat, ok := g.Materials().Get(entry.Material)
		if !ok {
			return fault.Fatal(f.component, method, "Material %s not found.", entry.Material)
		}
		med.Material = mat
	}
	for _, lv := range g.LogicalVolumes() {
		name := geometry.StripReflectionSuffix(lv.Name())
		id, ok := tm.Volumes[name]
		if !ok {
			if lv.IsAssembly() {
				continue
			}
			return fault.Fatal(f.component, method, "volume %s has no medium defined", name)
		}
		if f.level.Enabled(3) {
			f.logger.Debug("mapping medium", zap.Int("id", id), zap.String("volume", name))
		}
		if err := mm.MapMedium(lv, id); err != nil {
			return fault.Wrap(f.component, method, err)
		}
	}
	return nil
}

// verifyCoverage checks that every volume reachable from the world has a
// medium or is an assembly.
func (f filler) verifyCoverage(g *geometry.Graph, mm *medium.Map) error {
	lvs, err := g.ReachableLogicalVolumes()
	if err != nil {
		return fault.Wrap(f.component, "FillMediums", err)
	}
	for _, lv := range lvs {
		if _, err := mm.GetMedium(lv, true); err != nil {
			return fault.Wrap(f.component, "FillMediums", err)
		}
	}
	return nil
}
