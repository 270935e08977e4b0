package importer

import (
	"trackgeo/internal/fault"
	"trackgeo/internal/gm"
	"trackgeo/internal/interchange"
	"trackgeo/internal/mcgeom"
	"trackgeo/internal/medium"
	"trackgeo/internal/verbose"

	"go.uber.org/zap"
)

// interchangeStrategy exports the interchange geometry into the native graph
// through the generic model factories.
type interchangeStrategy struct {
	*verbose.Level
	fill    filler
	builder *interchange.Builder
}

func newInterchangeStrategy(logger *zap.Logger) *interchangeStrategy {
	lvl := verbose.NewLevel("interchangeImport", 0)
	return &interchangeStrategy{
		Level: lvl,
		fill:  filler{component: "InterchangeImport", level: lvl, logger: logger},
	}
}

func (s *interchangeStrategy) Kind() Kind { return Interchange }

func (s *interchangeStrategy) MCGeometry(ws *Workspace) mcgeom.Geometry {
	if s.builder == nil || s.builder.Manager() != ws.Interchange {
		s.builder = interchange.NewBuilder(ws.Interchange)
	}
	return s.builder
}

// Close closes the interchange geometry when the callbacks left it open.
func (s *interchangeStrategy) Close(ws *Workspace) error {
	if ws.Interchange == nil {
		return fault.Fatal(s.fill.component, "Close", "geometry was not defined via the interchange model")
	}
	if ws.Interchange.IsClosed() {
		return nil
	}
	if err := ws.Interchange.CloseGeometry(); err != nil {
		return fault.Wrap(s.fill.component, "Close", err)
	}
	return nil
}

func (s *interchangeStrategy) PopulateGraph(ws *Workspace) error {
	const method = "PopulateGraph"
	s.fill.enter(method)
	if err := s.Close(ws); err != nil {
		return err
	}
	if s.Enabled(1) {
		s.fill.logger.Info("converting interchange geometry to the native graph",
			zap.String("top", ws.Interchange.TopVolume().Name))
	}
	model, err := gm.NewInterchangeFactory(ws.Interchange).Import()
	if err != nil {
		return fault.Wrap(s.fill.component, method, err)
	}
	if s.Enabled(1) {
		for _, p := range model.Placements {
			if p.Overlapping {
				s.fill.logger.Warn("overlapping node placed as an ordinary daughter",
					zap.String("component", s.fill.component),
					zap.String("node", p.Name),
					zap.String("mother", p.Mother))
			}
		}
	}
	native := gm.NewNativeFactory(ws.Graph)
	if err := native.Export(model); err != nil {
		return fault.Wrap(s.fill.component, method, err)
	}
	if native.World() == nil {
		return fault.Fatal(s.fill.component, method, "export produced no world")
	}
	return nil
}

// FillMediums uses the material index by default and the interchange
// tracking media when configured.
func (s *interchangeStrategy) FillMediums(ws *Workspace, mm *medium.Map) error {
	var err error
	switch ws.InterchangeMedia {
	case TrackingMediaSource:
		err = s.fill.fillFromTrackingMedia(ws.Graph, trackingMediaOf(ws.Interchange), mm)
	default:
		err = s.fill.fillFromMaterials(ws.Graph, mm)
	}
	if err != nil {
		return err
	}
	return s.fill.verifyCoverage(ws.Graph, mm)
}

func trackingMediaOf(mgr *interchange.Manager) *TrackingMedia {
	tm := NewTrackingMedia()
	for _, med := range mgr.Media() {
		tm.Add(TrackingMedium{
			ID:       med.ID,
			Name:     med.Name,
			Material: med.Material.Name,
			MaxStep:  med.Params.SteMax,
		})
	}
	for _, v := range mgr.Volumes() {
		if v.Medium != nil {
			tm.Assign(v.Name, v.Medium.ID)
		}
	}
	return tm
}
