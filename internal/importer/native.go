package importer

import (
	"trackgeo/internal/fault"
	"trackgeo/internal/mcgeom"
	"trackgeo/internal/medium"
	"trackgeo/internal/verbose"

	"go.uber.org/zap"
)

// nativeStrategy performs no translation: the callbacks author the graph.
type nativeStrategy struct {
	*verbose.Level
	fill filler
}

func newNativeStrategy(logger *zap.Logger) *nativeStrategy {
	lvl := verbose.NewLevel("nativeImport", 0)
	return &nativeStrategy{
		Level: lvl,
		fill:  filler{component: "NativeImport", level: lvl, logger: logger},
	}
}

func (s *nativeStrategy) Kind() Kind { return Native }

func (s *nativeStrategy) Close(*Workspace) error { return nil }

func (s *nativeStrategy) PopulateGraph(ws *Workspace) error {
	if ws == nil || ws.Graph == nil {
		return fault.Fatal(s.fill.component, "PopulateGraph", "no native graph")
	}
	s.fill.enter("PopulateGraph")
	return nil
}

// FillMediums uses the externally populated tracking media when present and
// the material table otherwise.
func (s *nativeStrategy) FillMediums(ws *Workspace, mm *medium.Map) error {
	var err error
	if !ws.TrackingMedia.Empty() {
		err = s.fill.fillFromTrackingMedia(ws.Graph, ws.TrackingMedia, mm)
	} else {
		err = s.fill.fillFromMaterials(ws.Graph, mm)
	}
	if err != nil {
		return err
	}
	if ws.Graph.World() == nil {
		return nil
	}
	return s.fill.verifyCoverage(ws.Graph, mm)
}

func (s *nativeStrategy) MCGeometry(*Workspace) mcgeom.Geometry { return nil }
