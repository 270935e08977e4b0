package importer

import (
	"errors"
	"fmt"
	"testing"

	"trackgeo/internal/fault"
	"trackgeo/internal/mcgeom"
	"trackgeo/internal/medium"
	"trackgeo/pkg/geometry"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownAndUnavailable(t *testing.T) {
	if _, err := New("geomVMCtoRoot", AllCapabilities(), nil); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
	if _, err := New(Legacy, Capabilities{Native: true}, nil); !errors.Is(err, ErrCapabilityUnavailable) {
		t.Fatalf("expected capability unavailable, got %v", err)
	}
	s, err := New("geomRootToGeant4", AllCapabilities(), nil)
	if err != nil || s.Kind() != Interchange {
		t.Fatalf("alias resolution: %v", err)
	}
	if k, err := ParseKind(" VMC "); err != nil || k != Legacy {
		t.Fatalf("parse kind: %v %v", k, err)
	}
	if _, err := ParseMediaSource("bogus"); err == nil {
		t.Fatalf("expected media source error")
	}
}

// defineLegacyWorld defines media 1..7 and WORLD(medium 5) containing DET(medium 7).
func defineLegacyWorld(t *testing.T, geo mcgeom.Geometry) {
	t.Helper()
	air, err := geo.Material("Air", 14.61, 7.3, 0.0012, 30420, 0)
	if err != nil {
		t.Fatalf("material: %v", err)
	}
	si, err := geo.Material("Si", 28.09, 14, 2.33, 9.36, 0)
	if err != nil {
		t.Fatalf("material: %v", err)
	}
	for i := 1; i <= 7; i++ {
		mat := air
		if i == 7 {
			mat = si
		}
		if _, err := geo.Medium(fmt.Sprintf("med%d", i), mat, mcgeom.MediumParams{}); err != nil {
			t.Fatalf("medium %d: %v", i, err)
		}
	}
	if _, err := geo.Volume("WORLD", "BOX", 5, []float64{100, 100, 100}); err != nil {
		t.Fatalf("volume: %v", err)
	}
	if _, err := geo.Volume("DET", "BOX", 7, []float64{10, 10, 10}); err != nil {
		t.Fatalf("volume: %v", err)
	}
	if err := geo.Position("DET", 1, "WORLD", geometry.Vector3{Z: 20}, 0, true); err != nil {
		t.Fatalf("position: %v", err)
	}
}

func TestLegacyImportWorldAndDetector(t *testing.T) {
	ws := NewWorkspace()
	s, err := New(Legacy, AllCapabilities(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defineLegacyWorld(t, s.MCGeometry(ws))

	if err := s.PopulateGraph(ws); err != nil {
		t.Fatalf("populate: %v", err)
	}
	world := ws.Graph.World()
	if world == nil || world.Logical.Name() != "WORLD" || world.CopyNo != 1 || world.Mother != nil {
		t.Fatalf("world = %+v", world)
	}
	daughters := world.Logical.Daughters()
	if len(daughters) != 1 || daughters[0].Logical.Name() != "DET" {
		t.Fatalf("DET not placed under WORLD")
	}
	if id, ok := ws.Graph.VolumeID("DET"); !ok || id != 2 {
		t.Fatalf("legacy id of DET = %d %v", id, ok)
	}

	mm := medium.NewMap(nil)
	if err := s.FillMediums(ws, mm); err != nil {
		t.Fatalf("fill: %v", err)
	}
	got := map[string]int{}
	for _, lv := range ws.Graph.LogicalVolumes() {
		med, err := mm.GetMedium(lv, true)
		if err != nil {
			t.Fatalf("medium of %s: %v", lv.Name(), err)
		}
		got[lv.Name()] = med.ID
	}
	if diff := cmp.Diff(map[string]int{"WORLD": 5, "DET": 7}, got); diff != "" {
		t.Fatalf("medium ids (-want +got):\n%s", diff)
	}
	det, _ := mm.Medium(7)
	if det.Material == nil || det.Material.Name != "Si" {
		t.Fatalf("medium 7 material = %+v", det.Material)
	}
	if !ws.Legacy.Empty() {
		t.Fatalf("legacy tables must be discarded after fill")
	}
}

func TestLegacyReflectionAndMany(t *testing.T) {
	ws := NewWorkspace()
	s, _ := New(Legacy, AllCapabilities(), nil)
	geo := s.MCGeometry(ws)
	fe, _ := geo.Material("Fe", 55.85, 26, 7.87, 1.76, 0)
	med, _ := geo.Medium("Fe", fe, mcgeom.MediumParams{SteMax: 0.5})
	for _, name := range []string{"HALL", "ARM", "PAD", "SHLD"} {
		if _, err := geo.Volume(name, "BOX", med, []float64{5, 5, 5}); err != nil {
			t.Fatalf("volume %s: %v", name, err)
		}
	}
	mirror, _ := geo.Matrix(90, 0, 90, 90, 180, 0)
	if err := geo.Position("PAD", 1, "ARM", geometry.Vector3{}, 0, true); err != nil {
		t.Fatalf("position: %v", err)
	}
	if err := geo.Position("ARM", 1, "HALL", geometry.Vector3{X: 10}, 0, true); err != nil {
		t.Fatalf("position: %v", err)
	}
	if err := geo.Position("ARM", 2, "HALL", geometry.Vector3{X: -10}, mirror, true); err != nil {
		t.Fatalf("position: %v", err)
	}
	if err := geo.Position("SHLD", 1, "HALL", geometry.Vector3{Y: 3}, 0, false); err != nil {
		t.Fatalf("position: %v", err)
	}
	if err := s.PopulateGraph(ws); err != nil {
		t.Fatalf("populate: %v", err)
	}

	refl, ok := ws.Graph.LogicalVolumeByName("ARM" + geometry.ReflectionSuffix)
	if !ok || !refl.IsReflected() || refl.NofDaughters() != 1 {
		t.Fatalf("reflected ARM missing or incomplete")
	}
	if id, ok := ws.Graph.VolumeID(refl.Name()); !ok || id != 2 {
		t.Fatalf("reflected volume id = %d", id)
	}
	shield, _ := ws.Graph.LogicalVolumeByName("SHLD")
	b, ok := shield.Solid.(geometry.Boolean)
	if !ok || b.Op != geometry.Subtraction {
		t.Fatalf("MANY volume must become a subtraction solid, got %T", shield.Solid)
	}

	mm := medium.NewMap(nil)
	if err := s.FillMediums(ws, mm); err != nil {
		t.Fatalf("fill: %v", err)
	}
	got, err := mm.GetMedium(refl, true)
	if err != nil || got.ID != med {
		t.Fatalf("reflected volume medium = %+v %v", got, err)
	}
	if got.Limits == nil || got.Limits.UserMaxStep != 0.5 {
		t.Fatalf("stemax not carried into limits: %+v", got.Limits)
	}
}

func TestLegacyManyPositionedTwice(t *testing.T) {
	ws := NewWorkspace()
	s, _ := New(Legacy, AllCapabilities(), nil)
	geo := s.MCGeometry(ws)
	fe, _ := geo.Material("Fe", 55.85, 26, 7.87, 1.76, 0)
	med, _ := geo.Medium("Fe", fe, mcgeom.MediumParams{})
	_, _ = geo.Volume("TOP", "BOX", med, []float64{5, 5, 5})
	_, _ = geo.Volume("M", "BOX", med, []float64{1, 1, 1})
	_ = geo.Position("M", 1, "TOP", geometry.Vector3{}, 0, false)
	_ = geo.Position("M", 2, "TOP", geometry.Vector3{X: 2}, 0, false)
	if err := s.PopulateGraph(ws); !fault.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if err := s.PopulateGraph(NewWorkspace()); !fault.IsFatal(err) {
		t.Fatalf("empty tables must be fatal, got %v", err)
	}
}

func defineInterchange(t *testing.T, ws *Workspace, s Strategy) {
	t.Helper()
	geo := s.MCGeometry(ws)
	air, _ := geo.Material("Air", 14.61, 7.3, 0.0012, 30420, 0)
	pb, _ := geo.Material("Lead", 207.2, 82, 11.35, 0.56, 0)
	airMed, _ := geo.Medium("AirMed", air, mcgeom.MediumParams{SteMax: 3})
	pbMed, _ := geo.Medium("LeadMed", pb, mcgeom.MediumParams{})
	if _, err := geo.Volume("CAVE", "BOX", airMed, []float64{100, 100, 100}); err != nil {
		t.Fatalf("volume: %v", err)
	}
	if _, err := geo.Volume("ABSO", "BOX", pbMed, []float64{10, 10, 1}); err != nil {
		t.Fatalf("volume: %v", err)
	}
	if _, err := ws.Interchange.AddAssembly("STACK"); err != nil {
		t.Fatalf("assembly: %v", err)
	}
	if err := geo.Position("STACK", 1, "CAVE", geometry.Vector3{}, 0, true); err != nil {
		t.Fatalf("position: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := geo.Position("ABSO", i, "STACK", geometry.Vector3{Z: float64(3 * i)}, 0, true); err != nil {
			t.Fatalf("position: %v", err)
		}
	}
}

func TestInterchangeMaterialIndexFill(t *testing.T) {
	ws := NewWorkspace()
	s, _ := New(Interchange, AllCapabilities(), nil)
	defineInterchange(t, ws, s)
	if err := s.Close(ws); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !ws.Interchange.IsClosed() || ws.Interchange.TopVolume().Name != "CAVE" {
		t.Fatalf("auto-close must select the first volume")
	}
	if err := s.PopulateGraph(ws); err != nil {
		t.Fatalf("populate: %v", err)
	}
	mm := medium.NewMap(nil)
	if err := s.FillMediums(ws, mm); err != nil {
		t.Fatalf("fill: %v", err)
	}
	abso, _ := ws.Graph.LogicalVolumeByName("ABSO")
	med, err := mm.GetMedium(abso, true)
	if err != nil || med.ID != abso.Material.Index || med.Name != "Lead" {
		t.Fatalf("material-index medium = %+v %v", med, err)
	}
	stack, _ := ws.Graph.LogicalVolumeByName("STACK")
	if med, err := mm.GetMedium(stack, true); med != nil || err != nil {
		t.Fatalf("assembly must stay without medium: %v %v", med, err)
	}
}

func TestInterchangeTrackingMediaFill(t *testing.T) {
	ws := NewWorkspace()
	ws.InterchangeMedia = TrackingMediaSource
	s, _ := New(Interchange, AllCapabilities(), nil)
	defineInterchange(t, ws, s)
	if err := s.PopulateGraph(ws); err != nil {
		t.Fatalf("populate: %v", err)
	}
	mm := medium.NewMap(nil)
	if err := s.FillMediums(ws, mm); err != nil {
		t.Fatalf("fill: %v", err)
	}
	cave, _ := ws.Graph.LogicalVolumeByName("CAVE")
	med, _ := mm.GetMedium(cave, true)
	if med.ID != 1 || med.Name != "AirMed" || med.Limits == nil || med.Limits.UserMaxStep != 3 {
		t.Fatalf("tracking medium = %+v", med)
	}
	lead, _ := mm.Medium(2)
	if lead.Limits != nil {
		t.Fatalf("medium without stemax must carry no limits")
	}
}

func TestInterchangeWarnsAboutOverlappingNodes(t *testing.T) {
	for _, level := range []int{0, 1} {
		logCore, logs := observer.New(zap.WarnLevel)
		ws := NewWorkspace()
		s, _ := New(Interchange, AllCapabilities(), zap.New(logCore))
		s.SetVerboseLevel(level)
		defineInterchange(t, ws, s)
		if err := s.MCGeometry(ws).Position("ABSO", 9, "CAVE", geometry.Vector3{X: 50}, 0, false); err != nil {
			t.Fatalf("position: %v", err)
		}
		if err := s.PopulateGraph(ws); err != nil {
			t.Fatalf("populate: %v", err)
		}
		warned := logs.FilterMessage("overlapping node placed as an ordinary daughter").All()
		want := 0
		if level > 0 {
			want = 1
		}
		if len(warned) != want {
			t.Fatalf("verbose %d: %d overlap warnings, want %d", level, len(warned), want)
		}
		if want == 1 && warned[0].ContextMap()["mother"] != "CAVE" {
			t.Fatalf("warning fields = %v", warned[0].ContextMap())
		}
	}
}

func TestNativeFills(t *testing.T) {
	ws := NewWorkspace()
	s, _ := New(Native, AllCapabilities(), nil)
	if s.MCGeometry(ws) != nil {
		t.Fatalf("native source has no virtual definition")
	}
	g := ws.Graph
	air, _ := g.Materials().Add("Air", 7.3, 14.61, 0.0012, 30420)
	hall, _ := g.NewLogicalVolume("HALL", geometry.Box{DX: 10, DY: 10, DZ: 10}, air)
	bare, _ := g.NewLogicalVolume("BARE", geometry.Box{DX: 1, DY: 1, DZ: 1}, nil)
	if _, err := g.Place("BARE", bare, hall, 0, geometry.Identity()); err != nil {
		t.Fatalf("place: %v", err)
	}
	world, _ := g.Place("HALL", hall, nil, 0, geometry.Identity())
	_ = g.SetWorld(world)
	if err := s.PopulateGraph(ws); err != nil {
		t.Fatalf("populate: %v", err)
	}

	err := s.FillMediums(ws, medium.NewMap(nil))
	if !fault.IsFatal(err) {
		t.Fatalf("volume without material must be fatal, got %v", err)
	}

	ws.TrackingMedia.Add(TrackingMedium{ID: 4, Name: "AirMed", Material: "Air", MaxStep: 1})
	ws.TrackingMedia.Assign("HALL", 4)
	ws.TrackingMedia.Assign("BARE", 4)
	mm := medium.NewMap(nil)
	if err := s.FillMediums(ws, mm); err != nil {
		t.Fatalf("tracking media fill: %v", err)
	}
	if med, _ := mm.GetMedium(bare, true); med.ID != 4 {
		t.Fatalf("BARE medium = %+v", med)
	}

	ws.TrackingMedia.Media[0].Material = "Vacuum"
	if err := s.FillMediums(ws, medium.NewMap(nil)); !fault.IsFatal(err) {
		t.Fatalf("unresolved material must be fatal, got %v", err)
	}
}
