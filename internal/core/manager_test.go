package core_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"trackgeo/internal/core"
	"trackgeo/internal/fault"
	"trackgeo/internal/field"
	"trackgeo/internal/importer"
	"trackgeo/internal/limits"
	"trackgeo/internal/mcgeom"
	"trackgeo/internal/state"
	"trackgeo/internal/worker"
	"trackgeo/pkg/geometry"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

// buildAirLead authors WORLD(Air) holding A(Air) and B(Lead) with tracking
// media 1 (Air) and 2 (Lead, user max step 5).
func buildAirLead(ws *importer.Workspace) error {
	g := ws.Graph
	air, err := g.Materials().Add("Air", 7.3, 14.61, 0.0012, 30420)
	if err != nil {
		return err
	}
	lead, err := g.Materials().Add("Lead", 82, 207.2, 11.3, 0.56)
	if err != nil {
		return err
	}
	world, err := g.NewLogicalVolume("WORLD", geometry.Box{DX: 100, DY: 100, DZ: 100}, air)
	if err != nil {
		return err
	}
	a, err := g.NewLogicalVolume("A", geometry.Box{DX: 10, DY: 10, DZ: 10}, air)
	if err != nil {
		return err
	}
	b, err := g.NewLogicalVolume("B", geometry.Box{DX: 10, DY: 10, DZ: 10}, lead)
	if err != nil {
		return err
	}
	if _, err := g.Place("A", a, world, 1, geometry.Translate(0, 0, -30)); err != nil {
		return err
	}
	if _, err := g.Place("B", b, world, 1, geometry.Translate(0, 0, 30)); err != nil {
		return err
	}
	pv, err := g.Place("WORLD", world, nil, 0, geometry.Identity())
	if err != nil {
		return err
	}
	if err := g.SetWorld(pv); err != nil {
		return err
	}
	ws.TrackingMedia.Add(importer.TrackingMedium{ID: 1, Name: "Air", Material: "Air"})
	ws.TrackingMedia.Add(importer.TrackingMedium{ID: 2, Name: "Lead", Material: "Lead", MaxStep: 5})
	ws.TrackingMedia.Assign("WORLD", 1)
	ws.TrackingMedia.Assign("A", 1)
	ws.TrackingMedia.Assign("B", 2)
	return nil
}

func lowDensityConfig() limits.Config {
	return limits.Config{
		MaxStepInLowDensity: true,
		LimitDensity:        0.002,
		LowDensityMaxStep:   7,
	}
}

func newAirLeadManager(t *testing.T, opts ...core.Option) *core.GeometryManager {
	t.Helper()
	opts = append([]core.Option{
		core.WithApplication(core.Callbacks{Geometry: buildAirLead}),
		core.WithLimits(lowDensityConfig()),
	}, opts...)
	m, err := core.NewJob(nil).NewGeometryManager(importer.Native, opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.ConstructGeometry(context.Background()); err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := m.FinishGeometry(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	return m
}

func maxStep(t *testing.T, m *core.GeometryManager, name string) float64 {
	t.Helper()
	lv, ok := m.Graph().LogicalVolumeByName(name)
	if !ok {
		t.Fatalf("volume %s not found", name)
	}
	if lv.UserLimits() == nil {
		t.Fatalf("volume %s has no limits", name)
	}
	return lv.UserLimits().MaxAllowedStep()
}

func TestSetUserLimitsLowDensityCeiling(t *testing.T) {
	m := newAirLeadManager(t)
	if err := m.SetUserLimits(limits.CutVector{}, limits.NewControlVector()); err != nil {
		t.Fatalf("set user limits: %v", err)
	}
	if got := maxStep(t, m, "A"); got != 7 {
		t.Fatalf("air max step = %g, want 7", got)
	}
	if got := maxStep(t, m, "B"); got != limits.Unbounded {
		t.Fatalf("lead max step = %g, want unbounded", got)
	}

	m.SetIsUserMaxStep(true)
	if err := m.SetUserLimits(limits.CutVector{}, limits.NewControlVector()); err != nil {
		t.Fatalf("set user limits: %v", err)
	}
	if got := maxStep(t, m, "B"); got != 5 {
		t.Fatalf("lead max step with user override = %g, want 5", got)
	}
	if got := maxStep(t, m, "A"); got != 7 {
		t.Fatalf("air max step with user override = %g, want 7", got)
	}

	m.SetIsUserMaxStep(false)
	m.SetIsMaxStepInLowDensityMaterials(false)
	if err := m.SetUserLimits(limits.CutVector{}, limits.NewControlVector()); err != nil {
		t.Fatalf("set user limits: %v", err)
	}
	if got := maxStep(t, m, "A"); got != limits.Unbounded {
		t.Fatalf("air max step without ceiling = %g, want unbounded", got)
	}
}

func TestSetUserLimitsThresholdAndCeilingSetters(t *testing.T) {
	m := newAirLeadManager(t)
	m.SetLimitDensity(0.001)
	m.SetMaxStepInLowDensityMaterials(3)
	if err := m.SetUserLimits(limits.CutVector{}, limits.NewControlVector()); err != nil {
		t.Fatalf("set user limits: %v", err)
	}
	// 0.0012 is not strictly below 0.001.
	if got := maxStep(t, m, "A"); got != limits.Unbounded {
		t.Fatalf("air max step = %g, want unbounded", got)
	}
	m.SetLimitDensity(0.01)
	if err := m.SetUserLimits(limits.CutVector{}, limits.NewControlVector()); err != nil {
		t.Fatalf("set user limits: %v", err)
	}
	if got := maxStep(t, m, "A"); got != 3 {
		t.Fatalf("air max step = %g, want 3", got)
	}
}

func snapshotLimits(m *core.GeometryManager) map[string]limits.Record {
	out := make(map[string]limits.Record)
	for _, lv := range m.Graph().LogicalVolumes() {
		if rec, ok := lv.UserLimits().(*limits.Record); ok {
			out[lv.Name()] = *rec
		}
	}
	return out
}

func TestSetUserLimitsIdempotent(t *testing.T) {
	m := newAirLeadManager(t)
	m.SetIsUserMaxStep(true)
	var cuts limits.CutVector
	cuts.Set(limits.CutGamma, 0.5)
	controls := limits.NewControlVector()

	if err := m.SetUserLimits(cuts, controls); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first := snapshotLimits(m)
	records := m.LimitsRegistry().Len()
	if err := m.SetUserLimits(cuts, controls); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if diff := cmp.Diff(first, snapshotLimits(m)); diff != "" {
		t.Fatalf("limits changed on reapply (-first +second):\n%s", diff)
	}
	if m.LimitsRegistry().Len() != records {
		t.Fatalf("registry grew from %d to %d", records, m.LimitsRegistry().Len())
	}
	if len(first) != 3 {
		t.Fatalf("expected limits on 3 volumes, got %d", len(first))
	}
	a, _ := m.Graph().LogicalVolumeByName("A")
	w, _ := m.Graph().LogicalVolumeByName("WORLD")
	if a.UserLimits() != w.UserLimits() {
		t.Fatalf("volumes of one medium should share their record")
	}
}

func TestConstructGeometryStateSequence(t *testing.T) {
	var seen []string
	app := core.Callbacks{
		Geometry: func(ws *importer.Workspace) error {
			seen = append(seen, "geometry")
			return buildAirLead(ws)
		},
		Misalign:   func(*importer.Workspace) error { seen = append(seen, "misalign"); return nil },
		OpGeometry: func(*importer.Workspace) error { seen = append(seen, "optical"); return nil },
	}
	m, err := core.NewJob(nil).NewGeometryManager(importer.Native, core.WithApplication(app))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.ConstructGeometry(context.Background()); err != nil {
		t.Fatalf("construct: %v", err)
	}
	want := []state.State{
		state.ConstructGeometry,
		state.MisalignGeometry,
		state.NotInApplication,
		state.ConstructOpGeometry,
		state.NotInApplication,
	}
	if diff := cmp.Diff(want, m.StateHistory()); diff != "" {
		t.Fatalf("state history (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"geometry", "misalign", "optical"}, seen); diff != "" {
		t.Fatalf("callback order (-want +got):\n%s", diff)
	}
	if m.State() != state.NotInApplication {
		t.Fatalf("final state = %s", m.State())
	}
	if m.MediumMap().NofMedia() != 2 {
		t.Fatalf("expected 2 media, got %d", m.MediumMap().NofMedia())
	}

	err = m.ConstructGeometry(context.Background())
	if err == nil || !fault.IsFatal(err) {
		t.Fatalf("second construction should be fatal, got %v", err)
	}
}

func TestSecondManagerIsFatal(t *testing.T) {
	job := core.NewJob(nil)
	if _, err := job.NewGeometryManager(importer.Native); err != nil {
		t.Fatalf("first manager: %v", err)
	}
	_, err := job.NewGeometryManager(importer.Legacy)
	if err == nil || !fault.IsFatal(err) {
		t.Fatalf("expected fatal second manager, got %v", err)
	}
	if !strings.Contains(err.Error(), "singleton") {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.GeometryManager().Source() != importer.Native {
		t.Fatalf("first manager should be kept")
	}
}

func TestUnavailableSourceIsFatal(t *testing.T) {
	_, err := core.NewJob(nil).NewGeometryManager(importer.Interchange,
		core.WithCapabilities(importer.Capabilities{Native: true, Legacy: true}))
	if !errors.Is(err, importer.ErrCapabilityUnavailable) || !fault.IsFatal(err) {
		t.Fatalf("expected fatal capability error, got %v", err)
	}
}

func TestGetMCGeometry(t *testing.T) {
	native, err := core.NewJob(nil).NewGeometryManager(importer.Native)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := native.GetMCGeometry(); err == nil || !strings.Contains(err.Error(), "No MC geometry defined.") {
		t.Fatalf("expected fatal for native source, got %v", err)
	}
	legacy, err := core.NewJob(nil).NewGeometryManager(importer.Legacy)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	geo, err := legacy.GetMCGeometry()
	if err != nil || geo == nil {
		t.Fatalf("legacy geometry: %v", err)
	}
}

func TestLegacyConstructionThroughManager(t *testing.T) {
	app := core.Callbacks{Geometry: func(ws *importer.Workspace) error {
		mat, err := ws.MC.Material("Si", 28.09, 14, 2.33, 9.36, 0)
		if err != nil {
			return err
		}
		med, err := ws.MC.Medium("silicon", mat, mcgeom.MediumParams{SteMax: 0.5})
		if err != nil {
			return err
		}
		if _, err := ws.MC.Volume("WORLD", "BOX", med, []float64{50, 50, 50}); err != nil {
			return err
		}
		if _, err := ws.MC.Volume("DET", "BOX", med, []float64{5, 5, 5}); err != nil {
			return err
		}
		return ws.MC.Position("DET", 1, "WORLD", geometry.Vector3{X: 10}, 0, true)
	}}
	m, err := core.NewJob(nil).NewGeometryManager("geomVMCtoGeant4", core.WithApplication(app))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.ConstructGeometry(context.Background()); err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := m.FinishGeometry(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if m.World() == nil || m.World().Logical.Name() != "WORLD" {
		t.Fatalf("unexpected world %+v", m.World())
	}
	det, ok := m.Graph().LogicalVolumeByName("DET")
	if !ok {
		t.Fatalf("DET not translated")
	}
	med, err := m.MediumMap().GetMedium(det, true)
	if err != nil {
		t.Fatalf("get medium: %v", err)
	}
	if med.Material == nil || med.Material.Name != "Si" {
		t.Fatalf("unexpected medium %+v", med)
	}
}

func TestInterchangeConstructionClosesGeometry(t *testing.T) {
	app := core.Callbacks{Geometry: func(ws *importer.Workspace) error {
		mgr := ws.Interchange
		if _, err := mgr.AddMaterial("Fe", 55.85, 26, 7.87, 1.76); err != nil {
			return err
		}
		if _, err := mgr.AddMedium(1, "iron", "Fe", mcgeom.MediumParams{}); err != nil {
			return err
		}
		if _, err := mgr.AddVolume("HALL", geometry.Box{DX: 500, DY: 500, DZ: 500}, 1); err != nil {
			return err
		}
		if _, err := mgr.AddVolume("YOKE", geometry.Tube{RMin: 100, RMax: 200, DZ: 300}, 1); err != nil {
			return err
		}
		_, err := mgr.AddNode("YOKE", "HALL", 1, geometry.Identity(), false)
		return err
	}}
	var misalignSawClosed bool
	app.Misalign = func(ws *importer.Workspace) error {
		misalignSawClosed = ws.Interchange.IsClosed()
		return nil
	}
	m, err := core.NewJob(nil).NewGeometryManager(importer.Interchange, core.WithApplication(app))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.ConstructGeometry(context.Background()); err != nil {
		t.Fatalf("construct: %v", err)
	}
	if !misalignSawClosed {
		t.Fatalf("interchange geometry should be closed before misalignment")
	}
	if err := m.FinishGeometry(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if m.World() == nil || m.World().Logical.Name() != "HALL" {
		t.Fatalf("unexpected world %+v", m.World())
	}
}

func TestFinishGeometryWithoutWorld(t *testing.T) {
	m, err := core.NewJob(nil).NewGeometryManager(importer.Native)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.ConstructGeometry(context.Background()); err != nil {
		t.Fatalf("construct: %v", err)
	}
	err = m.FinishGeometry()
	if !errors.Is(err, geometry.ErrNoWorld) || !fault.IsFatal(err) {
		t.Fatalf("expected fatal missing world, got %v", err)
	}
}

func TestFinishGeometryIsIdempotent(t *testing.T) {
	m := newAirLeadManager(t)
	world := m.World()
	if err := m.FinishGeometry(); err != nil {
		t.Fatalf("second finish: %v", err)
	}
	if m.World() != world {
		t.Fatalf("world changed on second finish")
	}
}

func TestRegionConstructionRunsOnce(t *testing.T) {
	var calls atomic.Int32
	region := core.RegionFunc(func() error {
		calls.Add(1)
		return nil
	})
	m := newAirLeadManager(t, core.WithRegionConstruction(region))

	g, ctx := errgroup.WithContext(context.Background())
	for id := 0; id < 4; id++ {
		id := id
		g.Go(func() error { return m.ConstructSDAndField(ctx, worker.ID(id)) })
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("construct sd and field: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("region callback ran %d times", calls.Load())
	}
}

func TestRegionConstructionDeferredToWorkers(t *testing.T) {
	m := newAirLeadManager(t)
	var calls atomic.Int32
	m.SetUserRegionConstruction(core.RegionFunc(func() error {
		calls.Add(1)
		return nil
	}))
	for id := 0; id < 2; id++ {
		if err := m.ConstructSDAndField(context.Background(), worker.ID(id)); err != nil {
			t.Fatalf("construct sd and field: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("region callback ran %d times", calls.Load())
	}
}

type recordingSD struct {
	initialized atomic.Int32
}

func (r *recordingSD) Initialize(worker.ID) error {
	r.initialized.Add(1)
	return nil
}

func TestConstructSDAndFieldPerWorker(t *testing.T) {
	sd := &recordingSD{}
	engine := field.EngineFunc(func() field.Field { return field.Uniform{Z: 20} })
	obs, logs := observer.New(zap.WarnLevel)
	job := core.NewJob(zap.New(obs))
	m, err := job.NewGeometryManager(importer.Native,
		core.WithApplication(core.Callbacks{Geometry: buildAirLead}),
		core.WithSensitiveDetectors(sd),
		core.WithFieldEngine(engine))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.ConstructGeometry(context.Background()); err != nil {
		t.Fatalf("construct: %v", err)
	}
	for id := 0; id < 3; id++ {
		if err := m.ConstructSDAndField(context.Background(), worker.ID(id)); err != nil {
			t.Fatalf("worker %d: %v", id, err)
		}
	}
	if sd.initialized.Load() != 3 {
		t.Fatalf("sensitive detectors initialized %d times", sd.initialized.Load())
	}
	if m.FieldController().NofAdapters() != 3 {
		t.Fatalf("expected 3 adapters, got %d", m.FieldController().NofAdapters())
	}
	if !m.UpdateMagField(1) {
		t.Fatalf("update with adapter should succeed")
	}
	if m.UpdateMagField(9) {
		t.Fatalf("update without adapter should report false")
	}
	if logs.FilterMessage("No magnetic field is defined.").Len() != 1 {
		t.Fatalf("expected one warning, got %v", logs.All())
	}
	if err := job.Teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if m.FieldController().NofAdapters() != 0 {
		t.Fatalf("adapters should be released on teardown")
	}
}

func TestMetricsRecordConstruction(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newAirLeadManager(t, core.WithMetrics(core.NewMetrics(reg)))
	if err := m.SetUserLimits(limits.CutVector{}, limits.NewControlVector()); err != nil {
		t.Fatalf("set user limits: %v", err)
	}
	m.UpdateMagField(0)

	expected := `
# HELP trackgeo_media Media in the medium map
# TYPE trackgeo_media gauge
trackgeo_media 2
# HELP trackgeo_limits_records Shared step-limit records
# TYPE trackgeo_limits_records gauge
trackgeo_limits_records 2
# HELP trackgeo_field_update_warnings_total UpdateMagField calls without a field adapter
# TYPE trackgeo_field_update_warnings_total counter
trackgeo_field_update_warnings_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"trackgeo_media", "trackgeo_limits_records", "trackgeo_field_update_warnings_total"); err != nil {
		t.Fatalf("metrics mismatch: %v", err)
	}
	count, err := testutil.GatherAndCount(reg, "trackgeo_constructions_total")
	if err != nil || count != 1 {
		t.Fatalf("constructions series = %d (%v)", count, err)
	}
	count, err = testutil.GatherAndCount(reg, "trackgeo_phase_duration_seconds")
	if err != nil || count != 4 {
		t.Fatalf("phase series = %d (%v)", count, err)
	}
}

func TestVerboseRegistryCoversComponents(t *testing.T) {
	job := core.NewJob(nil)
	m, err := job.NewGeometryManager(importer.Legacy, core.WithVerboseLevel(1))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	want := map[string]int{
		"geometryManager": 1,
		"mediumMap":       1,
		"fieldController": 1,
		"legacyImport":    1,
	}
	if diff := cmp.Diff(want, job.Verbose.Levels()); diff != "" {
		t.Fatalf("verbose levels (-want +got):\n%s", diff)
	}
	job.Verbose.SetAll(3)
	if m.VerboseLevel() != 3 || m.MediumMap().VerboseLevel() != 3 {
		t.Fatalf("broadcast did not reach every component")
	}
}
