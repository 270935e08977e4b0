package tabledb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trackgeo/internal/mcgeom"

	"github.com/google/go-cmp/cmp"
)

func sampleSetup() Setup {
	return Setup{
		Name: "tpc",
		Materials: []Material{
			{ID: 1, Name: "Air", A: 14.61, Z: 7.3, Density: 0.0012, RadLen: 30420},
			{ID: 2, Name: "Si", A: 28.09, Z: 14, Density: 2.33, RadLen: 9.36},
		},
		Media: []Medium{
			{ID: 1, Name: "air", MaterialID: 1},
			{ID: 2, Name: "silicon", MaterialID: 2, Params: mcgeom.MediumParams{IsVol: 1, SteMax: 0.5}},
		},
		Rotations: []Rotation{{ID: 1, Theta1: 90, Phi1: 0, Theta2: 90, Phi2: 90, Theta3: 180, Phi3: 0}},
		Volumes: []Volume{
			{ID: 1, Name: "WORLD", Shape: "BOX", MediumID: 1, Params: []float64{100, 100, 100}},
			{ID: 2, Name: "DET", Shape: "BOX", MediumID: 2, Params: []float64{10, 10, 1}},
		},
		Positions: []Position{
			{Seq: 1, Volume: "DET", CopyNo: 1, Mother: "WORLD", Z: 20, Only: true},
			{Seq: 2, Volume: "DET", CopyNo: 2, Mother: "WORLD", Z: -20, RotationID: 1, Only: true},
		},
	}
}

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "geo", "tables.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveLoadSQLite(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	want := sampleSetup()
	if err := db.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.Load(ctx, "tpc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("setup mismatch (-want +got):\n%s", diff)
	}

	// saving again replaces rather than appends
	want.Positions = want.Positions[:1]
	if err := db.Save(ctx, want); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = db.Load(ctx, "tpc")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(got.Positions))
	}
	names, err := db.Setups(ctx)
	if err != nil || len(names) != 1 || names[0] != "tpc" {
		t.Fatalf("setups: %v %v", names, err)
	}
}

func TestLoadMissingSetup(t *testing.T) {
	db := openTemp(t)
	if _, err := db.Load(context.Background(), "absent"); !errors.Is(err, ErrSetupNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &DB{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestSaveLoadPostgres(t *testing.T) {
	dsn := os.Getenv("TRACKGEO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRACKGEO_TEST_POSTGRES_DSN not set")
	}
	db, err := Open(context.Background(), Config{Driver: DriverPostgres, DSN: dsn})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	want := sampleSetup()
	want.Name = "tpc-pg-test"
	if err := db.Save(context.Background(), want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.Load(context.Background(), want.Name)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("setup mismatch (-want +got):\n%s", diff)
	}
}
