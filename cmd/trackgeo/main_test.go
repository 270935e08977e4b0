package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const airLeadYAML = `name: air-lead
materials:
  - {name: Air, a: 14.61, z: 7.3, density: 0.0012}
  - {name: Lead, a: 207.19, z: 82, density: 11.35}
media:
  - {name: AirMed, material: Air}
  - {name: LeadMed, material: Lead, max_step: 5}
volumes:
  - {name: WORLD, shape: BOX, medium: AirMed, params: [100, 100, 100]}
  - {name: A, shape: BOX, medium: AirMed, params: [10, 10, 10]}
  - {name: B, shape: BOX, medium: LeadMed, params: [10, 10, 10]}
positions:
  - {volume: A, mother: WORLD, copy: 1, at: [0, 0, -30]}
  - {volume: B, mother: WORLD, copy: 1, at: [0, 0, 30]}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPutAndConstructFromBlobStore(t *testing.T) {
	dir := t.TempDir()
	docPath := writeFile(t, dir, "air-lead.yaml", airLeadYAML)
	cfgPath := writeFile(t, dir, "job.yaml", `
source: geomVMCtoGeant4
workers: 2
logging: {level: error}
limits: {limit_density: 0.002, low_density_max_step: 7}
field: {uniform: [0, 0, 20]}
input:
  kind: blob
  key: detectors/air-lead.yaml
  blob: {driver: fs, root: `+filepath.Join(dir, "store")+`}
`)
	out, err := execute(t, "put", "--config", cfgPath, "--key", "detectors/air-lead.yaml", docPath)
	if err != nil {
		t.Fatalf("put: %v\n%s", err, out)
	}
	if !strings.Contains(out, "stored detectors/air-lead.yaml") {
		t.Fatalf("put output = %q", out)
	}

	out, err = execute(t, "construct", "--config", cfgPath, "--metrics")
	if err != nil {
		t.Fatalf("construct: %v\n%s", err, out)
	}
	for _, want := range []string{
		"source: legacy",
		"logical_volumes: 3",
		"media: 2",
		"limits_records: 2",
		"workers: 2",
		"field_adapters: 2",
		"trackgeo_constructions_total",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("construct output missing %q:\n%s", want, out)
		}
	}
}

func TestConstructFromTablesWithTracing(t *testing.T) {
	dir := t.TempDir()
	docPath := writeFile(t, dir, "air-lead.yaml", airLeadYAML)
	cfgPath := writeFile(t, dir, "job.yaml", `
source: legacy
logging: {level: error}
tracing: {stdout: true}
input:
  kind: sql
  setup: bench
  table: {driver: sqlite, path: `+filepath.Join(dir, "tables.db")+`}
`)
	if out, err := execute(t, "put", "--config", cfgPath, "--setup", "bench", docPath); err != nil {
		t.Fatalf("put: %v\n%s", err, out)
	}
	out, err := execute(t, "construct", "--config", cfgPath, "--workers", "3")
	if err != nil {
		t.Fatalf("construct: %v\n%s", err, out)
	}
	if !strings.Contains(out, "workers: 3") || !strings.Contains(out, "core.ConstructGeometry") {
		t.Fatalf("construct output:\n%s", out)
	}
}

func TestConstructRejectsBadConfig(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "job.yaml", "source: fluka\n")
	if _, err := execute(t, "construct", "--config", cfgPath); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestSourcesAndVersion(t *testing.T) {
	out, err := execute(t, "sources")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if !strings.Contains(out, "geomroottogeant4") || !strings.Contains(out, "interchange") {
		t.Fatalf("sources output:\n%s", out)
	}
	out, err = execute(t, "version")
	if err != nil || !strings.Contains(out, "trackgeo dev") {
		t.Fatalf("version = %q, %v", out, err)
	}
}
