package verbose

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistrySetOneAndAll(t *testing.T) {
	reg := NewRegistry()
	geo := NewLevel("geometryManager", 0)
	fld := NewLevel("fieldController", 1)
	for _, v := range []Verbose{geo, fld} {
		if err := reg.Register(v); err != nil {
			t.Fatalf("register %s: %v", v.Name(), err)
		}
	}
	if err := reg.Set("geometryManager", 3); err != nil {
		t.Fatalf("set: %v", err)
	}
	if geo.VerboseLevel() != 3 || fld.VerboseLevel() != 1 {
		t.Fatalf("levels after set: %d %d", geo.VerboseLevel(), fld.VerboseLevel())
	}
	if err := reg.Set(AllComponents, 2); err != nil {
		t.Fatalf("set all: %v", err)
	}
	want := map[string]int{"geometryManager": 2, "fieldController": 2}
	if diff := cmp.Diff(want, reg.Levels()); diff != "" {
		t.Fatalf("levels (-want +got):\n%s", diff)
	}
	if !geo.Enabled(2) || geo.Enabled(3) {
		t.Fatalf("Enabled gating wrong")
	}
}

func TestRegistryRejectsBadNames(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewLevel(AllComponents, 0)); err == nil {
		t.Fatalf("expected error for reserved name")
	}
	if err := reg.Register(NewLevel("a", 0)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(NewLevel("a", 0)); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := reg.Set("missing", 1); err == nil {
		t.Fatalf("expected unknown component error")
	}
	reg.Unregister("a")
	if len(reg.Names()) != 0 {
		t.Fatalf("unregister failed")
	}
}
