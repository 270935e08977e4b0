package worker

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTeardownRunsInReverseOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	r.Register(1, "field", func() error { order = append(order, "field"); return nil })
	r.Register(1, "sd", func() error { order = append(order, "sd"); return nil })
	r.Register(2, "field", func() error { order = append(order, "other"); return nil })
	r.Register(1, "nil", nil)

	if !r.Has(1, "field") || r.Has(1, "nil") || r.Len(1) != 2 {
		t.Fatalf("unexpected registry contents")
	}
	if err := r.Teardown(1); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if diff := cmp.Diff([]string{"sd", "field"}, order); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if r.Len(1) != 0 || r.Len(2) != 1 {
		t.Fatalf("teardown touched the wrong worker")
	}
}

func TestTeardownJoinsErrors(t *testing.T) {
	r := NewRegistry()
	ran := 0
	r.Register(3, "a", func() error { ran++; return errors.New("boom a") })
	r.Register(3, "b", func() error { ran++; return errors.New("boom b") })
	r.Register(4, "c", func() error { ran++; return nil })
	err := r.TeardownAll()
	if err == nil || !strings.Contains(err.Error(), "boom a") || !strings.Contains(err.Error(), "boom b") {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if ran != 3 {
		t.Fatalf("ran %d hooks, want 3", ran)
	}
}
