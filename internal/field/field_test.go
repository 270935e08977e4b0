package field

import (
	"testing"

	"trackgeo/internal/worker"
	"trackgeo/pkg/geometry"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

func TestConstructMagFieldOnePerWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	workers := worker.NewRegistry()
	solenoid := Uniform{Z: 5}
	c := NewController(EngineFunc(func() Field { return solenoid }), workers, nil)

	var g errgroup.Group
	for i := 1; i <= 4; i++ {
		id := worker.ID(i)
		g.Go(func() error {
			a := c.ConstructMagField(id)
			if again := c.ConstructMagField(id); again != a {
				t.Errorf("worker %d got a second adapter", id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if c.NofAdapters() != 4 {
		t.Fatalf("adapters = %d, want 4", c.NofAdapters())
	}
	a, ok := c.Adapter(2)
	if !ok || a.Worker() != 2 {
		t.Fatalf("missing adapter for worker 2")
	}
	if got := a.Value(geometry.Vector3{X: 1}); got.Z != 5 {
		t.Fatalf("field value = %+v", got)
	}
	if workers.Len(2) != 1 {
		t.Fatalf("teardown hook not registered once: %d", workers.Len(2))
	}
	if err := workers.Teardown(2); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if _, ok := c.Adapter(2); ok {
		t.Fatalf("adapter survived teardown")
	}
}

func TestConstructMagFieldWithoutField(t *testing.T) {
	c := NewController(EngineFunc(func() Field { return nil }), nil, nil)
	if a := c.ConstructMagField(1); a != nil {
		t.Fatalf("expected no adapter")
	}
	if a := NewController(nil, nil, nil).ConstructMagField(1); a != nil {
		t.Fatalf("expected no adapter for nil engine")
	}
}

func TestUpdateMagField(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := NewController(EngineFunc(func() Field { return Uniform{} }), nil, zap.New(core))
	if c.UpdateMagField(1) {
		t.Fatalf("update without adapter must report false")
	}
	if logs.FilterMessage("No magnetic field is defined.").Len() != 1 {
		t.Fatalf("expected warning to be logged")
	}

	c.ConstructMagField(1)
	p := DefaultParameters()
	p.Stepper = NystromRK4
	if err := c.SetParameters(p); err != nil {
		t.Fatalf("set parameters: %v", err)
	}
	if !c.UpdateMagField(1) {
		t.Fatalf("update failed")
	}
	a, _ := c.Adapter(1)
	if a.Parameters().Stepper != NystromRK4 || a.Updates() != 1 {
		t.Fatalf("parameters not pushed: %+v", a.Parameters())
	}
}

func TestParameters(t *testing.T) {
	if err := DefaultParameters().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := DefaultParameters()
	bad.MinimumEpsilonStep = 1
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected epsilon range error")
	}
	if s, err := ParseStepperType("CashKarpRKF45"); err != nil || s != CashKarpRKF45 {
		t.Fatalf("parse stepper: %v %v", s, err)
	}
	if StepperTypeName(StepperType(99)) != "Undefined" || MagSpinEqRhs.String() != "MagSpinEqRhs" {
		t.Fatalf("names")
	}
	c := NewController(nil, nil, nil)
	if err := c.SetParameters(bad); err == nil {
		t.Fatalf("controller accepted invalid parameters")
	}
}
