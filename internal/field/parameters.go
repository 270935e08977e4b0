package field

import "fmt"

// StepperType selects the integration stepper of the field adapter.
type StepperType int

const (
	ClassicalRK4 StepperType = iota
	SimpleRunge
	SimpleHeum
	ImplicitEuler
	ExplicitEuler
	CashKarpRKF45
	HelixExplicitEuler
	HelixImplicitEuler
	HelixSimpleRunge
	NystromRK4
)

var stepperNames = []string{
	"ClassicalRK4",
	"SimpleRunge",
	"SimpleHeum",
	"ImplicitEuler",
	"ExplicitEuler",
	"CashKarpRKF45",
	"HelixExplicitEuler",
	"HelixImplicitEuler",
	"HelixSimpleRunge",
	"NystromRK4",
}

// StepperTypeName returns the display name of t.
func StepperTypeName(t StepperType) string {
	if t < 0 || int(t) >= len(stepperNames) {
		return "Undefined"
	}
	return stepperNames[t]
}

func (t StepperType) String() string { return StepperTypeName(t) }

// ParseStepperType resolves a stepper by name.
func ParseStepperType(name string) (StepperType, error) {
	for i, n := range stepperNames {
		if n == name {
			return StepperType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stepper type %q", name)
}

// EquationType selects the equation of motion.
type EquationType int

const (
	MagUsualEqRhs EquationType = iota
	MagSpinEqRhs
)

func (e EquationType) String() string {
	switch e {
	case MagUsualEqRhs:
		return "MagUsualEqRhs"
	case MagSpinEqRhs:
		return "MagSpinEqRhs"
	default:
		return "Undefined"
	}
}

// Parameters configure the field adapters. Lengths are in cm.
type Parameters struct {
	Stepper            StepperType
	Equation           EquationType
	MinimumStep        float64
	DeltaChord         float64
	DeltaOneStep       float64
	DeltaIntersection  float64
	MinimumEpsilonStep float64
	MaximumEpsilonStep float64
}

// DefaultParameters mirror the engine's propagator defaults.
func DefaultParameters() Parameters {
	return Parameters{
		Stepper:            ClassicalRK4,
		Equation:           MagUsualEqRhs,
		MinimumStep:        0.001,
		DeltaChord:         0.025,
		DeltaOneStep:       1e-4,
		DeltaIntersection:  1e-4,
		MinimumEpsilonStep: 5e-5,
		MaximumEpsilonStep: 1e-3,
	}
}

// Validate checks parameter consistency.
func (p Parameters) Validate() error {
	if StepperTypeName(p.Stepper) == "Undefined" {
		return fmt.Errorf("invalid stepper type %d", int(p.Stepper))
	}
	if p.MinimumStep <= 0 || p.DeltaChord <= 0 || p.DeltaOneStep <= 0 || p.DeltaIntersection <= 0 {
		return fmt.Errorf("field accuracy parameters must be positive")
	}
	if p.MinimumEpsilonStep <= 0 || p.MinimumEpsilonStep > p.MaximumEpsilonStep {
		return fmt.Errorf("epsilon range [%g, %g] is invalid", p.MinimumEpsilonStep, p.MaximumEpsilonStep)
	}
	return nil
}
