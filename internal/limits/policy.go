// Package limits holds the step-limit and process-control records installed on
// logical volumes and the policy deriving them from global configuration.
package limits

import "fmt"

const (
	// DefaultLimitDensity is the low-density threshold (g/cm3), just below air.
	DefaultLimitDensity = 0.001
	// DefaultLowDensityMaxStep is the step ceiling (cm) in low-density materials.
	DefaultLowDensityMaxStep = 10.0
)

// Config carries the user-facing switches of the policy.
type Config struct {
	UserMaxStep         bool
	MaxStepInLowDensity bool
	LimitDensity        float64
	LowDensityMaxStep   float64
}

// DefaultConfig returns the policy defaults: user max step off, low-density
// ceiling on.
func DefaultConfig() Config {
	return Config{
		UserMaxStep:         false,
		MaxStepInLowDensity: true,
		LimitDensity:        DefaultLimitDensity,
		LowDensityMaxStep:   DefaultLowDensityMaxStep,
	}
}

// Validate checks the numeric parameters.
func (c Config) Validate() error {
	if c.LimitDensity < 0 {
		return fmt.Errorf("limit density must be non-negative, got %g", c.LimitDensity)
	}
	if c.LowDensityMaxStep <= 0 {
		return fmt.Errorf("low-density max step must be positive, got %g", c.LowDensityMaxStep)
	}
	return nil
}

// Target is what a policy step operates on.
type Target struct {
	Record   *Record
	Density  float64
	Controls ControlVector
}

// Step is one stage of the policy. Steps run in a fixed order.
type Step interface {
	Name() string
	Apply(cfg Config, t Target)
}

// Policy applies its steps in registration order.
type Policy struct {
	cfg   Config
	steps []Step
}

// NewPolicy builds the policy with the built-in step order: user max step,
// low-density ceiling, default step, control merge.
func NewPolicy(cfg Config) *Policy {
	return &Policy{
		cfg: cfg,
		steps: []Step{
			userMaxStepStep{},
			lowDensityStep{},
			defaultMaxStepStep{},
			controlMergeStep{},
		},
	}
}

// Config returns the current configuration.
func (p *Policy) Config() Config { return p.cfg }

// SetUserMaxStep (in)activates the max step defined in the media.
func (p *Policy) SetUserMaxStep(on bool) { p.cfg.UserMaxStep = on }

// SetMaxStepInLowDensity (in)activates the low-density ceiling.
func (p *Policy) SetMaxStepInLowDensity(on bool) { p.cfg.MaxStepInLowDensity = on }

// SetLimitDensity sets the low-density threshold.
func (p *Policy) SetLimitDensity(density float64) { p.cfg.LimitDensity = density }

// SetLowDensityMaxStep sets the ceiling used in low-density materials.
func (p *Policy) SetLowDensityMaxStep(step float64) { p.cfg.LowDensityMaxStep = step }

// Steps returns the step names in application order.
func (p *Policy) Steps() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Name()
	}
	return out
}

// Apply runs every step on rec.
func (p *Policy) Apply(rec *Record, density float64, controls ControlVector) {
	t := Target{Record: rec, Density: density, Controls: controls}
	for _, s := range p.steps {
		s.Apply(p.cfg, t)
	}
}

type userMaxStepStep struct{}

func (userMaxStepStep) Name() string { return "user_max_step" }

func (userMaxStepStep) Apply(cfg Config, t Target) {
	if cfg.UserMaxStep {
		t.Record.SetMaxAllowedStep(t.Record.UserMaxStep)
		return
	}
	t.Record.SetMaxAllowedStep(Unbounded)
}

type lowDensityStep struct{}

func (lowDensityStep) Name() string { return "low_density_max_step" }

func (lowDensityStep) Apply(cfg Config, t Target) {
	if !cfg.MaxStepInLowDensity || t.Density >= cfg.LimitDensity {
		return
	}
	if t.Record.MaxStep > cfg.LowDensityMaxStep {
		t.Record.SetMaxAllowedStep(cfg.LowDensityMaxStep)
	}
}

type defaultMaxStepStep struct{}

func (defaultMaxStepStep) Name() string { return "default_max_step" }

func (defaultMaxStepStep) Apply(_ Config, t Target) { t.Record.SetDefaultMaxAllowedStep() }

type controlMergeStep struct{}

func (controlMergeStep) Name() string { return "control_merge" }

func (controlMergeStep) Apply(_ Config, t Target) { t.Record.Update(t.Controls) }
