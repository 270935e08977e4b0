package limits

import (
	"math"
	"sort"
	"sync"
)

// Unbounded is the step limit meaning "no limit".
const Unbounded = math.MaxFloat64

// Record is the step-limit/control record installed on logical volumes.
// UserMaxStep is the value the medium definition asked for; MaxStep is the
// value in force after policy application.
type Record struct {
	Name           string
	UserMaxStep    float64
	MaxStep        float64
	DefaultMaxStep float64
	Cuts           CutVector
	Controls       ControlVector
}

// NewRecord creates a record with the given user max step. Non-positive
// values mean unbounded.
func NewRecord(name string, userMaxStep float64) *Record {
	if userMaxStep <= 0 {
		userMaxStep = Unbounded
	}
	return &Record{
		Name:           name,
		UserMaxStep:    userMaxStep,
		MaxStep:        userMaxStep,
		DefaultMaxStep: userMaxStep,
		Controls:       NewControlVector(),
	}
}

// MaxAllowedStep implements geometry.UserLimits.
func (r *Record) MaxAllowedStep() float64 { return r.MaxStep }

// SetMaxAllowedStep overrides the step in force.
func (r *Record) SetMaxAllowedStep(step float64) { r.MaxStep = step }

// SetDefaultMaxAllowedStep remembers the current step as the default.
func (r *Record) SetDefaultMaxAllowedStep() { r.DefaultMaxStep = r.MaxStep }

// Update merges the live control vector into the record.
func (r *Record) Update(controls ControlVector) { r.Controls.Merge(controls) }

// Key identifies a shared record.
type Key struct {
	Name     string
	Cuts     CutVector
	Controls ControlVector
}

// Registry owns the limits records of a job and shares them between volumes
// with the same (name, cuts, controls).
type Registry struct {
	mu      sync.Mutex
	records map[Key]*Record
	order   []Key
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[Key]*Record)}
}

// Resolve returns the record for (name, cuts, controls), creating it when
// absent. A new record inherits UserMaxStep from base, the limits the medium
// was defined with. The boolean reports whether a record was created.
func (r *Registry) Resolve(base *Record, name string, cuts CutVector, controls ControlVector) (*Record, bool) {
	key := Key{Name: name, Cuts: cuts, Controls: controls}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[key]; ok {
		return rec, false
	}
	userMaxStep := Unbounded
	if base != nil {
		userMaxStep = base.UserMaxStep
	}
	rec := NewRecord(name, userMaxStep)
	rec.Cuts = cuts
	rec.Controls = controls
	r.records[key] = rec
	r.order = append(r.order, key)
	return rec, true
}

// Find returns the record registered under key.
func (r *Registry) Find(key Key) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	return rec, ok
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Names returns the sorted, de-duplicated record names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{}, len(r.order))
	out := make([]string, 0, len(r.order))
	for _, k := range r.order {
		if _, ok := seen[k.Name]; ok {
			continue
		}
		seen[k.Name] = struct{}{}
		out = append(out, k.Name)
	}
	sort.Strings(out)
	return out
}
