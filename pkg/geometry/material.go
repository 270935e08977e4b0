package geometry

import (
	"fmt"
	"sort"
)

// Material is an entry of the native material table. Index is the position in
// the table and doubles as the medium ID under material-index filling.
type Material struct {
	Index   int
	Name    string
	Z       float64
	A       float64 // g/mole
	Density float64 // g/cm3
	RadLen  float64 // cm
}

// MaterialTable is the ordered, name-unique native material table.
type MaterialTable struct {
	items  []*Material
	byName map[string]*Material
}

// NewMaterialTable constructs an empty table.
func NewMaterialTable() *MaterialTable {
	return &MaterialTable{byName: make(map[string]*Material)}
}

// Add appends a material; names must be unique.
func (t *MaterialTable) Add(name string, z, a, density, radLen float64) (*Material, error) {
	if name == "" {
		return nil, fmt.Errorf("material name required")
	}
	if _, exists := t.byName[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMaterial, name)
	}
	if density < 0 {
		return nil, fmt.Errorf("material %s: negative density %g", name, density)
	}
	m := &Material{Index: len(t.items), Name: name, Z: z, A: a, Density: density, RadLen: radLen}
	t.items = append(t.items, m)
	t.byName[name] = m
	return m, nil
}

// Get looks a material up by name.
func (t *MaterialTable) Get(name string) (*Material, bool) {
	m, ok := t.byName[name]
	return m, ok
}

// ByIndex returns the material at index i.
func (t *MaterialTable) ByIndex(i int) (*Material, bool) {
	if i < 0 || i >= len(t.items) {
		return nil, false
	}
	return t.items[i], true
}

// All returns the materials in index order.
func (t *MaterialTable) All() []*Material {
	out := make([]*Material, len(t.items))
	copy(out, t.items)
	return out
}

// Len returns the number of materials.
func (t *MaterialTable) Len() int { return len(t.items) }

// Names returns the sorted material names.
func (t *MaterialTable) Names() []string {
	out := make([]string, 0, len(t.byName))
	for name := range t.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
