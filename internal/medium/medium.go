// Package medium maps logical volumes to tracking media: a material, optional
// step limits and process controls shared by every volume of the medium.
package medium

import (
	"errors"
	"sort"
	"sync"

	"trackgeo/internal/fault"
	"trackgeo/internal/limits"
	"trackgeo/internal/verbose"
	"trackgeo/pkg/geometry"

	"go.uber.org/zap"
)

const component = "MediumMap"

var (
	ErrDuplicateMedium = errors.New("medium already exists")
	ErrUnknownMedium   = errors.New("medium does not exist")
	ErrNoMedium        = errors.New("volume has no medium")
)

// Medium groups a material with transport limits. Limits is replaced only
// while the limits policy runs.
type Medium struct {
	ID       int
	Name     string
	Material *geometry.Material
	Limits   *limits.Record
}

// Map is the many-to-one association of volumes to media.
type Map struct {
	*verbose.Level
	mu       sync.RWMutex
	media    map[int]*Medium
	byVolume map[geometry.Handle]*Medium
	logger   *zap.Logger
}

// NewMap constructs an empty map.
func NewMap(logger *zap.Logger) *Map {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Map{
		Level:    verbose.NewLevel("mediumMap", 0),
		media:    make(map[int]*Medium),
		byVolume: make(map[geometry.Handle]*Medium),
		logger:   logger,
	}
}

// AddMedium registers a medium. With mustBeUnique a duplicate id is fatal;
// otherwise the existing medium is returned.
func (m *Map) AddMedium(id int, mustBeUnique bool) (*Medium, error) {
	if id < 0 {
		return nil, fault.Fatal(component, "AddMedium", "medium id %d is negative", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.media[id]; ok {
		if mustBeUnique {
			return nil, &fault.Error{Component: component, Method: "AddMedium", Cause: errWithID(ErrDuplicateMedium, id)}
		}
		return existing, nil
	}
	med := &Medium{ID: id}
	m.media[id] = med
	if m.Enabled(3) {
		m.logger.Debug("adding medium", zap.Int("id", id))
	}
	return med, nil
}

// MapMedium associates lv with an existing medium.
func (m *Map) MapMedium(lv *geometry.LogicalVolume, id int) error {
	if lv == nil {
		return fault.Fatal(component, "MapMedium", "nil logical volume")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.media[id]
	if !ok {
		return &fault.Error{Component: component, Method: "MapMedium", Cause: errWithID(ErrUnknownMedium, id)}
	}
	m.byVolume[lv.Handle()] = med
	if m.Enabled(3) {
		m.logger.Debug("mapping medium", zap.Int("id", id), zap.String("volume", lv.Name()))
	}
	return nil
}

// GetMedium returns the medium of lv. A miss is an error only when
// fatalIfMissing is set and lv is not an assembly; otherwise (nil, nil).
func (m *Map) GetMedium(lv *geometry.LogicalVolume, fatalIfMissing bool) (*Medium, error) {
	if lv == nil {
		return nil, fault.Fatal(component, "GetMedium", "nil logical volume")
	}
	m.mu.RLock()
	med, ok := m.byVolume[lv.Handle()]
	m.mu.RUnlock()
	if ok {
		return med, nil
	}
	if fatalIfMissing && !lv.IsAssembly() {
		return nil, &fault.Error{Component: component, Method: "GetMedium", Cause: errWithName(ErrNoMedium, lv.Name())}
	}
	return nil, nil
}

// Medium looks a medium up by id.
func (m *Map) Medium(id int) (*Medium, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	med, ok := m.media[id]
	return med, ok
}

// NofMedia returns the number of registered media.
func (m *Map) NofMedia() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.media)
}

// NofMappedVolumes returns the number of volumes with a medium.
func (m *Map) NofMappedVolumes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byVolume)
}

// Media returns the media sorted by id.
func (m *Map) Media() []*Medium {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Medium, 0, len(m.media))
	for _, med := range m.media {
		out = append(out, med)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Volumes returns the handles mapped to medium id, sorted.
func (m *Map) Volumes(id int) []geometry.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []geometry.Handle
	for h, med := range m.byVolume {
		if med.ID == id {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clear drops every medium and mapping.
func (m *Map) Clear() {
	m.mu.Lock()
	m.media = make(map[int]*Medium)
	m.byVolume = make(map[geometry.Handle]*Medium)
	m.mu.Unlock()
}
