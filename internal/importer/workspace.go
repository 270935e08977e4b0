// Package importer builds the native volume graph from one of the geometry
// source representations and fills the medium map for it.
package importer

import (
	"fmt"

	"trackgeo/internal/interchange"
	"trackgeo/internal/legacy"
	"trackgeo/internal/mcgeom"
	"trackgeo/internal/medium"
	"trackgeo/internal/verbose"
	"trackgeo/pkg/geometry"
)

// MediaSource selects how interchange media reach the medium map.
type MediaSource string

const (
	// MaterialIndexMedia uses the native material table index as medium id.
	MaterialIndexMedia MediaSource = "material-index"
	// TrackingMediaSource uses the interchange tracking media.
	TrackingMediaSource MediaSource = "tracking-media"
)

// ParseMediaSource validates a media source name; empty means MaterialIndexMedia.
func ParseMediaSource(s string) (MediaSource, error) {
	switch MediaSource(s) {
	case "", MaterialIndexMedia:
		return MaterialIndexMedia, nil
	case TrackingMediaSource:
		return TrackingMediaSource, nil
	default:
		return "", fmt.Errorf("unknown media source %q", s)
	}
}

// TrackingMedium is one externally supplied medium. MaxStep > 0 becomes the
// medium's step ceiling.
type TrackingMedium struct {
	ID       int
	Name     string
	Material string
	MaxStep  float64
}

// TrackingMedia is an externally populated medium list with the volume
// assignment by name.
type TrackingMedia struct {
	Media   []TrackingMedium
	Volumes map[string]int
}

// NewTrackingMedia constructs an empty list.
func NewTrackingMedia() *TrackingMedia {
	return &TrackingMedia{Volumes: make(map[string]int)}
}

// Add appends a medium.
func (t *TrackingMedia) Add(m TrackingMedium) { t.Media = append(t.Media, m) }

// Assign gives volume the medium id.
func (t *TrackingMedia) Assign(volume string, id int) { t.Volumes[volume] = id }

// Empty reports whether no medium was supplied.
func (t *TrackingMedia) Empty() bool { return t == nil || len(t.Media) == 0 }

// Workspace holds every source representation a construction callback can
// write into, and the native graph the strategy produces.
type Workspace struct {
	Graph            *geometry.Graph
	Legacy           *legacy.Tables
	Interchange      *interchange.Manager
	TrackingMedia    *TrackingMedia
	InterchangeMedia MediaSource
	// MC is the virtual definition interface of the selected source; nil for
	// natively authored geometry.
	MC mcgeom.Geometry
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		Graph:            geometry.NewGraph(),
		Legacy:           legacy.NewTables(),
		Interchange:      interchange.NewManager(),
		TrackingMedia:    NewTrackingMedia(),
		InterchangeMedia: MaterialIndexMedia,
	}
}

// Strategy is one geometry import path.
type Strategy interface {
	verbose.Verbose
	Kind() Kind
	// Close finishes the source definition; it runs while the callbacks'
	// ConstructGeometry state is still active.
	Close(ws *Workspace) error
	PopulateGraph(ws *Workspace) error
	FillMediums(ws *Workspace, mm *medium.Map) error
	// MCGeometry returns the virtual definition interface of the source, nil
	// when the source is authored natively.
	MCGeometry(ws *Workspace) mcgeom.Geometry
}
