// Package source reads serialized geometry definitions and replays them into
// a job's workspace. Documents live in a blob store (YAML or JSON) or, for
// legacy tables, in a SQL database.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"trackgeo/internal/blob"
	"trackgeo/internal/mcgeom"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownReference = errors.New("unknown reference")
	ErrAssembly         = errors.New("assemblies are not supported by this source")
)

var validate = validator.New()

// Document is one geometry definition. Cross references are by name.
type Document struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	// Top names the world volume; empty means the first volume.
	Top       string     `yaml:"top,omitempty" json:"top,omitempty"`
	Materials []Material `yaml:"materials" json:"materials" validate:"dive"`
	Media     []Medium   `yaml:"media" json:"media" validate:"dive"`
	Rotations []Rotation `yaml:"rotations,omitempty" json:"rotations,omitempty" validate:"dive"`
	Volumes   []Volume   `yaml:"volumes" json:"volumes" validate:"required,min=1,dive"`
	Positions []Position `yaml:"positions,omitempty" json:"positions,omitempty" validate:"dive"`
	// TrackingMedia makes natively built geometry take its media from Media
	// instead of the material table.
	TrackingMedia bool `yaml:"tracking_media,omitempty" json:"tracking_media,omitempty"`
}

type Material struct {
	Name    string  `yaml:"name" json:"name" validate:"required"`
	A       float64 `yaml:"a" json:"a" validate:"gte=0"`
	Z       float64 `yaml:"z" json:"z" validate:"gte=0"`
	Density float64 `yaml:"density" json:"density" validate:"gte=0"`
	RadLen  float64 `yaml:"rad_len,omitempty" json:"rad_len,omitempty"`
	AbsLen  float64 `yaml:"abs_len,omitempty" json:"abs_len,omitempty"`
}

// Medium is a tracking medium. MaxStep > 0 is its step ceiling in cm.
type Medium struct {
	Name     string  `yaml:"name" json:"name" validate:"required"`
	Material string  `yaml:"material" json:"material" validate:"required"`
	IsVol    int     `yaml:"is_vol,omitempty" json:"is_vol,omitempty"`
	IField   int     `yaml:"ifield,omitempty" json:"ifield,omitempty"`
	FieldM   float64 `yaml:"field_max,omitempty" json:"field_max,omitempty"`
	TMaxFD   float64 `yaml:"max_deflection,omitempty" json:"max_deflection,omitempty"`
	MaxStep  float64 `yaml:"max_step,omitempty" json:"max_step,omitempty" validate:"gte=0"`
	DeeMax   float64 `yaml:"max_energy_loss,omitempty" json:"max_energy_loss,omitempty"`
	Epsil    float64 `yaml:"precision,omitempty" json:"precision,omitempty"`
	StMin    float64 `yaml:"min_step,omitempty" json:"min_step,omitempty"`
}

// Params returns the medium's tracking parameters.
func (m Medium) Params() mcgeom.MediumParams {
	return mcgeom.MediumParams{
		IsVol:  m.IsVol,
		IField: m.IField,
		FieldM: m.FieldM,
		TMaxFD: m.TMaxFD,
		SteMax: m.MaxStep,
		DeeMax: m.DeeMax,
		Epsil:  m.Epsil,
		StMin:  m.StMin,
	}
}

// Rotation is a rotation matrix given by the polar and azimuthal angles of
// the rotated axes, in degrees.
type Rotation struct {
	Name   string  `yaml:"name" json:"name" validate:"required"`
	Theta1 float64 `yaml:"theta1" json:"theta1"`
	Phi1   float64 `yaml:"phi1" json:"phi1"`
	Theta2 float64 `yaml:"theta2" json:"theta2"`
	Phi2   float64 `yaml:"phi2" json:"phi2"`
	Theta3 float64 `yaml:"theta3" json:"theta3"`
	Phi3   float64 `yaml:"phi3" json:"phi3"`
}

// Volume is a shaped volume filled with a medium, or an assembly.
type Volume struct {
	Name     string    `yaml:"name" json:"name" validate:"required"`
	Shape    string    `yaml:"shape,omitempty" json:"shape,omitempty" validate:"required_without=Assembly"`
	Medium   string    `yaml:"medium,omitempty" json:"medium,omitempty" validate:"required_without=Assembly"`
	Params   []float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Assembly bool      `yaml:"assembly,omitempty" json:"assembly,omitempty"`
}

// Position places Volume inside Mother. Many marks a placement allowed to
// overlap its siblings.
type Position struct {
	Volume   string    `yaml:"volume" json:"volume" validate:"required"`
	Mother   string    `yaml:"mother" json:"mother" validate:"required"`
	CopyNo   int       `yaml:"copy" json:"copy"`
	At       []float64 `yaml:"at,omitempty" json:"at,omitempty" validate:"omitempty,len=3"`
	Rotation string    `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	Many     bool      `yaml:"many,omitempty" json:"many,omitempty"`
}

// Validate checks the document structure. References are resolved on replay.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid geometry document: %w", err)
	}
	return nil
}

// Decode parses and validates a document. Unknown fields are rejected.
func Decode(data []byte, format blob.Format) (*Document, error) {
	var doc Document
	switch format {
	case blob.FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json document: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml document: %w", err)
		}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode serializes the document.
func (d *Document) Encode(format blob.Format) ([]byte, error) {
	if format == blob.FormatJSON {
		return json.MarshalIndent(d, "", "  ")
	}
	return yaml.Marshal(d)
}
