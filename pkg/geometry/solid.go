package geometry

import (
	"fmt"
	"strings"
)

// SolidKind enumerates the supported shapes.
type SolidKind int

const (
	SolidBox SolidKind = iota
	SolidTube
	SolidCone
	SolidSphere
	SolidBoolean
	SolidReflected
)

func (k SolidKind) String() string {
	switch k {
	case SolidBox:
		return "box"
	case SolidTube:
		return "tube"
	case SolidCone:
		return "cone"
	case SolidSphere:
		return "sphere"
	case SolidBoolean:
		return "boolean"
	case SolidReflected:
		return "reflected"
	default:
		return "unknown"
	}
}

// Solid is a shape of a logical volume. Dimensions are half-lengths in cm.
type Solid interface {
	Kind() SolidKind
}

// Box is an axis-aligned box.
type Box struct {
	DX, DY, DZ float64
}

// Tube is a cylindrical shell.
type Tube struct {
	RMin, RMax, DZ float64
}

// Cone is a conical shell.
type Cone struct {
	DZ, RMin1, RMax1, RMin2, RMax2 float64
}

// Sphere is a spherical shell.
type Sphere struct {
	RMin, RMax float64
}

// BooleanOp selects the boolean combination.
type BooleanOp int

const (
	Union BooleanOp = iota
	Subtraction
	Intersection
)

func (op BooleanOp) String() string {
	switch op {
	case Union:
		return "union"
	case Subtraction:
		return "subtraction"
	case Intersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// Boolean combines A with B placed by Transform in A's frame.
type Boolean struct {
	Op        BooleanOp
	A, B      Solid
	Transform Transform
}

// Reflected is the z-mirror image of Solid.
type Reflected struct {
	Solid Solid
}

func (Box) Kind() SolidKind       { return SolidBox }
func (Tube) Kind() SolidKind      { return SolidTube }
func (Cone) Kind() SolidKind      { return SolidCone }
func (Sphere) Kind() SolidKind    { return SolidSphere }
func (Boolean) Kind() SolidKind   { return SolidBoolean }
func (Reflected) Kind() SolidKind { return SolidReflected }

// NewSolid builds a solid from a legacy shape code and its parameter list.
func NewSolid(shape string, params []float64) (Solid, error) {
	need := func(n int) error {
		if len(params) < n {
			return fmt.Errorf("shape %s needs %d parameters, got %d", shape, n, len(params))
		}
		for _, p := range params[:n] {
			if p < 0 {
				return fmt.Errorf("shape %s: negative parameter in %v", shape, params)
			}
		}
		return nil
	}
	switch strings.ToUpper(strings.TrimSpace(shape)) {
	case "BOX":
		if err := need(3); err != nil {
			return nil, err
		}
		return Box{DX: params[0], DY: params[1], DZ: params[2]}, nil
	case "TUBE":
		if err := need(3); err != nil {
			return nil, err
		}
		return Tube{RMin: params[0], RMax: params[1], DZ: params[2]}, nil
	case "CONE":
		if err := need(5); err != nil {
			return nil, err
		}
		return Cone{DZ: params[0], RMin1: params[1], RMax1: params[2], RMin2: params[3], RMax2: params[4]}, nil
	case "SPHE":
		if err := need(2); err != nil {
			return nil, err
		}
		return Sphere{RMin: params[0], RMax: params[1]}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedShape, shape)
	}
}
