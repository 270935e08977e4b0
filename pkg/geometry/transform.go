package geometry

import "math"

// Vector3 is a point or displacement in cm.
type Vector3 struct {
	X, Y, Z float64
}

// Add returns v+o.
func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v-o.
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Rotation is a row-major 3x3 matrix.
type Rotation [9]float64

// IdentityRotation returns the unit matrix.
func IdentityRotation() Rotation {
	return Rotation{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// ReflectZ mirrors the z axis; it is the reflection factored out of placements
// whose rotation has a negative determinant.
func ReflectZ() Rotation {
	return Rotation{1, 0, 0, 0, 1, 0, 0, 0, -1}
}

// RotationFromAngles builds a rotation from the six polar/azimuthal angles (degrees)
// of the rotated axes, the legacy matrix convention.
func RotationFromAngles(theta1, phi1, theta2, phi2, theta3, phi3 float64) Rotation {
	axis := func(theta, phi float64) (float64, float64, float64) {
		t, p := theta*math.Pi/180, phi*math.Pi/180
		return math.Sin(t) * math.Cos(p), math.Sin(t) * math.Sin(p), math.Cos(t)
	}
	x1, y1, z1 := axis(theta1, phi1)
	x2, y2, z2 := axis(theta2, phi2)
	x3, y3, z3 := axis(theta3, phi3)
	// columns are the images of the unit axes
	return Rotation{
		x1, x2, x3,
		y1, y2, y3,
		z1, z2, z3,
	}
}

// Det returns the determinant.
func (r Rotation) Det() float64 {
	return r[0]*(r[4]*r[8]-r[5]*r[7]) -
		r[1]*(r[3]*r[8]-r[5]*r[6]) +
		r[2]*(r[3]*r[7]-r[4]*r[6])
}

// IsReflection reports whether the matrix flips handedness.
func (r Rotation) IsReflection() bool { return r.Det() < 0 }

// Mul returns r*o.
func (r Rotation) Mul(o Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += r[i*3+k] * o[k*3+j]
			}
			out[i*3+j] = s
		}
	}
	return out
}

// Transpose returns the transposed matrix, the inverse of an orthogonal one.
func (r Rotation) Transpose() Rotation {
	return Rotation{r[0], r[3], r[6], r[1], r[4], r[7], r[2], r[5], r[8]}
}

// Apply rotates v.
func (r Rotation) Apply(v Vector3) Vector3 {
	return Vector3{
		r[0]*v.X + r[1]*v.Y + r[2]*v.Z,
		r[3]*v.X + r[4]*v.Y + r[5]*v.Z,
		r[6]*v.X + r[7]*v.Y + r[8]*v.Z,
	}
}

// Transform places a daughter frame inside its mother: p_mother = R*p + T.
type Transform struct {
	Rotation    Rotation
	Translation Vector3
}

// Identity returns the null placement.
func Identity() Transform {
	return Transform{Rotation: IdentityRotation()}
}

// Translate returns a pure translation.
func Translate(x, y, z float64) Transform {
	return Transform{Rotation: IdentityRotation(), Translation: Vector3{x, y, z}}
}

// Apply maps p from the daughter frame to the mother frame.
func (t Transform) Apply(p Vector3) Vector3 {
	return t.Rotation.Apply(p).Add(t.Translation)
}

// Compose returns the transform applying o first, then t.
func (t Transform) Compose(o Transform) Transform {
	return Transform{
		Rotation:    t.Rotation.Mul(o.Rotation),
		Translation: t.Rotation.Apply(o.Translation).Add(t.Translation),
	}
}

// Inverse returns the inverse of an orthogonal transform.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Transpose()
	neg := inv.Apply(t.Translation)
	return Transform{Rotation: inv, Translation: Vector3{-neg.X, -neg.Y, -neg.Z}}
}
