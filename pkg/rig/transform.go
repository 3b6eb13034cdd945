// Package rig implements the skeletal animation model: 2D transforms, bone and
// skin nodes, entity states (poses), keyframed animations and animation sets.
package rig

import (
	gomath "math"

	"github.com/Faultbox/chophuman/pkg/math"
)

// Transform is a 2D pose: position, rotation in degrees and non-uniform scale.
//
// Angle is not bounded; keeping it unwrapped preserves winding across
// compositions. Spin only matters when interpolating: it picks the rotation
// direction (1 counter-clockwise, -1 clockwise, 0 shortest arc).
type Transform struct {
	X      float64
	Y      float64
	Angle  float64
	ScaleX float64
	ScaleY float64
	Spin   int
}

// IdentityTransform returns the transform with unit scale and no offset or rotation.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// Position returns the translation part.
func (t Transform) Position() math.Vec2 {
	return math.Vec2{X: t.X, Y: t.Y}
}

// Scale returns the scale factors as a vector.
func (t Transform) Scale() math.Vec2 {
	return math.Vec2{X: t.ScaleX, Y: t.ScaleY}
}

// Radians returns the angle in radians.
func (t Transform) Radians() float64 {
	return math.Radians(t.Angle)
}

// Interpolate blends t toward to by fraction f.
//
// Position and scale are lerped. The angle winds according to t.Spin; shortest
// forces the shortest arc regardless of spin. The result keeps t.Spin.
func (t Transform) Interpolate(to Transform, f float64, shortest bool) Transform {
	spin := t.Spin
	if shortest {
		spin = 0
	}

	a0, a1 := t.Angle, to.Angle
	switch {
	case spin == 0:
		if gomath.Abs(a0-a1) > 180 {
			if a1 < a0 {
				a1 += 360
			} else {
				a1 -= 360
			}
		}
	case spin > 0 && a0 > a1:
		a1 += 360
	case spin < 0 && a0 < a1:
		a1 -= 360
	}

	return Transform{
		X:      math.Lerp(t.X, to.X, f),
		Y:      math.Lerp(t.Y, to.Y, f),
		Angle:  math.Lerp(a0, a1, f),
		ScaleX: math.Lerp(t.ScaleX, to.ScaleX, f),
		ScaleY: math.Lerp(t.ScaleY, to.ScaleY, f),
		Spin:   t.Spin,
	}
}

// Apply moves a parent-relative transform into the parent's space.
// The parent must already be in world space.
func (t Transform) Apply(parent Transform) Transform {
	offset := t.Position().Mul(parent.Scale()).Rotate(parent.Angle)
	return Transform{
		X:      parent.X + offset.X,
		Y:      parent.Y + offset.Y,
		Angle:  t.Angle + parent.Angle,
		ScaleX: t.ScaleX * parent.ScaleX,
		ScaleY: t.ScaleY * parent.ScaleY,
		Spin:   t.Spin,
	}
}

// Invert returns the transform with negated position and angle and reciprocal
// scale. A zero scale inverts to an infinite one. Spin is dropped.
func (t Transform) Invert() Transform {
	return Transform{
		X:      -t.X,
		Y:      -t.Y,
		Angle:  -t.Angle,
		ScaleX: 1 / t.ScaleX,
		ScaleY: 1 / t.ScaleY,
	}
}

// Add returns the field-wise sum. Spin is reset.
func (t Transform) Add(o Transform) Transform {
	return Transform{
		X:      t.X + o.X,
		Y:      t.Y + o.Y,
		Angle:  t.Angle + o.Angle,
		ScaleX: t.ScaleX + o.ScaleX,
		ScaleY: t.ScaleY + o.ScaleY,
	}
}

// Sub returns the field-wise difference t - o. Spin is reset.
func (t Transform) Sub(o Transform) Transform {
	return Transform{
		X:      t.X - o.X,
		Y:      t.Y - o.Y,
		Angle:  t.Angle - o.Angle,
		ScaleX: t.ScaleX - o.ScaleX,
		ScaleY: t.ScaleY - o.ScaleY,
	}
}

// NormalizeAngle maps degrees into [0, 360).
func NormalizeAngle(degrees float64) float64 {
	a := gomath.Mod(degrees, 360)
	if a < 0 {
		a += 360
	}
	// Mod of a tiny negative value can round up to exactly 360.
	if a >= 360 {
		a = 0
	}
	return a
}
