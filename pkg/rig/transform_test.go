package rig

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-9

func TestTransform_ApplyRotatesOffsetByParent(t *testing.T) {
	root := Transform{X: 10, Y: 0, Angle: 90, ScaleX: 1, ScaleY: 1}
	child := Transform{X: 5, Y: 0, Angle: 0, ScaleX: 1, ScaleY: 1}

	world := child.Apply(root)

	assert.InDelta(t, 10, world.X, tolerance)
	assert.InDelta(t, 5, world.Y, tolerance)
	assert.InDelta(t, 90, world.Angle, tolerance)
}

func TestTransform_ApplyScalesOffsetBeforeRotating(t *testing.T) {
	parent := Transform{X: 1, Y: 2, Angle: 180, ScaleX: 2, ScaleY: 3}
	child := Transform{X: 1, Y: 1, Angle: 30, ScaleX: 0.5, ScaleY: 2}

	world := child.Apply(parent)

	// (1,1) scaled to (2,3), rotated 180 to (-2,-3), moved by (1,2).
	assert.InDelta(t, -1, world.X, tolerance)
	assert.InDelta(t, -1, world.Y, tolerance)
	assert.InDelta(t, 210, world.Angle, tolerance)
	assert.InDelta(t, 1, world.ScaleX, tolerance)
	assert.InDelta(t, 6, world.ScaleY, tolerance)
}

func TestTransform_InterpolateShortestWrap(t *testing.T) {
	from := Transform{Angle: 350, ScaleX: 1, ScaleY: 1, Spin: 1}
	to := Transform{Angle: 10, ScaleX: 1, ScaleY: 1}

	for i := 0; i <= 10; i++ {
		f := float64(i) / 10
		a := NormalizeAngle(from.Interpolate(to, f, true).Angle)
		assert.Truef(t, a >= 350 || a <= 10, "f=%v angle %v left the short arc", f, a)
	}
	assert.InDelta(t, 360, from.Interpolate(to, 0.5, true).Angle, tolerance)
}

func TestTransform_InterpolateWrapBothDirections(t *testing.T) {
	tests := []struct {
		name string
		a0   float64
		a1   float64
		spin int
		want float64 // angle at f=0.5
	}{
		{"short arc up", 350, 10, 0, 360},
		{"short arc down", 10, 350, 0, 0},
		{"direct", 10, 50, 0, 30},
		{"spin ccw through wrap", 90, 45, 1, 247.5},
		{"spin ccw direct", 45, 90, 1, 67.5},
		{"spin cw through wrap", 45, 90, -1, -112.5},
		{"spin cw direct", 90, 45, -1, 67.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from := Transform{Angle: tt.a0, Spin: tt.spin}
			got := from.Interpolate(Transform{Angle: tt.a1}, 0.5, false)
			assert.InDelta(t, tt.want, got.Angle, tolerance)
			assert.Equal(t, tt.spin, got.Spin)
		})
	}
}

func TestTransform_InterpolateLerpsFields(t *testing.T) {
	from := Transform{X: 0, Y: 10, ScaleX: 1, ScaleY: 0}
	to := Transform{X: 10, Y: 20, ScaleX: 3, ScaleY: 1}

	got := from.Interpolate(to, 0.25, false)

	assert.Equal(t, Transform{X: 2.5, Y: 12.5, ScaleX: 1.5, ScaleY: 0.25}, got)
	assert.Equal(t, from, from.Interpolate(to, 0, false))
}

func TestTransform_Invert(t *testing.T) {
	tr := Transform{X: 3, Y: -4, Angle: 30, ScaleX: 2, ScaleY: 0.5, Spin: 1}

	inv := tr.Invert()

	assert.Equal(t, Transform{X: -3, Y: 4, Angle: -30, ScaleX: 0.5, ScaleY: 2}, inv)
	assert.True(t, math.IsInf(Transform{}.Invert().ScaleX, 1))
}

func TestTransform_AddSub(t *testing.T) {
	a := Transform{X: 1, Y: 2, Angle: 30, ScaleX: 1, ScaleY: 1, Spin: 1}
	b := Transform{X: 10, Y: 20, Angle: 45, ScaleX: 0.5, ScaleY: -1, Spin: -1}

	assert.Equal(t, Transform{X: 11, Y: 22, Angle: 75, ScaleX: 1.5, ScaleY: 0}, a.Add(b))
	assert.Equal(t, Transform{X: 9, Y: 18, Angle: 15, ScaleX: -0.5, ScaleY: -2}, b.Sub(a))
	assert.Zero(t, b.Sub(a).Spin)
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{725, 5},
		{-720, 0},
		{359.5, 359.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeAngle(tt.in), tolerance, "NormalizeAngle(%v)", tt.in)
	}
}
