package math

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestVec2Add(t *testing.T) {
	a := Vec2{1, 2}
	b := Vec2{3, 4}
	got := a.Add(b)
	want := Vec2{4, 6}
	if got != want {
		t.Errorf("Vec2.Add() = %v, want %v", got, want)
	}
}

func TestVec2Sub(t *testing.T) {
	got := Vec2{5, 7}.Sub(Vec2{2, 3})
	want := Vec2{3, 4}
	if got != want {
		t.Errorf("Vec2.Sub() = %v, want %v", got, want)
	}
}

func TestVec2Length(t *testing.T) {
	v := Vec2{3, 4}
	got := v.Length()
	if got != 5 {
		t.Errorf("Vec2.Length() = %v, want 5", got)
	}
}

func TestVec2Rotate(t *testing.T) {
	tests := []struct {
		v       Vec2
		degrees float64
		want    Vec2
	}{
		{Vec2{5, 0}, 90, Vec2{0, 5}},
		{Vec2{5, 0}, 180, Vec2{-5, 0}},
		{Vec2{0, 2}, -90, Vec2{2, 0}},
		{Vec2{1, 1}, 0, Vec2{1, 1}},
	}

	for _, tt := range tests {
		got := tt.v.Rotate(tt.degrees)
		if math.Abs(got.X-tt.want.X) > eps || math.Abs(got.Y-tt.want.Y) > eps {
			t.Errorf("%v.Rotate(%v) = %v, want %v", tt.v, tt.degrees, got, tt.want)
		}
	}
}

func TestVec2Mul(t *testing.T) {
	got := Vec2{2, 3}.Mul(Vec2{4, -1})
	want := Vec2{8, -3}
	if got != want {
		t.Errorf("Vec2.Mul() = %v, want %v", got, want)
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(10, 20, 0.25); got != 12.5 {
		t.Errorf("Lerp(10, 20, 0.25) = %v, want 12.5", got)
	}
	if got := Lerp(10, 20, 0); got != 10 {
		t.Errorf("Lerp(10, 20, 0) = %v, want 10", got)
	}
}
