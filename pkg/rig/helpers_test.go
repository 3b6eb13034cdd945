package rig

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestState builds root -> torso -> arm with one skin on the torso.
func newTestState(t *testing.T) *EntityState {
	t.Helper()
	s := NewEntityState()

	root := NewBone("root")
	_, err := s.AddBone(root)
	require.NoError(t, err)

	torso := NewBone("torso")
	torso.Parent = 0
	torso.Transform.Y = 20
	_, err = s.AddBone(torso)
	require.NoError(t, err)

	arm := NewBone("arm")
	arm.Parent = 1
	arm.Transform.X = 8
	arm.Transform.Angle = 45
	_, err = s.AddBone(arm)
	require.NoError(t, err)

	skin := NewSkin("torso_skin", 1)
	skin.PivotX = 0.5
	_, err = s.AddSkin(skin)
	require.NoError(t, err)

	return s
}

// withPose returns a clone of base with the arm bone moved.
func withPose(base *EntityState, armX, armAngle float64) *EntityState {
	s := base.Clone()
	s.Bones[2].Transform.X = armX
	s.Bones[2].Transform.Angle = armAngle
	return s
}

// newTestAnimation builds an animation with keyframes at the given times.
func newTestAnimation(t *testing.T, name string, length int, times ...int) *Animation {
	t.Helper()
	base := newTestState(t)
	a := NewAnimation(name, length)
	for i, tm := range times {
		require.NoError(t, a.AddKeyframe(NewKeyframe(tm, withPose(base, float64(i*10), float64(i*30)))))
	}
	return a
}
