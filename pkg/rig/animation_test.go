package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timing struct {
	ID, Time, Length int
}

func timings(a *Animation) []timing {
	out := make([]timing, len(a.Keyframes))
	for i, kf := range a.Keyframes {
		out[i] = timing{kf.ID, kf.Time, kf.Length}
	}
	return out
}

func TestAnimation_InsertAndRemoveKeyframe(t *testing.T) {
	a := newTestAnimation(t, "walk", 100, 0)
	require.Equal(t, []timing{{0, 0, 100}}, timings(a))

	require.NoError(t, a.AddKeyframe(NewKeyframe(100, newTestState(t))))
	assert.Equal(t, []timing{{0, 0, 100}, {1, 100, 0}}, timings(a))

	mid := NewKeyframe(50, newTestState(t))
	require.NoError(t, a.AddKeyframe(mid))
	assert.Equal(t, []timing{{0, 0, 50}, {1, 50, 50}, {2, 100, 0}}, timings(a))

	require.NoError(t, a.RemoveKeyframe(mid))
	assert.Equal(t, []timing{{0, 0, 100}, {1, 100, 0}}, timings(a))
}

func TestAnimation_AddKeyframeOutOfOrder(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 40, 0, 20)

	assert.Equal(t, []timing{{0, 0, 20}, {1, 20, 20}, {2, 40, 20}}, timings(a))
	require.NoError(t, a.Validate())
}

func TestAnimation_RemoveLastKeyframe(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 0, 20, 40)

	require.NoError(t, a.RemoveKeyframe(a.Keyframes[2]))
	assert.Equal(t, []timing{{0, 0, 20}, {1, 20, 40}}, timings(a))

	require.NoError(t, a.RemoveKeyframe(a.Keyframes[1]))
	assert.Equal(t, []timing{{0, 0, 60}}, timings(a))

	err := a.RemoveKeyframe(NewKeyframe(5, newTestState(t)))
	assert.ErrorIs(t, err, ErrMissingReference)
	assert.ErrorIs(t, a.RemoveKeyframe(nil), ErrMissingReference)

	require.NoError(t, a.RemoveKeyframe(a.Keyframes[0]))
	assert.Empty(t, a.Keyframes)
}

func TestAnimation_RemoveKeyframeKeepsStart(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 0, 30)

	assert.ErrorIs(t, a.RemoveKeyframe(a.Keyframes[0]), ErrKeyframeTime)
	assert.Equal(t, []timing{{0, 0, 30}, {1, 30, 30}}, timings(a))
	require.NoError(t, a.Validate())
}

func TestAnimation_AddKeyframeRejects(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 0, 30)

	assert.ErrorIs(t, a.AddKeyframe(NewKeyframe(30, newTestState(t))), ErrKeyframeTime)
	assert.ErrorIs(t, a.AddKeyframe(NewKeyframe(-1, newTestState(t))), ErrKeyframeTime)
	assert.ErrorIs(t, a.AddKeyframe(NewKeyframe(10, NewEntityState())), ErrShapeMismatch)
	assert.ErrorIs(t, a.AddKeyframe(NewKeyframe(10, nil)), ErrMissingPrecondition)
	assert.Len(t, a.Keyframes, 2)
}

func TestAnimation_KeyframeAt(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 10, 30)

	assert.Nil(t, a.KeyframeAt(5))
	assert.Equal(t, 10, a.KeyframeAt(10).Time)
	assert.Equal(t, 10, a.KeyframeAt(29).Time)
	assert.Equal(t, 30, a.KeyframeAt(30).Time)
	assert.Equal(t, 30, a.KeyframeAt(500).Time)
}

func TestAnimation_PrevNextKeyframe(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 0, 20, 40)
	first, last := a.Keyframes[0], a.Keyframes[2]

	assert.Same(t, a.Keyframes[1], a.NextKeyframe(first, false))
	assert.Same(t, first, a.NextKeyframe(last, false))
	assert.Same(t, last, a.NextKeyframe(last, true))
	assert.Same(t, last, a.PrevKeyframe(first, false))
	assert.Same(t, first, a.PrevKeyframe(first, true))

	a.Looping = false
	assert.Same(t, last, a.NextKeyframe(last, false))
	assert.Same(t, first, a.PrevKeyframe(first, false))
}

func TestAnimation_UpdateEntityStateAtKeyTimes(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 0, 20, 40)
	out := a.CloneEntityState()

	for _, kf := range a.Keyframes {
		require.NoError(t, a.UpdateEntityState(out, float64(kf.Time)))
		assert.Equal(t, kf.State.Bones, out.Bones, "keyframe %d", kf.ID)
		assert.Equal(t, kf.State.Skins, out.Skins, "keyframe %d", kf.ID)
	}
}

func TestAnimation_UpdateEntityStateInterpolates(t *testing.T) {
	a := newTestAnimation(t, "walk", 40, 0, 20)

	pose, err := a.Pose(10)
	require.NoError(t, err)
	assert.InDelta(t, 5, pose.Bones[2].Transform.X, tolerance)
	assert.InDelta(t, 15, pose.Bones[2].Transform.Angle, tolerance)

	// looping: the last keyframe blends back toward the first
	pose, err = a.Pose(30)
	require.NoError(t, err)
	assert.InDelta(t, 5, pose.Bones[2].Transform.X, tolerance)

	a.Looping = false
	pose, err = a.Pose(30)
	require.NoError(t, err)
	assert.InDelta(t, 10, pose.Bones[2].Transform.X, tolerance)
}

func TestAnimation_UpdateEntityStatePreconditions(t *testing.T) {
	empty := NewAnimation("empty", 10)
	_, err := empty.Pose(0)
	assert.ErrorIs(t, err, ErrMissingPrecondition)
	assert.ErrorIs(t, empty.UpdateEntityState(NewEntityState(), 0), ErrMissingPrecondition)

	late := newTestAnimation(t, "late", 10, 5)
	_, err = late.Pose(2)
	assert.ErrorIs(t, err, ErrMissingPrecondition)

	a := newTestAnimation(t, "walk", 10, 0)
	assert.ErrorIs(t, a.UpdateEntityState(NewEntityState(), 0), ErrShapeMismatch)
}

func TestAnimation_SingleKeyframeCopiesPose(t *testing.T) {
	a := newTestAnimation(t, "idle", 10, 0)

	pose, err := a.Pose(7.5)
	require.NoError(t, err)
	assert.Equal(t, a.Keyframes[0].State.Bones, pose.Bones)
}

func TestAnimation_CloneIsDeep(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 0, 20)
	a.ID = 4

	c := a.Clone()
	c.Keyframes[1].State.Bones[2].Transform.X = 1000

	assert.Equal(t, -1, c.ID)
	assert.Equal(t, timings(a), timings(c))
	assert.Equal(t, 10.0, a.Keyframes[1].State.Bones[2].Transform.X)
	assert.NotSame(t, a.Keyframes[0], c.Keyframes[0])
}

func TestAnimation_SetLength(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 0, 20)

	a.SetLength(90)

	assert.Equal(t, []timing{{0, 0, 20}, {1, 20, 70}}, timings(a))
	require.NoError(t, a.Validate())
}

func TestAnimation_Validate(t *testing.T) {
	a := newTestAnimation(t, "walk", 60, 0, 20)
	require.NoError(t, a.Validate())

	a.Keyframes[1].Length = 3
	assert.ErrorIs(t, a.Validate(), ErrKeyframeTime)

	assert.ErrorIs(t, NewAnimation("empty", 1).Validate(), ErrMissingPrecondition)
}
