package rig

import (
	"fmt"
	gomath "math"

	"go.uber.org/multierr"
)

// Keyframe is a pose at a specific frame of an animation.
//
// ID is the keyframe's position in its animation. Length is the number of
// frames until the next keyframe, or until the end of the animation for the last one.
type Keyframe struct {
	ID     int
	Time   int
	Length int
	State  *EntityState
}

// NewKeyframe returns an unattached keyframe owning state.
func NewKeyframe(time int, state *EntityState) *Keyframe {
	return &Keyframe{ID: -1, Time: time, State: state}
}

// Clone returns a deep copy.
func (k *Keyframe) Clone() *Keyframe {
	return &Keyframe{
		ID:     k.ID,
		Time:   k.Time,
		Length: k.Length,
		State:  k.State.Clone(),
	}
}

// fraction returns how far t is into the keyframe's span.
func (k *Keyframe) fraction(t float64) float64 {
	if k.Length == 0 {
		return 0
	}
	return (t - float64(k.Time)) / float64(k.Length)
}

// Animation is an ordered set of keyframes, strictly increasing by time.
type Animation struct {
	ID        int
	Name      string
	Length    int
	Looping   bool
	Keyframes []*Keyframe
}

// NewAnimation returns an empty looping animation of the given frame count.
func NewAnimation(name string, length int) *Animation {
	return &Animation{
		ID:      -1,
		Name:    name,
		Length:  length,
		Looping: true,
	}
}

// AddKeyframe inserts kf in time order, renumbers the keyframes after it and
// updates the lengths of kf and its predecessor.
func (a *Animation) AddKeyframe(kf *Keyframe) error {
	if kf == nil || kf.State == nil {
		return fmt.Errorf("%w: keyframe without entity state", ErrMissingPrecondition)
	}
	if kf.Time < 0 {
		return fmt.Errorf("%w: %d is negative", ErrKeyframeTime, kf.Time)
	}

	index := len(a.Keyframes)
	for i, other := range a.Keyframes {
		if other.Time == kf.Time {
			return fmt.Errorf("%w: animation %q already has a keyframe at %d", ErrKeyframeTime, a.Name, kf.Time)
		}
		if other.Time > kf.Time {
			index = i
			break
		}
	}
	if len(a.Keyframes) > 0 {
		if err := a.Keyframes[0].State.SameShape(kf.State); err != nil {
			return fmt.Errorf("keyframe at %d: %w", kf.Time, err)
		}
	}

	a.Keyframes = append(a.Keyframes, nil)
	copy(a.Keyframes[index+1:], a.Keyframes[index:])
	a.Keyframes[index] = kf
	kf.ID = index
	for i := index + 1; i < len(a.Keyframes); i++ {
		a.Keyframes[i].ID = i
	}

	if index > 0 {
		prev := a.Keyframes[index-1]
		prev.Length = kf.Time - prev.Time
	}
	kf.Length = a.endOf(index) - kf.Time
	return nil
}

// RemoveKeyframe removes kf, renumbers the remaining keyframes and updates
// the length of its predecessor. The keyframe at time 0 can only be removed
// when it is the last one left.
func (a *Animation) RemoveKeyframe(kf *Keyframe) error {
	if kf == nil {
		return fmt.Errorf("%w: nil keyframe", ErrMissingReference)
	}
	index := a.indexOf(kf)
	if index < 0 {
		return fmt.Errorf("%w: keyframe at %d is not part of animation %q", ErrMissingReference, kf.Time, a.Name)
	}
	if kf.Time == 0 && len(a.Keyframes) > 1 {
		return fmt.Errorf("%w: animation %q must keep its keyframe at 0", ErrKeyframeTime, a.Name)
	}

	a.Keyframes = append(a.Keyframes[:index], a.Keyframes[index+1:]...)
	for i := index; i < len(a.Keyframes); i++ {
		a.Keyframes[i].ID = i
	}
	if index > 0 {
		prev := a.Keyframes[index-1]
		prev.Length = a.endOf(index-1) - prev.Time
	}
	return nil
}

// endOf returns the time at which the keyframe at index ends.
func (a *Animation) endOf(index int) int {
	if index+1 < len(a.Keyframes) {
		return a.Keyframes[index+1].Time
	}
	return a.Length
}

func (a *Animation) indexOf(kf *Keyframe) int {
	for i, other := range a.Keyframes {
		if other == kf {
			return i
		}
	}
	return -1
}

// SetLength changes the frame count and the length of the last keyframe.
func (a *Animation) SetLength(length int) {
	a.Length = length
	if n := len(a.Keyframes); n > 0 {
		last := a.Keyframes[n-1]
		last.Length = length - last.Time
	}
}

// Keyframe returns the keyframe with the given id.
func (a *Animation) Keyframe(id int) (*Keyframe, error) {
	if id < 0 || id >= len(a.Keyframes) {
		return nil, fmt.Errorf("%w: animation %q has no keyframe %d", ErrMissingReference, a.Name, id)
	}
	return a.Keyframes[id], nil
}

// KeyframeAt returns the latest keyframe whose time is <= t, or nil when t
// precedes every keyframe.
func (a *Animation) KeyframeAt(t int) *Keyframe {
	var result *Keyframe
	for _, kf := range a.Keyframes {
		if kf.Time > t {
			break
		}
		result = kf
	}
	return result
}

// PrevKeyframe returns the keyframe before kf. At the first keyframe it wraps
// to the last one when the animation loops and noLooping is false; otherwise
// it returns kf itself.
func (a *Animation) PrevKeyframe(kf *Keyframe, noLooping bool) *Keyframe {
	id := kf.ID - 1
	if id < 0 {
		if a.Looping && !noLooping {
			id = len(a.Keyframes) - 1
		} else {
			id = kf.ID
		}
	}
	return a.Keyframes[id]
}

// NextKeyframe returns the keyframe after kf, wrapping or clamping at the end
// the same way PrevKeyframe does at the start.
func (a *Animation) NextKeyframe(kf *Keyframe, noLooping bool) *Keyframe {
	id := kf.ID + 1
	if id >= len(a.Keyframes) {
		if a.Looping && !noLooping {
			id = 0
		} else {
			id = kf.ID
		}
	}
	return a.Keyframes[id]
}

// UpdateEntityState writes the pose at time t into out.
func (a *Animation) UpdateEntityState(out *EntityState, t float64) error {
	if len(a.Keyframes) == 0 {
		return fmt.Errorf("%w: animation %q has no keyframes", ErrMissingPrecondition, a.Name)
	}
	key0 := a.KeyframeAt(int(gomath.Floor(t)))
	if key0 == nil {
		return fmt.Errorf("%w: animation %q has no keyframe at or before %v", ErrMissingPrecondition, a.Name, t)
	}
	key1 := a.NextKeyframe(key0, false)
	if key0 == key1 {
		return out.CopyFrom(key0.State)
	}

	pose, err := Interpolate(key0.State, key1.State, key0.fraction(t), false)
	if err != nil {
		return err
	}
	return out.CopyFrom(pose)
}

// Pose returns a new entity state holding the pose at time t.
func (a *Animation) Pose(t float64) (*EntityState, error) {
	if len(a.Keyframes) == 0 {
		return nil, fmt.Errorf("%w: animation %q has no keyframes", ErrMissingPrecondition, a.Name)
	}
	out := a.Keyframes[0].State.Clone()
	if err := a.UpdateEntityState(out, t); err != nil {
		return nil, err
	}
	return out, nil
}

// EntityState returns the pose of the first keyframe, or nil.
func (a *Animation) EntityState() *EntityState {
	if len(a.Keyframes) == 0 {
		return nil
	}
	return a.Keyframes[0].State
}

// CloneEntityState returns a copy of the first keyframe's pose, or nil.
func (a *Animation) CloneEntityState() *EntityState {
	if state := a.EntityState(); state != nil {
		return state.Clone()
	}
	return nil
}

// Clone returns a deep copy. The id is left unassigned.
func (a *Animation) Clone() *Animation {
	out := &Animation{
		ID:        -1,
		Name:      a.Name,
		Length:    a.Length,
		Looping:   a.Looping,
		Keyframes: make([]*Keyframe, len(a.Keyframes)),
	}
	for i, kf := range a.Keyframes {
		out.Keyframes[i] = kf.Clone()
	}
	return out
}

// Validate reports every bookkeeping or shape problem in the animation.
func (a *Animation) Validate() error {
	var errs error
	if len(a.Keyframes) == 0 {
		return fmt.Errorf("%w: animation %q has no keyframes", ErrMissingPrecondition, a.Name)
	}
	if a.Keyframes[0].Time != 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: animation %q starts at %d", ErrKeyframeTime, a.Name, a.Keyframes[0].Time))
	}
	first := a.Keyframes[0].State
	for i, kf := range a.Keyframes {
		if kf.ID != i {
			errs = multierr.Append(errs, fmt.Errorf("%w: keyframe %d has id %d", ErrInvalidNode, i, kf.ID))
		}
		if i > 0 && kf.Time <= a.Keyframes[i-1].Time {
			errs = multierr.Append(errs, fmt.Errorf("%w: keyframe %d at %d is not after %d", ErrKeyframeTime, i, kf.Time, a.Keyframes[i-1].Time))
		}
		if want := a.endOf(i) - kf.Time; kf.Length != want {
			errs = multierr.Append(errs, fmt.Errorf("%w: keyframe %d length %d, want %d", ErrKeyframeTime, i, kf.Length, want))
		}
		if err := first.SameShape(kf.State); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("keyframe %d: %w", i, err))
		}
		errs = multierr.Append(errs, kf.State.Validate())
	}
	return errs
}
