package rig

import "fmt"

// RestAnimationName names the animation that drives retargeting.
const RestAnimationName = "rest"

// Retarget moves every animation in the set onto a new rest pose, using the
// animation named RestAnimationName.
func (s *AnimationSet) Retarget() error {
	return s.RetargetWith(RestAnimationName)
}

// RetargetWith retargets the set using the named rest animation.
//
// The rest animation must hold exactly two keyframes: the original rest pose
// and the new one. Their difference is added to every keyframe of every other
// animation. The rest animation's first keyframe is moved by the same delta;
// its second keyframe already is the new rest pose and is kept. Nothing is
// modified unless every pose can be updated.
func (s *AnimationSet) RetargetWith(restName string) error {
	rest, ok := s.Animation(restName)
	if !ok {
		return fmt.Errorf("%w: no %q animation in set %q", ErrMissingPrecondition, restName, s.Name)
	}
	if len(rest.Keyframes) != 2 {
		return fmt.Errorf("%w: %q animation needs 2 keyframes, has %d", ErrMissingPrecondition, restName, len(rest.Keyframes))
	}

	delta, err := Difference(rest.Keyframes[0].State, rest.Keyframes[1].State)
	if err != nil {
		return fmt.Errorf("rest poses: %w", err)
	}

	updated := make(map[*Keyframe]*EntityState)
	for _, a := range s.Animations {
		for _, kf := range a.Keyframes {
			if a == rest && kf.ID != 0 {
				continue
			}
			state, err := Combine(kf.State, delta)
			if err != nil {
				return fmt.Errorf("animation %q keyframe %d: %w", a.Name, kf.ID, err)
			}
			updated[kf] = state
		}
	}

	for kf, state := range updated {
		kf.State = state
	}
	return nil
}
