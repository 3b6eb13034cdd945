package rig

import (
	"fmt"

	"go.uber.org/multierr"
)

// AnimationSet is a named group of animations sharing one skeleton.
type AnimationSet struct {
	ID         int
	Name       string
	Animations []*Animation

	byName map[string]*Animation
}

// NewAnimationSet returns an empty set.
func NewAnimationSet(name string) *AnimationSet {
	return &AnimationSet{
		Name:   name,
		byName: make(map[string]*Animation),
	}
}

// AddAnimation appends an animation. Its name must be unique and its pose
// shape must match the animations already in the set. An unassigned id is
// set to the animation's index.
func (s *AnimationSet) AddAnimation(a *Animation) error {
	s.ensureIndex()
	if _, ok := s.byName[a.Name]; ok {
		return fmt.Errorf("%w: animation %q", ErrDuplicateName, a.Name)
	}
	if ref, state := s.EntityState(), a.EntityState(); ref != nil && state != nil {
		if err := ref.SameShape(state); err != nil {
			return fmt.Errorf("animation %q: %w", a.Name, err)
		}
	}
	if a.ID < 0 {
		a.ID = len(s.Animations)
	}
	s.Animations = append(s.Animations, a)
	s.byName[a.Name] = a
	return nil
}

// Animation returns the animation with the given name.
func (s *AnimationSet) Animation(name string) (*Animation, bool) {
	s.ensureIndex()
	a, ok := s.byName[name]
	return a, ok
}

// RenameAnimation gives a a new name that must not already be in use.
func (s *AnimationSet) RenameAnimation(a *Animation, newName string) error {
	s.ensureIndex()
	if a.Name == newName {
		return nil
	}
	if _, ok := s.byName[newName]; ok {
		return fmt.Errorf("%w: animation %q", ErrDuplicateName, newName)
	}
	if s.byName[a.Name] != a {
		return fmt.Errorf("%w: animation %q is not part of set %q", ErrMissingReference, a.Name, s.Name)
	}
	delete(s.byName, a.Name)
	a.Name = newName
	s.byName[newName] = a
	return nil
}

// RemoveAnimation drops a from the set and renumbers the remaining ids.
func (s *AnimationSet) RemoveAnimation(a *Animation) error {
	s.ensureIndex()
	index := -1
	for i, other := range s.Animations {
		if other == a {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("%w: animation %q is not part of set %q", ErrMissingReference, a.Name, s.Name)
	}
	delete(s.byName, a.Name)
	s.Animations = append(s.Animations[:index], s.Animations[index+1:]...)
	for i := index; i < len(s.Animations); i++ {
		s.Animations[i].ID = i
	}
	return nil
}

// EntityState returns the first pose of the first animation, or nil.
func (s *AnimationSet) EntityState() *EntityState {
	if len(s.Animations) == 0 {
		return nil
	}
	return s.Animations[0].EntityState()
}

// CloneEntityState returns a copy of the set's reference pose, or nil.
func (s *AnimationSet) CloneEntityState() *EntityState {
	if len(s.Animations) == 0 {
		return nil
	}
	return s.Animations[0].CloneEntityState()
}

// CloneAnimation returns a copy of the first animation, or nil.
func (s *AnimationSet) CloneAnimation() *Animation {
	if len(s.Animations) == 0 {
		return nil
	}
	return s.Animations[0].Clone()
}

// Validate checks every animation and that all of them share one shape.
// Shapes are compared against the first animation that passes its own checks.
func (s *AnimationSet) Validate() error {
	var (
		errs error
		ref  *EntityState
	)
	for _, a := range s.Animations {
		if err := a.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("animation %q: %w", a.Name, err))
			continue
		}
		if ref == nil {
			ref = a.EntityState()
			continue
		}
		if err := ref.SameShape(a.EntityState()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("animation %q: %w", a.Name, err))
		}
	}
	return errs
}

func (s *AnimationSet) ensureIndex() {
	if s.byName != nil {
		return
	}
	s.byName = make(map[string]*Animation, len(s.Animations))
	for _, a := range s.Animations {
		s.byName[a.Name] = a
	}
}
