package rig

import (
	"fmt"

	"go.uber.org/multierr"
)

// EntityState is one complete pose of a skeleton and its skins.
//
// Bones[i].ID == i and Skins[i].ID == i always hold; AddBone and AddSkin
// enforce it. Every state used together with another (interpolation,
// combination, the keyframes of one animation) must have the same shape.
type EntityState struct {
	Bones []Bone
	Skins []Skin

	boneByName map[string]int
	skinByName map[string]int
}

// NewEntityState returns an empty pose.
func NewEntityState() *EntityState {
	return &EntityState{
		boneByName: make(map[string]int),
		skinByName: make(map[string]int),
	}
}

// AddBone appends a bone and returns its id.
//
// A negative b.ID is assigned the next free slot. Any other id must equal that
// slot. The parent must be NoParent or an already added bone.
func (s *EntityState) AddBone(b Bone) (int, error) {
	s.ensureIndex()

	slot := len(s.Bones)
	if b.ID < 0 {
		b.ID = slot
	}
	if b.ID != slot {
		return -1, fmt.Errorf("%w: bone %q has id %d, next slot is %d", ErrInvalidNode, b.Name, b.ID, slot)
	}
	if b.Parent != NoParent && (b.Parent < 0 || b.Parent >= b.ID) {
		return -1, fmt.Errorf("%w: bone %q parent %d must precede id %d", ErrInvalidNode, b.Name, b.Parent, b.ID)
	}
	if b.Name != "" {
		if _, ok := s.boneByName[b.Name]; ok {
			return -1, fmt.Errorf("%w: bone %q", ErrDuplicateName, b.Name)
		}
		s.boneByName[b.Name] = b.ID
	}

	b.Kind = KindBone
	s.Bones = append(s.Bones, b)
	return b.ID, nil
}

// AddSkin appends a skin and returns its id. The parent must be NoParent or
// an existing bone.
func (s *EntityState) AddSkin(sk Skin) (int, error) {
	s.ensureIndex()

	slot := len(s.Skins)
	if sk.ID < 0 {
		sk.ID = slot
	}
	if sk.ID != slot {
		return -1, fmt.Errorf("%w: skin %q has id %d, next slot is %d", ErrInvalidNode, sk.Name, sk.ID, slot)
	}
	if sk.Parent != NoParent && (sk.Parent < 0 || sk.Parent >= len(s.Bones)) {
		return -1, fmt.Errorf("%w: skin %q parent bone %d", ErrMissingReference, sk.Name, sk.Parent)
	}
	if sk.Name != "" {
		if _, ok := s.skinByName[sk.Name]; ok {
			return -1, fmt.Errorf("%w: skin %q", ErrDuplicateName, sk.Name)
		}
		s.skinByName[sk.Name] = sk.ID
	}

	sk.Kind = KindSkin
	s.Skins = append(s.Skins, sk)
	return sk.ID, nil
}

// Bone returns the bone with the given id, or nil.
func (s *EntityState) Bone(id int) *Bone {
	if id < 0 || id >= len(s.Bones) {
		return nil
	}
	return &s.Bones[id]
}

// Skin returns the skin with the given id, or nil.
func (s *EntityState) Skin(id int) *Skin {
	if id < 0 || id >= len(s.Skins) {
		return nil
	}
	return &s.Skins[id]
}

// BoneByName looks a bone up by name.
func (s *EntityState) BoneByName(name string) (*Bone, bool) {
	s.ensureIndex()
	if id, ok := s.boneByName[name]; ok && id < len(s.Bones) && s.Bones[id].Name == name {
		return &s.Bones[id], true
	}
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			s.boneByName[name] = i
			return &s.Bones[i], true
		}
	}
	return nil, false
}

// SkinByName looks a skin up by name.
func (s *EntityState) SkinByName(name string) (*Skin, bool) {
	s.ensureIndex()
	if id, ok := s.skinByName[name]; ok && id < len(s.Skins) && s.Skins[id].Name == name {
		return &s.Skins[id], true
	}
	for i := range s.Skins {
		if s.Skins[i].Name == name {
			s.skinByName[name] = i
			return &s.Skins[i], true
		}
	}
	return nil, false
}

// RootBone returns bone 0, or nil for an empty skeleton.
func (s *EntityState) RootBone() *Bone {
	return s.Bone(0)
}

// Clone returns a deep copy.
func (s *EntityState) Clone() *EntityState {
	out := &EntityState{
		Bones:      make([]Bone, len(s.Bones)),
		Skins:      make([]Skin, len(s.Skins)),
		boneByName: make(map[string]int, len(s.Bones)),
		skinByName: make(map[string]int, len(s.Skins)),
	}
	copy(out.Bones, s.Bones)
	copy(out.Skins, s.Skins)
	for i := range out.Bones {
		if name := out.Bones[i].Name; name != "" {
			out.boneByName[name] = i
		}
	}
	for i := range out.Skins {
		if name := out.Skins[i].Name; name != "" {
			out.skinByName[name] = i
		}
	}
	return out
}

// CopyFrom overwrites every node of s with the matching node of other.
func (s *EntityState) CopyFrom(other *EntityState) error {
	if err := s.SameShape(other); err != nil {
		return err
	}
	copy(s.Bones, other.Bones)
	copy(s.Skins, other.Skins)
	return nil
}

// SameShape returns an ErrShapeMismatch error describing the first structural
// difference between s and other, or nil.
func (s *EntityState) SameShape(other *EntityState) error {
	if other == nil {
		return fmt.Errorf("%w: nil entity state", ErrShapeMismatch)
	}
	if len(s.Bones) != len(other.Bones) {
		return fmt.Errorf("%w: %d bones vs %d", ErrShapeMismatch, len(s.Bones), len(other.Bones))
	}
	if len(s.Skins) != len(other.Skins) {
		return fmt.Errorf("%w: %d skins vs %d", ErrShapeMismatch, len(s.Skins), len(other.Skins))
	}
	for i := range s.Bones {
		if err := sameNode(&s.Bones[i].Node, &other.Bones[i].Node); err != nil {
			return err
		}
	}
	for i := range s.Skins {
		if err := sameNode(&s.Skins[i].Node, &other.Skins[i].Node); err != nil {
			return err
		}
	}
	return nil
}

func sameNode(a, b *Node) error {
	switch {
	case a.Kind != b.Kind:
		return fmt.Errorf("%w: %s %d vs %s %d", ErrShapeMismatch, a.Kind, a.ID, b.Kind, b.ID)
	case a.ID != b.ID:
		return fmt.Errorf("%w: %s id %d vs %d", ErrShapeMismatch, a.Kind, a.ID, b.ID)
	case a.Parent != b.Parent:
		return fmt.Errorf("%w: %s %d parent %d vs %d", ErrShapeMismatch, a.Kind, a.ID, a.Parent, b.Parent)
	case a.Name != b.Name:
		return fmt.Errorf("%w: %s %d named %q vs %q", ErrShapeMismatch, a.Kind, a.ID, a.Name, b.Name)
	}
	return nil
}

// Interpolate returns the pose between s0 and s1 at fraction f.
func Interpolate(s0, s1 *EntityState, f float64, shortest bool) (*EntityState, error) {
	if err := s0.SameShape(s1); err != nil {
		return nil, err
	}
	out := s0.Clone()
	for i := range out.Bones {
		out.Bones[i] = InterpolateBone(s0.Bones[i], s1.Bones[i], f, shortest)
	}
	for i := range out.Skins {
		out.Skins[i] = InterpolateSkin(s0.Skins[i], s1.Skins[i], f, shortest)
	}
	return out, nil
}

// Combine returns s0 with the per-node values of s1 added on.
func Combine(s0, s1 *EntityState) (*EntityState, error) {
	if err := s0.SameShape(s1); err != nil {
		return nil, err
	}
	out := s0.Clone()
	for i := range out.Bones {
		out.Bones[i] = CombineBone(s0.Bones[i], s1.Bones[i])
	}
	for i := range out.Skins {
		out.Skins[i] = CombineSkin(s0.Skins[i], s1.Skins[i])
	}
	return out, nil
}

// Difference returns the per-node delta that Combine adds to base to reach target.
func Difference(base, target *EntityState) (*EntityState, error) {
	if err := base.SameShape(target); err != nil {
		return nil, err
	}
	out := base.Clone()
	for i := range out.Bones {
		out.Bones[i] = DifferenceBone(base.Bones[i], target.Bones[i])
	}
	for i := range out.Skins {
		out.Skins[i] = DifferenceSkin(base.Skins[i], target.Skins[i])
	}
	return out, nil
}

// Flatten returns a copy of s with every transform resolved into world space.
func (s *EntityState) Flatten() *EntityState {
	out := s.Clone()
	// Shapes match by construction.
	_ = s.FlattenInto(out)
	return out
}

// FlattenInto writes the world-space pose of s into target.
//
// Nodes are visited in ascending id order; since a bone's parent always has a
// lower id, the parent is already flattened when its children are reached.
func (s *EntityState) FlattenInto(target *EntityState) error {
	if err := s.SameShape(target); err != nil {
		return err
	}
	for i := range s.Bones {
		b := s.Bones[i]
		if b.HasParent() {
			b.Transform = b.Transform.Apply(target.Bones[b.Parent].Transform)
		}
		target.Bones[i] = b
	}
	for i := range s.Skins {
		sk := s.Skins[i]
		if sk.HasParent() {
			sk.Transform = sk.Transform.Apply(target.Bones[sk.Parent].Transform)
		}
		target.Skins[i] = sk
	}
	return nil
}

// Validate reports every structural problem in s.
func (s *EntityState) Validate() error {
	var errs error
	seen := make(map[string]bool, len(s.Bones))
	for i := range s.Bones {
		b := &s.Bones[i]
		if b.ID != i {
			errs = multierr.Append(errs, fmt.Errorf("%w: bone %q stored at %d has id %d", ErrInvalidNode, b.Name, i, b.ID))
		}
		if b.Kind != KindBone {
			errs = multierr.Append(errs, fmt.Errorf("%w: bone %d tagged %s", ErrInvalidNode, i, b.Kind))
		}
		if b.HasParent() && (b.Parent < 0 || b.Parent >= i) {
			errs = multierr.Append(errs, fmt.Errorf("%w: bone %d parent %d", ErrMissingReference, i, b.Parent))
		}
		if b.Name != "" {
			if seen[b.Name] {
				errs = multierr.Append(errs, fmt.Errorf("%w: bone %q", ErrDuplicateName, b.Name))
			}
			seen[b.Name] = true
		}
	}
	seen = make(map[string]bool, len(s.Skins))
	for i := range s.Skins {
		sk := &s.Skins[i]
		if sk.ID != i {
			errs = multierr.Append(errs, fmt.Errorf("%w: skin %q stored at %d has id %d", ErrInvalidNode, sk.Name, i, sk.ID))
		}
		if sk.Kind != KindSkin {
			errs = multierr.Append(errs, fmt.Errorf("%w: skin %d tagged %s", ErrInvalidNode, i, sk.Kind))
		}
		if sk.HasParent() && (sk.Parent < 0 || sk.Parent >= len(s.Bones)) {
			errs = multierr.Append(errs, fmt.Errorf("%w: skin %d parent bone %d", ErrMissingReference, i, sk.Parent))
		}
		if sk.Name != "" {
			if seen[sk.Name] {
				errs = multierr.Append(errs, fmt.Errorf("%w: skin %q", ErrDuplicateName, sk.Name))
			}
			seen[sk.Name] = true
		}
	}
	return errs
}

func (s *EntityState) ensureIndex() {
	if s.boneByName == nil {
		s.boneByName = make(map[string]int)
		for i := range s.Bones {
			if s.Bones[i].Name != "" {
				s.boneByName[s.Bones[i].Name] = i
			}
		}
	}
	if s.skinByName == nil {
		s.skinByName = make(map[string]int)
		for i := range s.Skins {
			if s.Skins[i].Name != "" {
				s.skinByName[s.Skins[i].Name] = i
			}
		}
	}
}
