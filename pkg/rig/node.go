package rig

import (
	"fmt"

	"github.com/Faultbox/chophuman/pkg/math"
)

// NoParent marks a root node.
const NoParent = -1

// NodeKind tags the variant of a scene node.
type NodeKind uint8

const (
	KindBone NodeKind = iota
	KindSkin
)

// String returns the wire name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindBone:
		return "bone"
	case KindSkin:
		return "skin"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// Node is the record shared by bones and skins.
//
// ID is also the node's slot in its entity state. Parent is the id of a bone
// in the same entity state, or NoParent.
type Node struct {
	Kind      NodeKind
	ID        int
	Name      string
	Parent    int
	Transform Transform
}

// HasParent reports whether the node is attached to a bone.
func (n *Node) HasParent() bool {
	return n.Parent != NoParent
}

// Bone is a rigid hierarchical pose node without a visual asset.
type Bone struct {
	Node
}

// NewBone returns a root bone with an identity transform and an unassigned id.
func NewBone(name string) Bone {
	return Bone{Node: Node{
		Kind:      KindBone,
		ID:        -1,
		Name:      name,
		Parent:    NoParent,
		Transform: IdentityTransform(),
	}}
}

// Skin is a pose node carrying a visual asset.
type Skin struct {
	Node
	PivotX  float64
	PivotY  float64
	Opacity float64
	ZIndex  int
}

// NewSkin returns a fully opaque skin attached to the given bone.
func NewSkin(name string, parent int) Skin {
	return Skin{
		Node: Node{
			Kind:      KindSkin,
			ID:        -1,
			Name:      name,
			Parent:    parent,
			Transform: IdentityTransform(),
		},
		Opacity: 1,
	}
}

// InterpolateBone blends two bones. Identity comes from b0.
func InterpolateBone(b0, b1 Bone, f float64, shortest bool) Bone {
	out := b0
	out.Transform = b0.Transform.Interpolate(b1.Transform, f, shortest)
	return out
}

// CombineBone adds the transform of b1 onto b0. The result keeps b0's spin.
func CombineBone(b0, b1 Bone) Bone {
	out := b0
	out.Transform = b0.Transform.Add(b1.Transform)
	out.Transform.Spin = b0.Transform.Spin
	return out
}

// DifferenceBone returns the bone whose transform takes base to target.
func DifferenceBone(base, target Bone) Bone {
	out := base
	out.Transform = target.Transform.Sub(base.Transform)
	return out
}

// InterpolateSkin blends two skins, including pivot and opacity.
func InterpolateSkin(s0, s1 Skin, f float64, shortest bool) Skin {
	out := s0
	out.Transform = s0.Transform.Interpolate(s1.Transform, f, shortest)
	out.PivotX = math.Lerp(s0.PivotX, s1.PivotX, f)
	out.PivotY = math.Lerp(s0.PivotY, s1.PivotY, f)
	out.Opacity = math.Lerp(s0.Opacity, s1.Opacity, f)
	return out
}

// CombineSkin adds transform, pivot and opacity of s1 onto s0. The result
// keeps s0's spin.
func CombineSkin(s0, s1 Skin) Skin {
	out := s0
	out.Transform = s0.Transform.Add(s1.Transform)
	out.Transform.Spin = s0.Transform.Spin
	out.PivotX = s0.PivotX + s1.PivotX
	out.PivotY = s0.PivotY + s1.PivotY
	out.Opacity = s0.Opacity + s1.Opacity
	return out
}

// DifferenceSkin returns the skin delta that takes base to target.
func DifferenceSkin(base, target Skin) Skin {
	out := base
	out.Transform = target.Transform.Sub(base.Transform)
	out.PivotX = target.PivotX - base.PivotX
	out.PivotY = target.PivotY - base.PivotY
	out.Opacity = target.Opacity - base.Opacity
	return out
}
