package rig

import "errors"

// Rig errors. Callers distinguish them with errors.Is.
var (
	// ErrShapeMismatch means two poses or animations operated on together
	// do not have the same node count, ids, parents or names.
	ErrShapeMismatch = errors.New("entity state shape mismatch")

	// ErrMissingReference means an id (parent, timeline, file) has no definition.
	ErrMissingReference = errors.New("missing reference")

	// ErrMissingPrecondition means an operation cannot run on the current data,
	// e.g. retargeting without a rest animation. The operation is a no-op.
	ErrMissingPrecondition = errors.New("missing precondition")

	// ErrIO wraps asset or document read/write failures.
	ErrIO = errors.New("i/o failure")

	// ErrInvalidNode means a node was rejected when added to an entity state.
	ErrInvalidNode = errors.New("invalid node")

	// ErrDuplicateName means a node or animation name is already taken.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrKeyframeTime means a keyframe time is negative or already used.
	ErrKeyframeTime = errors.New("invalid keyframe time")
)
