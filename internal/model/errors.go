package model

import "fmt"

// ShapeError reports an input vector or parameter whose size does not match
// the fixed topology.
type ShapeError struct {
	What string
	Want []int
	Got  []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch for %s: want %v, got %v", e.What, e.Want, e.Got)
}

func newShapeError(what string, want, got []int) *ShapeError {
	return &ShapeError{What: what, Want: want, Got: got}
}

// StateError reports an operation that needs captured activations before
// any forward pass has run.
type StateError struct {
	Op string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: no activations captured yet", e.Op)
}
