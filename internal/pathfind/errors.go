package pathfind

import "errors"

var (
	ErrInvalidStart       = errors.New("pathfind: start cell is not valid")
	ErrInvalidDestination = errors.New("pathfind: destination is not valid")
	ErrInvalidPolicy      = errors.New("pathfind: policy does not match the grid")

	// ErrNotFound means the reachable area was exhausted without touching the destination.
	ErrNotFound = errors.New("pathfind: no path")

	// ErrSearchExhausted means the closed-cell budget ran out.
	ErrSearchExhausted = errors.New("pathfind: search budget exhausted")
)
