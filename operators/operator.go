// Package operators implements the Volcano-style iterator pipeline:
// every operator exposes Open/Next/Output/Close, and the register
// pointers returned by Output stay valid (and keep being overwritten in
// place) across successive Next calls, so a caller can hold onto them
// between iterations instead of re-fetching.
package operators

import "coredb/register"

// Operator is one stage of a query pipeline.
type Operator interface {
	// Open prepares the operator (and recursively its inputs) to be
	// iterated. Must be called exactly once before the first Next.
	Open() error
	// Next advances to the next output tuple, returning false once
	// exhausted.
	Next() (bool, error)
	// Output returns pointers to the current tuple's registers. The
	// registers it points to are reused by subsequent Next calls.
	Output() []*register.Register
	// Close releases resources held by the operator and its inputs.
	// Must be called exactly once after iteration ends.
	Close() error
}

// UnaryOperator is embedded by operators with a single input.
type UnaryOperator struct {
	Input Operator
}

// BinaryOperator is embedded by operators with two inputs.
type BinaryOperator struct {
	Left  Operator
	Right Operator
}
