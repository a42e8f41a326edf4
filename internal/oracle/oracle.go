package oracle

import (
	"context"
	"errors"
)

// Typed failures of the inference boundary. Callers branch on these with
// errors.Is and never inspect provider-specific error values.
var (
	// ErrTimeout reports that a call exceeded its deadline.
	ErrTimeout = errors.New("oracle timeout")
	// ErrMalformed reports output that could not be decoded into the
	// expected schema, even after repair.
	ErrMalformed = errors.New("oracle returned malformed output")
	// ErrProvider reports a transient provider-side failure.
	ErrProvider = errors.New("oracle provider error")
	// ErrUnavailable reports that the oracle failed and no fallback exists.
	ErrUnavailable = errors.New("oracle unavailable")
)

// Request carries one inference call. Payload is marshaled to JSON and sent
// as the user message; the expected schema is expressed by the typed out
// pointer given to Infer.
type Request struct {
	SystemInstructions string
	Payload            any
}

// Oracle is the boundary to an external text-inference service. Infer fills
// out with a value conforming to its type or returns a typed failure.
type Oracle interface {
	Infer(ctx context.Context, req Request, out any) error
}
