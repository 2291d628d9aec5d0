package dispatch

import (
	"errors"
	"fmt"
)

// Item is one unit of input: the raw parameter values for a single run of an operation.
type Item struct {
	Params map[string]any `json:"params"`
}

// PairedItem links an output record to the input item that produced it.
type PairedItem struct {
	Item int `json:"item"`
}

// OutputItem is one record produced by a run.
type OutputItem struct {
	JSON       map[string]any `json:"json"`
	PairedItem PairedItem     `json:"paired_item"`
}

var (
	// ErrValidation marks a parameter that is missing or malformed.
	ErrValidation = errors.New("dispatch: invalid parameter")
	// ErrShape marks an API response that does not have the expected structure.
	ErrShape = errors.New("dispatch: unexpected response shape")
	// ErrUnknownOperation is returned for operation names outside the supported set.
	ErrUnknownOperation = errors.New("dispatch: unknown operation")
)

// ItemError attaches the failing input index to an error.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func shapeErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShape, fmt.Sprintf(format, args...))
}
