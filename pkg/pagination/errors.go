package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGame is returned when the game selector is not a supported variant.
	ErrInvalidGame = errors.New("invalid or missing game type")

	// ErrInsufficientHistory is returned when the merged window is smaller than MinRequired.
	ErrInsufficientHistory = errors.New("insufficient history")
)

// ErrorKind classifies an aggregation failure.
type ErrorKind string

const (
	// KindInvalidGame is a client error; no request was sent.
	KindInvalidGame ErrorKind = "invalid_game"

	// KindUpstream means at least one page fetch failed.
	KindUpstream ErrorKind = "upstream"

	// KindInsufficient means the pages succeeded but held too few records.
	KindInsufficient ErrorKind = "insufficient"
)

// AggregationError is returned by Aggregate for every failure.
type AggregationError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation %s: %v", e.Kind, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AggregationError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an aggregation failure, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var aggErr *AggregationError
	if errors.As(err, &aggErr) {
		return aggErr.Kind
	}
	return ""
}
