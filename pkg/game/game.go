// Package game defines the WinGo game variants and the history records
// served by the upstream provider.
package game

import (
	"errors"
	"fmt"
)

// ErrUnknownType is returned when a game selector is not one of the supported variants.
var ErrUnknownType = errors.New("unknown game type")

// Type identifies a supported game variant.
type Type string

const (
	// WinGo1M draws every minute.
	WinGo1M Type = "WinGo_1M"

	// WinGo3M draws every three minutes.
	WinGo3M Type = "WinGo_3M"

	// WinGo5M draws every five minutes.
	WinGo5M Type = "WinGo_5M"
)

// Types lists every supported game variant.
func Types() []Type {
	return []Type{WinGo1M, WinGo3M, WinGo5M}
}

// Valid reports whether t is one of the supported variants.
func (t Type) Valid() bool {
	switch t {
	case WinGo1M, WinGo3M, WinGo5M:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// ParseType validates a raw selector. Matching is exact, as the provider paths are case-sensitive.
func ParseType(raw string) (Type, error) {
	t := Type(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
	return t, nil
}
