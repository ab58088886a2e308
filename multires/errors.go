package multires

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLayer is returned when an operation needs a displacement layer that is absent.
	ErrNoLayer = errors.New("multires: no displacement layer")
	// ErrMalformedLegacy marks legacy hierarchies that cannot be converted.
	ErrMalformedLegacy = errors.New("multires: malformed legacy hierarchy")
	// ErrLevelOutOfRange is returned for levels outside 0..MaxLevels on user input paths.
	ErrLevelOutOfRange = errors.New("multires: level out of range")
)

// DomainError reports a resampling request between levels whose grids do not nest.
type DomainError struct {
	Lo, Hi int
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("multires: cannot resample level %d to %d: %s", e.Lo, e.Hi, e.Reason)
}

// LegacyError describes where a legacy hierarchy broke.
type LegacyError struct {
	Level int
	What  string
}

func (e *LegacyError) Error() string {
	return fmt.Sprintf("multires: legacy level %d: %s", e.Level, e.What)
}

func (e *LegacyError) Unwrap() error { return ErrMalformedLegacy }
