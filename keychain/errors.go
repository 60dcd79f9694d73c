// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSecret is returned when the supplied recovery phrase (or
	// its checksum) cannot produce a wallet seed.
	ErrInvalidSecret = errors.New("invalid recovery phrase")

	// ErrInvalidSeed is returned when a seed cannot produce a usable
	// master key.
	ErrInvalidSeed = errors.New("seed cannot produce a master key")

	// ErrInvalidPath is returned when a derivation path string cannot be
	// parsed.
	ErrInvalidPath = errors.New("invalid derivation path")
)

// PathError describes why a particular derivation path string failed to
// parse. It wraps ErrInvalidPath so callers can match on the class with
// errors.Is while still surfacing the offending path to the operator.
type PathError struct {
	// Path is the raw path string as supplied by the user.
	Path string

	// Reason describes the specific syntax violation.
	Reason string
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("invalid derivation path %q: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidPath so errors.Is matches the error class.
func (e *PathError) Unwrap() error {
	return ErrInvalidPath
}
