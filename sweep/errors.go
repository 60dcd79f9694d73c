// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sweep

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcrecover/pkg/btcunit"
)

// ErrNoFunds is returned when a sweep is attempted before discovery has
// recorded any spendable outputs.
var ErrNoFunds = errors.New("no spendable funds discovered")

// CustodianUnavailableError is returned when the signing custodian cannot
// be reached or reports an unauthenticated session. Nothing has been
// signed or broadcast when this error is returned.
type CustodianUnavailableError struct {
	// Err is the underlying transport or authentication failure, nil
	// when the custodian answered cleanly with "not authenticated".
	Err error
}

// Error returns a human readable string describing the error.
func (e *CustodianUnavailableError) Error() string {
	if e.Err == nil {
		return "custodian session is not authenticated"
	}
	return fmt.Sprintf("custodian unavailable: %v", e.Err)
}

// Unwrap returns the underlying failure, if any.
func (e *CustodianUnavailableError) Unwrap() error {
	return e.Err
}

// FeeTooHighError is returned when the fee implied by the custodian's
// proposed transaction exceeds both the negligible-fee floor and the
// maximum acceptable fee rate. The sweep is aborted with no inputs
// signed.
type FeeTooHighError struct {
	// Fee is the implied fee in satoshis.
	Fee btcutil.Amount

	// Rate is the implied fee rate over the estimated signed size.
	Rate btcunit.SatPerKVByte

	// Max is the configured maximum acceptable fee rate.
	Max btcunit.SatPerKVByte
}

// Error returns a human readable string describing the error.
func (e *FeeTooHighError) Error() string {
	return fmt.Sprintf("proposed fee %v (%v) exceeds maximum "+
		"acceptable rate %v", e.Fee, e.Rate, e.Max)
}

// MissingKeyError is returned when the proposed transaction spends an
// output for which no signing key was discovered. Matching requires both
// the funding transaction id and the output index.
type MissingKeyError struct {
	// OutPoint is the input the sweep cannot sign for.
	OutPoint wire.OutPoint
}

// Error returns a human readable string describing the error.
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("no signing key for input %s.%d",
		e.OutPoint.Hash, e.OutPoint.Index)
}

// BroadcastError is returned when the fully signed sweep could not be
// submitted. The discovered-funds registry is left intact so the sweep
// can be retried.
type BroadcastError struct {
	// Err is the underlying submission failure.
	Err error
}

// Error returns a human readable string describing the error.
func (e *BroadcastError) Error() string {
	return fmt.Sprintf("sweep broadcast failed: %v", e.Err)
}

// Unwrap returns the underlying failure.
func (e *BroadcastError) Unwrap() error {
	return e.Err
}
