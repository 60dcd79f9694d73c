// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides an exact-arithmetic fee rate type. The fee-rate
// gate in the sweep flow compares against a hard threshold, so rates are
// kept as rational numbers instead of floats: a transaction at exactly the
// threshold must never be misclassified by rounding error.
package btcunit

import (
	"math"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000

	// floatStringPrecision is the number of decimal places to use when
	// converting a fee rate to a string. Three decimal places ensure
	// that sub-satoshi rates are displayed rather than rounded to zero.
	floatStringPrecision = 3
)

// ZeroSatPerKVByte is a fee rate of 0 sat/kvB.
var ZeroSatPerKVByte = NewSatPerKVByte(0)

// SatPerKVByte represents a fee rate in satoshis per kilo-byte of
// serialized transaction, stored as a rational number.
type SatPerKVByte struct {
	// satsPerKVB is the exact fee rate. It is never nil for values
	// produced by the package constructors.
	satsPerKVB *big.Rat
}

// NewSatPerKVByte creates a fee rate of the given whole number of satoshis
// per kilo-byte.
func NewSatPerKVByte(rate btcutil.Amount) SatPerKVByte {
	return SatPerKVByte{satsPerKVB: big.NewRat(int64(rate), 1)}
}

// RateForFee calculates the exact fee rate implied by paying fee for a
// transaction of sizeBytes serialized bytes: fee * 1000 / size. A zero
// size yields a zero rate.
func RateForFee(fee btcutil.Amount, sizeBytes uint64) SatPerKVByte {
	if sizeBytes == 0 {
		return ZeroSatPerKVByte
	}

	return SatPerKVByte{satsPerKVB: big.NewRat(
		int64(fee)*kilo, safeUint64ToInt64(sizeBytes),
	)}
}

// FeeForSize calculates the fee resulting from this rate and the given
// serialized size, rounding down to the nearest satoshi.
func (s SatPerKVByte) FeeForSize(sizeBytes uint64) btcutil.Amount {
	fee := new(big.Rat).Mul(
		s.satsPerKVB,
		big.NewRat(safeUint64ToInt64(sizeBytes), kilo),
	)

	// Integer division truncates, rounding the fee down.
	quotient := new(big.Int).Div(fee.Num(), fee.Denom())

	return btcutil.Amount(quotient.Int64())
}

// Equal returns true if the fee rate is equal to the other fee rate.
func (s SatPerKVByte) Equal(other SatPerKVByte) bool {
	return s.satsPerKVB.Cmp(other.satsPerKVB) == 0
}

// GreaterThan returns true if the fee rate is greater than the other fee
// rate.
func (s SatPerKVByte) GreaterThan(other SatPerKVByte) bool {
	return s.satsPerKVB.Cmp(other.satsPerKVB) > 0
}

// LessThanOrEqual returns true if the fee rate is less than or equal to the
// other fee rate.
func (s SatPerKVByte) LessThanOrEqual(other SatPerKVByte) bool {
	return s.satsPerKVB.Cmp(other.satsPerKVB) <= 0
}

// String returns a human-readable string of the fee rate.
func (s SatPerKVByte) String() string {
	return s.satsPerKVB.FloatString(floatStringPrecision) + " sat/kvB"
}

// safeUint64ToInt64 converts a uint64 to an int64, clamping at the maximum
// rather than wrapping negative.
func safeUint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}
