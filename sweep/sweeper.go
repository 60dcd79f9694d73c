// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sweep builds, validates, signs and submits the single
// transaction that moves every discovered output to the custodian's
// wallet. The custodian chooses the outputs; this package independently
// re-validates the implied fee before releasing any signature, and it
// clears the discovered-funds registry only after the custodian confirms
// broadcast.
package sweep

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcrecover/custodian"
	"github.com/btcsuite/btcrecover/keychain"
	"github.com/btcsuite/btcrecover/pkg/btcunit"
	"github.com/btcsuite/btcrecover/recovery"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

const (
	// DefaultMaxFeeRateSatPerKVB is the maximum implied fee rate, in
	// whole satoshis per kilo-byte of estimated signed transaction,
	// accepted without operator override.
	DefaultMaxFeeRateSatPerKVB = 10

	// DefaultNegligibleFee is the fee floor below which the rate check
	// is skipped entirely. Tiny sweeps produce misleading rates, so a
	// fee this small is accepted regardless of transaction size.
	DefaultNegligibleFee = btcutil.Amount(1)

	// defaultDescription labels the sweep action in the custodian's
	// records when the caller provides none.
	defaultDescription = "legacy wallet sweep"
)

// Custodian is the subset of the signing custodian the sweep flow needs.
type Custodian interface {
	// IsAuthenticated reports whether the custodian session is active.
	IsAuthenticated(ctx context.Context) (bool, error)

	// CreateAction submits the input set and ancestry bundle and
	// returns the custodian's proposed transaction skeleton.
	CreateAction(ctx context.Context,
		req *custodian.CreateActionRequest) (*custodian.Action,
		error)

	// SignAction hands back the unlocking proofs for broadcast.
	SignAction(ctx context.Context,
		req *custodian.SignActionRequest) (*custodian.SignActionResult,
		error)
}

// Config bundles everything one sweep attempt needs.
type Config struct {
	// Deriver re-derives signing keys from the registry's recorded
	// paths. The caller retains ownership and zeroing responsibility.
	Deriver *keychain.Deriver

	// Chain fetches ancestry proofs for the funding transactions.
	Chain recovery.ChainSource

	// Registry holds the discovered outputs. It is cleared only after
	// the custodian confirms broadcast.
	Registry *recovery.Registry

	// Custodian assembles, countersigns and broadcasts the sweep.
	Custodian Custodian

	// MaxFeeRate caps the implied fee rate. Zero means the default.
	MaxFeeRate btcunit.SatPerKVByte

	// NegligibleFee is the fee floor below which MaxFeeRate is not
	// enforced. Zero means the default.
	NegligibleFee btcutil.Amount

	// Description labels the action in the custodian's records.
	Description string

	// DryRun stops after signature verification: nothing is submitted
	// and the registry is left intact.
	DryRun bool
}

// Result describes a completed (or dry-run) sweep.
type Result struct {
	// TxID is the identifier of the broadcast transaction. Empty for a
	// dry run.
	TxID string

	// SweptValue is the total value of the consumed inputs.
	SweptValue btcutil.Amount

	// Fee is the implied fee accepted by the validation gate.
	Fee btcutil.Amount

	// FeeRate is the implied fee rate over the estimated signed size.
	FeeRate btcunit.SatPerKVByte

	// NumInputs is the number of inputs signed.
	NumInputs int

	// DryRun reports whether submission was skipped.
	DryRun bool
}

// Sweep runs the full sweep protocol: re-derive keys for every recorded
// output, gather ancestry, obtain a proposal from the custodian, validate
// the implied fee, sign and verify every input, and submit. The steps run
// strictly in this order so that no signature exists before the proposal
// has passed validation. Any failure aborts the attempt and leaves the
// registry untouched.
func Sweep(ctx context.Context, cfg *Config) (*Result, error) {
	if cfg.Registry.IsEmpty() {
		return nil, ErrNoFunds
	}

	maxRate := cfg.MaxFeeRate
	if maxRate == (btcunit.SatPerKVByte{}) ||
		maxRate.Equal(btcunit.ZeroSatPerKVByte) {

		maxRate = btcunit.NewSatPerKVByte(DefaultMaxFeeRateSatPerKVB)
	}
	negligible := cfg.NegligibleFee
	if negligible == 0 {
		negligible = DefaultNegligibleFee
	}

	authenticated, err := cfg.Custodian.IsAuthenticated(ctx)
	if err != nil {
		return nil, &CustodianUnavailableError{Err: err}
	}
	if !authenticated {
		return nil, &CustodianUnavailableError{}
	}

	entries := cfg.Registry.Entries()
	keyMap, err := recovery.BuildKeyMap(cfg.Deriver, entries)
	if err != nil {
		return nil, fmt.Errorf("build key map: %w", err)
	}
	defer keyMap.Zero()

	bundle, err := recovery.GatherAncestry(ctx, cfg.Chain,
		keyMap.TxIDs())
	if err != nil {
		return nil, err
	}
	ancestry, err := bundle.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize ancestry: %w", err)
	}

	outPoints := keyMap.OutPoints()
	inputs := make([]custodian.ActionInput, 0, len(outPoints))
	for _, outPoint := range outPoints {
		inputs = append(inputs, custodian.ActionInput{
			Outpoint: fmt.Sprintf("%s.%d", outPoint.Hash,
				outPoint.Index),
			Description:           "recovered output",
			UnlockingScriptLength: txsizes.RedeemP2PKHSigScriptSize,
		})
	}

	description := cfg.Description
	if description == "" {
		description = defaultDescription
	}

	log.Infof("Requesting sweep proposal for %d inputs worth %v",
		len(inputs), keyMap.TotalValue())

	action, err := cfg.Custodian.CreateAction(ctx,
		&custodian.CreateActionRequest{
			Description: description,
			Inputs:      inputs,
			Ancestry:    ancestry,
		})
	if err != nil {
		return nil, &CustodianUnavailableError{Err: err}
	}

	tx := action.Tx
	if len(tx.TxIn) != len(outPoints) {
		return nil, fmt.Errorf("proposal spends %d inputs, %d were "+
			"offered", len(tx.TxIn), len(outPoints))
	}
	if len(tx.TxOut) == 0 {
		return nil, fmt.Errorf("proposal has no outputs")
	}

	// Resolve every proposed input before validating the fee, so a
	// proposal spending anything we cannot sign for fails before any
	// value accounting.
	inputKeys := make([]*recovery.InputKey, len(tx.TxIn))
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	var totalIn btcutil.Amount
	for i, txIn := range tx.TxIn {
		inputKey, ok := keyMap.Lookup(txIn.PreviousOutPoint)
		if !ok {
			return nil, &MissingKeyError{
				OutPoint: txIn.PreviousOutPoint,
			}
		}
		inputKeys[i] = inputKey
		totalIn += inputKey.Value
		fetcher.AddPrevOut(txIn.PreviousOutPoint, &wire.TxOut{
			Value:    int64(inputKey.Value),
			PkScript: inputKey.PkScript,
		})
	}

	var totalOut btcutil.Amount
	for _, txOut := range tx.TxOut {
		err := txrules.CheckOutput(
			txOut, txrules.DefaultRelayFeePerKb,
		)
		if err != nil {
			return nil, fmt.Errorf("invalid proposal output: %w",
				err)
		}
		totalOut += btcutil.Amount(txOut.Value)
	}

	if totalOut > totalIn {
		return nil, fmt.Errorf("proposal outputs %v exceed inputs %v",
			totalOut, totalIn)
	}

	fee := totalIn - totalOut
	signedSize := txsizes.EstimateSerializeSize(
		len(tx.TxIn), tx.TxOut, false,
	)
	rate := btcunit.RateForFee(fee, uint64(signedSize))

	log.Debugf("Proposal implies fee %v over estimated %d bytes (%v)",
		fee, signedSize, rate)

	if fee > negligible && rate.GreaterThan(maxRate) {
		return nil, &FeeTooHighError{
			Fee:  fee,
			Rate: rate,
			Max:  maxRate,
		}
	}

	proofs := make(map[uint32]string, len(tx.TxIn))
	for i, inputKey := range inputKeys {
		sigScript, err := txscript.SignatureScript(
			tx, i, inputKey.PkScript, txscript.SigHashAll,
			inputKey.PrivKey, true,
		)
		if err != nil {
			return nil, fmt.Errorf("sign input %d: %w", i, err)
		}
		tx.TxIn[i].SignatureScript = sigScript

		vm, err := txscript.NewEngine(
			inputKey.PkScript, tx, i,
			txscript.StandardVerifyFlags, nil, nil,
			int64(inputKey.Value), fetcher,
		)
		if err == nil {
			err = vm.Execute()
		}
		if err != nil {
			return nil, fmt.Errorf("verify input %d (%s.%d): %w",
				i, tx.TxIn[i].PreviousOutPoint.Hash,
				tx.TxIn[i].PreviousOutPoint.Index, err)
		}

		proofs[uint32(i)] = hex.EncodeToString(sigScript)
	}

	result := &Result{
		SweptValue: totalIn,
		Fee:        fee,
		FeeRate:    rate,
		NumInputs:  len(tx.TxIn),
		DryRun:     cfg.DryRun,
	}

	if cfg.DryRun {
		log.Infof("Dry run: %d inputs signed and verified, %v fee, "+
			"nothing submitted", result.NumInputs, fee)
		return result, nil
	}

	signResult, err := cfg.Custodian.SignAction(ctx,
		&custodian.SignActionRequest{
			Reference:        action.Reference,
			UnlockingScripts: proofs,
		})
	if err != nil {
		return nil, &BroadcastError{Err: err}
	}

	cfg.Registry.Clear()
	result.TxID = signResult.TxID

	log.Infof("Swept %v in %d inputs, fee %v, txid %s",
		result.SweptValue, result.NumInputs, fee, result.TxID)

	return result, nil
}
