// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recovery

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcrecover/chain"
	"github.com/btcsuite/btcrecover/keychain"
)

// DefaultGapLimit is the number of consecutive unused addresses after
// which a scan pass terminates.
const DefaultGapLimit = 5

// ChainSource is the read-only view of the block-chain data provider
// consumed by the scanner and the ancestry aggregator. chain.Client
// satisfies it; tests substitute synthetic sources.
type ChainSource interface {
	// AddressTxs returns the transaction history of an address. An
	// empty history means the address was never used.
	AddressTxs(ctx context.Context, address string) ([]chain.TxRef,
		error)

	// AddressUTXOs returns the unspent outputs of an address, with the
	// pending-spend flag set on outputs already claimed by an
	// unconfirmed transaction.
	AddressUTXOs(ctx context.Context, address string) ([]chain.UTXO,
		error)

	// TxAncestry returns the opaque ancestry/proof bundle of a
	// transaction.
	TxAncestry(ctx context.Context, txid string) ([]byte, error)
}

// ScanConfig bundles the collaborators and parameters of one scan pass.
type ScanConfig struct {
	// Deriver derives candidate addresses.
	Deriver *keychain.Deriver

	// Chain is the data-provider view used for usage and utxo queries.
	Chain ChainSource

	// Registry receives the discovered entries. Entries found by
	// earlier passes are preserved; new findings union into it.
	Registry *Registry

	// PathPrefix is the derivation-path prefix hypothesis to scan
	// under. It is stored verbatim on every entry found by this pass.
	PathPrefix string

	// GapLimit is the consecutive-unused-address termination threshold.
	// Zero selects DefaultGapLimit.
	GapLimit uint32

	// StartOffset is the derivation index the cursor starts at.
	StartOffset uint32
}

// ScanResult summarizes a completed scan pass.
type ScanResult struct {
	// Found is the number of funded addresses recorded by this pass.
	Found int

	// LastIndex is the value of the index cursor at termination, i.e.
	// one past the last index checked.
	LastIndex uint32
}

// Scan walks sequential derivation indices under cfg.PathPrefix, querying
// each derived address for usage and spendable outputs, until the gap
// limit of consecutive unused addresses is reached. Any single failed
// address check aborts the pass immediately: masking a data-provider error
// as "no funds found" is the one outcome this flow must never produce.
// Entries recorded before the failure remain in the registry.
func Scan(ctx context.Context, cfg *ScanConfig) (*ScanResult, error) {
	gapLimit := cfg.GapLimit
	if gapLimit == 0 {
		gapLimit = DefaultGapLimit
	}

	normalizedPrefix := keychain.NormalizePath(cfg.PathPrefix)

	log.Infof("Scanning prefix %s from index %d with gap limit %d",
		normalizedPrefix, cfg.StartOffset, gapLimit)

	var (
		index             = cfg.StartOffset
		consecutiveUnused uint32
		found             int
	)

	for consecutiveUnused < gapLimit {
		entry, used, err := checkAddress(
			ctx, cfg, normalizedPrefix, index,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aborted at index %d: %w",
				index, err)
		}

		switch {
		case !used:
			consecutiveUnused++

		default:
			consecutiveUnused = 0

			if entry != nil {
				cfg.Registry.Record(*entry)
				found++
			}
		}

		index++
	}

	log.Infof("Scan of prefix %s finished at index %d, %d funded "+
		"addresses recorded", normalizedPrefix, index, found)

	return &ScanResult{
		Found:     found,
		LastIndex: index,
	}, nil
}

// checkAddress performs the per-index body of the scan loop: derive the
// candidate address, query its history, and if used, collect its spendable
// outputs with pending spends filtered out. It returns used=true whenever
// the address has any history, and a non-nil entry only when spendable
// outputs remain after filtering.
func checkAddress(ctx context.Context, cfg *ScanConfig, prefix string,
	index uint32) (*AddressEntry, bool, error) {

	key, err := cfg.Deriver.DeriveIndexed(prefix, index)
	if err != nil {
		return nil, false, err
	}
	address := key.Address.EncodeAddress()

	history, err := cfg.Chain.AddressTxs(ctx, address)
	if err != nil {
		return nil, false, err
	}
	if len(history) == 0 {
		log.Tracef("Address %s (index %d) unused", address, index)
		return nil, false, nil
	}

	utxos, err := cfg.Chain.AddressUTXOs(ctx, address)
	if err != nil {
		return nil, true, err
	}

	outputs, err := spendableOutputs(utxos)
	if err != nil {
		return nil, true, err
	}
	if len(outputs) == 0 {
		log.Debugf("Address %s (index %d) used but fully spent",
			address, index)

		return nil, true, nil
	}

	var balance btcutil.Amount
	for _, output := range outputs {
		balance += output.Value
	}

	return &AddressEntry{
		Index:      index,
		Address:    address,
		PathPrefix: prefix,
		Balance:    balance,
		Outputs:    outputs,
	}, true, nil
}

// spendableOutputs converts provider utxos into registry outputs, dropping
// any output a pending transaction already spends.
func spendableOutputs(utxos []chain.UTXO) ([]UnspentOutput, error) {
	outputs := make([]UnspentOutput, 0, len(utxos))
	for _, utxo := range utxos {
		if utxo.PendingSpend {
			log.Debugf("Skipping output %s:%d, spent by pending "+
				"tx", utxo.TxID, utxo.Vout)

			continue
		}

		txid, err := chainhash.NewHashFromStr(utxo.TxID)
		if err != nil {
			return nil, &chain.ProviderError{
				Op: "address utxos",
				Err: fmt.Errorf("malformed txid %q: %w",
					utxo.TxID, err),
			}
		}

		outputs = append(outputs, UnspentOutput{
			OutPoint: wire.OutPoint{
				Hash:  *txid,
				Index: utxo.Vout,
			},
			Value:  btcutil.Amount(utxo.Value),
			Height: utxo.Height,
		})
	}

	return outputs, nil
}
