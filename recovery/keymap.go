// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recovery

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcrecover/keychain"
)

// InputKey binds one spendable output to the exact private key that can
// sign for it.
type InputKey struct {
	// Vout is the output index within the funding transaction.
	Vout uint32

	// PrivKey is the signing key re-derived from the entry's own stored
	// path.
	PrivKey *btcec.PrivateKey

	// Value is the output value, needed for fee accounting.
	Value btcutil.Amount

	// PkScript is the locking script the key must satisfy.
	PkScript []byte
}

// KeyMap is the ephemeral sweep-time lookup from funding transaction to the
// keys of its tracked outputs. It is built fresh from the registry
// immediately before signing, never cached across sweeps, and discarded
// when signing completes or fails. Lookups match on both transaction id
// and output index: one funding transaction can pay several tracked
// addresses at different indices, so a txid-only match could hand back the
// wrong key.
type KeyMap map[chainhash.Hash][]InputKey

// BuildKeyMap re-derives the signing key for every registry entry, using
// that entry's stored path prefix and index, and indexes every spendable
// output by its funding transaction. A derived address that no longer
// matches the entry means derivation state is corrupt and the sweep must
// not proceed.
func BuildKeyMap(deriver *keychain.Deriver,
	entries []AddressEntry) (KeyMap, error) {

	keyMap := make(KeyMap)

	for _, entry := range entries {
		key, err := deriver.DeriveIndexed(entry.PathPrefix,
			entry.Index)
		if err != nil {
			return nil, fmt.Errorf("re-derive key for address "+
				"%s (path %s index %d): %w", entry.Address,
				entry.PathPrefix, entry.Index, err)
		}

		derived := key.Address.EncodeAddress()
		if derived != entry.Address {
			return nil, fmt.Errorf("derivation mismatch: path "+
				"%s index %d now derives %s, expected %s",
				entry.PathPrefix, entry.Index, derived,
				entry.Address)
		}

		pkScript, err := txscript.PayToAddrScript(key.Address)
		if err != nil {
			return nil, fmt.Errorf("locking script for %s: %w",
				entry.Address, err)
		}

		for _, output := range entry.Outputs {
			txid := output.OutPoint.Hash
			keyMap[txid] = append(keyMap[txid], InputKey{
				Vout:     output.OutPoint.Index,
				PrivKey:  key.PrivKey,
				Value:    output.Value,
				PkScript: pkScript,
			})
		}
	}

	return keyMap, nil
}

// Lookup resolves the key for a specific outpoint, matching on both the
// transaction id and the output index.
func (m KeyMap) Lookup(outPoint wire.OutPoint) (*InputKey, bool) {
	for _, inputKey := range m[outPoint.Hash] {
		if inputKey.Vout == outPoint.Index {
			key := inputKey
			return &key, true
		}
	}

	return nil, false
}

// TxIDs returns the distinct funding transaction ids in deterministic
// (lexicographic) order.
func (m KeyMap) TxIDs() []chainhash.Hash {
	txids := make([]chainhash.Hash, 0, len(m))
	for txid := range m {
		txids = append(txids, txid)
	}

	sort.Slice(txids, func(i, j int) bool {
		return txids[i].String() < txids[j].String()
	})

	return txids
}

// OutPoints returns every tracked outpoint in deterministic order.
func (m KeyMap) OutPoints() []wire.OutPoint {
	outPoints := make([]wire.OutPoint, 0, len(m))
	for _, txid := range m.TxIDs() {
		keys := m[txid]

		sorted := make([]InputKey, len(keys))
		copy(sorted, keys)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Vout < sorted[j].Vout
		})

		for _, key := range sorted {
			outPoints = append(outPoints, wire.OutPoint{
				Hash:  txid,
				Index: key.Vout,
			})
		}
	}

	return outPoints
}

// TotalValue sums the value of every tracked output.
func (m KeyMap) TotalValue() btcutil.Amount {
	var total btcutil.Amount
	for _, keys := range m {
		for _, key := range keys {
			total += key.Value
		}
	}

	return total
}

// Zero wipes all private key material. The map is unusable afterwards.
func (m KeyMap) Zero() {
	for _, keys := range m {
		for i := range keys {
			keys[i].PrivKey.Zero()
		}
	}
}
