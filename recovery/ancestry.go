// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recovery

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	fn "github.com/lightningnetwork/lnd/fn/v2"
)

// AncestryBundle is the merged set of per-transaction ancestry proofs
// handed to the custodian so it can validate input provenance. Proofs are
// opaque bytes keyed by transaction id; merging collapses duplicates, is
// order-independent, and is idempotent.
type AncestryBundle struct {
	proofs map[chainhash.Hash][]byte
}

// NewAncestryBundle creates an empty bundle.
func NewAncestryBundle() *AncestryBundle {
	return &AncestryBundle{
		proofs: make(map[chainhash.Hash][]byte),
	}
}

// Add records the proof for a transaction. Re-adding a transaction's proof
// leaves the bundle unchanged.
func (b *AncestryBundle) Add(txid chainhash.Hash, proof []byte) {
	if _, ok := b.proofs[txid]; ok {
		return
	}

	stored := make([]byte, len(proof))
	copy(stored, proof)
	b.proofs[txid] = stored
}

// Merge unions another bundle into this one.
func (b *AncestryBundle) Merge(other *AncestryBundle) {
	for txid, proof := range other.proofs {
		b.Add(txid, proof)
	}
}

// Len returns the number of distinct transactions covered.
func (b *AncestryBundle) Len() int {
	return len(b.proofs)
}

// Serialize encodes the bundle deterministically: each record is the
// 32-byte transaction id followed by the var-length proof, ordered by
// transaction id. Equal bundles always serialize to equal bytes regardless
// of merge order.
func (b *AncestryBundle) Serialize() ([]byte, error) {
	txids := make([]chainhash.Hash, 0, len(b.proofs))
	for txid := range b.proofs {
		txids = append(txids, txid)
	}
	sort.Slice(txids, func(i, j int) bool {
		return bytes.Compare(txids[i][:], txids[j][:]) < 0
	})

	var buf bytes.Buffer
	for _, txid := range txids {
		if _, err := buf.Write(txid[:]); err != nil {
			return nil, err
		}

		err := wire.WriteVarBytes(&buf, 0, b.proofs[txid])
		if err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// GatherAncestry fetches the ancestry proof for every distinct transaction
// id and merges the results into one bundle. Duplicate ids in the input
// are fetched once.
func GatherAncestry(ctx context.Context, source ChainSource,
	txids []chainhash.Hash) (*AncestryBundle, error) {

	bundle := NewAncestryBundle()
	seen := fn.NewSet[chainhash.Hash]()

	for _, txid := range txids {
		if seen.Contains(txid) {
			continue
		}
		seen.Add(txid)

		proof, err := source.TxAncestry(ctx, txid.String())
		if err != nil {
			return nil, fmt.Errorf("gather ancestry of %s: %w",
				txid, err)
		}

		bundle.Add(txid, proof)
	}

	log.Debugf("Gathered ancestry for %d distinct transactions",
		bundle.Len())

	return bundle, nil
}
