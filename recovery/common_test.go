// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcrecover/chain"
	"github.com/btcsuite/btcrecover/keychain"
	"github.com/stretchr/testify/require"
)

// errNotFound stands in for a provider miss in tests.
var errNotFound = errors.New("not found")

// testMnemonic is the well-known BIP39 English test vector phrase.
const testMnemonic = "abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon about"

// testDeriver builds a deriver over the test vector seed.
func testDeriver(t *testing.T) *keychain.Deriver {
	t.Helper()

	seed, err := keychain.SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	deriver, err := keychain.NewDeriver(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	return deriver
}

// addrAt derives the address string at prefix/index.
func addrAt(t *testing.T, deriver *keychain.Deriver, prefix string,
	index uint32) string {

	t.Helper()

	key, err := deriver.DeriveIndexed(prefix, index)
	require.NoError(t, err)

	return key.Address.EncodeAddress()
}

// mockChain is a synthetic data provider: address usage, utxo sets and
// ancestry proofs are plain maps, and specific addresses can be made to
// fail to exercise the fail-fast path.
type mockChain struct {
	txs      map[string][]chain.TxRef
	utxos    map[string][]chain.UTXO
	ancestry map[string][]byte

	// failTxs and failUTXOs name addresses whose lookups fail.
	failTxs   map[string]error
	failUTXOs map[string]error

	// ancestryCalls counts fetches per txid.
	ancestryCalls map[string]int
}

func newMockChain() *mockChain {
	return &mockChain{
		txs:           make(map[string][]chain.TxRef),
		utxos:         make(map[string][]chain.UTXO),
		ancestry:      make(map[string][]byte),
		failTxs:       make(map[string]error),
		failUTXOs:     make(map[string]error),
		ancestryCalls: make(map[string]int),
	}
}

// markUsed gives an address a single-entry history.
func (m *mockChain) markUsed(address string) {
	m.txs[address] = []chain.TxRef{{TxID: "f0", Height: 1}}
}

func (m *mockChain) AddressTxs(_ context.Context,
	address string) ([]chain.TxRef, error) {

	if err, ok := m.failTxs[address]; ok {
		return nil, err
	}

	return m.txs[address], nil
}

func (m *mockChain) AddressUTXOs(_ context.Context,
	address string) ([]chain.UTXO, error) {

	if err, ok := m.failUTXOs[address]; ok {
		return nil, err
	}

	return m.utxos[address], nil
}

func (m *mockChain) TxAncestry(_ context.Context, txid string) ([]byte,
	error) {

	m.ancestryCalls[txid]++

	proof, ok := m.ancestry[txid]
	if !ok {
		return nil, &chain.ProviderError{
			Op:  "tx ancestry",
			Err: errNotFound,
		}
	}

	return proof, nil
}
