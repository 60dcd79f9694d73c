// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package recovery

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// entryAt builds an AddressEntry for the real derived address at
// prefix/index.
func entryAt(t *testing.T, prefix string, index uint32,
	outputs []UnspentOutput) AddressEntry {

	t.Helper()

	deriver := testDeriver(t)
	address := addrAt(t, deriver, prefix, index)

	var balance btcutil.Amount
	for _, output := range outputs {
		balance += output.Value
	}

	return AddressEntry{
		Index:      index,
		Address:    address,
		PathPrefix: prefix,
		Balance:    balance,
		Outputs:    outputs,
	}
}

// TestBuildKeyMapPathPreservation checks that entries discovered under
// different prefixes each re-derive with their own stored prefix.
func TestBuildKeyMapPathPreservation(t *testing.T) {
	t.Parallel()

	deriver := testDeriver(t)

	const (
		prefixA = "m/44'/0'/0'/0"
		prefixB = "m/0'/0"
	)

	entries := []AddressEntry{
		entryAt(t, prefixA, 3, []UnspentOutput{
			{OutPoint: outPoint(t, "aa", 0), Value: 1000},
		}),
		entryAt(t, prefixB, 3, []UnspentOutput{
			{OutPoint: outPoint(t, "bb", 1), Value: 2000},
		}),
	}

	keyMap, err := BuildKeyMap(deriver, entries)
	require.NoError(t, err)

	// Same index, different prefixes: the two inputs must resolve to
	// different keys, each matching its entry's own path.
	keyA, ok := keyMap.Lookup(outPoint(t, "aa", 0))
	require.True(t, ok)

	keyB, ok := keyMap.Lookup(outPoint(t, "bb", 1))
	require.True(t, ok)

	require.NotEqual(
		t, keyA.PrivKey.Serialize(), keyB.PrivKey.Serialize(),
	)

	expectedA, err := deriver.DeriveIndexed(prefixA, 3)
	require.NoError(t, err)
	require.Equal(
		t, expectedA.PrivKey.Serialize(), keyA.PrivKey.Serialize(),
	)

	expectedB, err := deriver.DeriveIndexed(prefixB, 3)
	require.NoError(t, err)
	require.Equal(
		t, expectedB.PrivKey.Serialize(), keyB.PrivKey.Serialize(),
	)
}

// TestKeyMapTwoFactorLookup checks that two outputs of one funding
// transaction paying different tracked addresses resolve to their own
// keys: matching on txid alone would be wrong.
func TestKeyMapTwoFactorLookup(t *testing.T) {
	t.Parallel()

	deriver := testDeriver(t)
	const prefix = "m/44'/0'/0'/0"

	// One funding tx "cc" pays index-0's address at vout 0 and
	// index-1's address at vout 1.
	entries := []AddressEntry{
		entryAt(t, prefix, 0, []UnspentOutput{
			{OutPoint: outPoint(t, "cc", 0), Value: 500},
		}),
		entryAt(t, prefix, 1, []UnspentOutput{
			{OutPoint: outPoint(t, "cc", 1), Value: 700},
		}),
	}

	keyMap, err := BuildKeyMap(deriver, entries)
	require.NoError(t, err)

	key0, ok := keyMap.Lookup(outPoint(t, "cc", 0))
	require.True(t, ok)

	key1, ok := keyMap.Lookup(outPoint(t, "cc", 1))
	require.True(t, ok)

	require.NotEqual(
		t, key0.PrivKey.Serialize(), key1.PrivKey.Serialize(),
	)

	expected0, err := deriver.DeriveIndexed(prefix, 0)
	require.NoError(t, err)
	require.Equal(
		t, expected0.PrivKey.Serialize(), key0.PrivKey.Serialize(),
	)

	// A vout the map does not track must miss, even though the txid is
	// present.
	_, ok = keyMap.Lookup(outPoint(t, "cc", 2))
	require.False(t, ok)
}

// TestBuildKeyMapDetectsMismatch checks that a corrupted entry (address
// not derivable from its stored path) fails key map construction.
func TestBuildKeyMapDetectsMismatch(t *testing.T) {
	t.Parallel()

	deriver := testDeriver(t)

	entry := entryAt(t, "m/44'/0'/0'/0", 0, []UnspentOutput{
		{OutPoint: outPoint(t, "aa", 0), Value: 100},
	})
	entry.Index = 5 // no longer matches the recorded address

	_, err := BuildKeyMap(deriver, []AddressEntry{entry})
	require.Error(t, err)
	require.Contains(t, err.Error(), "derivation mismatch")
}

// TestKeyMapAccessors checks TxIDs ordering, outpoint enumeration and
// value totals.
func TestKeyMapAccessors(t *testing.T) {
	t.Parallel()

	deriver := testDeriver(t)
	const prefix = "m/44'/0'/0'/0"

	entries := []AddressEntry{
		entryAt(t, prefix, 0, []UnspentOutput{
			{OutPoint: outPoint(t, "ff", 1), Value: 100},
			{OutPoint: outPoint(t, "aa", 0), Value: 200},
		}),
		entryAt(t, prefix, 1, []UnspentOutput{
			{OutPoint: outPoint(t, "ff", 0), Value: 300},
		}),
	}

	keyMap, err := BuildKeyMap(deriver, entries)
	require.NoError(t, err)

	require.EqualValues(t, 600, keyMap.TotalValue())

	txids := keyMap.TxIDs()
	require.Len(t, txids, 2)

	// Deterministic lexicographic order: "aa..." sorts before "ff...".
	aa, _ := chainhash.NewHashFromStr("aa")
	ff, _ := chainhash.NewHashFromStr("ff")
	require.Equal(t, []chainhash.Hash{*aa, *ff}, txids)

	outPoints := keyMap.OutPoints()
	require.Equal(t, []wire.OutPoint{
		{Hash: *aa, Index: 0},
		{Hash: *ff, Index: 0},
		{Hash: *ff, Index: 1},
	}, outPoints)
}
