// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// testMnemonic is the well-known BIP39 English test vector phrase.
const testMnemonic = "abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon abandon about"

// TestSeedFromMnemonic checks seed production and checksum validation.
func TestSeedFromMnemonic(t *testing.T) {
	t.Parallel()

	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	require.Len(t, seed, 64)

	// The same phrase with a passphrase must produce a different seed.
	seedWithPIN, err := SeedFromMnemonic(testMnemonic, "1234")
	require.NoError(t, err)
	require.NotEqual(t, seed, seedWithPIN)

	// A phrase with a broken checksum must be rejected.
	_, err = SeedFromMnemonic("abandon abandon abandon abandon abandon "+
		"abandon abandon abandon abandon abandon abandon abandon", "")
	require.ErrorIs(t, err, ErrInvalidSecret)

	// Garbage input must be rejected.
	_, err = SeedFromMnemonic("definitely not a phrase", "")
	require.ErrorIs(t, err, ErrInvalidSecret)
}

// TestDeriveKnownVector pins derivation against the published BIP44 vector
// for the test mnemonic: m/44'/0'/0'/0/0 pays to
// 1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA.
func TestDeriveKnownVector(t *testing.T) {
	t.Parallel()

	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	deriver, err := NewDeriver(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	key, err := deriver.Derive("m/44'/0'/0'/0/0")
	require.NoError(t, err)
	require.Equal(
		t, "1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA",
		key.Address.EncodeAddress(),
	)
}

// TestDeriveDeterminism checks that deriving the same path twice yields
// identical private key, public key, and address, and that DeriveIndexed
// agrees with Derive on the joined path.
func TestDeriveDeterminism(t *testing.T) {
	t.Parallel()

	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	deriver, err := NewDeriver(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	paths := []string{
		"m/44'/0'/0'/0/0",
		"m/44'/0'/0'/0/19",
		"m/0'/0/5",
		"m",
	}

	for _, path := range paths {
		first, err := deriver.Derive(path)
		require.NoError(t, err)

		second, err := deriver.Derive(path)
		require.NoError(t, err)

		require.Equal(
			t, first.PrivKey.Serialize(),
			second.PrivKey.Serialize(),
		)
		require.Equal(
			t, first.PubKey.SerializeCompressed(),
			second.PubKey.SerializeCompressed(),
		)
		require.Equal(
			t, first.Address.EncodeAddress(),
			second.Address.EncodeAddress(),
		)
	}

	indexed, err := deriver.DeriveIndexed("m/44'/0'/0'/0", 19)
	require.NoError(t, err)

	direct, err := deriver.Derive("m/44'/0'/0'/0/19")
	require.NoError(t, err)
	require.Equal(
		t, direct.PrivKey.Serialize(), indexed.PrivKey.Serialize(),
	)
}

// TestDeriveDistinctPaths checks that different paths derive to different
// keys.
func TestDeriveDistinctPaths(t *testing.T) {
	t.Parallel()

	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	deriver, err := NewDeriver(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	a, err := deriver.DeriveIndexed("m/44'/0'/0'/0", 0)
	require.NoError(t, err)

	b, err := deriver.DeriveIndexed("m/44'/0'/0'/0", 1)
	require.NoError(t, err)

	require.NotEqual(t, a.PrivKey.Serialize(), b.PrivKey.Serialize())
	require.NotEqual(
		t, a.Address.EncodeAddress(), b.Address.EncodeAddress(),
	)
}

// TestNewDeriverInvalidSeed checks master key rejection of unusable seeds.
func TestNewDeriverInvalidSeed(t *testing.T) {
	t.Parallel()

	_, err := NewDeriver([]byte{0x01, 0x02}, &chaincfg.MainNetParams)
	require.ErrorIs(t, err, ErrInvalidSeed)
}

// TestDeriveInvalidPath checks that a malformed path surfaces the path
// error class from Derive.
func TestDeriveInvalidPath(t *testing.T) {
	t.Parallel()

	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)

	deriver, err := NewDeriver(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)

	_, err = deriver.Derive("m/not-a-path")
	require.ErrorIs(t, err, ErrInvalidPath)
}
