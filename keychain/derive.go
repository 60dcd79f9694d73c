// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keychain implements deterministic HD key derivation for the
// recovery flow. Discovery and signing both derive through the same Deriver
// so an address found at a given (seed, path) is guaranteed to re-derive to
// the exact key that signs its outputs later.
package keychain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// SeedFromMnemonic converts a BIP39 recovery phrase and optional passphrase
// into the wallet seed. The mnemonic checksum is verified, mapping any
// failure to ErrInvalidSecret. The returned seed lives only in process
// memory and must never be persisted or logged.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	return seed, nil
}

// DerivedKey is the result of deriving a single node in the HD tree: the
// private key that can sign, its public key, and the P2PKH address the key
// pays to.
type DerivedKey struct {
	// PrivKey is the derived private key.
	PrivKey *btcec.PrivateKey

	// PubKey is the public key corresponding to PrivKey.
	PubKey *btcec.PublicKey

	// Address is the pay-to-pubkey-hash address of PubKey.
	Address btcutil.Address
}

// Deriver derives keys and addresses from a single master key. It is
// stateless beyond the master key itself, so identical paths always derive
// to identical keys.
type Deriver struct {
	master *hdkeychain.ExtendedKey
	params *chaincfg.Params
}

// NewDeriver creates a Deriver over the master key produced by the given
// seed. ErrInvalidSeed is returned if the seed cannot produce a master key.
func NewDeriver(seed []byte, params *chaincfg.Params) (*Deriver, error) {
	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	return &Deriver{
		master: master,
		params: params,
	}, nil
}

// Derive derives the key at the given path string. The same path always
// yields the same key.
func (d *Deriver) Derive(path string) (*DerivedKey, error) {
	steps, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	key := d.master
	for _, step := range steps {
		key, err = key.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("derive step %d of path %q: "+
				"%w", step, path, err)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract private key for path %q: %w",
			path, err)
	}

	addr, err := key.Address(d.params)
	if err != nil {
		return nil, fmt.Errorf("derive address for path %q: %w",
			path, err)
	}

	return &DerivedKey{
		PrivKey: privKey,
		PubKey:  privKey.PubKey(),
		Address: addr,
	}, nil
}

// DeriveIndexed derives the key at prefix/index, the form used by the
// scanner and the key-for-input resolver.
func (d *Deriver) DeriveIndexed(prefix string, index uint32) (*DerivedKey,
	error) {

	return d.Derive(JoinPath(prefix, index))
}

// Zero wipes the master key material. The Deriver is unusable afterwards.
func (d *Deriver) Zero() {
	d.master.Zero()
}
