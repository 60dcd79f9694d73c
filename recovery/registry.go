// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package recovery implements the address-discovery side of the sweep
// pipeline: the gap-limited scanner, the funded-address registry, the
// sweep-time key-for-input resolver, and the ancestry aggregator.
package recovery

import (
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// UnspentOutput is a single spendable output discovered for an address. It
// is immutable once recorded.
type UnspentOutput struct {
	// OutPoint identifies the funding transaction and output index.
	OutPoint wire.OutPoint

	// Value is the output value.
	Value btcutil.Amount

	// Height is the confirmation height of the funding transaction.
	Height int64
}

// AddressEntry is one discovered address holding spendable outputs. The
// path prefix and index are fixed at discovery time: re-deriving the
// signing key later MUST use exactly these values, never the session's
// current settings.
type AddressEntry struct {
	// Index is the derivation index at which the address was found.
	Index uint32

	// Address is the encoded address string.
	Address string

	// PathPrefix is the derivation-path prefix the address was found
	// under. Immutable once attached.
	PathPrefix string

	// Balance is the sum of all recorded output values.
	Balance btcutil.Amount

	// Outputs are the spendable outputs of this address.
	Outputs []UnspentOutput
}

// clone returns a deep copy so registry internals never escape.
func (e *AddressEntry) clone() AddressEntry {
	entry := *e
	entry.Outputs = make([]UnspentOutput, len(e.Outputs))
	copy(entry.Outputs, e.Outputs)

	return entry
}

// Registry is the accumulated, deduplicated set of funded addresses
// discovered so far in this session. Repeated scans with different path
// prefixes or offsets union into it by address identity; it is cleared
// only after a successful sweep broadcast.
type Registry struct {
	mu sync.Mutex

	// entries maps the encoded address to its entry.
	entries map[string]*AddressEntry

	// order preserves discovery order for reporting.
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*AddressEntry),
	}
}

// Record unions an entry into the registry. A new address is appended. For
// an address seen before, outputs are unioned by outpoint and the balance
// recomputed, while the originally stored path prefix and index are kept so
// a rescan under a different hypothesis never rebinds an address to a path
// it was not found under.
func (r *Registry) Record(entry AddressEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[entry.Address]
	if !ok {
		added := entry.clone()
		r.entries[entry.Address] = &added
		r.order = append(r.order, entry.Address)

		log.Debugf("Registry: recorded address %s (path %s index "+
			"%d, balance %v, %d utxos)", entry.Address,
			entry.PathPrefix, entry.Index, entry.Balance,
			len(entry.Outputs))

		return
	}

	known := make(map[wire.OutPoint]struct{}, len(existing.Outputs))
	for _, output := range existing.Outputs {
		known[output.OutPoint] = struct{}{}
	}

	for _, output := range entry.Outputs {
		if _, dup := known[output.OutPoint]; dup {
			continue
		}

		existing.Outputs = append(existing.Outputs, output)
		existing.Balance += output.Value
	}

	log.Debugf("Registry: merged rescan of address %s, now %d utxos",
		entry.Address, len(existing.Outputs))
}

// Entries returns a snapshot of all entries in discovery order.
func (r *Registry) Entries() []AddressEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]AddressEntry, 0, len(r.order))
	for _, addr := range r.order {
		entries = append(entries, r.entries[addr].clone())
	}

	return entries
}

// IsEmpty reports whether no funded addresses have been discovered.
func (r *Registry) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries) == 0
}

// NumEntries returns the number of distinct funded addresses.
func (r *Registry) NumEntries() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// TotalBalance returns the sum of all recorded output values.
func (r *Registry) TotalBalance() btcutil.Amount {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total btcutil.Amount
	for _, entry := range r.entries {
		total += entry.Balance
	}

	return total
}

// Clear removes all entries. Only called after a confirmed sweep broadcast
// so consumed outputs can never be re-selected within the session.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*AddressEntry)
	r.order = nil

	log.Info("Registry cleared after successful sweep")
}
