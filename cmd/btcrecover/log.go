// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcrecover/chain"
	"github.com/btcsuite/btcrecover/custodian"
	"github.com/btcsuite/btcrecover/recovery"
	"github.com/btcsuite/btcrecover/sweep"
)

// setUpLogging wires one btclog backend over stderr into every package
// logger and returns the command's own logger. Log lines go to stderr so
// the report table on stdout stays machine-readable.
func setUpLogging(debugLevel string) (btclog.Logger, error) {
	level, ok := btclog.LevelFromString(debugLevel)
	if !ok {
		return nil, fmt.Errorf("invalid debug level %q", debugLevel)
	}

	backend := btclog.NewBackend(os.Stderr)

	chns := backend.Logger("CHNS")
	rcvr := backend.Logger("RCVR")
	swpr := backend.Logger("SWPR")
	cstd := backend.Logger("CSTD")
	btcr := backend.Logger("BTCR")

	for _, logger := range []btclog.Logger{
		chns, rcvr, swpr, cstd, btcr,
	} {
		logger.SetLevel(level)
	}

	chain.UseLogger(chns)
	recovery.UseLogger(rcvr)
	sweep.UseLogger(swpr)
	custodian.UseLogger(cstd)

	return btcr, nil
}
