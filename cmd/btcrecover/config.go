// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	flags "github.com/jessevdk/go-flags"
)

// defaultPathPrefixes are the external and change chains of the BIP44
// bitcoin account 0, the most common homes for legacy funds.
var defaultPathPrefixes = []string{
	"m/44'/0'/0'/0",
	"m/44'/0'/0'/1",
}

// config holds every non-secret setting. The recovery phrase, the optional
// passphrase and the custodian token are prompted interactively and never
// appear here.
type config struct {
	ProviderURL string `long:"provider" description:"Base URL of the chain data provider REST API"`

	CustodianURL string `long:"custodian" description:"Base URL of the local signing custodian"`

	PathPrefixes []string `long:"prefix" description:"Derivation path prefix to scan; may be given multiple times (default: BIP44 account 0 external and change chains)"`

	GapLimit uint32 `long:"gaplimit" default:"5" description:"Consecutive unused addresses before a scan pass stops"`

	StartOffset uint32 `long:"start" default:"0" description:"Derivation index to start scanning from"`

	RequestsPerSecond float64 `long:"reqpersec" default:"3" description:"Maximum data provider request rate"`

	MaxFeeRate int64 `long:"maxfeerate" default:"10" description:"Maximum acceptable sweep fee rate in sat/kvB"`

	TestNet bool `long:"testnet" description:"Use testnet3 network parameters"`

	DryRun bool `long:"dryrun" description:"Discover, build and verify the sweep but submit nothing"`

	DebugLevel string `long:"debuglevel" short:"d" default:"info" description:"Logging level {trace, debug, info, warn, error, critical}"`
}

// netParams maps the network flag to chain parameters.
func (c *config) netParams() *chaincfg.Params {
	if c.TestNet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// loadConfig parses the command line and applies defaults.
func loadConfig() (*config, error) {
	cfg := &config{}
	if _, err := flags.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.ProviderURL == "" {
		return nil, fmt.Errorf("--provider is required")
	}
	if cfg.CustodianURL == "" {
		return nil, fmt.Errorf("--custodian is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("--reqpersec must be positive")
	}
	if cfg.MaxFeeRate <= 0 {
		return nil, fmt.Errorf("--maxfeerate must be positive")
	}
	if len(cfg.PathPrefixes) == 0 {
		cfg.PathPrefixes = defaultPathPrefixes
	}

	return cfg, nil
}
