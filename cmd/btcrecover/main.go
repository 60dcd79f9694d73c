// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// btcrecover discovers spendable funds across the addresses of a legacy
// HD wallet and sweeps them into the local custodian wallet in a single
// transaction. The recovery phrase and the custodian token are prompted
// with echo disabled and are never written to flags, files or logs.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcrecover/chain"
	"github.com/btcsuite/btcrecover/custodian"
	"github.com/btcsuite/btcrecover/keychain"
	"github.com/btcsuite/btcrecover/pkg/btcunit"
	"github.com/btcsuite/btcrecover/recovery"
	"github.com/btcsuite/btcrecover/sweep"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "btcrecover:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := setUpLogging(cfg.DebugLevel)
	if err != nil {
		return err
	}

	ctx := context.Background()
	params := cfg.netParams()

	mnemonic, err := promptSecret("Recovery phrase: ")
	if err != nil {
		return err
	}
	passphrase, err := promptSecret("Passphrase (empty if none): ")
	if err != nil {
		return err
	}

	seed, err := keychain.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return err
	}
	deriver, err := keychain.NewDeriver(seed, params)
	for i := range seed {
		seed[i] = 0
	}
	if err != nil {
		return err
	}
	defer deriver.Zero()

	dispatcher := chain.NewDispatcher(cfg.RequestsPerSecond)
	dispatcher.Start()
	defer dispatcher.Stop()

	client := chain.NewClient(&chain.ClientConfig{
		URL:        cfg.ProviderURL,
		Dispatcher: dispatcher,
	})

	registry := recovery.NewRegistry()
	for _, prefix := range cfg.PathPrefixes {
		log.Infof("Scanning %s from index %d (gap limit %d)",
			prefix, cfg.StartOffset, cfg.GapLimit)

		result, err := recovery.Scan(ctx, &recovery.ScanConfig{
			Deriver:     deriver,
			Chain:       client,
			Registry:    registry,
			PathPrefix:  prefix,
			GapLimit:    cfg.GapLimit,
			StartOffset: cfg.StartOffset,
		})
		if err != nil {
			return err
		}

		log.Infof("Scan of %s found %d funded addresses, stopped "+
			"at index %d", prefix, result.Found, result.LastIndex)
	}

	if registry.IsEmpty() {
		fmt.Println("No spendable funds discovered.")
		return nil
	}

	printReport(registry)

	if !cfg.DryRun {
		ok, err := confirm(fmt.Sprintf("Sweep %v to the custodian "+
			"wallet? (yes/no): ", registry.TotalBalance()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Sweep aborted.")
			return nil
		}
	}

	token, err := promptSecret("Custodian auth token: ")
	if err != nil {
		return err
	}

	result, err := sweep.Sweep(ctx, &sweep.Config{
		Deriver:  deriver,
		Chain:    client,
		Registry: registry,
		Custodian: custodian.NewClient(&custodian.Config{
			URL:       cfg.CustodianURL,
			AuthToken: token,
		}),
		MaxFeeRate: btcunit.NewSatPerKVByte(
			btcutil.Amount(cfg.MaxFeeRate),
		),
		DryRun: cfg.DryRun,
	})
	if err != nil {
		return err
	}

	if result.DryRun {
		fmt.Printf("Dry run: %d inputs worth %v signed and "+
			"verified, fee %v (%v), nothing submitted.\n",
			result.NumInputs, result.SweptValue, result.Fee,
			result.FeeRate)
		return nil
	}

	fmt.Printf("Swept %v in %d inputs, fee %v (%v).\nTransaction: %s\n",
		result.SweptValue, result.NumInputs, result.Fee,
		result.FeeRate, result.TxID)

	return nil
}

// promptSecret reads one line from the terminal with echo disabled.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}

	return strings.TrimSpace(string(secret)), nil
}

// confirm asks an explicit yes/no question on the terminal.
func confirm(prompt string) (bool, error) {
	fmt.Fprint(os.Stderr, prompt)

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}

	return strings.EqualFold(strings.TrimSpace(answer), "yes"), nil
}

// printReport writes the discovered funds table to stdout.
func printReport(registry *recovery.Registry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "PATH\tINDEX\tADDRESS\tOUTPUTS\tBALANCE")
	for _, entry := range registry.Entries() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%v\n", entry.PathPrefix,
			entry.Index, entry.Address, len(entry.Outputs),
			entry.Balance)
	}
	fmt.Fprintf(w, "\t\t\tTOTAL\t%v\n", registry.TotalBalance())

	w.Flush()
}
