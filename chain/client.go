// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chain talks to the external block-chain data provider. All
// outbound traffic funnels through a rate-limited dispatcher so the
// provider sees at most a fixed number of requests per second, issued in
// FIFO order.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultRequestTimeout bounds a single provider HTTP round trip.
const defaultRequestTimeout = 30 * time.Second

// ProviderError wraps a transport or parse failure from the data provider.
// Provider failures are never retried automatically; they surface
// immediately and halt the current scan pass.
type ProviderError struct {
	// Op names the provider operation that failed.
	Op string

	// Err is the underlying transport or decode error.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("data provider: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TxRef is one entry of an address's transaction history.
type TxRef struct {
	// TxID is the referencing transaction id.
	TxID string `json:"txid"`

	// Height is the confirmation height, or 0 while unconfirmed.
	Height int64 `json:"height"`
}

// UTXO is one unspent output of an address as reported by the provider.
type UTXO struct {
	// TxID is the funding transaction id.
	TxID string `json:"txid"`

	// Vout is the output index within the funding transaction.
	Vout uint32 `json:"vout"`

	// Value is the output value in satoshis.
	Value int64 `json:"value"`

	// Height is the confirmation height of the funding transaction.
	Height int64 `json:"height"`

	// PendingSpend is set when a not yet confirmed transaction already
	// spends this output. Such outputs are not sweep candidates.
	PendingSpend bool `json:"pending_spend"`
}

// ClientConfig holds the configuration for the provider client.
type ClientConfig struct {
	// URL is the base URL of the provider REST API.
	URL string

	// Dispatcher is the rate-limited gateway every request goes through.
	// It is passed in explicitly so tests can run multiple independent
	// dispatchers.
	Dispatcher *Dispatcher

	// RequestTimeout is the timeout for individual HTTP requests.
	RequestTimeout time.Duration
}

// Client is an HTTP client for the block-chain data provider. All three
// operations are idempotent reads on the provider.
type Client struct {
	cfg *ClientConfig

	httpClient *http.Client
}

// NewClient creates a provider client using the given configuration.
func NewClient(cfg *ClientConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// AddressTxs fetches the transaction history for an address. An empty list
// means the address has never been used.
func (c *Client) AddressTxs(ctx context.Context,
	address string) ([]TxRef, error) {

	var refs []TxRef
	err := c.getJSON(ctx, "address txs", "/address/"+address+"/txs",
		&refs)
	if err != nil {
		return nil, err
	}

	return refs, nil
}

// AddressUTXOs fetches the unspent outputs of an address, including the
// pending-spend flag for each output.
func (c *Client) AddressUTXOs(ctx context.Context,
	address string) ([]UTXO, error) {

	var utxos []UTXO
	err := c.getJSON(ctx, "address utxos", "/address/"+address+"/utxo",
		&utxos)
	if err != nil {
		return nil, err
	}

	return utxos, nil
}

// TxAncestry fetches the opaque ancestry/proof bundle for a transaction.
// The consumer only merges bundles, never interprets their internal
// structure.
func (c *Client) TxAncestry(ctx context.Context, txid string) ([]byte,
	error) {

	body, err := c.get(ctx, "tx ancestry", "/tx/"+txid+"/ancestry")
	if err != nil {
		return nil, err
	}

	return body, nil
}

// getJSON performs a dispatched GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, op, path string,
	out interface{}) error {

	body, err := c.get(ctx, op, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{
			Op:  op,
			Err: fmt.Errorf("decode response: %w", err),
		}
	}

	return nil
}

// get performs a single GET request through the dispatcher and returns the
// raw response body.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	var body []byte

	dispatchErr := c.cfg.Dispatcher.Dispatch(ctx,
		func(ctx context.Context) error {
			url := c.cfg.URL + path

			req, err := http.NewRequestWithContext(
				ctx, http.MethodGet, url, nil,
			)
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			log.Tracef("Provider request: GET %s", url)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("provider returned status "+
					"%d: %s", resp.StatusCode,
					string(body))
			}

			return nil
		},
	)
	if dispatchErr != nil {
		return nil, &ProviderError{Op: op, Err: dispatchErr}
	}

	return body, nil
}
