// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package custodian talks to the local signing custodian: the wallet
// service that assigns the sweep transaction's outputs, countersigns the
// session, and broadcasts the final transaction. The custodian is
// semi-trusted: it chooses the outputs, but the sweep flow independently
// re-validates the implied fee before any input is signed.
package custodian

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
)

// defaultRequestTimeout bounds a single custodian HTTP round trip.
const defaultRequestTimeout = 30 * time.Second

// ActionInput describes one output to be consumed, identified by its
// outpoint in "txid.vout" form. No secret material crosses this boundary.
type ActionInput struct {
	// Outpoint is the "txid.vout" reference of the output to spend.
	Outpoint string `json:"outpoint"`

	// Description is a short operator-facing label.
	Description string `json:"description,omitempty"`

	// UnlockingScriptLength is the estimated byte length of the
	// unlocking proof this input will carry, so the custodian can
	// account for the final transaction size.
	UnlockingScriptLength int `json:"unlockingScriptLength"`
}

// CreateActionRequest asks the custodian to assemble a transaction
// skeleton spending the described inputs into outputs of its choosing.
type CreateActionRequest struct {
	// Description labels the action in the custodian's records.
	Description string `json:"description"`

	// Inputs are the outputs to consume.
	Inputs []ActionInput `json:"inputs"`

	// Ancestry is the merged ancestry/proof bundle covering every
	// distinct source transaction, so the custodian can validate input
	// provenance. Encoded as base64 on the wire.
	Ancestry []byte `json:"ancestry"`
}

// createActionResponse is the custodian's wire-level answer.
type createActionResponse struct {
	// Reference identifies the pending action for the later signing
	// call.
	Reference string `json:"reference"`

	// Skeleton is the base64 PSBT holding the unsigned transaction
	// with custodian-assigned outputs.
	Skeleton string `json:"skeleton"`
}

// Action is a custodian-proposed transaction skeleton awaiting signatures.
type Action struct {
	// Reference identifies the action in the sign-action call.
	Reference string

	// Tx is the unsigned transaction with custodian-chosen outputs.
	Tx *wire.MsgTx
}

// SignActionRequest submits the unlocking proofs for a previously created
// action and requests immediate (non-delayed) broadcast.
type SignActionRequest struct {
	// Reference is the value returned by the create-action call.
	Reference string `json:"reference"`

	// UnlockingScripts maps input index to the hex-encoded unlocking
	// proof for that input.
	UnlockingScripts map[uint32]string `json:"unlockingScripts"`
}

// SignActionResult reports the broadcast outcome. Only the identifier is
// returned, never the full transaction body.
type SignActionResult struct {
	// TxID is the identifier of the broadcast transaction.
	TxID string `json:"txid"`
}

// authStatusResponse is the wire form of the authentication check.
type authStatusResponse struct {
	Authenticated bool `json:"authenticated"`
}

// Config holds the configuration for the custodian client.
type Config struct {
	// URL is the base URL of the local custodian service.
	URL string

	// AuthToken authenticates this session with the custodian.
	AuthToken string

	// RequestTimeout is the timeout for individual HTTP requests.
	RequestTimeout time.Duration
}

// Client is an HTTP client for the signing custodian service.
type Client struct {
	cfg *Config

	httpClient *http.Client
}

// NewClient creates a custodian client using the given configuration.
func NewClient(cfg *Config) *Client {
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

// IsAuthenticated reports whether the custodian session is active. A
// transport failure is returned as an error distinct from a clean "not
// authenticated" answer so the operator message can say which it was.
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	var status authStatusResponse
	err := c.call(ctx, http.MethodGet, "/v1/auth/status", nil, &status)
	if err != nil {
		return false, err
	}

	return status.Authenticated, nil
}

// CreateAction submits the input descriptions and ancestry bundle and
// returns the custodian-proposed skeleton along with its signing
// reference.
func (c *Client) CreateAction(ctx context.Context,
	req *CreateActionRequest) (*Action, error) {

	var resp createActionResponse
	err := c.call(ctx, http.MethodPost, "/v1/action/create", req, &resp)
	if err != nil {
		return nil, err
	}

	packet, err := psbt.NewFromRawBytes(
		strings.NewReader(resp.Skeleton), true,
	)
	if err != nil {
		return nil, fmt.Errorf("decode skeleton psbt: %w", err)
	}

	log.Debugf("Custodian proposed skeleton with %d inputs, %d "+
		"outputs, reference %s", len(packet.UnsignedTx.TxIn),
		len(packet.UnsignedTx.TxOut), resp.Reference)
	log.Tracef("Skeleton transaction: %v",
		spew.Sdump(packet.UnsignedTx))

	return &Action{
		Reference: resp.Reference,
		Tx:        packet.UnsignedTx,
	}, nil
}

// SignAction hands the unlocking proofs back under the action's reference
// for final broadcast.
func (c *Client) SignAction(ctx context.Context,
	req *SignActionRequest) (*SignActionResult, error) {

	var result SignActionResult
	err := c.call(ctx, http.MethodPost, "/v1/action/sign", req, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// call performs one authenticated JSON round trip.
func (c *Client) call(ctx context.Context, method, path string,
	body, out interface{}) error {

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, c.cfg.URL+path, reqBody,
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("custodian returned status %d: %s",
			resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
