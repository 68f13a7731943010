package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TransactionRequest is a chain transaction awaiting a wallet signature.
// Inputs are Leo typed literals, e.g. "1field", "1000000u64", "true".
type TransactionRequest struct {
	Sender          string   `json:"sender"`
	Network         string   `json:"network"`
	ProgramID       string   `json:"program_id"`
	FunctionName    string   `json:"function_name"`
	Inputs          []string `json:"inputs"`
	FeeMicrocredits uint64   `json:"fee_microcredits"`
}

// Submitter signs and broadcasts a transaction, returning its transaction id.
// The wallet adapter itself is external; implementations only relay to it.
type Submitter interface {
	Submit(ctx context.Context, tx TransactionRequest) (string, error)
}

// BridgeSubmitter relays transactions to the wallet-adapter bridge over HTTP.
type BridgeSubmitter struct {
	url        string
	httpClient *http.Client
}

// NewBridgeSubmitter creates a submitter posting to the given bridge URL.
func NewBridgeSubmitter(url string) *BridgeSubmitter {
	return &BridgeSubmitter{
		url: url,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type submitResponse struct {
	TransactionID string `json:"transaction_id"`
	Error         string `json:"error"`
}

// Submit posts the transaction to the bridge and returns the id it reports.
func (s *BridgeSubmitter) Submit(ctx context.Context, tx TransactionRequest) (string, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read submit response: %w", err)
	}

	var parsed submitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse submit response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || parsed.Error != "" {
		return "", fmt.Errorf("wallet rejected transaction (%s %s): %s", tx.ProgramID, tx.FunctionName, parsed.Error)
	}

	if parsed.TransactionID == "" {
		return "", fmt.Errorf("wallet returned empty transaction id")
	}

	return parsed.TransactionID, nil
}
