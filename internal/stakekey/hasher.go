package stakekey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteHasher computes hashes through the doko-js hasher service. The bhp256
// primitive only exists as a wasm build, so it runs behind a small HTTP
// endpoint instead of in-process.
type RemoteHasher struct {
	url        string
	httpClient *http.Client
}

// NewRemoteHasher creates a hasher client for the given service URL.
func NewRemoteHasher(url string) *RemoteHasher {
	return &RemoteHasher{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type hashRequest struct {
	Algorithm  string `json:"algorithm"`
	Value      string `json:"value"`
	OutputType string `json:"output_type"`
	Network    string `json:"network"`
}

type hashResponse struct {
	Hash string `json:"hash"`
}

// Hash posts the value to the hasher service and returns the digest literal.
func (h *RemoteHasher) Hash(ctx context.Context, algorithm, value, outputType, network string) (string, error) {
	body, err := json.Marshal(hashRequest{
		Algorithm:  algorithm,
		Value:      value,
		OutputType: outputType,
		Network:    network,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode hash request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build hash request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("hasher service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("hasher service returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read hasher response: %w", err)
	}

	// The service replies with either a bare JSON string or {"hash": "..."}.
	var parsed hashResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Hash != "" {
		return parsed.Hash, nil
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil && plain != "" {
		return plain, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", fmt.Errorf("hasher service returned empty response")
	}
	return trimmed, nil
}
