package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

// ErrAbsent means the mapping has no entry for the key. The explorer cannot
// distinguish "never written" from "not yet finalized"; callers should treat
// this as pending and may poll.
var ErrAbsent = errors.New("chain: mapping entry absent")

// ChainEvent is the on-chain view of a market, parsed from the events mapping.
type ChainEvent struct {
	EventID       decimal.Decimal `json:"event_id"`
	TotalYesStake decimal.Decimal `json:"total_yes_stake"`
	TotalNoStake  decimal.Decimal `json:"total_no_stake"`
	Resolved      bool            `json:"resolved"`
	Outcome       bool            `json:"outcome"`
}

// Reader fetches public mapping state from the Aleo explorer API.
type Reader struct {
	explorerURL string
	programID   string
	httpClient  *http.Client
}

// NewReader creates a Reader for one deployed program.
func NewReader(explorerURL, programID string) *Reader {
	return &Reader{
		explorerURL: strings.TrimRight(explorerURL, "/"),
		programID:   programID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetMappingValue fetches the raw textual value stored under mapping[key].
// Returns ErrAbsent when the node reports the literal sentinel "None".
func (r *Reader) GetMappingValue(ctx context.Context, mapping, key string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/%s", r.explorerURL, r.programID, mapping, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build mapping request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch mapping %s/%s: %w", mapping, key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("explorer returned status %d for mapping %s/%s", resp.StatusCode, mapping, key)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read mapping response: %w", err)
	}

	raw := strings.TrimSpace(string(body))

	// The endpoint wraps the value in a JSON string ("..." or null).
	if raw == "null" {
		return "", ErrAbsent
	}
	var unquoted string
	if err := json.Unmarshal(body, &unquoted); err == nil {
		raw = unquoted
	}

	if raw == "" || raw == "None" {
		return "", ErrAbsent
	}

	return raw, nil
}

// GetEvent reads and parses the events mapping entry for an event id.
func (r *Reader) GetEvent(ctx context.Context, eventID int64) (*ChainEvent, error) {
	raw, err := r.GetMappingValue(ctx, "events", fmt.Sprintf("%dfield", eventID))
	if err != nil {
		return nil, err
	}

	var event ChainEvent
	if err := json.Unmarshal([]byte(NormalizeRecord(raw)), &event); err != nil {
		return nil, fmt.Errorf("failed to parse event record %q: %w", raw, err)
	}

	return &event, nil
}

// GetUserStake reads the user_stake mapping for a derived stake key and
// returns the account's total staked amount.
func (r *Reader) GetUserStake(ctx context.Context, stakeKey string) (decimal.Decimal, error) {
	raw, err := r.GetMappingValue(ctx, "user_stake", stakeKey)
	if err != nil {
		return decimal.Zero, err
	}

	total, err := decimal.NewFromString(strings.Trim(NormalizeRecord(raw), `"`))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse stake value %q: %w", raw, err)
	}

	return total, nil
}

// WaitForMappingValue polls a mapping key with exponential backoff until an
// entry appears, the retry budget is spent, or the context is cancelled.
// Hard read failures abort immediately; only ErrAbsent is retried.
func (r *Reader) WaitForMappingValue(ctx context.Context, mapping, key string, maxRetries uint64) (string, error) {
	var value string

	operation := func() error {
		raw, err := r.GetMappingValue(ctx, mapping, key)
		if err != nil {
			if errors.Is(err, ErrAbsent) {
				return err
			}
			return backoff.Permanent(err)
		}
		value = raw
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	log.Printf("[ChainReader] Mapping %s/%s finalized", mapping, key)
	return value, nil
}
