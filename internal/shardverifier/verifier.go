// Package shardverifier talks to the external shard verification service.
// The shard value is an opaque string typed by a user; this service is the
// only party that can judge it. Its response body is never forwarded to
// clients verbatim.
package shardverifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

var ErrShardRejected = errors.New("shard rejected by verifier")

// Verifier validates a member's shard value for a team. A returned receipt
// is opaque proof of verification, stored alongside the approval.
type Verifier interface {
	Verify(ctx context.Context, teamID, shardID, shardValue string) (receipt string, err error)
}

type httpVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerifier(baseURL string, timeout time.Duration) Verifier {
	return &httpVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	TeamID     string `json:"team_id"`
	ShardID    string `json:"shard_id"`
	ShardValue string `json:"shard_value"`
}

type verifyResponse struct {
	Receipt string `json:"receipt"`
}

func (v *httpVerifier) Verify(ctx context.Context, teamID, shardID, shardValue string) (string, error) {
	body, err := json.Marshal(verifyRequest{
		TeamID:     teamID,
		ShardID:    shardID,
		ShardValue: shardValue,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode verify request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build verify request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "shard verifier request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var vr verifyResponse
		// Receipt is optional; an unreadable body still counts as accepted.
		_ = json.NewDecoder(resp.Body).Decode(&vr)
		return vr.Receipt, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", ErrShardRejected
	default:
		return "", fmt.Errorf("shard verifier returned status %d", resp.StatusCode)
	}
}
