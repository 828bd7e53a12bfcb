package shardverifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPVerifier_Verify(t *testing.T) {
	tests := []struct {
		name            string
		handler         http.HandlerFunc
		expectedReceipt string
		expectedErr     error
		expectError     bool
	}{
		{
			name: "success: shard accepted with receipt",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var req verifyRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "team1", req.TeamID)
				assert.Equal(t, "user1", req.ShardID)
				assert.Equal(t, "secret-shard", req.ShardValue)

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(verifyResponse{Receipt: "receipt-123"})
			},
			expectedReceipt: "receipt-123",
		},
		{
			name: "success: accepted without receipt body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			expectedReceipt: "",
		},
		{
			name: "failure: shard rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "invalid shard", http.StatusUnprocessableEntity)
			},
			expectError: true,
			expectedErr: ErrShardRejected,
		},
		{
			name: "failure: verifier unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			v := NewHTTPVerifier(srv.URL, time.Second)

			receipt, err := v.Verify(context.Background(), "team1", "user1", "secret-shard")

			if tt.expectError {
				require.Error(t, err)
				if tt.expectedErr != nil {
					assert.ErrorIs(t, err, tt.expectedErr)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedReceipt, receipt)
			}
		})
	}
}

func TestHTTPVerifier_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, 20*time.Millisecond)

	_, err := v.Verify(context.Background(), "team1", "user1", "secret-shard")
	require.Error(t, err)
}
