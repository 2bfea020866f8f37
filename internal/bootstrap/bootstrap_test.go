package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"drop-storefront/internal/config"
	"drop-storefront/internal/domain"
	"drop-storefront/internal/drop"
)

func TestOpenStores_Memory(t *testing.T) {
	st, cleanup, err := OpenStores(context.Background(), config.Config{UseMemory: true}, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, st.Ledger)
	require.NotNil(t, st.Events)

	n, err := st.Ledger.CountBySlug(context.Background(), "pog-apes")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenResolver_Simulate(t *testing.T) {
	resolver, cleanup, err := OpenResolver(context.Background(), config.Config{Simulate: true}, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	g, err := resolver.Gateway("any-address")
	require.NoError(t, err)

	supply, err := g.Supply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Supply{Claimed: 0, Total: SimulatedSupply}, supply)

	cond, err := g.ClaimConditions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.5", cond.DisplayPrice)
}

func TestOpenResolver_ReadOnlyWithoutMinter(t *testing.T) {
	cfg := config.Config{}
	cfg.Solana.RPCEndpoint = "http://127.0.0.1:0"
	cfg.Solana.ProgramID = "11111111111111111111111111111111"

	resolver, cleanup, err := OpenResolver(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	_, ok := resolver.(*drop.GatewayResolver)
	assert.True(t, ok)
}

func TestOpenResolver_BadKeys(t *testing.T) {
	cfg := config.Config{}
	cfg.Solana.ProgramID = "not-a-key"
	_, _, err := OpenResolver(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "program id")

	cfg.Solana.ProgramID = "11111111111111111111111111111111"
	cfg.Solana.MinterKey = "short"
	_, _, err = OpenResolver(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "minter key")
}

func TestNewRPCClient_AppliesSettings(t *testing.T) {
	var attempts atomic.Int32
	var preflight atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req struct {
			ID     uint64            `json:"id"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Params) == 2 {
			var opts map[string]any
			_ = json.Unmarshal(req.Params[1], &opts)
			preflight.Store(opts["preflightCommitment"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "5ig"})
	}))
	defer server.Close()

	cfg := config.Config{}
	cfg.Solana.RPCEndpoint = server.URL
	cfg.Solana.Commitment = "finalized"
	cfg.Solana.RPCTimeout = time.Second
	cfg.Solana.RPCMaxRetries = 1
	cfg.Solana.RPCRetryDelay = time.Millisecond
	cfg.Solana.RPCMaxDelay = time.Millisecond

	sig, err := NewRPCClient(cfg).SendTransaction(context.Background(), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, "5ig", sig)
	assert.Equal(t, int32(2), attempts.Load(), "one retry after the 503")
	assert.Equal(t, "finalized", preflight.Load())
}

func TestNewRPCClient_RetryLimit(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Config{}
	cfg.Solana.RPCEndpoint = server.URL
	cfg.Solana.RPCMaxRetries = 2
	cfg.Solana.RPCRetryDelay = time.Millisecond
	cfg.Solana.RPCMaxDelay = 2 * time.Millisecond

	_, err := NewRPCClient(cfg).GetSlot(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}
