package drop

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drop-storefront/internal/solana"
)

const testDropAddress = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

var testProgramID = solana.MustPublicKey("DRoPprogram111111111111111111111111111111111")

// fakeRPC serves the drop account plus a metadata account for every other address.
type fakeRPC struct {
	mu        sync.Mutex
	drop      *solana.AccountInfo
	metadata  *solana.AccountInfo
	statuses  []*solana.SignatureStatus // returned in turn, last one repeats
	sent      [][]byte
	sendErr   error
	reads     int
	statusIdx int
}

var _ solana.RPCClient = (*fakeRPC)(nil)

func (f *fakeRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pubkey == testDropAddress {
		f.reads++
		return f.drop, nil
	}
	return f.metadata, nil
}

func (f *fakeRPC) GetLatestBlockhash(ctx context.Context) (*solana.Blockhash, error) {
	return &solana.Blockhash{Blockhash: "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", LastValidBlockHeight: 100}, nil
}

func (f *fakeRPC) SendTransaction(ctx context.Context, tx []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, tx)
	return "5ig", nil
}

func (f *fakeRPC) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return []*solana.SignatureStatus{nil}, nil
	}
	s := f.statuses[f.statusIdx]
	if f.statusIdx < len(f.statuses)-1 {
		f.statusIdx++
	}
	return []*solana.SignatureStatus{s}, nil
}

// fakeWS delivers a single notification per subscription.
type fakeWS struct {
	notif   solana.SignatureNotification
	failSub bool
	silent  bool

	mu       sync.Mutex
	released int
}

var _ solana.WSClient = (*fakeWS)(nil)

func (f *fakeWS) SubscribeSignature(ctx context.Context, sig string) (<-chan solana.SignatureNotification, func(), error) {
	if f.failSub {
		return nil, nil, errors.New("not connected")
	}
	ch := make(chan solana.SignatureNotification, 1)
	if !f.silent {
		n := f.notif
		n.Signature = sig
		ch <- n
		close(ch)
	}
	release := func() {
		f.mu.Lock()
		f.released++
		f.mu.Unlock()
	}
	return ch, release, nil
}

func (f *fakeWS) releasedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *fakeWS) Close() error { return nil }

// encodeMetaplex writes a MetadataV1 account prefix.
func encodeMetaplex(name, symbol, uri string) string {
	var buf bytes.Buffer
	buf.WriteByte(metadataV1Key)
	buf.Write(make([]byte, 64))
	for _, s := range []string{name, symbol, uri} {
		binary.Write(&buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	}
	buf.Write(make([]byte, 40)) // creators, etc.
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestGateway(t *testing.T, rpc *fakeRPC, ws solana.WSClient) *SolanaGateway {
	t.Helper()
	minter, err := solana.NewKeypair()
	require.NoError(t, err)

	g, err := NewSolanaGateway(rpc, ws, testDropAddress, Config{
		ProgramID:      testProgramID,
		Minter:         minter,
		PollInterval:   5 * time.Millisecond,
		ConfirmTimeout: time.Second,
	})
	require.NoError(t, err)
	return g
}

func dropInfo(acc Account) *solana.AccountInfo {
	return &solana.AccountInfo{
		Owner: testProgramID.String(),
		Data:  base64.StdEncoding.EncodeToString(encodeAccount(acc)),
	}
}

func metadataServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"POG Ape #43","description":"An ape that pogs.","image":"https://arweave.net/ape43.png"}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSolanaGateway_Reads(t *testing.T) {
	rpc := &fakeRPC{drop: dropInfo(testAccount())}
	g := newTestGateway(t, rpc, nil)
	ctx := context.Background()

	cond, err := g.ClaimConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.5", cond.DisplayPrice)

	supply, err := g.Supply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), supply.Claimed)
	assert.Equal(t, int64(100), supply.Total)
	assert.Equal(t, 3, rpc.reads, "supply is two independent reads")
}

func TestSolanaGateway_NotFound(t *testing.T) {
	g := newTestGateway(t, &fakeRPC{}, nil)

	_, err := g.TotalSupply(context.Background())
	assert.True(t, errors.Is(err, ErrDropNotFound))
}

func TestSolanaGateway_WrongOwner(t *testing.T) {
	info := dropInfo(testAccount())
	info.Owner = solana.SystemProgramID.String()
	g := newTestGateway(t, &fakeRPC{drop: info}, nil)

	_, err := g.ClaimedSupply(context.Background())
	assert.True(t, errors.Is(err, ErrNotDropAccount))
}

func TestSolanaGateway_ClaimWithPolling(t *testing.T) {
	server := metadataServer(t)
	rpc := &fakeRPC{
		drop:     dropInfo(testAccount()),
		metadata: &solana.AccountInfo{Data: encodeMetaplex("POG Ape #43", "POG", server.URL)},
		statuses: []*solana.SignatureStatus{
			nil,
			{Slot: 10, ConfirmationStatus: solana.CommitmentProcessed},
			{Slot: 11, ConfirmationStatus: solana.CommitmentConfirmed},
		},
	}
	g := newTestGateway(t, rpc, nil)
	recipient, err := solana.NewKeypair()
	require.NoError(t, err)

	tokens, err := g.Claim(context.Background(), recipient.PublicKey().String(), 1)
	require.NoError(t, err)
	require.Len(t, tokens, 1)

	tok := tokens[0]
	assert.Equal(t, "5ig", tok.Receipt.Signature)
	assert.Equal(t, int64(11), tok.Receipt.Slot)
	assert.Nil(t, tok.Receipt.Err)
	assert.Equal(t, "POG Ape #43", tok.Metadata.Name)
	assert.Equal(t, "POG", tok.Metadata.Symbol)
	assert.Equal(t, "An ape that pogs.", tok.Metadata.Description)
	assert.Equal(t, "https://arweave.net/ape43.png", tok.Metadata.Image)
	assert.Equal(t, server.URL, tok.Metadata.URI)
	assert.Equal(t, recipient.PublicKey().String(), tok.Metadata.Owner)

	mint, err := solana.ParsePublicKey(tok.TokenID)
	require.NoError(t, err)
	assert.True(t, mint.IsOnCurve(), "token id is the fresh mint keypair")

	require.Len(t, rpc.sent, 1)
	assert.True(t, bytes.Contains(rpc.sent[0], claimDiscriminator[:]))
	sigCount := int(rpc.sent[0][0])
	assert.Equal(t, 2, sigCount, "minter and mint sign")
}

func TestSolanaGateway_ClaimWithWebSocket(t *testing.T) {
	server := metadataServer(t)
	rpc := &fakeRPC{
		drop:     dropInfo(testAccount()),
		metadata: &solana.AccountInfo{Data: encodeMetaplex("POG Ape #43", "POG", server.URL)},
	}
	ws := &fakeWS{notif: solana.SignatureNotification{Slot: 77}}
	g := newTestGateway(t, rpc, ws)
	recipient, err := solana.NewKeypair()
	require.NoError(t, err)

	tokens, err := g.Claim(context.Background(), recipient.PublicKey().String(), 2)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, int64(77), tokens[0].Receipt.Slot)
	assert.NotEqual(t, tokens[0].TokenID, tokens[1].TokenID)
	assert.Equal(t, 3, int(rpc.sent[0][0]), "minter plus two mints sign")
	assert.Equal(t, 1, ws.releasedCount())
}

func TestSolanaGateway_AbandonedReceiptReleasesSubscription(t *testing.T) {
	ws := &fakeWS{silent: true}
	g := newTestGateway(t, &fakeRPC{drop: dropInfo(testAccount())}, ws)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := g.awaitReceipt(ctx, fmt.Sprintf("sig-%d", i))
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}
	assert.Equal(t, 5, ws.releasedCount())
}

func TestSolanaGateway_SubscriptionFailureFallsBackToPolling(t *testing.T) {
	rpc := &fakeRPC{
		drop:     dropInfo(testAccount()),
		metadata: &solana.AccountInfo{Data: encodeMetaplex("POG Ape #1", "POG", "")},
		statuses: []*solana.SignatureStatus{{Slot: 5, ConfirmationStatus: solana.CommitmentFinalized}},
	}
	g := newTestGateway(t, rpc, &fakeWS{failSub: true})
	recipient, err := solana.NewKeypair()
	require.NoError(t, err)

	tokens, err := g.Claim(context.Background(), recipient.PublicKey().String(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), tokens[0].Receipt.Slot)
	assert.Empty(t, tokens[0].Metadata.Image, "no uri, no off-chain document")
}

func TestSolanaGateway_ClaimRejected(t *testing.T) {
	recipient, err := solana.NewKeypair()
	require.NoError(t, err)
	to := recipient.PublicKey().String()

	tests := []struct {
		name      string
		rpc       *fakeRPC
		recipient string
		quantity  int
	}{
		{
			name:      "transaction error",
			rpc:       &fakeRPC{drop: dropInfo(testAccount()), statuses: []*solana.SignatureStatus{{Slot: 3, Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}}},
			recipient: to,
			quantity:  1,
		},
		{
			name:      "send error",
			rpc:       &fakeRPC{drop: dropInfo(testAccount()), sendErr: &solana.RPCError{Code: -32002, Message: "simulation failed"}},
			recipient: to,
			quantity:  1,
		},
		{
			name:      "bad recipient",
			rpc:       &fakeRPC{drop: dropInfo(testAccount())},
			recipient: "not-a-key",
			quantity:  1,
		},
		{
			name:      "zero quantity",
			rpc:       &fakeRPC{drop: dropInfo(testAccount())},
			recipient: to,
			quantity:  0,
		},
		{
			name:      "confirm timeout",
			rpc:       &fakeRPC{drop: dropInfo(testAccount())},
			recipient: to,
			quantity:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, tt.rpc, nil)
			g.cfg.ConfirmTimeout = 50 * time.Millisecond

			_, err := g.Claim(context.Background(), tt.recipient, tt.quantity)
			assert.True(t, errors.Is(err, ErrClaimRejected), "got %v", err)
		})
	}
}

func TestGatewayResolver_Caches(t *testing.T) {
	r := NewGatewayResolver(&fakeRPC{}, nil, Config{ProgramID: testProgramID})

	a, err := r.Gateway(testDropAddress)
	require.NoError(t, err)
	b, err := r.Gateway(testDropAddress)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = r.Gateway("bogus")
	assert.Error(t, err)
}

func TestParseMetaplexData(t *testing.T) {
	meta, err := parseMetaplexData(encodeMetaplex("POG Ape #1\x00\x00", "POG", "https://example.com/1.json"))
	require.NoError(t, err)
	assert.Equal(t, "POG Ape #1", meta.Name)
	assert.Equal(t, "POG", meta.Symbol)
	assert.Equal(t, "https://example.com/1.json", meta.URI)

	_, err = parseMetaplexData(base64.StdEncoding.EncodeToString([]byte{4, 1, 2}))
	assert.Error(t, err)

	wrongKey, _ := base64.StdEncoding.DecodeString(encodeMetaplex("a", "b", "c"))
	wrongKey[0] = 9
	_, err = parseMetaplexData(base64.StdEncoding.EncodeToString(wrongKey))
	assert.Error(t, err)
}
