// Package wallet binds browser wallet addresses to storefront sessions.
//
// A browser wallet proves control of an address by signing a one-time
// challenge message issued by the server. One wallet is bound per session;
// there is no reconnection policy.
package wallet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"drop-storefront/internal/observability"
	"drop-storefront/internal/solana"
)

// DefaultChallengeTTL bounds how long an issued challenge can be answered.
const DefaultChallengeTTL = 5 * time.Minute

var (
	// ErrUnavailable is returned when a wallet cannot be connected.
	// All connect failures wrap it.
	ErrUnavailable = errors.New("wallet unavailable")

	// ErrNoSession is returned for an empty session id.
	ErrNoSession = errors.New("missing session id")
)

// Challenge is a one-time message the wallet must sign.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Proof is the wallet's answer to a challenge.
// Signature may be base64 or base58 encoded.
type Proof struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// Config configures a Connector.
type Config struct {
	Domain       string // shown in the challenge message
	ChallengeTTL time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
}

// Connector tracks per-session challenges and connected addresses.
type Connector struct {
	domain string
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	challenges map[string]Challenge // session id -> outstanding challenge
	addresses  map[string]string    // session id -> base58 address
}

// NewConnector creates a Connector.
func NewConnector(cfg Config) *Connector {
	if cfg.Domain == "" {
		cfg.Domain = "drop-storefront"
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Connector{
		domain:     cfg.Domain,
		ttl:        cfg.ChallengeTTL,
		logger:     cfg.Logger.Named("wallet"),
		now:        cfg.Now,
		challenges: make(map[string]Challenge),
		addresses:  make(map[string]string),
	}
}

// Challenge issues a fresh challenge for sessionID, replacing any outstanding one.
func (c *Connector) Challenge(sessionID string) (Challenge, error) {
	if sessionID == "" {
		return Challenge{}, ErrNoSession
	}

	issued := c.now().UTC()
	nonce := uuid.NewString()
	ch := Challenge{
		Nonce:     nonce,
		Message:   challengeMessage(c.domain, nonce, issued),
		ExpiresAt: issued.Add(c.ttl),
	}

	c.mu.Lock()
	c.challenges[sessionID] = ch
	c.mu.Unlock()

	return ch, nil
}

// Connect verifies proof against the session's outstanding challenge and binds
// the address. The challenge is consumed whether or not verification succeeds.
func (c *Connector) Connect(ctx context.Context, sessionID string, proof Proof) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	address, err := c.connect(sessionID, proof)
	observability.RecordWalletConnect(err == nil)
	if err != nil {
		c.logger.Info("wallet connect failed",
			zap.String("session", sessionID),
			zap.String("address", proof.Address),
			zap.Error(err),
		)
		return "", err
	}
	c.logger.Info("wallet connected",
		zap.String("session", sessionID),
		zap.String("address", address),
	)
	return address, nil
}

func (c *Connector) connect(sessionID string, proof Proof) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, ErrNoSession)
	}

	c.mu.Lock()
	ch, ok := c.challenges[sessionID]
	delete(c.challenges, sessionID)
	c.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("%w: no outstanding challenge", ErrUnavailable)
	}
	if c.now().After(ch.ExpiresAt) {
		return "", fmt.Errorf("%w: challenge expired", ErrUnavailable)
	}

	pk, err := solana.ParsePublicKey(strings.TrimSpace(proof.Address))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !pk.IsOnCurve() {
		return "", fmt.Errorf("%w: address is not a wallet key", ErrUnavailable)
	}

	sig, err := decodeSignature(proof.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !solana.VerifySignature(pk, []byte(ch.Message), sig) {
		return "", fmt.Errorf("%w: signature does not match challenge", ErrUnavailable)
	}

	address := pk.String()
	c.mu.Lock()
	c.addresses[sessionID] = address
	c.mu.Unlock()
	return address, nil
}

// Disconnect clears the session's address and any outstanding challenge.
func (c *Connector) Disconnect(sessionID string) {
	c.mu.Lock()
	_, had := c.addresses[sessionID]
	delete(c.addresses, sessionID)
	delete(c.challenges, sessionID)
	c.mu.Unlock()

	if had {
		c.logger.Info("wallet disconnected", zap.String("session", sessionID))
	}
}

// CurrentAddress returns the address bound to sessionID.
func (c *Connector) CurrentAddress(sessionID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr, ok := c.addresses[sessionID]
	return addr, ok
}

// Sweep drops expired challenges. Returns how many were removed.
func (c *Connector) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, ch := range c.challenges {
		if now.After(ch.ExpiresAt) {
			delete(c.challenges, id)
			n++
		}
	}
	return n
}

func challengeMessage(domain, nonce string, issued time.Time) string {
	return fmt.Sprintf("%s wants you to sign in with your Solana account.\n\nNonce: %s\nIssued At: %s",
		domain, nonce, issued.Format(time.RFC3339))
}

// decodeSignature accepts the base64 form browsers produce and the base58
// form some wallet adapters return.
func decodeSignature(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty signature")
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 64 {
		return b, nil
	}
	if b, err := base58.Decode(s); err == nil && len(b) == 64 {
		return b, nil
	}
	return nil, errors.New("signature must be 64 bytes in base64 or base58")
}
