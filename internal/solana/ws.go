package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature waits for a transaction signature to reach the client's commitment.
	// The returned channel yields one notification and is then closed.
	// cancel releases the subscription when the caller stops waiting.
	SubscribeSignature(ctx context.Context, signature string) (ch <-chan SignatureNotification, cancel func(), err error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification represents a signatureSubscribe message.
type SignatureNotification struct {
	Signature string
	Slot      int64
	Err       interface{}
}
