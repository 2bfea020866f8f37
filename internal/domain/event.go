package domain

// EventType identifies a storefront analytics event.
type EventType string

const (
	EventPageView         EventType = "page_view"
	EventWalletConnect    EventType = "wallet_connect"
	EventWalletDisconnect EventType = "wallet_disconnect"
	EventMintAttempt      EventType = "mint_attempt"
	EventMintSuccess      EventType = "mint_success"
	EventMintFailure      EventType = "mint_failure"
)

// StorefrontEvent is an append-only analytics event.
// Corresponds to storefront_events table in ClickHouse.
type StorefrontEvent struct {
	EventID     string
	EventType   EventType
	Slug        string
	Wallet      string // empty when no wallet is connected
	TimestampMs int64
	Detail      string
}
