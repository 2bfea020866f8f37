package domain

import "time"

// ClaimConditions are the drop's minting rules.
type ClaimConditions struct {
	PriceLamports uint64
	DisplayPrice  string // price in the native currency, e.g. "0.5"
	Currency      string // currency symbol, e.g. "SOL"
	GoLive        *time.Time
	Terms         string
}

// Supply is a (claimed, total) pair read from the drop.
// The two values come from independent reads and are not atomic.
type Supply struct {
	Claimed int64
	Total   int64
}

// SoldOut reports whether every item has been claimed.
func (s Supply) SoldOut() bool {
	return s.Claimed == s.Total
}

// ClaimReceipt is the confirmation of a claim transaction.
type ClaimReceipt struct {
	Signature string
	Slot      int64
	Err       interface{} // nil on success
}

// NFTMetadata describes a minted token.
type NFTMetadata struct {
	Name        string
	Symbol      string
	Description string
	Image       string
	URI         string
	Owner       string
}

// ClaimedToken is one token minted by a claim.
type ClaimedToken struct {
	TokenID  string // mint address
	Receipt  ClaimReceipt
	Metadata NFTMetadata
}
