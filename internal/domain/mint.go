package domain

// MintRecord is a ledger entry for a successful claim.
// Corresponds to mint_records table in PostgreSQL.
type MintRecord struct {
	TokenID       string // PK: mint address
	Slug          string // collection slug
	DropAddress   string
	Wallet        string // recipient
	Signature     string // claim transaction signature
	PriceLamports uint64
	MintedAt      int64 // ms
	CreatedAt     int64 // record creation timestamp (ms)
}
