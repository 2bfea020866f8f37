package drop

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"drop-storefront/internal/domain"
	"drop-storefront/internal/solana"
)

// solDecimals is the number of lamport decimals in one SOL.
const solDecimals = 9

// accountDiscriminator and claimDiscriminator follow the Anchor convention:
// the first 8 bytes of sha256("<namespace>:<name>").
var (
	accountDiscriminator = anchorDiscriminator("account:Drop")
	claimDiscriminator   = anchorDiscriminator("global:claim")
)

func anchorDiscriminator(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// Account is the decoded drop account.
//
// Layout (borsh, little endian):
//   - discriminator: [u8; 8]
//   - authority: Pubkey
//   - treasury: Pubkey
//   - collectionMint: Pubkey
//   - price: u64 (lamports)
//   - itemsAvailable: u64
//   - itemsRedeemed: u64
//   - goLiveDate: Option<i64> (unix seconds)
//   - symbol: String
//   - sellerFeeBasisPoints: u16
type Account struct {
	Authority            solana.PublicKey
	Treasury             solana.PublicKey
	CollectionMint       solana.PublicKey
	PriceLamports        uint64
	ItemsAvailable       uint64
	ItemsRedeemed        uint64
	GoLive               *time.Time
	Symbol               string
	SellerFeeBasisPoints uint16
}

// decodeAccount parses base64 drop account data.
func decodeAccount(data string) (*Account, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode drop data: %w", err)
	}
	return parseAccount(raw)
}

func parseAccount(raw []byte) (*Account, error) {
	r := &borshReader{buf: raw}

	disc := r.bytes(8)
	if r.err == nil && [8]byte(disc) != accountDiscriminator {
		return nil, ErrNotDropAccount
	}

	acc := &Account{}
	acc.Authority = r.pubkey()
	acc.Treasury = r.pubkey()
	acc.CollectionMint = r.pubkey()
	acc.PriceLamports = r.u64()
	acc.ItemsAvailable = r.u64()
	acc.ItemsRedeemed = r.u64()
	if r.u8() == 1 {
		ts := time.Unix(int64(r.u64()), 0).UTC()
		acc.GoLive = &ts
	}
	acc.Symbol = r.string(10)
	acc.SellerFeeBasisPoints = r.u16()

	if r.err != nil {
		return nil, fmt.Errorf("parse drop account: %w", r.err)
	}
	return acc, nil
}

// Conditions converts the account into claim conditions priced in SOL.
func (a *Account) Conditions() *domain.ClaimConditions {
	price := decimal.NewFromBigInt(new(big.Int).SetUint64(a.PriceLamports), -solDecimals)
	royalty := decimal.New(int64(a.SellerFeeBasisPoints), -2)

	return &domain.ClaimConditions{
		PriceLamports: a.PriceLamports,
		DisplayPrice:  price.String(),
		Currency:      "SOL",
		GoLive:        a.GoLive,
		Terms:         fmt.Sprintf("%s%% creator royalty", royalty.String()),
	}
}

// borshReader reads sequential borsh fields, latching the first error.
type borshReader struct {
	buf []byte
	off int
	err error
}

func (r *borshReader) bytes(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("need %d bytes at offset %d, have %d", n, r.off, len(r.buf))
		return make([]byte, n)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *borshReader) u8() uint8 {
	return r.bytes(1)[0]
}

func (r *borshReader) u16() uint16 {
	return binary.LittleEndian.Uint16(r.bytes(2))
}

func (r *borshReader) u32() uint32 {
	return binary.LittleEndian.Uint32(r.bytes(4))
}

func (r *borshReader) u64() uint64 {
	return binary.LittleEndian.Uint64(r.bytes(8))
}

func (r *borshReader) pubkey() solana.PublicKey {
	var pk solana.PublicKey
	copy(pk[:], r.bytes(solana.PublicKeyLength))
	return pk
}

// string reads a u32-prefixed string no longer than max bytes.
func (r *borshReader) string(max int) string {
	n := r.u32()
	if r.err != nil {
		return ""
	}
	if int(n) > max {
		r.err = fmt.Errorf("string length %d exceeds %d", n, max)
		return ""
	}
	return string(r.bytes(int(n)))
}
