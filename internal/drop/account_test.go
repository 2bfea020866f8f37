package drop

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drop-storefront/internal/solana"
)

// encodeAccount writes acc in the on-chain layout.
func encodeAccount(acc Account) []byte {
	var buf bytes.Buffer
	buf.Write(accountDiscriminator[:])
	buf.Write(acc.Authority[:])
	buf.Write(acc.Treasury[:])
	buf.Write(acc.CollectionMint[:])
	binary.Write(&buf, binary.LittleEndian, acc.PriceLamports)
	binary.Write(&buf, binary.LittleEndian, acc.ItemsAvailable)
	binary.Write(&buf, binary.LittleEndian, acc.ItemsRedeemed)
	if acc.GoLive != nil {
		buf.WriteByte(1)
		binary.Write(&buf, binary.LittleEndian, acc.GoLive.Unix())
	} else {
		buf.WriteByte(0)
	}
	binary.Write(&buf, binary.LittleEndian, uint32(len(acc.Symbol)))
	buf.WriteString(acc.Symbol)
	binary.Write(&buf, binary.LittleEndian, acc.SellerFeeBasisPoints)
	return buf.Bytes()
}

func testAccount() Account {
	goLive := time.Date(2022, 4, 1, 12, 0, 0, 0, time.UTC)
	return Account{
		Authority:            solana.MustPublicKey("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"),
		Treasury:             solana.MustPublicKey("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"),
		CollectionMint:       solana.TokenMetadataProgramID,
		PriceLamports:        500_000_000,
		ItemsAvailable:       100,
		ItemsRedeemed:        42,
		GoLive:               &goLive,
		Symbol:               "POG",
		SellerFeeBasisPoints: 500,
	}
}

func TestDecodeAccount(t *testing.T) {
	want := testAccount()
	data := base64.StdEncoding.EncodeToString(encodeAccount(want))

	got, err := decodeAccount(data)
	require.NoError(t, err)

	assert.Equal(t, want.Authority, got.Authority)
	assert.Equal(t, want.Treasury, got.Treasury)
	assert.Equal(t, want.CollectionMint, got.CollectionMint)
	assert.Equal(t, uint64(500_000_000), got.PriceLamports)
	assert.Equal(t, uint64(100), got.ItemsAvailable)
	assert.Equal(t, uint64(42), got.ItemsRedeemed)
	require.NotNil(t, got.GoLive)
	assert.True(t, want.GoLive.Equal(*got.GoLive))
	assert.Equal(t, "POG", got.Symbol)
	assert.Equal(t, uint16(500), got.SellerFeeBasisPoints)
}

func TestDecodeAccount_NoGoLive(t *testing.T) {
	acc := testAccount()
	acc.GoLive = nil

	got, err := parseAccount(encodeAccount(acc))
	require.NoError(t, err)
	assert.Nil(t, got.GoLive)
	assert.Equal(t, "POG", got.Symbol)
}

func TestDecodeAccount_Errors(t *testing.T) {
	raw := encodeAccount(testAccount())

	_, err := parseAccount(raw[:50])
	assert.Error(t, err, "truncated")

	wrong := append([]byte{}, raw...)
	wrong[0] ^= 0xff
	_, err = parseAccount(wrong)
	assert.True(t, errors.Is(err, ErrNotDropAccount))

	_, err = decodeAccount("!!not base64")
	assert.Error(t, err)
}

func TestAccount_Conditions(t *testing.T) {
	tests := []struct {
		lamports uint64
		display  string
	}{
		{500_000_000, "0.5"},
		{1_000_000_000, "1"},
		{1_250_000_000, "1.25"},
		{1, "0.000000001"},
		{0, "0"},
	}

	for _, tt := range tests {
		acc := testAccount()
		acc.PriceLamports = tt.lamports

		c := acc.Conditions()
		assert.Equal(t, tt.display, c.DisplayPrice, "lamports %d", tt.lamports)
		assert.Equal(t, tt.lamports, c.PriceLamports)
		assert.Equal(t, "SOL", c.Currency)
	}

	c := testAccount().Conditions()
	assert.Equal(t, "5% creator royalty", c.Terms)
	require.NotNil(t, c.GoLive)
}

func TestAnchorDiscriminator(t *testing.T) {
	// sha256("global:claim")[:8]
	assert.Equal(t, [8]byte{0x3e, 0xc6, 0xd6, 0xc1, 0xd5, 0x9f, 0x6c, 0xd2}, claimDiscriminator)
	assert.NotEqual(t, claimDiscriminator, accountDiscriminator)
}
