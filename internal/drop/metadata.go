package drop

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"drop-storefront/internal/domain"
)

// maxOffChainMetadata bounds the off-chain JSON body.
const maxOffChainMetadata = 1 << 20

// metadataV1Key is the Metaplex account key for MetadataV1.
const metadataV1Key = 4

// onChainMetadata is the prefix of a Metaplex metadata account.
type onChainMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// parseMetaplexData parses Metaplex Token Metadata account data.
// Metaplex Metadata layout:
// - key: u8 (1 byte, 4 for MetadataV1)
// - updateAuthority: Pubkey (32 bytes)
// - mint: Pubkey (32 bytes)
// - name: String (4 + length bytes, max 32 chars)
// - symbol: String (4 + length bytes, max 10 chars)
// - uri: String (4 + length bytes, max 200 chars)
// ...and more fields
func parseMetaplexData(data string) (*onChainMetadata, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	if len(decoded) < 65 {
		return nil, fmt.Errorf("metadata too short: %d", len(decoded))
	}
	if decoded[0] != metadataV1Key {
		return nil, fmt.Errorf("unexpected metadata key %d", decoded[0])
	}

	// Skip: key(1) + updateAuthority(32) + mint(32) = 65 bytes
	offset := 65

	field := func(max int) (string, error) {
		if offset+4 > len(decoded) {
			return "", fmt.Errorf("metadata truncated at %d", offset)
		}
		n := int(binary.LittleEndian.Uint32(decoded[offset:]))
		offset += 4
		if n > max || offset+n > len(decoded) {
			return "", fmt.Errorf("metadata string length %d at %d", n, offset)
		}
		s := strings.TrimRight(string(decoded[offset:offset+n]), "\x00")
		offset += n
		return s, nil
	}

	meta := &onChainMetadata{}
	if meta.Name, err = field(100); err != nil {
		return nil, err
	}
	if meta.Symbol, err = field(20); err != nil {
		return nil, err
	}
	if meta.URI, err = field(400); err != nil {
		return nil, err
	}
	return meta, nil
}

// offChainMetadata is the JSON document the metadata uri points at.
type offChainMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// fetchOffChain loads the JSON document at uri.
func fetchOffChain(ctx context.Context, client *http.Client, uri string) (*offChainMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata uri: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metadata uri: status %d", resp.StatusCode)
	}

	var doc offChainMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOffChainMetadata)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode metadata uri: %w", err)
	}
	return &doc, nil
}

// mergeMetadata combines on-chain fields with the off-chain document.
// On-chain name and symbol win; off is optional.
func mergeMetadata(on *onChainMetadata, off *offChainMetadata, owner string) domain.NFTMetadata {
	meta := domain.NFTMetadata{
		Name:   on.Name,
		Symbol: on.Symbol,
		URI:    on.URI,
		Owner:  owner,
	}
	if off != nil {
		meta.Description = off.Description
		meta.Image = off.Image
		if meta.Name == "" {
			meta.Name = off.Name
		}
		if meta.Symbol == "" {
			meta.Symbol = off.Symbol
		}
	}
	return meta
}
