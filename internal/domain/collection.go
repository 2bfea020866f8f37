package domain

// ImageRef is an opaque image asset reference from the content store.
type ImageRef struct {
	Asset AssetRef `json:"asset"`
}

// AssetRef points at an uploaded asset document.
type AssetRef struct {
	Ref string `json:"_ref"`
}

// Slug is a content store slug object.
type Slug struct {
	Current string `json:"current"`
}

// Creator is the collection creator projected from the content store.
type Creator struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Slug    Slug   `json:"slug"`
}

// Collection is the marketing record for a drop.
// Immutable once fetched; one is loaded per page request.
type Collection struct {
	ID                string   `json:"_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Address           string   `json:"address"` // drop account address (base58)
	NFTCollectionName string   `json:"nftCollectionName"`
	MainImage         ImageRef `json:"mainImage"`
	PreviewImage      ImageRef `json:"previewImage"`
	Slug              Slug     `json:"slug"`
	Creator           *Creator `json:"creator"`
}
