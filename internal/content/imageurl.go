package content

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"drop-storefront/internal/domain"
)

// DefaultImageHost is the image CDN host.
const DefaultImageHost = "https://cdn.sanity.io"

// ErrInvalidImageRef is returned for references that are not image asset ids.
var ErrInvalidImageRef = errors.New("invalid image reference")

// ImageBuilder derives CDN URLs from image asset references.
type ImageBuilder struct {
	host      string
	projectID string
	dataset   string
}

// NewImageBuilder returns a builder for the dataset in cfg.
func NewImageBuilder(cfg Config) *ImageBuilder {
	if cfg.ProjectID == "" {
		cfg.ProjectID = DefaultProjectID
	}
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	return &ImageBuilder{
		host:      DefaultImageHost,
		projectID: cfg.ProjectID,
		dataset:   cfg.Dataset,
	}
}

// Image starts a URL for source: a ref string, domain.AssetRef or domain.ImageRef.
func (b *ImageBuilder) Image(source interface{}) *ImageURL {
	u := &ImageURL{builder: b}
	switch s := source.(type) {
	case string:
		u.ref = s
	case domain.AssetRef:
		u.ref = s.Ref
	case *domain.AssetRef:
		if s != nil {
			u.ref = s.Ref
		}
	case domain.ImageRef:
		u.ref = s.Asset.Ref
	case *domain.ImageRef:
		if s != nil {
			u.ref = s.Asset.Ref
		}
	default:
		u.err = fmt.Errorf("%w: unsupported source %T", ErrInvalidImageRef, source)
	}
	return u
}

// URL is a convenience for templates: the plain URL of source, or "" when invalid.
func (b *ImageBuilder) URL(source interface{}) string {
	s, err := b.Image(source).URL()
	if err != nil {
		return ""
	}
	return s
}

// ImageURL accumulates transformation parameters for one image.
type ImageURL struct {
	builder *ImageBuilder
	ref     string
	err     error

	width  int
	height int
	fit    string
	format string
	auto   string
}

// Width sets the target width in pixels.
func (u *ImageURL) Width(w int) *ImageURL {
	u.width = w
	return u
}

// Height sets the target height in pixels.
func (u *ImageURL) Height(h int) *ImageURL {
	u.height = h
	return u
}

// Fit sets the resize mode (clip, crop, fill, fillmax, max, scale, min).
func (u *ImageURL) Fit(f string) *ImageURL {
	u.fit = f
	return u
}

// Format forces an output format (jpg, png, webp).
func (u *ImageURL) Format(f string) *ImageURL {
	u.format = f
	return u
}

// Auto lets the CDN pick the format, e.g. "format".
func (u *ImageURL) Auto(a string) *ImageURL {
	u.auto = a
	return u
}

// URL renders the CDN URL.
func (u *ImageURL) URL() (string, error) {
	if u.err != nil {
		return "", u.err
	}
	asset, err := parseAssetRef(u.ref)
	if err != nil {
		return "", err
	}

	b := u.builder
	path := fmt.Sprintf("%s/images/%s/%s/%s-%dx%d.%s",
		b.host, b.projectID, b.dataset, asset.id, asset.width, asset.height, asset.ext)

	q := url.Values{}
	if u.width > 0 {
		q.Set("w", strconv.Itoa(u.width))
	}
	if u.height > 0 {
		q.Set("h", strconv.Itoa(u.height))
	}
	if u.fit != "" {
		q.Set("fit", u.fit)
	}
	if u.format != "" {
		q.Set("fm", u.format)
	}
	if u.auto != "" {
		q.Set("auto", u.auto)
	}
	if len(q) == 0 {
		return path, nil
	}
	return path + "?" + q.Encode(), nil
}

type assetRef struct {
	id     string
	width  int
	height int
	ext    string
}

// parseAssetRef splits image-<id>-<w>x<h>-<ext>.
func parseAssetRef(ref string) (assetRef, error) {
	parts := strings.Split(ref, "-")
	if len(parts) < 4 || parts[0] != "image" {
		return assetRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}

	ext := parts[len(parts)-1]
	dims := parts[len(parts)-2]
	id := strings.Join(parts[1:len(parts)-2], "-")

	w, h, ok := strings.Cut(dims, "x")
	if !ok {
		return assetRef{}, fmt.Errorf("%w: dimensions %q", ErrInvalidImageRef, dims)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return assetRef{}, fmt.Errorf("%w: width %q", ErrInvalidImageRef, w)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return assetRef{}, fmt.Errorf("%w: height %q", ErrInvalidImageRef, h)
	}
	if id == "" || ext == "" {
		return assetRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}

	return assetRef{id: id, width: width, height: height, ext: ext}, nil
}
