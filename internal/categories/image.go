package categories

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/linkstash/linkstash/internal/platform/httpx"
)

// decodedImage is an inline upload ready for the blob store.
type decodedImage struct {
	data        []byte
	ext         string
	contentType string
}

// decodeImageDataURI parses a "data:image/<type>;base64,<payload>" string as
// submitted by the frontend.
func decodeImageDataURI(raw string) (*decodedImage, error) {
	if !strings.HasPrefix(raw, "data:image/") {
		return nil, fmt.Errorf("%w: image must be a base64 data URI", httpx.ErrValidation)
	}

	meta, payload, found := strings.Cut(raw, ",")
	if !found {
		return nil, fmt.Errorf("%w: malformed image data", httpx.ErrValidation)
	}

	ext := strings.TrimPrefix(meta, "data:image/")
	ext = strings.TrimSuffix(ext, ";base64")
	if ext == "" || strings.ContainsAny(ext, "/\\.") {
		return nil, fmt.Errorf("%w: unsupported image type", httpx.ErrValidation)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", httpx.ErrValidation)
	}
	if len(data) > 2<<20 {
		return nil, fmt.Errorf("%w: image should be less than 2mb", httpx.ErrValidation)
	}

	return &decodedImage{
		data:        data,
		ext:         ext,
		contentType: "image/" + ext,
	}, nil
}
