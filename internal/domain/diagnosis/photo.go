package diagnosis

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MaxPhotoBytes upper bound for an uploaded photo after decoding (5 MiB)
const MaxPhotoBytes = 5 * 1024 * 1024

var (
	ErrNotDataURI    = errors.New("photo is not a base64 data URI")
	ErrNotImage      = errors.New("photo data URI is not an image")
	ErrPhotoTooLarge = errors.New("photo exceeds 5MB")
)

// Photo decoded form of a data:<mime>;base64,<payload> URI
type Photo struct {
	ContentType string
	Data        []byte
}

// IsDataURI reports whether ref looks like a data URI rather than a URL
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// ParsePhoto decodes a base64 image data URI
func ParsePhoto(uri string) (Photo, error) {
	if !IsDataURI(uri) {
		return Photo{}, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return Photo{}, ErrNotDataURI
	}
	params := strings.Split(header, ";")
	mime := params[0]
	if len(params) < 2 || params[len(params)-1] != "base64" {
		return Photo{}, ErrNotDataURI
	}
	if !strings.HasPrefix(mime, "image/") {
		return Photo{}, ErrNotImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxPhotoBytes+3 {
		return Photo{}, ErrPhotoTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Photo{}, fmt.Errorf("decode photo: %w", err)
	}
	if len(data) > MaxPhotoBytes {
		return Photo{}, ErrPhotoTooLarge
	}
	return Photo{ContentType: mime, Data: data}, nil
}

// Extension file extension for the photo content type
func (p Photo) Extension() string {
	switch p.ContentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".img"
	}
}
