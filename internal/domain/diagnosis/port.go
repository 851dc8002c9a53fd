package diagnosis

import "context"

// Repository port for the diagnosis history.
// Append inserts at the head; List returns copies newest first.
type Repository interface {
	Append(ctx context.Context, r Record) error
	List(ctx context.Context) ([]Record, error)
}

// ImageStore port for keeping analysed photos outside the history log
type ImageStore interface {
	// Upload stores the image and returns a URL that replaces the data URI on the record
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}
