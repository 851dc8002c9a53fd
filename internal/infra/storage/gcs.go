package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStore ImageStore on a Cloud Storage bucket, for deployments next to Firestore
type GCSStore struct {
	client     *storage.Client
	bucketName string
}

// NewGCS uses application default credentials
func NewGCS(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucketName: bucket}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	w := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	// upload selesai saat Close
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key), nil
}

// Ping cek bucket masih bisa diakses
func (s *GCSStore) Ping(ctx context.Context) error {
	_, err := s.client.Bucket(s.bucketName).Attrs(ctx)
	return err
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
