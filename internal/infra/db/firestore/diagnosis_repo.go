package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

// DefaultCollection holds one document per record, keyed by record id
const DefaultCollection = "plant_diagnoses"

type DiagnosisRepository struct {
	client     *firestore.Client
	collection string
}

// New opens a Firestore client for projectID/databaseID
func New(ctx context.Context, projectID, databaseID, collection string) (*DiagnosisRepository, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return NewDiagnosisRepository(client, collection), nil
}

func NewDiagnosisRepository(client *firestore.Client, collection string) *DiagnosisRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &DiagnosisRepository{client: client, collection: collection}
}

// Append creates the document; an existing id is an error since records are immutable
func (r *DiagnosisRepository) Append(ctx context.Context, rec domain.Record) error {
	rec = rec.Clone()
	if _, err := r.client.Collection(r.collection).Doc(string(rec.ID)).Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to save diagnosis %s: %w", rec.ID, err)
	}
	return nil
}

// List returns all records ordered by timestamp, newest first
func (r *DiagnosisRepository) List(ctx context.Context) ([]domain.Record, error) {
	docs, err := r.client.Collection(r.collection).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses: %w", err)
	}

	out := make([]domain.Record, 0, len(docs))
	for _, doc := range docs {
		var rec domain.Record
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode diagnosis %s: %w", doc.Ref.ID, err)
		}
		if rec.Diagnoses == nil {
			rec.Diagnoses = []domain.Diagnosis{}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ping reads at most one document
func (r *DiagnosisRepository) Ping(ctx context.Context) error {
	_, err := r.client.Collection(r.collection).Limit(1).Documents(ctx).GetAll()
	return err
}

func (r *DiagnosisRepository) Close() error {
	return r.client.Close()
}
