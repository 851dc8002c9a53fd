package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

const Schema = `
CREATE TABLE IF NOT EXISTS plant_diagnoses (
  seq            BIGSERIAL PRIMARY KEY,
  id             TEXT        NOT NULL UNIQUE,
  user_id        TEXT        NOT NULL DEFAULT '-',
  photo_ref      TEXT        NOT NULL,
  diagnoses_json JSONB       NOT NULL,
  healthy        BOOLEAN     NOT NULL,
  created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plant_diagnoses_created ON plant_diagnoses (created_at);`

type DiagnosisRepository struct{ db *sql.DB }

func NewDiagnosisRepository(db *sql.DB) *DiagnosisRepository { return &DiagnosisRepository{db: db} }

func (r *DiagnosisRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create plant_diagnoses: %w", err)
	}
	return nil
}

// Append insert record baru
func (r *DiagnosisRepository) Append(ctx context.Context, rec domain.Record) error {
	const q = `
INSERT INTO plant_diagnoses
(id, user_id, photo_ref, diagnoses_json, healthy, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

	diag, err := encodeDiagnoses(rec.Diagnoses)
	if err != nil {
		return fmt.Errorf("encode diagnoses: %w", err)
	}
	created := rec.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	_, err = r.db.ExecContext(ctx, q,
		rec.ID, stringOrDash(rec.UserID), rec.PhotoDataURI, diag, rec.Healthy(), created.UTC(),
	)
	return err
}

// List semua record, terbaru dulu
func (r *DiagnosisRepository) List(ctx context.Context) ([]domain.Record, error) {
	const q = `
SELECT id, user_id, photo_ref, diagnoses_json, created_at
FROM plant_diagnoses
ORDER BY seq DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying diagnoses: %w", err)
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		var rec domain.Record
		var user string
		var diag []byte
		var created time.Time
		if err := rows.Scan(&rec.ID, &user, &rec.PhotoDataURI, &diag, &created); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if rec.Diagnoses, err = decodeDiagnoses(diag); err != nil {
			return nil, fmt.Errorf("decoding diagnoses of %s: %w", rec.ID, err)
		}
		rec.UserID = dashToEmpty(user)
		rec.Timestamp = created.UTC()
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

func (r *DiagnosisRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
