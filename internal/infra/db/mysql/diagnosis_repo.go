package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

// Schema DDL for the history table. seq keeps insertion order for rows
// saved within the same microsecond.
const Schema = `
CREATE TABLE IF NOT EXISTS plant_diagnoses (
  seq            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  id             VARCHAR(64)  NOT NULL,
  user_id        VARCHAR(128) NOT NULL DEFAULT '-',
  photo_ref      MEDIUMTEXT   NOT NULL,
  diagnoses_json JSON         NOT NULL,
  healthy        TINYINT(1)   NOT NULL,
  created_at     DATETIME(6)  NOT NULL,
  UNIQUE KEY uq_plant_diagnoses_id (id),
  KEY idx_plant_diagnoses_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

type DiagnosisRepository struct {
	db *sql.DB
}

func NewDiagnosisRepository(db *sql.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

// Migrate creates the history table when missing
func (r *DiagnosisRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create plant_diagnoses: %w", err)
	}
	return nil
}

// Append inserts a record. Records are immutable so there is no upsert.
func (r *DiagnosisRepository) Append(ctx context.Context, rec domain.Record) error {
	const q = `
INSERT INTO plant_diagnoses
  (id, user_id, photo_ref, diagnoses_json, healthy, created_at)
VALUES (?,?,?,?,?,?)
`
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

// List returns every record, newest first
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
	return out, rows.Err()
}

// Ping used by the health endpoint
func (r *DiagnosisRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
