package postgres

import (
	"encoding/json"
	"strings"

	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func encodeDiagnoses(d []domain.Diagnosis) ([]byte, error) {
	if d == nil {
		d = []domain.Diagnosis{}
	}
	return json.Marshal(d)
}

func decodeDiagnoses(raw []byte) ([]domain.Diagnosis, error) {
	out := []domain.Diagnosis{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Diagnosis{}
	}
	return out, nil
}
