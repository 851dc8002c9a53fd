package mysql

import (
	"encoding/json"
	"strings"

	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// dashToEmpty reverses stringOrDash on read
func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

func encodeDiagnoses(d []domain.Diagnosis) (string, error) {
	if d == nil {
		d = []domain.Diagnosis{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
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
