package diagnosis

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RecordID identifies a saved diagnosis
type RecordID string

// Level confidence band used by the dashboard badges
type Level string

const (
	LevelHigh     Level = "high"
	LevelModerate Level = "moderate"
	LevelLow      Level = "low"
)

// Diagnosis one candidate disease with its confidence score
type Diagnosis struct {
	Disease    string  `json:"disease" firestore:"disease"`
	Confidence float64 `json:"confidence" firestore:"confidence"`
}

// Level maps the confidence to a band: >0.75 high, >0.5 moderate, otherwise low.
func (d Diagnosis) Level() Level {
	switch {
	case d.Confidence > 0.75:
		return LevelHigh
	case d.Confidence > 0.5:
		return LevelModerate
	default:
		return LevelLow
	}
}

// Result output of the detection flow. Empty Diagnoses means healthy.
type Result struct {
	Diagnoses []Diagnosis `json:"diagnoses"`
}

// Healthy reports whether no disease was detected
func (r Result) Healthy() bool { return len(r.Diagnoses) == 0 }

// Validate checks every entry has a disease name and a confidence in [0,1].
func (r Result) Validate() error {
	for i, d := range r.Diagnoses {
		if strings.TrimSpace(d.Disease) == "" {
			return fmt.Errorf("diagnosis %d: empty disease name", i)
		}
		if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
			return fmt.Errorf("diagnosis %d (%s): confidence %v out of range [0,1]", i, d.Disease, d.Confidence)
		}
	}
	return nil
}

// Clone returns a deep copy
func (r Result) Clone() Result {
	return Result{Diagnoses: cloneDiagnoses(r.Diagnoses)}
}

// Record a saved, timestamped diagnosis result.
// Once created a Record is never modified; stores hand out clones.
type Record struct {
	ID           RecordID    `json:"id" firestore:"id"`
	Diagnoses    []Diagnosis `json:"diagnoses" firestore:"diagnoses"`
	PhotoDataURI string      `json:"photoDataUri,omitempty" firestore:"photoDataUri"`
	Timestamp    time.Time   `json:"timestamp" firestore:"timestamp"`
	UserID       string      `json:"userId,omitempty" firestore:"userId,omitempty"`
}

// Healthy reports whether the record has no diagnoses
func (r Record) Healthy() bool { return len(r.Diagnoses) == 0 }

// Result strips the record metadata
func (r Record) Result() Result {
	return Result{Diagnoses: cloneDiagnoses(r.Diagnoses)}
}

// Clone returns a deep copy so callers cannot reach stored state
func (r Record) Clone() Record {
	out := r
	out.Diagnoses = cloneDiagnoses(r.Diagnoses)
	return out
}

func cloneDiagnoses(in []Diagnosis) []Diagnosis {
	if in == nil {
		return []Diagnosis{}
	}
	out := make([]Diagnosis, len(in))
	copy(out, in)
	return out
}

// IssueCount occurrences of one disease across the history
type IssueCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AnalyticsSummary derived view over the history, computed on every read
type AnalyticsSummary struct {
	TotalScans    int          `json:"totalScans"`
	HealthyScans  int          `json:"healthyScans"`
	DiseasedScans int          `json:"diseasedScans"`
	CommonIssues  []IssueCount `json:"commonIssues"`
}
