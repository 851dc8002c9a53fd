package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(diseases ...string) Record {
	ds := make([]Diagnosis, 0, len(diseases))
	for _, d := range diseases {
		ds = append(ds, Diagnosis{Disease: d, Confidence: 0.8})
	}
	return Record{Diagnoses: ds}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, 0, s.TotalScans)
	assert.Equal(t, 0, s.HealthyScans)
	assert.Equal(t, 0, s.DiseasedScans)
	require.NotNil(t, s.CommonIssues)
	assert.Empty(t, s.CommonIssues)
}

func TestSummarize_CountsAndTopIssues(t *testing.T) {
	// newest first
	records := []Record{
		rec("Blight"),
		rec(),
		rec("Rust", "Blight"),
		rec("Mildew"),
	}

	s := Summarize(records)

	assert.Equal(t, 4, s.TotalScans)
	assert.Equal(t, 1, s.HealthyScans)
	assert.Equal(t, 3, s.DiseasedScans)
	assert.Equal(t, []IssueCount{
		{Name: "Blight", Count: 2},
		{Name: "Rust", Count: 1},
		{Name: "Mildew", Count: 1},
	}, s.CommonIssues)
}

func TestSummarize_TiesKeepFirstSeenOrder(t *testing.T) {
	records := []Record{
		rec("Anthracnose"),
		rec("Canker"),
		rec("Scab"),
		rec("Wilt"),
	}

	s := Summarize(records)

	require.Len(t, s.CommonIssues, TopIssues)
	assert.Equal(t, "Anthracnose", s.CommonIssues[0].Name)
	assert.Equal(t, "Canker", s.CommonIssues[1].Name)
	assert.Equal(t, "Scab", s.CommonIssues[2].Name)
}

func TestSummarize_HigherCountOvertakesEarlierTie(t *testing.T) {
	records := []Record{
		rec("Canker"),
		rec("Scab"),
		rec("Wilt"),
		rec("Wilt"),
		rec("Leaf Spot"),
	}

	s := Summarize(records)

	assert.Equal(t, []IssueCount{
		{Name: "Wilt", Count: 2},
		{Name: "Canker", Count: 1},
		{Name: "Scab", Count: 1},
	}, s.CommonIssues)
}

func TestSummarize_AllHealthy(t *testing.T) {
	s := Summarize([]Record{rec(), rec()})

	assert.Equal(t, 2, s.TotalScans)
	assert.Equal(t, 2, s.HealthyScans)
	assert.Equal(t, 0, s.DiseasedScans)
	assert.Empty(t, s.CommonIssues)
}

func TestSummarize_Idempotent(t *testing.T) {
	records := []Record{rec("Blight"), rec("Rust", "Blight"), rec()}

	assert.Equal(t, Summarize(records), Summarize(records))
}
