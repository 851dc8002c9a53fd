package diagnosis

import "sort"

// TopIssues is how many diseases CommonIssues keeps
const TopIssues = 3

// Summarize aggregates records (newest first) into an AnalyticsSummary.
// A record with several diagnoses increments several counters. Ties in
// CommonIssues keep the order in which a disease was first seen.
func Summarize(records []Record) AnalyticsSummary {
	s := AnalyticsSummary{
		TotalScans:   len(records),
		CommonIssues: []IssueCount{},
	}

	index := map[string]int{}
	var counts []IssueCount
	for _, rec := range records {
		if rec.Healthy() {
			s.HealthyScans++
			continue
		}
		for _, d := range rec.Diagnoses {
			i, ok := index[d.Disease]
			if !ok {
				i = len(counts)
				index[d.Disease] = i
				counts = append(counts, IssueCount{Name: d.Disease})
			}
			counts[i].Count++
		}
	}
	s.DiseasedScans = s.TotalScans - s.HealthyScans

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > TopIssues {
		counts = counts[:TopIssues]
	}
	s.CommonIssues = append(s.CommonIssues, counts...)
	return s
}
