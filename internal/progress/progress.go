// Package progress turns per-subject chat statistics into the rows
// shown by the mistake book's accuracy table.
package progress

import (
	"math"
	"sort"

	"github.com/csheth/studyscout/internal/webui"
)

// SubjectRow is one subject's aggregate, ready for display.
type SubjectRow struct {
	Subject         string
	Total           int
	Mistakes        int
	Accuracy        int
	KnowledgePoints []string
}

// Overview aggregates every subject plus the overall accuracy.
type Overview struct {
	Subjects      []SubjectRow
	TotalChats    int
	TotalMistakes int
	Accuracy      int
}

// Build computes the overview from the backend's per-subject map.
// Rows are ordered by total descending, ties broken by subject name,
// and knowledge points are sorted for stable rendering. Subject keys
// are opaque; the backend's catch-all bucket for unclassified chats
// is just another subject.
func Build(stats map[string]webui.SubjectStats) Overview {
	overview := Overview{Subjects: make([]SubjectRow, 0, len(stats))}
	for subject, s := range stats {
		points := make([]string, len(s.KnowledgePoints))
		copy(points, s.KnowledgePoints)
		sort.Strings(points)

		overview.Subjects = append(overview.Subjects, SubjectRow{
			Subject:         subject,
			Total:           s.Total,
			Mistakes:        s.Mistakes,
			Accuracy:        accuracy(s.Total, s.Mistakes),
			KnowledgePoints: points,
		})
		overview.TotalChats += s.Total
		overview.TotalMistakes += s.Mistakes
	}

	sort.Slice(overview.Subjects, func(i, j int) bool {
		if overview.Subjects[i].Total != overview.Subjects[j].Total {
			return overview.Subjects[i].Total > overview.Subjects[j].Total
		}
		return overview.Subjects[i].Subject < overview.Subjects[j].Subject
	})

	overview.Accuracy = accuracy(overview.TotalChats, overview.TotalMistakes)
	return overview
}

// accuracy is the percentage of chats not flagged as mistakes,
// rounded to a whole percent. An empty total reads as 100%, matching
// the long-standing display behavior users expect.
func accuracy(total, mistakes int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(total-mistakes) / float64(total) * 100))
}
