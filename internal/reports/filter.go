package reports

import (
	"strings"

	"github.com/nhle/ecotrack-console/internal/model"
)

// StatusAll disables the status filter.
const StatusAll = "All"

// Criteria selects a subset of the cached reports.
type Criteria struct {
	// StatusFilter is "All" (or empty) or one of the report statuses.
	StatusFilter string

	// SearchTerm is matched case-insensitively as a substring of the id,
	// issue type, submitter name and location. Empty matches everything.
	SearchTerm string
}

// AllReports matches every report.
var AllReports = Criteria{StatusFilter: StatusAll}

// IsZero reports whether c filters nothing out.
func (c Criteria) IsZero() bool {
	return (c.StatusFilter == "" || c.StatusFilter == StatusAll) && c.SearchTerm == ""
}

// Matches reports whether r satisfies c.
func (c Criteria) Matches(r model.Report) bool {
	if c.StatusFilter != "" && c.StatusFilter != StatusAll &&
		string(r.Status) != c.StatusFilter {
		return false
	}

	if c.SearchTerm == "" {
		return true
	}

	term := strings.ToLower(c.SearchTerm)
	for _, field := range []string{r.ID, r.IssueType, r.SubmitterName, r.Location} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Filter returns the reports matching c in their original order.
func Filter(reports []model.Report, c Criteria) []model.Report {
	out := make([]model.Report, 0, len(reports))
	for _, r := range reports {
		if c.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// NextStatusFilter cycles All -> Pending -> In Progress -> Resolved -> All.
func NextStatusFilter(current string) string {
	if current == "" || current == StatusAll {
		return string(model.Statuses[0])
	}
	for i, s := range model.Statuses {
		if string(s) == current && i+1 < len(model.Statuses) {
			return string(model.Statuses[i+1])
		}
	}
	return StatusAll
}
