package reports

import "github.com/nhle/ecotrack-console/internal/model"

// Stats summarizes the cached collection for the dashboard.
type Stats struct {
	Total    int
	ByStatus map[model.Status]int
}

// PendingReviews is the number of reports still waiting for triage.
func (s Stats) PendingReviews() int {
	return s.ByStatus[model.StatusPending]
}

func computeStats(reports []model.Report) Stats {
	st := Stats{
		Total:    len(reports),
		ByStatus: make(map[model.Status]int, len(model.Statuses)),
	}
	for _, s := range model.Statuses {
		st.ByStatus[s] = 0
	}
	for _, r := range reports {
		st.ByStatus[r.Status]++
	}
	return st
}
