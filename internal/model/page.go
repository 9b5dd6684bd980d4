package model

// Page is a top-level console section. The last selected page is persisted
// so the console reopens where the operator left it.
type Page string

const (
	PageDashboard Page = "Dashboard"
	PageReports   Page = "Reports"
	PageUsers     Page = "Users"
	PageSchedule  Page = "Schedule"
)

// Pages lists the navigable pages in sidebar order.
var Pages = []Page{PageDashboard, PageReports, PageUsers, PageSchedule}

// ParsePage returns the page named s, falling back to the dashboard.
func ParsePage(s string) Page {
	for _, p := range Pages {
		if string(p) == s {
			return p
		}
	}
	return PageDashboard
}

// Next returns the page after p, wrapping around.
func (p Page) Next() Page {
	return p.offset(1)
}

// Prev returns the page before p, wrapping around.
func (p Page) Prev() Page {
	return p.offset(len(Pages) - 1)
}

func (p Page) offset(n int) Page {
	for i, page := range Pages {
		if page == p {
			return Pages[(i+n)%len(Pages)]
		}
	}
	return PageDashboard
}
