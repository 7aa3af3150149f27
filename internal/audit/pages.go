package audit

// Page is a protected dashboard view whose opening is recorded.
type Page struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Admin bool   `json:"admin,omitempty"`
}

// Pages lists the dashboard views behind the gate, in menu order.
var Pages = []Page{
	{Slug: "overview", Title: "Overview"},
	{Slug: "risk-map", Title: "Risk map"},
	{Slug: "factor-ranking", Title: "Factor ranking"},
	{Slug: "network-comparison", Title: "Network comparison"},
	{Slug: "scenario-simulator", Title: "Scenario simulator"},
	{Slug: "audit", Title: "Audit panel", Admin: true},
}

// DetailNavigate is the detail written for page views.
const DetailNavigate = "navigating"

// LookupPage returns the page with the given slug.
func LookupPage(slug string) (Page, bool) {
	for _, p := range Pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}
