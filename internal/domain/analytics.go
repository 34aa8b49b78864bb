package domain

// PageViewCount is one row of the "top pages" rollup.
type PageViewCount struct {
	PagePath string `json:"page_path"`
	Views    int    `json:"views"`
}

// AnalyticsSummary is the admin-facing rollup served by the summary
// endpoint. Counts cover authenticated users only; anonymous traffic is
// excluded from user-based KPIs.
type AnalyticsSummary struct {
	Date         string          `json:"date"` // YYYY-MM-DD (UTC)
	DAU          int             `json:"dau"`
	WAU          int             `json:"wau"`
	SignupsToday int             `json:"signups_today"`
	TopPages     []PageViewCount `json:"top_pages"`
}
