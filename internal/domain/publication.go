package domain

import "time"

// Publication is a core entity describing one record extracted from a
// portal listing page. Year 0 means the year could not be determined.
type Publication struct {
	Title           string `json:"title"`
	Year            int    `json:"year,omitempty"`
	Authors         string `json:"authors"`
	PublicationLink string `json:"publication_link,omitempty"`
	AuthorLinks     string `json:"author_links,omitempty"`
	Abstract        string `json:"abstract,omitempty"`
	PageNumber      int    `json:"page_number"`
}

// CrawlSummary aggregates counters for one complete run.
type CrawlSummary struct {
	PagesVisited     int
	RecordsExtracted int
	RecordsDelivered int
	DeliveryFailures int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Duration reports how long the run took.
func (s CrawlSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Statistics describes the extracted corpus of a run.
type Statistics struct {
	TotalPublications int
	UniqueAuthors     int
	YearRange         string
	PagesCrawled      int
}
