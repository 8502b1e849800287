// Package crossref provides the journal-metadata source adapter.
//
// Crossref is the DOI registration agency's metadata catalog. The adapter
// issues one date-windowed works query per allow-listed venue, filters the
// records by keyword locally, and contributes the most talked-about journal
// articles to the digest.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse represents the top-level response from the works endpoint.
type WorksResponse struct {
	Status  string       `json:"status"`
	Message WorksMessage `json:"message"`
}

// WorksMessage contains the result envelope of a works query.
type WorksMessage struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// Work represents one registered work in a Crossref works response.
type Work struct {
	DOI            string       `json:"DOI"`
	Title          []string     `json:"title"`
	ContainerTitle []string     `json:"container-title"`
	Author         []WorkAuthor `json:"author"`

	// Abstract may carry inline JATS/HTML markup.
	Abstract string `json:"abstract"`

	URL     string     `json:"URL"`
	Created WorkDate   `json:"created"`
	Issued  PartedDate `json:"issued"`
}

// WorkAuthor represents one contributor on a work.
type WorkAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// WorkDate holds a full timestamp field such as "created".
type WorkDate struct {
	// DateTime is an RFC 3339 timestamp, e.g. "2026-08-12T06:15:02Z".
	DateTime string `json:"date-time"`
}

// PartedDate holds Crossref's year/month/day triple, which may be truncated
// to just a year or year/month.
type PartedDate struct {
	DateParts [][]int `json:"date-parts"`
}
