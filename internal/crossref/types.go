// Package crossref looks up document metadata and reference lists by
// identifier: Crossref for DOIs and the arXiv API for arXiv ids.
package crossref

// WorkResponse is the envelope of the Crossref /works/{doi} endpoint.
type WorkResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

// Work is a Crossref work record, reduced to the fields used here.
type Work struct {
	DOI            string         `json:"DOI"`
	Title          []string       `json:"title"`
	Author         []WorkAuthor   `json:"author,omitempty"`
	Abstract       string         `json:"abstract,omitempty"`
	ContainerTitle []string       `json:"container-title,omitempty"`
	Issued         DateParts      `json:"issued"`
	PublishedPrint DateParts      `json:"published-print"`
	Published      DateParts      `json:"published"`
	Reference      []WorkRefEntry `json:"reference,omitempty"`
}

// WorkAuthor is a contributor. Organizations carry only Name.
type WorkAuthor struct {
	Given  string `json:"given,omitempty"`
	Family string `json:"family,omitempty"`
	Name   string `json:"name,omitempty"`
}

// DateParts is Crossref's {"date-parts": [[year, month, day]]}.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year, or 0 when absent.
func (d DateParts) Year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}

// WorkRefEntry is one deposited reference. Publishers fill in different
// subsets; Unstructured is often the only field present.
type WorkRefEntry struct {
	Key          string `json:"key"`
	DOI          string `json:"DOI,omitempty"`
	ArticleTitle string `json:"article-title,omitempty"`
	VolumeTitle  string `json:"volume-title,omitempty"`
	SeriesTitle  string `json:"series-title,omitempty"`
	JournalTitle string `json:"journal-title,omitempty"`
	Author       string `json:"author,omitempty"`
	Year         string `json:"year,omitempty"`
	Unstructured string `json:"unstructured,omitempty"`
}
