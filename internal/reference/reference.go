// Package reference defines the bibliographic entries cited by a document.
package reference

// Reference is one entry of a document's bibliography. It is created once
// per document, from a lookup result or from local parsing, and not changed
// afterwards.
type Reference struct {
	// Identity within the document
	Key  string `json:"key"`            // Positional key, e.g. ref_21
	Slug string `json:"slug,omitempty"` // Author-year key, e.g. zeng_et_al_2023

	// Metadata
	Title   string   `json:"title,omitempty"`
	Authors []Author `json:"authors,omitempty"`
	Year    int      `json:"year,omitempty"`
	Venue   string   `json:"venue,omitempty"`

	// External identifiers
	DOI     string `json:"doi,omitempty"`
	ArXivID string `json:"arxiv_id,omitempty"`

	// RawText is the unparsed bibliography string, when one was available.
	RawText string `json:"raw_text,omitempty"`

	// Source records which collaborator produced the entry: crossref, anystyle, local.
	Source string `json:"source,omitempty"`
}

// Keys returns every key the reference can be linked by.
func (r Reference) Keys() []string {
	if r.Slug == "" || r.Slug == r.Key {
		return []string{r.Key}
	}
	return []string{r.Key, r.Slug}
}
