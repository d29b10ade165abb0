package index

// Postings is the ordered list of document ids containing a term. Each id
// appears once, in the order it was first observed during ingestion.
type Postings []int

// Frequencies maps a term to its number of occurrences in one document.
type Frequencies map[string]int

// TermEntry pairs a term with its postings.
type TermEntry struct {
	Term     string   `json:"term"`
	Postings Postings `json:"postings"`
}

// Document is an ingested document's identity.
type Document struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
