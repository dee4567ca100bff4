package index

// Posting records how strongly one post matches one term. Frequency is the
// weighted occurrence count (title and summary occurrences count
// TitleWeight/SummaryWeight times, body occurrences once).
type Posting struct {
	PostID    string `json:"p"`
	Frequency int    `json:"f"`
}

// PostingList is ordered by PostID.
type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// ListEntry is one key of a grouped listing (category or tag) with its post
// ids in chronological order.
type ListEntry struct {
	Key     string   `json:"k"`
	PostIDs []string `json:"ids"`
}

// Facet is a category or tag with the number of posts carrying it.
type Facet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
