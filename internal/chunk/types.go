package chunk

// DefaultMaxChars is the chunk length bound used when none is configured.
const DefaultMaxChars = 500

// Fragment is a chunk of one page before document metadata is attached.
type Fragment struct {
	Text string
	Page int
}

// Chunk is a retrievable passage with its source attribution.
// A chunk's position in the index is its identity; chunks carry no ID of
// their own and none survives a rebuild.
type Chunk struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Page     int    `json:"page"`
}
