package models

// Upload is one user-supplied document, held in memory for a single indexing run.
type Upload struct {
	Name string
	Data []byte
}

// LoadResult is the concatenated text of a batch of uploads.
type LoadResult struct {
	Text    string
	Loaded  []string
	Skipped []string
}

// ChunkEmbedding is a chunk paired with its vector, ready for the store.
type ChunkEmbedding struct {
	ID        string
	Content   string
	Embedding []float32
	Source    string
	ChunkID   int
}

type SearchResult struct {
	ID         string
	Content    string
	Source     string
	Similarity float32
}

type PromptResponse struct {
	Query   string
	Source  string
	Content string
	Chunks  []SearchResult
}
