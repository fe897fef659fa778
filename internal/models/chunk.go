package models

import (
	"time"
)

// Chunk is a contiguous slice of a converted document's text together with
// its embedding and per-chunk metadata. Ids follow the `{doc_id}_{index}`
// scheme assigned by the vector index façade.
type Chunk struct {
	ID         string                 `json:"id"`
	DocID      string                 `json:"doc_id"`
	Text       string                 `json:"text"`
	Embedding  []float32              `json:"embedding,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	ChunkIndex int                    `json:"chunk_index"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Validate checks if the chunk is storable
func (c *Chunk) Validate() error {
	if c.DocID == "" {
		return &ValidationError{Field: "doc_id", Message: "doc id is required"}
	}
	if c.Text == "" {
		return &ValidationError{Field: "text", Message: "chunk text is required"}
	}
	if c.ChunkIndex < 0 {
		return &ValidationError{Field: "chunk_index", Message: "chunk index cannot be negative"}
	}
	return nil
}

// ChunkMetadata builds the metadata map the pipeline attaches to each chunk.
func ChunkMetadata(docID string, chunkIndex int, userToken, collectionID, filename string, textLength int, createdAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		"doc_id":        docID,
		"chunk_index":   chunkIndex,
		"user_token":    userToken,
		"collection_id": collectionID,
		"filename":      filename,
		"text_length":   textLength,
		"created_at":    createdAt.Format(time.RFC3339),
	}
}

// SearchResult is one hit from a vector query. Score is the relevance
// (1 - distance); higher is more similar.
type SearchResult struct {
	ChunkID  string                 `json:"chunk_id"`
	DocID    string                 `json:"doc_id"`
	Text     string                 `json:"text"`
	Score    float32                `json:"score"`
	Distance float32                `json:"distance"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IndexedChunk is a chunk as listed out of the index, without its embedding.
type IndexedChunk struct {
	ID       string                 `json:"id"`
	DocID    string                 `json:"doc_id"`
	Document string                 `json:"document"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DocumentMetadata is the converter's metadata view of an original file.
// When the extraction service is unreachable the basic filesystem fields
// are filled in locally.
type DocumentMetadata struct {
	Filename      string                 `json:"filename"`
	FileSize      int64                  `json:"file_size"`
	FileExtension string                 `json:"file_extension"`
	LastModified  time.Time              `json:"last_modified"`
	MD5           string                 `json:"md5,omitempty"`
	Extracted     map[string]interface{} `json:"extracted,omitempty"`
}
