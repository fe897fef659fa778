package repositories

import (
	"context"
	"time"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// VectorRepository is a per-user handle over the vector index, embedded or
// remote. Collections are named partitions inside the user's private index;
// the metadata store is authoritative for access control, so callers must
// verify collection ownership before invoking these operations.
type VectorRepository interface {
	// AddChunks writes documents, embeddings, and metadata together,
	// assigning ids {doc_id}_0 … {doc_id}_{n-1}. Duplicate adds for the
	// same doc are not idempotent and are avoided by the pipeline.
	AddChunks(ctx context.Context, collectionID, docID string, chunks []*models.Chunk) ([]string, error)

	// SearchByEmbedding returns up to topK nearest chunks, best first.
	SearchByEmbedding(ctx context.Context, collectionID string, queryEmbedding []float32, topK int) ([]models.SearchResult, error)

	// SearchByText embeds the query and delegates to SearchByEmbedding.
	SearchByText(ctx context.Context, collectionID, query string, topK int) ([]models.SearchResult, error)

	// ListAll lists the collection's chunks. limit <= 0 returns everything.
	ListAll(ctx context.Context, collectionID string, limit int) ([]models.IndexedChunk, error)

	// ListDocuments groups the collection's chunks into per-document summaries.
	ListDocuments(ctx context.Context, collectionID string) ([]models.IndexedDocument, error)

	// Count returns the number of chunk entries in the collection.
	Count(ctx context.Context, collectionID string) (int, error)

	// DeleteDocument removes every chunk of docID and reports how many.
	DeleteDocument(ctx context.Context, collectionID, docID string) (int, error)

	// Exists reports whether docID has any chunks in the collection.
	Exists(ctx context.Context, collectionID, docID string) (bool, error)
}

// VectorRepositoryProvider hands out per-user vector repositories.
type VectorRepositoryProvider interface {
	ForUser(userToken string) (VectorRepository, error)

	// CloseUser releases whatever the provider holds for the user: the
	// embedded backend closes and evicts the index handle so the directory
	// tree can be removed, the remote backend drops the user's collections.
	// Callers must invoke it before erasing the user.
	CloseUser(userToken string) error

	Close() error
}

// groupIndexedDocuments folds chunk rows into per-document summaries,
// preserving first-seen document order.
func groupIndexedDocuments(collectionID string, chunks []models.IndexedChunk) []models.IndexedDocument {
	summaries := make(map[string]*models.IndexedDocument)
	order := make([]string, 0)
	for _, chunk := range chunks {
		doc, ok := summaries[chunk.DocID]
		if !ok {
			doc = &models.IndexedDocument{
				DocumentID: chunk.DocID,
				Collection: collectionID,
			}
			summaries[chunk.DocID] = doc
			order = append(order, chunk.DocID)
		}
		doc.ChunkCount++
		if doc.Filename == "" {
			if name, ok := chunk.Metadata["filename"].(string); ok {
				doc.Filename = name
			}
		}
		if doc.CreatedAt.IsZero() {
			if raw, ok := chunk.Metadata["created_at"].(string); ok {
				if created, err := time.Parse(time.RFC3339, raw); err == nil {
					doc.CreatedAt = created
				}
			}
		}
	}

	docs := make([]models.IndexedDocument, 0, len(order))
	for _, id := range order {
		docs = append(docs, *summaries[id])
	}
	return docs
}
