package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Rain-kl/cyber-kb/internal/db"
	"github.com/Rain-kl/cyber-kb/internal/embedding"
	"github.com/Rain-kl/cyber-kb/internal/models"
)

// ChromaVectorRepository implements VectorRepository against a remote
// ChromaDB server. Each (user, collection) pair maps to one remote
// collection named {token}__{collection}, and a missing remote collection
// reads as an empty index so fresh users need no setup call.
type ChromaVectorRepository struct {
	userToken string
	client    *db.ChromaDBClient
	embedder  embedding.Client
	logger    *log.Logger
}

// NewChromaVectorRepository binds the shared client to a single user.
func NewChromaVectorRepository(userToken string, client *db.ChromaDBClient, embedder embedding.Client, logger *log.Logger) VectorRepository {
	if logger == nil {
		logger = log.New(os.Stdout, "[VECTOR] ", log.LstdFlags)
	}
	return &ChromaVectorRepository{
		userToken: userToken,
		client:    client,
		embedder:  embedder,
		logger:    logger,
	}
}

func (r *ChromaVectorRepository) remoteName(collectionID string) string {
	return r.userToken + "__" + collectionID
}

// chromaMetadata flattens a chunk's metadata into the scalar-only form the
// server accepts; slices and maps become JSON strings. The document id and
// chunk index ride along so deletes and listings can filter on them.
func chromaMetadata(chunk *models.Chunk) map[string]interface{} {
	meta := make(map[string]interface{}, len(chunk.Metadata)+2)
	for k, v := range chunk.Metadata {
		switch val := v.(type) {
		case string, bool, int, int32, int64, float32, float64:
			meta[k] = val
		default:
			if data, err := json.Marshal(val); err == nil {
				meta[k] = string(data)
			} else {
				meta[k] = fmt.Sprint(val)
			}
		}
	}
	meta["document_id"] = chunk.DocID
	meta["chunk_index"] = chunk.ChunkIndex
	return meta
}

// AddChunks stores the chunks under ids {doc_id}_0 … {doc_id}_{n-1},
// creating the remote collection on first write.
func (r *ChromaVectorRepository) AddChunks(ctx context.Context, collectionID, docID string, chunks []*models.Chunk) ([]string, error) {
	if collectionID == "" || docID == "" {
		return nil, fmt.Errorf("%w: collection id and doc id are required", models.ErrInvalidArgument)
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	name := r.remoteName(collectionID)
	if _, err := r.client.EnsureCollection(ctx, name, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}

	ids := make([]string, len(chunks))
	documents := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	metadatas := make([]map[string]interface{}, len(chunks))
	for i, chunk := range chunks {
		chunk.ID = fmt.Sprintf("%s_%d", docID, i)
		chunk.DocID = docID
		chunk.ChunkIndex = i

		ids[i] = chunk.ID
		documents[i] = chunk.Text
		embeddings[i] = chunk.Embedding
		metadatas[i] = chromaMetadata(chunk)
	}

	if err := r.client.AddDocuments(ctx, name, ids, documents, embeddings, metadatas); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}

	r.logger.Printf("Indexed %d chunks for doc %s (user %s, collection %s)",
		len(chunks), docID, r.userToken, collectionID)
	return ids, nil
}

// SearchByEmbedding returns up to topK nearest chunks, best first.
func (r *ChromaVectorRepository) SearchByEmbedding(ctx context.Context, collectionID string, queryEmbedding []float32, topK int) ([]models.SearchResult, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", models.ErrInvalidArgument)
	}

	resp, err := r.client.Query(ctx, r.remoteName(collectionID), [][]float32{queryEmbedding}, topK, nil)
	if err != nil {
		if errors.Is(err, db.ErrCollectionMissing) {
			return []models.SearchResult{}, nil
		}
		return nil, err
	}

	results := make([]models.SearchResult, 0)
	if len(resp.IDs) == 0 {
		return results, nil
	}
	for i, id := range resp.IDs[0] {
		result := models.SearchResult{ChunkID: id}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			result.Text = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			result.Metadata = resp.Metadatas[0][i]
			if docID, ok := result.Metadata["document_id"].(string); ok {
				result.DocID = docID
			}
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			result.Distance = resp.Distances[0][i]
			result.Score = 1 - result.Distance
		}
		results = append(results, result)
	}
	return results, nil
}

// SearchByText embeds the query and delegates to SearchByEmbedding.
func (r *ChromaVectorRepository) SearchByText(ctx context.Context, collectionID, query string, topK int) ([]models.SearchResult, error) {
	queryEmbedding, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	if embedding.IsZeroVector(queryEmbedding) {
		r.logger.Printf("Query embedding came back all-zero for collection %s; relevance scores will be flat", collectionID)
	}
	return r.SearchByEmbedding(ctx, collectionID, queryEmbedding, topK)
}

// ListAll lists the collection's chunks. limit <= 0 returns everything.
func (r *ChromaVectorRepository) ListAll(ctx context.Context, collectionID string, limit int) ([]models.IndexedChunk, error) {
	resp, err := r.client.GetDocuments(ctx, r.remoteName(collectionID), nil, limit, 0)
	if err != nil {
		if errors.Is(err, db.ErrCollectionMissing) {
			return []models.IndexedChunk{}, nil
		}
		return nil, err
	}

	chunks := make([]models.IndexedChunk, 0, len(resp.IDs))
	for i, id := range resp.IDs {
		chunk := models.IndexedChunk{ID: id}
		if i < len(resp.Documents) {
			chunk.Document = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			chunk.Metadata = resp.Metadatas[i]
			if docID, ok := chunk.Metadata["document_id"].(string); ok {
				chunk.DocID = docID
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ListDocuments groups the collection's chunks into per-document summaries.
func (r *ChromaVectorRepository) ListDocuments(ctx context.Context, collectionID string) ([]models.IndexedDocument, error) {
	chunks, err := r.ListAll(ctx, collectionID, 0)
	if err != nil {
		return nil, err
	}
	return groupIndexedDocuments(collectionID, chunks), nil
}

// Count returns the number of chunk entries in the collection.
func (r *ChromaVectorRepository) Count(ctx context.Context, collectionID string) (int, error) {
	count, err := r.client.CountCollection(ctx, r.remoteName(collectionID))
	if err != nil {
		if errors.Is(err, db.ErrCollectionMissing) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// DeleteDocument removes every chunk of docID and reports how many went away.
func (r *ChromaVectorRepository) DeleteDocument(ctx context.Context, collectionID, docID string) (int, error) {
	name := r.remoteName(collectionID)
	where := map[string]interface{}{"document_id": docID}

	resp, err := r.client.GetDocuments(ctx, name, where, 0, 0)
	if err != nil {
		if errors.Is(err, db.ErrCollectionMissing) {
			return 0, nil
		}
		return 0, err
	}
	if len(resp.IDs) == 0 {
		return 0, nil
	}

	if err := r.client.DeleteDocuments(ctx, name, resp.IDs); err != nil {
		return 0, err
	}

	r.logger.Printf("Removed %d chunks for doc %s (user %s, collection %s)",
		len(resp.IDs), docID, r.userToken, collectionID)
	return len(resp.IDs), nil
}

// Exists reports whether docID has any chunks in the collection.
func (r *ChromaVectorRepository) Exists(ctx context.Context, collectionID, docID string) (bool, error) {
	where := map[string]interface{}{"document_id": docID}
	resp, err := r.client.GetDocuments(ctx, r.remoteName(collectionID), where, 1, 0)
	if err != nil {
		if errors.Is(err, db.ErrCollectionMissing) {
			return false, nil
		}
		return false, err
	}
	return len(resp.IDs) > 0, nil
}

// ChromaVectorProvider hands out per-user repositories over one shared
// ChromaDB client. Remote names join token and collection with "__", so
// tokens containing "__" are rejected to keep the mapping unambiguous.
type ChromaVectorProvider struct {
	client   *db.ChromaDBClient
	embedder embedding.Client
	logger   *log.Logger
}

// NewChromaVectorProvider creates a provider over an existing client.
func NewChromaVectorProvider(client *db.ChromaDBClient, embedder embedding.Client, logger *log.Logger) *ChromaVectorProvider {
	if logger == nil {
		logger = log.New(os.Stdout, "[VECTOR] ", log.LstdFlags)
	}
	return &ChromaVectorProvider{
		client:   client,
		embedder: embedder,
		logger:   logger,
	}
}

// ForUser returns the user's vector repository.
func (p *ChromaVectorProvider) ForUser(userToken string) (VectorRepository, error) {
	if !validSegment(userToken) || strings.Contains(userToken, "__") {
		return nil, fmt.Errorf("%w: unsafe user token %q", models.ErrInvalidArgument, userToken)
	}
	return NewChromaVectorRepository(userToken, p.client, p.embedder, p.logger), nil
}

// CloseUser drops every remote collection belonging to the user.
func (p *ChromaVectorProvider) CloseUser(userToken string) error {
	if !validSegment(userToken) || strings.Contains(userToken, "__") {
		return nil
	}

	ctx := context.Background()
	collections, err := p.client.ListCollections(ctx)
	if err != nil {
		return err
	}

	prefix := userToken + "__"
	dropped := 0
	for _, collection := range collections {
		if !strings.HasPrefix(collection.Name, prefix) {
			continue
		}
		if err := p.client.DeleteCollection(ctx, collection.Name); err != nil && !errors.Is(err, db.ErrCollectionMissing) {
			return err
		}
		dropped++
	}
	if dropped > 0 {
		p.logger.Printf("Dropped %d remote collections for user %s", dropped, userToken)
	}
	return nil
}

// Close releases the shared client's idle connections.
func (p *ChromaVectorProvider) Close() error {
	p.client.Close()
	return nil
}
