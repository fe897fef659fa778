package repositories

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/Rain-kl/cyber-kb/internal/db"
	"github.com/Rain-kl/cyber-kb/internal/embedding"
	"github.com/Rain-kl/cyber-kb/internal/models"
)

// SQLiteVectorRepository implements VectorRepository over one user's
// embedded index file.
type SQLiteVectorRepository struct {
	userToken string
	vdb       *db.VectorDB
	embedder  embedding.Client
	logger    *log.Logger
}

// NewSQLiteVectorRepository wraps an open index handle for a single user.
func NewSQLiteVectorRepository(userToken string, vdb *db.VectorDB, embedder embedding.Client, logger *log.Logger) VectorRepository {
	if logger == nil {
		logger = log.New(os.Stdout, "[VECTOR] ", log.LstdFlags)
	}
	return &SQLiteVectorRepository{
		userToken: userToken,
		vdb:       vdb,
		embedder:  embedder,
		logger:    logger,
	}
}

// AddChunks stores the chunks under ids {doc_id}_0 … {doc_id}_{n-1}.
func (r *SQLiteVectorRepository) AddChunks(ctx context.Context, collectionID, docID string, chunks []*models.Chunk) ([]string, error) {
	if collectionID == "" || docID == "" {
		return nil, fmt.Errorf("%w: collection id and doc id are required", models.ErrInvalidArgument)
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunk.ID = fmt.Sprintf("%s_%d", docID, i)
		chunk.DocID = docID
		chunk.ChunkIndex = i
		ids[i] = chunk.ID
	}

	if err := r.vdb.Add(ctx, collectionID, chunks); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}

	r.logger.Printf("Indexed %d chunks for doc %s (user %s, collection %s)",
		len(chunks), docID, r.userToken, collectionID)
	return ids, nil
}

// SearchByEmbedding returns up to topK nearest chunks, best first.
func (r *SQLiteVectorRepository) SearchByEmbedding(ctx context.Context, collectionID string, queryEmbedding []float32, topK int) ([]models.SearchResult, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", models.ErrInvalidArgument)
	}
	return r.vdb.Query(ctx, collectionID, queryEmbedding, topK)
}

// SearchByText embeds the query and delegates to SearchByEmbedding.
func (r *SQLiteVectorRepository) SearchByText(ctx context.Context, collectionID, query string, topK int) ([]models.SearchResult, error) {
	queryEmbedding, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	if embedding.IsZeroVector(queryEmbedding) {
		r.logger.Printf("Query embedding came back all-zero for collection %s; relevance scores will be flat", collectionID)
	}
	return r.vdb.Query(ctx, collectionID, queryEmbedding, topK)
}

// ListAll lists the collection's chunks. limit <= 0 returns everything.
func (r *SQLiteVectorRepository) ListAll(ctx context.Context, collectionID string, limit int) ([]models.IndexedChunk, error) {
	return r.vdb.GetAll(ctx, collectionID, limit)
}

// ListDocuments groups the collection's chunks into per-document summaries.
func (r *SQLiteVectorRepository) ListDocuments(ctx context.Context, collectionID string) ([]models.IndexedDocument, error) {
	chunks, err := r.vdb.GetAll(ctx, collectionID, 0)
	if err != nil {
		return nil, err
	}
	return groupIndexedDocuments(collectionID, chunks), nil
}

// Count returns the number of chunk entries in the collection.
func (r *SQLiteVectorRepository) Count(ctx context.Context, collectionID string) (int, error) {
	n, err := r.vdb.Count(ctx, collectionID)
	return int(n), err
}

// DeleteDocument removes every chunk of docID and reports how many went away.
func (r *SQLiteVectorRepository) DeleteDocument(ctx context.Context, collectionID, docID string) (int, error) {
	deleted, err := r.vdb.DeleteByDoc(ctx, collectionID, docID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.logger.Printf("Removed %d chunks for doc %s (user %s, collection %s)",
			deleted, docID, r.userToken, collectionID)
	}
	return int(deleted), nil
}

// Exists reports whether docID has any chunks in the collection.
func (r *SQLiteVectorRepository) Exists(ctx context.Context, collectionID, docID string) (bool, error) {
	return r.vdb.ExistsDoc(ctx, collectionID, docID)
}

// SQLiteVectorProvider opens one embedded index per user under
// {base}/user/{token}/chroma_kb and caches the open handles.
type SQLiteVectorProvider struct {
	baseDir  string
	embedder embedding.Client
	logger   *log.Logger

	mu   sync.Mutex
	open map[string]*db.VectorDB
}

// NewSQLiteVectorProvider creates a provider rooted at baseDir.
func NewSQLiteVectorProvider(baseDir string, embedder embedding.Client, logger *log.Logger) *SQLiteVectorProvider {
	if logger == nil {
		logger = log.New(os.Stdout, "[VECTOR] ", log.LstdFlags)
	}
	return &SQLiteVectorProvider{
		baseDir:  baseDir,
		embedder: embedder,
		logger:   logger,
		open:     make(map[string]*db.VectorDB),
	}
}

// ForUser returns the user's vector repository, opening the index on first use.
func (p *SQLiteVectorProvider) ForUser(userToken string) (VectorRepository, error) {
	if !validSegment(userToken) {
		return nil, fmt.Errorf("%w: unsafe user token %q", models.ErrInvalidArgument, userToken)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	vdb, ok := p.open[userToken]
	if !ok {
		var err error
		vdb, err = db.OpenVectorDB(filepath.Join(p.baseDir, "user", userToken, "chroma_kb"))
		if err != nil {
			return nil, err
		}
		p.open[userToken] = vdb
		p.logger.Printf("Opened vector index for user %s at %s", userToken, vdb.Path())
	}

	return NewSQLiteVectorRepository(userToken, vdb, p.embedder, p.logger), nil
}

// CloseUser closes and evicts the user's index handle so the directory tree
// can be removed safely.
func (p *SQLiteVectorProvider) CloseUser(userToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	vdb, ok := p.open[userToken]
	if !ok {
		return nil
	}
	delete(p.open, userToken)
	return vdb.Close()
}

// Close shuts every cached index handle.
func (p *SQLiteVectorProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for token, vdb := range p.open {
		if err := vdb.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.open, token)
	}
	return firstErr
}
