package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Rain-kl/cyber-kb/internal/models"
	"github.com/Rain-kl/cyber-kb/internal/repositories"
)

// SearchService answers similarity queries against per-user vector indexes.
// Every operation resolves the collection through the metadata store first,
// which enforces ownership before the index is touched.
type SearchService struct {
	metadataRepo repositories.MetadataRepository
	vectors      repositories.VectorRepositoryProvider
	logger       *log.Logger
	cache        *searchCache
}

// NewSearchService creates a new search service.
func NewSearchService(
	metadataRepo repositories.MetadataRepository,
	vectors repositories.VectorRepositoryProvider,
	logger *log.Logger,
) *SearchService {
	if logger == nil {
		logger = log.New(os.Stdout, "[SEARCH] ", log.LstdFlags)
	}
	return &SearchService{
		metadataRepo: metadataRepo,
		vectors:      vectors,
		logger:       logger,
		cache:        newSearchCache(5 * time.Minute),
	}
}

// SearchRequest represents a search query request.
type SearchRequest struct {
	UserToken    string `json:"-"`
	CollectionID string `json:"collection_id"`
	Query        string `json:"query"`
	TopK         int    `json:"top_k"`
	UseCache     bool   `json:"use_cache"`
}

// SearchResponse represents the response from a search operation.
type SearchResponse struct {
	Results      []models.SearchResult `json:"results"`
	Query        string                `json:"query"`
	CollectionID string                `json:"collection_id"`
	TotalResults int                   `json:"total_results"`
	SearchTimeMs float64               `json:"search_time_ms"`
	FromCache    bool                  `json:"from_cache"`
}

// Search performs a semantic search across a collection's chunks. An empty
// collection id resolves to the user's default collection.
func (s *SearchService) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateSearchRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.metadataRepo.GetCollection(ctx, req.UserToken, req.CollectionID); err != nil {
		return nil, err
	}

	if req.UseCache {
		if cached := s.cache.Get(req); cached != nil {
			s.logger.Printf("Cache hit for query %q (collection %s)", req.Query, req.CollectionID)
			cached.FromCache = true
			cached.SearchTimeMs = time.Since(startTime).Seconds() * 1000
			return cached, nil
		}
	}

	repo, err := s.vectors.ForUser(req.UserToken)
	if err != nil {
		return nil, err
	}

	results, err := repo.SearchByText(ctx, req.CollectionID, req.Query, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	totalTime := time.Since(startTime).Seconds() * 1000
	s.logger.Printf("Search in %s returned %d results in %.2fms", req.CollectionID, len(results), totalTime)

	response := &SearchResponse{
		Results:      results,
		Query:        req.Query,
		CollectionID: req.CollectionID,
		TotalResults: len(results),
		SearchTimeMs: totalTime,
		FromCache:    false,
	}

	if req.UseCache {
		s.cache.Set(req, response)
	}

	return response, nil
}

// ListIndexDocuments lists the documents present in a collection's index,
// grouped from chunk metadata.
func (s *SearchService) ListIndexDocuments(ctx context.Context, userToken, collectionID string) ([]models.IndexedDocument, error) {
	repo, err := s.authorize(ctx, userToken, collectionID)
	if err != nil {
		return nil, err
	}
	return repo.ListDocuments(ctx, collectionID)
}

// IndexDocumentCount returns the number of chunk entries in the collection's
// index.
func (s *SearchService) IndexDocumentCount(ctx context.Context, userToken, collectionID string) (int, error) {
	repo, err := s.authorize(ctx, userToken, collectionID)
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, collectionID)
}

// CollectionStats summarizes a collection's index footprint.
func (s *SearchService) CollectionStats(ctx context.Context, userToken, collectionID string) (*models.CollectionStats, error) {
	repo, err := s.authorize(ctx, userToken, collectionID)
	if err != nil {
		return nil, err
	}

	docs, err := repo.ListDocuments(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	chunks, err := repo.Count(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	return &models.CollectionStats{
		CollectionID:  collectionID,
		DocumentCount: len(docs),
		ChunkCount:    chunks,
	}, nil
}

// DeleteDocumentFromIndex removes every chunk of a document from the index
// and returns how many entries went away. Cached results for the user are
// invalidated since they may reference the deleted chunks.
func (s *SearchService) DeleteDocumentFromIndex(ctx context.Context, userToken, collectionID, docID string) (int, error) {
	repo, err := s.authorize(ctx, userToken, collectionID)
	if err != nil {
		return 0, err
	}

	deleted, err := repo.DeleteDocument(ctx, collectionID, docID)
	if err != nil {
		return 0, err
	}

	s.cache.InvalidateUser(userToken)
	if deleted > 0 {
		s.logger.Printf("Removed %d index entries for doc %s (user %s)", deleted, docID, userToken)
	}
	return deleted, nil
}

// ClearCache clears the search cache.
func (s *SearchService) ClearCache() {
	s.cache.Clear()
	s.logger.Printf("Search cache cleared")
}

// CacheStats returns cache statistics.
func (s *SearchService) CacheStats() map[string]interface{} {
	return s.cache.Stats()
}

// authorize resolves the user's vector repository after the metadata store
// confirms the collection belongs to them.
func (s *SearchService) authorize(ctx context.Context, userToken, collectionID string) (repositories.VectorRepository, error) {
	if userToken == "" {
		return nil, fmt.Errorf("%w: user token is required", models.ErrInvalidArgument)
	}
	if collectionID == "" {
		return nil, fmt.Errorf("%w: collection id is required", models.ErrInvalidArgument)
	}
	if _, err := s.metadataRepo.GetCollection(ctx, userToken, collectionID); err != nil {
		return nil, err
	}
	return s.vectors.ForUser(userToken)
}

// validateSearchRequest validates search request parameters and fills in
// defaults. The empty collection id resolves here so cache keys are stable.
func (s *SearchService) validateSearchRequest(req *SearchRequest) error {
	if req.UserToken == "" {
		return fmt.Errorf("%w: user token is required", models.ErrInvalidArgument)
	}
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("%w: query is required", models.ErrInvalidArgument)
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}
	if req.TopK > 100 {
		return fmt.Errorf("%w: top_k cannot exceed 100", models.ErrInvalidArgument)
	}
	if req.CollectionID == "" {
		req.CollectionID = models.DefaultCollectionID(req.UserToken)
	}
	return nil
}

// ============================================================================
// Search Cache Implementation
// ============================================================================

type searchCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	hits    int64
	misses  int64
}

type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

func newSearchCache(ttl time.Duration) *searchCache {
	cache := &searchCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey scopes entries by user so one tenant can never be served another
// tenant's cached results.
func (c *searchCache) cacheKey(req *SearchRequest) string {
	return fmt.Sprintf("%s:%s:%s:%d", req.UserToken, req.CollectionID, req.Query, req.TopK)
}

func (c *searchCache) Get(req *SearchRequest) *SearchResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.cacheKey(req)
	entry, exists := c.entries[key]

	if !exists || time.Now().After(entry.expiresAt) {
		c.misses++
		return nil
	}

	c.hits++
	return entry.response
}

func (c *searchCache) Set(req *SearchRequest, resp *SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.cacheKey(req)
	c.entries[key] = &cacheEntry{
		response:  resp,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// InvalidateUser drops every cached response belonging to one user.
func (c *searchCache) InvalidateUser(userToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := userToken + ":"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

func (c *searchCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.hits = 0
	c.misses = 0
}

func (c *searchCache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := float64(0)
	total := c.hits + c.misses
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"hits":     c.hits,
		"misses":   c.misses,
		"size":     len(c.entries),
		"hit_rate": hitRate,
	}
}

func (c *searchCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *searchCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
