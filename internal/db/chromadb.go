package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrCollectionMissing reports that a named collection does not exist on the
// remote server. The vector layer treats a missing collection as an empty
// index rather than a failure.
var ErrCollectionMissing = errors.New("collection missing")

// ChromaDBConfig holds connection settings for a remote ChromaDB server.
type ChromaDBConfig struct {
	// URL is the server root, e.g. "http://localhost:8000".
	URL      string
	Tenant   string        // default "default_tenant"
	Database string        // default "default_database"
	Timeout  time.Duration // per-request, default 30s
}

// ChromaDBClient speaks the ChromaDB v2 REST API directly. The official Go
// client lags behind the server's API, so a thin HTTP wrapper over the
// endpoints the vector layer needs is more dependable.
type ChromaDBClient struct {
	serverURL  string
	baseURL    string
	httpClient *http.Client
}

// Collection is the server's view of one collection.
type Collection struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata"`
}

// GetResponse is the payload of a get request: parallel slices, one entry
// per stored chunk.
type GetResponse struct {
	IDs       []string                 `json:"ids"`
	Documents []string                 `json:"documents"`
	Metadatas []map[string]interface{} `json:"metadatas"`
}

// QueryResponse is the payload of a similarity query. The outer slice has
// one entry per query embedding.
type QueryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Documents [][]string                 `json:"documents"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
	Distances [][]float32                `json:"distances"`
}

// NewChromaDBClient creates a client bound to one tenant and database.
func NewChromaDBClient(cfg ChromaDBConfig) *ChromaDBClient {
	if cfg.Tenant == "" {
		cfg.Tenant = "default_tenant"
	}
	if cfg.Database == "" {
		cfg.Database = "default_database"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	serverURL := strings.TrimRight(cfg.URL, "/")
	return &ChromaDBClient{
		serverURL: serverURL,
		baseURL: fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s",
			serverURL, url.PathEscape(cfg.Tenant), url.PathEscape(cfg.Database)),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// do performs one API call: optional JSON payload in, optional JSON body out.
// A 404 maps to ErrCollectionMissing; other non-2xx statuses surface the
// response body in the error.
func (c *ChromaDBClient) do(ctx context.Context, method, rawURL, op string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrCollectionMissing)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed (status %d): %s", op, resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return nil
}

// Heartbeat checks that the server is reachable.
func (c *ChromaDBClient) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.serverURL+"/api/v2/heartbeat", "heartbeat", nil, nil)
}

// ListCollections returns every collection in the database.
func (c *ChromaDBClient) ListCollections(ctx context.Context) ([]Collection, error) {
	var collections []Collection
	err := c.do(ctx, http.MethodGet, c.baseURL+"/collections", "list collections", nil, &collections)
	if err != nil {
		return nil, err
	}
	return collections, nil
}

// GetCollection resolves a collection by name, or ErrCollectionMissing.
func (c *ChromaDBClient) GetCollection(ctx context.Context, name string) (*Collection, error) {
	var collection Collection
	err := c.do(ctx, http.MethodGet, c.baseURL+"/collections/"+url.PathEscape(name), "get collection", nil, &collection)
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// EnsureCollection creates a collection if it does not exist yet and returns
// it either way. Nil metadata selects cosine distance.
func (c *ChromaDBClient) EnsureCollection(ctx context.Context, name string, metadata map[string]interface{}) (*Collection, error) {
	if metadata == nil {
		metadata = map[string]interface{}{"hnsw:space": "cosine"}
	}
	payload := map[string]interface{}{
		"name":          name,
		"metadata":      metadata,
		"get_or_create": true,
	}

	var collection Collection
	err := c.do(ctx, http.MethodPost, c.baseURL+"/collections", "ensure collection", payload, &collection)
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// DeleteCollection removes a collection and everything in it.
func (c *ChromaDBClient) DeleteCollection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, c.baseURL+"/collections/"+url.PathEscape(name), "delete collection", nil, nil)
}

// CountCollection returns the number of stored chunks.
func (c *ChromaDBClient) CountCollection(ctx context.Context, name string) (int, error) {
	collection, err := c.GetCollection(ctx, name)
	if err != nil {
		return 0, err
	}

	var count int
	err = c.do(ctx, http.MethodGet, c.collectionURL(collection.ID)+"/count", "count collection", nil, &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AddDocuments stores chunks with their embeddings and metadata. The slices
// must be the same length.
func (c *ChromaDBClient) AddDocuments(ctx context.Context, name string, ids, documents []string, embeddings [][]float32, metadatas []map[string]interface{}) error {
	collection, err := c.GetCollection(ctx, name)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"ids":        ids,
		"documents":  documents,
		"embeddings": embeddings,
	}
	if metadatas != nil {
		payload["metadatas"] = metadatas
	}

	return c.do(ctx, http.MethodPost, c.collectionURL(collection.ID)+"/add", "add documents", payload, nil)
}

// Query returns the nResults nearest chunks per query embedding.
func (c *ChromaDBClient) Query(ctx context.Context, name string, queryEmbeddings [][]float32, nResults int, where map[string]interface{}) (*QueryResponse, error) {
	collection, err := c.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"query_embeddings": queryEmbeddings,
		"n_results":        nResults,
	}
	if where != nil {
		payload["where"] = where
	}

	var resp QueryResponse
	err = c.do(ctx, http.MethodPost, c.collectionURL(collection.ID)+"/query", "query", payload, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDocuments fetches stored chunks, optionally filtered by metadata.
// limit <= 0 fetches everything.
func (c *ChromaDBClient) GetDocuments(ctx context.Context, name string, where map[string]interface{}, limit, offset int) (*GetResponse, error) {
	collection, err := c.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"include": []string{"documents", "metadatas"},
	}
	if len(where) > 0 {
		payload["where"] = where
	}
	if limit > 0 {
		payload["limit"] = limit
	}
	if offset > 0 {
		payload["offset"] = offset
	}

	var resp GetResponse
	err = c.do(ctx, http.MethodPost, c.collectionURL(collection.ID)+"/get", "get documents", payload, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteDocuments removes chunks by id.
func (c *ChromaDBClient) DeleteDocuments(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	collection, err := c.GetCollection(ctx, name)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{"ids": ids}
	return c.do(ctx, http.MethodPost, c.collectionURL(collection.ID)+"/delete", "delete documents", payload, nil)
}

// Close releases idle connections.
func (c *ChromaDBClient) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *ChromaDBClient) collectionURL(id string) string {
	return c.baseURL + "/collections/" + url.PathEscape(id)
}
