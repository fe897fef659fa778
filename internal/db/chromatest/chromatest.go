// Package chromatest provides an in-memory fake of the ChromaDB v2 REST
// API, covering the endpoints the vector layer uses so tests run without a
// real server. Similarity is cosine distance over the stored embeddings.
package chromatest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
)

type collection struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata"`

	ids        []string
	documents  []string
	embeddings [][]float32
	metadatas  []map[string]interface{}
}

// Server is a running fake. Create one with NewServer and Close it when the
// test finishes.
type Server struct {
	srv *httptest.Server

	mu     sync.Mutex
	nextID int
	byName map[string]*collection
	byID   map[string]*collection
}

// NewServer starts a fake ChromaDB server on a local listener.
func NewServer() *Server {
	s := &Server{
		byName: make(map[string]*collection),
		byID:   make(map[string]*collection),
	}
	s.srv = httptest.NewServer(s.handler())
	return s
}

// URL is the server root, suitable for a client's configuration.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the listener down.
func (s *Server) Close() { s.srv.Close() }

// CollectionNames returns the names of live collections, sorted.
func (s *Server) CollectionNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) handler() http.Handler {
	const base = "/api/v2/tenants/{tenant}/databases/{database}/collections"

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int64{"nanosecond heartbeat": 1})
	})
	mux.HandleFunc("GET "+base, s.handleList)
	mux.HandleFunc("POST "+base, s.handleEnsure)
	mux.HandleFunc("GET "+base+"/{name}", s.handleGet)
	mux.HandleFunc("DELETE "+base+"/{name}", s.handleDelete)
	mux.HandleFunc("GET "+base+"/{id}/count", s.handleCount)
	mux.HandleFunc("POST "+base+"/{id}/add", s.handleAdd)
	mux.HandleFunc("POST "+base+"/{id}/query", s.handleQuery)
	mux.HandleFunc("POST "+base+"/{id}/get", s.handleGetDocuments)
	mux.HandleFunc("POST "+base+"/{id}/delete", s.handleDeleteDocuments)
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*collection, 0, len(s.byName))
	for _, c := range s.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, out)
}

func (s *Server) handleEnsure(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string                 `json:"name"`
		Metadata    map[string]interface{} `json:"metadata"`
		GetOrCreate bool                   `json:"get_or_create"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byName[payload.Name]; ok {
		if !payload.GetOrCreate {
			http.Error(w, "collection exists", http.StatusConflict)
			return
		}
		writeJSON(w, existing)
		return
	}

	s.nextID++
	c := &collection{
		ID:       fmt.Sprintf("col-%04d", s.nextID),
		Name:     payload.Name,
		Metadata: payload.Metadata,
	}
	s.byName[c.Name] = c
	s.byID[c.ID] = c
	writeJSON(w, c)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byName[r.PathValue("name")]
	if !ok {
		http.Error(w, "collection not found", http.StatusNotFound)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := r.PathValue("name")
	c, ok := s.byName[name]
	if !ok {
		http.Error(w, "collection not found", http.StatusNotFound)
		return
	}
	delete(s.byName, name)
	delete(s.byID, c.ID)
	writeJSON(w, map[string]string{"status": "deleted"})
}

func (s *Server) lookupByID(w http.ResponseWriter, r *http.Request) *collection {
	c, ok := s.byID[r.PathValue("id")]
	if !ok {
		http.Error(w, "collection not found", http.StatusNotFound)
		return nil
	}
	return c
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookupByID(w, r)
	if c == nil {
		return
	}
	writeJSON(w, len(c.ids))
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs        []string                 `json:"ids"`
		Documents  []string                 `json:"documents"`
		Embeddings [][]float32              `json:"embeddings"`
		Metadatas  []map[string]interface{} `json:"metadatas"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookupByID(w, r)
	if c == nil {
		return
	}
	c.ids = append(c.ids, payload.IDs...)
	c.documents = append(c.documents, payload.Documents...)
	c.embeddings = append(c.embeddings, payload.Embeddings...)
	for i := range payload.IDs {
		var meta map[string]interface{}
		if i < len(payload.Metadatas) {
			meta = payload.Metadatas[i]
		}
		c.metadatas = append(c.metadatas, meta)
	}
	writeJSON(w, map[string]bool{"success": true})
}

func metadataMatches(meta, where map[string]interface{}) bool {
	for k, v := range where {
		if fmt.Sprint(meta[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		QueryEmbeddings [][]float32            `json:"query_embeddings"`
		NResults        int                    `json:"n_results"`
		Where           map[string]interface{} `json:"where"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookupByID(w, r)
	if c == nil {
		return
	}

	var resp struct {
		IDs       [][]string                 `json:"ids"`
		Documents [][]string                 `json:"documents"`
		Metadatas [][]map[string]interface{} `json:"metadatas"`
		Distances [][]float32                `json:"distances"`
	}
	for _, query := range payload.QueryEmbeddings {
		var idx []int
		for i := range c.ids {
			if payload.Where == nil || metadataMatches(c.metadatas[i], payload.Where) {
				idx = append(idx, i)
			}
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return cosineDistance(query, c.embeddings[idx[a]]) < cosineDistance(query, c.embeddings[idx[b]])
		})
		if payload.NResults > 0 && len(idx) > payload.NResults {
			idx = idx[:payload.NResults]
		}

		ids := make([]string, 0, len(idx))
		docs := make([]string, 0, len(idx))
		metas := make([]map[string]interface{}, 0, len(idx))
		dists := make([]float32, 0, len(idx))
		for _, i := range idx {
			ids = append(ids, c.ids[i])
			docs = append(docs, c.documents[i])
			metas = append(metas, c.metadatas[i])
			dists = append(dists, cosineDistance(query, c.embeddings[i]))
		}
		resp.IDs = append(resp.IDs, ids)
		resp.Documents = append(resp.Documents, docs)
		resp.Metadatas = append(resp.Metadatas, metas)
		resp.Distances = append(resp.Distances, dists)
	}
	writeJSON(w, resp)
}

func (s *Server) handleGetDocuments(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Where  map[string]interface{} `json:"where"`
		Limit  int                    `json:"limit"`
		Offset int                    `json:"offset"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookupByID(w, r)
	if c == nil {
		return
	}

	resp := struct {
		IDs       []string                 `json:"ids"`
		Documents []string                 `json:"documents"`
		Metadatas []map[string]interface{} `json:"metadatas"`
	}{IDs: []string{}, Documents: []string{}, Metadatas: []map[string]interface{}{}}

	skipped := 0
	for i := range c.ids {
		if payload.Where != nil && !metadataMatches(c.metadatas[i], payload.Where) {
			continue
		}
		if skipped < payload.Offset {
			skipped++
			continue
		}
		resp.IDs = append(resp.IDs, c.ids[i])
		resp.Documents = append(resp.Documents, c.documents[i])
		resp.Metadatas = append(resp.Metadatas, c.metadatas[i])
		if payload.Limit > 0 && len(resp.IDs) >= payload.Limit {
			break
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleDeleteDocuments(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.lookupByID(w, r)
	if c == nil {
		return
	}

	drop := make(map[string]bool, len(payload.IDs))
	for _, id := range payload.IDs {
		drop[id] = true
	}
	var ids, docs []string
	var embeds [][]float32
	var metas []map[string]interface{}
	for i, id := range c.ids {
		if drop[id] {
			continue
		}
		ids = append(ids, id)
		docs = append(docs, c.documents[i])
		embeds = append(embeds, c.embeddings[i])
		metas = append(metas, c.metadatas[i])
	}
	c.ids, c.documents, c.embeddings, c.metadatas = ids, docs, embeds, metas
	writeJSON(w, map[string]bool{"success": true})
}
