package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Rain-kl/cyber-kb/internal/models"
	"github.com/Rain-kl/cyber-kb/internal/services"
)

// SearchHandler handles HTTP requests for search and index inspection.
type SearchHandler struct {
	searchService *services.SearchService
	logger        *log.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searchService *services.SearchService, logger *log.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// Search handles search requests
// @Summary Search documents
// @Description Perform vector similarity search over one of the user's collections
// @Tags search
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param query body services.SearchRequest true "Search request"
// @Success 200 {object} services.SearchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/search [post]
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.logger.Printf("Search request from %s (user %s)", r.RemoteAddr, token)

	var req services.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Printf("Failed to decode request: %v", err)
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserToken = token

	resp, err := h.searchService.Search(r.Context(), &req)
	if err != nil {
		h.logger.Printf("Search failed: %v", err)
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, resp)
}

// SearchSimple handles simple search requests via query parameters
// @Summary Simple search
// @Description Perform a search using query parameters
// @Tags search
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param q query string true "Search query"
// @Param collection_id query string false "Collection ID (defaults to the user's default collection)"
// @Param top_k query int false "Number of results" default(10)
// @Param use_cache query bool false "Use cache" default(true)
// @Success 200 {object} services.SearchResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/kb/search [get]
func (h *SearchHandler) SearchSimple(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.sendError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}

	topK := 10
	if topKStr := r.URL.Query().Get("top_k"); topKStr != "" {
		if parsed, err := strconv.Atoi(topKStr); err == nil {
			topK = parsed
		}
	}

	useCache := true
	if useCacheStr := r.URL.Query().Get("use_cache"); useCacheStr != "" {
		if parsed, err := strconv.ParseBool(useCacheStr); err == nil {
			useCache = parsed
		}
	}

	req := &services.SearchRequest{
		UserToken:    token,
		CollectionID: r.URL.Query().Get("collection_id"),
		Query:        query,
		TopK:         topK,
		UseCache:     useCache,
	}

	resp, err := h.searchService.Search(r.Context(), req)
	if err != nil {
		h.logger.Printf("Search failed: %v", err)
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, resp)
}

// ListIndexDocuments handles requests to list a collection's indexed documents
// @Summary List indexed documents
// @Description List the documents present in a collection's vector index
// @Tags index
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Collection ID"
// @Success 200 {object} IndexDocumentsResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/index/{id}/documents [get]
func (h *SearchHandler) ListIndexDocuments(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	collectionID := mux.Vars(r)["id"]

	docs, err := h.searchService.ListIndexDocuments(r.Context(), token, collectionID)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, IndexDocumentsResponse{
		CollectionID: collectionID,
		Documents:    docs,
		Count:        len(docs),
	})
}

// GetIndexCount handles chunk count requests
// @Summary Count indexed chunks
// @Description Report the number of chunks stored in a collection's index
// @Tags index
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Collection ID"
// @Success 200 {object} IndexCountResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/index/{id}/count [get]
func (h *SearchHandler) GetIndexCount(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	collectionID := mux.Vars(r)["id"]

	count, err := h.searchService.IndexDocumentCount(r.Context(), token, collectionID)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, IndexCountResponse{
		CollectionID: collectionID,
		Count:        count,
	})
}

// GetCollectionStats handles index footprint requests
// @Summary Collection index stats
// @Description Report document and chunk counts for a collection's index
// @Tags index
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Collection ID"
// @Success 200 {object} models.CollectionStats
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/index/{id}/stats [get]
func (h *SearchHandler) GetCollectionStats(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	collectionID := mux.Vars(r)["id"]

	stats, err := h.searchService.CollectionStats(r.Context(), token, collectionID)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, stats)
}

// DeleteIndexDocument handles removal of one document from the index
// @Summary Delete indexed document
// @Description Remove every chunk of a document from the collection's index
// @Tags index
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Collection ID"
// @Param docId path string true "Document ID"
// @Success 200 {object} IndexDeleteResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/index/{id}/documents/{docId} [delete]
func (h *SearchHandler) DeleteIndexDocument(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	vars := mux.Vars(r)
	collectionID := vars["id"]
	docID := vars["docId"]

	deleted, err := h.searchService.DeleteDocumentFromIndex(r.Context(), token, collectionID, docID)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, IndexDeleteResponse{
		CollectionID:  collectionID,
		DocID:         docID,
		DeletedChunks: deleted,
	})
}

// GetCacheStats handles cache statistics requests
// @Summary Search cache stats
// @Description Report hit/miss counts for the search cache
// @Tags search
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Success 200 {object} map[string]interface{}
// @Router /api/kb/search/cache [get]
func (h *SearchHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	if _, err := userToken(r); err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, h.searchService.CacheStats())
}

// ClearCache handles cache reset requests
// @Summary Clear search cache
// @Description Drop every cached search response
// @Tags search
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Success 200 {object} SuccessResponse
// @Router /api/kb/search/cache [delete]
func (h *SearchHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if _, err := userToken(r); err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.searchService.ClearCache()
	h.sendJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Search cache cleared",
	})
}

// Helper methods

func (h *SearchHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *SearchHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// Response types

// IndexDocumentsResponse lists the documents present in one index.
type IndexDocumentsResponse struct {
	CollectionID string                   `json:"collection_id"`
	Documents    []models.IndexedDocument `json:"documents"`
	Count        int                      `json:"count"`
}

// IndexCountResponse reports how many chunks an index holds.
type IndexCountResponse struct {
	CollectionID string `json:"collection_id"`
	Count        int    `json:"count"`
}

// IndexDeleteResponse reports the outcome of an index deletion.
type IndexDeleteResponse struct {
	CollectionID  string `json:"collection_id"`
	DocID         string `json:"doc_id"`
	DeletedChunks int    `json:"deleted_chunks"`
}
