package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Rain-kl/cyber-kb/internal/handlers"
)

// Handlers collects the handler set the router serves.
type Handlers struct {
	Health http.HandlerFunc

	DocHandler        *handlers.DocumentHandler
	SearchHandler     *handlers.SearchHandler
	CollectionHandler *handlers.CollectionHandler
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(router *mux.Router, h *Handlers) {
	// Health endpoints
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	// Document lifecycle
	router.HandleFunc("/api/kb/documents/upload", h.DocHandler.UploadDocument).Methods(http.MethodPost)
	router.HandleFunc("/api/kb/documents", h.DocHandler.ListUploads).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/documents/{id}/status", h.DocHandler.GetTaskStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/documents/{id}/metadata", h.DocHandler.GetDocumentMetadata).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/documents/{id}", h.DocHandler.DeleteDocument).Methods(http.MethodDelete)

	// Queue introspection
	router.HandleFunc("/api/kb/queue/status", h.DocHandler.GetQueueStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/queue/workers", h.DocHandler.GetWorkerStats).Methods(http.MethodGet)

	// User storage
	router.HandleFunc("/api/kb/files", h.DocHandler.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/storage", h.DocHandler.GetStorageInfo).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/user", h.DocHandler.DeleteUser).Methods(http.MethodDelete)

	// Collections
	router.HandleFunc("/api/kb/collections", h.CollectionHandler.CreateCollection).Methods(http.MethodPost)
	router.HandleFunc("/api/kb/collections", h.CollectionHandler.ListCollections).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/collections/{id}", h.CollectionHandler.GetCollection).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/collections/{id}/documents", h.CollectionHandler.ListCollectionDocuments).Methods(http.MethodGet)

	// Search and index inspection
	router.HandleFunc("/api/kb/search", h.SearchHandler.Search).Methods(http.MethodPost)
	router.HandleFunc("/api/kb/search", h.SearchHandler.SearchSimple).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/search/cache", h.SearchHandler.GetCacheStats).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/search/cache", h.SearchHandler.ClearCache).Methods(http.MethodDelete)
	router.HandleFunc("/api/kb/index/{id}/documents", h.SearchHandler.ListIndexDocuments).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/index/{id}/documents/{docId}", h.SearchHandler.DeleteIndexDocument).Methods(http.MethodDelete)
	router.HandleFunc("/api/kb/index/{id}/count", h.SearchHandler.GetIndexCount).Methods(http.MethodGet)
	router.HandleFunc("/api/kb/index/{id}/stats", h.SearchHandler.GetCollectionStats).Methods(http.MethodGet)
}
