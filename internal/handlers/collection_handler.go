package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Rain-kl/cyber-kb/internal/models"
	"github.com/Rain-kl/cyber-kb/internal/services"
)

// CollectionHandler handles HTTP requests for collection operations.
type CollectionHandler struct {
	collectionService *services.CollectionService
	logger            *log.Logger
}

// NewCollectionHandler creates a new collection handler.
func NewCollectionHandler(collectionService *services.CollectionService, logger *log.Logger) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
		logger:            logger,
	}
}

// CreateCollection handles collection creation requests
// @Summary Create collection
// @Description Create a collection owned by the requesting user
// @Tags collections
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param collection body models.CollectionRequest true "Collection request"
// @Success 201 {object} models.Collection
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/kb/collections [post]
func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.logger.Printf("Create collection request (user %s)", token)

	var req models.CollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Printf("Failed to decode request: %v", err)
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	collection, err := h.collectionService.CreateCollection(r.Context(), token, &req)
	if err != nil {
		h.logger.Printf("Failed to create collection: %v", err)
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusCreated, collection)
}

// ListCollections handles requests to list the user's collections
// @Summary List collections
// @Description List the user's collections with per-collection document counts
// @Tags collections
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Success 200 {object} CollectionsResponse
// @Router /api/kb/collections [get]
func (h *CollectionHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	collections, err := h.collectionService.ListCollectionsWithCounts(r.Context(), token)
	if err != nil {
		h.logger.Printf("Failed to list collections: %v", err)
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, CollectionsResponse{
		Collections: collections,
		Total:       len(collections),
	})
}

// GetCollection handles requests for one collection
// @Summary Get collection
// @Description Fetch a collection the user owns
// @Tags collections
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Collection ID"
// @Success 200 {object} models.Collection
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/collections/{id} [get]
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	collectionID := mux.Vars(r)["id"]

	collection, err := h.collectionService.GetCollection(r.Context(), token, collectionID)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, collection)
}

// ListCollectionDocuments handles requests for a collection's upload records
// @Summary List collection documents
// @Description List the upload records attached to a collection
// @Tags collections
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Collection ID"
// @Success 200 {object} CollectionDocumentsResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/collections/{id}/documents [get]
func (h *CollectionHandler) ListCollectionDocuments(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	collectionID := mux.Vars(r)["id"]

	records, err := h.collectionService.ListCollectionDocuments(r.Context(), token, collectionID)
	if err != nil {
		h.logger.Printf("Failed to list collection documents: %v", err)
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	documents := make([]models.UploadRecordDTO, 0, len(records))
	for _, record := range records {
		documents = append(documents, record.ToDTO())
	}

	h.sendJSON(w, http.StatusOK, CollectionDocumentsResponse{
		CollectionID: collectionID,
		Documents:    documents,
		Count:        len(documents),
	})
}

// Helper methods

func (h *CollectionHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *CollectionHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// Response types

type CollectionsResponse struct {
	Collections []*models.CollectionWithCount `json:"collections"`
	Total       int                           `json:"total"`
}

type CollectionDocumentsResponse struct {
	CollectionID string                   `json:"collection_id"`
	Documents    []models.UploadRecordDTO `json:"documents"`
	Count        int                      `json:"count"`
}
