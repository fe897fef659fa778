package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Rain-kl/cyber-kb/internal/models"
	"github.com/Rain-kl/cyber-kb/internal/services"
	"github.com/Rain-kl/cyber-kb/internal/workers"
)

// DocumentHandler handles HTTP requests for document ingestion and lifecycle.
type DocumentHandler struct {
	manager *services.ProcessingManager
	logger  *log.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(manager *services.ProcessingManager, logger *log.Logger) *DocumentHandler {
	return &DocumentHandler{
		manager: manager,
		logger:  logger,
	}
}

// UploadDocument handles document upload requests
// @Summary Upload a document
// @Description Accept a file for asynchronous conversion, chunking, and indexing
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param file formData file true "Document file"
// @Param collection_id formData string false "Target collection (defaults to the user's default collection)"
// @Param doc_id formData string false "Caller-supplied document id"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/kb/documents/upload [post]
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.logger.Printf("Upload request from %s (user %s)", r.RemoteAddr, token)

	// Parse multipart form (max 100MB)
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		h.logger.Printf("Failed to parse form: %v", err)
		h.sendError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Printf("No file uploaded: %v", err)
		h.sendError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	req := &services.SubmitRequest{
		UserToken:    token,
		Filename:     header.Filename,
		Content:      file,
		CollectionID: r.FormValue("collection_id"),
		DocID:        r.FormValue("doc_id"),
		MimeType:     header.Header.Get("Content-Type"),
	}

	docID, err := h.manager.Submit(r.Context(), req)
	if err != nil {
		h.logger.Printf("Upload failed: %v", err)
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, UploadResponse{
		DocID:    docID,
		Filename: header.Filename,
		Status:   string(models.StatusPending),
		Message:  "Document accepted for processing",
	})
}

// GetTaskStatus handles task status polling
// @Summary Get document status
// @Description Get the durable processing record for a document
// @Tags documents
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Document ID"
// @Success 200 {object} models.UploadRecordDTO
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/documents/{id}/status [get]
func (h *DocumentHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	docID := mux.Vars(r)["id"]
	h.logger.Printf("Status request for doc %s (user %s)", docID, token)

	record, err := h.manager.GetTask(r.Context(), docID)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}
	if record.UserToken != token {
		h.sendError(w, http.StatusForbidden, "doc "+docID+" belongs to another user")
		return
	}

	h.sendJSON(w, http.StatusOK, record.ToDTO())
}

// ListUploads handles requests to list the user's upload records
// @Summary List uploads
// @Description List the user's upload records, newest first
// @Tags documents
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param limit query int false "Maximum records to return"
// @Param status query string false "Filter by status (pending/processing/completed/failed)"
// @Success 200 {object} UploadListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/kb/documents [get]
func (h *DocumentHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	limit := h.getIntQueryParam(r, "limit", 0)

	var status *models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed := models.Status(raw)
		if !parsed.IsValid() {
			h.sendError(w, http.StatusBadRequest, "Unknown status: "+raw)
			return
		}
		status = &parsed
	}

	records, err := h.manager.ListUserTasks(r.Context(), token, limit, status)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	uploads := make([]models.UploadRecordDTO, 0, len(records))
	for _, record := range records {
		uploads = append(uploads, record.ToDTO())
	}

	h.sendJSON(w, http.StatusOK, UploadListResponse{
		Uploads: uploads,
		Count:   len(uploads),
	})
}

// DeleteDocument handles full document removal
// @Summary Delete document
// @Description Remove a document's index entries, stored files, and metadata record
// @Tags documents
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Document ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	docID := mux.Vars(r)["id"]
	h.logger.Printf("Delete request for doc %s (user %s)", docID, token)

	if err := h.manager.DeleteUploadRecord(r.Context(), token, docID); err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Document deleted successfully",
	})
}

// GetDocumentMetadata handles metadata extraction requests
// @Summary Get document metadata
// @Description Extract metadata from the stored original file
// @Tags documents
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Param id path string true "Document ID"
// @Success 200 {object} models.DocumentMetadata
// @Failure 404 {object} ErrorResponse
// @Router /api/kb/documents/{id}/metadata [get]
func (h *DocumentHandler) GetDocumentMetadata(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	docID := mux.Vars(r)["id"]

	meta, err := h.manager.DocumentMetadata(r.Context(), token, docID)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, meta)
}

// GetQueueStatus handles queue snapshot requests
// @Summary Queue status
// @Description Report queue depth, in-flight doc ids, and terminal counts
// @Tags queue
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Success 200 {object} models.QueueStatus
// @Router /api/kb/queue/status [get]
func (h *DocumentHandler) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := userToken(r); err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	status, err := h.manager.QueueStatus(r.Context())
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, status)
}

// GetWorkerStats handles worker statistics requests
// @Summary Worker statistics
// @Description Report per-worker task counts and timing
// @Tags queue
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Success 200 {object} WorkerStatsResponse
// @Router /api/kb/queue/workers [get]
func (h *DocumentHandler) GetWorkerStats(w http.ResponseWriter, r *http.Request) {
	if _, err := userToken(r); err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, WorkerStatsResponse{
		Workers: h.manager.WorkerStats(),
	})
}

// ListFiles handles requests to list the user's stored files
// @Summary List stored files
// @Description List the user's original files with processed flags
// @Tags files
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Success 200 {object} FileListResponse
// @Router /api/kb/files [get]
func (h *DocumentHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	files, err := h.manager.ListUserFiles(r.Context(), token)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, FileListResponse{
		Files: files,
		Count: len(files),
	})
}

// GetStorageInfo handles storage footprint requests
// @Summary Storage info
// @Description Report the user's on-disk byte totals
// @Tags files
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Success 200 {object} models.UserStorageInfo
// @Router /api/kb/storage [get]
func (h *DocumentHandler) GetStorageInfo(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	info, err := h.manager.UserStorageInfo(r.Context(), token)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, info)
}

// DeleteUser handles tenant removal
// @Summary Delete user
// @Description Remove the user's records, collections, files, and vector index
// @Tags users
// @Produce json
// @Param Authorization header string true "Bearer user token"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/kb/user [delete]
func (h *DocumentHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	token, err := userToken(r)
	if err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.logger.Printf("Delete user request for %s", token)

	if err := h.manager.DeleteUser(r.Context(), token); err != nil {
		h.sendError(w, statusForError(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "User deleted successfully",
	})
}

// Helper methods

func (h *DocumentHandler) getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func (h *DocumentHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *DocumentHandler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// Response types

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type UploadResponse struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

type UploadListResponse struct {
	Uploads []models.UploadRecordDTO `json:"uploads"`
	Count   int                      `json:"count"`
}

type FileListResponse struct {
	Files []models.UserFileInfo `json:"files"`
	Count int                   `json:"count"`
}

type WorkerStatsResponse struct {
	Workers []workers.WorkerStats `json:"workers"`
}
