package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/grovekit/grove/internal/blob"
	"github.com/grovekit/grove/internal/ingest"
	"github.com/grovekit/grove/internal/log"
	"github.com/grovekit/grove/internal/store"
)

// MaxUploadBytes bounds one uploaded file.
const MaxUploadBytes = 32 << 20 // 32 MiB

// uploadBucket is where raw document bytes land in the object store.
const uploadBucket = "uploads"

// Ingestor runs the ingestion pipeline for one uploaded document.
type Ingestor interface {
	Run(ctx context.Context, req ingest.Request) (ingest.Response, error)
}

// DocumentStore is the persistence surface the document endpoints need.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc store.Document) error
	GetDocument(ctx context.Context, ownerID, documentID string) (store.Document, error)
	ListDocumentsByOwner(ctx context.Context, ownerID string) ([]store.Document, error)
	CountChunksByDocument(ctx context.Context, ownerID, documentID string) (int, error)
}

// DocumentHandler handles upload, listing and status endpoints.
type DocumentHandler struct {
	blobs    blob.Store
	store    DocumentStore
	ingestor Ingestor
	logger   log.Logger
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(blobs blob.Store, st DocumentStore, ingestor Ingestor, logger log.Logger) *DocumentHandler {
	return &DocumentHandler{blobs: blobs, store: st, ingestor: ingestor, logger: logger}
}

// RegisterRoutes registers document routes on the mux.
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.upload)
	mux.HandleFunc("GET /api/v1/documents", h.list)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.get)
}

// DocumentResponse is the status-poll body.
type DocumentResponse struct {
	DocumentID  string    `json:"document_id"`
	DisplayName string    `json:"display_name"`
	MimeType    string    `json:"mime_type"`
	Status      string    `json:"status"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// upload accepts a multipart file, stores the bytes, and runs the
// ingestion pipeline. The response carries the final document status, so
// a failed extraction surfaces here as status "failed", not as a 500.
func (h *DocumentHandler) upload(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", "reading upload: "+err.Error())
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	docID := uuid.NewString()
	loc := blob.Locator{Bucket: uploadBucket, Key: owner + "/" + docID + "/" + filepath.Base(header.Filename)}
	if err := loc.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	ctx := r.Context()
	if err := h.blobs.Upload(ctx, loc, data, mimeType); err != nil {
		h.logger.Error("blob upload failed", "error", err, "locator", loc)
		writeError(w, http.StatusInternalServerError, "upload_failed", "could not store file")
		return
	}

	doc := store.Document{
		ID:          docID,
		OwnerID:     owner,
		DisplayName: header.Filename,
		MimeType:    mimeType,
		Status:      store.StatusUploaded,
		Bucket:      loc.Bucket,
		Key:         loc.Key,
	}
	if err := h.store.CreateDocument(ctx, doc); err != nil {
		h.logger.Error("document create failed", "error", err, "document_id", docID)
		writeError(w, http.StatusInternalServerError, "persistence_failed", "could not record document")
		return
	}

	resp, err := h.ingestor.Run(ctx, ingest.Request{
		OwnerID:     owner,
		DocumentID:  docID,
		DisplayName: header.Filename,
		MimeType:    mimeType,
		Locator:     loc,
	})
	if err != nil {
		// The document row survives with status failed; report that rather
		// than a bare error so the client can poll or re-upload.
		h.logger.Warn("ingestion failed", "error", err, "document_id", docID)
		writeJSON(w, http.StatusUnprocessableEntity, ingest.Response{
			DocumentID: docID,
			Status:     string(store.StatusFailed),
		})
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// get returns one document's processing status and chunk count.
func (h *DocumentHandler) get(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	docID := r.PathValue("id")

	doc, err := h.store.GetDocument(r.Context(), owner, docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		h.logger.Error("document read failed", "error", err, "document_id", docID)
		writeError(w, http.StatusInternalServerError, "persistence_failed", "could not read document")
		return
	}

	count, err := h.store.CountChunksByDocument(r.Context(), owner, docID)
	if err != nil {
		h.logger.Error("chunk count failed", "error", err, "document_id", docID)
		writeError(w, http.StatusInternalServerError, "persistence_failed", "could not count chunks")
		return
	}

	writeJSON(w, http.StatusOK, documentResponse(doc, count))
}

// list returns all of the owner's documents, newest first.
func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	docs, err := h.store.ListDocumentsByOwner(r.Context(), owner)
	if err != nil {
		h.logger.Error("document list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "persistence_failed", "could not list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentResponse(doc, 0))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": out,
		"total":     len(out),
	})
}

func documentResponse(doc store.Document, chunkCount int) DocumentResponse {
	return DocumentResponse{
		DocumentID:  doc.ID,
		DisplayName: doc.DisplayName,
		MimeType:    doc.MimeType,
		Status:      string(doc.Status),
		ChunkCount:  chunkCount,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
