package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/grovekit/grove/internal/log"
	"github.com/grovekit/grove/internal/query"
)

// MaxQueryBytes bounds the query request body.
const MaxQueryBytes = 64 << 10 // 64 KiB

// Querier answers one question against an owner's corpus.
type Querier interface {
	Run(ctx context.Context, req query.Request) (query.Response, error)
}

// QueryHandler handles the question-answering endpoint.
type QueryHandler struct {
	querier Querier
	logger  log.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(querier Querier, logger log.Logger) *QueryHandler {
	return &QueryHandler{querier: querier, logger: logger}
}

// RegisterRoutes registers query routes on the mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/query", h.ask)
}

// ask answers a question. Degraded responses (provider fallback) are still
// 200s: the caveat lives in the body, not the status code.
func (h *QueryHandler) ask(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req query.Request
	body := http.MaxBytesReader(w, r.Body, MaxQueryBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.OwnerID = owner

	resp, err := h.querier.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, query.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "invalid_request", "query text is required")
			return
		}
		h.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query_failed", "could not answer query")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
