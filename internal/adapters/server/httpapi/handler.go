// Package httpapi provides the REST HTTP adapter for the board.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hylla/tavla/internal/adapters/server/common"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	board common.BoardService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// MoveRequest is the body of POST `/tasks/{id}/move`. A missing order appends.
type MoveRequest struct {
	Status string `json:"status"`
	Order  *int   `json:"order,omitempty"`
}

// DragRequest is the body of POST `/tasks/{id}/drag`, in board units.
type DragRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// NewHandler constructs one HTTP API adapter.
func NewHandler(board common.BoardService) *Handler {
	return &Handler{board: board}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.board == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "board service is not configured",
		})
		return
	}
	parts := strings.Split(normalizePath(r.URL.Path), "/")
	switch {
	case len(parts) == 1 && parts[0] == "projects":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListProjects(w, r)
	case len(parts) == 3 && parts[0] == "projects" && parts[2] == "tasks" && parts[1] != "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListTasks(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "tasks" && parts[1] != "" && (parts[2] == "move" || parts[2] == "drag"):
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		if parts[2] == "move" {
			h.handleMove(w, r, parts[1])
			return
		}
		h.handleDrag(w, r, parts[1])
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// handleListProjects serves GET `/projects`.
func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.board.ListProjectSummaries(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": common.ProjectViews(summaries),
	})
}

// handleListTasks serves GET `/projects/{id}/tasks`.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request, projectID string) {
	tasks, err := h.board.ListTasks(r.Context(), projectID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.BoardViewFrom(projectID, tasks))
}

// handleMove serves POST `/tasks/{id}/move`.
func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, taskID string) {
	var req MoveRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	order := app.AppendOrder
	if req.Order != nil {
		order = *req.Order
	}
	before, err := h.board.GetTask(r.Context(), taskID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.board.MoveTask(r.Context(), taskID, status, order)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewMoveResult(before.Status, task))
}

// handleDrag serves POST `/tasks/{id}/drag`.
func (h *Handler) handleDrag(w http.ResponseWriter, r *http.Request, taskID string) {
	var req DragRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	before, err := h.board.GetTask(r.Context(), taskID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.board.DragTask(r.Context(), taskID, req.DX, req.DY)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewMoveResult(before.Status, task))
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps service errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	code := common.ErrorCode(err)
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	switch code {
	case "not_found":
		writeJSONError(w, http.StatusNotFound, APIError{Code: code, Message: message})
	case "invalid_request":
		apiErr := APIError{Code: code, Message: message}
		if errors.Is(err, domain.ErrInvalidStatus) {
			apiErr.Hint = "status must be one of todo, in_progress, done"
		}
		writeJSONError(w, http.StatusBadRequest, apiErr)
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{Code: code, Message: message})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
