// Package api exposes the upload planning and completion operations over
// HTTP+JSON on a CORS-enabled chi router. The same router serves the
// standalone server and the Lambda binding.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/skylift/uploader/internal/upload"
)

// Handler holds the upload service behind the HTTP endpoints.
type Handler struct {
	service *upload.Service
}

// NewHandler creates the HTTP handler for an upload service.
func NewHandler(service *upload.Service) *Handler {
	return &Handler{service: service}
}

// Router creates and configures the chi router.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()

	// Middleware for all routes
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Amz-Date", "Authorization", "X-Api-Key", "X-Amz-Security-Token"},
	}))

	// API routes
	r.Route("/upload", func(r chi.Router) {
		r.Post("/plan", h.handlePlan)
		r.Post("/complete", h.handleComplete)
		r.Post("/abort", h.handleAbort)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// handlePlan answers plan requests with either a single presigned URL or a
// full multipart plan.
func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req upload.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.service.Plan(r.Context(), &req)
	if err != nil {
		writeServiceError(w, "Plan", err)
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

// handleComplete finalizes a multipart upload from the submitted receipts.
func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req upload.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Complete(r.Context(), &req)
	if err != nil {
		writeServiceError(w, "Complete", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAbort cancels an in-progress multipart upload.
func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request) {
	var req upload.AbortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Abort(r.Context(), &req); err != nil {
		writeServiceError(w, "Abort", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps service errors to status codes: validation failures
// are the caller's to fix (400), everything else is a backend problem (500).
func writeServiceError(w http.ResponseWriter, op string, err error) {
	if upload.IsValidation(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("%s error: %v", op, err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
