package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/portfolio/backend/internal/model"
	"github.com/portfolio/backend/internal/repository"
	"github.com/portfolio/backend/internal/service"
	"github.com/portfolio/backend/pkg/auth"
)

// Client-facing messages. Internal error detail is logged, never returned.
const (
	msgSubmitted      = "Message sent successfully!"
	msgFieldsRequired = "All fields are required."
	msgServerError    = "Server error, please try again later."
	msgInvalidBody    = "Invalid request body."
	msgNotFound       = "Message not found."
	msgUnauthorized   = "Unauthorized."
)

// DefaultMaxBodyBytes caps the POST /api/contact body when no limit is configured.
const DefaultMaxBodyBytes = 100 << 10

// ContactHandler handles contact form submission and admin reads.
type ContactHandler struct {
	contactService service.ContactService
	maxBodyBytes   int64
}

// NewContactHandler creates a ContactHandler with the given service.
func NewContactHandler(contactService service.ContactService, maxBodyBytes int64) *ContactHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &ContactHandler{contactService: contactService, maxBodyBytes: maxBodyBytes}
}

type messageResponse struct {
	Message string `json:"message"`
}

type submitResponse struct {
	Message string                `json:"message"`
	Data    *model.ContactMessage `json:"data"`
}

// Submit handles POST /api/contact.
// name, email and message are required; the email format is enforced by the store.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.ContactSubmission
	// An empty body carries no fields; let validation report them as missing.
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		slog.WarnContext(r.Context(), "contact: invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgInvalidBody})
		return
	}

	msg, err := h.contactService.Submit(r.Context(), req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			slog.InfoContext(r.Context(), "contact: rejected submission", "missing", ve.Missing)
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: msgFieldsRequired})
			return
		}
		slog.ErrorContext(r.Context(), "contact: save failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgServerError})
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{Message: msgSubmitted, Data: msg})
}

// adminListResponse is the JSON response for GET /api/admin/contacts.
type adminListResponse struct {
	Messages []*model.ContactMessage `json:"messages"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

// requireAdmin reports whether the request passed auth.RequireAdminToken,
// answering 401 itself when it did not.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !auth.IsAdminFromContext(r.Context()) {
		slog.WarnContext(r.Context(), "contact: admin route reached without admin context", "path", r.URL.Path)
		writeJSON(w, http.StatusUnauthorized, messageResponse{Message: msgUnauthorized})
		return false
	}
	return true
}

// AdminList handles GET /api/admin/contacts (admin only).
// Supports query params: limit, offset. Newest first.
func (h *ContactHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	var opts model.ContactListOptions
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			opts.Limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			opts.Offset = n
		}
	}
	opts = opts.Normalized()

	messages, err := h.contactService.List(r.Context(), opts)
	if err != nil {
		slog.ErrorContext(r.Context(), "contact: list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgServerError})
		return
	}

	// Return [] not null for empty lists
	if messages == nil {
		messages = []*model.ContactMessage{}
	}

	writeJSON(w, http.StatusOK, adminListResponse{Messages: messages, Limit: opts.Limit, Offset: opts.Offset})
}

// AdminGet handles GET /api/admin/contacts/{id} (admin only).
func (h *ContactHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	msg, err := h.contactService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, messageResponse{Message: msgNotFound})
			return
		}
		slog.ErrorContext(r.Context(), "contact: get failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: msgServerError})
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
