package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/incidents"
	"github.com/kiranshivaraju/loghunter/internal/storage"
)

// AttachmentHandler exposes the multipart upload and delete endpoints
// under /api/incidents/{id}/attachments.
type AttachmentHandler struct {
	svc      *incidents.Service
	uploader *storage.Uploader
}

func NewAttachmentHandler(svc *incidents.Service, uploader *storage.Uploader) *AttachmentHandler {
	return &AttachmentHandler{svc: svc, uploader: uploader}
}

const maxUploadMemory = 32 << 20 // 32 MiB held in memory before spilling to disk

func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	incidentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid incident id", nil)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid multipart body", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "file field is required", nil)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.Key(header.Filename)
	storageURL, err := h.uploader.Upload(r.Context(), key, contentType, file)
	if err != nil {
		response.Error(w, http.StatusBadGateway, "STORAGE_UNAVAILABLE", "failed to store attachment", nil)
		return
	}

	attachment, err := h.svc.UploadAttachment(r.Context(), tc, incidentID, header.Filename, contentType, header.Size, storageURL)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, attachment)
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	incidentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid incident id", nil)
		return
	}
	attachmentID, err := uuid.Parse(chi.URLParam(r, "aid"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid attachment id", nil)
		return
	}

	if err := h.svc.DeleteAttachment(r.Context(), tc, incidentID, attachmentID); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, map[string]bool{"success": true})
}
