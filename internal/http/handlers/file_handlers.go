package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/accounts-api/internal/apperr"
	"github.com/diagnosis/accounts-api/internal/domain"
	"github.com/diagnosis/accounts-api/internal/http/response"
	"github.com/diagnosis/accounts-api/internal/service"
)

func (h *Handlers) PresignUpload(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req domain.PresignRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		return err
	}

	resp, err := h.files.Presign(r.Context(), user.ID, &req)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusOK, resp)
	return nil
}

func (h *Handlers) SaveFile(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req domain.SaveFileRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		return err
	}

	file, err := h.files.SaveMetadata(r.Context(), user.ID, &req)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusCreated, map[string]any{
		"success": true,
		"file":    file,
	})
	return nil
}

// UploadFile accepts a multipart "file" field and stores it in the bucket.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes)
	if err := r.ParseMultipartForm(h.uploadMaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("File too large", map[string]string{"file": "exceeds the upload size limit"})
		}
		return apperr.Validation("Invalid multipart form", map[string]string{"file": "is required"})
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		return apperr.Validation("Invalid request body", map[string]string{"file": "is required"})
	}
	defer part.Close()

	file, err := h.files.Upload(r.Context(), user.ID, service.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        part,
	})
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusCreated, map[string]any{
		"success": true,
		"file":    file,
	})
	return nil
}

func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	files, err := h.files.List(r.Context(), user.ID)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"files":   files,
	})
	return nil
}
