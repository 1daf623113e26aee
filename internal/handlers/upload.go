package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/AnshRaj112/newsdesk-backend/internal/services"
	"go.uber.org/zap"
)

const multipartMemory = 8 << 20

// UploadHandler serves POST and DELETE /uploads.
type UploadHandler struct {
	uploads  *services.UploadService
	tempDir  string
	maxBytes int64
	logger   *zap.Logger
}

// NewUploadHandler spools uploaded files into tempDir; "" means os.TempDir.
func NewUploadHandler(uploads *services.UploadService, tempDir string, maxBytes int64, logger *zap.Logger) *UploadHandler {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &UploadHandler{uploads: uploads, tempDir: tempDir, maxBytes: maxBytes, logger: logger}
}

type batchFailure struct {
	Error string                `json:"error"`
	Items []services.ItemResult `json:"items"`
}

// Upload handles POST /uploads with one or more "images" parts. Each file
// gets its own result, in the order sent.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, http.StatusRequestEntityTooLarge, "Images too large")
			return
		}
		writeError(w, h.logger, http.StatusUnprocessableEntity, "Images required")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		writeError(w, h.logger, http.StatusUnprocessableEntity, "Images required")
		return
	}

	files := make([]services.UploadFile, 0, len(headers))
	defer func() {
		// stored files were moved away; this only removes leftovers
		for _, f := range files {
			_ = os.Remove(f.Path)
		}
	}()
	for _, fh := range headers {
		path, err := h.spool(fh)
		if err != nil {
			logFailure(h.logger, r, "Error spooling upload", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Couldn't save images")
			return
		}
		files = append(files, services.UploadFile{Name: fh.Filename, Path: path})
	}

	res, err := h.uploads.SaveImages(r.Context(), files)
	if err != nil {
		writeError(w, h.logger, http.StatusUnprocessableEntity, "Images required")
		return
	}

	status := res.Status()
	if status == http.StatusUnprocessableEntity {
		writeJSON(w, h.logger, status, batchFailure{Error: "Couldn't save images", Items: res.Items})
		return
	}
	writeJSON(w, h.logger, status, res.Items)
}

func (h *UploadHandler) spool(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open part: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.tempDir, "upload-*"+filepath.Ext(filepath.Base(fh.Filename)))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return dst.Name(), nil
}

type deleteFilesRequest struct {
	Images string `json:"images"`
}

type successResponse struct {
	Success string `json:"success"`
}

// Delete handles DELETE /uploads with a body of {"images": "path1,path2"}.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteFilesRequest
	_ = decodeJSON(r, &req)

	err := h.uploads.DeleteFiles(r.Context(), req.Images)
	switch {
	case errors.Is(err, services.ErrNoImagesProvided):
		writeError(w, h.logger, http.StatusUnprocessableEntity, "No images found in request")
	case err != nil:
		logFailure(h.logger, r, "Error deleting images", err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, "Couldn't delete images")
	default:
		writeJSON(w, h.logger, http.StatusOK, successResponse{Success: "Images deleted"})
	}
}
