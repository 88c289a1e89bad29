package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/minhngodev/campus-api/pkg/storage"
)

// Max upload size: 5MB (notification images are small banners/icons)
const maxUploadSize = 5 << 20

// Allowed MIME types
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadHandler handles notification image uploads
type UploadHandler struct {
	storage *storage.MinIOStorage
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(storage *storage.MinIOStorage) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// UploadImage godoc
// @Summary Upload a notification image
// @Description Upload an image to storage and get back a public URL usable as a dispatch image_url. Supports jpg, png, gif, webp.
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image to upload"
// @Success 200 {object} model.UploadResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 413 {object} model.ErrorResponse
// @Router /upload [post]
func (h *UploadHandler) UploadImage(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "Image storage not configured"})
		return
	}

	// Limit request body size
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		if err.Error() == "http: request body too large" {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "File too large (max 5MB)"})
			return
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "File is required", Message: err.Error()})
		return
	}
	defer file.Close()

	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "Unsupported file type",
			Message: "Allowed: jpg, png, gif, webp",
		})
		return
	}

	result, err := h.storage.Upload(c.Request.Context(), file, header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to upload file", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		URL:      result.URL,
		FileName: result.FileName,
		Size:     result.FileSize,
		MimeType: result.MimeType,
	})
}
