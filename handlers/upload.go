package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/milosamec/engravape/middleware"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

type UploadHandler struct {
	dir      string
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
}

func NewUploadHandler(dir string, maxBytes int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		dir:      dir,
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger,
	}
}

// UploadImage stores the multipart "image" field and answers with its public path.
// Both the extension and the sniffed content type must name a jpeg or png.
func (h *UploadHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No image uploaded or file too large"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	want, ok := allowedImageTypes[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Images only (jpg, jpeg, png)"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unreadable upload"})
		return
	}
	detected, err := mimetype.DetectReader(file)
	file.Close()
	if err != nil || !detected.Is(want) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Images only (jpg, jpeg, png)"})
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		respondError(c, fmt.Errorf("create upload dir: %w", err))
		return
	}

	name := fmt.Sprintf("image-%d%s", h.now().UnixMilli(), ext)
	if err := c.SaveUploadedFile(header, filepath.Join(h.dir, name)); err != nil {
		respondError(c, fmt.Errorf("save upload: %w", err))
		return
	}

	h.logger.Info("Image uploaded",
		zap.String("trace_id", middleware.GetTraceID(c.Request.Context())),
		zap.String("file", name),
		zap.String("content_type", detected.String()),
	)
	c.String(http.StatusOK, "/uploads/"+name)
}
