package file

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/adilzh/filedrop/internal/identity"
	"github.com/adilzh/filedrop/internal/metrics"
)

// RegisterRoutes mounts file operations. Download is public by storage
// key and goes on the open group; everything else requires a resolved
// bearer token and goes on the protected group.
func RegisterRoutes(public, protected *gin.RouterGroup, service *Service, publicBaseURL string) {
	handler := &httpHandler{
		service:      service,
		downloadBase: publicBaseURL + public.BasePath(),
	}

	public.GET("/files/:storageKey/download", handler.downloadFile)

	protected.POST("/files", handler.uploadFile)
	protected.GET("/files", handler.listFiles)
	protected.PUT("/files/:storageKey/password", handler.setPassword)
	protected.DELETE("/files/:storageKey", handler.deleteFile)
}

type httpHandler struct {
	service      *Service
	downloadBase string
}

type uploadResponse struct {
	ID           int64  `json:"id"`
	OriginalName string `json:"original_name"`
	StorageKey   string `json:"storage_key"`
	DownloadURL  string `json:"download_url"`
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	owner, ok := identity.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	rec, err := h.service.Upload(c.Request.Context(), owner, fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload file"})
		return
	}

	metrics.UploadsTotal.Inc()

	c.JSON(http.StatusCreated, uploadResponse{
		ID:           rec.ID,
		OriginalName: rec.OriginalName,
		StorageKey:   rec.StorageKey,
		DownloadURL:  fmt.Sprintf("%s/files/%s/download", h.downloadBase, rec.StorageKey),
	})
}

func (h *httpHandler) listFiles(c *gin.Context) {
	owner, ok := identity.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	records, err := h.service.List(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}
	if records == nil {
		records = []Record{}
	}

	c.JSON(http.StatusOK, gin.H{"files": records})
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	key := c.Param("storageKey")

	password := c.Query("password")
	if password == "" {
		password = c.GetHeader("X-File-Password")
	}

	rec, reader, err := h.service.Download(c.Request.Context(), key, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		case errors.Is(err, ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "wrong or missing password"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download file"})
		}
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentTypeForKey(rec.StorageKey))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.OriginalName))

	if _, err := io.Copy(c.Writer, reader); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	metrics.DownloadsTotal.Inc()
}

type setPasswordRequest struct {
	Password string `json:"password" binding:"required,max=128"`
}

func (h *httpHandler) setPassword(c *gin.Context) {
	owner, ok := identity.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	key := c.Param("storageKey")
	if err := h.service.SetPassword(c.Request.Context(), owner, key, req.Password); err != nil {
		if errors.Is(err, ErrNotFoundOrForbidden) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	owner, ok := identity.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	key := c.Param("storageKey")
	if err := h.service.Delete(c.Request.Context(), owner, key); err != nil {
		if errors.Is(err, ErrNotFoundOrForbidden) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": key})
}

func contentTypeForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
