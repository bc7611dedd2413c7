package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mshelf/internal/filestore"
	"github.com/xxxsen/mshelf/internal/gateway"
	"github.com/xxxsen/mshelf/internal/pkg/errcode"
	appErr "github.com/xxxsen/mshelf/internal/pkg/errors"
	"github.com/xxxsen/mshelf/internal/pkg/response"
)

const defaultSignedTTL = time.Hour

type ObjectHandler struct {
	store     filestore.Store
	maxUpload int64
	maxTTL    time.Duration
}

func NewObjectHandler(store filestore.Store, maxUpload int64, maxTTL time.Duration) *ObjectHandler {
	if maxTTL <= 0 {
		maxTTL = defaultSignedTTL
	}
	return &ObjectHandler{store: store, maxUpload: maxUpload, maxTTL: maxTTL}
}

type objectResponse struct {
	Path string `json:"path"`
}

type urlResponse struct {
	URL string `json:"url"`
}

// ownedPath returns the path query parameter when it lies in the caller's
// namespace and aborts the request otherwise.
func (h *ObjectHandler) ownedPath(c *gin.Context) (string, bool) {
	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		badRequest(c, "path is required")
		return "", false
	}
	if !gateway.OwnsPath(getUserID(c), path) {
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "path outside of caller namespace")
		return "", false
	}
	return path, true
}

func (h *ObjectHandler) Put(c *gin.Context) {
	path, ok := h.ownedPath(c)
	if !ok {
		return
	}
	if h.maxUpload > 0 {
		// multipart framing needs some room on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "file is required")
		return
	}
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		response.Error(c, http.StatusRequestEntityTooLarge, errcode.ErrInvalidFile, "file exceeds the "+formatUploadLimit(h.maxUpload)+" upload limit")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		detected, err := mimetype.DetectReader(file)
		if err != nil {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to read file")
			return
		}
		contentType = detected.String()
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalidFile, "failed to read file")
			return
		}
	}

	stored, err := h.store.Put(c.Request.Context(), path, file, header.Size, contentType)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("object put failed",
			zap.String("path", path),
			zap.String("store", h.store.Type()),
			zap.Error(err),
		)
		if appErr.IsInvalid(err) {
			handleError(c, err)
			return
		}
		response.Error(c, http.StatusBadGateway, errcode.ErrUploadFailed, "failed to store object")
		return
	}
	response.Success(c, objectResponse{Path: stored})
}

func (h *ObjectHandler) Remove(c *gin.Context) {
	path, ok := h.ownedPath(c)
	if !ok {
		return
	}
	if err := h.store.Remove(c.Request.Context(), path); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ObjectHandler) Signed(c *gin.Context) {
	path, ok := h.ownedPath(c)
	if !ok {
		return
	}
	ttl := defaultSignedTTL
	if raw := c.Query("ttl"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs <= 0 {
			badRequest(c, "ttl must be a positive number of seconds")
			return
		}
		ttl = time.Duration(secs) * time.Second
	}
	if ttl > h.maxTTL {
		ttl = h.maxTTL
	}
	url, err := h.store.SignedURL(c.Request.Context(), path, ttl)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, urlResponse{URL: url})
}

func (h *ObjectHandler) Public(c *gin.Context) {
	path, ok := h.ownedPath(c)
	if !ok {
		return
	}
	url, err := h.store.PublicURL(c.Request.Context(), path)
	if err != nil {
		if appErr.IsForbidden(err) {
			response.Error(c, http.StatusForbidden, errcode.ErrPublicAccessDisabled, "public access disabled")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, urlResponse{URL: url})
}

// Blob serves a binary of a store that signs its own urls.
func (h *ObjectHandler) Blob(c *gin.Context) {
	verifier, ok := filestore.As[filestore.TokenVerifier](h.store)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if err := verifier.VerifyToken(key, c.Query("token")); err != nil {
		handleError(c, err)
		return
	}
	h.serve(c, key)
}

// PublicBlob serves a binary without a token when the store allows it.
func (h *ObjectHandler) PublicBlob(c *gin.Context) {
	pub, ok := filestore.As[interface{ PublicEnabled() bool }](h.store)
	if !ok || !pub.PublicEnabled() {
		c.Status(http.StatusNotFound)
		return
	}
	h.serve(c, strings.TrimPrefix(c.Param("key"), "/"))
}

func (h *ObjectHandler) serve(c *gin.Context, key string) {
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		handleError(c, err)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=300")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("blob write failed", zap.String("key", key), zap.Error(err))
	}
}

func formatUploadLimit(bytes int64) string {
	const kb, mb = 1024, 1024 * 1024
	switch {
	case bytes >= mb:
		return strconv.FormatInt(bytes/mb, 10) + "MB"
	case bytes >= kb:
		return strconv.FormatInt(bytes/kb, 10) + "KB"
	default:
		return strconv.FormatInt(bytes, 10) + "B"
	}
}
