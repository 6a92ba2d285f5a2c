package http

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/collegify/collegify/internal/college"
	"github.com/collegify/collegify/internal/httpx"
	"github.com/collegify/collegify/internal/storage"
)

const maxImageBytes = 10 << 20

// MountAssets serves stored blobs publicly at /*.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, storage.ErrBadKey) {
				httpx.Error(w, http.StatusNotFound, "Asset not found")
				return
			}
			httpx.Error(w, http.StatusInternalServerError, "Server error")
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}

// UploadCollegeImageHandler stores the multipart "file" field and appends
// its URL to the college's image list.
func UploadCollegeImageHandler(store college.Store, bs storage.BlobStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := collegeID(w, r)
		if !ok {
			return
		}
		if _, err := store.Get(r.Context(), id); err != nil {
			if errors.Is(err, college.ErrNotFound) {
				httpx.Error(w, http.StatusNotFound, "College not found")
				return
			}
			serverError(w, log, "get college", err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
		f, _, err := r.FormFile("file")
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "file required")
			return
		}
		defer f.Close()

		url, err := storage.PutImage(bs, id, f)
		if errors.Is(err, storage.ErrNotImage) {
			httpx.Error(w, http.StatusBadRequest, "Only image uploads are allowed")
			return
		}
		if err != nil {
			serverError(w, log, "store image", err)
			return
		}
		c, err := store.AppendImage(r.Context(), id, url)
		if err != nil {
			serverError(w, log, "append image", err)
			return
		}
		log.Info("college image uploaded", zap.Int64("college_id", id), zap.String("url", url))
		httpx.JSON(w, http.StatusCreated, map[string]any{"url": url, "college": c})
	}
}
