package routes

import (
	"errors"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"layout-snapshot/internal/myhttp"
	"layout-snapshot/internal/storage"
)

// ReadArtifact serves a stored image, e.g. GET /artifacts/reference/home-diff.png.
func ReadArtifact(storageClient storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		if !validKey(key) {
			http.Error(w, "Invalid artifact key", http.StatusBadRequest)
			return
		}

		data, err := storageClient.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			myhttp.Logger(r.Context()).Error("failed to read artifact", "key", key, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		contentType := "application/octet-stream"
		if strings.HasSuffix(key, ".png") {
			contentType = "image/png"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// validKey reports whether key stays inside the storage root.
func validKey(key string) bool {
	if key == "" || path.IsAbs(key) || filepath.IsAbs(key) || strings.HasPrefix(key, `\`) {
		return false
	}
	for _, segment := range strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return false
		}
	}
	return true
}
