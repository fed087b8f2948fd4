package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"props-bible/core/jobroles"
	"props-bible/core/objectstore"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/utils"

	"github.com/go-chi/chi/v5"
)

// FilesHandler streams stored objects that belong to a show: prop images and logos.
type FilesHandler struct {
	objects objectstore.Store
	logger  *utils.Logger
	scope   showScope
}

func NewFilesHandler(users store.UsersStore, shows store.ShowsStore, policy *rbac.Policy, objects objectstore.Store, logger *utils.Logger) *FilesHandler {
	return &FilesHandler{objects: objects, logger: logger, scope: showScope{users: users, shows: shows, policy: policy}}
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeObjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, objectstore.ErrTooLarge):
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, objectstore.ErrUnsupported):
		http.Error(w, "files.unsupportedType", http.StatusUnsupportedMediaType)
	case errors.Is(err, objectstore.ErrInvalidKey):
		http.Error(w, "bad request", http.StatusBadRequest)
	case errors.Is(err, objectstore.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func (h *FilesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := h.scope.require(w, r, jobroles.ActionViewShows)
	if !ok {
		return
	}
	key := chi.URLParam(r, "*")
	if !objectstore.ValidKey(key) || !strings.HasPrefix(key, fmt.Sprintf("shows/%d/", acc.Show.ID)) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	rc, obj, err := h.objects.Get(r.Context(), key)
	if err != nil {
		writeObjectError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if obj.ContentType == "image/svg+xml" {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil && h.logger != nil {
		h.logger.Debugf("file stream %s: %v", key, err)
	}
}
