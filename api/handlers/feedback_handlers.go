package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"props-bible/config"
	"props-bible/core/objectstore"
	"props-bible/core/store"
	"props-bible/core/utils"
)

var feedbackKinds = map[string]struct{}{"bug": {}, "idea": {}, "question": {}, "other": {}}

const maxFeedbackMessage = 5000

type FeedbackHandler struct {
	cfg      *config.AppConfig
	feedback store.FeedbackStore
	objects  objectstore.Store
	audits   store.AuditStore
	logger   *utils.Logger
}

func NewFeedbackHandler(cfg *config.AppConfig, feedback store.FeedbackStore, objects objectstore.Store, audits store.AuditStore, logger *utils.Logger) *FeedbackHandler {
	return &FeedbackHandler{cfg: cfg, feedback: feedback, objects: objects, audits: audits, logger: logger}
}

type feedbackPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Page    string `json:"page"`
}

func (p *feedbackPayload) normalize() error {
	p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
	if p.Kind == "" {
		p.Kind = "other"
	}
	if _, ok := feedbackKinds[p.Kind]; !ok {
		return fmt.Errorf("feedback.badKind")
	}
	p.Message = strings.TrimSpace(p.Message)
	if p.Message == "" {
		return fmt.Errorf("feedback.messageRequired")
	}
	if len(p.Message) > maxFeedbackMessage {
		return fmt.Errorf("feedback.messageTooLong")
	}
	p.Page = strings.TrimSpace(p.Page)
	return nil
}

// Submit accepts JSON or a multipart form carrying an optional "screenshot" image.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	var payload feedbackPayload
	var screenshot multipart.File
	var shotHeader *multipart.FileHeader
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		maxBytes := int64(5 << 20)
		if h.cfg != nil && h.cfg.Storage.UploadMaxBytes > 0 {
			maxBytes = h.cfg.Storage.UploadMaxBytes
		}
		if !parseMultipart(w, r, maxBytes) {
			return
		}
		payload = feedbackPayload{Kind: r.FormValue("kind"), Message: r.FormValue("message"), Page: r.FormValue("page")}
		if f, hdr, err := r.FormFile("screenshot"); err == nil {
			screenshot, shotHeader = f, hdr
			defer f.Close()
		}
	} else if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := payload.normalize(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fb := &store.Feedback{UserID: sr.UserID, Kind: payload.Kind, Message: payload.Message, Page: payload.Page}
	if screenshot != nil {
		ct := shotHeader.Header.Get("Content-Type")
		if !objectstore.IsImage(ct) {
			http.Error(w, "files.unsupportedType", http.StatusUnsupportedMediaType)
			return
		}
		obj, err := h.objects.Put(r.Context(), fmt.Sprintf("feedback/%d", sr.UserID), shotHeader.Filename, ct, screenshot)
		if err != nil {
			writeObjectError(w, err)
			return
		}
		fb.ScreenshotKey = obj.Key
	}
	if _, err := h.feedback.Create(r.Context(), fb); err != nil {
		if fb.ScreenshotKey != "" {
			_ = h.objects.Delete(r.Context(), fb.ScreenshotKey)
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = h.audits.Log(r.Context(), sr.Username, "feedback.submit", fmt.Sprintf("feedback=%d kind=%s", fb.ID, fb.Kind))
	writeJSON(w, http.StatusCreated, fb)
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.ToLower(strings.TrimSpace(q.Get("status")))
	if status != "" && !knownFeedbackStatus(status) {
		http.Error(w, "feedback.badStatus", http.StatusBadRequest)
		return
	}
	items, err := h.feedback.List(r.Context(), status, parseIntDefault(q.Get("limit"), 100))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func knownFeedbackStatus(s string) bool {
	return s == store.FeedbackNew || s == store.FeedbackTriaged || s == store.FeedbackClosed
}

func (h *FeedbackHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	status := strings.ToLower(strings.TrimSpace(payload.Status))
	if !knownFeedbackStatus(status) {
		http.Error(w, "feedback.badStatus", http.StatusBadRequest)
		return
	}
	id := pathID(r, "id")
	if err := h.feedback.SetStatus(r.Context(), id, status); err != nil {
		notFoundOr500(w, err, "feedback.notFound")
		return
	}
	_ = h.audits.Log(r.Context(), sr.Username, "feedback.status", fmt.Sprintf("feedback=%d status=%s", id, status))
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func (h *FeedbackHandler) Screenshot(w http.ResponseWriter, r *http.Request) {
	fb, err := h.feedback.Get(r.Context(), pathID(r, "id"))
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if fb == nil || fb.ScreenshotKey == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	rc, obj, err := h.objects.Get(r.Context(), fb.ScreenshotKey)
	if err != nil {
		writeObjectError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
