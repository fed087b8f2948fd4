package propshttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"props-bible/props"
)

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermImages) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	if err := parseMultipartFormLimited(w, r, h.maxUpload); err != nil {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "props.fileRequired")
		return
	}
	defer file.Close()
	img, err := h.svc.AddImage(r.Context(), p, header.Filename, header.Header.Get("Content-Type"), r.FormValue("caption"), file)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	props.Log(h.audits, r.Context(), user.Username, props.AuditImageAdd, fmt.Sprintf("prop=%d key=%s", p.ID, img.Key))
	respondJSON(w, http.StatusCreated, img)
}

type imageKeyPayload struct {
	Key string `json:"key"`
}

func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermImages) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	if err := h.svc.RemoveImage(r.Context(), p, key); err != nil {
		respondServiceError(w, err)
		return
	}
	props.Log(h.audits, r.Context(), user.Username, props.AuditImageDelete, fmt.Sprintf("prop=%d key=%s", p.ID, key))
	respondJSON(w, http.StatusOK, present(acc, p))
}

func (h *Handler) SetMainImage(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	if !acc.Can(props.PermImages) {
		respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	var payload imageKeyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Key == "" {
		respondError(w, http.StatusBadRequest, "bad request")
		return
	}
	if err := h.svc.SetMainImage(r.Context(), p, payload.Key); err != nil {
		respondServiceError(w, err)
		return
	}
	props.Log(h.audits, r.Context(), user.Username, props.AuditImageMain, fmt.Sprintf("prop=%d key=%s", p.ID, payload.Key))
	respondJSON(w, http.StatusOK, present(acc, p))
}

func (h *Handler) Label(w http.ResponseWriter, r *http.Request) {
	user, acc, ok := h.showAccess(w, r)
	if !ok {
		return
	}
	p, ok := h.loadProp(w, r, user, acc)
	if !ok {
		return
	}
	png, err := h.svc.Label(p, parseIntDefault(r.URL.Query().Get("size"), 0))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(png)
}
