package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/faizansabir7/fileTransfer/internal/events"
	"github.com/faizansabir7/fileTransfer/internal/history"
	"github.com/faizansabir7/fileTransfer/internal/registry"
)

const (
	// maxUploadSize caps a single upload at 500 MB.
	maxUploadSize = 500 << 20
	// multipartMemory keeps small uploads in memory; larger parts spill to disk.
	multipartMemory = 32 << 20
)

// handleUpload handles POST /api/upload: accept a complete multipart file
// body and register it in the catalog. Any client-supplied fileId is advisory
// only; the authoritative id is generated server-side and returned.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	if hint := r.FormValue("fileId"); hint != "" {
		log.Printf("[server] ignoring client-suggested file id %q", hint)
	}

	f, err := s.catalog.Add(filepath.Base(header.Filename), mimeType, content)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrEmptyName):
			writeError(w, http.StatusBadRequest, "filename is required")
		case errors.Is(err, registry.ErrCapacity):
			writeError(w, http.StatusRequestEntityTooLarge, "storage space exhausted")
		default:
			writeError(w, http.StatusInternalServerError, "failed to store file")
		}
		return
	}

	log.Printf("[server] file shared: %s (%d bytes) from %s", f.Name, f.Size, getIP(r))
	s.record(history.EventUpload, f, r)
	s.broadcast(events.FileAdded, fileMeta(f))

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"file":   fileMeta(f),
	})
}

// handleListFiles handles GET /api/files, returning the catalog without content.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files := s.catalog.List()
	result := make([]map[string]any, len(files))
	for i, f := range files {
		result[i] = fileMeta(f)
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": result})
}

// handleDownload handles GET /api/download/{id}. Content is streamed with
// accurate length headers so clients can report progress; Range requests get
// 206 responses via http.ServeContent.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f, err := s.catalog.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	contentType := f.MimeType
	// Mobile browsers handle forced downloads more reliably as octet-stream.
	if isMobile(r.UserAgent()) {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sanitizeFilename(f.Name)))
	w.Header().Set("ETag", `"`+f.Checksum+`"`)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	s.record(history.EventDownload, f, r)

	// ServeContent handles Range (206), HEAD, and Content-Length from the
	// reader size. Content is immutable after upload, so no locking here.
	http.ServeContent(w, r, "", time.Unix(f.UploadedAt, 0), bytes.NewReader(f.Content))
}

// handleRemoveFile handles DELETE /api/remove-file/{id}.
func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f, err := s.catalog.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err := s.catalog.Remove(id); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	log.Printf("[server] file removed: %s", f.Name)
	s.record(history.EventRemove, f, r)
	s.broadcast(events.FileRemoved, map[string]string{"id": id})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// fileMeta builds the catalog listing entry for a file.
func fileMeta(f *registry.SharedFile) map[string]any {
	return map[string]any{
		"id":          f.ID,
		"name":        f.Name,
		"size":        f.Size,
		"type":        f.MimeType,
		"checksum":    f.Checksum,
		"uploaded_at": f.UploadedAt,
	}
}

// sanitizeFilename strips directory traversal, quotes, and CR/LF from a
// filename to prevent Content-Disposition header injection.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "download"
	}
	return name
}

// isMobile reports whether the User-Agent looks like a phone or tablet browser.
func isMobile(ua string) bool {
	ua = strings.ToLower(ua)
	for _, marker := range []string{"mobile", "android", "iphone", "ipad"} {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}
