package handlers

import (
	"io"
	"log"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
)

// DownloadFile handles GET /api/v1/sessions/{sessionID}/files/download?path=.
// The remote file is streamed over an SFTP channel on the session's
// connection.
func DownloadFile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	remotePath := r.URL.Query().Get("path")
	if remotePath == "" {
		writeErrors(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	sess, err := Sessions.Lookup(sessionID)
	if err != nil {
		writeBrokerError(w, err)
		return
	}

	ft, err := sess.Transport().OpenFileTransfer()
	if err != nil {
		writeErrors(w, http.StatusInternalServerError, "open file transfer: "+err.Error())
		return
	}
	defer ft.Close()

	rc, err := ft.Download(remotePath)
	if err != nil {
		writeErrors(w, http.StatusNotFound, err.Error())
		return
	}
	defer rc.Close()

	name := path.Base(remotePath)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("[handlers] download of %s aborted for session %s: %v", remotePath, sessionID, err)
	}
}

// UploadFile handles POST /api/v1/sessions/{sessionID}/files/upload?path=.
// The request body is streamed to the remote path.
func UploadFile(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	remotePath := r.URL.Query().Get("path")
	if remotePath == "" {
		writeErrors(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	sess, err := Sessions.Lookup(sessionID)
	if err != nil {
		writeBrokerError(w, err)
		return
	}

	ft, err := sess.Transport().OpenFileTransfer()
	if err != nil {
		writeErrors(w, http.StatusInternalServerError, "open file transfer: "+err.Error())
		return
	}
	defer ft.Close()

	if err := ft.Upload(remotePath, r.Body); err != nil {
		writeErrors(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"path": remotePath})
}
