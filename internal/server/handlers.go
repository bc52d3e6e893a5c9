package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kaiwa/internal/extract"
	"github.com/hyperjump/kaiwa/internal/ingest"
	"github.com/hyperjump/kaiwa/internal/models"
	"github.com/hyperjump/kaiwa/pkg/utils"
)

// handleUpload accepts a multipart batch of documents under the "files"
// field, replaces the upload directory's contents with it, and rebuilds the
// index from scratch. Files outside the extension whitelist are rejected
// before anything is written so a bad batch never clobbers the previous one.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files provided")
		return
	}
	for _, fh := range files {
		ext := filepath.Ext(fh.Filename)
		if !extract.Supported(ext) {
			s.respondError(w, http.StatusBadRequest, "unsupported file type: "+fh.Filename)
			return
		}
	}

	dir := s.config.Storage.UploadDir
	if err := clearDir(dir); err != nil {
		s.logger.Error("upload dir reset failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "could not prepare upload directory")
		return
	}
	for _, fh := range files {
		if err := saveUpload(fh, filepath.Join(dir, filepath.Base(fh.Filename))); err != nil {
			s.logger.Error("upload save failed", zap.String("file", fh.Filename), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "could not save "+fh.Filename)
			return
		}
	}

	result, err := s.ingester.Ingest(r.Context(), dir)
	if err != nil {
		if errors.Is(err, ingest.ErrNoDocuments) {
			s.respondError(w, http.StatusBadRequest, "no readable documents in upload")
			return
		}
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "indexed",
		"documents": result.Documents,
		"skipped":   result.Skipped,
		"chunks":    result.Chunks,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := s.sessionID(w, r)
	s.logger.Debug("chat request",
		zap.String("session", sessionID),
		zap.String("message", utils.Truncate(req.Message, 120)))

	resp, err := s.chat.Answer(r.Context(), sessionID, req.Message)
	if err != nil {
		s.logger.Error("chat failed", zap.String("session", sessionID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := s.sessionID(w, r)
	history, err := s.chat.History(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("history load failed", zap.String("session", sessionID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"chat_history": history})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents_loaded":   s.index.Indexed(),
		"chunks":             s.index.Size(),
		"store_connected":    s.store.Healthy(r.Context()),
		"upload_folder":      s.config.Storage.UploadDir,
		"allowed_extensions": extract.Extensions(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionID returns the request's session id, minting a new one and setting
// the cookie when the client has none yet.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// clearDir empties dir, creating it if needed. Each upload batch fully
// replaces the previous one on disk, mirroring the index rebuild.
func clearDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
