package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/sintaxia/internal/domain"
)

const maxPhotoSize = 50 * 1024 * 1024 // 50 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

const (
	errMissingImage     = "No se envió ninguna imagen"
	errUnsupportedImage = "Formato de imagen no soportado"
	errInternal         = "Error interno del servidor"
)

// imageResponse is the body of POST /api/imagen. Empty URLs and replies are
// sent as null.
type imageResponse struct {
	Summary  string             `json:"descripcion"`
	Response string             `json:"respuesta"`
	Objects  []domain.Detection `json:"objetos"`
	ModelURL *string            `json:"modelo_url"`
	LLMReply *string            `json:"respuesta_llm"`
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		s.writeError(w, http.StatusBadRequest, errMissingImage)
		return
	}

	file, _, err := r.FormFile("imagen")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errMissingImage)
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		s.writeError(w, http.StatusBadRequest, errUnsupportedImage)
		return
	}

	reply, err := s.service.HandleImage(r.Context(), imageData, mimeType, r.FormValue("nota"))
	if err != nil {
		s.logger.Error("handle image failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	objects := reply.Detections
	if objects == nil {
		objects = []domain.Detection{}
	}
	s.writeJSON(w, http.StatusOK, imageResponse{
		Summary:  reply.Summary,
		Response: reply.Response,
		Objects:  objects,
		ModelURL: nullable(reply.AssetURL),
		LLMReply: nullable(reply.LLMReply),
	})
}

// handleGetUpload serves a stored upload so the history view can show it.
func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	reader, mimeType, err := s.photoStore.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer closeWithLog(reader, "upload reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write upload failed", "error", err)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write json failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
