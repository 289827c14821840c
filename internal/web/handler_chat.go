package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/sintaxia/internal/domain"
	"github.com/vbonduro/sintaxia/internal/export"
	"github.com/vbonduro/sintaxia/internal/service"
)

const (
	errEmptyMessage = "Mensaje vacío"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxMessageSize      = 64 * 1024
)

type messageRequest struct {
	Message string `json:"mensaje"`
}

type messageResponse struct {
	Reply    string  `json:"respuesta"`
	ModelURL *string `json:"modelo_url"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	// A body that is not JSON is treated like an empty message.
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&req)

	reply, err := s.service.HandleMessage(r.Context(), req.Message)
	if errors.Is(err, service.ErrEmptyMessage) {
		s.writeError(w, http.StatusBadRequest, errEmptyMessage)
		return
	}
	if err != nil {
		s.logger.Error("handle message failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Reply:    reply.Reply,
		ModelURL: nullable(reply.AssetURL),
	})
}

type analysisView struct {
	ID          int64              `json:"id"`
	Image       *string            `json:"imagen"`
	Summary     string             `json:"descripcion"`
	Response    string             `json:"respuesta"`
	TargetClass *string            `json:"clase_objetivo"`
	ModelURL    *string            `json:"modelo_url"`
	Note        *string            `json:"nota"`
	LLMReply    *string            `json:"respuesta_llm"`
	Objects     []domain.Detection `json:"objetos"`
	CreatedAt   time.Time          `json:"fecha"`
}

type messageView struct {
	ID        int64     `json:"id"`
	Message   string    `json:"mensaje"`
	Reply     string    `json:"respuesta"`
	CreatedAt time.Time `json:"fecha"`
}

type historyResponse struct {
	Analyses []analysisView `json:"analisis"`
	Messages []messageView  `json:"mensajes"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limite"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "Límite inválido")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	analyses, err := s.service.RecentAnalyses(r.Context(), limit)
	if err != nil {
		s.logger.Error("list analyses failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}
	messages, err := s.service.RecentMessages(r.Context(), limit)
	if err != nil {
		s.logger.Error("list messages failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	resp := historyResponse{
		Analyses: make([]analysisView, 0, len(analyses)),
		Messages: make([]messageView, 0, len(messages)),
	}
	for _, a := range analyses {
		objects := a.Detections
		if objects == nil {
			objects = []domain.Detection{}
		}
		var image *string
		if a.UploadKey != "" {
			image = nullable("/subidas/" + a.UploadKey)
		}
		resp.Analyses = append(resp.Analyses, analysisView{
			ID:          a.ID,
			Image:       image,
			Summary:     a.Summary,
			Response:    a.Response,
			TargetClass: nullable(a.TargetClass),
			ModelURL:    nullable(a.AssetURL),
			Note:        nullable(a.Note),
			LLMReply:    nullable(a.LLMReply),
			Objects:     objects,
			CreatedAt:   a.CreatedAt,
		})
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, messageView{
			ID:        m.ID,
			Message:   m.Text,
			Reply:     m.Reply,
			CreatedAt: m.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleExport streams every recorded detection as YAML (default) or
// parquet.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.FormatYAML
	if v := r.URL.Query().Get("formato"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Formato de exportación no soportado")
			return
		}
		format = f
	}

	rows, err := s.service.ExportRows(r.Context())
	if err != nil {
		s.logger.Error("export rows failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, errInternal)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="detecciones.`+format+`"`)
	if err := export.Write(w, format, rows); err != nil {
		s.logger.Error("write export failed", "format", format, "error", err)
	}
}

// handleModel serves a published model file. Only plain file names inside
// the models directory are reachable.
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsRune(name, '\\') {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.modelsDir, name))
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	if err := s.renderPage(w, "index.html", nil); err != nil {
		s.logger.Error("render page failed", "page", "index", "error", err)
	}
}

func (s *Server) handleViewer(w http.ResponseWriter, _ *http.Request) {
	if err := s.renderPage(w, "viewer.html", nil); err != nil {
		s.logger.Error("render page failed", "page", "viewer", "error", err)
	}
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"viewers": s.hub.ClientCount(),
	})
}
