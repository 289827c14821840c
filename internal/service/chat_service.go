package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/sintaxia/internal/analysis"
	"github.com/vbonduro/sintaxia/internal/chat"
	"github.com/vbonduro/sintaxia/internal/domain"
	"github.com/vbonduro/sintaxia/internal/photostore"
)

var ErrEmptyMessage = errors.New("empty message")

// unavailableReply is sent when no language model could answer.
const unavailableReply = "No pude obtener una respuesta del modelo de lenguaje en este momento. Intentá de nuevo en unos minutos."

// modelingTrigger in a reply marks it as a request for a new 3D model.
const modelingTrigger = "modelo 3d"

// analysisRepository is the subset of store.AnalysisStore that ChatService requires.
type analysisRepository interface {
	Create(ctx context.Context, a *domain.Analysis) (*domain.Analysis, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Analysis, error)
	ListDetections(ctx context.Context) ([]domain.DetectionRecord, error)
}

// messageRepository is the subset of store.MessageStore that ChatService requires.
type messageRepository interface {
	Create(ctx context.Context, text, reply string) (*domain.Message, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Message, error)
}

// modelingRequestRepository is the subset of store.ModelingRequestStore that ChatService requires.
type modelingRequestRepository interface {
	Create(ctx context.Context, description, instructions string) (*domain.ModelingRequest, error)
}

type imageAnalyzer interface {
	Analyze(ctx context.Context, imagePath string) *analysis.Result
}

type responder interface {
	Respond(ctx context.Context, message string) (string, error)
}

// ModelNotifier is told about every model published for the viewer.
type ModelNotifier interface {
	NotifyModel(assetURL, class string)
}

type ChatService struct {
	analyses  analysisRepository
	messages  messageRepository
	requests  modelingRequestRepository
	analyzer  imageAnalyzer
	responder responder
	uploads   photostore.PhotoStore
	notifier  ModelNotifier
	logger    *slog.Logger
}

func NewChatService(
	analyses analysisRepository,
	messages messageRepository,
	requests modelingRequestRepository,
	analyzer imageAnalyzer,
	responder responder,
	uploads photostore.PhotoStore,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		analyses:  analyses,
		messages:  messages,
		requests:  requests,
		analyzer:  analyzer,
		responder: responder,
		uploads:   uploads,
		logger:    logger,
	}
}

// SetNotifier registers the viewer notifier. It must be called before the
// service handles requests.
func (s *ChatService) SetNotifier(n ModelNotifier) {
	s.notifier = n
}

type ImageReply struct {
	Summary    string
	Response   string
	Detections []domain.Detection
	AssetURL   string
	LLMReply   string
}

type MessageReply struct {
	Reply    string
	AssetURL string
}

// HandleImage stores the upload, analyzes it and, when the student attached
// a note, asks the tutor model about the photo. Only a failure to store the
// upload is returned as an error.
func (s *ChatService) HandleImage(ctx context.Context, imageData []byte, mimeType, note string) (*ImageReply, error) {
	note = strings.TrimSpace(note)
	s.logger.Info("image received", "mime_type", mimeType, "bytes", len(imageData), "has_note", note != "")

	key, err := s.uploads.Save(ctx, mimeType, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}
	path, err := s.uploads.Path(key)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload: %w", err)
	}
	s.logger.Debug("upload saved", "storage_key", key)

	res := s.analyzer.Analyze(ctx, path)

	reply := &ImageReply{
		Summary:    res.Summary,
		Response:   res.Response,
		Detections: res.Detections,
		AssetURL:   res.AssetURL,
	}

	if note != "" {
		llm, err := s.responder.Respond(ctx, chat.TutorPrompt(res.Summary, note))
		if err != nil {
			s.logger.Error("tutor reply failed", "error", err)
		} else {
			reply.LLMReply = llm
		}
	}

	if mentionsModeling(res.Response) {
		s.saveModelingRequest(ctx, res.Summary, res.Response)
	}

	if _, err := s.analyses.Create(ctx, &domain.Analysis{
		UploadKey:   key,
		Summary:     res.Summary,
		Response:    res.Response,
		TargetClass: res.Target,
		AssetURL:    res.AssetURL,
		Note:        note,
		LLMReply:    reply.LLMReply,
		Detections:  res.Detections,
	}); err != nil {
		s.logger.Error("failed to record analysis", "error", err)
	}

	if res.AssetURL != "" && s.notifier != nil {
		s.notifier.NotifyModel(res.AssetURL, res.Target)
	}
	return reply, nil
}

// HandleMessage answers a text message. A model failure yields an
// explanatory reply instead of an error.
func (s *ChatService) HandleMessage(ctx context.Context, text string) (*MessageReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	answer, err := s.responder.Respond(ctx, text)
	if err != nil {
		s.logger.Error("chat reply failed", "error", err)
		answer = unavailableReply
	}

	if mentionsModeling(answer) {
		s.saveModelingRequest(ctx, text, answer)
	}

	if _, err := s.messages.Create(ctx, text, answer); err != nil {
		s.logger.Error("failed to record message", "error", err)
	}
	return &MessageReply{Reply: answer}, nil
}

func (s *ChatService) RecentAnalyses(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	return s.analyses.ListRecent(ctx, limit)
}

func (s *ChatService) RecentMessages(ctx context.Context, limit int) ([]*domain.Message, error) {
	return s.messages.ListRecent(ctx, limit)
}

// ExportRows returns every recorded detection for offline analysis.
func (s *ChatService) ExportRows(ctx context.Context) ([]domain.DetectionRecord, error) {
	return s.analyses.ListDetections(ctx)
}

func (s *ChatService) saveModelingRequest(ctx context.Context, description, instructions string) {
	req, err := s.requests.Create(ctx, description, instructions)
	if err != nil {
		s.logger.Error("failed to save modeling request", "error", err)
		return
	}
	s.logger.Info("modeling request saved", "id", req.ID, "suggested_name", req.SuggestedName)
}

func mentionsModeling(text string) bool {
	return strings.Contains(strings.ToLower(text), modelingTrigger)
}
