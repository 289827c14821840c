package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/sintaxia/internal/analysis"
	"github.com/vbonduro/sintaxia/internal/db"
	"github.com/vbonduro/sintaxia/internal/domain"
	"github.com/vbonduro/sintaxia/internal/store"
)

// stubAnalyzer returns a fixed result and records the paths it was given.
type stubAnalyzer struct {
	result *analysis.Result
	paths  []string
}

func (s *stubAnalyzer) Analyze(_ context.Context, imagePath string) *analysis.Result {
	s.paths = append(s.paths, imagePath)
	return s.result
}

type stubResponder struct {
	reply    string
	err      error
	messages []string
}

func (s *stubResponder) Respond(_ context.Context, message string) (string, error) {
	s.messages = append(s.messages, message)
	return s.reply, s.err
}

// stubPhotoStore keeps uploads in a temp directory.
type stubPhotoStore struct {
	dir     string
	saveErr error
	saved   []string
}

func (s *stubPhotoStore) Save(_ context.Context, _ string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, _ := io.ReadAll(r)
	key := "upload.jpg"
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0644); err != nil {
		return "", err
	}
	s.saved = append(s.saved, key)
	return key, nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return nil, "", err
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (s *stubPhotoStore) Path(key string) (string, error) {
	return filepath.Join(s.dir, key), nil
}

func (s *stubPhotoStore) Delete(_ context.Context, key string) error {
	return os.Remove(filepath.Join(s.dir, key))
}

type notification struct {
	url   string
	class string
}

type stubNotifier struct {
	sent []notification
}

func (n *stubNotifier) NotifyModel(assetURL, class string) {
	n.sent = append(n.sent, notification{url: assetURL, class: class})
}

type testEnv struct {
	svc       *ChatService
	analyzer  *stubAnalyzer
	responder *stubResponder
	uploads   *stubPhotoStore
	notifier  *stubNotifier
	analyses  *store.AnalysisStore
	messages  *store.MessageStore
	requests  *store.ModelingRequestStore
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	env := &testEnv{
		analyzer: &stubAnalyzer{result: &analysis.Result{
			Summary:    "laptop",
			Response:   "Se detectaron los siguientes objetos: laptop. (Modelo TIC: laptop)",
			Detections: []domain.Detection{{ClassName: "laptop", Confidence: 88.5}},
			Target:     "laptop",
			AssetURL:   "/modelos/laptop.obj",
			Source:     analysis.SourceLibrary,
		}},
		responder: &stubResponder{reply: "Una laptop es una computadora portátil."},
		uploads:   &stubPhotoStore{dir: t.TempDir()},
		notifier:  &stubNotifier{},
		analyses:  store.NewAnalysisStore(d),
		messages:  store.NewMessageStore(d),
		requests:  store.NewModelingRequestStore(d),
	}
	env.svc = NewChatService(env.analyses, env.messages, env.requests, env.analyzer, env.responder, env.uploads, slog.Default())
	env.svc.SetNotifier(env.notifier)
	return env
}

func TestChatServiceHandleImage(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	reply, err := env.svc.HandleImage(ctx, []byte{0xFF, 0xD8}, "image/jpeg", "")
	require.NoError(t, err)
	assert.Equal(t, "laptop", reply.Summary)
	assert.Equal(t, "/modelos/laptop.obj", reply.AssetURL)
	assert.Empty(t, reply.LLMReply)
	assert.Empty(t, env.responder.messages, "no note means no LLM call")

	require.Len(t, env.analyzer.paths, 1)
	assert.Equal(t, filepath.Join(env.uploads.dir, "upload.jpg"), env.analyzer.paths[0])

	recent, err := env.svc.RecentAnalyses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "upload.jpg", recent[0].UploadKey)
	assert.Equal(t, "laptop", recent[0].TargetClass)
	assert.Len(t, recent[0].Detections, 1)

	assert.Equal(t, []notification{{url: "/modelos/laptop.obj", class: "laptop"}}, env.notifier.sent)
}

func TestChatServiceHandleImageWithNote(t *testing.T) {
	env := newTestService(t)

	reply, err := env.svc.HandleImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "  ¿para qué sirve?  ")
	require.NoError(t, err)
	assert.Equal(t, "Una laptop es una computadora portátil.", reply.LLMReply)
	require.Len(t, env.responder.messages, 1)
	assert.Contains(t, env.responder.messages[0], "Detecciones: laptop\n")
	assert.Contains(t, env.responder.messages[0], "Nota del estudiante: ¿para qué sirve?\n")
}

func TestChatServiceHandleImageLLMFailureIsNotFatal(t *testing.T) {
	env := newTestService(t)
	env.responder.err = errors.New("rate limited")

	reply, err := env.svc.HandleImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "hola")
	require.NoError(t, err)
	assert.Empty(t, reply.LLMReply)
	assert.NotEmpty(t, reply.Response)
}

func TestChatServiceHandleImageWithoutAsset(t *testing.T) {
	env := newTestService(t)
	env.analyzer.result = &analysis.Result{Summary: "No se detectaron objetos.", Response: "No se encontró ningún objeto relevante."}

	reply, err := env.svc.HandleImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "")
	require.NoError(t, err)
	assert.Empty(t, reply.AssetURL)
	assert.Empty(t, env.notifier.sent)
}

func TestChatServiceHandleImageUploadError(t *testing.T) {
	env := newTestService(t)
	env.uploads.saveErr = errors.New("disk full")

	_, err := env.svc.HandleImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "")
	assert.Error(t, err)
	assert.Empty(t, env.analyzer.paths)
}

func TestChatServiceHandleImageModelingRequest(t *testing.T) {
	env := newTestService(t)
	env.analyzer.result = &analysis.Result{
		Summary:  "router",
		Response: "Hace falta un Modelo 3D de este router.",
	}

	_, err := env.svc.HandleImage(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg", "")
	require.NoError(t, err)

	reqs, err := env.requests.List(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "router", reqs[0].Description)
	assert.Equal(t, "router", reqs[0].SuggestedName)
}

func TestChatServiceHandleMessage(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	reply, err := env.svc.HandleMessage(ctx, "  ¿Qué es una laptop?  ")
	require.NoError(t, err)
	assert.Equal(t, "Una laptop es una computadora portátil.", reply.Reply)
	assert.Empty(t, reply.AssetURL)
	assert.Equal(t, []string{"¿Qué es una laptop?"}, env.responder.messages)

	msgs, err := env.svc.RecentMessages(ctx, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "¿Qué es una laptop?", msgs[0].Text)
}

func TestChatServiceHandleMessageEmpty(t *testing.T) {
	env := newTestService(t)

	_, err := env.svc.HandleMessage(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, env.responder.messages)
}

func TestChatServiceHandleMessageLLMFailure(t *testing.T) {
	env := newTestService(t)
	env.responder.err = errors.New("all models rejected")

	reply, err := env.svc.HandleMessage(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, unavailableReply, reply.Reply)
}

func TestChatServiceHandleMessageModelingRequest(t *testing.T) {
	env := newTestService(t)
	env.responder.reply = "Podemos preparar un modelo 3D de la placa madre."

	_, err := env.svc.HandleMessage(context.Background(), "mostrame una placa madre")
	require.NoError(t, err)

	reqs, err := env.requests.List(context.Background())
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "mostrame una placa madre", reqs[0].Description)
	assert.Equal(t, "mostrame_una_placa_madre", reqs[0].SuggestedName)
	assert.Equal(t, "Podemos preparar un modelo 3D de la placa madre.", reqs[0].Instructions)
}

func TestChatServiceExportRows(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	_, err := env.svc.HandleImage(ctx, []byte{0xFF, 0xD8}, "image/jpeg", "")
	require.NoError(t, err)

	rows, err := env.svc.ExportRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "laptop", rows[0].ClassName)
	assert.Equal(t, 88.5, rows[0].Confidence)
	assert.Equal(t, "/modelos/laptop.obj", rows[0].AssetURL)
}
