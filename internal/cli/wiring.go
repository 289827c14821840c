package cli

import (
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/sintaxia/internal/chat"
	"github.com/vbonduro/sintaxia/internal/chat/claude"
	"github.com/vbonduro/sintaxia/internal/chat/gemini"
	"github.com/vbonduro/sintaxia/internal/chat/openai"
	"github.com/vbonduro/sintaxia/internal/config"
	"github.com/vbonduro/sintaxia/internal/detector"
	"github.com/vbonduro/sintaxia/internal/detector/opencv"
	"github.com/vbonduro/sintaxia/internal/detector/remote"
	"github.com/vbonduro/sintaxia/internal/generator"
)

const (
	remoteDetectTimeout = 30 * time.Second
	openAIBaseURL       = "https://api.openai.com/v1"
)

// newDetectorService loads the configured backend once. A backend that fails
// to load is reported on every detection instead of stopping the process.
func newDetectorService(cfg *config.Config, logger *slog.Logger) *detector.Service {
	svc := detector.NewService(func() (detector.Detector, error) {
		switch cfg.DetectorBackend {
		case "remote":
			logger.Info("using remote detector", "url", cfg.DetectorURL)
			return remote.NewRemoteDetector(cfg.DetectorURL, remoteDetectTimeout), nil
		default:
			logger.Info("using OpenCV detector", "model", cfg.DetectorModel)
			return opencv.Load(opencv.Config{
				ModelPath:      cfg.DetectorModel,
				InputSize:      cfg.DetectorInputSize,
				ScoreThreshold: float32(cfg.DetectorScore),
				NMSThreshold:   float32(cfg.DetectorNMS),
			})
		}
	})
	if err := svc.LoadErr(); err != nil {
		logger.Error("failed to load detector", "backend", cfg.DetectorBackend, "error", err)
	}
	return svc
}

func newChatClient(cfg *config.Config, logger *slog.Logger) chat.Client {
	switch cfg.LLMProvider {
	case "claude":
		logger.Info("using Claude chat backend", "model", cfg.LLMModel)
		return claude.NewClaudeClient(cfg.LLMAPIKey, cfg.LLMBaseURL, float32(cfg.LLMTemperature))
	case "gemini":
		logger.Info("using Gemini chat backend", "model", cfg.LLMModel)
		return gemini.NewGeminiClient(cfg.LLMAPIKey, float32(cfg.LLMTemperature))
	case "openai":
		baseURL := cfg.LLMBaseURL
		if baseURL == "" {
			baseURL = openAIBaseURL
		}
		logger.Info("using OpenAI chat backend", "model", cfg.LLMModel)
		return openai.NewOpenAIClient(cfg.LLMAPIKey, baseURL, cfg.LLMTemperature)
	default:
		logger.Info("using Groq chat backend", "model", cfg.LLMModel)
		return openai.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMTemperature)
	}
}

// newGenerator runs GENERATOR_COMMAND when set and otherwise copies base
// models from BASE_MODELS_DIR.
func newGenerator(cfg *config.Config, logger *slog.Logger) generator.Generator {
	if fields := strings.Fields(cfg.GeneratorCommand); len(fields) > 0 {
		logger.Info("using external model generator", "command", fields[0])
		return generator.NewCommand(fields[0], fields[1:]...)
	}
	return generator.NewPlaceholder(cfg.BaseModelsDir, logger)
}
