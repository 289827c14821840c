package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Env files tried in order; only the first one found is loaded.
var envFiles = []string{".env", "api.env"}

// Default model per LLM provider when LLM_MODEL is unset.
var defaultModels = map[string]string{
	"groq":   "llama-3.1-8b-instant",
	"openai": "gpt-4o-mini",
	"claude": "claude-3-5-haiku-latest",
	"gemini": "gemini-1.5-flash",
}

var defaultFallbacks = map[string][]string{
	"groq": {"llama-3.1-8b-instant", "llama-3.1-70b-versatile"},
}

type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	DBPath        string `yaml:"db_path"`
	UploadsDir    string `yaml:"uploads_dir"`
	ModelsDir     string `yaml:"models_dir"`
	LibraryRoot   string `yaml:"library_root"`
	BaseModelsDir string `yaml:"base_models_dir"`

	LLMProvider    string   `yaml:"llm_provider"`
	LLMAPIKey      string   `yaml:"llm_api_key"`
	LLMBaseURL     string   `yaml:"llm_base_url"`
	LLMModel       string   `yaml:"llm_model"`
	LLMFallbacks   []string `yaml:"llm_fallbacks"`
	LLMTemperature float64  `yaml:"llm_temperature"`

	DetectorBackend   string  `yaml:"detector_backend"`
	DetectorModel     string  `yaml:"detector_model"`
	DetectorURL       string  `yaml:"detector_url"`
	DetectorInputSize int     `yaml:"detector_input_size"`
	DetectorScore     float64 `yaml:"detector_score"`
	DetectorNMS       float64 `yaml:"detector_nms"`

	GeneratorCommand string `yaml:"generator_command"`

	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
	LogFormat string `yaml:"log_format"`
}

// LoadDotEnv loads the first env file found in dir. Variables already set in
// the environment are left alone. It returns the file loaded, or "".
func LoadDotEnv(dir string) (string, error) {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("failed to load %s: %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

func Load() *Config {
	provider := strings.ToLower(getEnv("LLM_PROVIDER", "groq"))
	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":5000"),
		DBPath:        getEnv("DB_PATH", "data/sintaxia.db"),
		UploadsDir:    getEnv("UPLOADS_DIR", "data/uploads"),
		ModelsDir:     getEnv("MODELS_DIR", "data/modelos3d"),
		LibraryRoot:   getEnv("LIBRARY_ROOT", "assets/models"),
		BaseModelsDir: getEnv("BASE_MODELS_DIR", "data/base_models"),

		LLMProvider:    provider,
		LLMAPIKey:      getEnv("LLM_API_KEY", os.Getenv(providerKeyEnv(provider))),
		LLMBaseURL:     getEnv("BASE_URL", ""),
		LLMModel:       getEnv("LLM_MODEL", defaultModels[provider]),
		LLMFallbacks:   getList("LLM_FALLBACKS", defaultFallbacks[provider]),
		LLMTemperature: getFloat("LLM_TEMPERATURE", 0.3),

		DetectorBackend:   getEnv("DETECTOR_BACKEND", "opencv"),
		DetectorModel:     getEnv("DETECTOR_MODEL", "models/yolov8n.onnx"),
		DetectorURL:       getEnv("DETECTOR_URL", "http://localhost:8001/detect"),
		DetectorInputSize: getInt("DETECTOR_INPUT_SIZE", 640),
		DetectorScore:     getFloat("DETECTOR_SCORE_THRESHOLD", 0.25),
		DetectorNMS:       getFloat("DETECTOR_NMS_THRESHOLD", 0.45),

		GeneratorCommand: getEnv("GENERATOR_COMMAND", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// LoadFile loads the environment configuration and overlays the YAML file at
// path on top of it. Keys present in the file win over the environment. A
// file that switches the LLM provider without naming models gets that
// provider's defaults instead of the environment's.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	envProvider := cfg.LLMProvider
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	if cfg.LLMProvider == envProvider {
		return cfg, nil
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if file.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}
	if file.LLMFallbacks == nil {
		cfg.LLMFallbacks = defaultFallbacks[cfg.LLMProvider]
	}
	if file.LLMAPIKey == "" {
		cfg.LLMAPIKey = getEnv("LLM_API_KEY", os.Getenv(providerKeyEnv(cfg.LLMProvider)))
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "groq", "openai", "claude", "gemini":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.LLMAPIKey == "" {
		return fmt.Errorf("%s is not set; define it in .env or api.env", providerKeyEnv(c.LLMProvider))
	}
	switch c.DetectorBackend {
	case "opencv", "remote":
	default:
		return fmt.Errorf("unknown DETECTOR_BACKEND %q", c.DetectorBackend)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return errors.New("LLM_TEMPERATURE must be between 0 and 2")
	}
	return nil
}

func providerKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "claude":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultVal
}

// getList splits a comma-separated variable, dropping empty entries.
func getList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
