package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MEDIAFLOW"

var defaults = map[string]interface{}{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.log_format":       "json",
	"server.shutdown_timeout": "15s",

	"speech_synthesis.endpoint":    "",
	"speech_synthesis.api_key":     "",
	"speech_synthesis.api_version": "2025-03-01-preview",
	"speech_synthesis.deployment":  "gpt-4o-mini-tts",

	"speech_transcription.endpoint":    "",
	"speech_transcription.api_key":     "",
	"speech_transcription.api_version": "2024-06-01",
	"speech_transcription.deployment":  "whisper",

	"video_generation.endpoint":    "",
	"video_generation.api_key":     "",
	"video_generation.api_version": "preview",
	"video_generation.deployment":  "sora",

	"document_extraction.endpoint":        "",
	"document_extraction.extraction_type": "azure",

	"transcription_backend":       "azure",
	"gemini.api_key":              "",
	"gemini.model":                "gemini-2.0-flash",
	"gemini.prompt_template_path": "",
	"gemini.max_retries":          3,
	"gemini.retry_delay":          "2s",

	"polling.video_interval":     "5s",
	"polling.video_max_attempts": 60,
	"polling.document_interval":  "30s",

	"cleanup.interval":  "10m",
	"cleanup.retention": "1h",

	"worker.count":      4,
	"worker.queue_size": 100,

	"blob.backend":                 "memory",
	"blob.memory_capacity":         1024,
	"blob.minio.endpoint":          "",
	"blob.minio.access_key_id":     "",
	"blob.minio.secret_access_key": "",
	"blob.minio.use_ssl":           false,
	"blob.minio.bucket":            "mediaflow",
	"blob.minio.base_path":         "",

	"events.nats_url":       "",
	"events.subject":        "mediaflow.tasks",
	"events.client_name":    "mediaflow-api",
	"events.max_reconnects": 10,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile loads configuration from the given file, with environment
// variables taking precedence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the settings required by the
// selected backends.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Blob.Backend == "minio" {
		if c.Blob.Minio.Endpoint == "" || c.Blob.Minio.Bucket == "" {
			return fmt.Errorf("config validation failed: blob.minio endpoint and bucket are required for the minio backend")
		}
	}
	return nil
}
