package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/mediaflow-api/internal/ciutil"
	"github.com/phrazzld/mediaflow-api/internal/config"
)

// configFileEnv names an explicit configuration file to load.
const configFileEnv = config.EnvPrefix + "_CONFIG_FILE"

// loadAppConfig loads the application configuration from environment variables or config file.
// Returns the loaded config and any loading error.
func loadAppConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := os.Getenv(configFileEnv); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"blob_backend", cfg.Blob.Backend,
		"transcription_backend", cfg.TranscriptionBackend)

	slog.Debug("External service configuration",
		"speech_synthesis_key_present", cfg.SpeechSynthesis.APIKey != "",
		"speech_transcription_key_present", cfg.SpeechTranscription.APIKey != "",
		"video_generation_key_present", cfg.VideoGeneration.APIKey != "",
		"document_extraction_endpoint_present", cfg.DocumentExtraction.Endpoint != "",
		"gemini_key_present", cfg.Gemini.APIKey != "",
		"nats_url", ciutil.MaskSensitiveValue(cfg.Events.NATSURL))

	return cfg, nil
}
