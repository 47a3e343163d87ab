package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`

	SpeechSynthesis     AzureConfig    `mapstructure:"speech_synthesis"`
	SpeechTranscription AzureConfig    `mapstructure:"speech_transcription"`
	VideoGeneration     AzureConfig    `mapstructure:"video_generation"`
	DocumentExtraction  DocumentConfig `mapstructure:"document_extraction"`

	// TranscriptionBackend selects the service behind speech transcription
	TranscriptionBackend string       `mapstructure:"transcription_backend" validate:"required,oneof=azure gemini"`
	Gemini               GeminiConfig `mapstructure:"gemini"`

	Polling PollingConfig `mapstructure:"polling" validate:"required"`
	Cleanup CleanupConfig `mapstructure:"cleanup" validate:"required"`
	Worker  WorkerConfig  `mapstructure:"worker" validate:"required"`
	Blob    BlobConfig    `mapstructure:"blob" validate:"required"`
	Events  EventsConfig  `mapstructure:"events"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"required,oneof=json text"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// AzureConfig holds the settings of one Azure OpenAI deployment. Empty
// settings are allowed; the kind then reports itself as unconfigured.
type AzureConfig struct {
	Endpoint   string `mapstructure:"endpoint" validate:"omitempty,url"`
	APIKey     string `mapstructure:"api_key"`
	APIVersion string `mapstructure:"api_version"`
	Deployment string `mapstructure:"deployment"`
}

// DocumentConfig holds the OCR job service settings.
type DocumentConfig struct {
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,url"`
	ExtractionType string `mapstructure:"extraction_type" validate:"required"`
}

// GeminiConfig holds the Gemini transcription settings.
type GeminiConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	Model              string        `mapstructure:"model" validate:"required"`
	PromptTemplatePath string        `mapstructure:"prompt_template_path"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelay         time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
}

// PollingConfig controls how external jobs are polled.
type PollingConfig struct {
	VideoInterval    time.Duration `mapstructure:"video_interval" validate:"gt=0"`
	VideoMaxAttempts int           `mapstructure:"video_max_attempts" validate:"gt=0"`
	DocumentInterval time.Duration `mapstructure:"document_interval" validate:"gt=0"`
}

// CleanupConfig controls eviction of completed tasks.
type CleanupConfig struct {
	Interval  time.Duration `mapstructure:"interval" validate:"gt=0"`
	Retention time.Duration `mapstructure:"retention" validate:"gt=0"`
}

// WorkerConfig sizes the submission worker pool.
type WorkerConfig struct {
	Count     int `mapstructure:"count" validate:"gt=0"`
	QueueSize int `mapstructure:"queue_size" validate:"gt=0"`
}

// BlobConfig selects where payloads are stored.
type BlobConfig struct {
	Backend        string      `mapstructure:"backend" validate:"required,oneof=memory minio"`
	MemoryCapacity int         `mapstructure:"memory_capacity" validate:"gt=0"`
	Minio          MinioConfig `mapstructure:"minio"`
}

// MinioConfig holds the object storage settings used by the minio backend.
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	BasePath        string `mapstructure:"base_path"`
}

// EventsConfig holds the NATS settings. An empty URL disables publishing.
type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url" validate:"omitempty,url"`
	Subject       string `mapstructure:"subject" validate:"required"`
	ClientName    string `mapstructure:"client_name"`
	MaxReconnects int    `mapstructure:"max_reconnects"`
}
