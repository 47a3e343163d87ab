package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/phrazzld/mediaflow-api/internal/clock"
	"github.com/phrazzld/mediaflow-api/internal/config"
	"github.com/phrazzld/mediaflow-api/internal/events"
	"github.com/phrazzld/mediaflow-api/internal/platform/azure"
	"github.com/phrazzld/mediaflow-api/internal/platform/blob"
	"github.com/phrazzld/mediaflow-api/internal/platform/gemini"
	"github.com/phrazzld/mediaflow-api/internal/platform/natsbus"
	"github.com/phrazzld/mediaflow-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// content holds uploads and task results
	content task.ContentStore

	// Event system
	eventEmitter *events.InMemoryEventEmitter
	natsConn     *nats.Conn

	// Task handling
	taskService *task.Service
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.content, err = newContentStore(ctx, cfg.Blob, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content store: %w", err)
	}
	logger.Info("Content store initialized", "backend", cfg.Blob.Backend)

	// Event emitter fans task events out to the log projector and NATS
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(task.NewStatusProjector(logger))

	if cfg.Events.NATSURL != "" {
		app.natsConn, err = natsbus.Connect(natsbus.Config{
			URL:           cfg.Events.NATSURL,
			Name:          cfg.Events.ClientName,
			MaxReconnects: cfg.Events.MaxReconnects,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect event bus: %w", err)
		}
		app.eventEmitter.RegisterHandler(natsbus.NewPublisher(app.natsConn, cfg.Events.Subject, logger))
		logger.Info("Task events published to NATS", "subject_prefix", cfg.Events.Subject)
	}

	adapters, err := newAdapters(ctx, cfg, app.content, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	c := clock.New()
	registry := task.NewRegistry(c, app.eventEmitter, logger)
	app.taskService = task.NewService(task.ServiceConfig{
		WorkerCount: cfg.Worker.Count,
		QueueSize:   cfg.Worker.QueueSize,
		Sweeper: task.SweeperConfig{
			Interval:  cfg.Cleanup.Interval,
			Retention: cfg.Cleanup.Retention,
		},
	}, registry, app.content, c, logger, adapters...)

	for _, info := range app.taskService.Kinds() {
		logger.Info("Task kind registered",
			"task_kind", info.Kind,
			"configured", info.Configured,
			"asynchronous", info.Asynchronous)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// newContentStore builds the blob store selected by the configuration.
func newContentStore(ctx context.Context, cfg config.BlobConfig, logger *slog.Logger) (task.ContentStore, error) {
	switch cfg.Backend {
	case "minio":
		return blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:        cfg.Minio.Endpoint,
			AccessKeyID:     cfg.Minio.AccessKeyID,
			SecretAccessKey: cfg.Minio.SecretAccessKey,
			UseSSL:          cfg.Minio.UseSSL,
			Bucket:          cfg.Minio.Bucket,
			BasePath:        cfg.Minio.BasePath,
		})
	case "memory", "":
		return blob.NewMemoryStore(cfg.MemoryCapacity, logger)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// newAdapters creates one adapter per task kind. Kinds with missing
// credentials are still registered and report themselves unconfigured.
func newAdapters(ctx context.Context, cfg *config.Config, content task.ContentStore, logger *slog.Logger) ([]task.Adapter, error) {
	speech := azure.NewSpeechClient(azureConfig(cfg.SpeechSynthesis))
	video := azure.NewVideoClient(azureConfig(cfg.VideoGeneration))
	ocr := azure.NewOCRClient(cfg.DocumentExtraction.Endpoint)

	var transcriber task.TranscriptionClient
	switch cfg.TranscriptionBackend {
	case "gemini":
		t, err := gemini.NewTranscriber(ctx, logger.With("component", "gemini_transcriber"), gemini.Config{
			APIKey:             cfg.Gemini.APIKey,
			Model:              cfg.Gemini.Model,
			PromptTemplatePath: cfg.Gemini.PromptTemplatePath,
			MaxRetries:         cfg.Gemini.MaxRetries,
			RetryDelay:         cfg.Gemini.RetryDelay,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini transcriber: %w", err)
		}
		transcriber = t
	default:
		transcriber = azure.NewWhisperClient(azureConfig(cfg.SpeechTranscription))
	}

	videoPolicy := task.DefaultVideoPollPolicy()
	videoPolicy.Interval = cfg.Polling.VideoInterval
	videoPolicy.MaxAttempts = cfg.Polling.VideoMaxAttempts

	documentPolicy := task.DefaultDocumentPollPolicy()
	documentPolicy.Interval = cfg.Polling.DocumentInterval

	return []task.Adapter{
		task.NewSpeechSynthesisAdapter(speech, content),
		task.NewSpeechTranscriptionAdapter(transcriber, content),
		task.NewVideoGenerationAdapter(video, content, videoPolicy),
		task.NewDocumentExtractionAdapter(ocr, content, documentPolicy),
	}, nil
}

func azureConfig(c config.AzureConfig) azure.Config {
	return azure.Config{
		Endpoint:   c.Endpoint,
		APIKey:     c.APIKey,
		APIVersion: c.APIVersion,
		Deployment: c.Deployment,
	}
}

// Run starts the task service and the HTTP server, and stops both when ctx
// is canceled.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	app.taskService.Start()
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskService != nil {
		app.taskService.Stop()
	}

	if app.natsConn != nil {
		if err := app.natsConn.Drain(); err != nil {
			app.logger.Error("Error draining NATS connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
