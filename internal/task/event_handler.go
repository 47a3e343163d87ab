package task

import (
	"context"
	"log/slog"

	"github.com/phrazzld/mediaflow-api/internal/domain"
	"github.com/phrazzld/mediaflow-api/internal/events"
)

// StatusLabel returns the human-readable label shown for a status.
func StatusLabel(s domain.Status) string {
	switch s {
	case domain.StatusPending, domain.StatusProcessing:
		return "In Progress"
	case domain.StatusCompleted:
		return "Completed"
	case domain.StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// StatusProjector implements events.EventHandler by projecting task
// lifecycle events into structured log records.
type StatusProjector struct {
	logger *slog.Logger
}

// NewStatusProjector creates a projector that logs through logger.
func NewStatusProjector(logger *slog.Logger) *StatusProjector {
	return &StatusProjector{
		logger: logger.With("component", "status_projector"),
	}
}

// HandleEvent logs the event at a level matching its outcome.
func (h *StatusProjector) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	attrs := []any{
		"event_id", event.ID,
		"task_id", event.TaskID,
		"task_kind", event.Kind,
		"status", event.Status,
		"label", StatusLabel(event.Status),
	}

	switch {
	case event.Type == events.EventRemoved:
		h.logger.DebugContext(ctx, "task removed", attrs...)
	case event.Status == domain.StatusFailed && event.Error != nil:
		attrs = append(attrs, "error_kind", event.Error.Kind, "error", event.Error.Message)
		h.logger.WarnContext(ctx, "task status changed", attrs...)
	case event.Previous == "":
		h.logger.DebugContext(ctx, "task created", attrs...)
	default:
		attrs = append(attrs, "previous_status", event.Previous)
		h.logger.InfoContext(ctx, "task status changed", attrs...)
	}
	return nil
}

// Ensure StatusProjector implements events.EventHandler
var _ events.EventHandler = (*StatusProjector)(nil)
