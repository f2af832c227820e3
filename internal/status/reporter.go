// Package status reports rebuild progress and user-facing errors to the log
// and to connected event stream clients.
package status

import (
	"log/slog"
	"sync/atomic"

	"github.com/starford/pageindex/internal/models"
	"github.com/starford/pageindex/internal/sse"
)

// Publisher receives events for connected clients.
type Publisher interface {
	Publish(event sse.Event)
	PublishRebuild(finished bool, data interface{})
}

// Reporter is the progress indicator and notification sink of the indexer.
type Reporter struct {
	logger *slog.Logger
	events Publisher
	busy   atomic.Int32
}

// New creates a Reporter. events may be nil, in which case reports are only
// logged.
func New(logger *slog.Logger, events Publisher) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger, events: events}
}

// Start marks a rebuild as running.
func (r *Reporter) Start(rebuildID string) {
	r.busy.Add(1)
	r.logger.Info("pages: indexing", slog.String("rebuild", rebuildID))
	if r.events != nil {
		r.events.PublishRebuild(false, map[string]string{"id": rebuildID})
	}
}

// Stop marks a rebuild as finished.
func (r *Reporter) Stop(summary models.RebuildSummary) {
	r.busy.Add(-1)
	if r.events != nil {
		r.events.PublishRebuild(true, summary)
	}
}

// Busy reports whether a rebuild is running.
func (r *Reporter) Busy() bool {
	return r.busy.Load() > 0
}

// ReportError surfaces msg to the user.
func (r *Reporter) ReportError(msg string) {
	r.logger.Error("notification", slog.String("message", msg))
	if r.events != nil {
		r.events.Publish(sse.Event{
			Type: sse.EventNotificationError,
			Data: map[string]string{"message": msg},
		})
	}
}
