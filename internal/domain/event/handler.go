package event

import (
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// LoggingHandler traces the event stream. Commit and failure events are
// logged at debug level since the downloader logs the outcome itself.
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case DownloadStarted:
		h.logger.Debug("download started",
			zap.String("task_id", e.TaskID),
			zap.String("resource_type", e.ResourceType.String()),
			zap.String("url", e.URL),
			zap.Int("candidates", e.Candidates),
		)
	case DownloadProgressed:
		h.logger.Debug("download progress",
			zap.String("task_id", e.TaskID),
			zap.Int64("bytes", e.BytesDownloaded),
			zap.Int64("total", e.BytesTotal),
			zap.String("rate", humanize.Bytes(uint64(e.Rate))+"/s"),
		)
	case MirrorFailed:
		h.logger.Warn("mirror attempt failed",
			zap.String("task_id", e.TaskID),
			zap.String("mirror", e.Mirror),
			zap.Int("attempt", e.Attempt),
			zap.String("error", e.Error),
		)
	case DownloadCommitted:
		h.logger.Debug("artifact committed event",
			zap.String("task_id", e.TaskID),
			zap.String("path", e.Path),
			zap.String("size", humanize.Bytes(uint64(e.Size))),
			zap.String("mirror", e.Mirror),
			zap.Bool("skipped", e.Skipped),
			zap.Duration("duration", e.Duration),
		)
	case DownloadFailed:
		if e.Security {
			h.logger.Debug("integrity failure event",
				zap.String("task_id", e.TaskID),
				zap.String("url", e.URL),
				zap.String("error", e.Error),
			)
			return nil
		}
		h.logger.Debug("download failed event",
			zap.String("task_id", e.TaskID),
			zap.String("url", e.URL),
			zap.String("state", string(e.State)),
			zap.Int("attempts", e.Attempts),
			zap.String("error", e.Error),
		)
	case VersionsRefreshed:
		h.logger.Info("loader versions refreshed",
			zap.String("loader", e.LoaderID),
			zap.String("mc_version", e.MCVersion),
			zap.Int("count", e.Count),
			zap.Int("malformed", e.Malformed),
		)
	default:
		h.logger.Debug("domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *LoggingHandler) HandledEvents() []string {
	return []string{"*"} // Handle all events
}

// MetricsHandler collects counters from events.
// Handle may be called from many download goroutines at once.
type MetricsHandler struct {
	committed       atomic.Int64
	skipped         atomic.Int64
	failed          atomic.Int64
	checksumFailed  atomic.Int64
	mirrorFailures  atomic.Int64
	bytesDownloaded atomic.Int64
	refreshes       atomic.Int64
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handle updates metrics based on the event
func (h *MetricsHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case DownloadCommitted:
		if e.Skipped {
			h.skipped.Add(1)
			return nil
		}
		h.committed.Add(1)
		h.bytesDownloaded.Add(e.Size)
	case DownloadFailed:
		h.failed.Add(1)
		if e.Security {
			h.checksumFailed.Add(1)
		}
	case MirrorFailed:
		h.mirrorFailures.Add(1)
	case VersionsRefreshed:
		h.refreshes.Add(1)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *MetricsHandler) HandledEvents() []string {
	return []string{
		NameDownloadCommitted,
		NameDownloadFailed,
		NameMirrorFailed,
		NameVersionsRefreshed,
	}
}

// GetMetrics returns current metrics
func (h *MetricsHandler) GetMetrics() map[string]int64 {
	return map[string]int64{
		"downloads_committed": h.committed.Load(),
		"downloads_skipped":   h.skipped.Load(),
		"downloads_failed":    h.failed.Load(),
		"checksum_failures":   h.checksumFailed.Load(),
		"mirror_failures":     h.mirrorFailures.Load(),
		"bytes_downloaded":    h.bytesDownloaded.Load(),
		"version_refreshes":   h.refreshes.Load(),
	}
}

// FuncHandler adapts a function to EventHandler for a fixed set of events
type FuncHandler struct {
	events []string
	fn     func(DomainEvent)
}

// NewFuncHandler creates a handler calling fn for the named events ("*" for all)
func NewFuncHandler(fn func(DomainEvent), events ...string) *FuncHandler {
	if len(events) == 0 {
		events = []string{"*"}
	}
	return &FuncHandler{events: events, fn: fn}
}

// Handle calls the wrapped function
func (h *FuncHandler) Handle(event DomainEvent) error {
	h.fn(event)
	return nil
}

// HandledEvents returns the events this handler handles
func (h *FuncHandler) HandledEvents() []string {
	return h.events
}
