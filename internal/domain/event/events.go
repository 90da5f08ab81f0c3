package event

import (
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
)

// Event names
const (
	NameDownloadStarted   = "download.started"
	NameDownloadProgress  = "download.progress"
	NameDownloadCommitted = "download.committed"
	NameDownloadFailed    = "download.failed"
	NameMirrorFailed      = "download.mirror_failed"
	NameVersionsRefreshed = "versions.refreshed"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func now() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// DownloadStarted is raised once a task has resolved its mirror candidates
type DownloadStarted struct {
	BaseEvent
	TaskID       string
	ResourceType domain.ResourceType
	URL          string
	Candidates   int
}

// EventName returns the event name
func (e DownloadStarted) EventName() string {
	return NameDownloadStarted
}

// NewDownloadStarted creates a new DownloadStarted event
func NewDownloadStarted(task *domain.DownloadTask, candidates int) DownloadStarted {
	return DownloadStarted{
		BaseEvent:    now(),
		TaskID:       task.ID,
		ResourceType: task.ResourceType,
		URL:          task.CanonicalURL,
		Candidates:   candidates,
	}
}

// DownloadProgressed carries one throttled progress sample
type DownloadProgressed struct {
	BaseEvent
	domain.DownloadProgress
}

// EventName returns the event name
func (e DownloadProgressed) EventName() string {
	return NameDownloadProgress
}

// NewDownloadProgressed creates a new DownloadProgressed event
func NewDownloadProgressed(p domain.DownloadProgress) DownloadProgressed {
	return DownloadProgressed{BaseEvent: now(), DownloadProgress: p}
}

// MirrorFailed is raised for every failed attempt against one mirror
type MirrorFailed struct {
	BaseEvent
	TaskID  string
	Mirror  string
	Attempt int
	Error   string
}

// EventName returns the event name
func (e MirrorFailed) EventName() string {
	return NameMirrorFailed
}

// NewMirrorFailed creates a new MirrorFailed event
func NewMirrorFailed(taskID, mirror string, attempt int, err error) MirrorFailed {
	return MirrorFailed{
		BaseEvent: now(),
		TaskID:    taskID,
		Mirror:    mirror,
		Attempt:   attempt,
		Error:     err.Error(),
	}
}

// DownloadCommitted is raised when an artifact is renamed into place
type DownloadCommitted struct {
	BaseEvent
	domain.DownloadResult
	ResourceType domain.ResourceType
	Duration     time.Duration
}

// EventName returns the event name
func (e DownloadCommitted) EventName() string {
	return NameDownloadCommitted
}

// NewDownloadCommitted creates a new DownloadCommitted event
func NewDownloadCommitted(task *domain.DownloadTask, result domain.DownloadResult) DownloadCommitted {
	return DownloadCommitted{
		BaseEvent:      now(),
		DownloadResult: result,
		ResourceType:   task.ResourceType,
		Duration:       time.Since(task.CreatedAt),
	}
}

// DownloadFailed is raised when a task ends Failed or Cancelled
type DownloadFailed struct {
	BaseEvent
	TaskID       string
	ResourceType domain.ResourceType
	URL          string
	State        domain.TaskState
	Attempts     int
	Error        string
	Security     bool // checksum mismatch
}

// EventName returns the event name
func (e DownloadFailed) EventName() string {
	return NameDownloadFailed
}

// NewDownloadFailed creates a new DownloadFailed event
func NewDownloadFailed(task *domain.DownloadTask, err error) DownloadFailed {
	return DownloadFailed{
		BaseEvent:    now(),
		TaskID:       task.ID,
		ResourceType: task.ResourceType,
		URL:          task.CanonicalURL,
		State:        task.State,
		Attempts:     task.AttemptCount,
		Error:        err.Error(),
		Security:     domain.IsChecksumMismatch(err),
	}
}

// VersionsRefreshed is raised after a loader version list is fetched
type VersionsRefreshed struct {
	BaseEvent
	LoaderID  string
	MCVersion string
	Count     int
	Malformed int
}

// EventName returns the event name
func (e VersionsRefreshed) EventName() string {
	return NameVersionsRefreshed
}

// NewVersionsRefreshed creates a new VersionsRefreshed event
func NewVersionsRefreshed(loaderID, mcVersion string, count, malformed int) VersionsRefreshed {
	return VersionsRefreshed{
		BaseEvent: now(),
		LoaderID:  loaderID,
		MCVersion: mcVersion,
		Count:     count,
		Malformed: malformed,
	}
}
