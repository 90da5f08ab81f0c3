package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskState is the state of a download task
type TaskState string

// Task states
const (
	StatePending     TaskState = "pending"
	StateResolving   TaskState = "resolving"
	StateDownloading TaskState = "downloading"
	StateVerifying   TaskState = "verifying"
	StateCommitted   TaskState = "committed"
	StateFailed      TaskState = "failed"
	StateCancelled   TaskState = "cancelled"
)

// allowed state transitions; cancellation and failure are reachable from
// every non-terminal state
var transitions = map[TaskState][]TaskState{
	StatePending:     {StateResolving, StateCommitted},
	StateResolving:   {StateDownloading},
	StateDownloading: {StateDownloading, StateVerifying},
	StateVerifying:   {StateCommitted},
}

// IsTerminal returns true if no further transitions are possible
func (s TaskState) IsTerminal() bool {
	return s == StateCommitted || s == StateFailed || s == StateCancelled
}

// Checksum algorithms
const (
	AlgorithmSHA1   = "sha1"
	AlgorithmSHA256 = "sha256"
)

// DownloadTask tracks one fetch of one artifact across its mirror attempts.
// It is owned by the goroutine driving the fetch and never persisted.
type DownloadTask struct {
	ID           string
	ResourceType ResourceType
	CanonicalURL string
	DestPath     string

	// Integrity
	ExpectedChecksum string
	Algorithm        string

	// State
	State        TaskState
	Mirror       string
	MirrorIndex  int
	TempPath     string
	AttemptCount int
	LastErrors   []error

	CreatedAt  time.Time
	FinishedAt *time.Time
}

// NewDownloadTask creates a pending task with a fresh ID
func NewDownloadTask(rt ResourceType, canonicalURL, destPath, expected, algorithm string) *DownloadTask {
	if algorithm == "" {
		algorithm = AlgorithmSHA1
	}
	return &DownloadTask{
		ID:               uuid.NewString(),
		ResourceType:     rt,
		CanonicalURL:     canonicalURL,
		DestPath:         destPath,
		ExpectedChecksum: strings.ToLower(strings.TrimSpace(expected)),
		Algorithm:        strings.ToLower(algorithm),
		State:            StatePending,
		CreatedAt:        time.Now(),
	}
}

// Transition moves the task to the given state.
// Returns ErrInvalidStateTransition if the move is not allowed.
func (t *DownloadTask) Transition(to TaskState) error {
	if t.State.IsTerminal() {
		return ErrInvalidStateTransition
	}
	if to == StateFailed || to == StateCancelled {
		t.finish(to)
		return nil
	}
	for _, allowed := range transitions[t.State] {
		if allowed == to {
			if to.IsTerminal() {
				t.finish(to)
			} else {
				t.State = to
			}
			return nil
		}
	}
	return ErrInvalidStateTransition
}

func (t *DownloadTask) finish(state TaskState) {
	t.State = state
	now := time.Now()
	t.FinishedAt = &now
}

// RecordError appends a per-attempt error
func (t *DownloadTask) RecordError(err error) {
	if err != nil {
		t.LastErrors = append(t.LastErrors, err)
	}
}

// HasExpectedChecksum returns true if the caller supplied a reference hash
func (t *DownloadTask) HasExpectedChecksum() bool {
	return t.ExpectedChecksum != ""
}
