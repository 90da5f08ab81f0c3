package downloader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/domain/event"
)

// taskRun drives one DownloadTask through its states
type taskRun struct {
	d             *Downloader
	task          *domain.DownloadTask
	verifySidecar bool
	skipIfPresent bool

	candidates []domain.MirrorInfo
	retries    int
	mirrorErrs error

	size    int64
	sha1    string
	skipped bool
}

// run loops until the task reaches a terminal state. Each state handler
// returns the next state, or an error that fails the task.
func (t *taskRun) run(ctx context.Context) (*domain.DownloadResult, error) {
	for !t.task.State.IsTerminal() {
		if ctx.Err() != nil {
			return nil, t.cancel(ctx)
		}

		var next domain.TaskState
		var err error
		switch t.task.State {
		case domain.StatePending:
			next, err = t.pending()
		case domain.StateResolving:
			next, err = t.resolve()
		case domain.StateDownloading:
			next, err = t.download(ctx)
		case domain.StateVerifying:
			next, err = t.verifyAndCommit(ctx)
		default:
			err = fmt.Errorf("%w: unhandled state %s", domain.ErrInvalidStateTransition, t.task.State)
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, t.cancel(ctx)
			}
			return nil, t.fail(err)
		}
		if err := t.task.Transition(next); err != nil {
			return nil, t.fail(fmt.Errorf("%s -> %s: %w", t.task.State, next, err))
		}
	}

	return t.commitResult(), nil
}

// pending short-circuits destinations the ledger already knows are verified
func (t *taskRun) pending() (domain.TaskState, error) {
	if !t.skipIfPresent || t.d.artifacts == nil || !t.task.HasExpectedChecksum() ||
		t.task.Algorithm != domain.AlgorithmSHA1 {
		return domain.StateResolving, nil
	}

	rec, err := t.d.artifacts.GetArtifact(t.task.DestPath)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			t.d.logger.Warn("artifact ledger lookup failed",
				zap.String("path", t.task.DestPath),
				zap.Error(err))
		}
		return domain.StateResolving, nil
	}
	if rec.SHA1 != t.task.ExpectedChecksum {
		return domain.StateResolving, nil
	}
	size, err := t.d.fs.GetFileSize(t.task.DestPath)
	if err != nil || size != rec.Size {
		return domain.StateResolving, nil
	}

	t.size = rec.Size
	t.sha1 = rec.SHA1
	t.task.Mirror = rec.Mirror
	t.skipped = true
	return domain.StateCommitted, nil
}

func (t *taskRun) resolve() (domain.TaskState, error) {
	t.candidates = t.d.Mirrors().Expand(t.task.ResourceType, t.task.CanonicalURL)
	t.task.MirrorIndex = 0
	t.task.Mirror = t.candidates[0].URL

	t.d.dispatcher.Dispatch(event.NewDownloadStarted(t.task, len(t.candidates)))
	return domain.StateDownloading, nil
}

// download makes one attempt against the current mirror. Transient failures
// retry the same mirror once, then advance; exhaustion fails the task.
func (t *taskRun) download(ctx context.Context) (domain.TaskState, error) {
	mirror := t.candidates[t.task.MirrorIndex]
	t.task.Mirror = mirror.URL
	t.task.AttemptCount++

	err := t.attempt(ctx, mirror.URL)
	if err == nil {
		return domain.StateVerifying, nil
	}
	if ctx.Err() != nil || !domain.IsTransient(err) {
		return "", err
	}

	t.task.RecordError(err)
	t.mirrorErrs = multierr.Append(t.mirrorErrs, err)
	t.d.dispatcher.Dispatch(event.NewMirrorFailed(t.task.ID, mirror.URL, t.task.AttemptCount, err))

	if t.retries < t.d.config.RetriesPerMirror {
		t.retries++
		return domain.StateDownloading, nil
	}

	t.retries = 0
	t.task.MirrorIndex++
	if t.task.MirrorIndex >= len(t.candidates) {
		return "", &domain.NoMirrorsAvailableError{
			URL:        t.task.CanonicalURL,
			Candidates: len(t.candidates),
			Err:        t.mirrorErrs,
		}
	}
	t.task.Mirror = t.candidates[t.task.MirrorIndex].URL
	return domain.StateDownloading, nil
}

// attempt holds a gate permit for the duration of one GET and its stream.
// On any failure the temp file is removed before returning.
func (t *taskRun) attempt(ctx context.Context, mirrorURL string) error {
	permit, err := t.d.gate.Acquire(ctx, t.task.ResourceType)
	if err != nil {
		return err
	}
	defer permit.Release()

	actx, cancel := context.WithTimeout(ctx, t.d.config.TimeoutFor(t.task.ResourceType))
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, mirrorURL, nil)
	if err != nil {
		return &domain.NetworkError{URL: mirrorURL, Err: err}
	}
	req.Header.Set("User-Agent", t.d.config.UserAgent)

	resp, err := t.d.client.Do(req)
	if err != nil {
		return &domain.NetworkError{URL: mirrorURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.HTTPStatusError{URL: mirrorURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := t.d.space.Ensure(resp.ContentLength); err != nil {
		return err
	}

	f, err := t.d.fs.CreateTempFile(t.task.DestPath, t.task.ID)
	if err != nil {
		return err
	}
	t.task.TempPath = f.Name()

	pr := newProgressReader(resp.Body, t.task.ID, resp.ContentLength, t.d.config.ProgressInterval, t.d.now, t.d.dispatcher)
	h := sha1.New()
	written, copyErr := io.Copy(io.MultiWriter(f, h), pr)
	closeErr := f.Close()
	pr.finish()

	if copyErr == nil && resp.ContentLength >= 0 && written != resp.ContentLength {
		copyErr = io.ErrUnexpectedEOF
		pr.readErr = copyErr
	}
	if copyErr != nil || closeErr != nil {
		t.removeTemp()
		if pr.readErr != nil {
			return &domain.NetworkError{URL: mirrorURL, Err: pr.readErr}
		}
		if copyErr == nil {
			copyErr = closeErr
		}
		return fmt.Errorf("failed to write temp file: %w", copyErr)
	}

	t.size = written
	t.sha1 = hex.EncodeToString(h.Sum(nil))
	return nil
}

// verifyAndCommit checks the temp file against the expected or sidecar hash,
// then renames it into place under the destination lock
func (t *taskRun) verifyAndCommit(ctx context.Context) (domain.TaskState, error) {
	expected, algorithm := t.task.ExpectedChecksum, t.task.Algorithm
	if expected == "" && t.verifySidecar {
		if ref, ok := t.d.verifier.FetchReferenceHash(ctx, t.task.Mirror); ok {
			expected, algorithm = ref, domain.AlgorithmSHA1
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	if expected != "" {
		if _, _, err := t.d.verifier.VerifyFile(t.task.TempPath, expected, algorithm); err != nil {
			t.removeTemp()
			var ce *domain.ChecksumMismatchError
			if errors.As(err, &ce) {
				ce.Path = t.task.DestPath
			}
			return "", err
		}
	} else {
		t.d.logger.Debug("no reference checksum, accepting unverified artifact",
			zap.String("task_id", t.task.ID),
			zap.String("url", t.task.CanonicalURL))
	}

	unlock, err := t.d.fs.Lock(ctx, t.task.DestPath)
	if err != nil {
		t.removeTemp()
		return "", err
	}
	defer unlock()

	if err := t.d.fs.Commit(t.task.TempPath, t.task.DestPath); err != nil {
		t.removeTemp()
		return "", err
	}
	t.task.TempPath = ""

	t.record()
	return domain.StateCommitted, nil
}

func (t *taskRun) record() {
	if t.d.artifacts == nil {
		return
	}
	rec := &domain.ArtifactRecord{
		Path:         t.task.DestPath,
		URL:          t.task.CanonicalURL,
		Mirror:       t.task.Mirror,
		SHA1:         t.sha1,
		Size:         t.size,
		ResourceType: t.task.ResourceType,
		CommittedAt:  t.d.now(),
	}
	if err := t.d.artifacts.PutArtifact(rec); err != nil {
		t.d.logger.Warn("failed to record artifact",
			zap.String("path", rec.Path),
			zap.Error(err))
	}
}

func (t *taskRun) commitResult() *domain.DownloadResult {
	result := domain.DownloadResult{
		TaskID:   t.task.ID,
		Path:     t.task.DestPath,
		Size:     t.size,
		SHA1:     t.sha1,
		Mirror:   t.task.Mirror,
		Attempts: t.task.AttemptCount,
		Skipped:  t.skipped,
	}

	if t.skipped {
		t.d.logger.Debug("artifact already present",
			zap.String("task_id", t.task.ID),
			zap.String("path", result.Path))
	} else {
		t.d.logger.Info("artifact committed",
			zap.String("task_id", t.task.ID),
			zap.String("path", result.Path),
			zap.String("mirror", result.Mirror),
			zap.String("size", humanize.Bytes(uint64(result.Size))),
			zap.Int("attempts", result.Attempts))
	}

	t.d.dispatcher.Dispatch(event.NewDownloadCommitted(t.task, result))
	return &result
}

func (t *taskRun) fail(err error) error {
	t.removeTemp()
	_ = t.task.Transition(domain.StateFailed)

	fields := []zap.Field{
		zap.String("task_id", t.task.ID),
		zap.String("url", t.task.CanonicalURL),
		zap.Int("attempts", t.task.AttemptCount),
		zap.Error(err),
	}
	if domain.IsChecksumMismatch(err) {
		t.d.logger.Error("checksum mismatch, artifact discarded", fields...)
	} else {
		t.d.logger.Warn("download failed", fields...)
	}

	t.d.dispatcher.Dispatch(event.NewDownloadFailed(t.task, err))
	return err
}

func (t *taskRun) cancel(ctx context.Context) error {
	t.removeTemp()
	_ = t.task.Transition(domain.StateCancelled)

	err := fmt.Errorf("download of %s cancelled: %w", t.task.CanonicalURL, ctx.Err())
	t.d.logger.Info("download cancelled",
		zap.String("task_id", t.task.ID),
		zap.String("url", t.task.CanonicalURL))
	t.d.dispatcher.Dispatch(event.NewDownloadFailed(t.task, err))
	return err
}

func (t *taskRun) removeTemp() {
	if t.task.TempPath == "" {
		return
	}
	if err := t.d.fs.DeleteTempFile(t.task.TempPath); err != nil {
		t.d.logger.Warn("failed to delete temp file",
			zap.String("path", t.task.TempPath),
			zap.Error(err))
	}
	t.task.TempPath = ""
}
