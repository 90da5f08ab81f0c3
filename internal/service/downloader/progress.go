package downloader

import (
	"io"
	"time"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/domain/event"
	"github.com/vertextoedge/mcfetch/internal/util/ratelimiter"
)

// progressReader wraps a response body to emit throttled progress events
// and to tell read failures apart from write failures
type progressReader struct {
	reader     io.Reader
	taskID     string
	total      int64
	dispatcher event.EventDispatcher
	limiter    *ratelimiter.Limiter
	now        func() time.Time

	started   time.Time
	bytesRead int64
	readErr   error
}

func newProgressReader(r io.Reader, taskID string, total int64, interval time.Duration, now func() time.Time, d event.EventDispatcher) *progressReader {
	if total < 0 {
		total = -1
	}
	return &progressReader{
		reader:     r,
		taskID:     taskID,
		total:      total,
		dispatcher: d,
		limiter:    ratelimiter.New(interval, ratelimiter.WithClock(now)),
		now:        now,
		started:    now(),
	}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)

	if err != nil && err != io.EOF {
		r.readErr = err
	}

	if n > 0 {
		if allowed, _ := r.limiter.Allow(); allowed {
			r.dispatcher.Dispatch(event.NewDownloadProgressed(r.sample()))
		}
	}

	return n, err
}

// finish emits the final progress event for the stream
func (r *progressReader) finish() {
	r.dispatcher.Dispatch(event.NewDownloadProgressed(r.sample()))
}

func (r *progressReader) sample() domain.DownloadProgress {
	var rate float64
	if elapsed := r.now().Sub(r.started).Seconds(); elapsed > 0 {
		rate = float64(r.bytesRead) / elapsed
	}
	return domain.DownloadProgress{
		TaskID:          r.taskID,
		BytesDownloaded: r.bytesRead,
		BytesTotal:      r.total,
		Rate:            rate,
	}
}
