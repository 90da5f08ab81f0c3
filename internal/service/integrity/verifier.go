package integrity

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/port"
)

const (
	// SidecarSuffix is appended to an artifact URL to locate its sha1 reference
	SidecarSuffix = ".sha1"

	sha1HexLen      = 40
	maxSidecarBytes = 4 << 10

	defaultSidecarTimeout = 10 * time.Second
)

// Outcome describes how a verification concluded
type Outcome int

const (
	// VerifySkipped means no expected hash was available
	VerifySkipped Outcome = iota
	// VerifyOK means the computed hash matched
	VerifyOK
)

func (o Outcome) String() string {
	if o == VerifyOK {
		return "ok"
	}
	return "skipped"
}

// NewHasher returns a hash for the named algorithm; empty means sha1
func NewHasher(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "", domain.AlgorithmSHA1:
		return sha1.New(), nil
	case domain.AlgorithmSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported hash algorithm %q", domain.ErrInvalidInput, algorithm)
	}
}

// ComputeHash returns the lowercase hex digest of r
func ComputeHash(r io.Reader, algorithm string) (string, error) {
	h, err := NewHasher(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ParseReferenceHash extracts a sha1 from a sidecar body of the form
// "<hash>" or "<hash>  <filename>". Anything else is reported absent.
func ParseReferenceHash(body string) (string, bool) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", false
	}
	token := strings.ToLower(fields[0])
	if len(token) != sha1HexLen {
		return "", false
	}
	for _, c := range token {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return "", false
		}
	}
	return token, true
}

// FileOpener is the slice of port.FileSystem the verifier reads through
type FileOpener interface {
	Open(path string) (io.ReadCloser, error)
}

// Verifier computes and checks artifact checksums
type Verifier struct {
	client  port.HTTPClient
	files   FileOpener
	logger  *zap.Logger
	timeout time.Duration
}

// NewVerifier creates a verifier. client is only used for sidecar lookups
// and files only by VerifyFile.
func NewVerifier(client port.HTTPClient, files FileOpener, logger *zap.Logger) *Verifier {
	return &Verifier{
		client:  client,
		files:   files,
		logger:  logger,
		timeout: defaultSidecarTimeout,
	}
}

// FetchReferenceHash requests artifactURL + ".sha1". Failures of any kind
// are logged and reported as absent.
func (v *Verifier) FetchReferenceHash(ctx context.Context, artifactURL string) (string, bool) {
	sidecarURL := artifactURL + SidecarSuffix

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sidecarURL, nil)
	if err != nil {
		v.logger.Debug("invalid sidecar url", zap.String("url", sidecarURL), zap.Error(err))
		return "", false
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Debug("sidecar fetch failed", zap.String("url", sidecarURL), zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.logger.Debug("sidecar not available",
			zap.String("url", sidecarURL),
			zap.Int("status", resp.StatusCode))
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSidecarBytes))
	if err != nil {
		return "", false
	}

	ref, ok := ParseReferenceHash(string(body))
	if !ok {
		v.logger.Warn("ignoring malformed sidecar hash", zap.String("url", sidecarURL))
	}
	return ref, ok
}

// Verify hashes r and compares it with expected.
// An empty expected skips the comparison.
func (v *Verifier) Verify(r io.Reader, expected, algorithm string) (Outcome, string, error) {
	expected = strings.ToLower(strings.TrimSpace(expected))
	if expected == "" {
		return VerifySkipped, "", nil
	}

	actual, err := ComputeHash(r, algorithm)
	if err != nil {
		return VerifySkipped, "", err
	}
	if actual != expected {
		return VerifySkipped, actual, &domain.ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return VerifyOK, actual, nil
}

// VerifyFile verifies the file at path
func (v *Verifier) VerifyFile(path, expected, algorithm string) (Outcome, string, error) {
	if v.files == nil {
		return VerifySkipped, "", fmt.Errorf("no filesystem configured to verify %s", path)
	}
	f, err := v.files.Open(path)
	if err != nil {
		return VerifySkipped, "", fmt.Errorf("failed to open %s for verification: %w", path, err)
	}
	defer f.Close()

	outcome, actual, err := v.Verify(f, expected, algorithm)
	var ce *domain.ChecksumMismatchError
	if errors.As(err, &ce) {
		ce.Path = path
	}
	return outcome, actual, err
}
