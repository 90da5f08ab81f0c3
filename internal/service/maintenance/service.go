package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/mcfetch/internal/domain"
	"github.com/vertextoedge/mcfetch/internal/port"
)

// Config contains maintenance service configuration
type Config struct {
	// CleanupInterval is how often to run cleanup tasks
	CleanupInterval time.Duration

	// TempFileMaxAge is the maximum age of temp files before cleanup
	TempFileMaxAge time.Duration

	// PruneBatchSize is how many ledger records are read per page
	PruneBatchSize int
}

// DefaultConfig returns default maintenance configuration
func DefaultConfig() *Config {
	return &Config{
		CleanupInterval: time.Hour,
		TempFileMaxAge:  24 * time.Hour,
		PruneBatchSize:  10000,
	}
}

// Report summarizes one maintenance run
type Report struct {
	TempFilesRemoved int `json:"temp_files_removed"`
	RecordsPruned    int `json:"records_pruned"`
}

// Service handles periodic maintenance tasks
type Service struct {
	config    *Config
	artifacts port.ArtifactRepository
	fs        port.FileSystem
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new maintenance Service. artifacts may be nil when the
// ledger is disabled.
func New(cfg *Config, artifacts port.ArtifactRepository, fs port.FileSystem, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.TempFileMaxAge == 0 {
		cfg.TempFileMaxAge = 24 * time.Hour
	}
	if cfg.PruneBatchSize <= 0 {
		cfg.PruneBatchSize = 10000
	}

	return &Service{
		config:    cfg,
		artifacts: artifacts,
		fs:        fs,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs maintenance until ctx is cancelled or Stop is called
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maintenance service already running")
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("maintenance service started",
		zap.Duration("cleanup_interval", s.config.CleanupInterval),
		zap.Duration("temp_file_max_age", s.config.TempFileMaxAge))

	// Leftovers from a previous crash are swept right away.
	s.RunOnce()

	s.wg.Add(1)
	go s.maintenanceLoop(ctx)

	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("maintenance service stopped")
	return nil
}

// Stop stops the maintenance service
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

func (s *Service) maintenanceLoop(ctx context.Context) {
	defer s.wg.Done()

	cleanupTicker := time.NewTicker(s.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			s.RunOnce()
		}
	}
}

// RunOnce performs a single maintenance pass
func (s *Service) RunOnce() Report {
	return Report{
		TempFilesRemoved: s.cleanupTempFiles(),
		RecordsPruned:    s.pruneLedger(),
	}
}

// cleanupTempFiles removes abandoned partial downloads
func (s *Service) cleanupTempFiles() int {
	fileCount, err := s.fs.CleanOldTempFiles(s.config.TempFileMaxAge)
	if err != nil {
		s.logger.Error("failed to cleanup old temp files", zap.Error(err))
	} else if fileCount > 0 {
		s.logger.Info("cleaned up old temp files", zap.Int("count", fileCount))
	}
	return fileCount
}

// pruneLedger drops records whose committed file no longer exists
func (s *Service) pruneLedger() int {
	if s.artifacts == nil {
		return 0
	}

	now := s.now()
	var cursor domain.ArtifactCursor
	pruned := 0
	for {
		records, err := s.artifacts.ListArtifacts(now, cursor, s.config.PruneBatchSize)
		if err != nil {
			s.logger.Error("failed to list artifacts", zap.Error(err))
			break
		}

		for _, rec := range records {
			if s.fs.FileExists(rec.Path) {
				continue
			}
			if err := s.artifacts.DeleteArtifact(rec.Path); err != nil {
				s.logger.Warn("failed to prune artifact record",
					zap.String("path", rec.Path),
					zap.Error(err))
				continue
			}
			pruned++
		}

		if len(records) < s.config.PruneBatchSize {
			break
		}
		cursor = records[len(records)-1].Cursor()
	}

	if pruned > 0 {
		s.logger.Info("pruned artifact records for missing files", zap.Int("count", pruned))
	}
	return pruned
}
