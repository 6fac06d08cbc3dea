package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/guildtools/stockpile/internal/model"
	"github.com/guildtools/stockpile/internal/store"
)

// s3Client is the slice of the S3 API the manager needs, as an
// interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds backup manager configuration. Backups are disabled
// unless bucket, credentials, and passphrase are all present.
type Config struct {
	S3Endpoint string
	S3Bucket   string
	S3Region   string
	S3Access   string
	S3Secret   string
	Passphrase string
	DBPath     string
	Interval   time.Duration
	Keep       int
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status is the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is invoked whenever the backup state changes.
type StatusCallback func(Status)

// Manager periodically snapshots the database, encrypts the snapshot,
// and uploads it to S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	db      *sql.DB
	backups *store.BackupStore
	client  s3Client
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, backups *store.BackupStore, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		db:       db,
		backups:  backups,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}

	if cfg.S3Bucket != "" && cfg.S3Access != "" && cfg.S3Secret != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.S3Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.S3Access, cfg.S3Secret, ""),
		UsePathStyle: true,
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager is configured to run.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Status returns the current manager status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// List returns the most recent recorded backups.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.backups.List(limit)
}

// Start launches the periodic backup loop. A failed run logs, flips
// the status to error, and waits for the next tick.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.BackupNow(ctx); err != nil {
					m.logger.Error("scheduled backup", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// BackupNow snapshots, encrypts, and uploads immediately.
func (m *Manager) BackupNow(ctx context.Context) error {
	if !m.Enabled() {
		return fmt.Errorf("backup disabled")
	}

	m.setStatus(func(s *Status) {
		s.State = StateRunning
		s.InProgress = true
		s.Error = ""
	})

	err := m.run(ctx)

	now := time.Now().UTC()
	m.setStatus(func(s *Status) {
		s.InProgress = false
		if err != nil {
			s.State = StateError
			s.Error = err.Error()
		} else {
			s.State = StateIdle
			s.LastBackup = &now
		}
	})
	return err
}

func (m *Manager) run(ctx context.Context) error {
	snapshot, err := m.snapshot()
	if err != nil {
		return err
	}

	sealed, err := Encrypt(snapshot, m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}

	key := fmt.Sprintf("stockpile/%s-%s.db.enc",
		time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])

	if err := m.upload(ctx, key, sealed); err != nil {
		return err
	}

	if _, err := m.backups.Record(key, int64(len(sealed))); err != nil {
		return err
	}

	m.prune(ctx)
	m.logger.Info("backup uploaded", "key", key, "size", len(sealed))
	return nil
}

// snapshot writes a consistent copy of the live database with
// VACUUM INTO and returns its bytes.
func (m *Manager) snapshot() ([]byte, error) {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("stockpile-snapshot-%s.db", uuid.NewString()[:8]))
	defer os.Remove(tmp)

	if _, err := m.db.Exec(`VACUUM INTO ?`, tmp); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// upload puts the sealed snapshot with exponential-backoff retries;
// only transient failures are worth retrying, but distinguishing them
// from S3 error shapes is not worth the coupling, so every failure is
// retried a bounded number of times.
func (m *Manager) upload(ctx context.Context, key string, data []byte) error {
	backoff := retry.WithMaxRetries(4, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(m.cfg.S3Bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("put object: %w", err))
		}
		return nil
	})
}

// prune drops local rows beyond the retention count and best-effort
// deletes the corresponding remote objects.
func (m *Manager) prune(ctx context.Context) {
	keep := m.cfg.Keep
	if keep <= 0 {
		keep = 14
	}
	keys, err := m.backups.PruneOlderThan(keep)
	if err != nil {
		m.logger.Warn("prune backups", "error", err)
		return
	}

	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete stale backup object", "key", key, "error", err)
		}
	}
}

func (m *Manager) setStatus(update func(*Status)) {
	m.mu.Lock()
	update(&m.status)
	status := m.status
	callback := m.callback
	m.mu.Unlock()

	if callback != nil {
		callback(status)
	}
}
