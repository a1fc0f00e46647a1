package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
	"github.com/smykla-labs/klinik/pkg/logger"
)

const (
	filePrefix  = "export-"
	fileSuffix  = ".json"
	filePattern = filePrefix + "*" + fileSuffix
	stampLayout = "20060102T150405Z"

	dirPerm  = 0o700
	filePerm = 0o600
)

// ErrInvalidRetention is returned by Prune for a non-positive retention.
var ErrInvalidRetention = errors.New("retention must be at least one day")

// Manager writes, lists and prunes export artifacts in a directory.
type Manager struct {
	dir string
	log logger.Logger
	now func() time.Time

	// mu serializes writers so deduplication sees every previous export.
	mu sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager writing into dir.
func NewManager(dir string, log logger.Logger, opts ...ManagerOption) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("export directory cannot be empty")
	}

	if log == nil {
		log = logger.NewNoOpLogger()
	}

	m := &Manager{
		dir: dir,
		log: log.With("component", "export"),
		now: time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Dir returns the export directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Export writes cfg as a new artifact. When the newest artifact holds identical data it is
// returned instead.
func (m *Manager) Export(ctx context.Context, cfg pkgconfig.Config) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := cfg.Redacted()

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal settings")
	}

	checksum := ComputeChecksum(encoded)

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.List()
	if err != nil {
		return nil, err
	}

	if n := len(existing); n > 0 && existing[n-1].Checksum == checksum {
		latest := existing[n-1]
		m.log.Debug("settings unchanged since last export", "path", latest.Path)

		return &latest, nil
	}

	now := m.now().UTC()
	doc := Document{
		ID:         uuid.NewString(),
		Timestamp:  now,
		SystemName: data.SystemName,
		Version:    data.Version,
		Checksum:   checksum,
		Data:       data,
	}

	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal export")
	}

	if err := os.MkdirAll(m.dir, dirPerm); err != nil {
		return nil, errors.Wrap(err, "failed to create export directory")
	}

	path := filepath.Join(m.dir, FileName(now, doc.ID))

	if err := os.WriteFile(path, content, filePerm); err != nil {
		return nil, errors.Wrap(err, "failed to write export")
	}

	m.log.Info("exported settings", "path", path, "size", humanize.Bytes(uint64(len(content))))

	return &Artifact{
		ID:         doc.ID,
		Timestamp:  doc.Timestamp,
		SystemName: doc.SystemName,
		Checksum:   checksum,
		Path:       path,
		Size:       int64(len(content)),
	}, nil
}

// List returns the artifacts in the export directory, oldest first. Files that cannot be
// parsed are skipped.
func (m *Manager) List() ([]Artifact, error) {
	names, err := doublestar.Glob(os.DirFS(m.dir), filePattern)
	if err != nil {
		if os.IsNotExist(err) {
			return []Artifact{}, nil
		}

		return nil, errors.Wrap(err, "failed to list exports")
	}

	artifacts := make([]Artifact, 0, len(names))

	for _, name := range names {
		a, err := m.read(filepath.Join(m.dir, name))
		if err != nil {
			m.log.Debug("skipping unreadable export", "file", name, "error", err)

			continue
		}

		artifacts = append(artifacts, *a)
	}

	slices.SortFunc(artifacts, func(a, b Artifact) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}

		return strings.Compare(a.Path, b.Path)
	})

	return artifacts, nil
}

// Prune removes artifacts older than retentionDays and returns how many were removed. The
// newest artifact is always kept, so a directory that had exports never ends up empty.
func (m *Manager) Prune(retentionDays int) (int, error) {
	if retentionDays < 1 {
		return 0, errors.Wrapf(ErrInvalidRetention, "got %d", retentionDays)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	artifacts, err := m.List()
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	removed := 0

	if len(artifacts) > 0 {
		artifacts = artifacts[:len(artifacts)-1]
	}

	for _, a := range artifacts {
		if !a.Timestamp.Before(cutoff) {
			continue
		}

		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, "failed to remove %s", a.Path)
		}

		removed++
	}

	if removed > 0 {
		m.log.Info("pruned exports", "removed", removed, "retention_days", retentionDays)
	}

	return removed, nil
}

func (*Manager) read(path string) (*Artifact, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read export")
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse export")
	}

	return &Artifact{
		ID:         doc.ID,
		Timestamp:  doc.Timestamp,
		SystemName: doc.SystemName,
		Checksum:   doc.Checksum,
		Path:       path,
		Size:       int64(len(content)),
	}, nil
}

// FileName returns the artifact file name for an export taken at t.
func FileName(t time.Time, id string) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}

	return filePrefix + t.UTC().Format(stampLayout) + "-" + short + fileSuffix
}

// ComputeChecksum returns the hex SHA-256 of data.
func ComputeChecksum(data []byte) string {
	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
