package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ClearLeaseEnv forces the next lease check to discard the current lease.
const ClearLeaseEnv = "KLINIK_CLEAR_EXPORT_LEASE"

// ErrLeaseHeld is returned when another process holds a valid lease.
var ErrLeaseHeld = errors.New("export lease is held by another process")

// LeaseInfo is the content of a lease file.
type LeaseInfo struct {
	Owner      string    `json:"owner"`
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// Lease is a TTL marker file granting one process ownership of the recurring export.
type Lease struct {
	path    string
	ttl     time.Duration
	enabled bool
	owner   string
}

// NewLease creates a Lease stored at path. A disabled lease is always granted.
func NewLease(path string, ttl time.Duration, enabled bool) *Lease {
	return &Lease{
		path:    path,
		ttl:     ttl,
		enabled: enabled,
		owner:   uuid.NewString(),
	}
}

// Owner returns the identity written into the lease file.
func (l *Lease) Owner() string {
	return l.owner
}

// TTL returns the lease validity period.
func (l *Lease) TTL() time.Duration {
	return l.ttl
}

// Acquire takes or renews the lease. It fails with ErrLeaseHeld when another owner holds an
// unexpired lease. A free lease is published with a hard link, so of several processes
// racing for it only one succeeds.
func (l *Lease) Acquire() error {
	if !l.enabled {
		return nil
	}

	current, ok := l.Check()
	if ok && current.Owner != l.owner {
		return heldError(current)
	}

	data, err := l.marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(l.path), dirPerm); err != nil {
		return errors.Wrap(err, "failed to create lease directory")
	}

	tmp, err := l.writeTemp(data)
	if err != nil {
		return err
	}

	defer os.Remove(tmp) //nolint:errcheck // best effort

	if ok {
		if err := os.Rename(tmp, l.path); err != nil {
			return errors.Wrap(err, "failed to renew lease")
		}

		return nil
	}

	// a hard link fails when the lease exists and never exposes a partial file
	if err := os.Link(tmp, l.path); err != nil {
		if os.IsExist(err) {
			return errors.Wrap(ErrLeaseHeld, "another process acquired the lease first")
		}

		return errors.Wrap(err, "failed to create lease file")
	}

	return nil
}

func (l *Lease) writeTemp(data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "failed to create lease file")
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return "", errors.Wrap(err, "failed to write lease file")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return "", errors.Wrap(err, "failed to close lease file")
	}

	return tmp.Name(), nil
}

func (l *Lease) marshal() ([]byte, error) {
	hostname, _ := os.Hostname()

	now := time.Now()
	info := LeaseInfo{
		Owner:      l.owner,
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: now,
		ExpiresAt:  now.Add(l.ttl),
		TTLSeconds: int(l.ttl.Seconds()),
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal lease")
	}

	return data, nil
}

func heldError(current *LeaseInfo) error {
	return errors.WithHintf(
		errors.Wrapf(ErrLeaseHeld, "pid %d until %s", current.PID, current.ExpiresAt.Format(time.RFC3339)),
		"set %s=1 to discard a stale lease", ClearLeaseEnv,
	)
}

// Check returns the current lease if it is valid. Expired or unreadable leases are removed.
func (l *Lease) Check() (*LeaseInfo, bool) {
	if !l.enabled {
		return nil, false
	}

	if os.Getenv(ClearLeaseEnv) != "" {
		_ = l.remove() // best effort

		return nil, false
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, false
	}

	var info LeaseInfo
	if err := json.Unmarshal(data, &info); err != nil {
		_ = l.remove() // best effort

		return nil, false
	}

	if time.Now().After(info.ExpiresAt) {
		_ = l.remove() // best effort

		return nil, false
	}

	return &info, true
}

// Release removes the lease if this process owns it.
func (l *Lease) Release() error {
	if !l.enabled {
		return nil
	}

	current, ok := l.Check()
	if !ok || current.Owner != l.owner {
		return nil
	}

	return l.remove()
}

// IsEnabled returns whether the lease is enforced.
func (l *Lease) IsEnabled() bool {
	return l.enabled
}

func (l *Lease) remove() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove lease file")
	}

	return nil
}
