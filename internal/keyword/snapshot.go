package keyword

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	sifterr "github.com/netsift/netsift/internal/errors"
)

// snapshotVersion is bumped on incompatible format changes; older or
// unknown versions are treated as corrupt and discarded.
const snapshotVersion = 1

// lockRetryDelay is the poll interval while waiting for the advisory lock.
const lockRetryDelay = 100 * time.Millisecond

// snapshotData is the on-disk snapshot format. The three sequences carry
// the alignment invariant into the file.
type snapshotData struct {
	Version int            `json:"version"`
	K1      float64        `json:"k1"`
	B       float64        `json:"b"`
	Texts   []string       `json:"texts"`
	Tokens  [][]string     `json:"tokens"`
	Metas   []DocumentMeta `json:"metas"`
}

// snapshotter persists and restores corpus snapshots under an advisory
// file lock, so separate worker processes can safely share one snapshot.
type snapshotter struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
}

// newSnapshotter creates a snapshotter for the given path. The lock file
// sits next to the snapshot.
func newSnapshotter(path string, lockTimeout time.Duration) *snapshotter {
	return &snapshotter{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: lockTimeout,
	}
}

// persist writes the snapshot atomically (temp file + rename) while
// holding the exclusive advisory lock. If the lock is not acquired within
// the bounded timeout, the write is abandoned and a non-fatal lock-timeout
// error returned.
func (s *snapshotter) persist(ctx context.Context, snap *snapshotData) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return sifterr.New(sifterr.ErrCodeSnapshotIO, "failed to create snapshot directory", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	acquired, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !acquired {
		return sifterr.New(sifterr.ErrCodeLockTimeout,
			fmt.Sprintf("snapshot lock not acquired within %s, write abandoned", s.lockTimeout), err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := json.Marshal(snap)
	if err != nil {
		return sifterr.New(sifterr.ErrCodeSnapshotIO, "failed to encode snapshot", err)
	}

	// A unique temp file per write: concurrent writers from other
	// processes can never interleave bytes into the same scratch file.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return sifterr.New(sifterr.ErrCodeSnapshotIO, "failed to create snapshot temp file", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return sifterr.New(sifterr.ErrCodeSnapshotIO, "failed to write snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return sifterr.New(sifterr.ErrCodeSnapshotIO, "failed to write snapshot", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return sifterr.New(sifterr.ErrCodeSnapshotIO, "failed to write snapshot", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return sifterr.New(sifterr.ErrCodeSnapshotIO, "failed to replace snapshot", err)
	}
	return nil
}

// load reads the most recent snapshot under a shared advisory lock.
// Returns (nil, nil) when no snapshot exists; a decode failure or broken
// alignment invariant returns an error the caller downgrades to an empty
// corpus.
func (s *snapshotter) load() (*snapshotData, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}

	lockCtx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	acquired, err := s.lock.TryRLockContext(lockCtx, lockRetryDelay)
	if err != nil || !acquired {
		return nil, sifterr.New(sifterr.ErrCodeLockTimeout, "snapshot read lock not acquired", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, sifterr.New(sifterr.ErrCodeSnapshotIO, "failed to read snapshot", err)
	}

	var snap snapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, sifterr.New(sifterr.ErrCodeSnapshotCorrupt, "snapshot is not valid JSON", err)
	}
	if snap.Version != snapshotVersion {
		return nil, sifterr.New(sifterr.ErrCodeSnapshotCorrupt,
			fmt.Sprintf("unsupported snapshot version %d", snap.Version), nil)
	}
	if len(snap.Texts) != len(snap.Tokens) || len(snap.Texts) != len(snap.Metas) {
		return nil, sifterr.New(sifterr.ErrCodeSnapshotCorrupt,
			fmt.Sprintf("snapshot sequences misaligned: texts=%d tokens=%d metas=%d",
				len(snap.Texts), len(snap.Tokens), len(snap.Metas)), nil)
	}

	return &snap, nil
}
