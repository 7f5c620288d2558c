// Package lockfile guards the storage root across processes and
// machines. The in-process run guard stops a scheduled and a manual
// backup from overlapping inside one process; this lock covers the
// remaining case of two hosts writing through the same mounted folder.
package lockfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/driveback/driveback/pkg/util"
)

// LockFileName is the name of the lock file created at the storage root.
const LockFileName = ".driveback.lock"

// These are vars to allow modification during testing.
var (
	heartbeatInterval = 30 * time.Second
	// staleTimeout is defined in relation to the heartbeat so a crashed
	// holder is taken over after a safe margin.
	staleTimeout = 3 * heartbeatInterval
)

// content is the JSON body of the lock file.
type content struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// ErrLockActive is returned when the lock is held by another live process.
type ErrLockActive struct {
	PID       int
	Hostname  string
	TimeSince time.Duration
}

func (e *ErrLockActive) Error() string {
	return fmt.Sprintf("storage root is locked by PID %d on host '%s', last updated %s ago",
		e.PID, e.Hostname, e.TimeSince.Truncate(time.Second))
}

// Lock is an acquired storage-root lock. Release must be called when
// the run finishes.
type Lock struct {
	path   string
	cancel context.CancelFunc
	mu     sync.Mutex
	held   bool
}

// Acquire attempts to take the storage-root lock. A stale lock (no
// heartbeat for staleTimeout) is removed and acquisition retried once.
func Acquire(ctx context.Context, dirPath string) (*Lock, error) {
	lockPath := filepath.Join(dirPath, LockFileName)

	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lock, err := tryAcquire(lockPath)
		if err == nil {
			return lock, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		// Lock file exists; decide between active and stale.
		existing, readErr := readContent(lockPath)
		if readErr == nil {
			age := time.Since(existing.LastUpdate)
			if age < staleTimeout {
				return nil, &ErrLockActive{PID: existing.PID, Hostname: existing.Hostname, TimeSince: age}
			}
			log.Warn().Int("pid", existing.PID).Dur("age", age).Msg("taking over stale storage lock")
		} else {
			log.Warn().Err(readErr).Msg("unreadable storage lock, treating as stale")
		}

		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to acquire storage lock at %s (contention)", lockPath)
}

// tryAcquire creates the lock file with O_EXCL so only one process can win.
func tryAcquire(lockPath string) (*Lock, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, util.UserWritableFilePerms)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hostname, _ := os.Hostname()
	if err := writeContent(f, content{PID: os.Getpid(), Hostname: hostname, LastUpdate: time.Now().UTC()}); err != nil {
		os.Remove(lockPath)
		return nil, err
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	l := &Lock{path: lockPath, cancel: cancel, held: true}
	go l.heartbeat(hbCtx)
	return l, nil
}

// Release stops the heartbeat and removes the lock file. Safe to call twice.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.cancel()
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("path", l.path).Err(err).Msg("failed to remove lock file")
	}
	l.held = false
}

// heartbeat refreshes the lock timestamp so other processes can tell a
// live holder from a crashed one.
func (l *Lock) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hostname, _ := os.Hostname()
			if err := rewriteContent(l.path, content{PID: os.Getpid(), Hostname: hostname, LastUpdate: time.Now().UTC()}); err != nil {
				log.Warn().Err(err).Msg("lock heartbeat failed")
			}
		}
	}
}

func writeContent(f *os.File, c content) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// rewriteContent updates the lock atomically via temp file + rename so
// readers never observe a partially written body.
func rewriteContent(lockPath string, c content) error {
	tmpF, err := os.CreateTemp(filepath.Dir(lockPath), filepath.Base(lockPath)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpF.Name()
	defer os.Remove(tmpPath)

	if err := writeContent(tmpF, c); err != nil {
		tmpF.Close()
		return err
	}
	if err := tmpF.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, lockPath)
}

func readContent(lockPath string) (content, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return content{}, err
	}
	var c content
	if err := json.Unmarshal(data, &c); err != nil {
		return content{}, fmt.Errorf("lock file is corrupt: %w", err)
	}
	return c, nil
}
