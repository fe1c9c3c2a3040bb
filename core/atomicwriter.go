package core

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// fileLock is an advisory lock held through a sibling ".lock" file.
type fileLock struct {
	file *os.File
	path string
}

// AtomicWriteConfig controls how rewritten files reach the disk
type AtomicWriteConfig struct {
	UseFsync       bool          // fsync the temp file before rename
	LockTimeout    time.Duration // max time to wait for another writer
	TempSuffix     string        // suffix of the temp file next to the target
	BackupOriginal bool          // keep a timestamped copy of the old content
}

// DefaultAtomicConfig returns the settings used by replace.
func DefaultAtomicConfig() AtomicWriteConfig {
	return AtomicWriteConfig{
		LockTimeout: 5 * time.Second,
		TempSuffix:  ".sift.tmp",
	}
}

// AtomicWriter replaces file content through a temp file and rename, so a
// reader never sees a half-written file.
type AtomicWriter struct {
	config AtomicWriteConfig
	locks  map[string]*fileLock
	mu     sync.Mutex
}

// NewAtomicWriter creates a writer. Zero LockTimeout and empty TempSuffix
// fall back to the defaults.
func NewAtomicWriter(config AtomicWriteConfig) *AtomicWriter {
	def := DefaultAtomicConfig()
	if config.LockTimeout <= 0 {
		config.LockTimeout = def.LockTimeout
	}
	if config.TempSuffix == "" {
		config.TempSuffix = def.TempSuffix
	}
	return &AtomicWriter{
		config: config,
		locks:  make(map[string]*fileLock),
	}
}

// WriteFile atomically replaces path with content. The file mode of an
// existing file is preserved. It returns the backup path, or "" when no backup
// was made.
func (aw *AtomicWriter) WriteFile(path string, content []byte) (string, error) {
	if err := aw.acquireLock(path); err != nil {
		return "", fmt.Errorf("failed to acquire lock for %s: %w", path, err)
	}
	defer aw.releaseLock(path)

	var mode os.FileMode = 0o644
	info, statErr := os.Stat(path)
	if statErr == nil {
		mode = info.Mode().Perm()
	}

	var backupPath string
	if aw.config.BackupOriginal && statErr == nil {
		var err error
		backupPath, err = aw.createBackup(path, mode)
		if err != nil {
			return "", fmt.Errorf("failed to create backup: %w", err)
		}
	}

	tempPath := path + aw.config.TempSuffix
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tempFile.Write(content); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to write content: %w", err)
	}

	if aw.config.UseFsync {
		if err := tempFile.Sync(); err != nil {
			tempFile.Close()
			os.Remove(tempPath)
			return "", fmt.Errorf("failed to sync: %w", err)
		}
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to atomic rename: %w", err)
	}

	return backupPath, nil
}

func (aw *AtomicWriter) acquireLock(path string) error {
	lockPath := path + ".lock"
	deadline := time.Now().Add(aw.config.LockTimeout)

	for {
		aw.mu.Lock()
		if _, held := aw.locks[path]; held {
			aw.mu.Unlock()
		} else {
			f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
			if err == nil {
				fmt.Fprintf(f, "%d\n", os.Getpid())
				aw.locks[path] = &fileLock{file: f, path: lockPath}
				aw.mu.Unlock()
				return nil
			}
			aw.mu.Unlock()

			if !os.IsExist(err) {
				return fmt.Errorf("failed to create lock file: %w", err)
			}
			if isLockStale(lockPath) {
				os.Remove(lockPath)
				continue
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for lock on %s", path)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func (aw *AtomicWriter) releaseLock(path string) {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	lock, ok := aw.locks[path]
	if !ok {
		return
	}
	lock.file.Close()
	os.Remove(lock.path)
	delete(aw.locks, path)
}

// isLockStale reports whether the lock file belongs to a process that no
// longer runs.
func isLockStale(lockPath string) bool {
	content, err := os.ReadFile(lockPath)
	if err != nil {
		return true
	}

	var pid int
	if _, err := fmt.Sscanf(string(content), "%d", &pid); err != nil {
		// the owner may not have written its pid yet
		info, statErr := os.Stat(lockPath)
		return statErr == nil && time.Since(info.ModTime()) > time.Second
	}
	return !lockOwnerRunning(pid)
}

func (aw *AtomicWriter) createBackup(path string, mode os.FileMode) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backupPath := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405.000000000"))
	if err := os.WriteFile(backupPath, content, mode); err != nil {
		return "", err
	}
	return backupPath, nil
}

// Cleanup releases every lock still held.
func (aw *AtomicWriter) Cleanup() {
	aw.mu.Lock()
	paths := make([]string, 0, len(aw.locks))
	for p := range aw.locks {
		paths = append(paths, p)
	}
	aw.mu.Unlock()

	for _, p := range paths {
		aw.releaseLock(p)
	}
}
