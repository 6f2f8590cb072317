package soundcloud

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/oshokin/scdl-grabber/internal/constants"
	"github.com/oshokin/scdl-grabber/internal/logger"
)

const (
	archiveLockSuffix = ".lock"
	lockRetryDelay    = 50 * time.Millisecond
)

// ArchiveStore is a line-per-ID file of already acquired track IDs.
// Every read-modify-write span holds an advisory lock on a sibling lock file,
// so concurrent invocations never interleave appends or rewrites.
type ArchiveStore struct {
	path string
	lock *flock.Flock
}

// NewArchiveStore creates a store backed by path. The file is created lazily.
func NewArchiveStore(path string) *ArchiveStore {
	return &ArchiveStore{
		path: path,
		lock: flock.New(path + archiveLockSuffix),
	}
}

// Path returns the backing file path.
func (a *ArchiveStore) Path() string {
	return a.path
}

// Contains reports whether trackID is archived.
func (a *ArchiveStore) Contains(ctx context.Context, trackID int64) (bool, error) {
	if _, err := a.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return false, fmt.Errorf("failed to lock archive %s: %w", a.path, err)
	}

	defer a.unlock(ctx)

	lines, err := a.readLines()
	if err != nil {
		return false, err
	}

	want := strconv.FormatInt(trackID, 10)
	for _, line := range lines {
		if line == want {
			return true, nil
		}
	}

	return false, nil
}

// Record appends trackID unless it is already present.
func (a *ArchiveStore) Record(ctx context.Context, trackID int64) error {
	if _, err := a.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to lock archive %s: %w", a.path, err)
	}

	defer a.unlock(ctx)

	lines, err := a.readLines()
	if err != nil {
		return err
	}

	id := strconv.FormatInt(trackID, 10)
	for _, line := range lines {
		if line == id {
			return nil
		}
	}

	file, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", a.path, err)
	}

	if _, err = file.WriteString(id + "\n"); err != nil {
		file.Close() //nolint:errcheck,gosec // Write error takes precedence.

		return fmt.Errorf("failed to write archive %s: %w", a.path, err)
	}

	return file.Close()
}

// ReadIDs returns the archived IDs in file order. A missing or empty file yields no IDs.
// Lines that are not decimal IDs are ignored.
func (a *ArchiveStore) ReadIDs(ctx context.Context) ([]int64, error) {
	if _, err := a.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return nil, fmt.Errorf("failed to lock archive %s: %w", a.path, err)
	}

	defer a.unlock(ctx)

	lines, err := a.readLines()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(lines))

	for _, line := range lines {
		id, parseErr := strconv.ParseInt(line, 10, 64)
		if parseErr != nil {
			logger.Warnf(ctx, "Ignoring invalid line %q in archive %s", line, a.path)

			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// Rewrite replaces the archive content with ids. Repeated IDs are written once.
func (a *ArchiveStore) Rewrite(ctx context.Context, ids []int64) error {
	if _, err := a.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("failed to lock archive %s: %w", a.path, err)
	}

	defer a.unlock(ctx)

	var builder strings.Builder
	for _, id := range lo.Uniq(ids) {
		builder.WriteString(strconv.FormatInt(id, 10))
		builder.WriteByte('\n')
	}

	tempPath := filepath.Join(filepath.Dir(a.path), "."+filepath.Base(a.path)+"."+uuid.NewString())

	if err := os.WriteFile(tempPath, []byte(builder.String()), constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write archive %s: %w", a.path, err)
	}

	if err := os.Rename(tempPath, a.path); err != nil {
		os.Remove(tempPath) //nolint:errcheck,gosec // Best-effort cleanup.

		return fmt.Errorf("failed to replace archive %s: %w", a.path, err)
	}

	return nil
}

func (a *ArchiveStore) readLines() ([]string, error) {
	file, err := os.Open(filepath.Clean(a.path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", a.path, err)
	}

	defer file.Close() //nolint:errcheck // Read-only handle.

	var (
		lines   []string
		scanner = bufio.NewScanner(file)
	)

	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", a.path, err)
	}

	return lines, nil
}

func (a *ArchiveStore) unlock(ctx context.Context) {
	if err := a.lock.Unlock(); err != nil {
		logger.Warnf(ctx, "Failed to unlock archive %s: %v", a.path, err)
	}
}
