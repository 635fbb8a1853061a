// Package runlock keeps two thumbsync runs from working on the same tree at
// once, which would let both bind the same video.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	thserrors "github.com/five82/thumbsync/internal/errors"
)

// Lock is a held run lock.
type Lock struct {
	path string
	fl   *flock.Flock
}

// PathFor returns the lock file used for root. dir empty means the OS
// temp directory.
func PathFor(dir, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = os.TempDir()
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(dir, "thumbsync-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

// Acquire takes the lock for root without blocking.
func Acquire(dir, root string) (*Lock, error) {
	path, err := PathFor(dir, root)
	if err != nil {
		return nil, thserrors.NewPathError(fmt.Sprintf("invalid root %s: %v", root, err))
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, thserrors.NewIOError("acquire run lock", err)
	}
	if !ok {
		return nil, thserrors.NewOperationFailedError(
			fmt.Sprintf("another thumbsync run is already working on %s (lock %s)", root, path), nil)
	}
	return &Lock{path: path, fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. The lock file is left in place.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.fl.Unlock()
}
