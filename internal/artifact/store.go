package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store hands out temp-file paths for generated artifacts and guarantees
// their removal. Files are namespaced with random names so tasks never share
// a path and no file-level locking is needed.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// TempPath returns a fresh path for an artifact of the given extension
// (".mp3", ".png", ".mp4", ".zip"). The file itself is not created.
func (s *Store) TempPath(ext string) string {
	return filepath.Join(s.dir, uuid.New().String()+ext)
}

// ReleaseAll deletes every listed path. Already-missing files are fine and
// per-file deletion failures are logged, never raised: cleanup must not mask
// the outcome of the pipeline that triggered it.
func (s *Store) ReleaseAll(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove artifact",
				zap.String("path", p),
				zap.Error(err),
			)
			continue
		}
		s.logger.Debug("removed artifact", zap.String("path", p))
	}
}

// Scope tracks the artifacts created along one pipeline pass so that a
// single deferred Release covers every exit path. Detach transfers ownership
// to whoever delivers the artifacts later (the ready-task bundle).
type Scope struct {
	store *Store

	mu       sync.Mutex
	paths    []string
	released bool
}

// NewScope opens a cleanup scope.
func (s *Store) NewScope() *Scope {
	return &Scope{store: s}
}

// TempPath allocates a path and tracks it in the scope.
func (sc *Scope) TempPath(ext string) string {
	p := sc.store.TempPath(ext)
	sc.mu.Lock()
	sc.paths = append(sc.paths, p)
	sc.mu.Unlock()
	return p
}

// Track adds an externally created path to the scope.
func (sc *Scope) Track(path string) {
	sc.mu.Lock()
	sc.paths = append(sc.paths, path)
	sc.mu.Unlock()
}

// Release deletes all tracked paths. Idempotent so it can sit in a defer
// alongside explicit calls on error paths.
func (sc *Scope) Release() {
	sc.mu.Lock()
	if sc.released {
		sc.mu.Unlock()
		return
	}
	sc.released = true
	paths := sc.paths
	sc.paths = nil
	sc.mu.Unlock()

	sc.store.ReleaseAll(paths...)
}

// Detach hands the tracked paths to the caller and disarms the scope. Used
// when artifacts outlive the pipeline pass that created them.
func (sc *Scope) Detach() []string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.released {
		return nil
	}
	sc.released = true
	paths := sc.paths
	sc.paths = nil
	return paths
}

// EnsureDir creates the artifact directory if it does not exist yet.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir %s: %w", s.dir, err)
	}
	return nil
}
