package cache

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
	"github.com/f1r3fly-io/rholang-language-server/pkg/pathutil"
)

// timestampsFile holds the persisted uri -> mtime map.
const timestampsFile = "file_timestamps.bin"

// ModTracker records the last-observed modification time per uri so the
// incremental re-indexer and the warm-start loader can tell whether a file
// changed behind the server's back.
type ModTracker struct {
	dir   string
	times sync.Map // string uri -> time.Time

	// statFn is swappable for tests.
	statFn func(path string) (os.FileInfo, error)
}

// NewModTracker creates a tracker persisting under dir.
func NewModTracker(dir string) *ModTracker {
	return &ModTracker{dir: dir, statFn: os.Stat}
}

// HasChanged reports whether a file's current mtime is newer than the last
// indexed one. Unknown files report true; the filesystem's own time
// granularity is respected by comparing with After, not inequality.
func (m *ModTracker) HasChanged(uri string) bool {
	current, ok := m.currentMtime(uri)
	if !ok {
		return true
	}
	stored, ok := m.Stored(uri)
	if !ok {
		return true
	}
	return current.After(stored)
}

// MarkIndexed stores the file's current mtime.
func (m *ModTracker) MarkIndexed(uri string) {
	if current, ok := m.currentMtime(uri); ok {
		m.times.Store(uri, current)
	}
}

// Stored returns the recorded mtime for a uri.
func (m *ModTracker) Stored(uri string) (time.Time, bool) {
	v, ok := m.times.Load(uri)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// Remove forgets a uri.
func (m *ModTracker) Remove(uri string) {
	m.times.Delete(uri)
}

// Len returns the number of tracked files.
func (m *ModTracker) Len() int {
	n := 0
	m.times.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// persistedTimes is the gob payload: epoch seconds and nanos per uri.
type persistedTimes map[string][2]int64

// Persist writes the map atomically inside the standard binary envelope.
func (m *ModTracker) Persist() error {
	times := make(persistedTimes)
	m.times.Range(func(k, v any) bool {
		t := v.(time.Time)
		times[k.(string)] = [2]int64{t.Unix(), int64(t.Nanosecond())}
		return true
	})

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(times); err != nil {
		return err
	}
	path := filepath.Join(m.dir, timestampsFile)
	if err := AtomicWriteFile(path, WriteEnvelope(buf.Bytes())); err != nil {
		return lserrors.NewFileError("write", path, err)
	}
	debug.LogCache("persisted %d file timestamps\n", len(times))
	return nil
}

// Load replaces the tracked set from disk. A missing file is a clean cold
// start; a corrupt one is discarded.
func (m *ModTracker) Load() error {
	path := filepath.Join(m.dir, timestampsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return lserrors.NewFileError("read", path, err)
	}
	payload, err := ReadEnvelope(path, data)
	if err != nil {
		return err
	}

	var times persistedTimes
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&times); err != nil {
		return lserrors.NewCacheCorruptionError(path, err)
	}

	m.times = sync.Map{}
	for uri, parts := range times {
		m.times.Store(uri, time.Unix(parts[0], parts[1]))
	}
	return nil
}

// CurrentMtime exposes the filesystem mtime lookup used by the persistent
// cache's per-entry validation.
func (m *ModTracker) CurrentMtime(uri string) (time.Time, bool) {
	return m.currentMtime(uri)
}

func (m *ModTracker) currentMtime(uri string) (time.Time, bool) {
	info, err := m.statFn(pathutil.URIToPath(uri))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// SetStatFunc replaces the stat implementation (tests only).
func (m *ModTracker) SetStatFunc(fn func(path string) (os.FileInfo, error)) {
	m.statFn = fn
}
