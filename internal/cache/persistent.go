package cache

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
	"lukechampine.com/blake3"

	"github.com/f1r3fly-io/rholang-language-server/internal/debug"
	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
)

// cacheDirName is the subdirectory under the platform user cache root.
const cacheDirName = "rholang-language-server"

// Metadata is the human-readable workspace cache manifest.
type Metadata struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	EntryCount int       `json:"entry_count"`
}

// PersistentCache serializes the hot cache to a per-workspace directory on
// shutdown and reloads it on startup. Every entry is an envelope-framed,
// zstd-compressed gob document; writes are atomic.
type PersistentCache struct {
	dir string
}

// CacheRoot resolves the platform cache root, falling back to /tmp.
func CacheRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, cacheDirName)
	}
	return filepath.Join(os.TempDir(), cacheDirName)
}

// NewPersistentCache creates the cache for one workspace. The directory is
// derived from the blake3 of the absolute workspace path so distinct
// workspaces never collide.
func NewPersistentCache(workspacePath string) *PersistentCache {
	abs, err := filepath.Abs(workspacePath)
	if err != nil {
		abs = workspacePath
	}
	sum := blake3.Sum256([]byte(abs))
	dir := filepath.Join(CacheRoot(), fmt.Sprintf("workspace-%s", hex.EncodeToString(sum[:16])))
	return &PersistentCache{dir: dir}
}

// NewPersistentCacheAt creates a cache rooted at an explicit directory,
// bypassing the platform cache root (tests and cache-dir overrides).
func NewPersistentCacheAt(dir string) *PersistentCache {
	return &PersistentCache{dir: dir}
}

// Dir returns the workspace cache directory.
func (p *PersistentCache) Dir() string {
	return p.dir
}

// entryPath derives an entry's file name from the uri. xxhash is plenty
// here: the name only needs to be stable and filesystem-safe, the content
// hash inside the entry does the integrity work.
func (p *PersistentCache) entryPath(uri string) string {
	return filepath.Join(p.dir, fmt.Sprintf("%016x.cache", xxhash.Sum64String(uri)))
}

// Save writes every document plus the metadata manifest. Individual entry
// failures are collected; the rest of the cache is still written.
func (p *PersistentCache) Save(docs []*Document) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return lserrors.NewFileError("mkdir", p.dir, err)
	}

	var errs error
	written := 0
	for _, doc := range docs {
		if err := p.saveEntry(doc); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		written++
	}

	meta := Metadata{Version: CacheVersion, CreatedAt: time.Now().UTC(), EntryCount: written}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return multierr.Append(errs, err)
	}
	if err := AtomicWriteFile(filepath.Join(p.dir, "metadata.json"), metaBytes); err != nil {
		errs = multierr.Append(errs, lserrors.NewFileError("write", "metadata.json", err))
	}

	debug.LogCache("persisted %d/%d documents to %s\n", written, len(docs), p.dir)
	return errs
}

func (p *PersistentCache) saveEntry(doc *Document) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toPersisted(doc)); err != nil {
		return lserrors.NewIndexingError("encode", err).WithURI(doc.URI)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	compressed := enc.EncodeAll(buf.Bytes(), nil)
	enc.Close()

	return AtomicWriteFile(p.entryPath(doc.URI), WriteEnvelope(compressed))
}

// LoadResult reports what a warm start recovered.
type LoadResult struct {
	Loaded    []*Document
	Skipped   int // stale mtime or unreadable entries
	ColdStart bool
}

// Load validates the manifest and every entry. A version mismatch discards
// the whole directory; a stale or corrupt entry is skipped, the rest
// survive. mtimeOf resolves the current file modification time for a uri;
// returning ok=false marks the entry stale.
func (p *PersistentCache) Load(mtimeOf func(uri string) (time.Time, bool)) LoadResult {
	metaBytes, err := os.ReadFile(filepath.Join(p.dir, "metadata.json"))
	if err != nil {
		return LoadResult{ColdStart: true}
	}
	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		log.Printf("warning: corrupt cache metadata, cold start: %v", err)
		return LoadResult{ColdStart: true}
	}
	if meta.Version != CacheVersion {
		log.Printf("cache version %d does not match current %d, discarding %s", meta.Version, CacheVersion, p.dir)
		p.Discard()
		return LoadResult{ColdStart: true}
	}

	paths, err := filepath.Glob(filepath.Join(p.dir, "*.cache"))
	if err != nil {
		return LoadResult{ColdStart: true}
	}

	var result LoadResult
	for _, path := range paths {
		doc, err := p.loadEntry(path)
		if err != nil {
			var cerr *lserrors.CacheError
			if errors.As(err, &cerr) && cerr.IsVersionMismatch() {
				log.Printf("stale entry version in %s, discarding cache", path)
				p.Discard()
				return LoadResult{ColdStart: true}
			}
			debug.LogCache("skipping unreadable entry %s: %v\n", path, err)
			result.Skipped++
			continue
		}
		current, ok := mtimeOf(doc.URI)
		if !ok || !current.Equal(doc.ModTime) {
			debug.LogCache("skipping stale entry %s (mtime changed)\n", doc.URI)
			result.Skipped++
			continue
		}
		result.Loaded = append(result.Loaded, doc)
	}
	return result
}

func (p *PersistentCache) loadEntry(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lserrors.NewCacheCorruptionError(path, err)
	}
	compressed, err := ReadEnvelope(path, data)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, lserrors.NewCacheCorruptionError(path, err)
	}

	var persisted persistedDocument
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&persisted); err != nil {
		return nil, lserrors.NewCacheCorruptionError(path, err)
	}
	return fromPersisted(persisted), nil
}

// RemoveEntry deletes one uri's entry, if present.
func (p *PersistentCache) RemoveEntry(uri string) {
	os.Remove(p.entryPath(uri))
}

// Discard deletes the whole workspace cache directory.
func (p *PersistentCache) Discard() {
	os.RemoveAll(p.dir)
}
