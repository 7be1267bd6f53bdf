package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	lserrors "github.com/f1r3fly-io/rholang-language-server/internal/errors"
)

// CacheVersion is the single on-disk schema version shared by every binary
// cache artifact. Bump it whenever the canonical pattern byte format or any
// serialized structure changes; a mismatch discards the whole workspace
// cache directory.
const CacheVersion = 3

// envelopeMagic identifies our binary files.
var envelopeMagic = [4]byte{'R', 'H', 'L', 'S'}

// WriteEnvelope frames a payload as magic, schema version, payload length,
// payload.
func WriteEnvelope(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+16)
	out = append(out, envelopeMagic[:]...)
	out = binary.LittleEndian.AppendUint32(out, CacheVersion)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(payload)))
	return append(out, payload...)
}

// ReadEnvelope validates the frame and returns the payload. Magic or length
// corruption reports CacheCorruption; a version difference reports
// VersionMismatch so callers can discard rather than skip.
func ReadEnvelope(path string, data []byte) ([]byte, error) {
	if len(data) < 16 || !bytes.Equal(data[:4], envelopeMagic[:]) {
		return nil, lserrors.NewCacheCorruptionError(path, fmt.Errorf("bad magic"))
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != CacheVersion {
		return nil, lserrors.NewVersionMismatchError(path, int(version), CacheVersion)
	}
	length := binary.LittleEndian.Uint64(data[8:16])
	if uint64(len(data)-16) != length {
		return nil, lserrors.NewCacheCorruptionError(path, fmt.Errorf("payload length %d does not match header %d", len(data)-16, length))
	}
	return data[16:], nil
}

// AtomicWriteFile writes to a sibling .tmp path and renames into place so a
// crash never leaves a torn file behind.
func AtomicWriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
