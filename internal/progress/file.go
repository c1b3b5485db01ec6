package progress

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps one JSON document per session under a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend stores snapshots in dataDir/progress.
func NewFileBackend(dataDir string) (*FileBackend, error) {
	dir := filepath.Join(dataDir, "progress")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create progress dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// path hashes the key so arbitrary session ids map to safe file names.
func (b *FileBackend) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(b.dir, hex.EncodeToString(sum[:])+".json")
}

func (b *FileBackend) Load(_ context.Context, key string) ([]byte, error) {
	doc, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return doc, err
}

// Save writes through a temp file and rename so readers never see a partial document.
func (b *FileBackend) Save(_ context.Context, key string, doc []byte) error {
	tmp, err := os.CreateTemp(b.dir, ".snapshot-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), b.path(key))
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
