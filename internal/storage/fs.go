package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore persists each key as one file under a base directory. Keys are
// base64-encoded into filenames so arbitrary key strings stay safe on disk.
type FSStore struct {
	base string
}

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

const fsExt = ".json"

func (s *FSStore) path(key string) string {
	name := base64.URLEncoding.EncodeToString([]byte(key)) + fsExt
	return filepath.Join(s.base, name)
}

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *FSStore) Set(_ context.Context, key string, value []byte) error {
	// Write-then-rename so a crash mid-write never leaves a torn snapshot.
	dst := s.path(key)
	tmp, err := os.CreateTemp(s.base, "write-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FSStore) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fsExt) {
			continue
		}
		raw, err := base64.URLEncoding.DecodeString(strings.TrimSuffix(e.Name(), fsExt))
		if err != nil {
			continue
		}
		if key := string(raw); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
