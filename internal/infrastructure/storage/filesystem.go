package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
)

const stagingPrefix = ".staging-"

// FileSystemStore keeps artifacts as files under a root directory:
// <root>/<meetingId>/transcript.json and so on.
type FileSystemStore struct {
	root   string
	logger *zap.Logger
}

// NewFileSystemStore creates the root directory if needed and removes
// staging directories left behind by interrupted writes.
func NewFileSystemStore(root string, logger *zap.Logger) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	s := &FileSystemStore{root: root, logger: logger}
	s.sweepStaging()
	return s, nil
}

func (s *FileSystemStore) sweepStaging() {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), stagingPrefix) {
			if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil && s.logger != nil {
				s.logger.Warn("⚠️ Failed to remove stale staging dir",
					zap.String("dir", e.Name()),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *FileSystemStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Get implements repositories.ArtifactReader.
func (s *FileSystemStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repositories.ErrArtifactNotFound
	}
	return data, err
}

// PutAll writes objects into a staging directory next to the target and
// swaps it in with a rename, so readers never observe a half-written
// meeting.
func (s *FileSystemStore) PutAll(_ context.Context, prefix string, objects map[string][]byte) error {
	target, err := s.resolve(prefix)
	if err != nil {
		return err
	}
	staging := filepath.Join(s.root, stagingPrefix+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	cleanPrefix := strings.Trim(path.Clean(prefix), "/") + "/"
	for key, data := range objects {
		rel := strings.TrimPrefix(path.Clean(key), cleanPrefix)
		if rel == path.Clean(key) {
			return fmt.Errorf("artifact %q is outside prefix %q", key, prefix)
		}
		p := filepath.Join(staging, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}

	backup := ""
	if _, err := os.Stat(target); err == nil {
		backup = staging + ".old"
		if err := os.Rename(target, backup); err != nil {
			return fmt.Errorf("failed to move previous artifacts aside: %w", err)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		if backup != "" {
			_ = os.Rename(backup, target)
		}
		return fmt.Errorf("failed to publish artifacts: %w", err)
	}
	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}

// Exists implements repositories.ArtifactRepository.
func (s *FileSystemStore) Exists(_ context.Context, prefix string) (bool, error) {
	p, err := s.resolve(prefix)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// ListPrefixes implements repositories.ArtifactRepository.
func (s *FileSystemStore) ListPrefixes(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeletePrefix implements repositories.ArtifactRepository.
func (s *FileSystemStore) DeletePrefix(_ context.Context, prefix string) error {
	p, err := s.resolve(prefix)
	if err != nil {
		return err
	}
	return os.RemoveAll(p)
}

// Location implements repositories.ArtifactRepository.
func (s *FileSystemStore) Location(prefix string) string {
	p, err := s.resolve(prefix)
	if err != nil {
		return s.root
	}
	return p
}

var _ repositories.ArtifactRepository = (*FileSystemStore)(nil)
