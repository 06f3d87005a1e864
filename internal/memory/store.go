package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt means the backing record exists but cannot be parsed.
// Callers should treat it as startup-fatal and surface a clear
// diagnostic instead of crashing ambiguously.
var ErrCorrupt = errors.New("profile record is corrupt")

// FileStore persists the profile as one human-readable JSON file,
// rewritten in full on every save.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path. The file is
// created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the profile from disk. A missing file yields a fresh
// zero-valued profile. An unparseable file yields ErrCorrupt.
func (s *FileStore) Load() (*Profile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewProfile(), nil
		}
		return nil, fmt.Errorf("reading profile %s: %w", s.path, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCorrupt, s.path, err)
	}
	if p.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w: %s has schema version %d, this build understands up to %d",
			ErrCorrupt, s.path, p.SchemaVersion, SchemaVersion)
	}
	// Records written before the version field existed.
	if p.SchemaVersion == 0 {
		p.SchemaVersion = SchemaVersion
	}
	if p.Facts == nil {
		p.Facts = []string{}
	}
	if p.History == nil {
		p.History = []Turn{}
	}
	return &p, nil
}

// Save rewrites the whole record. Write errors propagate to the caller
// and are not retried. The write goes through a temp file and rename
// so a crash mid-save never leaves a half-written record.
func (s *FileStore) Save(p *Profile) error {
	p.SchemaVersion = SchemaVersion

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating profile dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}
