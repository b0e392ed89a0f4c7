package badge

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"ms-registration/internal/logger"
)

// Store is an arena of immutable badge artifacts keyed by
// (registration id, version). Files are named {registrationID}-v{unixMillis}.png
// and the latest version by timestamp is the current badge. Generation never
// overwrites in place, so a reader can never observe a partially-written
// file; the previous version stays servable until the new one is verified.
type Store struct {
	Dir    string
	Logger *logger.Logger
}

func NewStore(dir string, log *logger.Logger) *Store {
	return &Store{Dir: dir, Logger: log}
}

// FileName builds the versioned artifact name.
func (s *Store) FileName(registrationID string, version int64) string {
	return fmt.Sprintf("%s-v%d.png", registrationID, version)
}

// Write persists a new version and verifies it by re-reading and re-parsing
// the just-written file before declaring success. A file that fails
// verification is removed so it can never become "latest".
func (s *Store) Write(registrationID string, version int64, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("badge dir: %w", err)
	}

	name := s.FileName(registrationID, version)
	path := filepath.Join(s.Dir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("badge write: %w", err)
	}

	written, err := os.ReadFile(path)
	if err == nil && bytes.Equal(written, data) {
		_, err = png.Decode(bytes.NewReader(written))
	} else if err == nil {
		err = fmt.Errorf("content mismatch after write")
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("badge verify %s: %w", name, err)
	}

	return name, nil
}

// Latest resolves the current badge path for a registration: the highest
// version timestamp wins.
func (s *Store) Latest(registrationID string) (string, bool) {
	versions := s.versions(registrationID)
	if len(versions) == 0 {
		return "", false
	}
	name := s.FileName(registrationID, versions[len(versions)-1])
	return filepath.Join(s.Dir, name), true
}

// RemoveOlderVersions deletes every version below keep. Best-effort: both
// the old and the new artifact encode the same registration data, so a
// failed delete only costs disk space and is logged, never surfaced.
func (s *Store) RemoveOlderVersions(registrationID string, keep int64) {
	for _, version := range s.versions(registrationID) {
		if version >= keep {
			continue
		}
		path := filepath.Join(s.Dir, s.FileName(registrationID, version))
		if err := os.Remove(path); err != nil && s.Logger != nil {
			s.Logger.Warn("BADGE", fmt.Sprintf("cleanup of %s failed: %v", path, err))
		}
	}
}

// RemoveAll deletes every version for a registration. Used by the retention
// sweep; artifacts are reconstructable from durable records.
func (s *Store) RemoveAll(registrationID string) {
	for _, version := range s.versions(registrationID) {
		path := filepath.Join(s.Dir, s.FileName(registrationID, version))
		if err := os.Remove(path); err != nil && s.Logger != nil {
			s.Logger.Warn("BADGE", fmt.Sprintf("retention delete of %s failed: %v", path, err))
		}
	}
}

// versions returns the sorted version timestamps present for a registration.
func (s *Store) versions(registrationID string) []int64 {
	matches, err := filepath.Glob(filepath.Join(s.Dir, registrationID+"-v*.png"))
	if err != nil {
		return nil
	}

	var versions []int64
	prefix := registrationID + "-v"
	for _, match := range matches {
		base := strings.TrimSuffix(filepath.Base(match), ".png")
		raw := strings.TrimPrefix(base, prefix)
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions
}
