// Package store persists one JSON profile per (source, key) on the local
// filesystem with atomic replace semantics.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hollydata/filmcrawl/internal/profile"
)

// ErrNotFound is returned by Get when no profile exists under the key.
var ErrNotFound = errors.New("profile not found")

// ErrExists is returned by PutIfAbsent when the key is already occupied.
var ErrExists = errors.New("profile already exists")

// removeTemp cleans up staged temp files; a variable so tests can simulate
// a cleanup failure after a committed write.
var removeTemp = os.Remove

// Profile directory names, one per source.
const (
	IMDBDir       = "imdb_profiles"
	MetacriticDir = "metacritic_profiles"
	UnitedDir     = "united_profiles"
)

// DirForSource maps a source name to its profile directory.
func DirForSource(source string) string {
	switch source {
	case "imdb":
		return IMDBDir
	case "metacritic":
		return MetacriticDir
	case "united":
		return UnitedDir
	default:
		return source + "_profiles"
	}
}

// Store is a durable keyed profile store rooted at a data directory.
type Store struct {
	root string
}

// New validates the data root and returns a Store. The root is created if
// missing and probed for writability, since a read-only root is fatal to
// every later operation.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	info, err := os.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("data directory path is not a directory")
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(root, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create data directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat data directory: %w", err)
	}

	probe := filepath.Join(root, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("data directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up write probe: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the data directory the store was opened on.
func (s *Store) Root() string { return s.root }

// Exists reports whether a profile is stored under (source, key).
func (s *Store) Exists(source, key string) (bool, error) {
	path, err := s.profilePath(source, key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat profile: %w", err)
	}
	return true, nil
}

// Put writes the profile atomically: it lands in a temp file first and is
// renamed into place, so a partial record is never visible to Get.
// Overwriting an existing key is allowed at this layer; the orchestrator's
// policy never does so.
func (s *Store) Put(source, key string, prof *profile.Profile) error {
	path, err := s.profilePath(source, key)
	if err != nil {
		return err
	}
	return s.writeAtomic(path, prof)
}

// PutIfAbsent writes the profile only when the key is unoccupied, returning
// ErrExists otherwise. This is the conditional create concurrent crawls rely
// on to keep the at-most-once-write invariant per key.
func (s *Store) PutIfAbsent(source, key string, prof *profile.Profile) error {
	path, err := s.profilePath(source, key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return ErrExists
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat profile: %w", err)
	}
	tmp, err := s.stageTemp(path, prof)
	if err != nil {
		return err
	}
	// Link refuses to replace an existing file, closing the check-then-act
	// window between the Stat above and the commit.
	if err := os.Link(tmp, path); err != nil {
		_ = os.Remove(tmp)
		if os.IsExist(err) {
			return ErrExists
		}
		return fmt.Errorf("commit profile: %w", err)
	}
	// The profile is committed at this point; a leaked temp file must not
	// turn a persisted write into a reported failure.
	_ = removeTemp(tmp)
	return nil
}

// Get reads the profile stored under (source, key).
func (s *Store) Get(source, key string) (*profile.Profile, error) {
	path, err := s.profilePath(source, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var prof profile.Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("decode profile %s/%s: %w", source, key, err)
	}
	return &prof, nil
}

// Keys lists every stored key under the source in sorted order.
func (s *Store) Keys(source string) ([]string, error) {
	dir := filepath.Join(s.root, DirForSource(source))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

// PurgeEmpty removes records that serialized to zero content, cleaning up
// interrupted writes left behind by older non-atomic runs. It is the only
// deletion path and returns the number of records removed.
func (s *Store) PurgeEmpty(source string) (int, error) {
	dir := filepath.Join(s.root, DirForSource(source))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("list profiles: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return removed, fmt.Errorf("read profile: %w", err)
		}
		if len(strings.TrimSpace(string(data))) > 0 {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove empty profile: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) profilePath(source, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key is required")
	}
	full := filepath.Join(s.root, DirForSource(source), key+".json")
	// The key transform is filename-safe, but guard against traversal anyway.
	cleanRoot := filepath.Clean(s.root)
	if !strings.HasPrefix(filepath.Clean(full), cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return full, nil
}

func (s *Store) stageTemp(path string, prof *profile.Profile) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create profile directory: %w", err)
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("stage profile: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close profile: %w", err)
	}
	return tmp.Name(), nil
}

func (s *Store) writeAtomic(path string, prof *profile.Profile) error {
	tmp, err := s.stageTemp(path, prof)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit profile: %w", err)
	}
	return nil
}
