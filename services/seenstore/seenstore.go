package seenstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"kleinwatch/dealwatcher/internal/fetcher"
	"kleinwatch/dealwatcher/logger"
	werrors "kleinwatch/dealwatcher/pkg/errors"
)

// Set holds the URLs of listings that already triggered a notification
type Set map[string]struct{}

// Contains reports whether a URL is in the set
func (s Set) Contains(url string) bool {
	_, ok := s[url]
	return ok
}

// Add inserts a URL into the set
func (s Set) Add(url string) {
	s[url] = struct{}{}
}

// Store persists the seen-set across runs
type Store interface {
	// Load reads the persisted set; a missing or corrupt file yields an
	// empty set, never an error
	Load() Set

	// Clear resets the persisted state to empty
	Clear() error

	// Commit persists the union of seen and urls atomically
	Commit(seen Set, urls []string) error
}

// FileStore keeps the seen-set as a JSON array of URLs in a single file.
// One process owns the file for the duration of a run; it is written at
// most once, via write-temp-then-rename.
type FileStore struct {
	path string
	log  *logger.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by the given file path
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		log:  logger.ForSeenStore(),
	}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted seen-set
func (s *FileStore) Load() Set {
	seen := make(Set)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().
				Err(werrors.NewCacheRead(s.path, "failed to read seen cache", err)).
				Msg("Starting with an empty seen cache")
		}
		return seen
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		s.log.Warn().
			Err(werrors.NewCacheRead(s.path, "failed to parse seen cache", err)).
			Msg("Starting with an empty seen cache")
		return seen
	}

	for _, url := range urls {
		seen.Add(url)
	}
	return seen
}

// Clear resets the persisted state to empty
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return werrors.NewCacheWrite(s.path, "failed to clear seen cache", err)
	}
	return nil
}

// Commit persists the union of seen and urls. The write goes to a temp
// file in the same directory followed by a rename, so a crash mid-write
// never corrupts the store or loses previously committed entries.
func (s *FileStore) Commit(seen Set, urls []string) error {
	union := make(Set, len(seen)+len(urls))
	for url := range seen {
		union.Add(url)
	}
	for _, url := range urls {
		union.Add(url)
	}

	sorted := make([]string, 0, len(union))
	for url := range union {
		sorted = append(sorted, url)
	}
	sort.Strings(sorted)

	data, err := json.Marshal(sorted)
	if err != nil {
		return werrors.NewCacheWrite(s.path, "failed to marshal seen cache", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return werrors.NewCacheWrite(s.path, "failed to create cache directory", err)
	}

	tmp, err := os.CreateTemp(dir, "seen-*.json")
	if err != nil {
		return werrors.NewCacheWrite(s.path, "failed to create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return werrors.NewCacheWrite(s.path, "failed to write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return werrors.NewCacheWrite(s.path, "failed to close temp file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return werrors.NewCacheWrite(s.path, "failed to replace seen cache", err)
	}

	return nil
}

// FilterNew returns only the listings whose URL is not in seen, in input
// order
func FilterNew(listings []fetcher.Listing, seen Set) []fetcher.Listing {
	var fresh []fetcher.Listing
	for _, l := range listings {
		if !seen.Contains(l.URL) {
			fresh = append(fresh, l)
		}
	}
	return fresh
}
