// Package journal keeps an ordered progress history per meeting record: one
// JSON file per record id mapping an ISO-8601 timestamp to a free-text note.
// Entries are immutable once written; the only mutations are append and
// explicit delete. Timestamps are unique within a record, with collisions
// resolved by a monotonic nanosecond bump.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/a3cim/floormon/internal/clock"
)

// ErrNotFound signals that the requested entry does not exist.
var ErrNotFound = errors.New("progress entry not found")

// ErrBadRecordID signals a record id that cannot name a file.
var ErrBadRecordID = errors.New("invalid record id")

var recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Entry is one progress note.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// Store reads and writes per-record history files under a single directory.
// One mutex serializes every read-modify-write cycle against the directory.
type Store struct {
	dir    string
	mu     sync.Mutex
	clock  clock.Clock
	logger *zap.Logger
	last   time.Time
}

// New creates the journal directory if needed.
func New(dir string, clk clock.Clock, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("journal: directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, clock: clk, logger: logger}, nil
}

// Append adds a note to the record's history and returns the updated,
// time-ordered history.
func (s *Store) Append(recordID, content string) ([]Entry, error) {
	path, err := s.filePath(recordID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	stamp := s.nextStamp(entries)
	entries[stamp.Format(time.RFC3339Nano)] = content
	if err := saveFile(path, entries); err != nil {
		return nil, err
	}
	s.logger.Info("progress entry added",
		zap.String("record_id", recordID),
		zap.Int("entries", len(entries)))
	return sortEntries(entries), nil
}

// Remove deletes the entry with the exact timestamp. It returns ErrNotFound
// when the record has no such entry.
func (s *Store) Remove(recordID, timestamp string) ([]Entry, error) {
	path, err := s.filePath(recordID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if _, ok := entries[timestamp]; !ok {
		return nil, ErrNotFound
	}
	delete(entries, timestamp)
	if err := saveFile(path, entries); err != nil {
		return nil, err
	}
	s.logger.Info("progress entry removed",
		zap.String("record_id", recordID),
		zap.String("timestamp", timestamp))
	return sortEntries(entries), nil
}

// History returns the record's entries ordered oldest first. A record with
// no file has an empty history.
func (s *Store) History(recordID string) ([]Entry, error) {
	path, err := s.filePath(recordID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return sortEntries(entries), nil
}

// Latest returns the content of the newest entry, or "" for an empty history.
func (s *Store) Latest(recordID string) (string, error) {
	entries, err := s.History(recordID)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[len(entries)-1].Content, nil
}

// nextStamp returns a timestamp strictly after every stamp handed out so far
// and absent from the existing entries. Callers hold s.mu.
func (s *Store) nextStamp(existing map[string]string) time.Time {
	stamp := s.clock.Now()
	if !stamp.After(s.last) {
		stamp = s.last.Add(time.Nanosecond)
	}
	for {
		if _, taken := existing[stamp.Format(time.RFC3339Nano)]; !taken {
			break
		}
		stamp = stamp.Add(time.Nanosecond)
	}
	s.last = stamp
	return stamp
}

func (s *Store) filePath(recordID string) (string, error) {
	if !recordIDPattern.MatchString(recordID) {
		return "", fmt.Errorf("%w: %q", ErrBadRecordID, recordID)
	}
	return filepath.Join(s.dir, recordID+".json"), nil
}

func loadFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	entries := map[string]string{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}

func saveFile(path string, entries map[string]string) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func sortEntries(entries map[string]string) []Entry {
	out := make([]Entry, 0, len(entries))
	for ts, content := range entries {
		out = append(out, Entry{Timestamp: ts, Content: content})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, errI := time.Parse(time.RFC3339Nano, out[i].Timestamp)
		tj, errJ := time.Parse(time.RFC3339Nano, out[j].Timestamp)
		if errI != nil || errJ != nil {
			return out[i].Timestamp < out[j].Timestamp
		}
		return ti.Before(tj)
	})
	return out
}
