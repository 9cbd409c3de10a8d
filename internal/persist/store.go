// Package persist reads and writes the durable JSON files behind the board:
// the per-domain record files and the aggregate status file. Files are
// human-readable (UTF-8, two-space indent) and rewritten wholesale on every
// mutation; there is no write-ahead log. Record files are JSON objects keyed
// by record name, and loading preserves key order so the board's insertion
// order survives restarts.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/a3cim/floormon/internal/track"
)

// Config names the files the store manages.
type Config struct {
	TasksFile  string `mapstructure:"tasks_file"`
	WIPFile    string `mapstructure:"wip_file"`
	StatusFile string `mapstructure:"status_file"`
}

// Store implements track.Persister on the local filesystem.
type Store struct {
	tasksPath  string
	wipPath    string
	statusPath string
}

// New validates the configured paths and creates their parent directories.
func New(cfg Config) (*Store, error) {
	paths := []string{cfg.TasksFile, cfg.WIPFile, cfg.StatusFile}
	for _, p := range paths {
		if p == "" {
			return nil, fmt.Errorf("persist: all file paths are required")
		}
		dir := filepath.Dir(p)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	return &Store{
		tasksPath:  cfg.TasksFile,
		wipPath:    cfg.WIPFile,
		statusPath: cfg.StatusFile,
	}, nil
}

// LoadTasks reads the task record file. A missing file returns (nil, nil).
func (s *Store) LoadTasks() ([]track.Record, error) {
	return loadRecords(s.tasksPath)
}

// LoadWIP reads the WIP record file. A missing file returns (nil, nil).
func (s *Store) LoadWIP() ([]track.Record, error) {
	return loadRecords(s.wipPath)
}

// SaveTasks rewrites the task record file.
func (s *Store) SaveTasks(recs []track.Record) error {
	return saveRecords(s.tasksPath, recs)
}

// SaveWIP rewrites the WIP record file.
func (s *Store) SaveWIP(recs []track.Record) error {
	return saveRecords(s.wipPath, recs)
}

// LoadStatus reads the status aggregate. A missing file returns (nil, nil).
// History entries with a non-positive round or null start are dropped here
// so a file written by an older build cannot reintroduce them.
func (s *Store) LoadStatus() (*track.StatusSnapshot, error) {
	raw, err := os.ReadFile(s.statusPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.statusPath, err)
	}
	var snap track.StatusSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.statusPath, err)
	}
	snap.TaskRoundInfo.PruneHistory()
	snap.WIPRoundInfo.PruneHistory()
	return &snap, nil
}

// SaveStatus rewrites the status aggregate.
func (s *Store) SaveStatus(snap track.StatusSnapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := os.WriteFile(s.statusPath, append(raw, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.statusPath, err)
	}
	return nil
}

// loadRecords decodes a name -> {done} object token by token so the on-disk
// key order is kept; json.Unmarshal into a map would lose it.
func loadRecords(path string) ([]track.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode %s: expected object, got %v", path, tok)
	}
	var recs []track.Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode %s: expected string key, got %v", path, keyTok)
		}
		var state track.RecordState
		if err := dec.Decode(&state); err != nil {
			return nil, fmt.Errorf("decode %s entry %q: %w", path, name, err)
		}
		recs = append(recs, track.Record{Name: name, Done: state.Done})
	}
	if recs == nil {
		recs = []track.Record{}
	}
	return recs, nil
}

// saveRecords writes records as a JSON object in insertion order.
func saveRecords(path string, recs []track.Record) error {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, rec := range recs {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(rec.Name)
		if err != nil {
			return fmt.Errorf("encode record name %q: %w", rec.Name, err)
		}
		compact.Write(key)
		compact.WriteByte(':')
		state, err := json.Marshal(track.RecordState{Done: rec.Done})
		if err != nil {
			return fmt.Errorf("encode record %q: %w", rec.Name, err)
		}
		compact.Write(state)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("indent records: %w", err)
	}
	out.WriteByte('\n')
	if err := os.WriteFile(path, out.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
