package session

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ndegwamoche/calendar-sync-scraper/internal/match"
	_ "modernc.org/sqlite"
)

// BlobTTL is how long in-flight session blobs stay loadable. Sessions are
// short-lived by nature; anything older is a stale leftover from an
// abandoned run.
const BlobTTL = time.Hour

// FileStore persists one JSON blob per session under a data directory.
// Writes go through a rename so a concurrent Load never sees a partial
// file.
type FileStore struct {
	dataDir string
	ttl     time.Duration
}

// NewFileStore creates a file-backed session store, creating the directory
// when missing. A leading ~/ is expanded.
func NewFileStore(dataDir string) (*FileStore, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	return &FileStore{dataDir: dataDir, ttl: BlobTTL}, nil
}

// Dir is the expanded data directory the store writes under.
func (fs *FileStore) Dir() string {
	return fs.dataDir
}

// Load reads a session blob. Expired blobs are ErrNotFound, same as missing
// ones.
func (fs *FileStore) Load(id string) (*State, error) {
	path := fs.blobPath(id)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", id, err)
	}

	if time.Since(state.UpdatedAt) > fs.ttl {
		return nil, fmt.Errorf("%w: %s (expired)", ErrNotFound, id)
	}

	return &state, nil
}

// Save writes the session blob atomically.
func (fs *FileStore) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	path := fs.blobPath(state.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing session: %w", err)
	}
	return nil
}

func (fs *FileStore) blobPath(id string) string {
	return filepath.Join(fs.dataDir, "session_"+id+".json")
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{states: make(map[string]*State)}
}

// Load returns a copy of the stored state so callers can't mutate the store
// behind its back.
func (ms *MemStore) Load(id string) (*State, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	state, ok := ms.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *state
	copied.Matches = append([]match.Match(nil), state.Matches...)
	copied.Pending = append([]match.Match(nil), state.Pending...)
	copied.Messages = append([]Message(nil), state.Messages...)
	return &copied, nil
}

// Save stores a copy of state.
func (ms *MemStore) Save(state *State) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	copied := *state
	copied.Matches = append([]match.Match(nil), state.Matches...)
	copied.Pending = append([]match.Match(nil), state.Pending...)
	copied.Messages = append([]Message(nil), state.Messages...)
	ms.states[state.ID] = &copied
	return nil
}

//go:embed session_log.sql
var logSchema string

// SQLiteRecorder appends terminal sessions to a durable run-log table, one
// row per session, so completed and failed runs stay inspectable after the
// in-flight blob expires.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens (and if necessary initializes) the run log at
// path. It can share a database file with the reference store.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	if _, err := db.Exec(logSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing session log schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

// Record upserts the session's terminal row.
func (r *SQLiteRecorder) Record(state *State) error {
	lastMessage := ""
	if len(state.Messages) > 0 {
		lastMessage = state.Messages[len(state.Messages)-1].Text
	}

	_, err := r.db.ExecContext(context.Background(), `
		INSERT INTO session_log (session_id, started_at, closed_at, status, total_matches, total_targets, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			closed_at = excluded.closed_at,
			status = excluded.status,
			total_matches = excluded.total_matches,
			total_targets = excluded.total_targets,
			message = excluded.message`,
		state.ID,
		state.StartedAt.UTC().Format(time.RFC3339),
		state.UpdatedAt.UTC().Format(time.RFC3339),
		string(state.Status),
		state.TotalMatches,
		state.TotalTargets,
		lastMessage,
	)
	if err != nil {
		return fmt.Errorf("recording session %s: %w", state.ID, err)
	}
	return nil
}
