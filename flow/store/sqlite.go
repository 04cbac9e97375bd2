package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file RunStore.
//
// Designed for local development and single-process workflows that need
// persistence with zero setup. Uses WAL mode so readers never block on the
// writer, and auto-migrates its schema on first use.
//
// Path examples: "./flowmaestro.db", "/tmp/exec.db", ":memory:".
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed store at the
// given path and migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS execution_steps (
			execution_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (execution_id, step)
		)`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create execution_steps table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_steps_execution ON execution_steps(execution_id)"); err != nil {
		return fmt.Errorf("failed to create execution index: %w", err)
	}
	return nil
}

// SaveStep persists one execution step. Re-saving the same (executionID,
// step) replaces the previous record, which keeps crash-recovery retries
// idempotent.
func (s *SQLiteStore) SaveStep(ctx context.Context, executionID string, step int, nodeID string, state ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal execution state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO execution_steps (execution_id, step, node_id, state) VALUES (?, ?, ?, ?)",
		executionID, step, nodeID, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LoadLatest retrieves the highest-numbered persisted step.
func (s *SQLiteStore) LoadLatest(ctx context.Context, executionID string) (ExecutionState, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ExecutionState{}, 0, fmt.Errorf("store is closed")
	}

	var (
		step      int
		stateJSON string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT step, state FROM execution_steps WHERE execution_id = ? ORDER BY step DESC LIMIT 1",
		executionID).Scan(&step, &stateJSON)
	if err == sql.ErrNoRows {
		return ExecutionState{}, 0, ErrNotFound
	}
	if err != nil {
		return ExecutionState{}, 0, fmt.Errorf("failed to load latest step: %w", err)
	}

	var state ExecutionState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return ExecutionState{}, 0, fmt.Errorf("failed to unmarshal execution state: %w", err)
	}
	return state, step, nil
}

// Steps returns the execution's full history in step order.
func (s *SQLiteStore) Steps(ctx context.Context, executionID string) ([]StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT step, node_id, state FROM execution_steps WHERE execution_id = ? ORDER BY step ASC",
		executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []StepRecord
	for rows.Next() {
		var (
			rec       StepRecord
			stateJSON string
		)
		if err := rows.Scan(&rec.Step, &rec.NodeID, &stateJSON); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution state: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate steps: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
