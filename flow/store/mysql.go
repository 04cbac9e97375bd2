package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a shared-database RunStore for multi-process deployments:
// several workers can persist and resume executions against the same
// database.
//
// DSN format follows go-sql-driver/mysql, e.g.
// "user:pass@tcp(localhost:3306)/flowmaestro?parseTime=true".
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore connects to MySQL, verifies the connection and migrates the
// schema.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) migrate(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS execution_steps (
			execution_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (execution_id, step),
			INDEX idx_steps_execution (execution_id)
		)`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create execution_steps table: %w", err)
	}
	return nil
}

// SaveStep persists one execution step, replacing any previous record for
// the same (executionID, step) so retries stay idempotent.
func (s *MySQLStore) SaveStep(ctx context.Context, executionID string, step int, nodeID string, state ExecutionState) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal execution state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO execution_steps (execution_id, step, node_id, state)
		 VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE node_id = VALUES(node_id), state = VALUES(state)`,
		executionID, step, nodeID, string(stateJSON))
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LoadLatest retrieves the highest-numbered persisted step.
func (s *MySQLStore) LoadLatest(ctx context.Context, executionID string) (ExecutionState, int, error) {
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
func (s *MySQLStore) Steps(ctx context.Context, executionID string) ([]StepRecord, error) {
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

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
