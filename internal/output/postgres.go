// Package output persists finished runs to Postgres: the raw event stream
// plus a final per-package status table for downstream reporting.
package output

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"fleetsim/internal/models"
)

type PostgresOutput struct {
	pool *pgxpool.Pool
}

func NewPostgresOutput(ctx context.Context, config *models.DatabaseConfig) (*PostgresOutput, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return &PostgresOutput{pool: pool}, nil
}

// EnsureSchema creates the tables the sink writes to.
func (p *PostgresOutput) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS simulation_events (
            id BIGSERIAL PRIMARY KEY,
            run_id TEXT NOT NULL,
            topic TEXT NOT NULL,
            event_time TIMESTAMPTZ NOT NULL,
            payload JSONB NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS package_results (
            run_id TEXT NOT NULL,
            package_id INT NOT NULL,
            address TEXT NOT NULL,
            truck_id INT,
            status TEXT NOT NULL,
            deadline TIMESTAMPTZ,
            delivered_at TIMESTAMPTZ,
            PRIMARY KEY (run_id, package_id)
        )`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// WriteMessage stores one serialized event. The payload keeps its wire shape
// as JSONB so new event fields need no migration.
func (p *PostgresOutput) WriteMessage(topic string, msg []byte) error {
	var event map[string]interface{}
	if err := json.Unmarshal(msg, &event); err != nil {
		return err
	}

	timestamp, ok := event["timestamp"].(float64)
	if !ok {
		return fmt.Errorf("invalid timestamp")
	}
	runID, _ := event["runId"].(string)

	ctx := context.Background()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO simulation_events (run_id, topic, event_time, payload)
         VALUES ($1, $2, to_timestamp($3), $4)`,
		runID, topic, int64(timestamp), msg,
	)
	if err != nil {
		return fmt.Errorf("failed to insert into simulation_events: %w", err)
	}
	return nil
}

// BatchInsertResults writes the end-of-day state of every package.
func (p *PostgresOutput) BatchInsertResults(ctx context.Context, runID string, packages []*models.Package) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmt := `
        INSERT INTO package_results (
            run_id, package_id, address, truck_id, status, deadline, delivered_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (run_id, package_id) DO UPDATE SET
            address = EXCLUDED.address,
            truck_id = EXCLUDED.truck_id,
            status = EXCLUDED.status,
            deadline = EXCLUDED.deadline,
            delivered_at = EXCLUDED.delivered_at`

	for _, pkg := range packages {
		var truckID interface{}
		if pkg.TruckID > 0 {
			truckID = pkg.TruckID
		}
		_, err = tx.Exec(ctx, stmt,
			runID,
			pkg.ID,
			pkg.Address,
			truckID,
			pkg.Status,
			pkg.Deadline,
			pkg.DeliveredAt,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *PostgresOutput) Close() error {
	p.pool.Close()
	return nil
}
