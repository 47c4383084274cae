package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Config holds audit database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Recorder persists every exchange mutation attempt to PostgreSQL for
// post-mortem analysis. Writes are asynchronous and lossy under
// backpressure: the audit trail must never slow down or block a
// reconciliation pass.
type Recorder struct {
	pool   *pgxpool.Pool
	queue  chan record
	done   chan struct{}
	logger zerolog.Logger
}

type record struct {
	action    string
	status    string
	symbol    string
	request   []byte
	response  []byte
	errMsg    string
	createdAt time.Time
}

// NewRecorder connects to PostgreSQL, runs the schema migration and
// starts the write worker.
func NewRecorder(ctx context.Context, cfg Config, logger zerolog.Logger) (*Recorder, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse audit database config: %w", err)
	}
	poolConfig.MaxConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create audit connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping audit database: %w", err)
	}

	r := &Recorder{
		pool:   pool,
		queue:  make(chan record, 256),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "audit").Logger(),
	}
	if err := r.migrate(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}

	go r.writeLoop()
	r.logger.Info().Str("database", cfg.Database).Msg("Audit recorder started")
	return r, nil
}

func (r *Recorder) migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS exchange_actions (
			id BIGSERIAL PRIMARY KEY,
			action VARCHAR(32) NOT NULL,
			status VARCHAR(32) NOT NULL,
			symbol VARCHAR(20),
			request JSONB,
			response JSONB,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_exchange_actions_symbol_time
			ON exchange_actions (symbol, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("unable to run audit migration: %w", err)
	}
	return nil
}

// Record enqueues one exchange action for persistence. Nil receivers are
// allowed so callers never need to check whether auditing is enabled.
// When the queue is full the record is dropped with a warning.
func (r *Recorder) Record(action, status, symbol string, request, response interface{}, errMsg string) {
	if r == nil {
		return
	}

	rec := record{
		action:    action,
		status:    status,
		symbol:    symbol,
		request:   marshalLoose(request),
		response:  marshalLoose(response),
		errMsg:    errMsg,
		createdAt: time.Now().UTC(),
	}

	select {
	case r.queue <- rec:
	default:
		r.logger.Warn().Str("action", action).Msg("Audit queue full, dropping record")
	}
}

func (r *Recorder) writeLoop() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := r.pool.Exec(ctx, `
			INSERT INTO exchange_actions (action, status, symbol, request, response, error_message, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.action, rec.status, rec.symbol, rec.request, rec.response, nullable(rec.errMsg), rec.createdAt,
		)
		cancel()
		if err != nil {
			r.logger.Error().Err(err).Str("action", rec.action).Msg("Failed to persist audit record")
		}
	}
}

// RecentActions returns the latest audit rows for a symbol, newest first.
func (r *Recorder) RecentActions(ctx context.Context, symbol string, limit int) ([]Action, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, action, status, symbol, COALESCE(error_message, ''), created_at
		FROM exchange_actions
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query audit records: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.Action, &a.Status, &a.Symbol, &a.ErrorMessage, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan audit record: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Action is one persisted audit row.
type Action struct {
	ID           int64     `json:"id"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	Symbol       string    `json:"symbol"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Close drains the queue and releases the pool.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	close(r.queue)
	select {
	case <-r.done:
	case <-time.After(10 * time.Second):
		r.logger.Warn().Msg("Timed out draining audit queue")
	}
	r.pool.Close()
}

func marshalLoose(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprintf("unserializable: %v", err))
	}
	return data
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
