// Package database provides the MySQL connection pool and the optional
// Redis client backing the query-result cache.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	libinjection "github.com/corazawaf/libinjection-go"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/config"
	"github.com/asperguide/catfeeder-backend/pkg/logging"
	csql "github.com/asperguide/catfeeder-backend/pkg/sql"
)

// DB wraps a database/sql connection pool over the MySQL driver and
// implements the query layer's Pool contract. Every bound string parameter
// is screened with libinjection before execution; detections are logged
// with the pattern fingerprint but do not block the statement, since all
// values travel as bound parameters anyway.
type DB struct {
	pool   *sql.DB
	logger *zap.Logger
}

// NewConnection opens and pings a MySQL connection pool.
func NewConnection(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns == 0 {
		maxConns = 25
	}
	pool.SetMaxOpenConns(maxConns)

	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	pool.SetMaxIdleConns(maxIdle)

	lifetime := time.Duration(cfg.ConnMaxLifetime) * time.Minute
	if lifetime == 0 {
		lifetime = time.Hour
	}
	pool.SetConnMaxLifetime(lifetime)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.pool.Close()
}

// IsPoolActive reports whether the pool still answers pings.
func (db *DB) IsPoolActive() bool {
	if db == nil || db.pool == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return db.pool.PingContext(ctx) == nil
}

// screenParameters runs libinjection over bound string parameters. Matches
// are logged with their fingerprint under a per-query correlation id.
func (db *DB) screenParameters(queryID string, values []any) {
	for i, value := range values {
		strValue, ok := value.(string)
		if !ok {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(strValue); isSQLi {
			db.logger.Warn("injection pattern in bound parameter",
				zap.String("query_id", queryID),
				zap.Int("param_index", i),
				zap.String("fingerprint", string(fingerprint)),
			)
		}
	}
}

// RunAndFetchAll executes a query and maps every result row by column name.
func (db *DB) RunAndFetchAll(ctx context.Context, query string, values []any) ([]csql.Row, error) {
	queryID := uuid.New().String()
	db.logger.Debug("running query",
		zap.String("query_id", queryID),
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("params", len(values)),
	)
	db.screenParameters(queryID, values)

	rows, err := db.pool.QueryContext(ctx, query, values...)
	if err != nil {
		db.logger.Error("query failed",
			zap.String("query_id", queryID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read column names: %w", err)
	}

	var results []csql.Row
	for rows.Next() {
		raw := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range raw {
			scan[i] = &raw[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(csql.Row, len(columns))
		for i, name := range columns {
			// The MySQL driver returns text values as []byte.
			if b, ok := raw[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = raw[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	db.logger.Debug("query complete",
		zap.String("query_id", queryID),
		zap.Int("rows", len(results)),
	)
	return results, nil
}

// RunEditingCommand executes a mutating statement and reports a status code
// instead of an error.
func (db *DB) RunEditingCommand(ctx context.Context, query string, values []any) int {
	queryID := uuid.New().String()
	db.logger.Debug("running editing command",
		zap.String("query_id", queryID),
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("params", len(values)),
	)
	db.screenParameters(queryID, values)

	result, err := db.pool.ExecContext(ctx, query, values...)
	if err != nil {
		db.logger.Error("editing command failed",
			zap.String("query_id", queryID),
			zap.Error(err),
		)
		return csql.Failure
	}

	if affected, err := result.RowsAffected(); err == nil {
		db.logger.Debug("editing command complete",
			zap.String("query_id", queryID),
			zap.Int64("rows_affected", affected),
		)
	}
	return csql.Success
}
