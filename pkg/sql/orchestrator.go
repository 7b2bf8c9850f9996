package sql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/apperrors"
)

// CacheOrchestrator fronts a QueryBoilerplates instance with input
// validation and an optional read cache. Hostile input never reaches the
// query layer: validation failures short-circuit into the error sentinel.
// A nil cache disables caching and delegates straight to the query layer.
type CacheOrchestrator struct {
	boilerplate *QueryBoilerplates
	cache       Cache
	injection   *Detector
	logger      *zap.Logger

	keyPrefix string
	success   int
	errCode   int
}

// NewCacheOrchestrator builds the orchestrator. cache may be nil; keyPrefix
// namespaces cache keys so several deployments can share one Redis.
func NewCacheOrchestrator(boilerplate *QueryBoilerplates, cache Cache, keyPrefix string, logger *zap.Logger) *CacheOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "catfeeder:sql"
	}
	return &CacheOrchestrator{
		boilerplate: boilerplate,
		cache:       cache,
		injection:   NewDetector(logger),
		logger:      logger,
		keyPrefix:   keyPrefix,
		success:     Success,
		errCode:     Failure,
	}
}

// UpdateCache swaps the cache backend at runtime. Passing nil disables
// caching.
func (o *CacheOrchestrator) UpdateCache(cache Cache) {
	o.cache = cache
}

// parseAndValidateWhere screens each WHERE clause before it reaches the
// query layer: column segments against every pattern family, bare value
// segments against the logic-gate family so tautologies like "1=1" cannot
// widen a filter. Quoted values are left alone, the query layer binds them
// as parameters.
func (o *CacheOrchestrator) parseAndValidateWhere(where []string) error {
	var columnNames []any
	for _, clause := range where {
		clause = strings.TrimSpace(clause)
		column, value, found := strings.Cut(clause, "=")
		if !found {
			continue
		}
		columnNames = append(columnNames, strings.TrimSpace(column))

		value = strings.TrimSpace(value)
		if value == "" || isQuoted(value) {
			continue
		}
		if o.injection.IsSymbolOrLogicGateInjection(value) {
			o.logger.Error("SQL injection detected in WHERE value segment")
			return apperrors.ErrInjectionDetected
		}
	}
	if len(columnNames) > 0 && o.injection.ContainsInjection(columnNames...) {
		o.logger.Error("SQL injection detected in WHERE column names")
		return apperrors.ErrInjectionDetected
	}
	return nil
}

func fingerprint(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (o *CacheOrchestrator) tablePrefix(table string) string {
	return o.keyPrefix + ":table:" + table + ":"
}

func (o *CacheOrchestrator) schemaPrefix() string {
	return o.keyPrefix + ":schema:"
}

func (o *CacheOrchestrator) triggerPrefix() string {
	return o.keyPrefix + ":triggers:"
}

// cacheFetch serves value lookups through the cache when one is configured.
// Fetch errors are never cached; undecodable entries fall through to a
// fresh fetch.
func cacheFetch[T any](ctx context.Context, o *CacheOrchestrator, key string, fetch func() (T, error)) (T, error) {
	if o.cache == nil {
		return fetch()
	}

	if raw, ok := o.cache.Get(ctx, key); ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			o.logger.Debug("cache hit", zap.String("key", key))
			return cached, nil
		}
		o.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}

	value, err := fetch()
	if err != nil {
		return value, err
	}
	if raw, err := json.Marshal(value); err == nil {
		o.cache.Set(ctx, key, raw)
	}
	return value, nil
}

func (o *CacheOrchestrator) invalidate(ctx context.Context, prefixes ...string) {
	if o.cache == nil {
		return
	}
	for _, prefix := range prefixes {
		o.cache.Invalidate(ctx, prefix)
	}
}

// GetDatabaseVersion returns the parsed server version, or the error
// sentinel as second value on failure.
func (o *CacheOrchestrator) GetDatabaseVersion(ctx context.Context) ([]int, int) {
	version, err := cacheFetch(ctx, o, o.schemaPrefix()+"version", func() ([]int, error) {
		return o.boilerplate.GetDatabaseVersion(ctx)
	})
	if err != nil {
		o.logger.Error("failed to fetch database version", zap.Error(err))
		return nil, o.errCode
	}
	return version, o.success
}

// GetTableNames lists the database's tables.
func (o *CacheOrchestrator) GetTableNames(ctx context.Context) ([]string, int) {
	names, err := cacheFetch(ctx, o, o.schemaPrefix()+"tables", func() ([]string, error) {
		return o.boilerplate.GetTableNames(ctx)
	})
	if err != nil {
		o.logger.Error("failed to fetch table names", zap.Error(err))
		return nil, o.errCode
	}
	return names, o.success
}

// GetTableColumnNames lists a table's column names.
func (o *CacheOrchestrator) GetTableColumnNames(ctx context.Context, table string) ([]string, int) {
	if o.injection.IsInjection(table) {
		o.logger.Error("injection detected in table name")
		return nil, o.errCode
	}
	names, err := cacheFetch(ctx, o, o.schemaPrefix()+"columns:"+table, func() ([]string, error) {
		return o.boilerplate.GetTableColumnNames(ctx, table)
	})
	if err != nil {
		o.logger.Error("failed to fetch column names", zap.Error(err))
		return nil, o.errCode
	}
	return names, o.success
}

// DescribeTable returns a table's column descriptions.
func (o *CacheOrchestrator) DescribeTable(ctx context.Context, table string) ([]Row, int) {
	if o.injection.IsInjection(table) {
		o.logger.Error("injection detected in table name")
		return nil, o.errCode
	}
	description, err := cacheFetch(ctx, o, o.schemaPrefix()+"describe:"+table, func() ([]Row, error) {
		return o.boilerplate.DescribeTable(ctx, table)
	})
	if err != nil {
		o.logger.Error("failed to describe table", zap.Error(err))
		return nil, o.errCode
	}
	return description, o.success
}

// CreateTable creates a table and invalidates the schema cache.
func (o *CacheOrchestrator) CreateTable(ctx context.Context, table string, columns []ColumnDef) int {
	if o.injection.IsInjection(table) {
		o.logger.Error("injection detected in table name")
		return o.errCode
	}
	if err := o.boilerplate.CreateTable(ctx, table, columns); err != nil {
		o.logger.Error("failed to create table", zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.schemaPrefix(), o.tablePrefix(table))
	return o.success
}

// RemoveTable drops a table and invalidates its cache entries.
func (o *CacheOrchestrator) RemoveTable(ctx context.Context, table string) int {
	if o.injection.IsInjection(table) {
		o.logger.Error("injection detected in table name")
		return o.errCode
	}
	if err := o.boilerplate.RemoveTable(ctx, table); err != nil {
		o.logger.Error("failed to drop table", zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.schemaPrefix(), o.tablePrefix(table))
	return o.success
}

// GetDataFromTable fetches rows after validating table, columns, and the
// WHERE column segments. Results are cached per table, column selection,
// and WHERE fingerprint.
func (o *CacheOrchestrator) GetDataFromTable(ctx context.Context, table string, columns []string, where []string, beautify bool) ([]Row, int) {
	if o.injection.ContainsInjection(table, columns) {
		o.logger.Error("injection detected in table or column names")
		return nil, o.errCode
	}
	if err := o.parseAndValidateWhere(where); err != nil {
		return nil, o.errCode
	}

	key := o.tablePrefix(table) + "select:" + fingerprint(
		strings.Join(columns, ","),
		strings.Join(where, " AND "),
		strconv.FormatBool(beautify),
	)
	rows, err := cacheFetch(ctx, o, key, func() ([]Row, error) {
		return o.boilerplate.GetDataFromTable(ctx, table, columns, where, beautify)
	})
	if err != nil {
		o.logger.Error("failed to fetch data", zap.String("table", table), zap.Error(err))
		return nil, o.errCode
	}
	return rows, o.success
}

// GetTableSize returns the filtered row count, or GetTableSizeError when
// validation or the query fails.
func (o *CacheOrchestrator) GetTableSize(ctx context.Context, table string, columns []string, where []string) int64 {
	if o.injection.ContainsInjection(table, columns) {
		o.logger.Error("injection detected in table or column names")
		return GetTableSizeError
	}
	if err := o.parseAndValidateWhere(where); err != nil {
		return GetTableSizeError
	}

	key := o.tablePrefix(table) + "count:" + fingerprint(
		strings.Join(columns, ","),
		strings.Join(where, " AND "),
	)
	count, err := cacheFetch(ctx, o, key, func() (int64, error) {
		return o.boilerplate.GetTableSize(ctx, table, columns, where)
	})
	if err != nil {
		o.logger.Error("failed to count rows", zap.String("table", table), zap.Error(err))
		return GetTableSizeError
	}
	return count
}

// InsertDataIntoTable validates every value of every row, inserts, and
// invalidates the table's cached reads.
func (o *CacheOrchestrator) InsertDataIntoTable(ctx context.Context, table string, data [][]any, columns []string) int {
	checked := []any{table, columns}
	for _, row := range data {
		checked = append(checked, row)
	}
	if o.injection.ContainsInjection(checked...) {
		o.logger.Error("injection detected in insert input")
		return o.errCode
	}
	if err := o.boilerplate.InsertDataIntoTable(ctx, table, data, columns); err != nil {
		o.logger.Error("failed to insert data", zap.String("table", table), zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.tablePrefix(table))
	return o.success
}

// UpdateDataInTable validates, updates, and invalidates the table's cached
// reads.
func (o *CacheOrchestrator) UpdateDataInTable(ctx context.Context, table string, data []any, columns []string, where []string) int {
	if o.injection.ContainsInjection(table, columns) {
		o.logger.Error("injection detected in update input")
		return o.errCode
	}
	if err := o.parseAndValidateWhere(where); err != nil {
		return o.errCode
	}
	if err := o.boilerplate.UpdateDataInTable(ctx, table, data, columns, where); err != nil {
		o.logger.Error("failed to update data", zap.String("table", table), zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.tablePrefix(table))
	return o.success
}

// InsertOrUpdateDataIntoTable upserts rows keyed on the first column.
func (o *CacheOrchestrator) InsertOrUpdateDataIntoTable(ctx context.Context, table string, data [][]any, columns []string) int {
	if o.injection.ContainsInjection(table, columns) {
		o.logger.Error("injection detected in upsert input")
		return o.errCode
	}
	if err := o.boilerplate.InsertOrUpdateDataIntoTable(ctx, table, data, columns); err != nil {
		o.logger.Error("failed to upsert data", zap.String("table", table), zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.tablePrefix(table))
	return o.success
}

// RemoveDataFromTable validates, deletes, and invalidates the table's
// cached reads.
func (o *CacheOrchestrator) RemoveDataFromTable(ctx context.Context, table string, where []string) int {
	if o.injection.IsInjection(table) {
		o.logger.Error("injection detected in table name")
		return o.errCode
	}
	if err := o.parseAndValidateWhere(where); err != nil {
		return o.errCode
	}
	if err := o.boilerplate.RemoveDataFromTable(ctx, table, where); err != nil {
		o.logger.Error("failed to remove data", zap.String("table", table), zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.tablePrefix(table))
	return o.success
}

// GetTriggers returns all triggers keyed by name.
func (o *CacheOrchestrator) GetTriggers(ctx context.Context) (map[string]string, int) {
	triggers, err := cacheFetch(ctx, o, o.triggerPrefix()+"all", func() (map[string]string, error) {
		return o.boilerplate.GetTriggers(ctx)
	})
	if err != nil {
		o.logger.Error("failed to fetch triggers", zap.Error(err))
		return nil, o.errCode
	}
	return triggers, o.success
}

// GetTrigger returns a single trigger's SQL definition.
func (o *CacheOrchestrator) GetTrigger(ctx context.Context, triggerName, dbName string) (string, int) {
	if triggerName == "" {
		o.logger.Error("trigger name cannot be empty")
		return "", o.errCode
	}
	if o.injection.ContainsInjection(triggerName, dbName) {
		o.logger.Error("injection detected in trigger name")
		return "", o.errCode
	}
	definition, err := cacheFetch(ctx, o, o.triggerPrefix()+"def:"+fingerprint(dbName, triggerName), func() (string, error) {
		return o.boilerplate.GetTrigger(ctx, triggerName, dbName)
	})
	if err != nil {
		o.logger.Error("failed to fetch trigger", zap.Error(err))
		return "", o.errCode
	}
	return definition, o.success
}

// GetTriggerNames lists trigger names, optionally for another database.
func (o *CacheOrchestrator) GetTriggerNames(ctx context.Context, dbName string) ([]string, int) {
	if dbName != "" && o.injection.IsInjection(dbName) {
		o.logger.Error("injection detected in database name")
		return nil, o.errCode
	}
	names, err := cacheFetch(ctx, o, o.triggerPrefix()+"names:"+dbName, func() ([]string, error) {
		return o.boilerplate.GetTriggerNames(ctx, dbName)
	})
	if err != nil {
		o.logger.Error("failed to fetch trigger names", zap.Error(err))
		return nil, o.errCode
	}
	return names, o.success
}

// InsertTrigger creates a trigger and invalidates the trigger cache.
func (o *CacheOrchestrator) InsertTrigger(ctx context.Context, triggerName, tableName, timingEvent, body string) int {
	if triggerName == "" || tableName == "" || timingEvent == "" || body == "" {
		o.logger.Error("all trigger parameters must be provided")
		return o.errCode
	}
	if o.injection.ContainsInjection(triggerName, tableName) {
		o.logger.Error("injection detected in trigger input")
		return o.errCode
	}
	if err := o.boilerplate.InsertTrigger(ctx, triggerName, tableName, timingEvent, body); err != nil {
		o.logger.Error("failed to create trigger", zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.triggerPrefix())
	return o.success
}

// InsertOrUpdateTrigger replaces a trigger and invalidates the trigger
// cache.
func (o *CacheOrchestrator) InsertOrUpdateTrigger(ctx context.Context, triggerName, tableName, timingEvent, body string) int {
	if o.injection.ContainsInjection(triggerName, tableName) {
		o.logger.Error("injection detected in trigger input")
		return o.errCode
	}
	if err := o.boilerplate.InsertOrUpdateTrigger(ctx, triggerName, tableName, timingEvent, body); err != nil {
		o.logger.Error("failed to replace trigger", zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.triggerPrefix())
	return o.success
}

// RemoveTrigger drops a trigger and invalidates the trigger cache.
func (o *CacheOrchestrator) RemoveTrigger(ctx context.Context, triggerName string) int {
	if triggerName == "" {
		o.logger.Error("trigger name cannot be empty")
		return o.errCode
	}
	if o.injection.IsInjection(triggerName) {
		o.logger.Error("injection detected in trigger name")
		return o.errCode
	}
	if err := o.boilerplate.RemoveTrigger(ctx, triggerName); err != nil {
		o.logger.Error("failed to drop trigger", zap.Error(err))
		return o.errCode
	}
	o.invalidate(ctx, o.triggerPrefix())
	return o.success
}
