package sql

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/apperrors"
)

// ColumnDef describes one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name string
	Type string
}

// QueryBoilerplates translates table/column/where/data arguments into
// parameterized statements executed through a Pool. WHERE values are always
// bound, never interpolated; identifiers are screened by the Detector and
// reserved-word escaped before embedding.
type QueryBoilerplates struct {
	pool      Pool
	logger    *zap.Logger
	injection *Detector
	sanitizer *Sanitizer

	dbVersion []int
}

// NewQueryBoilerplates wires the query helper to its connection pool.
// Pass nil logger to disable logging.
func NewQueryBoilerplates(pool Pool, logger *zap.Logger) *QueryBoilerplates {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryBoilerplates{
		pool:      pool,
		logger:    logger,
		injection: NewDetector(logger),
		sanitizer: NewSanitizer(logger),
	}
}

// Sanitizer exposes the value-sanitisation helper bound to this instance.
func (b *QueryBoilerplates) Sanitizer() *Sanitizer {
	return b.sanitizer
}

// GetDatabaseVersion fetches and parses the server version. The parsed
// version is memoized for version-aware statement building.
func (b *QueryBoilerplates) GetDatabaseVersion(ctx context.Context) ([]int, error) {
	rows, err := b.pool.RunAndFetchAll(ctx, "SELECT VERSION()", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch database version: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fetch database version: %w", apperrors.ErrEmptyResult)
	}

	raw, ok := firstValue(rows[0]).(string)
	if !ok {
		return nil, fmt.Errorf("fetch database version: unexpected value type")
	}

	// Version strings look like "8.0.36" or "10.11.6-MariaDB".
	if dash := strings.IndexByte(raw, '-'); dash != -1 {
		raw = raw[:dash]
	}
	var version []int
	for _, part := range strings.Split(raw, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		version = append(version, n)
	}
	if len(version) == 0 {
		return nil, fmt.Errorf("fetch database version: unparsable version %q", raw)
	}

	b.dbVersion = version
	return version, nil
}

func (b *QueryBoilerplates) dbVersionMajor(ctx context.Context) int {
	if b.dbVersion == nil && b.pool.IsPoolActive() {
		if _, err := b.GetDatabaseVersion(ctx); err != nil {
			b.logger.Warn("could not determine database version", zap.Error(err))
		}
	}
	if len(b.dbVersion) == 0 {
		return 0
	}
	return b.dbVersion[0]
}

// GetTableNames retrieves the names of all tables in the database.
func (b *QueryBoilerplates) GetTableNames(ctx context.Context) ([]string, error) {
	rows, err := b.pool.RunAndFetchAll(ctx, "SHOW TABLES", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch table names: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := firstValue(row).(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// DescribeTable fetches the column descriptions of a table.
func (b *QueryBoilerplates) DescribeTable(ctx context.Context, table string) ([]Row, error) {
	if b.injection.IsInjection(table) {
		return nil, fmt.Errorf("describe table %q: %w", table, apperrors.ErrInjectionDetected)
	}

	rows, err := b.pool.RunAndFetchAll(ctx, "DESCRIBE "+table, nil)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	return rows, nil
}

// GetTableColumnNames returns the column names of a table in definition
// order.
func (b *QueryBoilerplates) GetTableColumnNames(ctx context.Context, table string) ([]string, error) {
	description, err := b.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(description))
	for _, row := range description {
		if name, ok := row["Field"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// CreateTable creates a table if it does not already exist. Identifiers are
// backtick-escaped; DEFAULT CURRENT_TIMESTAMP definitions are downgraded on
// MySQL 5.x servers that cannot express them on DATETIME columns.
func (b *QueryBoilerplates) CreateTable(ctx context.Context, table string, columns []ColumnDef) error {
	if b.injection.ContainsInjection(table) {
		return fmt.Errorf("create table %q: %w", table, apperrors.ErrInjectionDetected)
	}

	tableSafe := strings.ReplaceAll(table, "`", "``")
	defs := make([]string, 0, len(columns))
	for _, column := range columns {
		nameSafe := strings.ReplaceAll(column.Name, "`", "``")
		columnType := column.Type
		if strings.Contains(strings.ToUpper(columnType), "DEFAULT CURRENT_TIMESTAMP") &&
			b.dbVersionMajor(ctx) <= 5 {
			b.logger.Warn("downgrading DEFAULT CURRENT_TIMESTAMP for old server",
				zap.String("column", column.Name),
			)
			columnType = strings.ReplaceAll(
				strings.ToUpper(columnType), "DEFAULT CURRENT_TIMESTAMP", "NULL",
			)
		}
		defs = append(defs, fmt.Sprintf("`%s` %s", nameSafe, columnType))
	}

	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS `%s` (%s) ENGINE=InnoDB;",
		tableSafe, strings.Join(defs, ", "),
	)
	b.logger.Debug("creating table", zap.String("table", table))

	if status := b.pool.RunEditingCommand(ctx, query, nil); status != Success {
		return fmt.Errorf("create table %q: command returned status %d", table, status)
	}
	return nil
}

// InsertDataIntoTable inserts one or more rows. When columns is empty the
// table's column names are deduced from its description.
func (b *QueryBoilerplates) InsertDataIntoTable(ctx context.Context, table string, data [][]any, columns []string) (err error) {
	checked := []any{table, columns}
	for _, row := range data {
		checked = append(checked, row)
	}
	if b.injection.ContainsInjection(checked...) {
		return fmt.Errorf("insert into %q: %w", table, apperrors.ErrInjectionDetected)
	}

	if len(columns) == 0 {
		if columns, err = b.GetTableColumnNames(ctx, table); err != nil {
			return err
		}
	}
	columns = b.sanitizer.EscapeRiskyColumns(columns)

	line, values, err := b.sanitizer.ProcessLines(data, len(columns))
	if err != nil {
		return fmt.Errorf("insert into %q: %w", table, err)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(columns, ", "), line,
	)
	b.logger.Debug("inserting data", zap.String("table", table), zap.Int("values", len(values)))

	if status := b.pool.RunEditingCommand(ctx, query, values); status != Success {
		return fmt.Errorf("insert into %q: command returned status %d", table, status)
	}
	return nil
}

// GetDataFromTable fetches rows from a table. Table and column names are
// screened for injection; WHERE values are extracted and bound. With
// beautify set, rows are normalized against the table's described column
// order.
func (b *QueryBoilerplates) GetDataFromTable(ctx context.Context, table string, columns []string, where []string, beautify bool) ([]Row, error) {
	if b.injection.ContainsInjection(table, columns) {
		return nil, fmt.Errorf("select from %q: %w", table, apperrors.ErrInjectionDetected)
	}

	selector := strings.Join(b.sanitizer.EscapeRiskyColumns(columns), ", ")
	if selector == "" {
		selector = "*"
	}
	query := fmt.Sprintf("SELECT %s FROM %s", selector, table)

	whereClause, whereParams, err := b.parseWhereClause(where)
	if err != nil {
		return nil, fmt.Errorf("select from %q: %w", table, err)
	}
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	b.logger.Debug("fetching data",
		zap.String("table", table),
		zap.Int("params", len(whereParams)),
	)
	rows, err := b.pool.RunAndFetchAll(ctx, query, whereParams)
	if err != nil {
		return nil, fmt.Errorf("select from %q: %w", table, err)
	}
	if !beautify {
		return rows, nil
	}

	names, err := b.GetTableColumnNames(ctx, table)
	if err != nil {
		return nil, err
	}
	return b.sanitizer.BeautifyTable(names, rows)
}

// GetTableSize returns the COUNT of the given column expression, optionally
// filtered by a WHERE clause.
func (b *QueryBoilerplates) GetTableSize(ctx context.Context, table string, columns []string, where []string) (int64, error) {
	if b.injection.ContainsInjection(table, columns) {
		return 0, fmt.Errorf("count %q: %w", table, apperrors.ErrInjectionDetected)
	}

	selector := strings.Join(columns, ", ")
	if selector == "" {
		selector = "*"
	}
	query := fmt.Sprintf("SELECT COUNT(%s) FROM %s", selector, table)

	whereClause, whereParams, err := b.parseWhereClause(where)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", table, err)
	}
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	rows, err := b.pool.RunAndFetchAll(ctx, query, whereParams)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", table, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("count %q: %w", table, apperrors.ErrEmptyResult)
	}

	count, ok := toInt64(firstValue(rows[0]))
	if !ok {
		return 0, fmt.Errorf("count %q: unexpected count value type", table)
	}
	return count, nil
}

// UpdateDataInTable updates rows in a table. Data values come first in the
// bound parameter list, WHERE values after, each group in left-to-right
// order.
func (b *QueryBoilerplates) UpdateDataInTable(ctx context.Context, table string, data []any, columns []string, where []string) (err error) {
	checked := []any{table, columns}
	if b.injection.ContainsInjection(checked...) {
		return fmt.Errorf("update %q: %w", table, apperrors.ErrInjectionDetected)
	}

	if len(columns) == 0 {
		if columns, err = b.GetTableColumnNames(ctx, table); err != nil {
			return err
		}
	}
	columns = b.sanitizer.EscapeRiskyColumns(columns)

	setParts := make([]string, 0, len(columns))
	params := make([]any, 0, len(columns))
	for i, column := range columns {
		setParts = append(setParts, column+" = "+Placeholder)
		var value any
		if i < len(data) {
			value = data[i]
		}
		params = append(params, b.sanitizer.NormalizeCell(value))
	}

	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(setParts, ", "))

	whereClause, whereParams, err := b.parseWhereClause(where)
	if err != nil {
		return fmt.Errorf("update %q: %w", table, err)
	}
	params = append(params, whereParams...)
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	b.logger.Debug("updating data",
		zap.String("table", table),
		zap.Int("params", len(params)),
	)
	if status := b.pool.RunEditingCommand(ctx, query, params); status != Success {
		return fmt.Errorf("update %q: command returned status %d", table, status)
	}
	return nil
}

// InsertOrUpdateDataIntoTable upserts rows using the first column as the
// key: rows whose key already exists are updated, the rest are inserted.
func (b *QueryBoilerplates) InsertOrUpdateDataIntoTable(ctx context.Context, table string, data [][]any, columns []string) (err error) {
	if b.injection.ContainsInjection(table, columns) {
		return fmt.Errorf("upsert into %q: %w", table, apperrors.ErrInjectionDetected)
	}

	if len(columns) == 0 {
		if columns, err = b.GetTableColumnNames(ctx, table); err != nil {
			return err
		}
	}
	if len(columns) == 0 {
		return fmt.Errorf("upsert into %q: %w", table, apperrors.ErrMissingArgument)
	}

	existing, err := b.GetDataFromTable(ctx, table, columns, nil, false)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		known[scalarString(row[columns[0]])] = struct{}{}
	}

	for _, row := range data {
		if len(row) == 0 {
			b.logger.Warn("empty upsert row, skipping", zap.String("table", table))
			continue
		}
		key := scalarString(row[0])
		if _, exists := known[key]; exists {
			where := []string{columns[0] + "=" + b.sanitizer.QuoteAndEscape(key)}
			if err := b.UpdateDataInTable(ctx, table, row, columns, where); err != nil {
				return err
			}
			continue
		}
		if err := b.InsertDataIntoTable(ctx, table, [][]any{row}, columns); err != nil {
			return err
		}
		known[key] = struct{}{}
	}
	return nil
}

// RemoveDataFromTable deletes rows from a table, optionally filtered by a
// WHERE clause.
func (b *QueryBoilerplates) RemoveDataFromTable(ctx context.Context, table string, where []string) error {
	if b.injection.IsInjection(table) {
		return fmt.Errorf("delete from %q: %w", table, apperrors.ErrInjectionDetected)
	}

	query := "DELETE FROM " + table

	whereClause, whereParams, err := b.parseWhereClause(where)
	if err != nil {
		return fmt.Errorf("delete from %q: %w", table, err)
	}
	if whereClause != "" {
		query += " WHERE " + whereClause
	}

	b.logger.Debug("removing data",
		zap.String("table", table),
		zap.Int("params", len(whereParams)),
	)
	if status := b.pool.RunEditingCommand(ctx, query, whereParams); status != Success {
		return fmt.Errorf("delete from %q: command returned status %d", table, status)
	}
	return nil
}

// RemoveTable drops a table if it exists.
func (b *QueryBoilerplates) RemoveTable(ctx context.Context, table string) error {
	if b.injection.ContainsInjection(table) {
		return fmt.Errorf("drop table %q: %w", table, apperrors.ErrInjectionDetected)
	}

	tableSafe := strings.ReplaceAll(table, "`", "``")
	query := fmt.Sprintf("DROP TABLE IF EXISTS `%s`;", tableSafe)

	if status := b.pool.RunEditingCommand(ctx, query, nil); status != Success {
		return fmt.Errorf("drop table %q: command returned status %d", table, status)
	}
	return nil
}

// firstValue returns the single value of a one-column row.
func firstValue(row Row) any {
	for _, value := range row {
		return value
	}
	return nil
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
