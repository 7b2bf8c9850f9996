package sql

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/apperrors"
)

// nullValue is the literal written for nil cells on the legacy embedding path.
const nullValue = "NULL"

// Sanitizer produces safe scalar representations of values before they reach
// a statement, and converts symbolic time keywords ("now", "current_date")
// to concrete formatted values.
type Sanitizer struct {
	logger *zap.Logger

	// now is swappable so time-keyword resolution is testable.
	now func() time.Time
}

// NewSanitizer returns a Sanitizer. Pass nil to disable logging.
func NewSanitizer(logger *zap.Logger) *Sanitizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sanitizer{
		logger: logger,
		now:    time.Now,
	}
}

// NowValue returns the current timestamp formatted for the database.
func (s *Sanitizer) NowValue() string {
	return s.now().Format(DateAndTimeFormat)
}

// CurrentDateValue returns the current date formatted for the database.
func (s *Sanitizer) CurrentDateValue() string {
	return s.now().Format(DateOnlyFormat)
}

// ProtectCell escapes characters that would break out of a quoted SQL cell.
// The backslash itself is escaped by the same pass that escapes quotes, so
// escaping never doubles up: `a'b\c` becomes `a\'b\\c`.
func (s *Sanitizer) ProtectCell(cell string) string {
	var b strings.Builder
	b.Grow(len(cell))
	for _, char := range cell {
		switch char {
		case '\'', '"', '\\', 0, '\r':
			s.logger.Debug("escaped character in cell", zap.String("char", string(char)))
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// QuoteAndEscape renders a value as a single-quoted SQL literal using the
// standard doubling of internal single quotes. This is the direct-embedding
// encoding; ProtectCell is the cell-level one. The two conventions serve
// different call paths and are both kept.
//
// Pre-existing outer single quotes are stripped first so already-quoted
// input does not get double wrapped, and backtick-wrapped identifiers pass
// through untouched.
func (s *Sanitizer) QuoteAndEscape(value string) string {
	if value == "" {
		return "''"
	}

	if strings.HasPrefix(value, "`") && strings.HasSuffix(value, "`") {
		return value
	}

	value = strings.TrimPrefix(value, "'")
	value = strings.TrimSuffix(value, "'")

	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// NormalizeCell prepares a cell value for parameter binding. Nil and numeric
// values pass through unchanged; the symbolic time keywords "now"/"now()"
// and "current_date"/"current_date()" resolve to formatted strings; any
// other string is returned as-is, to be bound later rather than embedded.
func (s *Sanitizer) NormalizeCell(cell any) any {
	switch cell.(type) {
	case nil:
		return nil
	case int, int32, int64, float32, float64:
		return cell
	}

	str := scalarString(cell)
	switch strings.ToLower(str) {
	case "now", "now()":
		return s.NowValue()
	case "current_date", "current_date()":
		return s.CurrentDateValue()
	}
	return str
}

// CheckCell normalizes a cell value. With raw=true the normalized value is
// returned unmodified, ready for parameterized binding. With raw=false (the
// legacy embedding path) the normalized value comes back as a plain,
// unquoted string, nil mapping to the NULL literal.
func (s *Sanitizer) CheckCell(cell any, raw bool) any {
	normalized := s.NormalizeCell(cell)
	if raw {
		return normalized
	}
	if normalized == nil {
		return nullValue
	}
	return scalarString(normalized)
}

// EscapeRiskyColumn wraps a column name in backticks when it collides with a
// reserved word. Input in "column=value" form keeps its value untouched.
func (s *Sanitizer) EscapeRiskyColumn(column string) string {
	if key, value, found := strings.Cut(column, "="); found {
		if isRiskyKeyword(strings.ToLower(key)) {
			s.logger.Warn("escaping risky column name", zap.String("column", key))
			return "`" + key + "`=" + value
		}
		return column
	}
	if isRiskyKeyword(strings.ToLower(column)) {
		s.logger.Warn("escaping risky column name", zap.String("column", column))
		return "`" + column + "`"
	}
	return column
}

// EscapeRiskyColumns applies EscapeRiskyColumn to every name in the list.
func (s *Sanitizer) EscapeRiskyColumns(columns []string) []string {
	escaped := make([]string, len(columns))
	for i, column := range columns {
		escaped[i] = s.EscapeRiskyColumn(column)
	}
	return escaped
}

// BeautifyTable normalizes result rows against the table's column order:
// every listed column is present in every returned row (missing values
// become nil) and keys that are not listed are dropped.
func (s *Sanitizer) BeautifyTable(columnNames []string, rows []Row) ([]Row, error) {
	if len(columnNames) == 0 {
		return nil, fmt.Errorf("beautify table: no column names provided: %w", apperrors.ErrMissingArgument)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("beautify table: %w", apperrors.ErrEmptyResult)
	}

	beautified := make([]Row, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(columnNames) {
			s.logger.Warn("row and column lengths do not correspond",
				zap.Int("columns", len(columnNames)),
				zap.Int("cells", len(row)),
			)
		}
		normalized := make(Row, len(columnNames))
		for _, name := range columnNames {
			normalized[name] = row[name]
		}
		beautified = append(beautified, normalized)
	}
	return beautified, nil
}

// processSingleLine converts one data row into a placeholder group and its
// bound values, truncating or stopping short when the row length and column
// count disagree.
func (s *Sanitizer) processSingleLine(line []any, columnLength int) (string, []any) {
	placeholders := make([]string, 0, columnLength)
	values := make([]any, 0, columnLength)

	for i := 0; i < columnLength; i++ {
		if i >= len(line) {
			s.logger.Warn("line shorter than expected, missing columns will not be inserted",
				zap.Int("columns", columnLength),
				zap.Int("data", len(line)),
			)
			break
		}
		values = append(values, s.CheckCell(line[i], true))
		placeholders = append(placeholders, Placeholder)
	}

	if len(line) > columnLength {
		s.logger.Warn("line longer than the number of columns, truncating excess values",
			zap.Int("columns", columnLength),
			zap.Int("data", len(line)),
		)
	}

	return "(" + strings.Join(placeholders, ", ") + ")", values
}

// ProcessLines converts single- or multi-row data into the VALUES
// placeholder string and the flat ordered value list for binding.
func (s *Sanitizer) ProcessLines(data [][]any, columnLength int) (string, []any, error) {
	if len(data) == 0 {
		return "", nil, fmt.Errorf("process lines: %w", apperrors.ErrMalformedData)
	}

	groups := make([]string, 0, len(data))
	var values []any
	for _, row := range data {
		if row == nil {
			return "", nil, fmt.Errorf("process lines: %w", apperrors.ErrMalformedData)
		}
		group, rowValues := s.processSingleLine(row, columnLength)
		groups = append(groups, group)
		values = append(values, rowValues...)
	}

	return strings.Join(groups, ", "), values, nil
}
