package sql

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/apperrors"
)

var (
	createTriggerPattern    = regexp.MustCompile(`(?i)^\s*CREATE\s+TRIGGER\b`)
	createTriggerHeadShape  = regexp.MustCompile("(?i)^CREATE\\s+TRIGGER\\s+[`\"\\w]+")
	createTriggerOccurrence = regexp.MustCompile(`\bcreate\s+trigger\b`)
	triggerIfNotExists      = regexp.MustCompile(`(?i)\bCREATE\s+TRIGGER\s+IF\s+NOT\s+EXISTS\b`)
	triggerDelimiterLine    = regexp.MustCompile(`(?im)^\s*DELIMITER\s+\S+\s*$`)
	triggerEndDelimiter     = regexp.MustCompile(`(?s)\s*END\s*[$;/]+\s*$`)
	triggerSpaceRun         = regexp.MustCompile(`[ \t]+`)
	systemSchemaPattern     = regexp.MustCompile(`(?i)^(mysql|information_schema|performance_schema|sys)\.`)
)

// checkTriggerStatement rejects CREATE TRIGGER statements that smuggle a
// second query or dangerous DDL past the trigger boundary.
func (s *Sanitizer) checkTriggerStatement(sql, tableName string) error {
	lower := strings.ToLower(sql)

	if len(createTriggerOccurrence.FindAllString(lower, -1)) > 1 {
		s.logger.Error("multiple CREATE TRIGGER statements detected")
		return apperrors.ErrInvalidTrigger
	}

	for _, keyword := range riskyTriggerDDLKeywords {
		if strings.Contains(lower, keyword) {
			s.logger.Error("unsafe keyword in trigger statement",
				zap.String("keyword", strings.TrimSpace(keyword)),
			)
			return apperrors.ErrInvalidTrigger
		}
	}

	if systemSchemaPattern.MatchString(tableName) {
		s.logger.Error("trigger targets a system schema table")
		return apperrors.ErrInvalidTrigger
	}

	beginCount := strings.Count(lower, "begin")
	endCount := strings.Count(lower, "end")
	if beginCount != endCount {
		s.logger.Error("unbalanced BEGIN/END block",
			zap.Int("begin", beginCount),
			zap.Int("end", endCount),
		)
		return apperrors.ErrInvalidTrigger
	}

	// MySQL triggers only run one statement unless wrapped in BEGIN/END.
	if beginCount == 0 && strings.Count(sql, ";") > 1 {
		s.logger.Warn("multiple statements outside BEGIN/END in trigger")
	}

	if !createTriggerHeadShape.MatchString(sql) {
		s.logger.Error("malformed CREATE TRIGGER statement")
		return apperrors.ErrInvalidTrigger
	}
	return nil
}

// CleanTriggerCreation normalizes a trigger body into a single validated
// CREATE TRIGGER statement. Bare bodies are wrapped in a CREATE TRIGGER
// template; CLI delimiters and END$$ variants are stripped along the way.
func (s *Sanitizer) CleanTriggerCreation(triggerName, tableName, timingEvent, body string) (string, error) {
	if triggerName == "" || tableName == "" || timingEvent == "" || body == "" {
		return "", fmt.Errorf("clean trigger: %w", apperrors.ErrMissingArgument)
	}

	sql := strings.TrimSpace(body)

	if !createTriggerPattern.MatchString(sql) {
		sql = fmt.Sprintf(
			"CREATE TRIGGER `%s` %s ON `%s` FOR EACH ROW %s",
			triggerName, timingEvent, tableName, sql,
		)
	}

	// IF NOT EXISTS is MariaDB-only, strip it.
	sql = triggerIfNotExists.ReplaceAllString(sql, "CREATE TRIGGER")
	sql = triggerDelimiterLine.ReplaceAllString(sql, "")
	sql = triggerEndDelimiter.ReplaceAllString(sql, "END;")
	sql = strings.TrimSpace(triggerSpaceRun.ReplaceAllString(sql, " "))

	if !createTriggerHeadShape.MatchString(sql) {
		s.logger.Error("malformed trigger statement after cleaning")
		return "", apperrors.ErrInvalidTrigger
	}

	if err := s.checkTriggerStatement(sql, tableName); err != nil {
		return "", err
	}
	return sql, nil
}

// GetTriggers retrieves all triggers of the current database keyed by name.
func (b *QueryBoilerplates) GetTriggers(ctx context.Context) (map[string]string, error) {
	rows, err := b.pool.RunAndFetchAll(ctx, "SHOW TRIGGERS;", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch triggers: %w", err)
	}

	data := make(map[string]string, len(rows))
	for _, row := range rows {
		name, _ := row["Trigger"].(string)
		statement, _ := row["Statement"].(string)
		if name != "" && statement != "" {
			data[name] = statement
		}
	}
	return data, nil
}

// GetTrigger retrieves the SQL definition of a single trigger, optionally
// qualified by database name.
func (b *QueryBoilerplates) GetTrigger(ctx context.Context, triggerName, dbName string) (string, error) {
	if triggerName == "" {
		return "", fmt.Errorf("fetch trigger: %w", apperrors.ErrMissingArgument)
	}
	if b.injection.ContainsInjection(triggerName, dbName) {
		return "", fmt.Errorf("fetch trigger %q: %w", triggerName, apperrors.ErrInjectionDetected)
	}

	query := fmt.Sprintf("SHOW CREATE TRIGGER `%s`", triggerName)
	if dbName != "" {
		query = fmt.Sprintf("SHOW CREATE TRIGGER `%s`.`%s`", dbName, triggerName)
	}

	rows, err := b.pool.RunAndFetchAll(ctx, query, nil)
	if err != nil {
		return "", fmt.Errorf("fetch trigger %q: %w", triggerName, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("fetch trigger %q: %w", triggerName, apperrors.ErrEmptyResult)
	}

	definition, _ := rows[0]["SQL Original Statement"].(string)
	if definition == "" {
		return "", fmt.Errorf("fetch trigger %q: no SQL definition found", triggerName)
	}
	return definition, nil
}

// GetTriggerNames lists the trigger names of the current database, or of
// dbName when given.
func (b *QueryBoilerplates) GetTriggerNames(ctx context.Context, dbName string) ([]string, error) {
	var (
		query  string
		values []any
	)
	if dbName != "" {
		if b.injection.IsInjection(dbName) {
			return nil, fmt.Errorf("fetch trigger names: %w", apperrors.ErrInjectionDetected)
		}
		query = "SELECT TRIGGER_NAME FROM information_schema.triggers" +
			" WHERE TRIGGER_SCHEMA = " + Placeholder + " ORDER BY TRIGGER_NAME;"
		values = []any{dbName}
	} else {
		query = "SELECT TRIGGER_NAME FROM information_schema.triggers" +
			" WHERE TRIGGER_SCHEMA = DATABASE() ORDER BY TRIGGER_NAME;"
	}

	rows, err := b.pool.RunAndFetchAll(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("fetch trigger names: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := firstValue(row).(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// InsertTrigger creates a trigger, dropping any previous trigger with the
// same name first.
func (b *QueryBoilerplates) InsertTrigger(ctx context.Context, triggerName, tableName, timingEvent, body string) error {
	if triggerName == "" || tableName == "" || timingEvent == "" || body == "" {
		return fmt.Errorf("create trigger: %w", apperrors.ErrMissingArgument)
	}
	if b.injection.ContainsInjection(triggerName, tableName) {
		return fmt.Errorf("create trigger %q: %w", triggerName, apperrors.ErrInjectionDetected)
	}
	if b.injection.IsSymbolOrLogicGateInjection(timingEvent) {
		return fmt.Errorf("create trigger %q: %w", triggerName, apperrors.ErrInjectionDetected)
	}

	query, err := b.sanitizer.CleanTriggerCreation(triggerName, tableName, timingEvent, body)
	if err != nil {
		return fmt.Errorf("create trigger %q: %w", triggerName, err)
	}

	// MySQL has no CREATE TRIGGER IF NOT EXISTS.
	if err := b.RemoveTrigger(ctx, triggerName); err != nil {
		b.logger.Warn("could not drop existing trigger",
			zap.String("trigger", triggerName),
			zap.Error(err),
		)
	}

	b.logger.Debug("creating trigger", zap.String("trigger", triggerName))
	if status := b.pool.RunEditingCommand(ctx, query, nil); status != Success {
		return fmt.Errorf("create trigger %q: command returned status %d", triggerName, status)
	}
	return nil
}

// InsertOrUpdateTrigger replaces a trigger by dropping then recreating it.
func (b *QueryBoilerplates) InsertOrUpdateTrigger(ctx context.Context, triggerName, tableName, timingEvent, body string) error {
	if b.injection.ContainsInjection(triggerName, tableName) {
		return fmt.Errorf("replace trigger %q: %w", triggerName, apperrors.ErrInjectionDetected)
	}
	if b.injection.IsSymbolOrLogicGateInjection(timingEvent) {
		return fmt.Errorf("replace trigger %q: %w", triggerName, apperrors.ErrInjectionDetected)
	}

	if err := b.RemoveTrigger(ctx, triggerName); err != nil {
		b.logger.Warn("unexpected drop result while replacing trigger",
			zap.String("trigger", triggerName),
			zap.Error(err),
		)
	}
	return b.InsertTrigger(ctx, triggerName, tableName, timingEvent, body)
}

// RemoveTrigger drops a trigger if it exists.
func (b *QueryBoilerplates) RemoveTrigger(ctx context.Context, triggerName string) error {
	if triggerName == "" {
		return fmt.Errorf("drop trigger: %w", apperrors.ErrMissingArgument)
	}
	if b.injection.IsInjection(triggerName) {
		return fmt.Errorf("drop trigger %q: %w", triggerName, apperrors.ErrInjectionDetected)
	}

	query := fmt.Sprintf("DROP TRIGGER IF EXISTS `%s`;", triggerName)
	if status := b.pool.RunEditingCommand(ctx, query, nil); status != Success {
		return fmt.Errorf("drop trigger %q: command returned status %d", triggerName, status)
	}
	return nil
}
