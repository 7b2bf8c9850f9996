package sql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/apperrors"
)

func TestCleanTriggerCreation_WrapsBareBody(t *testing.T) {
	s := NewSanitizer(zap.NewNop())

	sql, err := s.CleanTriggerCreation("feed_log", "cats", "AFTER UPDATE",
		"SET NEW.fed_at = NOW();")
	if err != nil {
		t.Fatalf("CleanTriggerCreation: %v", err)
	}
	want := "CREATE TRIGGER `feed_log` AFTER UPDATE ON `cats` FOR EACH ROW SET NEW.fed_at = NOW();"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestCleanTriggerCreation_NormalizesFullStatement(t *testing.T) {
	s := NewSanitizer(zap.NewNop())

	body := "CREATE TRIGGER feed_log AFTER UPDATE ON cats FOR EACH ROW BEGIN SET NEW.fed_at = NOW(); END$$"
	sql, err := s.CleanTriggerCreation("feed_log", "cats", "AFTER UPDATE", body)
	if err != nil {
		t.Fatalf("CleanTriggerCreation: %v", err)
	}
	if !strings.HasSuffix(sql, "END;") {
		t.Errorf("END delimiter not normalized: %q", sql)
	}
	if strings.Contains(sql, "$$") {
		t.Errorf("CLI delimiter survived: %q", sql)
	}
}

func TestCleanTriggerCreation_Rejections(t *testing.T) {
	s := NewSanitizer(zap.NewNop())

	tests := []struct {
		name    string
		trigger string
		table   string
		timing  string
		body    string
		wantErr error
	}{
		{
			name:    "missing argument",
			trigger: "t", table: "cats", timing: "", body: "SET NEW.x = 1;",
			wantErr: apperrors.ErrMissingArgument,
		},
		{
			name:    "dangerous ddl in body",
			trigger: "t", table: "cats", timing: "AFTER UPDATE",
			body:    "DROP TABLE cats;",
			wantErr: apperrors.ErrInvalidTrigger,
		},
		{
			name:    "system schema table",
			trigger: "t", table: "mysql.user", timing: "AFTER UPDATE",
			body:    "SET NEW.x = 1;",
			wantErr: apperrors.ErrInvalidTrigger,
		},
		{
			name:    "unbalanced begin end",
			trigger: "t", table: "cats", timing: "AFTER UPDATE",
			body:    "BEGIN SET NEW.x = 1;",
			wantErr: apperrors.ErrInvalidTrigger,
		},
		{
			name:    "double create trigger",
			trigger: "t", table: "cats", timing: "AFTER UPDATE",
			body:    "CREATE TRIGGER a AFTER UPDATE ON cats FOR EACH ROW SET NEW.x = 1; CREATE TRIGGER b AFTER UPDATE ON cats FOR EACH ROW SET NEW.y = 2;",
			wantErr: apperrors.ErrInvalidTrigger,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CleanTriggerCreation(tt.trigger, tt.table, tt.timing, tt.body)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInsertTrigger(t *testing.T) {
	pool := &fakePool{editStatus: Success}
	b := newTestBoilerplate(pool)

	err := b.InsertTrigger(context.Background(), "feed_log", "cats", "AFTER UPDATE",
		"SET NEW.fed_at = NOW();")
	if err != nil {
		t.Fatalf("InsertTrigger: %v", err)
	}

	// A drop precedes the create since MySQL cannot express
	// CREATE TRIGGER IF NOT EXISTS.
	if len(pool.queries) != 2 {
		t.Fatalf("queries = %v", pool.queries)
	}
	if pool.queries[0] != "DROP TRIGGER IF EXISTS `feed_log`;" {
		t.Errorf("drop query = %q", pool.queries[0])
	}
	if !strings.HasPrefix(pool.queries[1], "CREATE TRIGGER `feed_log`") {
		t.Errorf("create query = %q", pool.queries[1])
	}
}

func TestInsertTrigger_RejectsHostileName(t *testing.T) {
	pool := &fakePool{editStatus: Success}
	b := newTestBoilerplate(pool)

	err := b.InsertTrigger(context.Background(), "t; DROP TABLE cats", "cats",
		"AFTER UPDATE", "SET NEW.x = 1;")
	if !errors.Is(err, apperrors.ErrInjectionDetected) {
		t.Fatalf("err = %v, want injection error", err)
	}
	if len(pool.queries) != 0 {
		t.Error("hostile trigger name reached the pool")
	}
}

func TestGetTriggers(t *testing.T) {
	pool := &fakePool{rows: []Row{
		{"Trigger": "feed_log", "Statement": "SET NEW.fed_at = NOW()"},
		{"Trigger": "", "Statement": "orphan"},
	}}
	b := newTestBoilerplate(pool)

	triggers, err := b.GetTriggers(context.Background())
	if err != nil {
		t.Fatalf("GetTriggers: %v", err)
	}
	if len(triggers) != 1 || triggers["feed_log"] != "SET NEW.fed_at = NOW()" {
		t.Errorf("triggers = %v", triggers)
	}
}

func TestGetTriggerNames_ScopedToDatabase(t *testing.T) {
	pool := &fakePool{rows: []Row{{"TRIGGER_NAME": "feed_log"}}}
	b := newTestBoilerplate(pool)

	names, err := b.GetTriggerNames(context.Background(), "catfeeder")
	if err != nil {
		t.Fatalf("GetTriggerNames: %v", err)
	}
	if len(names) != 1 || names[0] != "feed_log" {
		t.Errorf("names = %v", names)
	}
	if len(pool.values[0]) != 1 || pool.values[0][0] != "catfeeder" {
		t.Errorf("schema should be bound as a parameter, values = %v", pool.values[0])
	}
}

func TestRemoveTrigger_EmptyName(t *testing.T) {
	b := newTestBoilerplate(&fakePool{})

	if err := b.RemoveTrigger(context.Background(), ""); !errors.Is(err, apperrors.ErrMissingArgument) {
		t.Errorf("err = %v, want missing argument", err)
	}
}
