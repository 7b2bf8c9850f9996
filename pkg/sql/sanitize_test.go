package sql

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/asperguide/catfeeder-backend/pkg/apperrors"
)

func testSanitizer() *Sanitizer {
	s := NewSanitizer(zap.NewNop())
	s.now = func() time.Time {
		return time.Date(2026, time.March, 14, 15, 9, 26, 0, time.UTC)
	}
	return s
}

func TestSanitizer_ProtectCell(t *testing.T) {
	s := testSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"mixed quotes and backslash", `a'b\c`, `a\'b\\c`},
		{"double quote", `say "hi"`, `say \"hi\"`},
		{"plain", "felix", "felix"},
		{"empty", "", ""},
		{"carriage return", "a\rb", "a\\\rb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ProtectCell(tt.input); got != tt.want {
				t.Errorf("ProtectCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizer_QuoteAndEscape(t *testing.T) {
	s := testSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "''"},
		{"plain", "felix", "'felix'"},
		{"internal quote doubled", "O'Neil", "'O''Neil'"},
		{"already quoted not rewrapped", "'felix'", "'felix'"},
		{"backticked identifier untouched", "`select`", "`select`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.QuoteAndEscape(tt.input); got != tt.want {
				t.Errorf("QuoteAndEscape(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizer_NormalizeCell(t *testing.T) {
	s := testSanitizer()

	if got := s.NormalizeCell(nil); got != nil {
		t.Errorf("NormalizeCell(nil) = %v, want nil", got)
	}
	if got := s.NormalizeCell(42); got != 42 {
		t.Errorf("NormalizeCell(42) = %v, want 42", got)
	}
	if got := s.NormalizeCell(4.5); got != 4.5 {
		t.Errorf("NormalizeCell(4.5) = %v, want 4.5", got)
	}
	if got := s.NormalizeCell("now"); got != "2026-03-14 15:09:26" {
		t.Errorf("NormalizeCell(now) = %v", got)
	}
	if got := s.NormalizeCell("NOW()"); got != "2026-03-14 15:09:26" {
		t.Errorf("NormalizeCell(NOW()) = %v", got)
	}
	if got := s.NormalizeCell("current_date"); got != "2026-03-14" {
		t.Errorf("NormalizeCell(current_date) = %v", got)
	}
	if got := s.NormalizeCell("plain text"); got != "plain text" {
		t.Errorf("NormalizeCell(plain text) = %v", got)
	}
	// Idempotence: a resolved timestamp stays as-is.
	if got := s.NormalizeCell("2026-03-14 15:09:26"); got != "2026-03-14 15:09:26" {
		t.Errorf("NormalizeCell(timestamp) = %v", got)
	}
}

func TestSanitizer_CheckCell(t *testing.T) {
	s := testSanitizer()

	if got := s.CheckCell("felix", true); got != "felix" {
		t.Errorf("CheckCell raw = %v", got)
	}
	if got := s.CheckCell(nil, true); got != nil {
		t.Errorf("CheckCell(nil, raw) = %v, want nil", got)
	}
	if got := s.CheckCell(nil, false); got != "NULL" {
		t.Errorf("CheckCell(nil, embedded) = %v, want NULL", got)
	}
	if got := s.CheckCell(7, false); got != "7" {
		t.Errorf("CheckCell(7, embedded) = %v, want \"7\"", got)
	}
}

func TestSanitizer_EscapeRiskyColumn(t *testing.T) {
	s := testSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"reserved word", "select", "`select`"},
		{"reserved word upper", "ORDER", "`ORDER`"},
		{"plain column", "username", "username"},
		{"reserved key value form", "order=5", "`order`=5"},
		{"plain key value form", "age=5", "age=5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.EscapeRiskyColumn(tt.input); got != tt.want {
				t.Errorf("EscapeRiskyColumn(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizer_BeautifyTable(t *testing.T) {
	s := testSanitizer()

	rows := []Row{
		{"id": 1, "name": "felix", "internal": "dropme"},
		{"id": 2},
	}
	got, err := s.BeautifyTable([]string{"id", "name"}, rows)
	if err != nil {
		t.Fatalf("BeautifyTable: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if _, ok := got[0]["internal"]; ok {
		t.Error("unlisted column survived beautification")
	}
	if got[0]["name"] != "felix" {
		t.Errorf("got[0][name] = %v", got[0]["name"])
	}
	if value, ok := got[1]["name"]; !ok || value != nil {
		t.Errorf("missing cell should be present and nil, got %v (present=%v)", value, ok)
	}

	if _, err := s.BeautifyTable(nil, rows); !errors.Is(err, apperrors.ErrMissingArgument) {
		t.Errorf("no columns: err = %v", err)
	}
	if _, err := s.BeautifyTable([]string{"id"}, nil); !errors.Is(err, apperrors.ErrEmptyResult) {
		t.Errorf("no rows: err = %v", err)
	}
}

func TestSanitizer_ProcessLines(t *testing.T) {
	s := testSanitizer()

	line, values, err := s.ProcessLines([][]any{{1, "a"}, {2, "b"}}, 2)
	if err != nil {
		t.Fatalf("ProcessLines: %v", err)
	}
	if line != "(?, ?), (?, ?)" {
		t.Errorf("line = %q", line)
	}
	if len(values) != 4 {
		t.Errorf("got %d values, want 4", len(values))
	}

	// Overlong rows truncate, short rows stop early.
	line, values, err = s.ProcessLines([][]any{{1, "a", "extra"}}, 2)
	if err != nil {
		t.Fatalf("ProcessLines overlong: %v", err)
	}
	if line != "(?, ?)" || len(values) != 2 {
		t.Errorf("overlong row: line = %q, values = %d", line, len(values))
	}

	line, values, err = s.ProcessLines([][]any{{1}}, 2)
	if err != nil {
		t.Fatalf("ProcessLines short: %v", err)
	}
	if line != "(?)" || len(values) != 1 {
		t.Errorf("short row: line = %q, values = %d", line, len(values))
	}

	if _, _, err := s.ProcessLines(nil, 2); !errors.Is(err, apperrors.ErrMalformedData) {
		t.Errorf("empty data: err = %v", err)
	}
	if _, _, err := s.ProcessLines([][]any{nil}, 2); !errors.Is(err, apperrors.ErrMalformedData) {
		t.Errorf("nil row: err = %v", err)
	}
}
