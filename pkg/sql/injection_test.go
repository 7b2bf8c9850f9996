package sql

import (
	"testing"

	"go.uber.org/zap"
)

func TestDetector_PlainStringsPass(t *testing.T) {
	d := NewDetector(zap.NewNop())

	inputs := []any{
		"hello world",
		"felix the cat",
		"12345",
		"3.14",
		12345,
		4.5,
		nil,
		"",
	}
	for _, input := range inputs {
		if d.IsInjection(input) {
			t.Errorf("IsInjection(%v) = true, want false", input)
		}
	}
}

func TestDetector_SymbolInjection(t *testing.T) {
	d := NewDetector(zap.NewNop())

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"semicolon", "value; extra", true},
		{"server variable", "@@version", true},
		{"at sign alone", "user@host", true},
		{"clean", "plain text", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsSymbolInjection(tt.input); got != tt.want {
				t.Errorf("IsSymbolInjection(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetector_CommandInjection(t *testing.T) {
	d := NewDetector(zap.NewNop())

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"drop statement", "drop table users", true},
		{"union probe", "1 UNION ALL", true},
		{"keyword case insensitive", "DeLeTe everything", true},
		{"keyword inside word passes", "selections and unions are words", false},
		{"safe pattern filter", "selective union membership", false},
		{"clean", "just a sentence", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsCommandInjection(tt.input); got != tt.want {
				t.Errorf("IsCommandInjection(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetector_LogicGateInjection(t *testing.T) {
	d := NewDetector(zap.NewNop())

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"classic tautology", "' OR 1=1", true},
		{"bare tautology", "2=2", true},
		{"and gate", "x and y", true},
		{"gate inside word passes", "boring normality", false},
		{"clean", "felix", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsLogicGateInjection(tt.input); got != tt.want {
				t.Errorf("IsLogicGateInjection(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetector_EmailExemption(t *testing.T) {
	d := NewDetector(zap.NewNop())

	exempt := []string{
		"user@example.com",
		"'user@example.com'",
		`"user@example.com"`,
		"email=user@example.com",
		"email='user@example.com'",
		"first.last@sub.example.co.uk",
	}
	for _, input := range exempt {
		if d.IsInjection(input) {
			t.Errorf("IsInjection(%q) = true, want exempt email", input)
		}
	}

	flagged := []string{
		"user@example.com; DROP TABLE users;",
		"'user@example.com'; DROP TABLE users--",
		"user@@example.com",
		"one@two@example.com",
	}
	for _, input := range flagged {
		if !d.IsInjection(input) {
			t.Errorf("IsInjection(%q) = false, want flagged", input)
		}
	}
}

func TestDetector_Base64Quirk(t *testing.T) {
	d := NewDetector(zap.NewNop())

	// Data-URI style content keeps its symbol hit: the marker is present
	// and the full string is not valid base64.
	if !d.IsSymbolInjection("image/png;base64,aGVsbG8=") {
		t.Error("expected base64-tagged data URI to stay flagged")
	}
}

func TestDetector_ContainsInjection(t *testing.T) {
	d := NewDetector(zap.NewNop())

	if d.ContainsInjection("users", []string{"id", "name"}, nil, 42) {
		t.Error("clean mixed values flagged")
	}
	if !d.ContainsInjection("users", []string{"id", "name; DROP TABLE x"}) {
		t.Error("hostile element in string slice missed")
	}
	if !d.ContainsInjection([]any{"a", []any{"b", "' OR 1=1"}}) {
		t.Error("hostile element in nested slice missed")
	}
	if !d.ContainsInjection([][]any{{1, "a"}, {2, "x; DELETE FROM y"}}) {
		t.Error("hostile element in row data missed")
	}
	if d.ContainsInjection() {
		t.Error("no values flagged")
	}
}

func TestDetector_CombinedChecks(t *testing.T) {
	d := NewDetector(zap.NewNop())

	if !d.IsSymbolOrCommandInjection("; DROP TABLE users") {
		t.Error("symbol+command check missed a payload carrying both")
	}
	if !d.IsSymbolOrLogicGateInjection("a; b") {
		t.Error("symbol+logic-gate check missed a semicolon")
	}
	if !d.IsCommandOrLogicGateInjection("1=1") {
		t.Error("command+logic-gate check missed a tautology")
	}
	if d.IsSymbolOrCommandInjection("plain") {
		t.Error("clean value flagged by combined check")
	}
}
