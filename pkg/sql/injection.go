// Package sql implements the data-safety core of the CatFeeder backend:
// heuristic SQL injection detection, value sanitisation, WHERE clause
// parameterization, reusable query boilerplates, and a cache-aware
// orchestrator that validates untrusted input before any query is built.
package sql

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// base64Marker tags data-URI style payloads ("...;base64,..."). Strings
// carrying the marker are flagged unless the whole string decodes as base64,
// which a data URI never does. Known quirk, kept on purpose: a stray
// semicolon inside a base64-tagged string still counts as a symbol hit.
const base64Marker = ";base64"

// Detector classifies untrusted strings as likely SQL injection payloads.
//
// It is a pure, stateless classification pipeline: symbol analysis, command
// keyword analysis, and logic-gate analysis, each usable standalone or
// combined through IsInjection. Recognized email addresses and numeric
// literals are deliberate false-negative allowances. The screening is
// regex-based defense-in-depth, not a SQL grammar parser.
//
// All methods return plain booleans and never fail; nil input is never
// malicious. A Detector is safe for concurrent use.
type Detector struct {
	logger *zap.Logger

	symbolPatterns    []*regexp.Regexp
	commandPatterns   []*regexp.Regexp
	logicGatePatterns []*regexp.Regexp
	allPatterns       []*regexp.Regexp
	safePatterns      []*regexp.Regexp

	numericPattern *regexp.Regexp
	domainPattern  *regexp.Regexp
}

// NewDetector builds a Detector with its pattern families precompiled.
// Pass nil to disable logging.
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Detector{
		logger: logger,
		symbolPatterns: compileLiteralPatterns([]string{
			";", "@@", "@",
		}),
		commandPatterns:   compileWordPatterns(commandKeywords),
		logicGatePatterns: compileWordPatterns([]string{"or", "and", "not", "xor", "exists"}),
		safePatterns: []*regexp.Regexp{
			// legitimate ORDER BY use
			regexp.MustCompile(`(?i)order\s?by\s?(asc|desc)?`),
			// words containing command keywords
			regexp.MustCompile(`(?i)selective`),
			regexp.MustCompile(`(?i)unionized`),
		},
		numericPattern: regexp.MustCompile(`^\d+(\.\d+)?$`),
		domainPattern:  regexp.MustCompile(`^(?:[A-Za-z0-9-]+\.)+[A-Za-z]{2,}$`),
	}

	// Tautologies like 1=1 belong to the logic-gate family.
	d.logicGatePatterns = append(
		d.logicGatePatterns,
		regexp.MustCompile(`\d+\s*=\s*\d+`),
	)

	d.allPatterns = append(d.allPatterns, d.symbolPatterns...)
	d.allPatterns = append(d.allPatterns, d.commandPatterns...)
	d.allPatterns = append(d.allPatterns, d.logicGatePatterns...)

	return d
}

func compileLiteralPatterns(tokens []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(tokens))
	for _, token := range tokens {
		patterns = append(patterns, regexp.MustCompile(regexp.QuoteMeta(token)))
	}
	return patterns
}

func compileWordPatterns(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, word := range words {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return patterns
}

// IsSymbolInjection reports whether the input carries injection-prone
// symbols (semicolons, SQL variable syntax). Recognized emails and numeric
// values are exempt. Slices are checked recursively.
func (d *Detector) IsSymbolInjection(value any) bool {
	return d.scanValue(value, d.symbolPatterns, "symbol")
}

// IsCommandInjection reports whether the input contains SQL command keywords
// (SELECT, DROP, UNION, ...) as whole words, case-insensitive. Recognized
// emails and numeric values are exempt. Slices are checked recursively.
func (d *Detector) IsCommandInjection(value any) bool {
	return d.scanValue(value, d.commandPatterns, "command")
}

// IsLogicGateInjection reports whether the input contains boolean-logic
// injection patterns (OR, AND, NOT, tautologies like 1=1) as whole words.
// Recognized emails and numeric values are exempt.
func (d *Detector) IsLogicGateInjection(value any) bool {
	return d.scanValue(value, d.logicGatePatterns, "logic_gate")
}

// IsSymbolOrCommandInjection combines the symbol and command checks in a
// single comprehensive pass.
func (d *Detector) IsSymbolOrCommandInjection(value any) bool {
	return d.IsSymbolInjection(value) || d.IsCommandInjection(value)
}

// IsSymbolOrLogicGateInjection combines the symbol and logic-gate checks.
func (d *Detector) IsSymbolOrLogicGateInjection(value any) bool {
	return d.IsSymbolInjection(value) || d.IsLogicGateInjection(value)
}

// IsCommandOrLogicGateInjection combines the command and logic-gate checks.
func (d *Detector) IsCommandOrLogicGateInjection(value any) bool {
	return d.IsCommandInjection(value) || d.IsLogicGateInjection(value)
}

// IsInjection runs every check family over the input and is the canonical
// entry point for untrusted values.
//
// Example:
//
//	d.IsInjection("user@example.com")                       // false
//	d.IsInjection("user@example.com; DROP TABLE users;")    // true
//	d.IsInjection("12345")                                  // false
func (d *Detector) IsInjection(value any) bool {
	return d.scanValue(value, d.allPatterns, "all")
}

// ContainsInjection walks arbitrarily nested values and reports whether any
// leaf triggers IsInjection. Accepts strings, numbers, nil, and slices of
// the same (including nested slices).
func (d *Detector) ContainsInjection(values ...any) bool {
	for _, value := range values {
		switch v := value.(type) {
		case nil:
			continue
		case []any:
			if d.ContainsInjection(v...) {
				return true
			}
		case []string:
			for _, s := range v {
				if d.IsInjection(s) {
					return true
				}
			}
		case [][]any:
			for _, row := range v {
				if d.ContainsInjection(row...) {
					return true
				}
			}
		default:
			if d.IsInjection(value) {
				return true
			}
		}
	}
	return false
}

// scanValue applies the shared exemption pipeline (nil, recursion, email,
// numeric, base64 quirk) and then scans against the given pattern family.
func (d *Detector) scanValue(value any, patterns []*regexp.Regexp, family string) bool {
	switch v := value.(type) {
	case nil:
		return false
	case []any:
		for _, item := range v {
			if d.scanValue(item, patterns, family) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if d.scanValue(item, patterns, family) {
				return true
			}
		}
		return false
	}

	s := scalarString(value)
	if d.isEmail(s) {
		d.logger.Debug("value recognized as e-mail, exempting", zap.String("family", family))
		return false
	}

	s = strings.ToLower(s)
	if d.numericPattern.MatchString(s) {
		return false
	}
	if strings.Contains(s, base64Marker) {
		return !isBase64(s)
	}

	return d.scanCompiled(s, patterns, family)
}

// scanCompiled matches the needle against a pattern family, honoring the
// known-safe patterns as a negative filter.
func (d *Detector) scanCompiled(needle string, patterns []*regexp.Regexp, family string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(needle) {
			if d.isSafePattern(needle) {
				return false
			}
			d.logger.Debug("injection pattern matched",
				zap.String("family", family),
				zap.String("pattern", pattern.String()),
			)
			return true
		}
	}
	return false
}

func (d *Detector) isSafePattern(s string) bool {
	for _, pattern := range d.safePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

var emailKVPattern = regexp.MustCompile(`^([^\s=]+)\s*=\s*(.+)$`)

// extractEmailCandidate strips an optional key='value' wrapper and symmetric
// outer quotes, returning the inner text when it holds exactly one "@" with
// no embedded whitespace. The extraction is anchored on the full input:
// anything after the closing quote or boundary leaks into the candidate and
// defeats the exemption, so a valid email followed by "; DROP TABLE" is not
// treated as an email.
func extractEmailCandidate(value string) (string, bool) {
	s := strings.TrimSpace(value)
	if m := emailKVPattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[2])
	}

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			s = s[1 : len(s)-1]
		}
	}

	if strings.ContainsAny(s, " \t\n\r") {
		return "", false
	}
	if strings.Count(s, "@") != 1 {
		return "", false
	}
	return s, true
}

// isEmail reports whether the value is a syntactically valid email address
// with a plausible top-level domain, possibly quoted or in key='value' form.
func (d *Detector) isEmail(value string) bool {
	if !strings.Contains(value, "@") {
		return false
	}

	candidate, ok := extractEmailCandidate(value)
	if !ok {
		return false
	}

	addr, err := mail.ParseAddress(candidate)
	if err != nil || addr.Address != candidate {
		return false
	}

	at := strings.LastIndex(candidate, "@")
	return d.domainPattern.MatchString(candidate[at+1:])
}

func isBase64(s string) bool {
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

// scalarString renders a scalar value for scanning. Non-string scalars keep
// their natural textual form so numeric exemptions apply to them too.
func scalarString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
