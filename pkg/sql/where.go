package sql

import (
	"regexp"
	"strings"

	"github.com/asperguide/catfeeder-backend/pkg/apperrors"
)

// whereTokenPattern splits a WHERE clause into quoted strings, comparison
// operators, parentheses, commas, predicate keywords, identifiers, and
// numeric literals. Quoted alternatives admit the SQL-standard doubled
// quote ('it''s' is one literal). Alternation order matters: multi-character
// operators must be tried before "=", "<" and ">".
var whereTokenPattern = regexp.MustCompile(
	`'(?:[^']|'')*'|"(?:[^"]|"")*"|<=|>=|!=|=|<|>|\(|\)|,|(?i:\bAND\b|\bOR\b|\bIN\b|\bLIKE\b|\bIS\b|\bNOT\b)|[A-Za-z_][A-Za-z0-9_]*|-?\d+(?:\.\d+)?`,
)

var whereDigitPattern = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

var whereIdentifierPattern = regexp.MustCompile("^`?[A-Za-z_][A-Za-z0-9_]*`?$")

// placeholderThenIdentifier catches a rebuilt clause where a parameter is
// immediately followed by a backticked identifier, a shape no legitimate
// expression produces.
var placeholderThenIdentifier = regexp.MustCompile(`\` + Placeholder + `\s+` + "`[^`]+`")

var whereSafeTokens = map[string]struct{}{
	"(": {}, ")": {}, ",": {},
	"OR": {}, "AND": {}, "NOT": {}, "IS": {}, "IN": {}, "LIKE": {},
	"=": {}, "!=": {}, "<": {}, ">": {}, "<=": {}, ">=": {},
	"NULL": {}, "TRUE": {}, "FALSE": {},
}

var (
	whereNoSpaceAfter   = map[string]struct{}{"(": {}}
	whereNoSpaceBefore  = map[string]struct{}{")": {}, ",": {}}
	whereTightOperators = map[string]struct{}{"=": {}, "!=": {}, "<": {}, ">": {}, "<=": {}, ">=": {}}
)

func tokenizeWhere(clause string) []string {
	return whereTokenPattern.FindAllString(clause, -1)
}

func isWhereDigit(token string) bool {
	return whereDigitPattern.MatchString(token)
}

func isQuoted(value string) bool {
	if len(value) < 2 {
		return false
	}
	first, last := value[0], value[len(value)-1]
	return first == last && (first == '\'' || first == '"')
}

// unquoteWhereLiteral strips the outer quotes of a quoted token and folds
// SQL-standard doubled quotes back to one, so 'it''s' binds as it's.
// Unquoted tokens pass through untouched.
func unquoteWhereLiteral(token string) string {
	if len(token) < 2 {
		return token
	}
	quote := token[0]
	if token[len(token)-1] != quote || (quote != '\'' && quote != '"') {
		return token
	}
	inner := token[1 : len(token)-1]
	doubled := string([]byte{quote, quote})
	return strings.ReplaceAll(inner, doubled, string(quote))
}

// escapeRiskyWhereColumn backticks identifier tokens that collide with
// reserved words, leaving predicate keywords alone.
func escapeRiskyWhereColumn(token string) string {
	lower := strings.ToLower(token)
	if !isLogicGateKeyword(lower) && isRiskyKeyword(lower) {
		return "`" + token + "`"
	}
	return token
}

// checkWhereToken validates a single token. Injected content inside a
// column segment is a structural failure: the clause was assembled wrong
// upstream, so this is a hard abort, not an input-validation sentinel.
func (b *QueryBoilerplates) checkWhereToken(token string) error {
	raw := strings.TrimSpace(token)
	upper := strings.ToUpper(raw)

	if strings.HasPrefix(raw, "`") && strings.HasSuffix(raw, "`") {
		return nil
	}
	if _, ok := whereSafeTokens[upper]; ok {
		return nil
	}
	if isWhereDigit(raw) {
		return nil
	}
	if isQuoted(raw) {
		return nil
	}

	if b.injection.IsSymbolOrCommandInjection(strings.Trim(raw, `'"`)) {
		return apperrors.ErrInjectionDetected
	}
	return nil
}

// whereSpaceHandler decides spacing while the clause is rebuilt. Purely
// cosmetic; returns whether the next token skips its leading space.
func whereSpaceHandler(token string, rebuilt *[]string, skipSpace bool) bool {
	if _, ok := whereNoSpaceBefore[token]; skipSpace || len(*rebuilt) == 0 || ok {
		return false
	}
	if _, ok := whereNoSpaceAfter[token]; ok {
		*rebuilt = append(*rebuilt, " ")
		return true
	}
	if _, ok := whereTightOperators[token]; ok {
		return true
	}
	*rebuilt = append(*rebuilt, " ")
	return false
}

// sanityCheckWhereClause inspects the rebuilt clause for injection shapes
// that survive tokenization.
func sanityCheckWhereClause(clause string) error {
	if strings.Count(clause, "(") != strings.Count(clause, ")") {
		return apperrors.ErrInjectionDetected
	}
	if placeholderThenIdentifier.MatchString(clause) {
		return apperrors.ErrInjectionDetected
	}
	return nil
}

// parameterizeClause validates one clause and rewrites its literal values
// into placeholders, returning the rebuilt clause and the extracted values.
func (b *QueryBoilerplates) parameterizeClause(clause string) (string, []any, error) {
	tokens := tokenizeWhere(clause)

	var params []any
	var rebuilt []string
	skipSpace := false
	prevWasValue := false

	// Reserved words are only escapable where a column can appear: at the
	// clause start or after a connective. Anywhere else a command keyword
	// is treated as hostile, not as an identifier to rescue.
	expectColumn := true

	for _, token := range tokens {
		isValue := isWhereDigit(token) || isQuoted(token)
		if !isValue && expectColumn {
			token = escapeRiskyWhereColumn(token)
		}
		if err := b.checkWhereToken(token); err != nil {
			b.logger.Error("SQL injection detected in WHERE token")
			return "", nil, err
		}

		// An identifier directly after a literal means a quoted payload
		// swallowed part of the clause. No legitimate expression has
		// that shape.
		if prevWasValue && !isValue && whereIdentifierPattern.MatchString(token) {
			if _, keyword := whereSafeTokens[strings.ToUpper(token)]; !keyword {
				b.logger.Error("SQL injection detected in WHERE token")
				return "", nil, apperrors.ErrInjectionDetected
			}
		}
		prevWasValue = isValue

		switch strings.ToUpper(token) {
		case "AND", "OR", "NOT", "(":
			expectColumn = true
		default:
			expectColumn = false
		}

		skipSpace = whereSpaceHandler(token, &rebuilt, skipSpace)

		if isValue {
			params = append(params, b.sanitizer.NormalizeCell(unquoteWhereLiteral(token)))
			rebuilt = append(rebuilt, Placeholder)
		} else {
			rebuilt = append(rebuilt, token)
		}
	}

	rebuiltClause := strings.Join(rebuilt, "")
	if err := sanityCheckWhereClause(rebuiltClause); err != nil {
		return "", nil, err
	}
	return rebuiltClause, params, nil
}

// parseWhereClause parses and parameterizes a WHERE clause.
//
// Each clause is validated for injection, simple literals are rewritten as
// placeholders, and reserved-word column names are backtick-escaped while
// logical operators stay untouched. Multiple clauses join with " AND ",
// preserving left-to-right value order. Empty input yields ("", nil) and
// never fails. The returned template always holds exactly one placeholder
// per returned parameter.
func (b *QueryBoilerplates) parseWhereClause(where []string) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	var params []any
	parsed := make([]string, 0, len(where))

	for _, clause := range where {
		rebuilt, clauseParams, err := b.parameterizeClause(strings.TrimSpace(clause))
		if err != nil {
			return "", nil, err
		}
		parsed = append(parsed, rebuilt)
		params = append(params, clauseParams...)
	}

	return strings.Join(parsed, " AND "), params, nil
}
