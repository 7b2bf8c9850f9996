package sql

// Process-wide status sentinels. The orchestrator returns these instead of
// surfacing errors to less-trusted callers; callers must compare against
// them before treating a result as usable data.
const (
	Success = 0
	Failure = 84

	// GetTableSizeError is the method-specific sentinel for GetTableSize,
	// distinct from any valid row count.
	GetTableSizeError = -1
)

// SQL date formats used when resolving symbolic time keywords.
const (
	DateOnlyFormat    = "2006-01-02"
	DateAndTimeFormat = "2006-01-02 15:04:05"
)

// Placeholder is the positional parameter marker used in generated query
// templates, matching the MySQL-family driver convention.
const Placeholder = "?"

// riskyKeywords lists MySQL/MariaDB reserved words. Column names colliding
// with one of these are wrapped in backticks before being embedded in a
// statement. Lowercase on purpose; lookups lowercase the candidate first.
var riskyKeywords = map[string]struct{}{}

func init() {
	for _, kw := range riskyKeywordList {
		riskyKeywords[kw] = struct{}{}
	}
	for _, kw := range keywordLogicGates {
		logicGateKeywords[kw] = struct{}{}
	}
}

var riskyKeywordList = []string{
	"add", "all", "alter", "analyze", "and", "as", "asc", "asensitive", "before", "between",
	"bigint", "binary", "blob", "both", "by", "call", "cascade", "case", "change", "char",
	"character", "check", "collate", "column", "condition", "constraint", "continue",
	"convert", "create", "cross", "current_date", "current_time", "current_timestamp",
	"cursor", "database", "databases", "day_hour", "day_microsecond", "day_minute",
	"day_second", "dec", "decimal", "declare", "default", "delayed", "delete", "desc",
	"describe", "deterministic", "distinct", "distinctrow", "div", "double", "drop",
	"dual", "each", "else", "elseif", "enclosed", "escaped", "exists", "exit", "explain",
	"false", "fetch", "float", "for", "force", "foreign", "from", "fulltext", "general",
	"grant", "group", "having", "high_priority", "hour_microsecond", "hour_minute",
	"hour_second", "if", "ignore", "in", "index", "infile", "inner", "inout",
	"insensitive", "insert", "int", "integer", "interval", "into", "is", "iterate", "join",
	"key", "keys", "kill", "leading", "leave", "left", "like", "limit", "linear", "lines",
	"load", "localtime", "localtimestamp", "lock", "long", "longblob", "longtext", "loop",
	"low_priority", "master_ssl_verify_server_cert", "match", "maxvalue", "mediumblob",
	"mediumint", "mediumtext", "middleint", "minute_microsecond", "minute_second", "mod",
	"modifies", "natural", "not", "no_write_to_binlog", "null", "numeric", "on", "optimize",
	"option", "optionally", "or", "order", "out", "outer", "outfile", "precision", "primary",
	"procedure", "purge", "range", "read", "reads", "read_write", "real", "references",
	"regexp", "release", "rename", "repeat", "replace", "require", "resignal", "restrict",
	"return", "revoke", "right", "rlike", "schema", "schemas", "second_microsecond",
	"select", "sensitive", "separator", "set", "show", "signal", "smallint", "spatial",
	"specific", "sql", "sqlexception", "sqlstate", "sqlwarning", "sql_big_result",
	"sql_calc_found_rows", "sql_small_result", "ssl", "starting", "stored", "straight_join",
	"table", "terminated", "then", "tinyblob", "tinyint", "tinytext", "to", "trailing",
	"trigger", "true", "undo", "union", "unique", "unlock", "unsigned", "update", "usage",
	"use", "using", "utc_date", "utc_time", "utc_timestamp", "values", "varbinary",
	"varchar", "varcharacter", "varying", "virtual", "when", "where", "while", "with",
	"write", "xor", "year_month", "zerofill",
}

// keywordLogicGates lists tokens that act as logical operators or predicate
// keywords inside a WHERE clause. They are never backtick-escaped even when
// they also appear in riskyKeywords.
var keywordLogicGates = []string{
	"and", "or", "not", "xor", "between", "in", "is", "like", "regexp", "rlike", "null",
	"true", "false", "exists", "distinct", "limit", "having", "join", "union",
	"current_date", "current_time", "current_timestamp", "utc_date", "utc_time",
	"utc_timestamp", "mod", "if",
}

var logicGateKeywords = map[string]struct{}{}

// commandKeywords are the SQL command words the injection detector flags when
// found as whole words inside untrusted input. Deliberately narrower than
// riskyKeywords: the detector screens hostile payloads, the risky list covers
// identifier escaping.
var commandKeywords = []string{
	"select", "insert", "update", "delete", "drop", "create", "alter", "table",
	"union", "join", "where", "truncate", "show", "describe", "grant", "revoke", "exec",
}

// riskyTriggerDDLKeywords are substrings refused inside CREATE TRIGGER bodies.
var riskyTriggerDDLKeywords = []string{
	"drop ", "alter ", "truncate ", "create database",
	"use ", "grant ", "revoke ", "load data", "outfile", "infile",
}

func isRiskyKeyword(word string) bool {
	_, ok := riskyKeywords[word]
	return ok
}

func isLogicGateKeyword(word string) bool {
	_, ok := logicGateKeywords[word]
	return ok
}
