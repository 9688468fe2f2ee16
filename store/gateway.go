package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/scouting/core/coreerr"
)

// Config carries the subset of the core's configuration the Store Gateway
// needs to open a connection pool. Kept separate from config.Config so this
// package never imports the composition root.
type Config struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolSize int
	TimeoutMS int
}

// leadingKeywordRE extracts a template's first keyword, which must be a
// projection keyword. mutationKeywords is the statement-text inspection
// layer: any of these appearing anywhere in a template as a whole word is
// rejected, case-insensitively. Whole-word matching means e.g. a column
// literally named "update_count" in a SELECT list is unaffected.
var leadingKeywordRE = regexp.MustCompile(`(?i)^\s*([a-zA-Z]+)`)

var mutationKeywords = map[string]bool{
	"insert": true, "update": true, "delete": true, "drop": true,
	"alter": true, "truncate": true, "create": true, "grant": true,
	"revoke": true, "copy": true, "merge": true, "call": true,
	"execute": true, "vacuum": true, "comment": true,
}

var projectionKeywords = map[string]bool{
	"select": true, "with": true,
}

// checkStatement enforces the statement-level check described in the system
// design: the template must begin with a projection keyword and must not
// contain a mutation keyword anywhere in its text, including any statement
// after a semicolon.
func checkStatement(template string) error {
	trimmed := strings.TrimSpace(template)
	if trimmed == "" {
		return coreerr.NewForbiddenStatementError(template, "empty statement")
	}
	m := leadingKeywordRE.FindStringSubmatch(trimmed)
	if m == nil {
		return coreerr.NewForbiddenStatementError(template, "no leading keyword")
	}
	leading := strings.ToLower(m[1])
	if !projectionKeywords[leading] {
		return coreerr.NewForbiddenStatementError(template, fmt.Sprintf("leading keyword %q is not a projection", leading))
	}

	lower := strings.ToLower(trimmed)
	for kw := range mutationKeywords {
		if containsWord(lower, kw) {
			return coreerr.NewForbiddenStatementError(template, fmt.Sprintf("contains mutation keyword %q", kw))
		}
	}
	return nil
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], word)
		if pos < 0 {
			return false
		}
		pos += idx
		before := pos == 0 || !isIdentChar(haystack[pos-1])
		after := pos+len(word) >= len(haystack) || !isIdentChar(haystack[pos+len(word)])
		if before && after {
			return true
		}
		idx = pos + len(word)
	}
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// Table is the typed tabular result of a Fetch. Rows are returned in query
// order; callers must not assume more than what is present in Rows.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows in the table.
func (t *Table) Len() int { return len(t.Rows) }

// SchemaDescriptor describes the tables and columns known to the Gateway,
// used by the Catalogue's startup self-check.
type SchemaDescriptor struct {
	Tables map[string][]string // table name -> column names
}

// HasColumn reports whether table.column is known to the schema.
func (s *SchemaDescriptor) HasColumn(table, column string) bool {
	cols, ok := s.Tables[table]
	if !ok {
		return false
	}
	for _, c := range cols {
		if c == column {
			return true
		}
	}
	return false
}

// Gateway is the only component that speaks SQL. It provides parameterised
// projections and schema metadata over a bounded, read-only connection pool.
type Gateway struct {
	db      *gorm.DB
	timeout time.Duration
}

// Open establishes the connection pool described by cfg. The session is
// configured read-only at connection time as a defensive layer in addition
// to the statement-text check performed by every Fetch call.
func Open(cfg Config) (*Gateway, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable default_transaction_read_only=on",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, coreerr.NewStoreUnavailableError("open", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, coreerr.NewStoreUnavailableError("open", err)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	sqlDB.SetMaxOpenConns(poolSize)
	sqlDB.SetMaxIdleConns(poolSize / 2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, coreerr.NewStoreUnavailableError("ping", err)
	}

	timeoutMS := cfg.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}

	log.Println("store gateway connected")

	return &Gateway{db: gdb, timeout: time.Duration(timeoutMS) * time.Millisecond}, nil
}

// Close releases the connection pool.
func (g *Gateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the underlying *gorm.DB for use by the store package's
// Repository. Queries issued through it bypass Fetch's statement check.
func (g *Gateway) DB() *gorm.DB { return g.db }

// Fetch executes a parameterised projection and returns a typed Table. The
// template must begin with SELECT or WITH and must not contain any mutation
// keyword; parameters are bound by name via gorm's named-argument binding,
// never by string interpolation.
func (g *Gateway) Fetch(ctx context.Context, template string, params map[string]any) (*Table, error) {
	if err := checkStatement(template); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	tx := g.db.WithContext(ctx)
	rows, err := tx.Raw(template, namedArgs(params)).Rows()
	if err != nil {
		if ctx.Err() != nil {
			return nil, coreerr.NewTimeoutError("store.fetch")
		}
		return nil, coreerr.NewStoreUnavailableError("fetch", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, coreerr.NewStoreUnavailableError("fetch.columns", err)
	}

	table := &Table{Columns: cols}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, coreerr.NewStoreUnavailableError("fetch.scan", err)
		}
		table.Rows = append(table.Rows, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.NewStoreUnavailableError("fetch.rows", err)
	}
	return table, nil
}

// namedArgs converts a name->value map to a sql.Named argument list, bound by
// name rather than by position or string interpolation.
func namedArgs(params map[string]any) []any {
	args := make([]any, 0, len(params))
	for name, value := range params {
		args = append(args, sql.Named(name, value))
	}
	return args
}

// Schema returns table and column names known to the Gateway, used by the
// Catalogue's self-check at startup.
func (g *Gateway) Schema(ctx context.Context) (*SchemaDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	rows, err := g.db.WithContext(ctx).Raw(`
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position
	`).Rows()
	if err != nil {
		return nil, coreerr.NewStoreUnavailableError("schema", err)
	}
	defer rows.Close()

	desc := &SchemaDescriptor{Tables: make(map[string][]string)}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, coreerr.NewStoreUnavailableError("schema.scan", err)
		}
		desc.Tables[table] = append(desc.Tables[table], column)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.NewStoreUnavailableError("schema.rows", err)
	}
	return desc, nil
}
