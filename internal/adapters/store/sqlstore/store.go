// Package sqlstore serves read-only request methods from the relational
// store. Each method is a named query whose params are bound by name.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
)

const (
	defaultMaxOpenConns = 10
	defaultConnMaxIdle  = 5 * time.Minute
)

// Store executes named queries against a *sql.DB.
type Store struct {
	db      *sql.DB
	queries map[string]Query
	log     logger.Logger
	maxOpen int
}

// Option configures a Store.
type Option func(*Store)

// WithQueries replaces the statement table.
func WithQueries(q map[string]Query) Option {
	return func(s *Store) {
		if q != nil {
			s.queries = q
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxOpenConns caps the pool size used by Open.
func WithMaxOpenConns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxOpen = n
		}
	}
}

// New wraps an existing handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		queries: DefaultQueries(),
		log:     logger.Nop(),
		maxOpen: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	s := New(db, opts...)
	db.SetMaxOpenConns(s.maxOpen)
	db.SetMaxIdleConns(s.maxOpen)
	db.SetConnMaxIdleTime(defaultConnMaxIdle)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return s, nil
}

// Methods lists the served method names, sorted.
func (s *Store) Methods() []string {
	out := make([]string, 0, len(s.queries))
	for name := range s.queries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether method is served.
func (s *Store) Has(method string) bool {
	_, ok := s.queries[method]
	return ok
}

// Query runs method with params and returns every row as a column map.
func (s *Store) Query(ctx context.Context, method string, params map[string]any) ([]map[string]any, error) {
	q, ok := s.queries[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuery, method)
	}

	args := Bind(q, params)
	rows, err := s.db.QueryContext(ctx, q.SQL, args...)
	if err != nil {
		metrics.RecordErrorByComponent("sqlstore", "query")
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, method, err)
	}
	defer func() { _ = rows.Close() }()

	out, err := scanRows(rows)
	if err != nil {
		metrics.RecordErrorByComponent("sqlstore", "scan")
		return nil, fmt.Errorf("%w: %s: %w", ErrQuery, method, err)
	}
	s.log.Debug(ctx, "query", logger.String("method", method), logger.Int("rows", len(out)))
	return out, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Bind maps named params to the positional args of q. Missing scalars bind
// as NULL; list params always bind as an array, empty when missing.
func Bind(q Query, params map[string]any) []any {
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		v := params[p.Name]
		if p.List {
			args[i] = pq.Array(toStrings(v))
			continue
		}
		args[i] = v
	}
	return args
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return t
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
