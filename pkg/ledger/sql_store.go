package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Dialect selects the placeholder syntax of the target database.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLStore implements Store using database/sql.
// It supports both Postgres and SQLite via standard drivers.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

const schema = `
CREATE TABLE IF NOT EXISTS colony_journal (
	sequence BIGINT PRIMARY KEY,
	id TEXT NOT NULL,
	kind TEXT NOT NULL,
	colony TEXT NOT NULL,
	author TEXT NOT NULL,
	data TEXT NOT NULL,
	prev_hash TEXT NOT NULL,
	content_hash TEXT NOT NULL UNIQUE,
	created_unix_nano BIGINT NOT NULL
);
`

func (s *SQLStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create journal table: %w", err)
	}
	return nil
}

// bind rewrites $n placeholders for dialects that use '?'.
func (s *SQLStore) bind(query string) string {
	if s.dialect != DialectSQLite {
		return query
	}
	for i := 9; i >= 1; i-- {
		query = strings.ReplaceAll(query, fmt.Sprintf("$%d", i), "?")
	}
	return query
}

const selectColumns = `SELECT sequence, id, kind, colony, author, data, prev_hash, content_hash, created_unix_nano FROM colony_journal`

func (s *SQLStore) Append(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO colony_journal (sequence, id, kind, colony, author, data, prev_hash, content_hash, created_unix_nano)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, s.bind(query),
		int64(e.Sequence), e.ID, e.Kind, e.Colony, e.Author, string(e.Data), e.PrevHash, e.ContentHash, e.Timestamp.UnixNano(),
	)
	return err
}

func (s *SQLStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY sequence ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLStore) Last(ctx context.Context) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` ORDER BY sequence DESC LIMIT 1`)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e    Entry
		seq  int64
		data string
		nano int64
	)
	if err := row.Scan(&seq, &e.ID, &e.Kind, &e.Colony, &e.Author, &data, &e.PrevHash, &e.ContentHash, &nano); err != nil {
		return Entry{}, err
	}
	e.Sequence = uint64(seq)
	e.Data = []byte(data)
	e.Timestamp = time.Unix(0, nano).UTC()
	return e, nil
}
