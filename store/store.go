package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/walletchat/walletchat/internal/llm"
)

// User of the assistant, keyed by wallet address. Created lazily on
// first contact, never deleted.
type User struct {
	ID                string
	Email             string
	Name              string
	CreationTimestamp int64
}

// Chat is a conversation thread owned by one user.
type Chat struct {
	ID                string
	UserID            string
	CreationTimestamp int64
}

// Message is one append-only record of a chat. A single record may
// bundle multiple role/content pairs.
type Message struct {
	ID                string
	ChatID            string
	UserID            string
	Content           []*llm.Message
	Sequence          int64
	CreationTimestamp int64
}

// Store implements a relational store for users, chats and messages,
// backed by either sqlite or postgres.
type Store struct {
	db     *sql.DB
	driver string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	creation_timestamp INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	creation_timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_user_id ON chats(user_id);

CREATE TABLE IF NOT EXISTS messages (
	sequence INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	chat_id TEXT NOT NULL REFERENCES chats(id),
	user_id TEXT NOT NULL REFERENCES users(id),
	content TEXT NOT NULL,
	creation_timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	creation_timestamp BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS chats (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	creation_timestamp BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chats_user_id ON chats(user_id);

CREATE TABLE IF NOT EXISTS messages (
	sequence BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	chat_id TEXT NOT NULL REFERENCES chats(id),
	user_id TEXT NOT NULL REFERENCES users(id),
	content TEXT NOT NULL,
	creation_timestamp BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat_id ON messages(chat_id);
`

// New store. Driver is "sqlite" or "postgres"; dsn is a file path or a
// connection URL respectively.
func New(driver, dsn string) (*Store, error) {
	var db *sql.DB
	var err error
	var schema string
	switch driver {
	case "sqlite":
		if dir := filepath.Dir(sqliteFilePath(dsn)); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, errors.Wrap(err, "creating database directory")
			}
		}
		// Foreign keys are off by default in sqlite.
		separator := "?"
		if strings.ContainsRune(dsn, '?') {
			separator = "&"
		}
		db, err = sql.Open("sqlite", dsn+separator+"_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
		schema = sqliteSchema
	case "postgres":
		db, err = sql.Open("pgx", dsn)
		schema = postgresSchema
	default:
		return nil, errors.Errorf("unknown driver (%s)", driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "creating schema")
	}

	return &Store{db: db, driver: driver}, nil
}

// sqliteFilePath strips the URI scheme and query parameters a sqlite
// DSN may carry, leaving the bare file path.
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// rebind converts ?-style placeholders to the driver's form.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var out []byte
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, '$')
			out = appendInt(out, n)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

func appendInt(b []byte, n int) []byte {
	if n >= 10 {
		b = appendInt(b, n/10)
	}
	return append(b, byte('0'+n%10))
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
