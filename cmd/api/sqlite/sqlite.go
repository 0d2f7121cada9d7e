// Package sqlite keeps the catalog in a single SQLite file, for running the
// service without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/books-catalog/cmd/api/book"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	modsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite's own lower() folds ASCII letters only.
const lowerFunc = "unicode_lower"

func init() {
	if err := modsqlite.RegisterDeterministicScalarFunction(lowerFunc, 1, unicodeLower); err != nil {
		panic(fmt.Sprintf("registering %s: %v", lowerFunc, err))
	}
}

func unicodeLower(ctx *modsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unexpected argument type %T", lowerFunc, v)
	}
}

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	exc DBTX
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, exc: db}
}

/* Opens the database file, ":memory:" keeps it in memory. Writes are serialized over one connection. */
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection also keeps a ":memory:" database alive
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	slog.Info("opened sqlite database", "path", path)
	return db, nil
}

/* Applies every pending migration. Being already up to date is not an error. */
func MigrationUp(store *Store) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	driver, err := migratesqlite.WithInstance(store.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating up: %w", err)
	}
	return nil
}

func (store *Store) BeginTx(ctx context.Context, opts *sql.TxOptions) (book.Repository, driver.Tx, error) {
	tx, err := store.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &Store{db: store.db, exc: tx}, tx, nil
}

func (store *Store) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	row := store.exc.QueryRowContext(ctx, `
	INSERT INTO books (title, author, isbn)
	VALUES (?, ?, ?)
	RETURNING id, title, author, isbn`, bookEntry.Title, bookEntry.Author, bookEntry.ISBN)

	var created book.Book
	err := row.Scan(&created.ID, &created.Title, &created.Author, &created.ISBN)
	if err != nil {
		if isUniqueViolation(err) {
			return book.Book{}, fmt.Errorf("storing book on db: %w", book.ErrDuplicateISBN)
		}
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}
	return created, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *modsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// primary result code only, the message tells which constraint failed
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}

func (store *Store) GetBookByID(ctx context.Context, id int64) (book.Book, bool, error) {
	row := store.exc.QueryRowContext(ctx, `SELECT id, title, author, isbn FROM books WHERE id = ?`, id)

	var found book.Book
	err := row.Scan(&found.ID, &found.Title, &found.Author, &found.ISBN)
	if errors.Is(err, sql.ErrNoRows) {
		return book.Book{}, false, nil
	}
	if err != nil {
		return book.Book{}, false, fmt.Errorf("searching by ID: %w", err)
	}
	return found, true, nil
}

func (store *Store) BookExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := store.exc.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking book on db: %w", err)
	}
	return exists, nil
}

func (store *Store) UpdateBook(ctx context.Context, id int64, title, author string) (book.Book, bool, error) {
	row := store.exc.QueryRowContext(ctx, `
	UPDATE books SET title = ?, author = ?
	WHERE id = ?
	RETURNING id, title, author, isbn`, title, author, id)

	var updated book.Book
	err := row.Scan(&updated.ID, &updated.Title, &updated.Author, &updated.ISBN)
	if errors.Is(err, sql.ErrNoRows) {
		return book.Book{}, false, nil
	}
	if err != nil {
		return book.Book{}, false, fmt.Errorf("updating on db: %w", err)
	}
	return updated, true, nil
}

func (store *Store) DeleteBook(ctx context.Context, id int64) (bool, error) {
	result, err := store.exc.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting on db: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting on db: %w", err)
	}
	return affected > 0, nil
}

func (store *Store) ListBooks(ctx context.Context, q book.ListQuery) ([]book.Book, int, error) {
	books, err := store.queryBooks(ctx, `SELECT id, title, author, isbn FROM books
	ORDER BY `+orderBy(q.SortBy, q.SortDirection)+`
	LIMIT ? OFFSET ?`, q.PageSize, q.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing books from db: %w", err)
	}

	var count int
	if err := store.exc.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("counting books from db: %w", err)
	}
	return books, count, nil
}

func (store *Store) SearchBooks(ctx context.Context, q book.SearchQuery) ([]book.Book, int, error) {
	title := strings.ToLower(likePattern(q.Title))
	author := strings.ToLower(likePattern(q.Author))

	filter := `WHERE ` + lowerFunc + `(title) LIKE ? ESCAPE '\' AND ` + lowerFunc + `(author) LIKE ? ESCAPE '\'`

	books, err := store.queryBooks(ctx, `SELECT id, title, author, isbn FROM books `+filter+`
	ORDER BY id ASC
	LIMIT ? OFFSET ?`, title, author, q.PageSize, q.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("searching books on db: %w", err)
	}

	var count int
	if err := store.exc.QueryRowContext(ctx, `SELECT COUNT(*) FROM books `+filter, title, author).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("counting books from db: %w", err)
	}
	return books, count, nil
}

func (store *Store) queryBooks(ctx context.Context, query string, args ...any) ([]book.Book, error) {
	rows, err := store.exc.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []book.Book{}
	for rows.Next() {
		var b book.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func orderBy(sortBy, sortDirection string) string {
	direction := "ASC"
	if sortDirection == "desc" {
		direction = "DESC"
	}

	switch sortBy {
	case "title", "author", "isbn":
		return sortBy + " " + direction + ", id ASC"
	default:
		return "id " + direction
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
