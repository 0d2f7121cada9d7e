package database

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
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

// unique_violation
const pqUniqueViolation = "23505"

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	exc *Exectuor
}

type Exectuor struct {
	DBTX
}

func NewStore(db *sql.DB) *Store {
	CurrentStore := &Store{
		db:  db,
		exc: NewExc(db),
	}
	return CurrentStore
}

func NewExc(dbtx DBTX) *Exectuor {
	return &Exectuor{DBTX: dbtx}
}

func (store *Store) BeginTx(ctx context.Context, opts *sql.TxOptions) (book.Repository, driver.Tx, error) {
	tx, err := store.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}

	txRepo := NewStore(store.db)
	txRepo.exc = NewExc(tx)
	return txRepo, tx, nil
}

/* Connects to the database trought a connection string and returns a pointer to a valid DB object (*sql.DB). */
func ConnectDb(ctx context.Context, connStr string) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to db, openning: %w", err)
	}

	err = sqlDB.PingContext(ctx)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to db, pingging: %w", err)
	}

	slog.Info("connected to postgres")
	return sqlDB, nil
}

func newMigrate(store *Store) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, err
	}

	driver, err := postgres.WithInstance(store.db, &postgres.Config{})
	if err != nil {
		return nil, err
	}

	return migrate.NewWithInstance("iofs", src, "postgres", driver)
}

/* Applies every pending migration. Being already up to date is not an error. */
func MigrationUp(store *Store) error {
	m, err := newMigrate(store)
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("postgres schema up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}
	return nil
}

func MigrationDown(store *Store) error {
	m, err := newMigrate(store)
	if err != nil {
		return fmt.Errorf("migrating down: %w", err)
	}

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating down: %w", err)
	}
	return nil
}

/* Stores the book into the database, checks and returns it if succeed. */
func (store *Store) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	sqlStatement := `
	INSERT INTO books (title, author, isbn)
	VALUES ($1, $2, $3)
	RETURNING id, title, author, isbn`
	createdRow := store.exc.QueryRowContext(ctx, sqlStatement, bookEntry.Title, bookEntry.Author, bookEntry.ISBN)
	var bookToReturn book.Book
	err := createdRow.Scan(&bookToReturn.ID, &bookToReturn.Title, &bookToReturn.Author, &bookToReturn.ISBN)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return book.Book{}, fmt.Errorf("storing book on db: %w", book.ErrDuplicateISBN)
		}
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	return bookToReturn, nil
}

/* Searches a book in database based on ID and returns it if succeed. */
func (store *Store) GetBookByID(ctx context.Context, id int64) (book.Book, bool, error) {
	sqlStatement := `SELECT id, title, author, isbn
	FROM books
	WHERE id=$1;`
	foundRow := store.exc.QueryRowContext(ctx, sqlStatement, id)
	var bookToReturn book.Book
	err := foundRow.Scan(&bookToReturn.ID, &bookToReturn.Title, &bookToReturn.Author, &bookToReturn.ISBN)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, false, nil
		default:
			return book.Book{}, false, fmt.Errorf("searching by ID: %w", err)
		}
	}

	return bookToReturn, true, nil
}

func (store *Store) BookExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := store.exc.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id=$1);`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking book on db: %w", err)
	}
	return exists, nil
}

/* Rewrites title and author, id and isbn are kept. */
func (store *Store) UpdateBook(ctx context.Context, id int64, title, author string) (book.Book, bool, error) {
	sqlStatement := `
	UPDATE books
	SET title = $2, author = $3
	WHERE id = $1
	RETURNING id, title, author, isbn`
	updatedRow := store.exc.QueryRowContext(ctx, sqlStatement, id, title, author)
	var bookToReturn book.Book
	err := updatedRow.Scan(&bookToReturn.ID, &bookToReturn.Title, &bookToReturn.Author, &bookToReturn.ISBN)
	if err != nil {
		switch err {
		case sql.ErrNoRows:
			return book.Book{}, false, nil
		default:
			return book.Book{}, false, fmt.Errorf("updating on db: %w", err)
		}
	}

	return bookToReturn, true, nil
}

func (store *Store) DeleteBook(ctx context.Context, id int64) (bool, error) {
	result, err := store.exc.ExecContext(ctx, `DELETE FROM books WHERE id=$1;`, id)
	if err != nil {
		return false, fmt.Errorf("deleting on db: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting on db: %w", err)
	}
	return affected > 0, nil
}

/* Returns one page of books in the requested order plus how many books there are. */
func (store *Store) ListBooks(ctx context.Context, q book.ListQuery) ([]book.Book, int, error) {
	sqlStatement := fmt.Sprint(`SELECT id, title, author, isbn FROM books
	ORDER BY `, orderBy(q.SortBy, q.SortDirection), `
	LIMIT $1 OFFSET $2;`)

	books, err := store.queryBooks(ctx, sqlStatement, q.PageSize, q.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("listing books from db: %w", err)
	}

	var count int
	err = store.exc.QueryRowContext(ctx, `SELECT COUNT(*) FROM books;`).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("counting books from db: %w", err)
	}

	return books, count, nil
}

/* Case insensitive substring match on title and author. An empty filter matches every row. */
func (store *Store) SearchBooks(ctx context.Context, q book.SearchQuery) ([]book.Book, int, error) {
	title := likePattern(q.Title)
	author := likePattern(q.Author)

	filter := `WHERE LOWER(title) LIKE LOWER($1) AND LOWER(author) LIKE LOWER($2)`

	books, err := store.queryBooks(ctx, `SELECT id, title, author, isbn FROM books
	`+filter+`
	ORDER BY id ASC
	LIMIT $3 OFFSET $4;`, title, author, q.PageSize, q.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("searching books on db: %w", err)
	}

	var count int
	err = store.exc.QueryRowContext(ctx, `SELECT COUNT(*) FROM books `+filter+`;`, title, author).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("counting books from db: %w", err)
	}

	return books, count, nil
}

func (store *Store) queryBooks(ctx context.Context, sqlStatement string, args ...any) ([]book.Book, error) {
	rows, err := store.exc.QueryContext(ctx, sqlStatement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookslist := []book.Book{}
	var bookToReturn book.Book
	for rows.Next() {
		err = rows.Scan(&bookToReturn.ID, &bookToReturn.Title, &bookToReturn.Author, &bookToReturn.ISBN)
		if err != nil {
			return nil, err
		}
		bookslist = append(bookslist, bookToReturn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookslist, nil
}

var sortColumns = map[string]string{
	"id":     "id",
	"title":  "title",
	"author": "author",
	"isbn":   "isbn",
}

/* Builds the ORDER BY clause from known columns only, falling back to id ascending. */
func orderBy(sortBy, sortDirection string) string {
	column, ok := sortColumns[sortBy]
	if !ok {
		column = "id"
	}
	direction := "ASC"
	if sortDirection == "desc" {
		direction = "DESC"
	}
	if column == "id" {
		return "id " + direction
	}
	return column + " " + direction + ", id ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

/* Wraps the text in wildcards, escaping the ones the user typed. */
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
