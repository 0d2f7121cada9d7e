package inmemory

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/books-catalog/cmd/api/book"
	"github.com/hashicorp/go-memdb"
)

const tableBook = "book"

type InMemoryStore struct {
	db     *memdb.MemDB
	lastID *atomic.Int64
	exc    *memdb.Txn // set only on stores returned by BeginTx
}

func NewInMemoryStore() (*InMemoryStore, error) {
	// Define the schema
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableBook: {
				Name: tableBook,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					"isbn": {
						Name:    "isbn",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ISBN"},
					},
				},
			},
		},
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("validating in-memory schema: %w", err)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	slog.Debug("in-memory store ready")
	return &InMemoryStore{db: db, lastID: &atomic.Int64{}}, nil
}

/* Returns the transaction bound to the store, or a fresh one plus the func that ends it. */
func (store *InMemoryStore) txn(write bool) (txn *memdb.Txn, done func()) {
	if store.exc != nil { //It means this method is being called inside a larger transaction.
		return store.exc, func() {}
	}
	txn = store.db.Txn(write)
	if !write {
		return txn, txn.Abort
	}
	return txn, func() {
		txn.Commit()
	}
}

func (store *InMemoryStore) CreateBook(ctx context.Context, bookEntry book.Book) (book.Book, error) {
	if err := ctx.Err(); err != nil {
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	txn, done := store.txn(true)

	taken, err := txn.First(tableBook, "isbn", bookEntry.ISBN)
	if err != nil {
		store.abort(txn)
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}
	if taken != nil {
		store.abort(txn)
		return book.Book{}, fmt.Errorf("storing book on db: %w", book.ErrDuplicateISBN)
	}

	bookEntry.ID = store.lastID.Add(1)
	if err := txn.Insert(tableBook, bookEntry); err != nil {
		store.abort(txn)
		return book.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	done()
	return bookEntry, nil
}

/* Discards a failed write unless it belongs to a caller's transaction, whose owner decides. */
func (store *InMemoryStore) abort(txn *memdb.Txn) {
	if store.exc == nil {
		txn.Abort()
	}
}

func (store *InMemoryStore) GetBookByID(ctx context.Context, id int64) (book.Book, bool, error) {
	txn, done := store.txn(false)
	defer done()

	raw, err := txn.First(tableBook, "id", id)
	if err != nil {
		return book.Book{}, false, fmt.Errorf("searching by ID: %w", err)
	}
	if raw == nil {
		return book.Book{}, false, nil
	}

	return raw.(book.Book), true, nil
}

func (store *InMemoryStore) BookExists(ctx context.Context, id int64) (bool, error) {
	_, found, err := store.GetBookByID(ctx, id)
	return found, err
}

func (store *InMemoryStore) UpdateBook(ctx context.Context, id int64, title, author string) (book.Book, bool, error) {
	txn, done := store.txn(true)

	raw, err := txn.First(tableBook, "id", id)
	if err != nil {
		store.abort(txn)
		return book.Book{}, false, fmt.Errorf("updating book on db: %w", err)
	}
	if raw == nil {
		store.abort(txn)
		return book.Book{}, false, nil
	}

	updatedBook := raw.(book.Book)
	updatedBook.Title = title
	updatedBook.Author = author
	//ID and ISBN will not change

	if err := txn.Insert(tableBook, updatedBook); err != nil {
		store.abort(txn)
		return book.Book{}, false, fmt.Errorf("updating book on db: %w", err)
	}

	done()
	return updatedBook, true, nil
}

func (store *InMemoryStore) DeleteBook(ctx context.Context, id int64) (bool, error) {
	txn, done := store.txn(true)

	raw, err := txn.First(tableBook, "id", id)
	if err != nil {
		store.abort(txn)
		return false, fmt.Errorf("deleting book on db: %w", err)
	}
	if raw == nil {
		store.abort(txn)
		return false, nil
	}

	if err := txn.Delete(tableBook, raw); err != nil {
		store.abort(txn)
		return false, fmt.Errorf("deleting book on db: %w", err)
	}

	done()
	return true, nil
}

func (store *InMemoryStore) ListBooks(ctx context.Context, q book.ListQuery) ([]book.Book, int, error) {
	books, err := store.collect(func(book.Book) bool { return true })
	if err != nil {
		return nil, 0, fmt.Errorf("listing books from db: %w", err)
	}

	sortBooks(q.SortBy, q.SortDirection, books)
	return paginate(books, q.Offset(), q.PageSize), len(books), nil
}

func (store *InMemoryStore) SearchBooks(ctx context.Context, q book.SearchQuery) ([]book.Book, int, error) {
	title := strings.ToLower(q.Title)
	author := strings.ToLower(q.Author)

	books, err := store.collect(func(b book.Book) bool {
		if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
			return false
		}
		if author != "" && !strings.Contains(strings.ToLower(b.Author), author) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, 0, fmt.Errorf("searching books on db: %w", err)
	}

	sortBooks(book.DefaultSortBy, book.DefaultSortDir, books)
	return paginate(books, q.Offset(), q.PageSize), len(books), nil
}

func (store *InMemoryStore) collect(keep func(book.Book) bool) ([]book.Book, error) {
	txn, done := store.txn(false)
	defer done()

	it, err := txn.Get(tableBook, "id")
	if err != nil {
		return nil, err
	}

	books := []book.Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		b := obj.(book.Book)
		if keep(b) {
			books = append(books, b)
		}
	}
	return books, nil
}

/* Sorts in place, breaking ties by id so pages stay stable. */
func sortBooks(sortBy, sortDirection string, books []book.Book) {
	desc := sortDirection == "desc"
	sort.SliceStable(books, func(i, j int) bool {
		var a, b string
		switch sortBy {
		case "title":
			a, b = books[i].Title, books[j].Title
		case "author":
			a, b = books[i].Author, books[j].Author
		case "isbn":
			a, b = books[i].ISBN, books[j].ISBN
		}
		if a == b {
			if desc && sortBy == "id" {
				return books[i].ID > books[j].ID
			}
			return books[i].ID < books[j].ID
		}
		if desc {
			return a > b
		}
		return a < b
	})
}

func paginate(books []book.Book, offset, pageSize int) []book.Book {
	if offset < 0 || offset >= len(books) {
		return []book.Book{}
	}
	end := len(books)
	if pageSize < end-offset {
		end = offset + pageSize
	}
	return books[offset:end]
}

func (store *InMemoryStore) BeginTx(ctx context.Context, opts *sql.TxOptions) (book.Repository, driver.Tx, error) {
	if store.exc != nil {
		return nil, nil, fmt.Errorf("starting transaction: already inside one")
	}

	txn := store.db.Txn(true)
	txWrapper := &TxWrapper{txn: txn}
	txStore := &InMemoryStore{
		db:     store.db,
		lastID: store.lastID,
		exc:    txWrapper.txn,
	}

	return txStore, txWrapper, nil
}

type TxWrapper struct {
	txn *memdb.Txn
}

func (tx *TxWrapper) Commit() error {
	tx.txn.Commit()
	return nil
}

// Rollback after Commit is a no-op.
func (tx *TxWrapper) Rollback() error {
	tx.txn.Abort()
	return nil
}
