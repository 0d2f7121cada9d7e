package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/book/booktest"
	"github.com/books-catalog/cmd/api/sqlite"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

func newStore(t *testing.T, path string) *sqlite.Store {
	is := is.New(t)

	db, err := sqlite.Open(ctx, path)
	is.NoErr(err)
	t.Cleanup(func() {
		db.Close()
	})

	store := sqlite.NewStore(db)
	is.NoErr(sqlite.MigrationUp(store))
	return store
}

func TestRepository(t *testing.T) {
	booktest.Run(t, func(t *testing.T) book.Repository {
		return newStore(t, ":memory:")
	})
}

func TestFileDatabaseSurvivesReopen(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "catalog.db")

	first := newStore(t, path)
	created, err := first.CreateBook(ctx, book.Book{Title: "Clean Code", Author: "Robert Martin", ISBN: "9781234567897"})
	is.NoErr(err)

	// migrating an already migrated file is a no-op
	second := newStore(t, path)
	found, ok, err := second.GetBookByID(ctx, created.ID)
	is.NoErr(err)
	is.True(ok)
	is.Equal(found, created)
}

func TestSchemaRejectsMalformedISBN(t *testing.T) {
	is := is.New(t)
	store := newStore(t, ":memory:")

	_, err := store.CreateBook(ctx, book.Book{Title: "Clean Code", Author: "Robert Martin", ISBN: "97812345678AB"})
	is.True(err != nil)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	is := is.New(t)
	store := newStore(t, ":memory:")

	_, err := store.CreateBook(ctx, book.Book{Title: "100% Go", Author: "Someone", ISBN: "9781234567897"})
	is.NoErr(err)
	_, err = store.CreateBook(ctx, book.Book{Title: "1000 Go Tips", Author: "Someone", ISBN: "9780306406157"})
	is.NoErr(err)

	books, total, err := store.SearchBooks(ctx, book.SearchQuery{Title: "100%", PageSize: 10})
	is.NoErr(err)
	is.Equal(total, 1)
	is.Equal(books[0].Title, "100% Go")
}
