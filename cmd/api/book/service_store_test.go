package book_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/inmemory"
	"github.com/books-catalog/cmd/api/sqlite"
	"github.com/matryer/is"
)

var stores = map[string]func(t *testing.T) book.Repository{
	"inmemory": func(t *testing.T) book.Repository {
		store, err := inmemory.NewInMemoryStore()
		if err != nil {
			t.Fatalf("creating in memory store: %v", err)
		}
		return store
	},
	"sqlite": func(t *testing.T) book.Repository {
		db, err := sqlite.Open(ctx, ":memory:")
		if err != nil {
			t.Fatalf("opening sqlite: %v", err)
		}
		t.Cleanup(func() {
			db.Close()
		})

		store := sqlite.NewStore(db)
		if err := sqlite.MigrationUp(store); err != nil {
			t.Fatalf("migrating sqlite: %v", err)
		}
		return store
	},
}

func newStoreService(t *testing.T, newRepo func(t *testing.T) book.Repository) *book.Service {
	return book.NewService(newRepo(t), nil, book.NewLockedRand(rand.New(rand.NewSource(11))))
}

func TestServiceOverStores(t *testing.T) {
	for name, newRepo := range stores {
		t.Run(name, func(t *testing.T) {

			t.Run("book lifecycle", func(t *testing.T) {
				is := is.New(t)
				svc := newStoreService(t, newRepo)

				created, err := svc.CreateBook(ctx, book.CreateBookRequest{Title: "Clean Code", Author: "Robert Martin"})
				is.NoErr(err)
				is.True(book.ValidISBN(created.ISBN))

				got, err := svc.GetBook(ctx, created.ID)
				is.NoErr(err)
				is.Equal(got, created)

				updated, err := svc.UpdateBook(ctx, book.UpdateBookRequest{ID: created.ID, Title: "Clean Architecture", Author: "Robert C. Martin"})
				is.NoErr(err)
				is.Equal(updated.ID, created.ID)
				is.Equal(updated.ISBN, created.ISBN)
				is.Equal(updated.Title, "Clean Architecture")

				got, err = svc.GetBook(ctx, created.ID)
				is.NoErr(err)
				is.Equal(got, updated)

				is.NoErr(svc.DeleteBook(ctx, created.ID))

				_, err = svc.GetBook(ctx, created.ID)
				is.True(errors.Is(err, book.ErrResponseBookNotFound))

				err = svc.DeleteBook(ctx, created.ID)
				is.True(errors.Is(err, book.ErrResponseBookNotFound))
			})

			t.Run("generating samples stores that many unique books", func(t *testing.T) {
				is := is.New(t)
				svc := newStoreService(t, newRepo)

				msg, err := svc.GenerateSampleBooks(ctx, 10)
				is.NoErr(err)
				is.Equal(msg, "Successfully generated 10 sample books")

				page, err := svc.ListBooks(ctx, book.ListBooksRequest{Page: 0, PageSize: book.MaxPageSize})
				is.NoErr(err)
				is.Equal(page.TotalElements, 10)
				is.Equal(len(page.Content), 10)

				isbns := map[string]bool{}
				for _, b := range page.Content {
					is.True(book.ValidISBN(b.ISBN))
					isbns[b.ISBN] = true
				}
				is.Equal(len(isbns), 10)
			})

			t.Run("huge page numbers return an empty page", func(t *testing.T) {
				is := is.New(t)
				svc := newStoreService(t, newRepo)

				_, err := svc.GenerateSampleBooks(ctx, 3)
				is.NoErr(err)

				page, err := svc.ListBooks(ctx, book.ListBooksRequest{Page: math.MaxInt / 100, PageSize: 100})
				is.NoErr(err)
				is.Equal(page.TotalElements, 3)
				is.Equal(len(page.Content), 0)

				page, err = svc.SearchBooks(ctx, book.SearchBooksRequest{Page: math.MaxInt / 100, PageSize: 100})
				is.NoErr(err)
				is.Equal(page.TotalElements, 3)
				is.Equal(len(page.Content), 0)
			})
		})
	}
}
