// Package booktest holds the behaviour every book.Repository must share.
// Store packages run it from their own tests with a constructor that hands
// back an empty repository.
package booktest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/books-catalog/cmd/api/book"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

// NewRepository must return a repository with no books stored.
type NewRepository func(t *testing.T) book.Repository

func Run(t *testing.T, newRepo NewRepository) {
	t.Run("CreateBook", func(t *testing.T) { testCreateBook(t, newRepo(t)) })
	t.Run("GetBook", func(t *testing.T) { testGetBook(t, newRepo(t)) })
	t.Run("UpdateBook", func(t *testing.T) { testUpdateBook(t, newRepo(t)) })
	t.Run("DeleteBook", func(t *testing.T) { testDeleteBook(t, newRepo(t)) })
	t.Run("ListBooks", func(t *testing.T) { testListBooks(t, newRepo(t)) })
	t.Run("SearchBooks", func(t *testing.T) { testSearchBooks(t, newRepo(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newRepo(t)) })
}

func testCreateBook(t *testing.T, repo book.Repository) {
	gen := newGenerator()

	t.Run("creates a book without errors", func(t *testing.T) {
		is := is.New(t)

		b := book.Book{Title: "Clean Code", Author: "Robert Martin", ISBN: gen.Generate()}
		newBook, err := repo.CreateBook(ctx, b)
		is.NoErr(err)
		is.True(newBook.ID > 0)
		b.ID = newBook.ID
		is.Equal(newBook, b)
	})

	t.Run("ids are assigned increasingly", func(t *testing.T) {
		is := is.New(t)

		first, err := repo.CreateBook(ctx, book.Book{Title: "Effective Java", Author: "Joshua Bloch", ISBN: gen.Generate()})
		is.NoErr(err)
		second, err := repo.CreateBook(ctx, book.Book{Title: "Refactoring", Author: "Martin Fowler", ISBN: gen.Generate()})
		is.NoErr(err)
		is.True(second.ID > first.ID)
	})

	t.Run("a taken isbn is rejected", func(t *testing.T) {
		is := is.New(t)

		isbn := gen.Generate()
		_, err := repo.CreateBook(ctx, book.Book{Title: "Design Patterns", Author: "Gang of Four", ISBN: isbn})
		is.NoErr(err)

		_, err = repo.CreateBook(ctx, book.Book{Title: "Another Book", Author: "Someone Else", ISBN: isbn})
		is.True(errors.Is(err, book.ErrDuplicateISBN))

		// the failed insert leaves the store usable
		_, err = repo.CreateBook(ctx, book.Book{Title: "Another Book", Author: "Someone Else", ISBN: gen.Generate()})
		is.NoErr(err)
	})
}

func testGetBook(t *testing.T, repo book.Repository) {
	gen := newGenerator()

	t.Run("Gets a book by ID without errors", func(t *testing.T) {
		is := is.New(t)

		newBook, err := repo.CreateBook(ctx, book.Book{Title: "Code Complete", Author: "Steve McConnell", ISBN: gen.Generate()})
		is.NoErr(err)

		returnedBook, found, err := repo.GetBookByID(ctx, newBook.ID)
		is.NoErr(err)
		is.True(found)
		is.Equal(returnedBook, newBook)

		exists, err := repo.BookExists(ctx, newBook.ID)
		is.NoErr(err)
		is.True(exists)
	})

	t.Run("Gets an non existing book reports it as missing", func(t *testing.T) {
		is := is.New(t)

		returnedBook, found, err := repo.GetBookByID(ctx, 987654)
		is.NoErr(err)
		is.True(!found)
		is.Equal(returnedBook, book.Book{})

		exists, err := repo.BookExists(ctx, 987654)
		is.NoErr(err)
		is.True(!exists)
	})
}

func testUpdateBook(t *testing.T, repo book.Repository) {
	gen := newGenerator()

	t.Run("updates title and author keeping id and isbn", func(t *testing.T) {
		is := is.New(t)

		newBook, err := repo.CreateBook(ctx, book.Book{Title: "Clean Code", Author: "Robert Martin", ISBN: gen.Generate()})
		is.NoErr(err)

		updatedBook, found, err := repo.UpdateBook(ctx, newBook.ID, "Clean Architecture", "Robert C. Martin")
		is.NoErr(err)
		is.True(found)
		is.Equal(updatedBook, book.Book{ID: newBook.ID, Title: "Clean Architecture", Author: "Robert C. Martin", ISBN: newBook.ISBN})

		returnedBook, _, err := repo.GetBookByID(ctx, newBook.ID)
		is.NoErr(err)
		is.Equal(returnedBook, updatedBook)
	})

	t.Run("Updates an non existing book reports it as missing", func(t *testing.T) {
		is := is.New(t)

		_, found, err := repo.UpdateBook(ctx, 987654, "Clean Architecture", "Robert C. Martin")
		is.NoErr(err)
		is.True(!found)
	})
}

func testDeleteBook(t *testing.T, repo book.Repository) {
	gen := newGenerator()

	t.Run("deletes a book without errors", func(t *testing.T) {
		is := is.New(t)

		newBook, err := repo.CreateBook(ctx, book.Book{Title: "DevOps Handbook", Author: "Gene Kim", ISBN: gen.Generate()})
		is.NoErr(err)

		removed, err := repo.DeleteBook(ctx, newBook.ID)
		is.NoErr(err)
		is.True(removed)

		_, found, err := repo.GetBookByID(ctx, newBook.ID)
		is.NoErr(err)
		is.True(!found)
	})

	t.Run("deletes an non existing book reports it as missing", func(t *testing.T) {
		is := is.New(t)

		removed, err := repo.DeleteBook(ctx, 987654)
		is.NoErr(err)
		is.True(!removed)
	})
}

func testListBooks(t *testing.T, repo book.Repository) {
	gen := newGenerator()
	itemsTotal := 25

	//Setting up, creating books to be listed.
	for i := 0; i < itemsTotal; i++ {
		_, err := repo.CreateBook(ctx, book.Book{
			Title:  fmt.Sprintf("Book number %06v", i),
			Author: fmt.Sprintf("Author %02v", itemsTotal-i),
			ISBN:   gen.Generate(),
		})
		if err != nil {
			t.Fatalf("creating book %d: %v", i, err)
		}
	}

	query := func(page, size int, sortBy, dir string) book.ListQuery {
		return book.ListQuery{Page: page, PageSize: size, SortBy: sortBy, SortDirection: dir}
	}

	t.Run("list first page of stored books without errors, paginated with not exact division", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.ListBooks(ctx, query(0, 10, "id", "asc"))
		is.NoErr(err)
		is.Equal(total, itemsTotal)
		is.Equal(len(books), 10)
		for i := 1; i < len(books); i++ {
			is.True(books[i-1].ID < books[i].ID)
		}
	})

	t.Run("last page holds the remainder", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.ListBooks(ctx, query(2, 10, "id", "asc"))
		is.NoErr(err)
		is.Equal(total, itemsTotal)
		is.Equal(len(books), 5)
	})

	t.Run("page beyond the last is empty", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.ListBooks(ctx, query(3, 10, "id", "asc"))
		is.NoErr(err)
		is.Equal(total, itemsTotal)
		is.Equal(len(books), 0)
	})

	t.Run("page too large for an offset is empty", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.ListBooks(ctx, query(math.MaxInt/2, 100, "id", "asc"))
		is.NoErr(err)
		is.Equal(total, itemsTotal)
		is.Equal(len(books), 0)
	})

	t.Run("sorted by title descending", func(t *testing.T) {
		is := is.New(t)

		books, _, err := repo.ListBooks(ctx, query(0, 5, "title", "desc"))
		is.NoErr(err)
		is.Equal(len(books), 5)
		is.Equal(books[0].Title, "Book number 000024")
		is.Equal(books[4].Title, "Book number 000020")
	})

	t.Run("sorted by author ascending", func(t *testing.T) {
		is := is.New(t)

		books, _, err := repo.ListBooks(ctx, query(0, 3, "author", "asc"))
		is.NoErr(err)
		is.Equal(books[0].Author, "Author 01")
		is.Equal(books[0].Title, "Book number 000024")
	})
}

func testSearchBooks(t *testing.T, repo book.Repository) {
	gen := newGenerator()

	seed := []book.Book{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald"},
		{Title: "Great Expectations", Author: "Charles Dickens"},
		{Title: "Tender Is the Night", Author: "F. Scott Fitzgerald"},
		{Title: "Clean Code", Author: "Robert Martin"},
		{Title: "Les Misérables", Author: "Victor Hugo"},
		{Title: "Thérèse Raquin", Author: "Émile Zola"},
	}
	for _, b := range seed {
		b.ISBN = gen.Generate()
		if _, err := repo.CreateBook(ctx, b); err != nil {
			t.Fatalf("creating book %q: %v", b.Title, err)
		}
	}

	search := func(title, author string) book.SearchQuery {
		return book.SearchQuery{Title: title, Author: author, Page: 0, PageSize: 10}
	}

	t.Run("title matches case insensitive substrings", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.SearchBooks(ctx, search("GREAT", ""))
		is.NoErr(err)
		is.Equal(total, 2)
		is.Equal(books[0].Title, "The Great Gatsby")
		is.Equal(books[1].Title, "Great Expectations")
	})

	t.Run("both filters must match", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.SearchBooks(ctx, search("great", "fitzgerald"))
		is.NoErr(err)
		is.Equal(total, 1)
		is.Equal(books[0].Title, "The Great Gatsby")
	})

	t.Run("author only", func(t *testing.T) {
		is := is.New(t)

		_, total, err := repo.SearchBooks(ctx, search("", "scott"))
		is.NoErr(err)
		is.Equal(total, 2)
	})

	t.Run("no filters matches everything", func(t *testing.T) {
		is := is.New(t)

		_, total, err := repo.SearchBooks(ctx, search("", ""))
		is.NoErr(err)
		is.Equal(total, len(seed))
	})

	t.Run("search is paginated", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.SearchBooks(ctx, book.SearchQuery{Page: 1, PageSize: 4})
		is.NoErr(err)
		is.Equal(total, len(seed))
		is.Equal(len(books), 2)
		is.Equal(books[0].Title, "Les Misérables")
		is.Equal(books[1].Title, "Thérèse Raquin")
	})

	t.Run("case folding covers non ascii letters", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.SearchBooks(ctx, search("MISÉRABLES", ""))
		is.NoErr(err)
		is.Equal(total, 1)
		is.Equal(books[0].Title, "Les Misérables")

		books, total, err = repo.SearchBooks(ctx, search("thérèse", "ÉMILE"))
		is.NoErr(err)
		is.Equal(total, 1)
		is.Equal(books[0].Author, "Émile Zola")
	})

	t.Run("page too large for an offset is empty", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.SearchBooks(ctx, book.SearchQuery{Page: math.MaxInt / 2, PageSize: 100})
		is.NoErr(err)
		is.Equal(total, len(seed))
		is.Equal(len(books), 0)
	})

	t.Run("no match returns an empty result", func(t *testing.T) {
		is := is.New(t)

		books, total, err := repo.SearchBooks(ctx, search("Book number 000000", ""))
		is.NoErr(err)
		is.Equal(total, 0)
		is.Equal(len(books), 0)
	})
}

func testTransactions(t *testing.T, repo book.Repository) {
	gen := newGenerator()

	t.Run("rolled back changes are discarded", func(t *testing.T) {
		is := is.New(t)

		newBook, err := repo.CreateBook(ctx, book.Book{Title: "Kotlin in Action", Author: "Dmitry Jemerov", ISBN: gen.Generate()})
		is.NoErr(err)

		txRepo, tx, err := repo.BeginTx(ctx, nil)
		is.NoErr(err)
		removed, err := txRepo.DeleteBook(ctx, newBook.ID)
		is.NoErr(err)
		is.True(removed)
		is.NoErr(tx.Rollback())

		exists, err := repo.BookExists(ctx, newBook.ID)
		is.NoErr(err)
		is.True(exists)
	})

	t.Run("committed changes are kept", func(t *testing.T) {
		is := is.New(t)

		newBook, err := repo.CreateBook(ctx, book.Book{Title: "Python Programming", Author: "Guido van Rossum", ISBN: gen.Generate()})
		is.NoErr(err)

		txRepo, tx, err := repo.BeginTx(ctx, nil)
		is.NoErr(err)
		exists, err := txRepo.BookExists(ctx, newBook.ID)
		is.NoErr(err)
		is.True(exists)
		_, found, err := txRepo.UpdateBook(ctx, newBook.ID, "Python Programming 2nd Edition", "Guido van Rossum")
		is.NoErr(err)
		is.True(found)
		is.NoErr(tx.Commit())
		_ = tx.Rollback()

		returnedBook, _, err := repo.GetBookByID(ctx, newBook.ID)
		is.NoErr(err)
		is.Equal(returnedBook.Title, "Python Programming 2nd Edition")
	})
}

func newGenerator() *book.ISBNGenerator {
	return book.NewISBNGenerator(book.NewLockedRand(rand.New(rand.NewSource(2024))))
}
