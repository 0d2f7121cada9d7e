package inmemory_test

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"testing"

	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/book/booktest"
	"github.com/books-catalog/cmd/api/inmemory"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

func newStore(t *testing.T) *inmemory.InMemoryStore {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		log.Fatalln(err)
	}
	return store
}

func TestRepository(t *testing.T) {
	booktest.Run(t, func(t *testing.T) book.Repository {
		return newStore(t)
	})
}

func TestConcurrentCreates(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	workers := 20
	var wg sync.WaitGroup
	ids := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			isbn := book.NewISBNGenerator(book.NewLockedRand(newSeededRand(int64(i)))).Generate()
			b, err := store.CreateBook(ctx, book.Book{Title: "Concurrent", Author: "Writer", ISBN: isbn})
			if err != nil {
				t.Error(err)
				return
			}
			ids <- b.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		is.True(!seen[id])
		seen[id] = true
	}
	is.Equal(len(seen), workers)

	_, total, err := store.ListBooks(ctx, book.ListQuery{PageSize: 100, SortBy: "id", SortDirection: "asc"})
	is.NoErr(err)
	is.Equal(total, workers)
}

func TestCanceledContext(t *testing.T) {
	is := is.New(t)
	store := newStore(t)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := store.CreateBook(canceled, book.Book{Title: "Clean Code", Author: "Robert Martin", ISBN: "9781234567897"})
	is.True(err != nil)
}

func newSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
