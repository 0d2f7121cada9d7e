package book_test

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/books-catalog/cmd/api/book"
	"github.com/matryer/is"
)

// digits replays a fixed sequence, for checking the check digit arithmetic.
type digits struct {
	seq []int
	i   int
}

func (d *digits) Intn(n int) int {
	v := d.seq[d.i%len(d.seq)] % n
	d.i++
	return v
}

func TestGenerate(t *testing.T) {

	t.Run("known digits give the known check digit", func(t *testing.T) {
		is := is.New(t)

		// 978 + 030640615 -> check digit 7
		gen := book.NewISBNGenerator(&digits{seq: []int{0, 3, 0, 6, 4, 0, 6, 1, 5}})
		is.Equal(gen.Generate(), "9780306406157")

		// 978 + 123456789 -> check digit 7
		gen = book.NewISBNGenerator(&digits{seq: []int{1, 2, 3, 4, 5, 6, 7, 8, 9}})
		is.Equal(gen.Generate(), "9781234567897")
	})

	t.Run("check digit of zero", func(t *testing.T) {
		is := is.New(t)

		// 978 + 000000000: 9+21+8 = 38 -> (10 - 8) % 10 = 2
		gen := book.NewISBNGenerator(&digits{seq: []int{0}})
		is.Equal(gen.Generate(), "9780000000002")
	})

	t.Run("generated identifiers are well formed", func(t *testing.T) {
		is := is.New(t)

		gen := book.NewISBNGenerator(book.NewLockedRand(rand.New(rand.NewSource(1))))
		for i := 0; i < 1000; i++ {
			isbn := gen.Generate()
			is.Equal(len(isbn), book.ISBNLength)
			is.True(strings.HasPrefix(isbn, "978"))
			is.True(book.ValidISBN(isbn))
		}
	})

	t.Run("a fixed seed is deterministic", func(t *testing.T) {
		is := is.New(t)

		a := book.NewISBNGenerator(book.NewLockedRand(rand.New(rand.NewSource(99))))
		b := book.NewISBNGenerator(book.NewLockedRand(rand.New(rand.NewSource(99))))
		for i := 0; i < 20; i++ {
			is.Equal(a.Generate(), b.Generate())
		}
	})

	t.Run("safe to share between goroutines", func(t *testing.T) {
		is := is.New(t)

		gen := book.NewISBNGenerator(book.NewLockedRand(rand.New(rand.NewSource(3))))
		var wg sync.WaitGroup
		results := make(chan string, 400)
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					results <- gen.Generate()
				}
			}()
		}
		wg.Wait()
		close(results)

		for isbn := range results {
			is.True(book.ValidISBN(isbn))
		}
	})
}

func TestValidISBN(t *testing.T) {
	is := is.New(t)

	is.True(book.ValidISBN("9780306406157"))
	is.True(book.ValidISBN("9781234567897"))

	is.True(!book.ValidISBN("9780306406158"))
	is.True(!book.ValidISBN("978030640615"))
	is.True(!book.ValidISBN("97803064061577"))
	is.True(!book.ValidISBN("97803064061a7"))
	is.True(!book.ValidISBN(""))
}
