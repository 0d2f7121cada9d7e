package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/books-catalog/cmd/api/book"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

var createdBook = book.Book{ID: 1, Title: "book to test ntfy", Author: "Tester", ISBN: "9781234567897"}

func TestBookCreated(t *testing.T) {

	t.Run("notificates the creation of a new book without errors", func(t *testing.T) {
		is := is.New(t)

		var gotPath, gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			gotPath = r.URL.Path
			gotBody = string(body)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ntfy := NewNtfy(true, 2*time.Second, server.URL+"/test_topic")
		err := ntfy.BookCreated(ctx, createdBook)
		is.NoErr(err)

		is.Equal(gotPath, "/test_topic/New_book_created")
		is.Equal(gotBody, "New book created:\nTitle: book to test ntfy\nAuthor: Tester\nISBN: 9781234567897")
	})

	t.Run("disabled notifications send nothing", func(t *testing.T) {
		is := is.New(t)

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		ntfy := NewNtfy(false, 2*time.Second, server.URL)
		is.NoErr(ntfy.BookCreated(ctx, createdBook))
		is.Equal(calls.Load(), int32(0))
	})

	t.Run("expected wrong response error", func(t *testing.T) {
		is := is.New(t)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		ntfy := NewNtfy(true, 2*time.Second, server.URL)
		err := ntfy.BookCreated(ctx, createdBook)

		var failed book.ErrNotificationFailed
		is.True(errors.As(err, &failed))
		is.Equal(err.Error(), "ntfy wrong response - want: 200 OK, got: 429")
	})

	t.Run("expected context timeout error", func(t *testing.T) {
		is := is.New(t)

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		ntfy := NewNtfy(true, 20*time.Millisecond, server.URL)
		err := ntfy.BookCreated(ctx, createdBook)
		is.True(errors.Is(err, context.DeadlineExceeded))
	})
}
