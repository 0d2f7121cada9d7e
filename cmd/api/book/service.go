package book

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
)

//go:generate mockgen -destination=../http/mocks/service.go -package=mocks . ServiceAPI
//go:generate mockgen -destination=mocks/repository.go -package=mocks . Repository,Notifier

type ServiceAPI interface {
	CreateBook(ctx context.Context, req CreateBookRequest) (Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	UpdateBook(ctx context.Context, req UpdateBookRequest) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
	ListBooks(ctx context.Context, req ListBooksRequest) (PagedBooks, error)
	SearchBooks(ctx context.Context, req SearchBooksRequest) (PagedBooks, error)
	GenerateSampleBooks(ctx context.Context, count int) (string, error)
}

// Repository is the persistence contract every store implements.
// Lookups that miss return false and a nil error.
type Repository interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Repository, driver.Tx, error)
	CreateBook(ctx context.Context, bookEntry Book) (Book, error)
	GetBookByID(ctx context.Context, id int64) (Book, bool, error)
	BookExists(ctx context.Context, id int64) (bool, error)
	UpdateBook(ctx context.Context, id int64, title, author string) (Book, bool, error)
	DeleteBook(ctx context.Context, id int64) (bool, error)
	ListBooks(ctx context.Context, q ListQuery) ([]Book, int, error)
	SearchBooks(ctx context.Context, q SearchQuery) ([]Book, int, error)
}

type Notifier interface {
	BookCreated(ctx context.Context, b Book) error
}

type Service struct {
	repo Repository
	ntfy Notifier
	isbn *ISBNGenerator
	rnd  Randomizer
}

/* The same Randomizer feeds the ISBN digits and the sample picks. ntfy may be nil. */
func NewService(repo Repository, ntfy Notifier, rnd Randomizer) *Service {
	return &Service{
		repo: repo,
		ntfy: ntfy,
		isbn: NewISBNGenerator(rnd),
		rnd:  rnd,
	}
}

type CreateBookRequest struct {
	Title  string
	Author string
}

func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (Book, error) {
	if err := ValidateEntry(req.Title, req.Author); err != nil {
		return Book{}, err
	}

	slog.InfoContext(ctx, "creating book", "title", req.Title)
	createdBook, err := s.insertBook(ctx, req.Title, req.Author)
	if err != nil {
		return Book{}, err
	}
	slog.InfoContext(ctx, "book created", "id", createdBook.ID, "isbn", createdBook.ISBN)

	if s.ntfy != nil {
		if err := s.ntfy.BookCreated(ctx, createdBook); err != nil {
			slog.WarnContext(ctx, "notifying book creation", "id", createdBook.ID, "error", err)
		}
	}

	return createdBook, nil
}

/* Stores a new book with a freshly generated ISBN, generating a new one whenever the repository reports a collision. */
func (s *Service) insertBook(ctx context.Context, title, author string) (Book, error) {
	for attempt := 1; attempt <= MaxISBNAttempts; attempt++ {
		bookEntry := Book{
			Title:  title,
			Author: author,
			ISBN:   s.isbn.Generate(),
		}

		createdBook, err := s.repo.CreateBook(ctx, bookEntry)
		if err == nil {
			return createdBook, nil
		}
		if !errors.Is(err, ErrDuplicateISBN) {
			return Book{}, repositoryErr("CreateBook", err)
		}
		slog.WarnContext(ctx, "isbn collision, generating a new one", "isbn", bookEntry.ISBN, "attempt", attempt)
	}

	return Book{}, ErrResponseISBNExhausted
}

func (s *Service) GetBook(ctx context.Context, id int64) (Book, error) {
	slog.InfoContext(ctx, "fetching book", "id", id)

	b, found, err := s.repo.GetBookByID(ctx, id)
	if err != nil {
		return Book{}, repositoryErr("GetBook", err)
	}
	if !found {
		return Book{}, NewErrBookNotFound(id)
	}

	return b, nil
}

type UpdateBookRequest struct {
	ID     int64
	Title  string
	Author string
}

func (s *Service) UpdateBook(ctx context.Context, req UpdateBookRequest) (Book, error) {
	if err := ValidateEntry(req.Title, req.Author); err != nil {
		return Book{}, err
	}

	slog.InfoContext(ctx, "updating book", "id", req.ID)

	txRepo, tx, err := s.repo.BeginTx(ctx, nil)
	if err != nil {
		return Book{}, repositoryErr("UpdateBook", err)
	}
	defer tx.Rollback()

	exists, err := txRepo.BookExists(ctx, req.ID)
	if err != nil {
		return Book{}, repositoryErr("UpdateBook", err)
	}
	if !exists {
		return Book{}, NewErrBookNotFound(req.ID)
	}

	updatedBook, found, err := txRepo.UpdateBook(ctx, req.ID, req.Title, req.Author)
	if err != nil {
		return Book{}, repositoryErr("UpdateBook", err)
	}
	if !found {
		return Book{}, NewErrBookNotFound(req.ID)
	}

	if err := tx.Commit(); err != nil {
		return Book{}, repositoryErr("UpdateBook", err)
	}

	slog.InfoContext(ctx, "book updated", "id", updatedBook.ID)
	return updatedBook, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	slog.InfoContext(ctx, "deleting book", "id", id)

	txRepo, tx, err := s.repo.BeginTx(ctx, nil)
	if err != nil {
		return repositoryErr("DeleteBook", err)
	}
	defer tx.Rollback()

	exists, err := txRepo.BookExists(ctx, id)
	if err != nil {
		return repositoryErr("DeleteBook", err)
	}
	if !exists {
		return NewErrBookNotFound(id)
	}

	removed, err := txRepo.DeleteBook(ctx, id)
	if err != nil {
		return repositoryErr("DeleteBook", err)
	}
	if !removed {
		return NewErrBookNotFound(id)
	}

	if err := tx.Commit(); err != nil {
		return repositoryErr("DeleteBook", err)
	}

	slog.InfoContext(ctx, "book deleted", "id", id)
	return nil
}

/* Translates a repository failure into the error handed to the caller. */
func repositoryErr(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("timeout on call to %s: %w", operation, err)
	}
	return ErrResponse{
		Code:    ErrResponseFromRepository.Code,
		Message: ErrResponseFromRepository.Message + err.Error(),
	}
}
