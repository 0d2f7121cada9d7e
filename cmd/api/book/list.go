package book

import (
	"context"
	"log/slog"
	"math"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSortBy   = "id"
	DefaultSortDir  = "asc"
)

// SortFields are the columns a listing can be ordered by.
var SortFields = map[string]bool{
	"id":     true,
	"title":  true,
	"author": true,
	"isbn":   true,
}

type ListQuery struct {
	Page          int
	PageSize      int
	SortBy        string
	SortDirection string
}

type SearchQuery struct {
	Title    string
	Author   string
	Page     int
	PageSize int
}

type PagedBooks struct {
	Content       []Book
	PageNumber    int
	PageSize      int
	TotalElements int
	TotalPages    int
}

type ListBooksRequest struct {
	Page          int
	PageSize      int
	SortBy        string
	SortDirection string
}

func (s *Service) ListBooks(ctx context.Context, req ListBooksRequest) (PagedBooks, error) {
	if req.SortBy == "" {
		req.SortBy = DefaultSortBy
	}
	req.SortDirection = strings.ToLower(req.SortDirection)
	if req.SortDirection == "" {
		req.SortDirection = DefaultSortDir
	}
	if !validSort(req.SortBy, req.SortDirection) {
		return PagedBooks{}, ErrResponseQuerySortByInvalid
	}
	if !validPage(req.Page, req.PageSize) {
		return PagedBooks{}, ErrResponseQueryPageInvalid
	}

	slog.InfoContext(ctx, "fetching books", "page", req.Page, "size", req.PageSize, "sort_by", req.SortBy, "sort_direction", req.SortDirection)

	books, total, err := s.repo.ListBooks(ctx, ListQuery(req))
	if err != nil {
		return PagedBooks{}, repositoryErr("ListBooks", err)
	}

	return newPage(books, req.Page, req.PageSize, total), nil
}

type SearchBooksRequest struct {
	Title    string
	Author   string
	Page     int
	PageSize int
}

func (s *Service) SearchBooks(ctx context.Context, req SearchBooksRequest) (PagedBooks, error) {
	if !validPage(req.Page, req.PageSize) {
		return PagedBooks{}, ErrResponseQueryPageInvalid
	}

	slog.InfoContext(ctx, "searching books", "title", req.Title, "author", req.Author)

	books, total, err := s.repo.SearchBooks(ctx, SearchQuery(req))
	if err != nil {
		return PagedBooks{}, repositoryErr("SearchBooks", err)
	}

	return newPage(books, req.Page, req.PageSize, total), nil
}

func validSort(sortBy, sortDirection string) bool {
	if !SortFields[sortBy] {
		return false
	}
	return sortDirection == "asc" || sortDirection == "desc"
}

func validPage(page, pageSize int) bool {
	return page >= 0 && pageSize > 0 && pageSize <= MaxPageSize
}

func newPage(books []Book, page, pageSize, total int) PagedBooks {
	if books == nil {
		books = []Book{}
	}
	return PagedBooks{
		Content:       books,
		PageNumber:    page,
		PageSize:      pageSize,
		TotalElements: total,
		TotalPages:    (total + pageSize - 1) / pageSize, //up rounded to next integer
	}
}

// Offset returns how many rows precede the requested page.
func (q ListQuery) Offset() int {
	return offset(q.Page, q.PageSize)
}

func (q SearchQuery) Offset() int {
	return offset(q.Page, q.PageSize)
}

/* Pages too far out for an int offset saturate, so offset+pageSize never overflows. */
func offset(page, pageSize int) int {
	if pageSize > 0 && page > (math.MaxInt-pageSize)/pageSize {
		return math.MaxInt - pageSize
	}
	return page * pageSize
}
