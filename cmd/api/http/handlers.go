package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/books-catalog/cmd/api/book"
	"github.com/go-chi/chi/v5"
)

const defaultSampleCount = 10

type BookHandler struct {
	bookService book.ServiceAPI
}

func NewBookHandler(bookService book.ServiceAPI) *BookHandler {
	return &BookHandler{bookService: bookService}
}

type BookEntry struct {
	Title  string `json:"title" validate:"notblank,max=100"`
	Author string `json:"author" validate:"notblank,max=50"`
}

/* Validates the entry, then stores the entry as a new book. */
func (h *BookHandler) createBook(w http.ResponseWriter, r *http.Request) {
	bookEntry, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	storedBook, err := h.bookService.CreateBook(r.Context(), book.CreateBookRequest{
		Title:  bookEntry.Title,
		Author: bookEntry.Author,
	})
	if err != nil {
		responseErr(w, r, err)
		return
	}

	responseJSON(w, http.StatusCreated, bookToResponse(storedBook))
}

/* Returns the book with that specific ID. */
func (h *BookHandler) getBookById(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	returnedBook, err := h.bookService.GetBook(r.Context(), id)
	if err != nil {
		responseErr(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(returnedBook))
}

/* Validates the entry, then updates the asked book. */
func (h *BookHandler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	bookEntry, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	updatedBook, err := h.bookService.UpdateBook(r.Context(), book.UpdateBookRequest{
		ID:     id,
		Title:  bookEntry.Title,
		Author: bookEntry.Author,
	})
	if err != nil {
		responseErr(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(updatedBook))
}

func (h *BookHandler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	if err := h.bookService.DeleteBook(r.Context(), id); err != nil {
		responseErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/* Returns a page of the stored books. */
func (h *BookHandler) listBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sortBy, sortDirection, valid := extractOrderParams(query)
	if !valid {
		responseJSON(w, http.StatusBadRequest, book.ErrResponseQuerySortByInvalid)
		return
	}

	page, pageSize, valid := extractPageParams(query)
	if !valid {
		responseJSON(w, http.StatusBadRequest, book.ErrResponseQueryPageInvalid)
		return
	}

	pagedBooks, err := h.bookService.ListBooks(r.Context(), book.ListBooksRequest{
		Page:          page,
		PageSize:      pageSize,
		SortBy:        sortBy,
		SortDirection: sortDirection,
	})
	if err != nil {
		responseErr(w, r, err)
		return
	}
	responseJSON(w, http.StatusOK, pagedBooksToResponse(pagedBooks))
}

/* Returns a page of the books whose title and author contain the given texts. */
func (h *BookHandler) searchBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, pageSize, valid := extractPageParams(query)
	if !valid {
		responseJSON(w, http.StatusBadRequest, book.ErrResponseQueryPageInvalid)
		return
	}

	pagedBooks, err := h.bookService.SearchBooks(r.Context(), book.SearchBooksRequest{
		Title:    query.Get("title"),
		Author:   query.Get("author"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		responseErr(w, r, err)
		return
	}
	responseJSON(w, http.StatusOK, pagedBooksToResponse(pagedBooks))
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *BookHandler) generateSampleBooks(w http.ResponseWriter, r *http.Request) {
	count := defaultSampleCount
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			responseJSON(w, http.StatusBadRequest, book.ErrResponseSampleCountInvalid)
			return
		}
	}

	msg, err := h.bookService.GenerateSampleBooks(r.Context(), count)
	if err != nil {
		responseErr(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

/* Reads and validates the JSON body. On failure the response is already written. */
func decodeEntry(w http.ResponseWriter, r *http.Request) (BookEntry, bool) {
	var bookEntry BookEntry
	err := json.NewDecoder(r.Body).Decode(&bookEntry) //Read the Json body and save the entry to bookEntry
	if err != nil {
		slog.InfoContext(r.Context(), "decoding book entry", "error", err)
		errR := book.ErrResponse{
			Code:    book.ErrResponseEntryInvalidJSON.Code,
			Message: book.ErrResponseEntryInvalidJSON.Message + err.Error(),
		}
		responseJSON(w, http.StatusBadRequest, errR)
		return BookEntry{}, false
	}

	if err := validateEntry(bookEntry); err != nil {
		responseJSON(w, http.StatusBadRequest, err)
		return BookEntry{}, false
	}

	return bookEntry, true
}

/* Isolates the ID from the URL. */
func isolateId(w http.ResponseWriter, r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		slog.InfoContext(r.Context(), "parsing book id", "error", err)
		responseJSON(w, http.StatusBadRequest, book.ErrResponseIdInvalidFormat)
		return 0, err
	}
	return id, nil
}

/* Maps an error from the service to its status code and body. */
func responseErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		slog.WarnContext(r.Context(), "request ended by context", "error", err)
		cause := context.Canceled
		if errors.Is(err, context.DeadlineExceeded) {
			cause = context.DeadlineExceeded
		}
		responseJSON(w, http.StatusGatewayTimeout, book.ErrResponse{
			Code:    book.ErrResponseRequestTimeout.Code,
			Message: book.ErrResponseRequestTimeout.Message + cause.Error(),
		})
	case errors.Is(err, book.ErrResponseBookNotFound):
		responseJSON(w, http.StatusNotFound, err)
	case errors.Is(err, book.ErrResponseBookEntryInvalid),
		errors.Is(err, book.ErrResponseQuerySortByInvalid),
		errors.Is(err, book.ErrResponseQueryPageInvalid),
		errors.Is(err, book.ErrResponseSampleCountInvalid):
		responseJSON(w, http.StatusBadRequest, err)
	case errors.Is(err, book.ErrResponseISBNExhausted):
		slog.ErrorContext(r.Context(), "assigning isbn", "error", err)
		responseJSON(w, http.StatusInternalServerError, err)
	default:
		slog.ErrorContext(r.Context(), "serving request", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type BookResponse struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

/*Copy the fields of a book object to an http layer struct with json tags*/
func bookToResponse(b book.Book) BookResponse {
	return BookResponse{
		ID:     b.ID,
		Title:  b.Title,
		Author: b.Author,
		ISBN:   b.ISBN,
	}
}

type PageResponse struct {
	PageNumber    int `json:"page_number"`
	PageSize      int `json:"page_size"`
	TotalElements int `json:"total_elements"`
	TotalPages    int `json:"total_pages"`
}

type PageOfBooksResponse struct {
	Content []BookResponse `json:"content"`
	Page    PageResponse   `json:"page"`
}

/*Copy the fields of a PagedBooks object to an http layer struct with json tags*/
func pagedBooksToResponse(page book.PagedBooks) PageOfBooksResponse {
	content := []BookResponse{}
	for _, b := range page.Content {
		content = append(content, bookToResponse(b))
	}

	return PageOfBooksResponse{
		Content: content,
		Page: PageResponse{
			PageNumber:    page.PageNumber,
			PageSize:      page.PageSize,
			TotalElements: page.TotalElements,
			TotalPages:    page.TotalPages,
		},
	}
}

/*Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("encoding response", "error", err)
	}
}

/*Validates and prepares the ordering parameters of the query.*/
func extractOrderParams(query url.Values) (sortBy string, sortDirection string, valid bool) {
	sortDirection = strings.ToLower(query.Get("sort_direction"))
	switch sortDirection {
	case "":
		sortDirection = book.DefaultSortDir
	case "asc", "desc":
	default:
		return sortBy, sortDirection, false
	}

	sortBy = query.Get("sort_by")
	if sortBy == "" {
		sortBy = book.DefaultSortBy
	}
	if !book.SortFields[sortBy] {
		return sortBy, sortDirection, false
	}

	return sortBy, sortDirection, true
}

/*Validates and prepares the pagination parameters of the query. Pages start at 0.*/
func extractPageParams(query url.Values) (page int, pageSize int, valid bool) {
	var err error

	page = 0
	if pageStr := query.Get("page"); pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page < 0 {
			return page, pageSize, false
		}
	}

	pageSize = book.DefaultPageSize
	if sizeStr := query.Get("size"); sizeStr != "" {
		pageSize, err = strconv.Atoi(sizeStr)
		if err != nil || pageSize < 1 || pageSize > book.MaxPageSize {
			return page, pageSize, false
		}
	}

	return page, pageSize, true
}
