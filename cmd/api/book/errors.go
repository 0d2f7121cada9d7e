package book

import (
	"errors"
	"fmt"
)

type ErrResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e ErrResponse) Error() string {
	return e.Message
}

// Is matches on Code, so a response carrying extra detail in its message
// still matches the sentinel it was built from.
func (e ErrResponse) Is(target error) bool {
	t, ok := target.(ErrResponse)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var ErrResponseBookEntryInvalid = ErrResponse{100, "invalid book entry: "}
var ErrResponseBookNotFound = ErrResponse{101, "book not found"}
var ErrResponseEntryInvalidJSON = ErrResponse{102, "invalid json request."}
var ErrResponseIdInvalidFormat = ErrResponse{103, "the endpoint is not a valid format ID. Must be /books/{integer id}"}
var ErrResponseQuerySortByInvalid = ErrResponse{105, "query parameter 'sort_by' must be: id, title, author or isbn. 'sort_direction' must be asc or desc."}
var ErrResponseQueryPageInvalid = ErrResponse{106, "query parameter 'page' must be an int starting in 0. 'size' must be an int between 1 and 100."}
var ErrResponseFromRepository = ErrResponse{108, "error from repository: "}
var ErrResponseRequestTimeout = ErrResponse{109, "error from context:"}
var ErrResponseSampleCountInvalid = ErrResponse{119, "Count must be between 1 and 100"}
var ErrResponseISBNExhausted = ErrResponse{120, "could not assign a unique isbn to the book"}
var ErrResponseTooManyRequests = ErrResponse{121, "too many requests, try again later"}

// ErrDuplicateISBN is returned by repositories when the ISBN of a new book
// is already assigned to another one. The service retries with a new ISBN.
var ErrDuplicateISBN = errors.New("isbn already assigned to another book")

func NewErrBookNotFound(id int64) ErrResponse {
	return ErrResponse{
		Code:    ErrResponseBookNotFound.Code,
		Message: fmt.Sprintf("%s with id: %d", ErrResponseBookNotFound.Message, id),
	}
}

type ErrNotificationFailed struct {
	statusCode int
}

func (e ErrNotificationFailed) Error() string {
	return fmt.Sprintf("ntfy wrong response - want: 200 OK, got: %d", e.statusCode)
}

func NewErrNotificationFailed(statusCode int) ErrNotificationFailed {
	return ErrNotificationFailed{statusCode: statusCode}
}
