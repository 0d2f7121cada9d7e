package book

import (
	"strings"
	"unicode/utf8"
)

const (
	TitleMaxLength  = 100
	AuthorMaxLength = 50
)

type Book struct {
	ID     int64
	Title  string
	Author string
	ISBN   string
}

/* Verifies that title and author are filled and within their length bounds. */
func ValidateEntry(title, author string) error {
	if strings.TrimSpace(title) == "" {
		return entryInvalid("title cannot be blank")
	}
	if utf8.RuneCountInString(title) > TitleMaxLength {
		return entryInvalid("title cannot exceed 100 characters")
	}
	if strings.TrimSpace(author) == "" {
		return entryInvalid("author cannot be blank")
	}
	if utf8.RuneCountInString(author) > AuthorMaxLength {
		return entryInvalid("author cannot exceed 50 characters")
	}

	return nil
}

func entryInvalid(reason string) ErrResponse {
	return ErrResponse{
		Code:    ErrResponseBookEntryInvalid.Code,
		Message: ErrResponseBookEntryInvalid.Message + reason,
	}
}
