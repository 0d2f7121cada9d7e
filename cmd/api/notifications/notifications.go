package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/books-catalog/cmd/api/book"
)

const topicBookCreated = "/New_book_created"

type Ntfy struct {
	baseURL string
	enabled bool
	timeout time.Duration
	client  *http.Client
}

func NewNtfy(enableNotifications bool, notificationsTimeout time.Duration, notificationsBaseURL string) *Ntfy {
	return &Ntfy{
		baseURL: strings.TrimRight(notificationsBaseURL, "/"),
		enabled: enableNotifications,
		timeout: notificationsTimeout,
		client:  &http.Client{},
	}
}

/* Publishes the new book to the ntfy topic. Does nothing when notifications are disabled. */
func (ntf *Ntfy) BookCreated(ctx context.Context, b book.Book) error {
	if !ntf.enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, ntf.timeout)
	defer cancel()

	topic := ntf.baseURL + topicBookCreated
	message := fmt.Sprintf("New book created:\nTitle: %s\nAuthor: %s\nISBN: %s", b.Title, b.Author, b.ISBN)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("error delivering message to topic (%s): %w", topic, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := ntf.client.Do(req)
	if err != nil {
		return fmt.Errorf("error delivering message to topic (%s): %w", topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return book.NewErrNotificationFailed(resp.StatusCode)
	}

	slog.DebugContext(ctx, "book creation notified", "id", b.ID, "topic", topic)
	return nil
}
