package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/books-catalog/cmd/api/logging"
	"github.com/matryer/is"
)

func TestSetup(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	t.Run("json records carry the request id", func(t *testing.T) {
		is := is.New(t)
		var buf bytes.Buffer

		logger, err := logging.Setup(&buf, "info", "json")
		is.NoErr(err)

		ctx := logging.WithRequestID(context.Background(), "req-1")
		logger.InfoContext(ctx, "creating book", "title", "Clean Code")

		var record map[string]any
		is.NoErr(json.Unmarshal(buf.Bytes(), &record))
		is.Equal(record["msg"], "creating book")
		is.Equal(record["request_id"], "req-1")
		is.Equal(record["title"], "Clean Code")
	})

	t.Run("records below the level are dropped", func(t *testing.T) {
		is := is.New(t)
		var buf bytes.Buffer

		logger, err := logging.Setup(&buf, "warn", "json")
		is.NoErr(err)

		logger.Info("not written")
		is.Equal(buf.Len(), 0)
		logger.Warn("written")
		is.True(strings.Contains(buf.String(), "written"))
	})

	t.Run("text format writes human readable lines", func(t *testing.T) {
		is := is.New(t)
		var buf bytes.Buffer

		logger, err := logging.Setup(&buf, "debug", "text")
		is.NoErr(err)

		logger.Info("server listening")
		is.True(strings.Contains(buf.String(), "server listening"))
	})

	t.Run("unknown level and format are rejected", func(t *testing.T) {
		is := is.New(t)

		_, err := logging.Setup(&bytes.Buffer{}, "loud", "json")
		is.True(err != nil)

		_, err = logging.Setup(&bytes.Buffer{}, "info", "xml")
		is.True(err != nil)
	})
}
