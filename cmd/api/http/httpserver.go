package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

type ServerConfig struct {
	Port           int
	RequestTimeout time.Duration
	// sample generation is limited to GenerateRate requests per second
	GenerateRate  float64
	GenerateBurst int
}

func NewServer(config ServerConfig, h *BookHandler) *http.Server {
	server := http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           NewRouter(config, h),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &server
}

func NewRouter(config ServerConfig, h *BookHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(requestTimeout(config.RequestTimeout))

	r.Get("/ping", ping)

	limiter := rate.NewLimiter(rate.Limit(config.GenerateRate), config.GenerateBurst)

	r.Route("/books", func(r chi.Router) {
		r.Post("/", h.createBook)
		r.Get("/", h.listBooks)
		r.Get("/search", h.searchBooks)
		r.With(rateLimit(limiter)).Post("/generate-sample", h.generateSampleBooks)

		r.Get("/{id}", h.getBookById)
		r.Put("/{id}", h.updateBook)
		r.Delete("/{id}", h.deleteBook)
	})

	return r
}

/* Tests the http server connection.  */
func ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
