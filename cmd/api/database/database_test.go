package database_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"

	"github.com/books-catalog/cmd/api/book"
	"github.com/books-catalog/cmd/api/book/booktest"
	"github.com/books-catalog/cmd/api/database"
	"github.com/matryer/is"
)

var store *database.Store
var sqlDB *sql.DB
var ctx context.Context = context.Background()

// TestMain is called before all the tests run.
// Without DATABASE_URL there is no postgres to talk to and every test skips.
func TestMain(m *testing.M) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		os.Exit(m.Run())
	}

	// Setting up the database for tests.
	var err error
	sqlDB, err = database.ConnectDb(ctx, connStr)
	if err != nil {
		log.Fatalln(err)
	}

	store = database.NewStore(sqlDB)
	if err := database.MigrationUp(store); err != nil {
		log.Fatalln(err)
	}

	code := m.Run()
	sqlDB.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if store == nil {
		t.Skip("DATABASE_URL not set, skipping postgres tests")
	}
}

func TestRepository(t *testing.T) {
	requireDB(t)

	booktest.Run(t, func(t *testing.T) book.Repository {
		// Removing all data from the test database.
		// We don't want to the database to be tainted with
		// this test data in another tests.
		teardownDB(t)
		t.Cleanup(func() {
			teardownDB(t)
		})
		return store
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	requireDB(t)
	is := is.New(t)

	is.NoErr(database.MigrationUp(store))
}

func TestDownMigrations(t *testing.T) {
	requireDB(t)
	is := is.New(t)

	t.Cleanup(func() {
		is.NoErr(database.MigrationUp(store))
	})

	err := database.MigrationDown(store)
	is.NoErr(err)
	sqlStatement := `SELECT EXISTS (
		SELECT FROM
			pg_tables
		WHERE
			schemaname = 'public' AND
			tablename  = 'books'
		);`
	check := sqlDB.QueryRow(sqlStatement)
	var tableExists bool
	err = check.Scan(&tableExists)
	is.NoErr(err)
	is.True(!tableExists)
}

func TestSchemaRejectsMalformedISBN(t *testing.T) {
	requireDB(t)
	is := is.New(t)
	t.Cleanup(func() {
		teardownDB(t)
	})

	_, err := store.CreateBook(ctx, book.Book{Title: "Clean Code", Author: "Robert Martin", ISBN: "97812345678AB"})
	is.True(err != nil)
}

func teardownDB(t *testing.T) {
	is := is.New(t)

	// Truncating books table, cleaning up all the records.
	result, err := sqlDB.Exec(`TRUNCATE TABLE public.books RESTART IDENTITY CASCADE`)
	is.NoErr(err)

	_, err = result.RowsAffected()
	is.NoErr(err)
}
