package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const selectBookColumns = "SELECT id, title, author, year, COALESCE(isbn, '') FROM books"

type postgresBookStorage struct {
	logger  *zap.Logger
	pool    *pgxpool.Pool
	timeout time.Duration
}

// GetPostgresPool provides a ready to use connection pool to the postgres server.
func GetPostgresPool(config *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(config.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if config.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = config.Postgres.MaxConns
	}

	timeout := config.Postgres.ConnTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// test connection.
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("test connection failed: %w", err)
	}
	return pool, nil
}

// MigratePostgres applies all pending embedded schema migrations.
func MigratePostgres(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, config *PostgresConfig, pool *pgxpool.Pool) BookStorage {
	timeout := config.QueryTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &postgresBookStorage{
		logger:  logger,
		pool:    pool,
		timeout: timeout,
	}
}

func (ps *postgresBookStorage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, ps.timeout)
}

// FindAll retrieves one page of books ordered by id.
func (ps *postgresBookStorage) FindAll(ctx context.Context, page, limit int) ([]Book, error) {
	offset, ok := PageOffset(page, limit)
	if !ok {
		return []Book{}, nil
	}
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	rows, err := ps.pool.Query(ctx, selectBookColumns+" ORDER BY id ASC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	books, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Book, error) {
		return scanBook(row)
	})
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// Find retrieves a book record based on its ID.
func (ps *postgresBookStorage) Find(ctx context.Context, id int64) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	row := ps.pool.QueryRow(ctx, selectBookColumns+" WHERE id = $1", id)
	book, err := scanBook(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	return book, err
}

// Save inserts a new book record and sets its generated id.
func (ps *postgresBookStorage) Save(ctx context.Context, book *Book) error {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			"INSERT INTO books (title, author, year, isbn) VALUES ($1, $2, $3, NULLIF($4, '')) RETURNING id",
			book.Title, book.Author, book.Year, book.ISBN,
		).Scan(&book.ID)
	})
	return classifyPostgresError("save", err)
}

// Update replaces all fields of an existing book record.
func (ps *postgresBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE books SET title = $2, author = $3, year = $4, isbn = NULLIF($5, '') WHERE id = $1",
			book.ID, book.Title, book.Author, book.Year, book.ISBN,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrBookNotFound
		}
		return nil
	})
	return book, classifyPostgresError("update", err)
}

// Delete removes a book record based on its ID. Missing records are ignored.
func (ps *postgresBookStorage) Delete(ctx context.Context, id int64) error {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "DELETE FROM books WHERE id = $1", id)
		return err
	})
	return classifyPostgresError("delete", err)
}

// CountAll returns the total number of book records.
func (ps *postgresBookStorage) CountAll(ctx context.Context) (int64, error) {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()

	var total int64
	err := ps.pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&total)
	return total, err
}

func (ps *postgresBookStorage) Ping(ctx context.Context) error {
	ctx, cancel := ps.withTimeout(ctx)
	defer cancel()
	return ps.pool.Ping(ctx)
}

// Close shuts down the connections pool.
func (ps *postgresBookStorage) Close() error {
	ps.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (Book, error) {
	var book Book
	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Year, &book.ISBN)
	return book, err
}

// classifyPostgresError turns integrity constraint violations
// (sql state class 23) into transaction errors.
func classifyPostgresError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return &TransactionError{Op: op, Err: pgErr}
	}
	return err
}
