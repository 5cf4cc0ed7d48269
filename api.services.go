package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	GetAll(ctx context.Context, page, limit int) (BookPage, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	Create(ctx context.Context, book Book) (Book, error)
	Update(ctx context.Context, id int64, book Book) (Book, error)
	Delete(ctx context.Context, id int64) (string, error)
}

type BookService struct {
	logger       *zap.Logger
	defaultLimit int
	validator    *BookValidator
	storage      BookStorage
}

func NewBookService(logger *zap.Logger, config *Config, validator *BookValidator, storage BookStorage) BookServiceProvider {
	limit := DefaultPageLimit
	if config != nil && config.Pagination.DefaultLimit > 0 {
		limit = config.Pagination.DefaultLimit
	}
	return &BookService{
		logger:       logger,
		defaultLimit: limit,
		validator:    validator,
		storage:      storage,
	}
}

// GetAll returns one page of books. Non positive page or limit values
// fall back to the first page and the default page size.
func (bs *BookService) GetAll(ctx context.Context, page, limit int) (BookPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = bs.defaultLimit
	}
	result := BookPage{Books: []Book{}, Page: page, Limit: limit}

	total, err := bs.storage.CountAll(ctx)
	if err != nil {
		return result, internalError("failed to count books", err)
	}
	result.Total = total

	if _, ok := PageOffset(page, limit); !ok {
		bs.logger.Debug("service: page offset out of range", zap.Int("page", page), zap.Int("limit", limit))
		return result, nil
	}

	books, err := bs.storage.FindAll(ctx, page, limit)
	if err != nil {
		return result, internalError("failed to list books", err)
	}
	if books != nil {
		result.Books = books
	}
	return result, nil
}

func (bs *BookService) GetOne(ctx context.Context, id int64) (Book, error) {
	book, err := bs.storage.Find(ctx, id)
	if errors.Is(err, ErrBookNotFound) {
		return book, notFoundError(id)
	}
	if err != nil {
		return book, internalError("failed to find book", err)
	}
	return book, nil
}

// Create validates then persists a new book. Any id sent by
// the client is discarded since the storage assigns it.
func (bs *BookService) Create(ctx context.Context, book Book) (Book, error) {
	book.ID = 0
	if violations := bs.validator.Validate(&book); len(violations) > 0 {
		return book, &ServiceError{Kind: KindInvalid, Message: "invalid book", Details: violations}
	}
	if err := bs.storage.Save(ctx, &book); err != nil {
		return book, storageWriteError("failed to save book", err)
	}
	return book, nil
}

// Update replaces all fields of an existing book except its id
// which is pinned to the given one.
func (bs *BookService) Update(ctx context.Context, id int64, book Book) (Book, error) {
	book.ID = id
	if violations := bs.validator.Validate(&book); len(violations) > 0 {
		return book, &ServiceError{Kind: KindInvalid, Message: "invalid book", Details: violations}
	}
	if _, err := bs.GetOne(ctx, id); err != nil {
		return book, err
	}
	updated, err := bs.storage.Update(ctx, book)
	if errors.Is(err, ErrBookNotFound) {
		return book, notFoundError(id)
	}
	if err != nil {
		return book, storageWriteError("failed to update book", err)
	}
	return updated, nil
}

func (bs *BookService) Delete(ctx context.Context, id int64) (string, error) {
	if _, err := bs.GetOne(ctx, id); err != nil {
		return "", err
	}
	if err := bs.storage.Delete(ctx, id); err != nil {
		return "", storageWriteError("failed to delete book", err)
	}
	return fmt.Sprintf("Book with ID %d deleted successfully", id), nil
}

func notFoundError(id int64) *ServiceError {
	return &ServiceError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Book with ID %d not found.", id),
		Err:     ErrBookNotFound,
	}
}

func internalError(msg string, err error) *ServiceError {
	return &ServiceError{Kind: KindInternal, Message: msg, Err: err}
}

// storageWriteError reports rejected writes with the deepest cause
// so the client learns which constraint was violated.
func storageWriteError(msg string, err error) *ServiceError {
	var txErr *TransactionError
	if errors.As(err, &txErr) {
		return &ServiceError{
			Kind:    KindTransaction,
			Message: "Transaction error: " + RootCause(txErr).Error(),
			Err:     err,
		}
	}
	return internalError(msg, err)
}
