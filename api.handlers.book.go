package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// GetAllBooks serves one page of the books collection. Missing or
// invalid `page` and `limit` query values fall back to their defaults.
//
// @Summary List books
// @Description Retrieve one page of books ordered by id
// @Tags books
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Books per page" default(10)
// @Success 200 {object} APIResponse
// @Failure 500 {object} APIError
// @Router /books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	q := r.URL.Query()
	page, err := api.bookService.GetAll(r.Context(), ReadIntQuery(q, "page"), ReadIntQuery(q, "limit"))
	if err != nil {
		api.writeServiceError(r.Context(), w, logger, err, "Failed to fetch books.")
		return
	}
	logger.Info("success to get all books",
		zap.Int("page", page.Page),
		zap.Int("limit", page.Limit),
		zap.Int("count", len(page.Books)),
		zap.Int64("total", page.Total),
	)
	if err = WriteResponse(r.Context(), w, PaginatedResponse(page)); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// GetOneBook serves a single book.
//
// @Summary Get book
// @Description Retrieve a book by its id
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Router /books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, ok := api.bookIDParam(w, r, ps, logger)
	if !ok {
		return
	}
	book, err := api.bookService.GetOne(r.Context(), id)
	if err != nil {
		api.writeServiceError(r.Context(), w, logger.With(zap.Int64("book.id", id)), err, "Failed to fetch book.")
		return
	}
	logger.Info("success to get book", zap.Int64("book.id", id))
	if err = WriteResponse(r.Context(), w, GenericResponse(http.StatusOK, book)); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// @Summary Create book
// @Description Create a book. The id is assigned by the storage
// @Tags books
// @Accept json
// @Produce json
// @Param book body Book true "Book to create"
// @Success 201 {object} APIResponse
// @Failure 400 {object} APIError
// @Failure 500 {object} APIError
// @Router /books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	var book Book
	if !api.decodeBook(w, r, &book, logger) {
		return
	}
	book, err := api.bookService.Create(r.Context(), book)
	if err != nil {
		api.writeServiceError(r.Context(), w, logger, err, "Failed to create book.")
		return
	}
	logger.Info("success to create book", zap.Int64("book.id", book.ID))
	if err = WriteResponse(r.Context(), w, GenericResponse(http.StatusCreated, book)); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// UpdateBook replaces all fields of the book identified by the path id.
//
// @Summary Update book
// @Description Replace all fields of an existing book
// @Tags books
// @Accept json
// @Produce json
// @Param id path int true "Book ID"
// @Param book body Book true "New book fields"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Router /books/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, ok := api.bookIDParam(w, r, ps, logger)
	if !ok {
		return
	}
	var book Book
	if !api.decodeBook(w, r, &book, logger) {
		return
	}
	book, err := api.bookService.Update(r.Context(), id, book)
	if err != nil {
		api.writeServiceError(r.Context(), w, logger.With(zap.Int64("book.id", id)), err, "Failed to update book.")
		return
	}
	logger.Info("success to update book", zap.Int64("book.id", id))
	if err = WriteResponse(r.Context(), w, GenericResponse(http.StatusOK, book)); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// @Summary Delete book
// @Description Delete a book by its id
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIError
// @Failure 404 {object} APIError
// @Failure 500 {object} APIError
// @Router /books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, ok := api.bookIDParam(w, r, ps, logger)
	if !ok {
		return
	}
	msg, err := api.bookService.Delete(r.Context(), id)
	if err != nil {
		api.writeServiceError(r.Context(), w, logger.With(zap.Int64("book.id", id)), err, "Failed to delete book.")
		return
	}
	logger.Info("success to delete book", zap.Int64("book.id", id))
	if err = WriteResponse(r.Context(), w, GenericResponse(http.StatusOK, msg)); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// bookIDParam parses the `id` path parameter. On failure it
// responds with 400 and reports false.
func (api *APIHandler) bookIDParam(w http.ResponseWriter, r *http.Request, ps httprouter.Params, logger *zap.Logger) (int64, bool) {
	id, err := ParseBookID(ps.ByName("id"))
	if err == nil {
		return id, true
	}
	logger.Info("invalid book id", zap.String("book.id", ps.ByName("id")))
	if err = WriteErrorResponse(r.Context(), w, NewAPIError(http.StatusBadRequest, err.Error())); err != nil {
		logger.Error("failed to send error response", zap.Error(err))
	}
	return 0, false
}

// decodeBook reads the request body into book. On failure it
// responds with 400 and reports false.
func (api *APIHandler) decodeBook(w http.ResponseWriter, r *http.Request, book *Book, logger *zap.Logger) bool {
	err := DecodeBookRequestBody(w, r, book)
	if err == nil {
		return true
	}
	logger.Info("invalid request body", zap.Error(err))
	errResp := NewAPIError(http.StatusBadRequest, "invalid request body: "+err.Error())
	if err = WriteErrorResponse(r.Context(), w, errResp); err != nil {
		logger.Error("failed to send error response", zap.Error(err))
	}
	return false
}

// writeServiceError logs the failure then sends its api error. Unexpected
// failures are answered with the fallback message only.
func (api *APIHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	errResp := ServiceErrorResponse(err, fallback)
	var serr *ServiceError
	switch {
	case errors.As(err, &serr) && serr.Kind == KindInvalid:
		logger.Info("book validation failed", zap.Strings("violations", serr.Details))
	case errResp.Status == http.StatusInternalServerError:
		logger.Error(fallback, zap.Error(err))
	default:
		logger.Warn(errResp.Error, zap.Error(err))
	}
	if err = WriteErrorResponse(ctx, w, errResp); err != nil {
		logger.Error("failed to send error response", zap.Error(err))
	}
}
