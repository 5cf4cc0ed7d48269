package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// CustomResponseWriter is a wrapper for http.ResponseWriter. It is
// used to record response details like status code and body size.
type CustomResponseWriter struct {
	http.ResponseWriter
	code  int
	bytes int
	wrote bool
}

// NewCustomResponseWriter provides CustomResponseWriter with 200 as status code.
func NewCustomResponseWriter(rw http.ResponseWriter) *CustomResponseWriter {
	return &CustomResponseWriter{
		ResponseWriter: rw,
		code:           http.StatusOK,
	}
}

// WriteHeader implements http.WriteHeader interface.
func (cw *CustomResponseWriter) WriteHeader(code int) {
	if !cw.wrote {
		cw.code = code
		cw.wrote = true
		cw.ResponseWriter.WriteHeader(code)
	}
}

// Write implements http.Write interface.
func (cw *CustomResponseWriter) Write(bytes []byte) (int, error) {
	if !cw.wrote {
		cw.WriteHeader(cw.code)
	}

	n, err := cw.ResponseWriter.Write(bytes)
	cw.bytes += n
	return n, err
}

// Status returns the written status code.
func (cw *CustomResponseWriter) Status() int {
	return cw.code
}

// Bytes returns bytes written as response body.
func (cw *CustomResponseWriter) Bytes() int {
	return cw.bytes
}

// Unwrap returns native response writer and used by
// the http.ResponseController during its operation.
func (cw *CustomResponseWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// APIError is the envelope sent when an error occurred during request processing.
// Validation failures fill Errors with `field: message` items, other failures
// set a single Error message.
type APIError struct {
	Status int      `json:"-"`
	Error  string   `json:"error,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// APIResponse is the envelope sent when a request succeed. The pagination
// fields are pointers so they only show up on list responses.
type APIResponse struct {
	Status int    `json:"-"`
	Data   any    `json:"data"`
	Total  *int64 `json:"total,omitempty"`
	Page   *int   `json:"page,omitempty"`
	Limit  *int   `json:"limit,omitempty"`
}

func NewAPIError(status int, message string) *APIError {
	return &APIError{
		Status: status,
		Error:  message,
	}
}

func NewAPIValidationError(violations []string) *APIError {
	return &APIError{
		Status: http.StatusBadRequest,
		Errors: violations,
	}
}

func GenericResponse(status int, data any) *APIResponse {
	return &APIResponse{
		Status: status,
		Data:   data,
	}
}

func PaginatedResponse(page BookPage) *APIResponse {
	books := page.Books
	if books == nil {
		books = []Book{}
	}
	return &APIResponse{
		Status: http.StatusOK,
		Data:   books,
		Total:  &page.Total,
		Page:   &page.Page,
		Limit:  &page.Limit,
	}
}

// ServiceErrorResponse maps a service failure to its api error envelope.
// The fallback message is used for unexpected failures so that internal
// details never leak to clients.
func ServiceErrorResponse(err error, fallback string) *APIError {
	var serr *ServiceError
	if !errors.As(err, &serr) {
		return NewAPIError(http.StatusInternalServerError, fallback)
	}
	switch serr.Kind {
	case KindNotFound:
		return NewAPIError(http.StatusNotFound, serr.Message)
	case KindInvalid:
		return NewAPIValidationError(serr.Details)
	case KindTransaction:
		return NewAPIError(http.StatusBadRequest, serr.Message)
	default:
		return NewAPIError(http.StatusInternalServerError, fallback)
	}
}

// WriteErrorResponse is used to send error response to client. In case the client closes the request,
// it sets the Nginx non standard status code 499 (Client Closed Request) to be used in the stats
// and nothing is sent.
func WriteErrorResponse(ctx context.Context, w http.ResponseWriter, errResp *APIError) error {
	if err := ctx.Err(); err != nil {
		writeCancelledStatus(w, err)
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(errResp.Status)
	return json.NewEncoder(w).Encode(errResp)
}

// WriteResponse is used to send success api response to client. It sets the status code
// to 499 in case client cancelled the request.
func WriteResponse(ctx context.Context, w http.ResponseWriter, resp *APIResponse) error {
	if err := ctx.Err(); err != nil {
		writeCancelledStatus(w, err)
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(resp.Status)
	return json.NewEncoder(w).Encode(resp)
}

func writeCancelledStatus(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		w.WriteHeader(http.StatusGatewayTimeout)
		return
	}
	w.WriteHeader(499)
}

// writeJSON encodes the value as json into the writer.
func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
