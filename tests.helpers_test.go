package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseBookID(t *testing.T) {
	id, err := ParseBookID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3", "1.5", "99999999999999999999"} {
		_, err = ParseBookID(raw)
		assert.ErrorIs(t, err, ErrInvalidBookID, raw)
		assert.Equal(t, "invalid book id: "+raw, err.Error())
	}
}

func TestReadIntQuery(t *testing.T) {
	qs := url.Values{"page": {"3"}, "limit": {"x"}}
	assert.Equal(t, 3, ReadIntQuery(qs, "page"))
	assert.Equal(t, 0, ReadIntQuery(qs, "limit"))
	assert.Equal(t, 0, ReadIntQuery(qs, "missing"))
}

func TestPageOffset(t *testing.T) {
	testCases := []struct {
		page, limit int
		offset      int64
		ok          bool
	}{
		{1, 10, 0, true},
		{2, 10, 10, true},
		{5, 3, 12, true},
		{0, 10, 0, false},
		{1, 0, 0, false},
		{math.MaxInt, 10, 0, false},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("page=%d,limit=%d", tc.page, tc.limit), func(t *testing.T) {
			offset, ok := PageOffset(tc.page, tc.limit)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.offset, offset)
		})
	}
}

func TestRootCause(t *testing.T) {
	base := errors.New("unique violation")
	wrapped := fmt.Errorf("outer: %w", &TransactionError{Op: "save", Err: fmt.Errorf("inner: %w", base)})
	assert.Equal(t, base, RootCause(wrapped))
	assert.Equal(t, base, RootCause(base))
	assert.Nil(t, RootCause(nil))
}

func TestServiceErrorResponse(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", notFoundError(3), http.StatusNotFound, "Book with ID 3 not found."},
		{"transaction", storageWriteError("x", &TransactionError{Op: "save", Err: ErrDuplicateISBN}), http.StatusBadRequest, "Transaction error: " + ErrDuplicateISBN.Error()},
		{"internal", internalError("failed", errors.New("db down")), http.StatusInternalServerError, "Failed to fetch book."},
		{"plain error", errors.New("unexpected"), http.StatusInternalServerError, "Failed to fetch book."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := ServiceErrorResponse(tc.err, "Failed to fetch book.")
			assert.Equal(t, tc.status, resp.Status)
			assert.Equal(t, tc.msg, resp.Error)
		})
	}

	resp := ServiceErrorResponse(&ServiceError{Kind: KindInvalid, Details: []string{"title: Title is required"}}, "x")
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, []string{"title: Title is required"}, resp.Errors)
	assert.Empty(t, resp.Error)
}

func TestWriteResponse_CancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	err := WriteResponse(ctx, w, GenericResponse(http.StatusOK, "x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 499, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestDecodeBookRequestBody(t *testing.T) {
	decode := func(body string) (Book, error) {
		var book Book
		req := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(body))
		err := DecodeBookRequestBody(httptest.NewRecorder(), req, &book)
		return book, err
	}

	book, err := decode(`{"title":"Dune","author":"Frank Herbert","year":1965,"extra":true}`)
	require.NoError(t, err)
	assert.Equal(t, Book{Title: "Dune", Author: "Frank Herbert", Year: 1965}, book)

	_, err = decode(`{"title":"Dune"}{"title":"Again"}`)
	assert.Error(t, err)

	_, err = decode(`{"year":"1965"}`)
	assert.Error(t, err)

	_, err = decode(`{"title":"` + strings.Repeat("a", int(maxBookBodySize)) + `"}`)
	assert.Error(t, err)
}

func TestCustomResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := NewCustomResponseWriter(rec)
	n, err := cw.Write([]byte("hello"))
	require.NoError(t, err)
	cw.WriteHeader(http.StatusTeapot)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusOK, cw.Status())
	assert.Equal(t, 5, cw.Bytes())
	assert.Equal(t, rec, cw.Unwrap())
}

func TestGetRequestSourceIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.4:4000"
	assert.Equal(t, "192.168.1.4", GetRequestSourceIP(req))
	req.Header.Set("X-Forwarded-For", "garbage, 10.1.1.1")
	assert.Equal(t, "10.1.1.1", GetRequestSourceIP(req))
	req.Header.Set("X-Real-IP", "10.2.2.2")
	assert.Equal(t, "10.2.2.2", GetRequestSourceIP(req))
}

func TestRSyncWriter(t *testing.T) {
	folder := t.TempDir()
	clock := NewMockClocker()
	w := NewRSyncWriter(&Config{LogFolder: folder, LogMaxSize: 1}, clock)
	defer w.Close()

	_, err := w.Write([]byte("first\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	data, err := os.ReadFile(CreateLogFilePath(folder, false, clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data))

	_, err = w.Write(bytes.Repeat([]byte("x"), 2*1048576))
	assert.Error(t, err)

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSetupLogging(t *testing.T) {
	folder := t.TempDir()
	clock := NewMockClocker()
	config := &Config{LogFolder: folder, LogMaxSize: 1, IsProduction: true, GitCommit: "abc"}
	w := NewRSyncWriter(config, clock)
	defer w.Close()
	logger, flush := SetupLogging(config, w, clock)
	logger.Info("hello", zap.String("k", "v"))
	require.NoError(t, flush())

	data, err := os.ReadFile(filepath.Join(folder, "20230702.000000.prod.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"app.commit":"abc"`)
	assert.Contains(t, string(data), `"ts":"2023-07-02T00:00:00.000Z"`)
}

func TestGetRequestRemoteIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.4:4000"
	req.Header.Set("X-Real-IP", "10.2.2.2")
	assert.Equal(t, "192.168.1.4", GetRequestRemoteIP(req))
	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", GetRequestRemoteIP(req))
}
