package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	FindAllFunc  func(ctx context.Context, page, limit int) ([]Book, error)
	FindFunc     func(ctx context.Context, id int64) (Book, error)
	SaveFunc     func(ctx context.Context, book *Book) error
	UpdateFunc   func(ctx context.Context, book Book) (Book, error)
	DeleteFunc   func(ctx context.Context, id int64) error
	CountAllFunc func(ctx context.Context) (int64, error)
	PingFunc     func(ctx context.Context) error
}

// FindAll mocks the behavior of listing a page of books by the repository.
func (m *MockBookStorage) FindAll(ctx context.Context, page, limit int) ([]Book, error) {
	return m.FindAllFunc(ctx, page, limit)
}

// Find mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) Find(ctx context.Context, id int64) (Book, error) {
	return m.FindFunc(ctx, id)
}

// Save mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Save(ctx context.Context, book *Book) error {
	return m.SaveFunc(ctx, book)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	return m.UpdateFunc(ctx, book)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

// CountAll mocks the behavior of counting books by the repository.
func (m *MockBookStorage) CountAll(ctx context.Context) (int64, error) {
	return m.CountAllFunc(ctx)
}

// Ping succeeds unless a PingFunc is set.
func (m *MockBookStorage) Ping(ctx context.Context) error {
	if m.PingFunc == nil {
		return nil
	}
	return m.PingFunc(ctx)
}

func (m *MockBookStorage) Close() error {
	return nil
}

// MockClocker implements a fake TickerClocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// NewTicker returns a real ticker since tests never wait on it.
func (mck *MockClocker) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// newTestAPIHandler builds an api handler around the given storage
// with mocked clock and ids.
func newTestAPIHandler(config *Config, storage BookStorage) *APIHandler {
	var bs BookServiceProvider
	if storage != nil {
		bs = NewBookService(zap.NewNop(), config, NewBookValidator(), storage)
	}
	clock := NewMockClocker()
	return NewAPIHandler(zap.NewNop(), config, &Statistics{started: clock.Now()}, clock, NewMockUIDHandler("abc"), storage, bs)
}
