package main

import "context"

// Book represents a book entity. The ID is assigned by the storage
// on creation and stays unchanged for the whole record lifetime.
type Book struct {
	ID     int64  `json:"id,omitempty"`
	Title  string `json:"title" validate:"notblank"`
	Author string `json:"author" validate:"notblank"`
	Year   int    `json:"year" validate:"min=1,max=2147483647"`
	ISBN   string `json:"isbn,omitempty" validate:"omitempty,len=13,digits"`
}

// BookPage is a window of the books collection along with
// the pagination details used to build it.
type BookPage struct {
	Books []Book
	Total int64
	Page  int
	Limit int
}

// BookStorage defines possible operations on book entity. Listing is
// always ordered by id ascending so that pages are stable across calls.
type BookStorage interface {
	FindAll(ctx context.Context, page, limit int) ([]Book, error)
	Find(ctx context.Context, id int64) (Book, error)
	Save(ctx context.Context, book *Book) error
	Update(ctx context.Context, book Book) (Book, error)
	Delete(ctx context.Context, id int64) error
	CountAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
