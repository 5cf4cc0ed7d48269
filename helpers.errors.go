package main

import (
	"errors"
	"fmt"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrDuplicateISBN  = errors.New(`duplicate key value violates unique constraint "books_isbn_key"`)
	ErrUnknownStorage = errors.New("unknown storage driver")
)

// ErrorKind classifies a service failure. The api layer maps
// each kind to a single http status code.
type ErrorKind uint8

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInvalid
	KindTransaction
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindTransaction:
		return "transaction"
	default:
		return "internal"
	}
}

// ServiceError is the error value returned by the book service. Message
// is safe to send to clients. Details holds field level violations.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Details []string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// TransactionError reports a storage write that was rejected by
// the store itself, typically an integrity constraint violation.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return "transaction: " + e.Op + ": " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// RootCause returns the deepest error of the wrapping chain.
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return err
}
