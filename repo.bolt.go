package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the buckets then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{config.BoltDB.BucketName, isbnBucketName(&config.BoltDB)} {
			if _, errB := tx.CreateBucketIfNotExists([]byte(name)); errB != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, errB)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %w", err)
	}
	return db, nil
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// isbnBucketName is the bucket holding the isbn -> id unique index.
func isbnBucketName(config *BoltDBConfig) string {
	return config.BucketName + ".isbn"
}

// itob encodes an id as 8-byte big endian so keys sort like ids.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func (bs *boltBookStorage) buckets(tx *bolt.Tx) (*bolt.Bucket, *bolt.Bucket) {
	return tx.Bucket([]byte(bs.config.BucketName)), tx.Bucket([]byte(isbnBucketName(bs.config)))
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

// Ping reports an error once the database file was closed.
func (bs *boltBookStorage) Ping(_ context.Context) error {
	return bs.client.View(func(tx *bolt.Tx) error { return nil })
}

// FindAll retrieves one page of books by walking the bucket in key order.
func (bs *boltBookStorage) FindAll(_ context.Context, page, limit int) ([]Book, error) {
	books := []Book{}
	offset, ok := PageOffset(page, limit)
	if !ok {
		return books, nil
	}
	err := bs.client.View(func(tx *bolt.Tx) error {
		b, _ := bs.buckets(tx)
		c := b.Cursor()
		k, v := c.First()
		for skipped := int64(0); k != nil && skipped < offset; skipped++ {
			k, v = c.Next()
		}
		for ; k != nil && len(books) < limit; k, v = c.Next() {
			var book Book
			if err := json.Unmarshal(v, &book); err != nil {
				return err
			}
			books = append(books, book)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// Find retrieves a book record based on its ID.
func (bs *boltBookStorage) Find(_ context.Context, id int64) (Book, error) {
	var book Book
	err := bs.client.View(func(tx *bolt.Tx) error {
		b, _ := bs.buckets(tx)
		result := b.Get(itob(id))
		if result == nil {
			return ErrBookNotFound
		}
		return json.Unmarshal(result, &book)
	})
	return book, err
}

// Save inserts a new book record with the next bucket sequence as id.
func (bs *boltBookStorage) Save(_ context.Context, book *Book) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b, idx := bs.buckets(tx)
		if book.ISBN != "" && idx.Get([]byte(book.ISBN)) != nil {
			return &TransactionError{Op: "save", Err: ErrDuplicateISBN}
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		book.ID = int64(seq)
		return bs.put(b, idx, *book)
	})
}

// Update replaces all fields of an existing book record and keeps the isbn index in sync.
func (bs *boltBookStorage) Update(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b, idx := bs.buckets(tx)
		raw := b.Get(itob(book.ID))
		if raw == nil {
			return ErrBookNotFound
		}
		var old Book
		if err := json.Unmarshal(raw, &old); err != nil {
			return err
		}
		if book.ISBN != "" {
			if owner := idx.Get([]byte(book.ISBN)); owner != nil && !bytes.Equal(owner, itob(book.ID)) {
				return &TransactionError{Op: "update", Err: ErrDuplicateISBN}
			}
		}
		if old.ISBN != "" && old.ISBN != book.ISBN {
			if err := idx.Delete([]byte(old.ISBN)); err != nil {
				return err
			}
		}
		return bs.put(b, idx, book)
	})
	return book, err
}

// Delete removes a book record based on its ID. Missing records are ignored.
func (bs *boltBookStorage) Delete(_ context.Context, id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b, idx := bs.buckets(tx)
		raw := b.Get(itob(id))
		if raw == nil {
			return nil
		}
		var old Book
		if err := json.Unmarshal(raw, &old); err != nil {
			return err
		}
		if old.ISBN != "" {
			if err := idx.Delete([]byte(old.ISBN)); err != nil {
				return err
			}
		}
		return b.Delete(itob(id))
	})
}

// CountAll returns the number of keys in the books bucket.
func (bs *boltBookStorage) CountAll(_ context.Context) (int64, error) {
	var total int64
	err := bs.client.View(func(tx *bolt.Tx) error {
		b, _ := bs.buckets(tx)
		total = int64(b.Stats().KeyN)
		return nil
	})
	return total, err
}

func (bs *boltBookStorage) put(b, idx *bolt.Bucket, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	if err = b.Put(itob(book.ID), bookBytes); err != nil {
		return err
	}
	if book.ISBN != "" {
		return idx.Put([]byte(book.ISBN), itob(book.ID))
	}
	return nil
}
