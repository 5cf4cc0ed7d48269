package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis keys used by the book storage.
const (
	HBooks     string = "books"      // hash of id -> book json
	ZBookIDs   string = "books:ids"  // sorted set of ids scored by id
	KBookSeq   string = "books:seq"  // last assigned id
	HBookISBNs string = "books:isbn" // hash of isbn -> id
)

// Script replies for the write operations.
const (
	scriptDuplicateISBN = 0
	scriptNotFound      = -1
)

// Write scripts run atomically on the server.
// KEYS and ARGV follow the order used by the storage methods below.
var (
	saveBookScript = redis.NewScript(`
if ARGV[3] ~= '' and redis.call('HSETNX', KEYS[3], ARGV[3], ARGV[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[1])
return 1
`)

	updateBookScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then
  return -1
end
if ARGV[3] ~= '' then
  local owner = redis.call('HGET', KEYS[2], ARGV[3])
  if owner and owner ~= ARGV[1] then
    return 0
  end
end
local old = cjson.decode(raw)['isbn']
if type(old) == 'string' and old ~= '' and old ~= ARGV[3] then
  redis.call('HDEL', KEYS[2], old)
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if ARGV[3] ~= '' then
  redis.call('HSET', KEYS[2], ARGV[3], ARGV[1])
end
return 1
`)

	deleteBookScript = redis.NewScript(`
local raw = redis.call('HGET', KEYS[1], ARGV[1])
if not raw then
  return 1
end
local old = cjson.decode(raw)['isbn']
if type(old) == 'string' and old ~= '' then
  redis.call('HDEL', KEYS[3], old)
end
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)
)

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// FindAll retrieves one page of books following the ids sorted set order.
func (rs *redisBookStorage) FindAll(ctx context.Context, page, limit int) ([]Book, error) {
	books := []Book{}
	offset, ok := PageOffset(page, limit)
	if !ok {
		return books, nil
	}
	ids, err := rs.client.ZRange(ctx, ZBookIDs, offset, offset+int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return books, nil
	}
	values, err := rs.client.HMGet(ctx, HBooks, ids...).Result()
	if err != nil {
		return nil, err
	}
	for _, value := range values {
		bookJSONString, ok := value.(string)
		if !ok {
			// removed between both calls.
			continue
		}
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// Find retrieves a book record based on its ID.
func (rs *redisBookStorage) Find(ctx context.Context, id int64) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, formatID(id)).Result()
	if err == redis.Nil {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// Save inserts a new book record. The isbn claim and the writes run
// in one script so concurrent creations never share the same isbn.
func (rs *redisBookStorage) Save(ctx context.Context, book *Book) error {
	id, err := rs.client.Incr(ctx, KBookSeq).Result()
	if err != nil {
		return err
	}
	book.ID = id

	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	status, err := saveBookScript.Run(ctx, rs.client,
		[]string{HBooks, ZBookIDs, HBookISBNs},
		formatID(id), bookBytes, book.ISBN,
	).Int()
	if err != nil {
		return err
	}
	if status == scriptDuplicateISBN {
		return &TransactionError{Op: "save", Err: ErrDuplicateISBN}
	}
	return nil
}

// Update replaces all fields of an existing book record.
func (rs *redisBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return book, err
	}
	status, err := updateBookScript.Run(ctx, rs.client,
		[]string{HBooks, HBookISBNs},
		formatID(book.ID), bookBytes, book.ISBN,
	).Int()
	if err != nil {
		return book, err
	}
	switch status {
	case scriptNotFound:
		return book, ErrBookNotFound
	case scriptDuplicateISBN:
		return book, &TransactionError{Op: "update", Err: ErrDuplicateISBN}
	}
	return book, nil
}

// Delete removes a book record based on its ID. Missing records are ignored.
func (rs *redisBookStorage) Delete(ctx context.Context, id int64) error {
	return deleteBookScript.Run(ctx, rs.client,
		[]string{HBooks, ZBookIDs, HBookISBNs},
		formatID(id),
	).Err()
}

// CountAll returns the number of stored books.
func (rs *redisBookStorage) CountAll(ctx context.Context) (int64, error) {
	return rs.client.ZCard(ctx, ZBookIDs).Result()
}

func (rs *redisBookStorage) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *redisBookStorage) Close() error {
	return rs.client.Close()
}
