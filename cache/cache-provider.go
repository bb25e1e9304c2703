package cache

import (
	"database/sql"
	"sort"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// Provider is an interface for a cache provider.
// It stores and retrieves []byte values, which represent HTTP response
// snapshots. Entries live in named buckets; one bucket holds one cache
// generation. Entries are never expired individually - they persist until
// the whole bucket is deleted.
//
// Implementations must be thread-safe!
type Provider interface {
	// Get returns the stored snapshot for the given key in the given bucket,
	// if it exists. The boolean indicates whether retrieval was successful.
	Get(bucket, key string) ([]byte, bool, error)
	// Put stores the given snapshot under the given key in the given bucket,
	// creating the bucket if needed. An existing entry is overwritten.
	Put(bucket, key string, bytes []byte) error
	// Has checks if the specified key exists in the given bucket.
	Has(bucket, key string) bool
	// Keys calls the given callback for each key in the given bucket.
	// It calls the callback in order to enable very large lists of keys to be
	// processable (provider implementation might use paging, for instance).
	Keys(bucket string, cb func(string))
	// Buckets returns the names of all buckets that hold at least one entry.
	Buckets() ([]string, error)
	// DeleteBucket removes the given bucket and all entries in it.
	DeleteBucket(bucket string) error
}

type MemCache struct {
	mutex *sync.RWMutex
	db    map[string]map[string][]byte
}

func NewMemCache() MemCache {
	return MemCache{
		mutex: &sync.RWMutex{},
		db:    make(map[string]map[string][]byte),
	}
}

func (m MemCache) Get(bucket, key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	entries, ok := m.db[bucket]
	if !ok {
		return nil, false, nil
	}
	bytes, ok := entries[key]
	return bytes, ok, nil
}

func (m MemCache) Put(bucket, key string, bytes []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	entries, ok := m.db[bucket]
	if !ok {
		entries = make(map[string][]byte)
		m.db[bucket] = entries
	}
	entries[key] = bytes
	return nil
}

func (m MemCache) Has(bucket, key string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	entries, ok := m.db[bucket]
	if !ok {
		return false
	}
	_, ok = entries[key]
	return ok
}

func (m MemCache) Keys(bucket string, cb func(string)) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for key := range m.db[bucket] {
		cb(key)
	}
}

func (m MemCache) Buckets() ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	buckets := make([]string, 0, len(m.db))
	for bucket := range m.db {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)
	return buckets, nil
}

func (m MemCache) DeleteBucket(bucket string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.db, bucket)
	return nil
}

type SQLiteCache struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteCache creates a new cache with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteCache(filename string) SQLiteCache {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		bucket TEXT,
		key TEXT,
		bytes BLOB,
		PRIMARY KEY (bucket, key)
	)`)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		panic(err)
	}
	return SQLiteCache{
		db:         db,
		writeMutex: &sync.Mutex{},
	}
}

func (s SQLiteCache) Get(bucket, key string) ([]byte, bool, error) {
	var bytes []byte
	err := s.db.QueryRow(
		"SELECT bytes FROM cache WHERE bucket = ? AND key = ?",
		bucket, key,
	).Scan(&bytes)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return bytes, true, nil
}

func (s SQLiteCache) Put(bucket, key string, bytes []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO cache (bucket, key, bytes) VALUES (?, ?, ?)",
		bucket, key, bytes,
	)
	return err
}

func (s SQLiteCache) Has(bucket, key string) bool {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM cache WHERE bucket = ? AND key = ?",
		bucket, key,
	).Scan(&one)
	return err == nil
}

func (s SQLiteCache) Keys(bucket string, cb func(string)) {
	rows, err := s.db.Query("SELECT key FROM cache WHERE bucket = ?", bucket)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return
		}
		cb(key)
	}
}

func (s SQLiteCache) Buckets() ([]string, error) {
	buckets := make([]string, 0)
	rows, err := s.db.Query("SELECT DISTINCT bucket FROM cache ORDER BY bucket")
	if err != nil {
		return buckets, err
	}
	defer rows.Close()

	for rows.Next() {
		var bucket string
		if err := rows.Scan(&bucket); err != nil {
			return buckets, err
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

func (s SQLiteCache) DeleteBucket(bucket string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM cache WHERE bucket = ?", bucket)
	return err
}
