package dataset

import (
	"fmt"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("validation")

// cacheEntry — результат проверки файла.
// Запись действительна, пока не изменились размер и время модификации.
type cacheEntry struct {
	Size    int64            `msgpack:"size"`
	ModTime int64            `msgpack:"mtime"`
	Counts  map[string]int64 `msgpack:"counts"`
}

// Cache — кеш результатов проверки файлов.
type Cache struct {
	db *bolt.DB
}

// OpenCache открывает (или создаёт) файл кеша.
func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache %q: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// Close закрывает кеш.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup возвращает сохранённые длины потоков файла.
// ok = false, если записи нет или файл изменился.
func (c *Cache) Lookup(path string) (map[string]int64, bool) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	found := false
	_ = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(cacheBucket).Get([]byte(path))
		if v == nil {
			return nil
		}
		if err := msgpack.Unmarshal(v, &entry); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if !found || entry.Size != st.Size() || entry.ModTime != st.ModTime().UnixNano() {
		return nil, false
	}
	return entry.Counts, true
}

// Store сохраняет длины потоков файла.
func (c *Cache) Store(path string, counts map[string]int64) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(&cacheEntry{
		Size:    st.Size(),
		ModTime: st.ModTime().UnixNano(),
		Counts:  counts,
	})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(path), data)
	})
}
