package ntuple

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/shaiso/Cyclone/internal/domain"
)

// Mode — режим открытия файла.
type Mode int

const (
	// ModeRead — только чтение.
	ModeRead Mode = iota

	// ModeCreate — файл создаётся заново (существующий удаляется).
	ModeCreate

	// ModeUpdate — файл открывается на запись, создаётся при отсутствии.
	ModeUpdate
)

var (
	rootBucket   = []byte("cyclone")
	streamMarker = []byte{0}
)

// EntryType — тип узла дерева.
type EntryType int

const (
	EntryNamespace EntryType = iota
	EntryStream
	EntryObject
)

func (t EntryType) String() string {
	switch t {
	case EntryNamespace:
		return "namespace"
	case EntryStream:
		return "stream"
	default:
		return "object"
	}
}

// Entry — узел дерева, передаваемый в Walk.
type Entry struct {
	// Dir — путь родительского пространства имён ("" — корень).
	Dir  string
	Name string
	Type EntryType

	// Kind — вид объекта (только для EntryObject).
	Kind string

	// Records — число записей (только для EntryStream).
	Records int64
}

// Path возвращает полный путь узла.
func (e Entry) Path() string {
	return JoinPath(e.Dir, e.Name)
}

// Object — сохранённый объект: вид и закодированное значение.
type Object struct {
	Kind string `msgpack:"kind"`
	Data []byte `msgpack:"data"`
}

// File — открытый файл с потоками записей.
type File struct {
	db   *bolt.DB
	path string
	mode Mode
}

// Open открывает файл в указанном режиме.
func Open(path string, mode Mode) (*File, error) {
	if mode == ModeCreate {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove %q: %w", path, err)
		}
	}

	opts := &bolt.Options{Timeout: 5 * time.Second, ReadOnly: mode == ModeRead}
	if mode == ModeRead {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open %q: %w", path, err)
		}
	}

	db, err := bolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	f := &File{db: db, path: path, mode: mode}
	if mode != ModeRead {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(rootBucket)
			return err
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init %q: %w", path, err)
		}
	}
	return f, nil
}

// Path возвращает путь к файлу.
func (f *File) Path() string {
	return f.path
}

// Close закрывает файл.
func (f *File) Close() error {
	return f.db.Close()
}

// SplitPath разбивает путь "a/b/c" на сегменты, пустые сегменты отбрасываются.
func SplitPath(dir string) []string {
	var out []string
	for _, seg := range strings.Split(dir, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// JoinPath склеивает путь пространства имён и имя.
func JoinPath(dir, name string) string {
	segs := append(SplitPath(dir), SplitPath(name)...)
	return strings.Join(segs, "/")
}

// namespace находит bucket пространства имён. nil — если его нет.
func namespace(tx *bolt.Tx, dir string) *bolt.Bucket {
	b := tx.Bucket(rootBucket)
	for _, seg := range SplitPath(dir) {
		if b == nil {
			return nil
		}
		b = b.Bucket([]byte(seg))
		if b != nil && isStream(b) {
			return nil
		}
	}
	return b
}

// mkdirAll создаёт недостающие пространства имён (mkdir -p).
func mkdirAll(tx *bolt.Tx, dir string) (*bolt.Bucket, error) {
	b, err := tx.CreateBucketIfNotExists(rootBucket)
	if err != nil {
		return nil, err
	}
	for _, seg := range SplitPath(dir) {
		if v := b.Get([]byte(seg)); v != nil {
			return nil, fmt.Errorf("%w: %q is an object", ErrNameConflict, seg)
		}
		next := b.Bucket([]byte(seg))
		if next == nil {
			next, err = b.CreateBucket([]byte(seg))
			if err != nil {
				return nil, fmt.Errorf("create %q: %w", seg, err)
			}
		} else if isStream(next) {
			return nil, fmt.Errorf("%w: %q is a stream", ErrNameConflict, seg)
		}
		b = next
	}
	return b, nil
}

func isStream(b *bolt.Bucket) bool {
	return b.Get(streamMarker) != nil
}

func recordKey(i int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(i))
	return k[:]
}

// MkdirAll создаёт пространство имён со всеми родителями.
func (f *File) MkdirAll(dir string) error {
	if f.mode == ModeRead {
		return ErrReadOnly
	}
	return f.db.Update(func(tx *bolt.Tx) error {
		_, err := mkdirAll(tx, dir)
		return err
	})
}

// WalkFunc вызывается для каждого узла дерева.
type WalkFunc func(e Entry) error

// Walk обходит дерево в глубину, в порядке ключей.
// Пространство имён сообщается до своего содержимого.
func (f *File) Walk(fn WalkFunc) error {
	return f.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucket)
		if root == nil {
			return nil
		}
		return walk(root, "", fn)
	})
}

func walk(b *bolt.Bucket, dir string, fn WalkFunc) error {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		name := string(k)

		if v != nil {
			var obj Object
			if err := msgpack.Unmarshal(v, &obj); err != nil {
				return fmt.Errorf("decode %q: %w", JoinPath(dir, name), err)
			}
			if err := fn(Entry{Dir: dir, Name: name, Type: EntryObject, Kind: obj.Kind}); err != nil {
				return err
			}
			continue
		}

		sub := b.Bucket(k)
		if isStream(sub) {
			if err := fn(Entry{Dir: dir, Name: name, Type: EntryStream, Records: int64(sub.Sequence())}); err != nil {
				return err
			}
			continue
		}

		if err := fn(Entry{Dir: dir, Name: name, Type: EntryNamespace}); err != nil {
			return err
		}
		if err := walk(sub, JoinPath(dir, name), fn); err != nil {
			return err
		}
	}
	return nil
}

// GetObject читает объект.
func (f *File) GetObject(dir, name string) (Object, error) {
	var obj Object
	err := f.db.View(func(tx *bolt.Tx) error {
		b := namespace(tx, dir)
		if b == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, JoinPath(dir, name))
		}
		v := b.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, JoinPath(dir, name))
		}
		return msgpack.Unmarshal(v, &obj)
	})
	return obj, err
}

// HasObject проверяет наличие объекта.
func (f *File) HasObject(dir, name string) (bool, error) {
	_, err := f.GetObject(dir, name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// PutObject записывает (или перезаписывает) объект, создавая путь.
func (f *File) PutObject(dir, name string, obj Object) error {
	if f.mode == ModeRead {
		return ErrReadOnly
	}
	data, err := msgpack.Marshal(&obj)
	if err != nil {
		return fmt.Errorf("encode %q: %w", name, err)
	}
	return f.db.Update(func(tx *bolt.Tx) error {
		b, err := mkdirAll(tx, dir)
		if err != nil {
			return err
		}
		if b.Bucket([]byte(name)) != nil {
			return fmt.Errorf("%w: %s", ErrNameConflict, JoinPath(dir, name))
		}
		return b.Put([]byte(name), data)
	})
}

// HasStream проверяет наличие потока.
func (f *File) HasStream(dir, name string) (bool, error) {
	_, err := f.StreamLen(dir, name)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// StreamLen возвращает число записей потока.
func (f *File) StreamLen(dir, name string) (int64, error) {
	var n int64
	err := f.db.View(func(tx *bolt.Tx) error {
		s, err := stream(tx, dir, name)
		if err != nil {
			return err
		}
		n = int64(s.Sequence())
		return nil
	})
	return n, err
}

func stream(tx *bolt.Tx, dir, name string) (*bolt.Bucket, error) {
	b := namespace(tx, dir)
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, JoinPath(dir, name))
	}
	s := b.Bucket([]byte(name))
	if s == nil {
		if b.Get([]byte(name)) != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotStream, JoinPath(dir, name))
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, JoinPath(dir, name))
	}
	if !isStream(s) {
		return nil, fmt.Errorf("%w: %s", ErrNotStream, JoinPath(dir, name))
	}
	return s, nil
}

// CreateStream создаёт пустой поток, если его ещё нет.
func (f *File) CreateStream(dir, name string) error {
	return f.AppendRecords(dir, name, nil)
}

// AppendRecords дописывает записи в конец потока, создавая его при необходимости.
// Каждый вызов — одна зафиксированная транзакция.
func (f *File) AppendRecords(dir, name string, recs []domain.Record) error {
	if f.mode == ModeRead {
		return ErrReadOnly
	}
	return f.db.Update(func(tx *bolt.Tx) error {
		b, err := mkdirAll(tx, dir)
		if err != nil {
			return err
		}
		if b.Get([]byte(name)) != nil {
			return fmt.Errorf("%w: %s", ErrNameConflict, JoinPath(dir, name))
		}
		s := b.Bucket([]byte(name))
		if s == nil {
			if s, err = b.CreateBucket([]byte(name)); err != nil {
				return err
			}
			if err := s.Put(streamMarker, []byte{1}); err != nil {
				return err
			}
		} else if !isStream(s) {
			return fmt.Errorf("%w: %s", ErrNameConflict, JoinPath(dir, name))
		}

		next := int64(s.Sequence())
		for _, rec := range recs {
			data, err := msgpack.Marshal(map[string]any(rec))
			if err != nil {
				return fmt.Errorf("encode record %d: %w", next, err)
			}
			if err := s.Put(recordKey(next), data); err != nil {
				return err
			}
			next++
		}
		return s.SetSequence(uint64(next))
	})
}

// RecordFunc получает индекс и запись потока.
type RecordFunc func(index int64, rec domain.Record) error

// ReadRecords читает n записей начиная с first (n < 0 — до конца).
func (f *File) ReadRecords(dir, name string, first, n int64, fn RecordFunc) error {
	return f.db.View(func(tx *bolt.Tx) error {
		s, err := stream(tx, dir, name)
		if err != nil {
			return err
		}
		c := s.Cursor()
		var read int64
		for k, v := c.Seek(recordKey(first)); k != nil; k, v = c.Next() {
			if n >= 0 && read >= n {
				break
			}
			if len(k) != 8 || bytes.Equal(k, streamMarker) {
				continue
			}
			var rec map[string]any
			if err := msgpack.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			if err := fn(int64(binary.BigEndian.Uint64(k)), domain.Record(rec)); err != nil {
				return err
			}
			read++
		}
		return nil
	})
}

// CountRecords открывает файл и возвращает длины указанных потоков.
func CountRecords(path string, streams []string) (map[string]int64, error) {
	f, err := Open(path, ModeRead)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]int64, len(streams))
	for _, name := range streams {
		n, err := f.StreamLen("", name)
		if err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
