package ntuple

import (
	"fmt"
	"sort"

	"github.com/shaiso/Cyclone/internal/domain"
)

const readBlock = 512

type chainFile struct {
	path  string
	first int64
	count int64
}

type binding struct {
	field  string
	target any
}

type block struct {
	first   int64
	records []domain.Record
}

// Chain читает входные потоки всех файлов датасета как одну последовательность
// с глобальными индексами записей.
type Chain struct {
	files   []chainFile
	streams []string
	total   int64

	bindings map[string][]binding

	cur     *File
	curFile int
	blocks  map[string]*block
	current map[string]domain.Record
}

// NewChain создаёт цепочку по провалидированным файлам датасета.
// FileEntry.Records — число синхронизированных записей файла.
func NewChain(files []domain.FileEntry, streams []string) *Chain {
	c := &Chain{
		streams:  streams,
		bindings: make(map[string][]binding),
		curFile:  -1,
		blocks:   make(map[string]*block),
		current:  make(map[string]domain.Record),
	}
	for _, f := range files {
		c.files = append(c.files, chainFile{path: f.Path, first: c.total, count: f.Records})
		c.total += f.Records
	}
	return c
}

// Len возвращает общее число записей.
func (c *Chain) Len() int64 {
	return c.total
}

// ConnectInputField связывает поле потока с переменной.
// На каждой ReadRecord значение поля записывается по указателю target.
func (c *Chain) ConnectInputField(stream, field string, target any) error {
	if !c.hasStream(stream) {
		return fmt.Errorf("%w: stream %q", ErrNotFound, stream)
	}
	if err := checkTarget(target); err != nil {
		return fmt.Errorf("connect %s.%s: %w", stream, field, err)
	}
	c.bindings[stream] = append(c.bindings[stream], binding{field: field, target: target})
	return nil
}

func (c *Chain) hasStream(stream string) bool {
	for _, s := range c.streams {
		if s == stream {
			return true
		}
	}
	return false
}

// ReadRecord загружает запись с глобальным индексом index.
// newFile — true, если запись открыла новый файл.
func (c *Chain) ReadRecord(index int64) (newFile bool, err error) {
	if index < 0 || index >= c.total {
		return false, fmt.Errorf("%w: %d of %d", ErrOutOfRange, index, c.total)
	}

	fi := c.fileOf(index)
	if fi != c.curFile {
		if err := c.openFile(fi); err != nil {
			return false, err
		}
		newFile = true
	}

	local := index - c.files[fi].first
	for _, stream := range c.streams {
		rec, err := c.record(stream, local)
		if err != nil {
			return newFile, err
		}
		c.current[stream] = rec

		for _, b := range c.bindings[stream] {
			v, ok := rec[b.field]
			if !ok {
				zero(b.target)
				continue
			}
			if err := assign(b.target, v); err != nil {
				return newFile, fmt.Errorf("field %s.%s: %w", stream, b.field, err)
			}
		}
	}
	return newFile, nil
}

// Current возвращает текущую запись потока (nil, если её нет).
func (c *Chain) Current(stream string) domain.Record {
	return c.current[stream]
}

// FileEnd возвращает глобальный индекс, следующий за последней записью
// файла, содержащего index.
func (c *Chain) FileEnd(index int64) int64 {
	f := c.files[c.fileOf(index)]
	return f.first + f.count
}

// FilePath возвращает путь файла, содержащего index.
func (c *Chain) FilePath(index int64) string {
	return c.files[c.fileOf(index)].path
}

// Close закрывает текущий файл.
func (c *Chain) Close() error {
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close()
	c.cur = nil
	c.curFile = -1
	return err
}

func (c *Chain) fileOf(index int64) int {
	return sort.Search(len(c.files), func(i int) bool {
		return c.files[i].first+c.files[i].count > index
	})
}

func (c *Chain) openFile(fi int) error {
	if err := c.Close(); err != nil {
		return err
	}
	f, err := Open(c.files[fi].path, ModeRead)
	if err != nil {
		return err
	}
	c.cur = f
	c.curFile = fi
	c.blocks = make(map[string]*block)
	c.current = make(map[string]domain.Record)
	return nil
}

func (c *Chain) record(stream string, local int64) (domain.Record, error) {
	b := c.blocks[stream]
	if b == nil || local < b.first || local >= b.first+int64(len(b.records)) {
		b = &block{first: local}
		err := c.cur.ReadRecords("", stream, local, readBlock, func(_ int64, rec domain.Record) error {
			b.records = append(b.records, rec)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read %s in %s: %w", stream, c.cur.Path(), err)
		}
		c.blocks[stream] = b
	}

	i := local - b.first
	if i >= int64(len(b.records)) {
		return nil, nil
	}
	return b.records[i], nil
}
