package domain

// DataTypeData — тип датасета с реальными (не смоделированными) данными.
// Для таких датасетов вес записи всегда равен 1.
const DataTypeData = "data"

// StreamRole — набор ролей потока записей (битовые флаги).
type StreamRole uint8

const (
	// RoleInput — поток читается из входных файлов.
	RoleInput StreamRole = 1 << iota

	// RoleOutput — поток создаётся циклом и пишется в выходной файл.
	RoleOutput

	// RolePersistent — входной поток, который копируется в выход.
	RolePersistent

	// RoleSynchronized — поток синхронизирован по событиям:
	// все такие потоки одного файла обязаны иметь одинаковое число записей.
	RoleSynchronized
)

// Has проверяет наличие роли.
func (r StreamRole) Has(role StreamRole) bool {
	return r&role != 0
}

// String возвращает роли в виде "input|synchronized".
func (r StreamRole) String() string {
	names := []struct {
		role StreamRole
		name string
	}{
		{RoleInput, "input"},
		{RoleOutput, "output"},
		{RolePersistent, "persistent"},
		{RoleSynchronized, "synchronized"},
	}

	out := ""
	for _, n := range names {
		if !r.Has(n.role) {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n.name
	}
	if out == "" {
		return "none"
	}
	return out
}

// ParseStreamRole разбирает имя одной роли.
func ParseStreamRole(s string) (StreamRole, bool) {
	switch s {
	case "input":
		return RoleInput, true
	case "output":
		return RoleOutput, true
	case "persistent":
		return RolePersistent, true
	case "synchronized", "event":
		return RoleSynchronized, true
	default:
		return 0, false
	}
}

// FileEntry — один входной файл датасета.
type FileEntry struct {
	// Path — путь к файлу.
	Path string `json:"path" yaml:"path"`

	// Lumi — заявленная светимость файла (0 — неизвестна).
	Lumi float64 `json:"lumi,omitempty" yaml:"lumi,omitempty"`

	// Records — число записей, заполняется при валидации.
	Records int64 `json:"records" yaml:"-"`
}

// StreamDescriptor — описание именованного потока записей.
type StreamDescriptor struct {
	Name string     `json:"name" yaml:"name"`
	Role StreamRole `json:"role" yaml:"-"`

	// Roles — роли в текстовом виде (для YAML), переводятся в Role при загрузке.
	Roles []string `json:"-" yaml:"roles"`
}

// SelectionPredicate — генераторный срез.
//
// Expr — условие в синтаксисе шаблонов (например `gt .pt 20.0`),
// вычисляется на текущей записи потока Stream.
type SelectionPredicate struct {
	Stream string `json:"stream" yaml:"stream"`
	Expr   string `json:"expr" yaml:"expr"`
}

// InputDataset — логическая порция входных данных.
type InputDataset struct {
	// Type — тип датасета ("data", "ttbar", ...).
	Type string `json:"type" yaml:"type"`

	// Version — версия датасета.
	Version string `json:"version" yaml:"version"`

	// Lumi — заявленная полная светимость (0 — вычисляется по файлам).
	Lumi float64 `json:"lumi,omitempty" yaml:"lumi,omitempty"`

	Files      []FileEntry          `json:"files" yaml:"files"`
	Streams    []StreamDescriptor   `json:"streams" yaml:"streams"`
	Predicates []SelectionPredicate `json:"predicates,omitempty" yaml:"predicates,omitempty"`

	// MaxRecords — максимум обрабатываемых записей (-1 — все).
	MaxRecords int64 `json:"max_records" yaml:"max_records"`

	// SkipRecords — сколько записей пропустить в начале.
	SkipRecords int64 `json:"skip_records" yaml:"skip_records"`

	// TotalRecords — сумма записей по файлам после валидации.
	TotalRecords int64 `json:"total_records" yaml:"-"`

	// Cacheable — результаты валидации можно брать из кеша.
	Cacheable bool `json:"cacheable,omitempty" yaml:"cacheable,omitempty"`
}

// Key возвращает "type/version" — идентификатор датасета в логах.
func (d *InputDataset) Key() string {
	return d.Type + "/" + d.Version
}

// IsData возвращает true для реальных данных.
func (d *InputDataset) IsData() bool {
	return d.Type == DataTypeData
}

// TotalLumi возвращает заявленную светимость, либо сумму по файлам.
func (d *InputDataset) TotalLumi() float64 {
	if d.Lumi > 0 {
		return d.Lumi
	}
	var sum float64
	for _, f := range d.Files {
		sum += f.Lumi
	}
	return sum
}

// ScaledLumi возвращает светимость с учётом доли обрабатываемых записей.
func (d *InputDataset) ScaledLumi() float64 {
	lumi := d.TotalLumi()
	if d.MaxRecords < 0 || d.TotalRecords <= 0 {
		return lumi
	}
	return lumi * float64(d.MaxRecords) / float64(d.TotalRecords)
}

// ClampRange приводит skip/max к инварианту skip + max ≤ total.
// MaxRecords = -1 (все записи) сохраняется, если skip < total.
func (d *InputDataset) ClampRange() {
	if d.SkipRecords < 0 {
		d.SkipRecords = 0
	}
	switch {
	case d.SkipRecords >= d.TotalRecords:
		d.MaxRecords = 0
	case d.MaxRecords >= 0 && d.SkipRecords+d.MaxRecords > d.TotalRecords:
		d.MaxRecords = d.TotalRecords - d.SkipRecords
	}
}

// RecordRange возвращает [first, first+count) — реально обрабатываемый диапазон.
func (d *InputDataset) RecordRange() (first, count int64) {
	first = d.SkipRecords
	if first >= d.TotalRecords {
		return first, 0
	}
	count = d.TotalRecords - first
	if d.MaxRecords >= 0 && d.MaxRecords < count {
		count = d.MaxRecords
	}
	return first, count
}

// StreamsWith возвращает потоки с указанной ролью, в порядке объявления.
func (d *InputDataset) StreamsWith(role StreamRole) []StreamDescriptor {
	var out []StreamDescriptor
	for _, s := range d.Streams {
		if s.Role.Has(role) {
			out = append(out, s)
		}
	}
	return out
}

// Clone возвращает глубокую копию датасета.
func (d *InputDataset) Clone() InputDataset {
	c := *d
	c.Files = append([]FileEntry(nil), d.Files...)
	c.Streams = make([]StreamDescriptor, len(d.Streams))
	for i, s := range d.Streams {
		c.Streams[i] = s
		c.Streams[i].Roles = append([]string(nil), s.Roles...)
	}
	c.Predicates = append([]SelectionPredicate(nil), d.Predicates...)
	return c
}
