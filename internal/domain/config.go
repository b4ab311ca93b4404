package domain

import "strings"

// RunMode — режим выполнения цикла.
type RunMode string

const (
	// RunModeLocal — все датасеты обрабатываются в текущем процессе.
	RunModeLocal RunMode = "LOCAL"

	// RunModeDistributed — записи датасета раздаются пулу воркеров.
	RunModeDistributed RunMode = "DISTRIBUTED"
)

// ParseRunMode разбирает режим без учёта регистра.
// Старое имя "PROOF" считается синонимом DISTRIBUTED.
func ParseRunMode(s string) (RunMode, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "LOCAL":
		return RunModeLocal, true
	case "DISTRIBUTED", "PROOF":
		return RunModeDistributed, true
	default:
		return "", false
	}
}

// Property — значение объявленного свойства цикла.
// Хранится как список строк: скаляр — список из одного элемента.
type Property struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// CycleConfig — конфигурация одного цикла.
type CycleConfig struct {
	// Name — имя цикла, по нему цикл ищется в реестре.
	Name string `json:"name" yaml:"name"`

	Mode     RunMode `json:"mode" yaml:"mode"`
	Endpoint string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// TargetLumi — целевая светимость для нормировки.
	TargetLumi float64 `json:"target_lumi" yaml:"target_lumi"`

	Datasets   []InputDataset `json:"datasets" yaml:"datasets"`
	Properties []Property     `json:"properties,omitempty" yaml:"properties,omitempty"`

	OutputDir string `json:"output_dir" yaml:"output_dir"`
	PostFix   string `json:"postfix,omitempty" yaml:"postfix,omitempty"`

	// CacheFile — файл кеша валидации для датасетов с Cacheable.
	CacheFile string `json:"cache_file,omitempty" yaml:"cache_file,omitempty"`
}

// Property возвращает свойство по имени.
func (c *CycleConfig) Property(name string) (Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// JobConfig — содержимое файла задания.
type JobConfig struct {
	Name     string        `json:"name" yaml:"name"`
	LogLevel string        `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Cycles   []CycleConfig `json:"cycles" yaml:"cycles"`
}
