package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cyclone/internal/domain"
	"github.com/shaiso/Cyclone/internal/engine"
)

// rawJob и остальные raw-типы отражают YAML один к одному.
// Поля, у которых значение по умолчанию не нулевое, объявлены указателями.
type rawJob struct {
	Name     string     `yaml:"name"`
	LogLevel string     `yaml:"log_level"`
	Cycles   []rawCycle `yaml:"cycles"`
}

type rawCycle struct {
	Name       string       `yaml:"name"`
	Mode       string       `yaml:"mode"`
	Endpoint   string       `yaml:"endpoint"`
	TargetLumi float64      `yaml:"target_lumi"`
	OutputDir  string       `yaml:"output_dir"`
	PostFix    string       `yaml:"postfix"`
	CacheFile  string       `yaml:"cache_file"`
	Properties yaml.Node    `yaml:"properties"`
	Datasets   []rawDataset `yaml:"datasets"`
}

type rawDataset struct {
	Type        string                      `yaml:"type"`
	Version     string                      `yaml:"version"`
	Lumi        float64                     `yaml:"lumi"`
	MaxRecords  *int64                      `yaml:"max_records"`
	SkipRecords int64                       `yaml:"skip_records"`
	Cacheable   bool                        `yaml:"cacheable"`
	Files       []domain.FileEntry          `yaml:"files"`
	Streams     []domain.StreamDescriptor   `yaml:"streams"`
	Predicates  []domain.SelectionPredicate `yaml:"predicates"`
}

// Load читает и валидирует файл задания.
func Load(path string) (*domain.JobConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	job, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// Parse разбирает YAML задания. baseDir — каталог для относительных путей
// (пустая строка оставляет пути как есть).
//
// Неизвестные поля считаются ошибкой. После разбора задание проходит
// структурную валидацию (engine.Validate) без проверки имён циклов.
func Parse(data []byte, baseDir string) (*domain.JobConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw rawJob
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyJob
		}
		return nil, fmt.Errorf("decode job: %w", err)
	}

	job := &domain.JobConfig{
		Name:     raw.Name,
		LogLevel: raw.LogLevel,
		Cycles:   make([]domain.CycleConfig, 0, len(raw.Cycles)),
	}
	for _, rc := range raw.Cycles {
		cfg, err := convertCycle(rc, baseDir)
		if err != nil {
			return nil, err
		}
		job.Cycles = append(job.Cycles, cfg)
	}

	if err := engine.Validate(job, nil); err != nil {
		return nil, err
	}
	return job, nil
}

func convertCycle(rc rawCycle, baseDir string) (domain.CycleConfig, error) {
	props, err := decodeProperties(&rc.Properties)
	if err != nil {
		return domain.CycleConfig{}, fmt.Errorf("cycle %s: %w", rc.Name, err)
	}

	cfg := domain.CycleConfig{
		Name:       rc.Name,
		Mode:       domain.RunMode(rc.Mode),
		Endpoint:   rc.Endpoint,
		TargetLumi: rc.TargetLumi,
		OutputDir:  resolve(baseDir, rc.OutputDir),
		PostFix:    rc.PostFix,
		CacheFile:  resolve(baseDir, rc.CacheFile),
		Properties: props,
		Datasets:   make([]domain.InputDataset, 0, len(rc.Datasets)),
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = resolve(baseDir, ".")
	}

	for _, rd := range rc.Datasets {
		ds := domain.InputDataset{
			Type:        rd.Type,
			Version:     rd.Version,
			Lumi:        rd.Lumi,
			MaxRecords:  -1,
			SkipRecords: rd.SkipRecords,
			Cacheable:   rd.Cacheable,
			Files:       rd.Files,
			Streams:     rd.Streams,
			Predicates:  rd.Predicates,
		}
		if rd.MaxRecords != nil {
			ds.MaxRecords = *rd.MaxRecords
		}
		for i := range ds.Files {
			ds.Files[i].Path = resolve(baseDir, ds.Files[i].Path)
		}
		cfg.Datasets = append(cfg.Datasets, ds)
	}
	return cfg, nil
}

// decodeProperties принимает две формы:
//
//	properties: {MinPt: 25, Labels: [a, b]}
//	properties: [{name: MinPt, values: ["25"]}]
func decodeProperties(node *yaml.Node) ([]domain.Property, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.MappingNode:
		props := make([]domain.Property, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			values, err := scalarValues(val)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", key.Value, err)
			}
			props = append(props, domain.Property{Name: key.Value, Values: values})
		}
		return props, nil
	case yaml.SequenceNode:
		var props []domain.Property
		if err := node.Decode(&props); err != nil {
			return nil, fmt.Errorf("decode properties: %w", err)
		}
		return props, nil
	default:
		return nil, fmt.Errorf("%w: properties must be a mapping or a list (line %d)", ErrInvalidProperty, node.Line)
	}
}

func scalarValues(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		values := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: nested value at line %d", ErrInvalidProperty, item.Line)
			}
			values = append(values, item.Value)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%w: line %d", ErrInvalidProperty, n.Line)
	}
}

func resolve(baseDir, path string) string {
	if path == "" || baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
