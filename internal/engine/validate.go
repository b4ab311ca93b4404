package engine

import (
	"fmt"

	"github.com/shaiso/Cyclone/internal/domain"
)

// CycleLookup проверяет, зарегистрирован ли цикл с данным именем.
type CycleLookup interface {
	Has(name string) bool
}

// Validate выполняет структурную валидацию задания.
//
// Проверяет:
// - Наличие циклов и их имена
// - Режим выполнения и адрес пула для DISTRIBUTED
// - Датасеты: тип, файлы, роли и уникальность имён потоков
// - Генераторные срезы: поток объявлен, выражение разбирается
//
// Роли потоков из YAML (Roles) переводятся в Role на месте.
// cycles может быть nil — тогда имена циклов не проверяются.
func Validate(job *domain.JobConfig, cycles CycleLookup) error {
	if job == nil || len(job.Cycles) == 0 {
		return ErrNoCycles
	}

	for i := range job.Cycles {
		if err := ValidateCycle(&job.Cycles[i], cycles); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCycle валидирует конфигурацию одного цикла.
func ValidateCycle(cfg *domain.CycleConfig, cycles CycleLookup) error {
	if cfg.Name == "" {
		return NewValidationError("", "name", "cycle has empty name", ErrEmptyCycleName)
	}
	if cycles != nil && !cycles.Has(cfg.Name) {
		return NewValidationError(cfg.Name, "name",
			fmt.Sprintf("unknown cycle: %s", cfg.Name), ErrUnknownCycle)
	}

	mode, ok := domain.ParseRunMode(string(cfg.Mode))
	if !ok {
		return NewValidationError(cfg.Name, "mode",
			fmt.Sprintf("invalid run mode: %s", cfg.Mode), ErrInvalidMode)
	}
	cfg.Mode = mode
	if mode == domain.RunModeDistributed && cfg.Endpoint == "" {
		return NewValidationError(cfg.Name, "endpoint",
			"distributed mode requires endpoint", ErrMissingEndpoint)
	}

	if len(cfg.Datasets) == 0 {
		return NewValidationError(cfg.Name, "datasets", "cycle has no datasets", ErrNoDatasets)
	}
	for i := range cfg.Datasets {
		if err := validateDataset(cfg.Name, i, &cfg.Datasets[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateDataset(cycle string, idx int, ds *domain.InputDataset) error {
	field := fmt.Sprintf("datasets[%d]", idx)

	if ds.Type == "" {
		return NewValidationError(cycle, field+".type", "dataset has empty type", ErrEmptyType)
	}
	if len(ds.Files) == 0 {
		return NewValidationError(cycle, field+".files",
			fmt.Sprintf("dataset %s has no files", ds.Key()), ErrNoFiles)
	}
	seen := make(map[domain.StreamRole]map[string]bool)
	declared := make(map[string]bool)

	for j := range ds.Streams {
		s := &ds.Streams[j]
		for _, r := range s.Roles {
			role, ok := domain.ParseStreamRole(r)
			if !ok {
				return NewValidationError(cycle, field+".streams",
					fmt.Sprintf("stream %s: unknown role %q", s.Name, r), ErrUnknownRole)
			}
			s.Role |= role
		}

		for _, role := range []domain.StreamRole{domain.RoleInput, domain.RoleOutput, domain.RolePersistent} {
			if !s.Role.Has(role) {
				continue
			}
			if seen[role] == nil {
				seen[role] = make(map[string]bool)
			}
			if seen[role][s.Name] {
				return NewValidationError(cycle, field+".streams",
					fmt.Sprintf("duplicate %s stream: %s", role, s.Name), ErrDuplicateStream)
			}
			seen[role][s.Name] = true
		}

		declared[s.Name] = true
	}

	for _, p := range ds.Predicates {
		if !declared[p.Stream] {
			return NewValidationError(cycle, field+".predicates",
				fmt.Sprintf("unknown stream: %s", p.Stream), ErrUnknownStream)
		}
		if _, err := CompilePredicate(p); err != nil {
			return NewValidationError(cycle, field+".predicates", err.Error(), err)
		}
	}
	return nil
}
