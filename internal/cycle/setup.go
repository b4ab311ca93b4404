package cycle

import (
	"log/slog"

	"github.com/shaiso/Cyclone/internal/domain"
)

// Setup передаёт циклу конфигурацию, свойства и логгер
// через те возможности, которые он реализует.
func Setup(c Cycle, cfg *domain.CycleConfig, logger *slog.Logger) error {
	if la, ok := c.(LoggerAware); ok {
		la.SetLogger(logger)
	}

	conf, ok := c.(Configurable)
	if !ok {
		return nil
	}
	conf.SetConfig(cfg)

	unknown, err := conf.Properties().Apply(cfg.Properties)
	for _, name := range unknown {
		logger.Warn("property not declared by cycle", "cycle", cfg.Name, "property", name)
	}
	return err
}
