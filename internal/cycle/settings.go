package cycle

import (
	"log/slog"

	"github.com/shaiso/Cyclone/internal/domain"
)

// Settings — свойства, конфигурация и логгер цикла.
type Settings struct {
	props  *Properties
	config *domain.CycleConfig
	logger *slog.Logger
}

// NewSettings создаёт Settings с пустым набором свойств.
func NewSettings() Settings {
	return Settings{props: NewProperties()}
}

// Properties возвращает набор свойств.
func (s *Settings) Properties() *Properties {
	if s.props == nil {
		s.props = NewProperties()
	}
	return s.props
}

// DeclareProperty объявляет свойство с переменной по указателю.
func (s *Settings) DeclareProperty(name string, target any) error {
	return s.Properties().Declare(name, target)
}

// SetConfig сохраняет конфигурацию цикла.
func (s *Settings) SetConfig(cfg *domain.CycleConfig) {
	s.config = cfg
}

// Config возвращает конфигурацию цикла (nil до SetConfig).
func (s *Settings) Config() *domain.CycleConfig {
	return s.config
}

// SetLogger задаёт логгер.
func (s *Settings) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Logger возвращает логгер; до SetLogger — глобальный.
func (s *Settings) Logger() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
