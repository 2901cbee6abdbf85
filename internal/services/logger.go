package services

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger tags every event with the owning service id. A nil *ServiceLogger
// logs through the global logger.
type ServiceLogger struct {
	logger zerolog.Logger
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{
		logger: log.With().Str("service", svc.ID()).Logger(),
	}
}

// With returns a child logger carrying one more field, e.g. an execution id.
func (l *ServiceLogger) With(key, value string) *ServiceLogger {
	return &ServiceLogger{logger: l.base().With().Str(key, value).Logger()}
}

func (l *ServiceLogger) base() zerolog.Logger {
	if l == nil {
		return log.Logger
	}
	return l.logger
}

func (l *ServiceLogger) Info() *zerolog.Event {
	base := l.base()
	return base.Info()
}

func (l *ServiceLogger) Error() *zerolog.Event {
	base := l.base()
	return base.Error()
}

func (l *ServiceLogger) Warn() *zerolog.Event {
	base := l.base()
	return base.Warn()
}

func (l *ServiceLogger) Debug() *zerolog.Event {
	base := l.base()
	return base.Debug()
}
