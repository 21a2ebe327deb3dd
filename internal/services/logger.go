// Package services holds cross-service plumbing shared by the pipeline
// stages: the detective, forge, artifact cache and executor.
package services

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceIdentifier is the part of a DI service the logger cares about.
type ServiceIdentifier interface {
	ID() string
}

// ServiceLogger stamps every event with the owning service's id, so one
// process-wide log stream stays attributable per pipeline stage.
type ServiceLogger struct {
	logger zerolog.Logger
}

func NewServiceLogger(svc ServiceIdentifier) *ServiceLogger {
	return &ServiceLogger{
		logger: log.With().Str("service", svc.ID()).Logger(),
	}
}

func (l *ServiceLogger) Info() *zerolog.Event {
	return l.logger.Info()
}

func (l *ServiceLogger) Error() *zerolog.Event {
	return l.logger.Error()
}

func (l *ServiceLogger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

func (l *ServiceLogger) Debug() *zerolog.Event {
	return l.logger.Debug()
}
