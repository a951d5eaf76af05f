package services

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ServiceLogger writes one structured line per mutating service call, tagged
// with the owning service.
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, service string) *ServiceLogger {
	return &ServiceLogger{logger: logger.With("service", service)}
}

// outcome grades an operation error. Caller mistakes are not service faults
// and stay below error level.
func outcome(err error) (slog.Level, string) {
	switch {
	case err == nil:
		return slog.LevelInfo, "success"
	case IsValidation(err):
		return slog.LevelWarn, "validation_error"
	case IsUnauthorized(err), IsForbidden(err):
		return slog.LevelWarn, "denied"
	case IsNotFound(err):
		return slog.LevelInfo, "not_found"
	case IsConflict(err):
		return slog.LevelWarn, "conflict"
	case IsUpstream(err):
		return slog.LevelError, "upstream_error"
	}
	return slog.LevelError, "error"
}

// OperationLog times one operation; finish it with LogResult.
type OperationLog struct {
	logger    *ServiceLogger
	ctx       context.Context
	operation string
	actorID   string
	started   time.Time
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, actorID string) *OperationLog {
	return &OperationLog{
		logger:    l,
		ctx:       ctx,
		operation: operation,
		actorID:   actorID,
		started:   time.Now(),
	}
}

// LogResult records the outcome against the session, test or student it touched.
func (o *OperationLog) LogResult(resourceID, resourceType string, err error) {
	level, status := outcome(err)

	attrs := []slog.Attr{
		slog.String("operation", o.operation),
		slog.String("status", status),
		slog.String(resourceType+"_id", resourceID),
		slog.Duration("duration", time.Since(o.started)),
	}
	if o.actorID != "" {
		attrs = append(attrs, slog.String("actor_id", o.actorID))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErrs ValidationErrors
		var permErr *PermissionError
		switch {
		case errors.As(err, &validationErrs):
			attrs = append(attrs, slog.Any("invalid_fields", validationErrs.Fields()))
		case errors.As(err, &permErr):
			attrs = append(attrs,
				slog.String("denied_action", permErr.Action),
				slog.String("denied_reason", permErr.Reason))
		}
	}

	o.logger.logger.LogAttrs(o.ctx, level, o.operation+" "+status, attrs...)
}
