package logger

import (
	"context"

	"github.com/smallbiznis/docrender/internal/document/domain"
	"go.uber.org/zap"
)

// ErrorLogger reports document failures at error level. With an error log
// path configured, New tees these entries into that file.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorLogger{log: log.Named("document.errors")}
}

func (l *ErrorLogger) LogError(ctx context.Context, err error, fields ...zap.Field) {
	if l == nil || err == nil {
		return
	}
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.Error(err))
	if code := domain.Code(err); code != "" {
		all = append(all, zap.String("error_code", code))
	}
	all = append(all, fields...)
	WithContext(ctx, l.log).Error("document_error", all...)
}

var _ domain.ErrorLogger = (*ErrorLogger)(nil)
