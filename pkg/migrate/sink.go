package migrate

import (
	"context"
	"log/slog"
)

// RowMessageSink records messages on the row itself.
type RowMessageSink struct{}

// NewRowMessageSink creates the default message sink
func NewRowMessageSink() MessageSink {
	return &RowMessageSink{}
}

// SaveMessage appends the message to row.Messages
func (s *RowMessageSink) SaveMessage(ctx context.Context, row *Row, level MessageLevel, message string) {
	row.AddMessage(level, message)
}

// LoggingMessageSink records messages on the row and mirrors them to a logger.
// Useful for development and debugging
type LoggingMessageSink struct {
	logger *slog.Logger
}

// NewLoggingMessageSink creates a new logging message sink
func NewLoggingMessageSink(logger *slog.Logger) MessageSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMessageSink{logger: logger}
}

// SaveMessage appends the message to the row and logs it
func (s *LoggingMessageSink) SaveMessage(ctx context.Context, row *Row, level MessageLevel, message string) {
	row.AddMessage(level, message)

	index := -1
	if row != nil {
		index = row.Index
	}
	lvl := slog.LevelInfo
	switch level {
	case MessageError:
		lvl = slog.LevelError
	case MessageWarning:
		lvl = slog.LevelWarn
	}
	s.logger.Log(ctx, lvl, "Row message", "row", index, "message", message)
}
