package core

import "github.com/hupe1980/dialogmesh/logging"

// loggerAdapter binds a logging.Logger to the activity of a turn. Every
// message carries the channel, conversation and activity ids so log lines of
// interleaved conversations can be told apart. It never holds a nil logger;
// nil is replaced by logging.NoOpLogger.
type loggerAdapter struct {
	logger logging.Logger
	attrs  []any
}

func newLoggerAdapter(l logging.Logger, a Activity) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}

	var attrs []any
	if a.ChannelID != "" {
		attrs = append(attrs, "channel_id", a.ChannelID)
	}
	if a.Conversation.ID != "" {
		attrs = append(attrs, "conversation_id", a.Conversation.ID)
	}
	if a.ID != "" {
		attrs = append(attrs, "activity_id", a.ID)
	}

	return &loggerAdapter{logger: l, attrs: attrs}
}

// Logger returns the underlying logger without turn attributes.
func (l *loggerAdapter) Logger() logging.Logger { return l.logger }

func (l *loggerAdapter) with(args []any) []any {
	if len(l.attrs) == 0 {
		return args
	}
	out := make([]any, 0, len(l.attrs)+len(args))
	return append(append(out, l.attrs...), args...)
}

// LogDebug logs a debug message.
func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

// LogInfo logs an info message.
func (l *loggerAdapter) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.with(args)...) }

// LogWarn logs a warning message.
func (l *loggerAdapter) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

// LogError logs an error message.
func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }
