package logger

import "log/slog"

func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

func LogTrade(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "trade")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
