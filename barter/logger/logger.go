package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeCommand LogType = "CMD"
	TypeDB      LogType = "DB"
	TypeSystem  LogType = "SYS"
	TypeTrade   LogType = "TRD"
	TypeNotify  LogType = "NTF"
	TypeError   LogType = "ERR"
)

// CustomHandler prints one colored line per record:
//
//	[Barter] [15:04:05] [INFO] [TRD] Trade completed [trade.confirm by alice] trade_id=...
type CustomHandler struct {
	opts   *slog.HandlerOptions
	out    io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

func NewHandler(level slog.Level) *CustomHandler {
	return NewHandlerWithWriter(os.Stdout, level)
}

func NewHandlerWithWriter(w io.Writer, level slog.Level) *CustomHandler {
	return &CustomHandler{
		opts: &slog.HandlerOptions{Level: level},
		out:  w,
		mu:   &sync.Mutex{},
	}
}

// ParseLevel maps a config string to a level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &CustomHandler{opts: h.opts, out: h.out, mu: h.mu, attrs: merged, groups: h.groups}
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &CustomHandler{opts: h.opts, out: h.out, mu: h.mu, attrs: h.attrs, groups: groups}
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(&r) {
		return nil
	}

	var levelColor, levelText string
	switch {
	case r.Level >= slog.LevelError:
		levelColor, levelText = colorRed, "ERROR"
	case r.Level >= slog.LevelWarn:
		levelColor, levelText = colorYellow, "WARN"
	case r.Level >= slog.LevelInfo:
		levelColor, levelText = colorGreen, "INFO"
	default:
		levelColor, levelText = colorPurple, "DEBUG"
	}

	fields := collect(h.attrs, &r)

	message := r.Message
	if r.Level >= slog.LevelError && fields.errText != "" {
		message = fmt.Sprintf("%s: %s", message, fields.errText)
	}
	if fields.name != "" && fields.user != "" {
		message = fmt.Sprintf("%s [%s by %s]", message, fields.name, fields.user)
	}
	if fields.status != "" {
		message = fmt.Sprintf("%s [Status: %s]", message, fields.status)
	}
	if fields.took != "" {
		message = fmt.Sprintf("%s (took %s)", message, fields.took)
	}

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	var sb strings.Builder
	for _, a := range fields.rest {
		fmt.Fprintf(&sb, " %s%s=%v", prefix, a.Key, a.Value)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.out, "%s[Barter] [%s] [%s%s%s] [%s%s%s] %s%s%s\n",
		colorWhite,
		r.Time.Format("15:04:05"),
		levelColor, levelText, colorWhite,
		colorCyan, fields.logType, colorWhite,
		message,
		sb.String(),
		colorReset,
	)
	return err
}

type recordFields struct {
	logType LogType
	name    string
	user    string
	status  string
	took    string
	errText string
	rest    []slog.Attr
}

func collect(base []slog.Attr, r *slog.Record) recordFields {
	f := recordFields{logType: TypeSystem}
	visit := func(a slog.Attr) bool {
		switch a.Key {
		case "type":
			f.logType = typeFor(a.Value.String())
		case "name":
			f.name = a.Value.String()
		case "user_name":
			f.user = a.Value.String()
		case "status":
			f.status = a.Value.String()
		case "took":
			if a.Value.Kind() == slog.KindDuration {
				f.took = a.Value.Duration().Round(time.Millisecond).String()
			} else {
				f.took = a.Value.String()
			}
		case "error":
			f.errText = a.Value.String()
		default:
			f.rest = append(f.rest, a)
		}
		return true
	}
	for _, a := range base {
		visit(a)
	}
	r.Attrs(visit)
	return f
}

func typeFor(s string) LogType {
	switch s {
	case "cmd":
		return TypeCommand
	case "db":
		return TypeDB
	case "trade":
		return TypeTrade
	case "notify":
		return TypeNotify
	case "error":
		return TypeError
	default:
		return TypeSystem
	}
}

func shouldSkipLog(r *slog.Record) bool {
	skippedMessages := []string{
		"locking buckets",
		"unlocking buckets",
		"gateway event",
		"cleaning up bucket",
		"cleaned up rate limit buckets",
		"binary message received",
		"received gateway message",
		"locking gateway rate limiter",
		"unlocking gateway rate limiter",
		"sending gateway command",
		"new request",
		"new response",
		"rate limit response headers",
		"sending heartbeat",
	}

	msg := strings.ToLower(r.Message)
	for _, skip := range skippedMessages {
		if strings.Contains(msg, skip) {
			return true
		}
	}
	return false
}
