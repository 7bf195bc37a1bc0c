package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/warden-panel/warden/internal/config"
)

var (
	mu     sync.Mutex
	root   *slog.Logger
	closer io.Closer
)

// Init builds the process-wide logger from config and installs it as
// the slog default. The stdlib log package is redirected into the same
// stream, so "[Tag] message" call sites keep working and the tag
// becomes a component attribute. Calling Init twice returns the
// already-built logger.
func Init(cfg config.LoggingConfig) (*slog.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	if root != nil {
		return root, nil
	}

	sink, c := openSink(cfg)
	closer = c

	opts := &slog.HandlerOptions{Level: levelFor(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(sink, opts)
	} else {
		handler = slog.NewJSONHandler(sink, opts)
	}

	root = slog.New(handler).With(slog.String("app", "warden-panel"))
	slog.SetDefault(root)
	log.SetFlags(0)
	log.SetOutput(&bridge{out: root})

	return root, nil
}

// L returns the process logger. Before Init it returns a discard
// logger, so library code can log unconditionally.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if root == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return root
}

// Close releases the rotated log file if one is open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// bridge feeds stdlib log output into slog, lifting the conventional
// "[Component]" prefix into a structured attribute.
type bridge struct {
	out *slog.Logger
}

func (b *bridge) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	if component, rest, ok := splitComponent(msg); ok {
		b.out.Info(rest, slog.String("component", component))
	} else {
		b.out.Info(msg)
	}
	return len(p), nil
}

func splitComponent(msg string) (component, rest string, ok bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", "", false
	}
	end := strings.Index(msg, "]")
	if end < 2 {
		return "", "", false
	}
	return msg[1:end], strings.TrimSpace(msg[end+1:]), true
}

func openSink(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	if strings.TrimSpace(cfg.File) == "" {
		return os.Stdout, nil
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}

	return io.MultiWriter(os.Stdout, rotated), rotated
}

func levelFor(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
