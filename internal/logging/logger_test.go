package logging

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/warden-panel/warden/internal/config"
)

func TestInitAndCloseLogger(t *testing.T) {
	root := t.TempDir()
	logPath := filepath.Join(root, "app.log")

	_, err := Init(config.LoggingConfig{
		Level:      "info",
		Format:     "json",
		File:       logPath,
		MaxSize:    10,
		MaxBackups: 1,
		MaxAge:     1,
	})
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	L().Info("test_log")
	if err := Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
}

func TestBridgeLiftsComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	b := &bridge{out: slog.New(slog.NewJSONHandler(&buf, nil))}

	if _, err := b.Write([]byte("[Backup] archive uploaded\n")); err != nil {
		t.Fatalf("bridge write failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"component":"Backup"`) {
		t.Fatalf("component attribute missing from %q", out)
	}
	if !strings.Contains(out, `"msg":"archive uploaded"`) {
		t.Fatalf("prefix not stripped from message: %q", out)
	}

	buf.Reset()
	if _, err := b.Write([]byte("plain message\n")); err != nil {
		t.Fatalf("bridge write failed: %v", err)
	}
	if strings.Contains(buf.String(), "component") {
		t.Fatalf("unprefixed message must not gain a component: %q", buf.String())
	}
}
