package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "telesuperd.log")
	logger, err := New(path, "work", Options{Level: "debug"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("hello", zap.Int("n", 1))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"msg":"hello"`, `"session":"work"`, `"n":1`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "x.log"), "main", Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestWhatsmeowAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wa.log")
	logger, err := New(path, "main", Options{})
	if err != nil {
		t.Fatal(err)
	}
	wl := Whatsmeow(logger, "client").Sub("socket")
	wl.Infof("connected to %s", "server")
	wl.Debugf("dropped below level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "connected to server") || !strings.Contains(out, `"logger":"client.socket"`) {
		t.Errorf("unexpected log output: %s", out)
	}
	if strings.Contains(out, "dropped below level") {
		t.Error("debug line written at info level")
	}
}
