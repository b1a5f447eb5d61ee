package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/config"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  log_level: info\n")

	changes := make(chan config.ConfigDiff, 1)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		changes <- config.Diff(old, new)
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Fatalf("initial log level = %q", got)
	}

	writeConfig(t, path, "server:\n  log_level: debug\n")

	select {
	case d := <-changes:
		if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
			t.Errorf("diff = %+v, want log level change to debug", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	if got := w.Current().Server.LogLevel; got != config.LogDebug {
		t.Errorf("Current log level = %q, want debug", got)
	}
}

func TestWatcherKeepsPreviousOnInvalidEdit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  log_level: info\n")

	w, err := config.NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeConfig(t, path, "server:\n  log_level: loud\n")

	// The watcher has no valid-reload signal to wait on here; give it a
	// moment to process the event.
	time.Sleep(500 * time.Millisecond)

	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current log level = %q, want previous value info", got)
	}
}

func TestWatcherInitialLoadFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  log_level: loud\n")

	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Error("NewWatcher accepted an invalid initial config")
	}
}
