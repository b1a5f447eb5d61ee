package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/config"
)

const fullConfig = `
server:
  listen_addr: ":9090"
  log_level: debug
  frontend_url: "https://claims.example.com/review"
  cors_allowed_origins: ["https://claims.example.com"]
providers:
  stt:
    name: elevenlabs
    api_key: stt-key
    whisper_url: "http://localhost:9000"
  tts:
    name: elevenlabs
    api_key: tts-key
    voice_id: voice-1
    cache_size: 64
  crm:
    name: zoho
    client_id: cid
    client_secret: secret
    refresh_token: refresh
sessions:
  backend: sqlite
  ttl: 45m
  sqlite_path: /var/lib/claims/sessions.db
uploads:
  dir: /var/lib/claims/uploads
  max_size_bytes: 5242880
`

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullConfig))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Providers.STT.WhisperURL != "http://localhost:9000" {
		t.Errorf("WhisperURL = %q", cfg.Providers.STT.WhisperURL)
	}
	if cfg.Sessions.Backend != config.BackendSQLite {
		t.Errorf("Backend = %q", cfg.Sessions.Backend)
	}
	if cfg.Sessions.TTL.Std() != 45*time.Minute {
		t.Errorf("TTL = %v", cfg.Sessions.TTL.Std())
	}
	if cfg.Uploads.MaxSizeBytes != 5242880 {
		t.Errorf("MaxSizeBytes = %d", cfg.Uploads.MaxSizeBytes)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("{}\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Sessions.Backend != config.BackendMemory {
		t.Errorf("Backend = %q, want memory", cfg.Sessions.Backend)
	}
	if cfg.Sessions.TTL.Std() != 30*time.Minute {
		t.Errorf("TTL = %v, want 30m", cfg.Sessions.TTL.Std())
	}
	if cfg.Uploads.Dir != "uploads" {
		t.Errorf("Uploads.Dir = %q", cfg.Uploads.Dir)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_address: ':80'\n"))
	if err == nil {
		t.Error("unknown field was accepted")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Parallel()

	bad := `
server:
  log_level: loud
providers:
  crm:
    name: zoho
sessions:
  backend: sqlite
`
	_, err := config.LoadFromReader(strings.NewReader(bad))
	if err == nil {
		t.Fatal("invalid config was accepted")
	}
	for _, want := range []string{"log_level", "refresh_token", "sqlite_path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestInvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("sessions:\n  ttl: soon\n"))
	if err == nil || !strings.Contains(err.Error(), "duration") {
		t.Errorf("err = %v, want duration parse error", err)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()

	old := &config.Config{}
	old.Server.LogLevel = config.LogInfo
	old.Server.FrontendURL = "https://a.example.com"
	old.Sessions.TTL = config.Duration(30 * time.Minute)

	same := *old
	if d := config.Diff(old, &same); d.Any() {
		t.Errorf("Diff of identical configs = %+v", d)
	}

	changed := *old
	changed.Server.LogLevel = config.LogDebug
	changed.Sessions.TTL = config.Duration(time.Hour)
	d := config.Diff(old, &changed)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = %+v", d)
	}
	if !d.SessionTTLChanged || d.NewSessionTTL.Std() != time.Hour {
		t.Errorf("ttl diff = %+v", d)
	}
	if d.FrontendURLChanged {
		t.Error("frontend URL flagged without change")
	}
}
