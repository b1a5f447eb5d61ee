package config

import "log/slog"

// ConfigDiff describes what changed between two configs. Only fields that can
// be safely hot-reloaded are tracked; everything else needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	FrontendURLChanged bool
	NewFrontendURL     string

	SessionTTLChanged bool
	NewSessionTTL     Duration
}

// Any reports whether the diff carries at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.FrontendURLChanged || d.SessionTTLChanged
}

// Diff compares old and new configs and returns what changed among the
// hot-reloadable settings.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Server.FrontendURL != new.Server.FrontendURL {
		d.FrontendURLChanged = true
		d.NewFrontendURL = new.Server.FrontendURL
	}
	if old.Sessions.TTL != new.Sessions.TTL {
		d.SessionTTLChanged = true
		d.NewSessionTTL = new.Sessions.TTL
	}

	return d
}

// SlogLevel translates a LogLevel into the value used with slog.LevelVar.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
