package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/dectctl/internal/logging"
	"github.com/danmuck/dectctl/internal/observability"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/rs/zerolog"
)

type outputFormat string

const (
	outputJSON outputFormat = "json"
	outputText outputFormat = "text"
)

type fileSettings struct {
	Role     string `toml:"role"`
	Output   string `toml:"output"`
	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// cliSettings are the per user defaults for the one shot commands.
type cliSettings struct {
	Role     tail.Role
	Output   outputFormat
	LogLevel zerolog.Level
	LogFile  string
}

func defaultSettings() cliSettings {
	return cliSettings{
		Role:     tail.PortablePart,
		Output:   outputJSON,
		LogLevel: zerolog.WarnLevel,
	}
}

func loadSettings(path string) (cliSettings, error) {
	cfg := defaultSettings()

	var raw fileSettings
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliSettings{}, fmt.Errorf("load cli settings: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliSettings{}, fmt.Errorf("load cli settings: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("role") {
		role, err := parseRole(raw.Role)
		if err != nil {
			return cliSettings{}, err
		}
		cfg.Role = role
	}

	if meta.IsDefined("output") {
		out, err := parseOutput(raw.Output)
		if err != nil {
			return cliSettings{}, err
		}
		cfg.Output = out
	}

	if meta.IsDefined("log_level") {
		lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw.LogLevel)))
		if err != nil {
			return cliSettings{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = lvl
	}

	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}

	return cfg, nil
}

func parseRole(raw string) (tail.Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fp", "fixed":
		return tail.FixedPart, nil
	case "pp", "portable":
		return tail.PortablePart, nil
	default:
		return 0, fmt.Errorf("unknown role %q (want fp or pp)", raw)
	}
}

func parseOutput(raw string) (outputFormat, error) {
	switch out := outputFormat(strings.ToLower(strings.TrimSpace(raw))); out {
	case outputJSON, outputText:
		return out, nil
	default:
		return "", fmt.Errorf("unknown output %q (want json or text)", raw)
	}
}

// logger builds the diagnostics logger on stderr. Environment overrides
// from internal/logging still apply on top of the settings file.
func (s cliSettings) logger(command string) zerolog.Logger {
	cfg := logging.Config{
		Level:      s.LogLevel,
		NoColor:    true,
		File:       s.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 1,
	}
	logger := logging.New(logging.WithEnv(cfg), os.Stderr).With().Str("command", command).Logger()
	return observability.Sampled(logger, 20)
}

func (s cliSettings) print(w io.Writer, v any) error {
	if s.Output == outputText {
		if st, ok := v.(fmt.Stringer); ok {
			_, err := fmt.Fprintln(w, st.String())
			return err
		}
		_, err := fmt.Fprintf(w, "%+v\n", v)
		return err
	}
	return writeJSON(w, v)
}
