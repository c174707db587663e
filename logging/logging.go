// Package logging builds the process-wide logger. The level is fixed when the logger is built and
// the logger is then handed to every component that logs.
package logging

import "flag"
import "io"
import "os"
import "strings"

import "github.com/go-kit/log"
import "github.com/go-kit/log/level"
import dslog "github.com/grafana/dskit/log"
import "github.com/pkg/errors"

// Config chooses where log lines go and which are kept.
type Config struct {
	File      string      `yaml:"file"`
	Level     dslog.Level `yaml:"level"`
	LevelFile string      `yaml:"level_file"`
}

// RegisterFlags adds the flags required to configure this to the given FlagSet.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	_ = cfg.Level.Set("info")
	f.Var(&cfg.Level, "log.level", "Only log messages with the given severity or above. Valid levels: [debug, info, warn, error]")
	f.StringVar(&cfg.File, "log.file", "", "Append log lines to this file instead of stderr.")
	f.StringVar(&cfg.LevelFile, "log.level-file", "", "File holding a single log level, such as ERROR or DEBUG. Overrides -log.level.")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logfmt logger with ts and caller keys. A level file, if named, is read here and
// never again. The returned Closer releases the log file.
func New(cfg Config) (log.Logger, io.Closer, error) {
	lvl := cfg.Level
	if cfg.LevelFile != "" {
		s, err := readLevelFile(cfg.LevelFile)
		if err != nil {
			return nil, nil, err
		}
		if err := lvl.Set(s); err != nil {
			return nil, nil, errors.Wrapf(err, "level file %s", cfg.LevelFile)
		}
	}
	if lvl.String() == "" {
		_ = lvl.Set("info")
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open log file")
		}
		w, closer = f, f
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, lvl.Option)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return logger, closer, nil
}

func readLevelFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read level file")
	}
	return strings.ToLower(strings.TrimSpace(string(b))), nil
}
