package logging

import "flag"
import "os"
import "path/filepath"
import "strings"
import "testing"

import "github.com/go-kit/log/level"
import "github.com/stretchr/testify/require"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func logAll(t *testing.T, cfg Config) string {
	t.Helper()
	cfg.File = filepath.Join(t.TempDir(), "test.log")
	logger, closer, err := New(cfg)
	require.NoError(t, err)
	level.Debug(logger).Log("msg", "debug line")
	level.Info(logger).Log("msg", "info line")
	level.Error(logger).Log("msg", "error line")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	return string(b)
}

func TestFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.Equal(t, "info", cfg.Level.String())
	require.NoError(t, fs.Parse([]string{"-log.level", "warn", "-log.file", "out.log"}))
	require.Equal(t, "warn", cfg.Level.String())
	require.Equal(t, "out.log", cfg.File)
	require.Error(t, fs.Parse([]string{"-log.level", "loud"}))
}

func TestDefaultLevel(t *testing.T) {
	out := logAll(t, Config{})
	require.NotContains(t, out, "debug line")
	require.Contains(t, out, "level=info")
	require.Contains(t, out, "error line")
	require.Contains(t, out, "caller=")
	require.Contains(t, out, "ts=")
}

func TestLevelFile(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Level.Set("info"))

	cfg.LevelFile = writeFile(t, "properties.txt", "ERROR\n")
	out := logAll(t, cfg)
	require.NotContains(t, out, "info line")
	require.Contains(t, out, "level=error")

	cfg.LevelFile = writeFile(t, "properties.txt", "DEBUG")
	out = logAll(t, cfg)
	require.Contains(t, out, "debug line")
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}

func TestBadLevelFile(t *testing.T) {
	_, _, err := New(Config{LevelFile: writeFile(t, "properties.txt", "LOUD")})
	require.Error(t, err)

	_, _, err = New(Config{LevelFile: filepath.Join(t.TempDir(), "missing.txt")})
	require.Error(t, err)
}

func TestLogFileIsAppended(t *testing.T) {
	path := writeFile(t, "test.log", "earlier line\n")
	logger, closer, err := New(Config{File: path})
	require.NoError(t, err)
	level.Info(logger).Log("msg", "later line")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "earlier line\n"))
	require.Contains(t, string(b), "later line")
}
