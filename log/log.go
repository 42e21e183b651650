package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	ringLog  zerolog.Logger
	diagFile *os.File
	ringFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

// Fields carries structured values for a ring history line.
type Fields map[string]any

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: RINGER_LOG_PATH environment variable
	if envPath := os.Getenv("RINGER_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagFile, err = os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	ringFile, err = os.OpenFile(filepath.Join(dir, "ring_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	// ring history stays machine-readable: one JSON object per line
	ringLog = zerolog.New(ringFile).With().Timestamp().Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if ringFile != nil {
		ringFile.Close()
		ringFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Ring appends one event to the ring history file.
func Ring(kind string, f Fields) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	ringLog.Info().Str("kind", kind).Fields(map[string]any(f)).Msg("ring")
}

func SessionStart(offset int, ringtone string) {
	if !logReady {
		return
	}
	if ringtone == "" {
		ringtone = "default tone"
	}
	diagLog.Info().
		Int("offset_s", offset).
		Str("ringtone", ringtone).
		Msg("session_start")
}

func SessionEnd(fired, ringOffs int, uptime time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("fired", fired).
		Int("ring_offs", ringOffs).
		Dur("uptime", uptime).
		Msg("session_end")
}
