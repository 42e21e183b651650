package log

import (
	"os"
	"path/filepath"
	"runtime"
)

func getDefaultDir() (string, error) {
	return defaultDir(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

// defaultDir picks where ring history and diagnostics go when neither the
// flag nor RINGER_LOG_PATH says. Ring history is state, not config, so on
// linux and the BSDs it follows XDG_STATE_HOME.
func defaultDir(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	if goos == "windows" {
		if dir := getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "ringer", "logs"), nil
		}
	}
	h, err := home()
	if err != nil {
		return "", err
	}
	switch goos {
	case "windows":
		return filepath.Join(h, "AppData", "Local", "ringer", "logs"), nil
	case "darwin":
		return filepath.Join(h, "Library", "Logs", "ringer"), nil
	}
	if dir := getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "ringer"), nil
	}
	return filepath.Join(h, ".local", "state", "ringer"), nil
}
